// Package transfer moves entity data between the local store and workbook
// documents.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/dataaccess"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/entity"
	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/workbook"
)

// Exporter writes every entity table into a workbook document
type Exporter struct {
	facade  dataaccess.Facade
	logger  *logging.Logger
	version int
	now     func() time.Time
}

// NewExporter creates an exporter writing the current schema version
func NewExporter(facade dataaccess.Facade, logger *logging.Logger) *Exporter {
	return &Exporter{
		facade:  facade,
		logger:  logger,
		version: entity.CurrentSchemaVersion,
		now:     time.Now,
	}
}

// Export reads all entities and returns the document. It is all or nothing:
// on any error no document is returned.
func (e *Exporter) Export(ctx context.Context, progress ProgressFunc) (*workbook.Document, error) {
	tracker := newProgressTracker(progress)
	defs := entity.All()

	doc := workbook.NewDocument(workbook.NewMetadata(e.version, e.now().Format(workbook.DateLayout)))
	for i, def := range defs {
		if err := ctx.Err(); err != nil {
			return nil, appErrors.NewAppError(appErrors.ErrorTypeInterruption, "export canceled", err).
				WithContext("sheet", def.Sheet)
		}

		start := time.Now()
		rows, err := e.exportEntity(ctx, doc, def)
		e.logger.LogEntityExport(def.Sheet, rows, time.Since(start), err)
		if err != nil {
			return nil, err
		}

		tracker.report(fmt.Sprintf("Exported %s (%d rows)", def.Sheet, rows), step(i, len(defs), 0, 100))
	}

	return doc, nil
}

func (e *Exporter) exportEntity(ctx context.Context, doc *workbook.Document, def *entity.Definition) (int, error) {
	headers := def.Headers(e.version)
	sheet, err := doc.AddSheet(def.Sheet, headers)
	if err != nil {
		return 0, appErrors.NewAppError(appErrors.ErrorTypeUnknown, "failed to create sheet", err).
			WithContext("sheet", def.Sheet)
	}

	table, err := e.facade.Table(def.Table)
	if err != nil {
		return 0, appErrors.WrapError(err, fmt.Sprintf("no data access for %s", def.Table))
	}
	records, err := table.GetAll(ctx)
	if err != nil {
		return 0, appErrors.WrapError(err, fmt.Sprintf("failed to read %s", def.Table))
	}

	for _, r := range records {
		row := make([]any, len(headers))
		for j, name := range headers {
			col, _ := def.Column(name)
			v, ok := r[name]
			if !ok || v == nil {
				v = entity.ZeroValue(col.Kind)
			}
			row[j] = v
		}
		sheet.AppendRow(row)
	}
	return len(records), nil
}
