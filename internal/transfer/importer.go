package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/dataaccess"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/entity"
	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/schema"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/workbook"
)

// Importer reads workbook documents back into the local store
type Importer struct {
	facade   dataaccess.Facade
	registry *schema.VersionedRegistry
	resolver *Resolver
	logger   *logging.Logger
	now      func() time.Time
}

// NewImporter creates an importer over the default registry
func NewImporter(facade dataaccess.Facade, registry *schema.VersionedRegistry, logger *logging.Logger) *Importer {
	if registry == nil {
		registry = schema.Default()
	}
	return &Importer{
		facade:   facade,
		registry: registry,
		resolver: NewResolver(),
		logger:   logger,
		now:      time.Now,
	}
}

// Import applies doc to the local store in dependency order. Row level
// failures are counted, never returned. The returned error is non-nil only
// for cancellation or a missing data access table; the summary is still
// returned for the entities already processed.
func (im *Importer) Import(ctx context.Context, doc *workbook.Document, userID, storeID string, mode RestoreMode, progress ProgressFunc) (*ImportSummary, error) {
	if mode != ModeReplace {
		mode = ModeMerge
	}
	tracker := newProgressTracker(progress)
	summary := newImportSummary(mode, doc.Metadata.SchemaVersion)

	if mode == ModeReplace {
		var names []string
		for _, def := range entity.UnprotectedEntities() {
			names = append(names, def.Sheet)
		}
		summary.warn("REPLACE has no protected record for: " + strings.Join(names, ", "))
	}

	defs := entity.ImportOrder()
	for i, def := range defs {
		if err := ctx.Err(); err != nil {
			return summary, appErrors.NewAppError(appErrors.ErrorTypeInterruption, "import canceled", err).
				WithContext("sheet", def.Sheet)
		}

		if err := im.importEntity(ctx, doc, def, userID, storeID, mode, summary); err != nil {
			return summary, err
		}

		c := summary.Counts(def.Sheet)
		tracker.report(fmt.Sprintf("Imported %s (added %d, skipped %d, failed %d)", def.Sheet, c.Added, c.Skipped, c.Failed),
			step(i, len(defs), 0, 100))
	}

	return summary, nil
}

type columnBinding struct {
	column entity.Column
	index  int
}

func (im *Importer) importEntity(ctx context.Context, doc *workbook.Document, def *entity.Definition, userID, storeID string, mode RestoreMode, summary *ImportSummary) error {
	sheet, ok := doc.Sheet(def.Sheet)
	if !ok {
		missing := appErrors.NewMissingSheetError(def.Sheet)
		im.logger.WithField("sheet", def.Sheet).Warn(missing.Error())
		summary.MissingSheets = append(summary.MissingSheets, def.Sheet)
		return nil
	}

	start := time.Now()
	counts := summary.counts(def.Sheet)
	defer func() {
		im.logger.LogEntityImport(def.Sheet, counts.Added, counts.Skipped, counts.Failed, time.Since(start))
	}()

	headerMap := schema.BuildHeaderMap(def, sheet.Header())
	dataRows := sheet.Rows
	if !headerMap.IsHeaderless() && len(dataRows) > 0 {
		dataRows = dataRows[1:]
	}
	bindings := im.bindColumns(def, headerMap, summary)

	table, err := im.facade.Table(def.Table)
	if err != nil {
		return appErrors.WrapError(err, fmt.Sprintf("no data access for %s", def.Table))
	}

	index, err := im.existingIndex(ctx, def, table)
	if err != nil {
		im.logger.WithField("sheet", def.Sheet).WithField("error", err.Error()).
			Error("Cannot read existing records, counting sheet as failed")
		for _, row := range dataRows {
			if !isBlankRow(row) {
				counts.Failed++
			}
		}
		return nil
	}

	for i, row := range dataRows {
		if isBlankRow(row) {
			continue
		}
		rowNumber := i + 2
		if headerMap.IsHeaderless() {
			rowNumber = i + 1
		}

		incoming, err := im.parseRow(bindings, row)
		if err != nil {
			counts.Failed++
			im.logger.LogRowFailure(def.Sheet, rowNumber, appErrors.NewRowParseError(def.Sheet, rowNumber, err))
			continue
		}

		key, err := def.Key(def.WithScope(incoming, userID, storeID))
		if err != nil {
			counts.Failed++
			im.logger.LogRowFailure(def.Sheet, rowNumber, appErrors.NewRowParseError(def.Sheet, rowNumber, err))
			continue
		}

		// the store upserts by primary key, so a row sharing only that with
		// a local record would overwrite it
		pk := primaryKey(def, incoming)
		existing := index.byKey[key]
		if existing == nil && pk != "" {
			existing = index.byPK[pk]
		}
		decision := im.resolver.Resolve(mode, def, existing, incoming, userID, storeID)
		if decision.Action == ActionSkip {
			counts.Skipped++
			continue
		}

		saved, err := table.InsertOrUpdate(ctx, decision.Record)
		if err == nil && !saved {
			err = fmt.Errorf("record rejected by store")
		}
		if err != nil {
			counts.Failed++
			im.logger.LogRowFailure(def.Sheet, rowNumber, appErrors.NewRowPersistError(def.Sheet, rowNumber, err))
			continue
		}

		counts.Added++
		index.add(key, pk, decision.Record)
	}
	return nil
}

func (im *Importer) bindColumns(def *entity.Definition, headers schema.HeaderMap, summary *ImportSummary) []columnBinding {
	bindings := make([]columnBinding, 0, len(def.Columns))
	for _, c := range def.Columns {
		idx := im.registry.ColumnIndex(headers, c.Name, def.Position(c.Name))
		if idx < 0 {
			missing := appErrors.NewMissingColumnError(def.Sheet, c.Name)
			im.logger.WithField("sheet", def.Sheet).Debug(missing.Error())
			summary.warn(fmt.Sprintf("%s.%s not in workbook, using default", def.Sheet, c.Name))
		}
		bindings = append(bindings, columnBinding{column: c, index: idx})
	}
	return bindings
}

// recordIndex finds local records by natural key or by primary key
type recordIndex struct {
	byKey map[string]entity.Record
	byPK  map[string]entity.Record
}

func (ix recordIndex) add(key, pk string, r entity.Record) {
	if key != "" {
		ix.byKey[key] = r
	}
	if pk != "" {
		ix.byPK[pk] = r
	}
}

func primaryKey(def *entity.Definition, r entity.Record) string {
	return strings.TrimSpace(r.String(def.PrimaryKey()))
}

func (im *Importer) existingIndex(ctx context.Context, def *entity.Definition, table dataaccess.Table) (recordIndex, error) {
	records, err := table.GetAll(ctx)
	if err != nil {
		return recordIndex{}, err
	}
	index := recordIndex{
		byKey: make(map[string]entity.Record, len(records)),
		byPK:  make(map[string]entity.Record, len(records)),
	}
	for _, r := range records {
		key, _ := def.Key(r)
		index.add(key, primaryKey(def, r), r)
	}
	return index, nil
}

// parseRow coerces one sheet row into a typed record. A column absent from
// the sheet takes its zero value; an empty cell in a present column goes
// through the normal converters.
func (im *Importer) parseRow(bindings []columnBinding, row []any) (entity.Record, error) {
	r := make(entity.Record, len(bindings))
	for _, b := range bindings {
		if b.index < 0 {
			r[b.column.Name] = entity.ZeroValue(b.column.Kind)
			continue
		}

		var cell any
		if b.index < len(row) {
			cell = row[b.index]
		}

		switch b.column.Kind {
		case entity.KindInt:
			v, err := workbook.ToInt(cell)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", b.column.Name, err)
			}
			r[b.column.Name] = v
		case entity.KindFloat:
			v, err := workbook.ToFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", b.column.Name, err)
			}
			r[b.column.Name] = v
		case entity.KindBool:
			r[b.column.Name] = workbook.ToBool(cell)
		case entity.KindDate:
			r[b.column.Name] = workbook.ToDate(cell, im.now)
		default:
			r[b.column.Name] = workbook.ToString(cell)
		}
	}
	return r, nil
}

func isBlankRow(row []any) bool {
	for _, v := range row {
		if workbook.ToString(v) != "" {
			return false
		}
	}
	return true
}
