package workbook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Extension is the only accepted workbook file extension
const Extension = ".xlsx"

const headersKeyPrefix = "headers:"

// HasWorkbookExtension reports whether path names an .xlsx file
func HasWorkbookExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// Write encodes the document as an .xlsx workbook
func Write(doc *Document, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	for i, sheet := range doc.Sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet.Name, err)
		}

		if err := writeRows(f, sheet.Name, sheet.Rows); err != nil {
			return err
		}
	}

	metaRows := metadataRows(doc)
	if len(doc.Sheets) == 0 {
		if err := f.SetSheetName(defaultSheet, MetadataSheet); err != nil {
			return fmt.Errorf("failed to name metadata sheet: %w", err)
		}
	} else if _, err := f.NewSheet(MetadataSheet); err != nil {
		return fmt.Errorf("failed to create metadata sheet: %w", err)
	}
	if err := writeRows(f, MetadataSheet, metaRows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to encode workbook: %w", err)
	}
	return nil
}

// Save writes the document to path, creating parent directories
func Save(doc *Document, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook file %s: %w", path, err)
	}
	if err := Write(doc, file); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}

// Read decodes an .xlsx workbook. A missing Metadata sheet yields metadata
// with DefaultSchemaVersion and Present=false.
func Read(r io.Reader) (*Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	doc := NewDocument(nil)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}

		if strings.EqualFold(name, MetadataSheet) {
			doc.Metadata = parseMetadata(rows)
			continue
		}

		sheet := &Sheet{Name: name, Rows: make([][]any, len(rows))}
		for i, row := range rows {
			values := make([]any, len(row))
			for j, cell := range row {
				values[j] = cell
			}
			sheet.Rows[i] = values
		}
		doc.Sheets = append(doc.Sheets, sheet)
	}
	return doc, nil
}

// Open reads a workbook from disk
func Open(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook file %s: %w", path, err)
	}
	defer file.Close()
	return Read(file)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = FormatCell(v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of sheet %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

func metadataRows(doc *Document) [][]any {
	meta := doc.Metadata
	if meta == nil {
		meta = NewMetadata(DefaultSchemaVersion, "")
	}

	rows := [][]any{
		{"schemaVersion", int64(meta.SchemaVersion)},
		{"exportedAt", meta.ExportedAt},
	}
	// keep sheet order stable
	for _, sheet := range doc.Sheets {
		if headers, ok := meta.Headers[sheet.Name]; ok {
			rows = append(rows, []any{headersKeyPrefix + sheet.Name, strings.Join(headers, "|")})
		}
	}
	return rows
}

func parseMetadata(rows [][]string) *Metadata {
	meta := &Metadata{
		SchemaVersion: DefaultSchemaVersion,
		Headers:       make(map[string][]string),
		Present:       true,
	}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(row[0])
		value := ""
		if len(row) > 1 {
			value = strings.TrimSpace(row[1])
		}

		switch {
		case strings.EqualFold(key, "schemaVersion"):
			if v, err := ToInt(value); err == nil && v > 0 {
				meta.SchemaVersion = int(v)
			}
		case strings.EqualFold(key, "exportedAt"):
			meta.ExportedAt = value
		case strings.HasPrefix(strings.ToLower(key), headersKeyPrefix):
			sheet := key[len(headersKeyPrefix):]
			var headers []string
			for _, h := range strings.Split(value, "|") {
				if h = strings.TrimSpace(h); h != "" {
					headers = append(headers, h)
				}
			}
			meta.Headers[sheet] = headers
		}
	}
	return meta
}
