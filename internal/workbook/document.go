// Package workbook holds the in-memory form of a backup workbook and its
// .xlsx codec.
package workbook

import (
	"fmt"
	"strings"
)

// MetadataSheet is the reserved sheet holding schema metadata
const MetadataSheet = "Metadata"

// DefaultSchemaVersion is assumed when a workbook carries no Metadata sheet
const DefaultSchemaVersion = 1

// Metadata describes how a workbook was produced
type Metadata struct {
	SchemaVersion int
	ExportedAt    string
	Headers       map[string][]string
	// Present is false when the workbook had no Metadata sheet
	Present bool
}

// NewMetadata returns metadata for a fresh export
func NewMetadata(version int, exportedAt string) *Metadata {
	return &Metadata{
		SchemaVersion: version,
		ExportedAt:    exportedAt,
		Headers:       make(map[string][]string),
		Present:       true,
	}
}

// RecordedHeaders returns the header list the exporter wrote for a sheet
func (m *Metadata) RecordedHeaders(sheet string) ([]string, bool) {
	if m == nil || m.Headers == nil {
		return nil, false
	}
	if h, ok := m.Headers[sheet]; ok {
		return h, true
	}
	for name, h := range m.Headers {
		if strings.EqualFold(name, sheet) {
			return h, true
		}
	}
	return nil, false
}

// Sheet is one worksheet. Rows[0] is the header row when the sheet has one.
type Sheet struct {
	Name string
	Rows [][]any
}

// Header returns row 0 rendered as strings
func (s *Sheet) Header() []string {
	if len(s.Rows) == 0 {
		return nil
	}
	out := make([]string, len(s.Rows[0]))
	for i, v := range s.Rows[0] {
		out[i] = ToString(v)
	}
	return out
}

// AppendRow adds a record row
func (s *Sheet) AppendRow(values []any) {
	s.Rows = append(s.Rows, values)
}

// Validate checks that header names are non-empty and unique ignoring case
func (s *Sheet) Validate() error {
	seen := make(map[string]bool)
	for i, h := range s.Header() {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "" {
			return fmt.Errorf("sheet %s: empty header at column %d", s.Name, i+1)
		}
		if seen[key] {
			return fmt.Errorf("sheet %s: duplicate header %q", s.Name, h)
		}
		seen[key] = true
	}
	return nil
}

// Document is an ordered set of sheets plus metadata
type Document struct {
	Sheets   []*Sheet
	Metadata *Metadata
}

// NewDocument creates an empty document with the given metadata
func NewDocument(meta *Metadata) *Document {
	if meta == nil {
		meta = &Metadata{SchemaVersion: DefaultSchemaVersion, Headers: make(map[string][]string)}
	}
	return &Document{Metadata: meta}
}

// AddSheet appends a sheet whose first row is header. The header is recorded
// in the metadata.
func (d *Document) AddSheet(name string, header []string) (*Sheet, error) {
	if strings.EqualFold(name, MetadataSheet) {
		return nil, fmt.Errorf("sheet name %q is reserved", name)
	}
	if _, exists := d.Sheet(name); exists {
		return nil, fmt.Errorf("sheet %q already exists", name)
	}

	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	sheet := &Sheet{Name: name, Rows: [][]any{row}}
	if err := sheet.Validate(); err != nil {
		return nil, err
	}

	d.Sheets = append(d.Sheets, sheet)
	if d.Metadata.Headers == nil {
		d.Metadata.Headers = make(map[string][]string)
	}
	d.Metadata.Headers[name] = append([]string(nil), header...)
	return sheet, nil
}

// Sheet finds a sheet by exact name, then ignoring case
func (d *Document) Sheet(name string) (*Sheet, bool) {
	for _, s := range d.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	for _, s := range d.Sheets {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return nil, false
}

// SheetNames lists the data sheets in order
func (d *Document) SheetNames() []string {
	names := make([]string, len(d.Sheets))
	for i, s := range d.Sheets {
		names[i] = s.Name
	}
	return names
}

// RowCount returns the total number of record rows across all sheets
func (d *Document) RowCount() int {
	total := 0
	for _, s := range d.Sheets {
		if len(s.Rows) > 1 {
			total += len(s.Rows) - 1
		}
	}
	return total
}
