package transfer

import (
	"strings"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/entity"
)

// EntityCounts are the per-entity import counters
type EntityCounts struct {
	Sheet   string `json:"sheet" yaml:"sheet"`
	Added   int    `json:"added" yaml:"added"`
	Skipped int    `json:"skipped" yaml:"skipped"`
	Failed  int    `json:"failed" yaml:"failed"`
}

// ImportSummary reports what an import did. It is returned once per import
// and never persisted.
type ImportSummary struct {
	Mode          RestoreMode     `json:"mode" yaml:"mode"`
	SchemaVersion int             `json:"schema_version" yaml:"schema_version"`
	Entities      []*EntityCounts `json:"entities" yaml:"entities"`
	MissingSheets []string        `json:"missing_sheets,omitempty" yaml:"missing_sheets,omitempty"`
	Warnings      []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func newImportSummary(mode RestoreMode, version int) *ImportSummary {
	return &ImportSummary{Mode: mode, SchemaVersion: version}
}

func (s *ImportSummary) counts(sheet string) *EntityCounts {
	for _, c := range s.Entities {
		if c.Sheet == sheet {
			return c
		}
	}
	c := &EntityCounts{Sheet: sheet}
	s.Entities = append(s.Entities, c)
	return c
}

// Counts returns the counters for an entity by sheet, table or short name
func (s *ImportSummary) Counts(name string) EntityCounts {
	sheet := name
	if def, ok := entity.Lookup(name); ok {
		sheet = def.Sheet
	}
	for _, c := range s.Entities {
		if strings.EqualFold(c.Sheet, sheet) {
			return *c
		}
	}
	return EntityCounts{Sheet: sheet}
}

// TotalAdded sums Added over all entities
func (s *ImportSummary) TotalAdded() int {
	total := 0
	for _, c := range s.Entities {
		total += c.Added
	}
	return total
}

// TotalSkipped sums Skipped over all entities
func (s *ImportSummary) TotalSkipped() int {
	total := 0
	for _, c := range s.Entities {
		total += c.Skipped
	}
	return total
}

// TotalFailed sums Failed over all entities
func (s *ImportSummary) TotalFailed() int {
	total := 0
	for _, c := range s.Entities {
		total += c.Failed
	}
	return total
}

// IsComplete is true when nothing failed and no sheet was missing
func (s *ImportSummary) IsComplete() bool {
	return s.TotalFailed() == 0 && len(s.MissingSheets) == 0
}

func (s *ImportSummary) warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}
