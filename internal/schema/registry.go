// Package schema knows which headers each workbook sheet must carry for every
// schema version, and validates workbooks before they are imported.
package schema

import (
	"sort"
	"strings"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/entity"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/workbook"
)

// Registry resolves required headers and column positions per schema version
type Registry interface {
	RequiredHeaders(version int, sheet string) []string
	ColumnIndex(headers HeaderMap, name string, fallback int) int
}

// HeaderMap maps a lowercased header name to its column index.
// An empty map marks a legacy headerless sheet.
type HeaderMap map[string]int

// Lookup returns the column index of name, ignoring case
func (h HeaderMap) Lookup(name string) (int, bool) {
	idx, ok := h[strings.ToLower(strings.TrimSpace(name))]
	return idx, ok
}

// IsHeaderless reports whether positional fallback applies
func (h HeaderMap) IsHeaderless() bool {
	return len(h) == 0
}

// BuildHeaderMap indexes row 0 of a sheet. When the row contains none of the
// entity's known column names the sheet is treated as headerless and the
// returned map is empty.
func BuildHeaderMap(def *entity.Definition, row []string) HeaderMap {
	headers := make(HeaderMap, len(row))
	known := false
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		if _, exists := headers[name]; !exists {
			headers[name] = i
		}
		if _, ok := def.Column(name); ok {
			known = true
		}
	}
	if !known {
		return HeaderMap{}
	}
	return headers
}

// VersionedRegistry derives required headers from the entity catalogue.
// A column is required from its Since version onward unless it is optional.
type VersionedRegistry struct {
	defs     []*entity.Definition
	versions []int
	required map[int]map[string][]string
}

// NewRegistry builds a registry over defs for the given schema versions
func NewRegistry(defs []*entity.Definition, versions []int) *VersionedRegistry {
	sorted := append([]int(nil), versions...)
	sort.Ints(sorted)

	r := &VersionedRegistry{
		defs:     defs,
		versions: sorted,
		required: make(map[int]map[string][]string, len(sorted)),
	}
	for _, v := range sorted {
		sheets := make(map[string][]string)
		for _, def := range defs {
			if def.Since > v {
				continue
			}
			var headers []string
			for _, c := range def.Columns {
				if c.Since <= v && !c.Optional {
					headers = append(headers, c.Name)
				}
			}
			sheets[def.Sheet] = headers
		}
		r.required[v] = sheets
	}
	return r
}

// Default returns the registry for the built-in entity catalogue
func Default() *VersionedRegistry {
	return NewRegistry(entity.All(), entity.SchemaVersions)
}

// Versions lists the registered schema versions in ascending order
func (r *VersionedRegistry) Versions() []int {
	return append([]int(nil), r.versions...)
}

// Current is the newest registered version
func (r *VersionedRegistry) Current() int {
	if len(r.versions) == 0 {
		return workbook.DefaultSchemaVersion
	}
	return r.versions[len(r.versions)-1]
}

// ResolveVersion picks the greatest registered version not above detected.
// Versions older than every registered one resolve to the earliest.
func (r *VersionedRegistry) ResolveVersion(detected int) int {
	if len(r.versions) == 0 {
		return detected
	}
	resolved := r.versions[0]
	for _, v := range r.versions {
		if v <= detected {
			resolved = v
		}
	}
	return resolved
}

// Definition finds the entity behind a sheet name, ignoring case
func (r *VersionedRegistry) Definition(sheet string) (*entity.Definition, bool) {
	for _, def := range r.defs {
		if strings.EqualFold(def.Sheet, sheet) {
			return def, true
		}
	}
	return nil, false
}

// Definitions returns the entities known to the registry
func (r *VersionedRegistry) Definitions() []*entity.Definition {
	return append([]*entity.Definition(nil), r.defs...)
}

// RequiredHeaders returns the headers a sheet must carry at version
func (r *VersionedRegistry) RequiredHeaders(version int, sheet string) []string {
	sheets := r.required[r.ResolveVersion(version)]
	if headers, ok := sheets[sheet]; ok {
		return append([]string(nil), headers...)
	}
	for name, headers := range sheets {
		if strings.EqualFold(name, sheet) {
			return append([]string(nil), headers...)
		}
	}
	return nil
}

// DetermineRequiredHeaders selects the headers required for a workbook that
// reports the detected version, then drops every header the exporter did not
// record as emitted for that sheet.
func (r *VersionedRegistry) DetermineRequiredHeaders(detected int, meta *workbook.Metadata) map[string][]string {
	resolved := r.ResolveVersion(detected)
	out := make(map[string][]string, len(r.required[resolved]))

	for sheet, headers := range r.required[resolved] {
		var recorded []string
		ok := false
		if meta != nil && meta.Present {
			recorded, ok = meta.RecordedHeaders(sheet)
		}
		if !ok {
			out[sheet] = append([]string(nil), headers...)
			continue
		}

		emitted := make(map[string]bool, len(recorded))
		for _, h := range recorded {
			emitted[strings.ToLower(h)] = true
		}
		narrowed := make([]string, 0, len(headers))
		for _, h := range headers {
			if emitted[strings.ToLower(h)] {
				narrowed = append(narrowed, h)
			}
		}
		out[sheet] = narrowed
	}
	return out
}

// FallbackIndex is the positional index of a column in a headerless sheet
func (r *VersionedRegistry) FallbackIndex(sheet, column string) int {
	def, ok := r.Definition(sheet)
	if !ok {
		return -1
	}
	return def.Position(column)
}

// ColumnIndex resolves a column by header name first. Headerless sheets use
// the fallback position. A header map without the column yields -1.
func (r *VersionedRegistry) ColumnIndex(headers HeaderMap, name string, fallback int) int {
	if headers.IsHeaderless() {
		return fallback
	}
	if idx, ok := headers.Lookup(name); ok {
		return idx
	}
	return -1
}

// SheetSpec describes one sheet for schema listings
type SheetSpec struct {
	Sheet    string
	Table    string
	Since    int
	Required []string
	Optional []string
}

// Describe lists every sheet with its headers at the given version
func (r *VersionedRegistry) Describe(version int) []SheetSpec {
	resolved := r.ResolveVersion(version)
	var specs []SheetSpec
	for _, def := range r.defs {
		if def.Since > resolved {
			continue
		}
		spec := SheetSpec{Sheet: def.Sheet, Table: def.Table, Since: def.Since}
		for _, c := range def.Columns {
			if c.Since > resolved {
				continue
			}
			if c.Optional {
				spec.Optional = append(spec.Optional, c.Name)
			} else {
				spec.Required = append(spec.Required, c.Name)
			}
		}
		specs = append(specs, spec)
	}
	return specs
}
