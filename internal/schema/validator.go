package schema

import (
	"fmt"
	"strings"

	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/workbook"
)

// Gap is a required header an older workbook lacks. Gaps are accepted and
// the column imports with its zero value.
type Gap struct {
	Sheet  string
	Header string
}

func (g Gap) String() string {
	return fmt.Sprintf("%s.%s", g.Sheet, g.Header)
}

// ValidationReport summarizes a structural check
type ValidationReport struct {
	DetectedVersion  int
	ResolvedVersion  int
	MetadataPresent  bool
	MissingSheets    []string
	HeaderlessSheets []string
	UnknownSheets    []string
	Gaps             []Gap
	// Violations are missing headers that make the workbook unusable
	Violations []Gap
}

// IsValid reports whether the workbook may be imported
func (r *ValidationReport) IsValid() bool {
	return len(r.Violations) == 0
}

// Warnings renders the soft findings for logging
func (r *ValidationReport) Warnings() []string {
	var out []string
	for _, s := range r.MissingSheets {
		out = append(out, fmt.Sprintf("sheet %s is missing and will be skipped", s))
	}
	for _, g := range r.Gaps {
		out = append(out, fmt.Sprintf("header %s missing in schema v%d export, defaulting values", g, r.DetectedVersion))
	}
	for _, s := range r.UnknownSheets {
		out = append(out, fmt.Sprintf("sheet %s is not a known entity and will be ignored", s))
	}
	return out
}

// ValidateStructure checks a workbook against the registry before any write.
// Missing required headers are fatal only when the workbook claims the
// current schema version; older workbooks record them as gaps.
func ValidateStructure(doc *workbook.Document, reg *VersionedRegistry) (*ValidationReport, error) {
	if doc == nil {
		return nil, appErrors.NewStructuralError("workbook is empty", nil)
	}
	meta := doc.Metadata
	if meta == nil {
		meta = workbook.NewDocument(nil).Metadata
	}

	report := &ValidationReport{
		DetectedVersion: meta.SchemaVersion,
		ResolvedVersion: reg.ResolveVersion(meta.SchemaVersion),
		MetadataPresent: meta.Present,
	}
	strict := meta.SchemaVersion >= reg.Current()

	if meta.SchemaVersion > reg.Current() {
		return report, appErrors.NewStructuralError(
			fmt.Sprintf("workbook schema version %d is newer than supported version %d", meta.SchemaVersion, reg.Current()), nil).
			WithContext("schema_version", meta.SchemaVersion)
	}

	required := reg.DetermineRequiredHeaders(meta.SchemaVersion, meta)

	for _, def := range reg.Definitions() {
		headers, needed := required[def.Sheet]
		if !needed {
			continue
		}

		sheet, ok := doc.Sheet(def.Sheet)
		if !ok {
			report.MissingSheets = append(report.MissingSheets, def.Sheet)
			continue
		}

		if len(sheet.Rows) == 0 {
			for _, h := range headers {
				report.record(strict, Gap{Sheet: def.Sheet, Header: h})
			}
			continue
		}

		headerMap := BuildHeaderMap(def, sheet.Header())
		if headerMap.IsHeaderless() {
			report.HeaderlessSheets = append(report.HeaderlessSheets, def.Sheet)
			width := len(sheet.Rows[0])
			for _, h := range headers {
				if def.Position(h) >= width {
					report.record(strict, Gap{Sheet: def.Sheet, Header: h})
				}
			}
			continue
		}

		if err := sheet.Validate(); err != nil {
			return report, appErrors.NewStructuralError(err.Error(), err).
				WithContext("sheet", def.Sheet)
		}

		for _, h := range headers {
			if _, ok := headerMap.Lookup(h); !ok {
				report.record(strict, Gap{Sheet: def.Sheet, Header: h})
			}
		}
	}

	for _, sheet := range doc.Sheets {
		if _, known := reg.Definition(sheet.Name); !known {
			report.UnknownSheets = append(report.UnknownSheets, sheet.Name)
		}
	}

	if !report.IsValid() {
		missing := make([]string, len(report.Violations))
		for i, v := range report.Violations {
			missing[i] = v.String()
		}
		return report, appErrors.NewStructuralError(
			"missing required headers: "+strings.Join(missing, ", "), nil).
			WithContext("schema_version", meta.SchemaVersion).
			WithContext("missing_headers", missing)
	}

	return report, nil
}

func (r *ValidationReport) record(strict bool, gap Gap) {
	if strict {
		r.Violations = append(r.Violations, gap)
		return
	}
	r.Gaps = append(r.Gaps, gap)
}
