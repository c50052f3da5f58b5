// Package entity describes the flat tables that take part in backup and restore.
package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the scalar type of a column
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDate
)

// String returns the kind name used in schema listings
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// Column describes one field of an entity.
// Since is the schema version that introduced the column. Optional columns are
// never required by validation.
type Column struct {
	Name     string
	Kind     Kind
	Since    int
	Optional bool
}

// Protection names the single record REPLACE mode must never overwrite
type Protection int

const (
	ProtectNone Protection = iota
	ProtectUser
	ProtectStore
)

func (p Protection) String() string {
	switch p {
	case ProtectUser:
		return "current-user"
	case ProtectStore:
		return "current-store"
	default:
		return "none"
	}
}

const keySeparator = "\x1f"

// Definition is the static description of one entity table
type Definition struct {
	Name  string
	Sheet string
	Table string
	// Since is the schema version in which the whole sheet first appeared
	Since   int
	Columns []Column

	// KeyFields form the natural key used for MERGE deduplication.
	// FoldFields are compared trimmed and case-insensitively.
	KeyFields  []string
	FoldFields []string

	// ScopeFields are rewritten to the operating identity on import
	ScopeFields []string

	Protected      Protection
	ProtectedField string
}

// Headers returns the header row emitted by the given schema version
func (d *Definition) Headers(version int) []string {
	headers := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c.Since <= version {
			headers = append(headers, c.Name)
		}
	}
	return headers
}

// CurrentHeaders returns the header row written by this build
func (d *Definition) CurrentHeaders() []string {
	return d.Headers(CurrentSchemaVersion)
}

// Column looks up a column by name, case-insensitively
func (d *Definition) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Position returns the positional index of a column in headerless sheets, or -1
func (d *Definition) Position(name string) int {
	for i, c := range d.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// PrimaryKey is the storage identity column; it is always the first column
func (d *Definition) PrimaryKey() string {
	return d.Columns[0].Name
}

// HasScope reports whether the entity carries user/store scoping fields
func (d *Definition) HasScope() bool {
	return len(d.ScopeFields) > 0
}

// Key computes the natural key of a record. Every key component must be non-empty.
func (d *Definition) Key(r Record) (string, error) {
	parts := make([]string, 0, len(d.KeyFields))
	for _, field := range d.KeyFields {
		v := strings.TrimSpace(r.String(field))
		if v == "" {
			return "", fmt.Errorf("%s: key field %q is empty", d.Sheet, field)
		}
		if d.folds(field) {
			v = strings.ToLower(v)
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, keySeparator), nil
}

func (d *Definition) folds(field string) bool {
	for _, f := range d.FoldFields {
		if f == field {
			return true
		}
	}
	return false
}

// WithScope returns a copy of r with the scope fields set to the given identity
func (d *Definition) WithScope(r Record, userID, storeID string) Record {
	out := r.Clone()
	for _, field := range d.ScopeFields {
		switch field {
		case FieldUserID:
			out[field] = userID
		case FieldStoreID:
			out[field] = storeID
		}
	}
	return out
}

// ProtectedKey returns the value compared against the operating identity in REPLACE mode
func (d *Definition) ProtectedKey(r Record) string {
	if d.Protected == ProtectNone || d.ProtectedField == "" {
		return ""
	}
	return strings.TrimSpace(r.String(d.ProtectedField))
}

// ZeroRecord returns a record with every column set to its type's zero value
func (d *Definition) ZeroRecord() Record {
	r := make(Record, len(d.Columns))
	for _, c := range d.Columns {
		r[c.Name] = ZeroValue(c.Kind)
	}
	return r
}

// ZeroValue is the default a missing column takes on import
func ZeroValue(k Kind) any {
	switch k {
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindBool:
		return false
	case KindDate:
		return time.Time{}
	default:
		return ""
	}
}

// Record is one flat row keyed by column name
type Record map[string]any

// Clone returns a shallow copy
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String renders a field as text
func (r Record) String(name string) string {
	switch v := r[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(v)
	}
}

// Int returns a numeric field as int64
func (r Record) Int(name string) int64 {
	switch v := r[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float returns a numeric field as float64
func (r Record) Float(name string) float64 {
	switch v := r[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Bool returns a boolean field
func (r Record) Bool(name string) bool {
	v, _ := r[name].(bool)
	return v
}

// Time returns a date field
func (r Record) Time(name string) time.Time {
	v, _ := r[name].(time.Time)
	return v
}
