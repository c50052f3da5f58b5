package workbook

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateLayout is the single pattern used for dates on write
const DateLayout = "2006-01-02 15:04:05"

var secondaryDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ToString renders a cell value as trimmed text
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(DateLayout)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// ToFloat parses a numeric cell. Thousands separators are stripped first and
// an empty cell is zero.
func ToFloat(v any) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return val, nil
	case int64:
		return float64(val), nil
	case int:
		return float64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	}

	s := strings.ReplaceAll(ToString(v), ",", "")
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", ToString(v))
	}
	return f, nil
}

// ToInt parses an integer cell, accepting integral decimals such as "12.0"
func ToInt(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	}

	s := strings.ReplaceAll(ToString(v), ",", "")
	if s == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := ToFloat(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int64(f), nil
}

// ToBool accepts native booleans, "true"/"false" and numbers (non-zero is true)
func ToBool(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case int64:
		return val != 0
	case int:
		return val != 0
	}

	s := strings.ToLower(ToString(v))
	switch s {
	case "true", "yes":
		return true
	case "false", "no", "":
		return false
	}
	if f, err := ToFloat(s); err == nil {
		return f != 0
	}
	return false
}

// ToDate parses a date cell with the canonical pattern. Anything unparsable
// yields now().
func ToDate(v any, now func() time.Time) time.Time {
	if now == nil {
		now = time.Now
	}
	switch val := v.(type) {
	case time.Time:
		return val
	case float64:
		if t, err := excelize.ExcelDateToTime(val, false); err == nil {
			return t
		}
		return now()
	}

	s := ToString(v)
	if s == "" {
		return now()
	}
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return t
	}
	for _, layout := range secondaryDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	// spreadsheet edits may turn the date into a serial number
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		if t, err := excelize.ExcelDateToTime(f, false); err == nil {
			return t
		}
	}
	return now()
}

// FormatCell converts a record value into a sheet-native scalar
func FormatCell(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(DateLayout)
	case int:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}
