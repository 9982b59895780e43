package core

// convert.go types raw CSV cells and converts values to PostgreSQL types.
//
// Source exports are not uniform:
//   - Timestamps arrive as ISO dates, ISO date-times with or without zone,
//     and US style dates
//   - Integer columns exported from spreadsheets can carry a ".0" suffix
//   - Spreadsheet formula prefixes (="value") show up in hand-edited files
//
// All ToPg* functions return pgtype values with Valid=false for null or
// mismatched input, letting the database store NULL.

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a plain numeric literal.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Timestamp layouts, most specific first. time.Parse accepts fractional
// seconds after the seconds field even when the layout omits them.
var (
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05-0700",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006/01/02 15:04:05",
		"01/02/2006 15:04:05",
		"1/2/2006 15:04",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06",
	}
)

// ParseTimestamp parses s using the known layouts.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseCell types a raw CSV cell according to the column type.
// Empty cells become null; cells that do not parse are kept as text.
func ParseCell(raw string, ft FieldType) Value {
	s := CleanCell(raw)
	if s == "" {
		return Null()
	}

	switch ft {
	case FieldInt:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i)
		}
		if numericRegex.MatchString(s) {
			if d, err := decimal.NewFromString(s); err == nil {
				if d.IsInteger() {
					return Int(d.IntPart())
				}
				return Dec(d)
			}
		}
	case FieldDecimal:
		if numericRegex.MatchString(s) {
			if d, err := decimal.NewFromString(s); err == nil {
				return Dec(d)
			}
		}
	case FieldTimestamp:
		if t, ok := ParseTimestamp(s); ok {
			return Timestamp(t)
		}
	}

	return Text(s)
}

// ToPgText converts a value to pgtype.Text.
func ToPgText(v Value) pgtype.Text {
	if v.IsNull() {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: v.String(), Valid: true}
}

// ToPgInt8 converts a value to pgtype.Int8.
// Returns invalid if the value is null or not integral.
func ToPgInt8(v Value) pgtype.Int8 {
	i, ok := v.AsInt()
	if !ok {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: i, Valid: true}
}

// ToPgNumeric converts a value to pgtype.Numeric.
func ToPgNumeric(v Value) pgtype.Numeric {
	d, ok := v.AsDecimal()
	if !ok {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToPgTimestamptz converts a value to pgtype.Timestamptz.
func ToPgTimestamptz(v Value) pgtype.Timestamptz {
	t, ok := v.AsTime()
	if !ok {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching. The first occurrence
// of a repeated header wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes spreadsheet formula prefix (="...")
// - Removes surrounding double quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}

	return strings.TrimSpace(s)
}
