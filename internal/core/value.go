package core

// value.go defines the scalar cell type shared by every table.
//
// A Value is one of null, integer, decimal, text or timestamp. Cells are typed
// by the entity schema when a file is read; cells that do not parse as their
// declared type are kept as text so later stages can decide what to do with
// them (identity validation drops uncastable ids, metrics treat unparseable
// timestamps as null).

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindDecimal
	KindText
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindText:
		return "text"
	case KindTime:
		return "timestamp"
	default:
		return "null"
	}
}

// Value is an immutable scalar cell. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	d    decimal.Decimal
	s    string
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Dec returns a decimal value.
func Dec(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Timestamp returns a timestamp value.
func Timestamp(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Kind reports the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt converts v to an integer. Decimals must be integral and text must
// parse as an integral number.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindDecimal:
		if !v.d.IsInteger() {
			return 0, false
		}
		return v.d.IntPart(), true
	case KindText:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		d, err := decimal.NewFromString(s)
		if err != nil || !d.IsInteger() {
			return 0, false
		}
		return d.IntPart(), true
	}
	return 0, false
}

// AsDecimal converts v to a decimal.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindInt:
		return decimal.NewFromInt(v.i), true
	case KindDecimal:
		return v.d, true
	case KindText:
		d, err := decimal.NewFromString(strings.TrimSpace(v.s))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// AsTime converts v to a timestamp. Text is parsed with the same layouts
// used when reading source files.
func (v Value) AsTime() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.t, true
	case KindText:
		return ParseTimestamp(v.s)
	}
	return time.Time{}, false
}

// String renders v for reports and logs. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDecimal:
		return v.d.String()
	case KindText:
		return v.s
	case KindTime:
		if v.t.Nanosecond() == 0 {
			return v.t.Format("2006-01-02 15:04:05")
		}
		return v.t.Format("2006-01-02 15:04:05.999999")
	}
	return ""
}

// Key returns a canonical form used for equality, grouping and set membership.
// Integral decimals share the key of the equivalent integer so "7", 7 and 7.0
// compare equal.
func (v Value) Key() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDecimal:
		if v.d.IsInteger() {
			return strconv.FormatInt(v.d.IntPart(), 10)
		}
		return v.d.String()
	case KindText:
		return v.s
	case KindTime:
		return v.t.UTC().Format(time.RFC3339Nano)
	}
	return "\x00null"
}

// Any returns v as a database/sql friendly value.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindDecimal:
		return v.d.String()
	case KindText:
		return v.s
	case KindTime:
		return v.t
	}
	return nil
}

// compareCreated orders values for the created_at sort: timestamps first in
// chronological order, then unparseable text in lexical order, nulls last.
func compareCreated(a, b Value) int {
	ra, rb := createdRank(a), createdRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		ta, _ := a.AsTime()
		tb, _ := b.AsTime()
		return ta.Compare(tb)
	case 1:
		return strings.Compare(a.String(), b.String())
	}
	return 0
}

func createdRank(v Value) int {
	if v.IsNull() {
		return 2
	}
	if _, ok := v.AsTime(); ok {
		return 0
	}
	return 1
}
