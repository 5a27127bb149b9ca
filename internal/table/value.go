package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the dynamic type of a cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// DateLayout is the canonical rendering of dates without a time component.
const DateLayout = "2006-01-02"

// Value is a single cell: a string, number, date or null. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	date time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value. NaN is stored as null.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Date returns a date value normalized to UTC.
func Date(t time.Time) Value { return Value{kind: KindDate, date: t.UTC()} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Time returns the date payload.
func (v Value) Time() (time.Time, bool) { return v.date, v.kind == KindDate }

// Key encodes v so that two values share a key iff they are equal. Null has its
// own key, distinct from every concrete value.
func (v Value) Key() string {
	switch v.kind {
	case KindString:
		return "s:" + v.str
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindDate:
		return "d:" + v.date.Format(time.RFC3339Nano)
	default:
		return "\x00"
	}
}

// String renders v for display; null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		if v.date.Equal(v.date.Truncate(24 * time.Hour)) {
			return v.date.Format(DateLayout)
		}
		return v.date.Format(time.RFC3339)
	default:
		return ""
	}
}

// Equal reports whether a and b hold the same kind and payload.
func Equal(a, b Value) bool { return a.Key() == b.Key() }

// Compare orders values: concrete values by kind then payload, nulls last.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind == KindNull {
			return 1
		}
		if b.kind == KindNull {
			return -1
		}
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindString:
		return strings.Compare(a.str, b.str)
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case KindDate:
		return a.date.Compare(b.date)
	default:
		return 0
	}
}

// ParseOptions controls how raw text cells are typed.
type ParseOptions struct {
	// DecimalSeparator defaults to '.'.
	DecimalSeparator rune
	// ThousandsSeparator is stripped before parsing when set.
	ThousandsSeparator rune
}

// ParseCell types a raw text cell for column col. Empty cells are null, gid
// and administrative columns stay strings, date columns must parse as dates,
// and everything else is numeric when it parses as a number.
func ParseCell(col, raw string, opt ParseOptions) Value {
	s := strings.TrimSpace(raw)
	if isMissing(s) {
		return Null()
	}
	switch {
	case col == "gid" || IsAdminColumn(col):
		return String(s)
	case col == "date":
		if t, ok := ParseTime(s); ok {
			return Date(t)
		}
		return String(s)
	}
	if f, ok := ParseNumber(s, opt); ok {
		return Number(f)
	}
	return String(s)
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "na", "n/a", "nan", "null", "none":
		return true
	}
	return false
}

// ParseNumber parses s honoring the configured separators.
func ParseNumber(s string, opt ParseOptions) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseTime accepts the date layouts commonly found in exported datasets.
func ParseTime(s string) (time.Time, bool) {
	layouts := []string{
		DateLayout, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04",
		"2006-01-02T15:04:05", "2006/01/02", "02/01/2006",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
