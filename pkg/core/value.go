package core

import (
	"strconv"
	"time"
)

// ValueKind identifies which member of the Value union is set.
type ValueKind int

// ValueKind constants.
const (
	KindString ValueKind = iota
	KindNumber
	KindTimestamp
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Value is a typed table cell: a string, a number or a timestamp.
// The zero Value is the empty string.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	ts   time.Time
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// NumberValue returns a numeric Value.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// TimestampValue returns a timestamp Value.
func TimestampValue(t time.Time) Value {
	return Value{kind: KindTimestamp, ts: t}
}

// Kind reports which member of the union is set.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string member. Only meaningful for KindString.
func (v Value) Str() string { return v.str }

// Num returns the numeric member. Only meaningful for KindNumber.
func (v Value) Num() float64 { return v.num }

// Time returns the timestamp member. Only meaningful for KindTimestamp.
func (v Value) Time() time.Time { return v.ts }

// Any returns the underlying Go value (string, float64 or time.Time).
func (v Value) Any() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindTimestamp:
		return v.ts
	default:
		return v.str
	}
}

// String formats the value for display and for Markdown output.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindTimestamp:
		return v.ts.Format(time.RFC3339)
	default:
		return v.str
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindTimestamp:
		return v.ts.Equal(o.ts)
	default:
		return v.str == o.str
	}
}
