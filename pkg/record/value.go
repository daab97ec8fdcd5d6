// Package record converts raw attribute maps into typed records under a schema.
package record

import (
	"math"
	"strconv"
	"time"

	"github.com/ajitpratap0/tabulate/pkg/schema"
)

// RawRecord maps attribute names to raw string values. A missing key is an
// absent attribute. Raw records are never mutated.
type RawRecord map[string]string

// Value is a coerced attribute value tagged with its kind. Dates hold whole
// seconds since the epoch in Float so they compare and sort numerically.
type Value struct {
	Kind  schema.AttributeKind
	Null  bool
	Int   int64
	Float float64
	Str   string
}

// IntValue returns an Integer value
func IntValue(v int64) Value {
	return Value{Kind: schema.KindInteger, Int: v}
}

// FloatValue returns a Float value
func FloatValue(v float64) Value {
	return Value{Kind: schema.KindFloat, Float: v}
}

// DateValue returns a Date value from seconds since the epoch
func DateValue(seconds float64) Value {
	return Value{Kind: schema.KindDate, Float: seconds}
}

// TimeValue returns a Date value, truncating t to whole seconds
func TimeValue(t time.Time) Value {
	return DateValue(float64(t.Unix()))
}

// TextValue returns a Text value
func TextValue(s string) Value {
	return Value{Kind: schema.KindText, Str: s}
}

// NullText returns an absent Text value
func NullText() Value {
	return Value{Kind: schema.KindText, Null: true}
}

// MarkupValue returns a MarkupText value
func MarkupValue(s string) Value {
	return Value{Kind: schema.KindMarkupText, Str: s}
}

// Zero returns the value substituted for an absent attribute of the given kind
func Zero(kind schema.AttributeKind) Value {
	switch kind {
	case schema.KindInteger:
		return IntValue(0)
	case schema.KindFloat:
		return FloatValue(0)
	case schema.KindDate:
		return DateValue(0)
	case schema.KindMarkupText:
		return MarkupValue("")
	case schema.KindText:
		return NullText()
	}
	return Value{Kind: kind, Null: true}
}

// Number returns the numeric view of the value. ok is false for text kinds and nulls.
func (v Value) Number() (n float64, ok bool) {
	if v.Null {
		return 0, false
	}
	switch v.Kind {
	case schema.KindInteger:
		return float64(v.Int), true
	case schema.KindFloat, schema.KindDate:
		return v.Float, true
	}
	return 0, false
}

// Missing reports whether the value counts as missing in aggregations:
// nulls and NaN floats.
func (v Value) Missing() bool {
	if v.Null {
		return true
	}
	if v.Kind == schema.KindFloat || v.Kind == schema.KindDate {
		return math.IsNaN(v.Float)
	}
	return false
}

// Text returns the string content of a text value
func (v Value) Text() (string, bool) {
	if v.Null || !v.Kind.IsText() {
		return "", false
	}
	return v.Str, true
}

// Time returns a Date value as a UTC time
func (v Value) Time() time.Time {
	sec, frac := math.Modf(v.Float)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Equal reports exact equality, including kind and nullness
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Null != o.Null {
		return false
	}
	if v.Null {
		return true
	}
	switch v.Kind {
	case schema.KindInteger:
		return v.Int == o.Int
	case schema.KindFloat, schema.KindDate:
		return v.Float == o.Float
	default:
		return v.Str == o.Str
	}
}

// Compare orders two non-null values of the same kind. Text compares bytewise.
func (v Value) Compare(o Value) int {
	switch v.Kind {
	case schema.KindInteger:
		switch {
		case v.Int < o.Int:
			return -1
		case v.Int > o.Int:
			return 1
		}
		return 0
	case schema.KindFloat, schema.KindDate:
		switch {
		case v.Float < o.Float:
			return -1
		case v.Float > o.Float:
			return 1
		}
		return 0
	default:
		switch {
		case v.Str < o.Str:
			return -1
		case v.Str > o.Str:
			return 1
		}
		return 0
	}
}

// String formats the value for display
func (v Value) String() string {
	if v.Null {
		return ""
	}
	switch v.Kind {
	case schema.KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case schema.KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case schema.KindDate:
		return v.Time().Format("2006-01-02 15:04:05")
	default:
		return v.Str
	}
}
