package record

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/schema"
)

// dateLayouts are tried in order. Timestamps without an offset are UTC.
var dateLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Parser coerces raw records under a schema registry
type Parser struct {
	schema *schema.Registry
}

// NewParser creates a parser bound to reg
func NewParser(reg *schema.Registry) *Parser {
	return &Parser{schema: reg}
}

// Schema returns the registry the parser coerces against
func (p *Parser) Schema() *schema.Registry {
	return p.schema
}

// Parse converts raw into a TypedRecord. With enforceSize set, a text value
// longer than its descriptor's MaxSize fails with a schema violation. The
// parser never touches a table; the caller appends the result.
func (p *Parser) Parse(raw RawRecord, enforceSize bool) (TypedRecord, error) {
	descs := p.schema.Descriptors()
	values := make([]Value, len(descs))

	for i, d := range descs {
		s, present := raw[d.Name]
		v, err := Coerce(d, s, present)
		if err != nil {
			return TypedRecord{}, err
		}
		if enforceSize {
			if err := checkSize(d, v); err != nil {
				return TypedRecord{}, err
			}
		}
		values[i] = v
	}

	return TypedRecord{schema: p.schema, values: values}, nil
}

// Coerce converts one raw attribute according to its descriptor. present is
// false for an absent attribute, which yields the kind's zero value.
func Coerce(d schema.AttributeDescriptor, s string, present bool) (Value, error) {
	if !present {
		return Zero(d.Kind), nil
	}

	switch d.Kind {
	case schema.KindInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Value{}, coercionError(d, s, err)
		}
		return IntValue(n), nil
	case schema.KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Value{}, coercionError(d, s, err)
		}
		return FloatValue(f), nil
	case schema.KindDate:
		t, err := ParseTimestamp(s)
		if err != nil {
			return Value{}, coercionError(d, s, err)
		}
		return TimeValue(t), nil
	case schema.KindText:
		return TextValue(s), nil
	case schema.KindMarkupText:
		return MarkupValue(s), nil
	}

	return Value{}, errors.Newf(errors.ErrorTypeInternal, "attribute %q has unhandled kind %s", d.Name, d.Kind)
}

// ParseTimestamp parses an ISO-8601 timestamp
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Measure returns the size of a text value as counted against MaxSize:
// characters for Text, UTF-8 bytes for MarkupText.
func Measure(kind schema.AttributeKind, s string) int {
	if kind == schema.KindMarkupText {
		return len(s)
	}
	return utf8.RuneCountInString(s)
}

// Truncate shortens s to at most max units as counted by Measure. MarkupText
// is cut at a rune boundary so the result stays valid UTF-8.
func Truncate(kind schema.AttributeKind, s string, max int) string {
	if Measure(kind, s) <= max {
		return s
	}
	if kind == schema.KindMarkupText {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut]
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func checkSize(d schema.AttributeDescriptor, v Value) error {
	if !d.Kind.IsText() || v.Null {
		return nil
	}
	if n := Measure(d.Kind, v.Str); n > d.MaxSize {
		return errors.Newf(errors.ErrorTypeSchemaViolation,
			"size error %d > %d for %s", n, d.MaxSize, d.Name).
			WithDetail("attribute", d.Name).
			WithDetail("length", n).
			WithDetail("max_size", d.MaxSize)
	}
	return nil
}

func coercionError(d schema.AttributeDescriptor, s string, cause error) error {
	return errors.Wrap(cause, errors.ErrorTypeTypeCoercion,
		"cannot coerce "+strconv.Quote(s)+" to "+d.Kind.String()+" for "+d.Name).
		WithDetail("attribute", d.Name).
		WithDetail("value", s).
		WithDetail("kind", d.Kind.String())
}
