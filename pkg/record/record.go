package record

import (
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/schema"
)

// TypedRecord is one entity after coercion: one Value per descriptor, in
// declaration order.
type TypedRecord struct {
	schema *schema.Registry
	values []Value
}

// NewTypedRecord builds a record from values aligned with the registry's descriptors
func NewTypedRecord(reg *schema.Registry, values []Value) (TypedRecord, error) {
	if len(values) != reg.Len() {
		return TypedRecord{}, errors.Newf(errors.ErrorTypeSchema,
			"record has %d values, schema declares %d attributes", len(values), reg.Len())
	}
	for i, v := range values {
		d := reg.Descriptor(i)
		if v.Kind != d.Kind {
			return TypedRecord{}, errors.Newf(errors.ErrorTypeSchema,
				"value for %q has kind %s, schema declares %s", d.Name, v.Kind, d.Kind)
		}
	}
	return TypedRecord{schema: reg, values: values}, nil
}

// Schema returns the registry the record was built against
func (r TypedRecord) Schema() *schema.Registry { return r.schema }

// Len returns the number of values
func (r TypedRecord) Len() int { return len(r.values) }

// At returns the value at position i
func (r TypedRecord) At(i int) Value { return r.values[i] }

// Values returns the values in declaration order. Callers must not modify the slice.
func (r TypedRecord) Values() []Value { return r.values }

// Get returns the value of the named attribute
func (r TypedRecord) Get(name string) (Value, bool) {
	if r.schema == nil {
		return Value{}, false
	}
	i, ok := r.schema.Index(name)
	if !ok {
		return Value{}, false
	}
	return r.values[i], true
}

// Map returns the record as an attribute-name keyed map
func (r TypedRecord) Map() map[string]Value {
	out := make(map[string]Value, len(r.values))
	for i, v := range r.values {
		out[r.schema.Descriptor(i).Name] = v
	}
	return out
}

// CheckSizes fails with a schema violation on the first text value longer
// than its descriptor's MaxSize
func (r TypedRecord) CheckSizes() error {
	for i, v := range r.values {
		if err := checkSize(r.schema.Descriptor(i), v); err != nil {
			return err
		}
	}
	return nil
}

// Fit returns r with every oversized text value truncated to its MaxSize,
// and how many values were cut. r itself is not modified.
func (r TypedRecord) Fit() (TypedRecord, int) {
	var values []Value
	cut := 0
	for i, v := range r.values {
		d := r.schema.Descriptor(i)
		if !d.Kind.IsText() || v.Null || Measure(d.Kind, v.Str) <= d.MaxSize {
			continue
		}
		if values == nil {
			values = append([]Value(nil), r.values...)
		}
		values[i].Str = Truncate(d.Kind, v.Str, d.MaxSize)
		cut++
	}
	if values == nil {
		return r, 0
	}
	return TypedRecord{schema: r.schema, values: values}, cut
}
