package record

import (
	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/schema"
)

// Filter decides which parsed records reach the table. Only records whose
// identity attribute is a strictly positive integer are kept; the sentinel
// system account (id <= 0) is dropped silently.
type Filter struct {
	IDAttribute string
}

// DefaultFilter filters on the users dump identity attribute
func DefaultFilter() Filter {
	return Filter{IDAttribute: schema.AttrID}
}

// Validate checks that the identity attribute exists and is an Integer
func (f Filter) Validate(reg *schema.Registry) error {
	d, ok := reg.Lookup(f.IDAttribute)
	if !ok {
		return errors.Newf(errors.ErrorTypeUnknownColumn, "identity attribute %q not in schema", f.IDAttribute)
	}
	if d.Kind != schema.KindInteger {
		return errors.Newf(errors.ErrorTypeSchema, "identity attribute %q must be an integer, got %s", f.IDAttribute, d.Kind)
	}
	return nil
}

// Include reports whether rec passes the filter
func (f Filter) Include(rec TypedRecord) bool {
	v, ok := rec.Get(f.IDAttribute)
	return ok && v.Kind == schema.KindInteger && v.Int > 0
}
