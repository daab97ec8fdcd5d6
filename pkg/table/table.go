// Package table defines the append-only, fixed-schema table that ingestion
// fills and analytics reads, and the registry of storage backends.
package table

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
)

// Backend names a storage strategy
type Backend string

const (
	// BackendColumnar stores one typed array per attribute
	BackendColumnar Backend = "columnar"
	// BackendRow stores one TypedRecord per row
	BackendRow Backend = "row"
)

// Table is an append-only store of typed records. Row indices are dense,
// zero-based and follow insertion order. There is no update or delete.
type Table interface {
	Schema() *schema.Registry
	Append(rec record.TypedRecord) error
	Column(name string) (Column, error)
	Row(index int) (record.TypedRecord, error)
	Len() int
}

// Column is a read-only view of one attribute across all rows. Callers must
// not retain values across appends.
type Column interface {
	Name() string
	Kind() schema.AttributeKind
	Len() int
	Value(i int) record.Value
}

// MemoryReporter is implemented by backends that can estimate the bytes
// held by their data
type MemoryReporter interface {
	MemoryUsage() int64
}

// Factory creates an empty table for a schema
type Factory func(reg *schema.Registry) Table

var (
	factoriesMu sync.RWMutex
	factories   = map[Backend]Factory{
		BackendRow: func(reg *schema.Registry) Table { return NewRowTable(reg) },
	}
)

// Register makes a backend available to New. Backends register from init.
func Register(name Backend, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("table backend %s already registered", name))
	}
	factories[name] = factory
}

// New creates an empty table using the named backend
func New(name Backend, reg *schema.Registry) (Table, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "table backend %q not found", name).
			WithDetail("available", Backends())
	}
	return factory(reg), nil
}

// Backends lists registered backend names
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, string(name))
	}
	sort.Strings(out)
	return out
}

// CheckRecord validates that rec fits the table schema: same registry width,
// matching kinds, and text values within MaxSize. Backends call it before
// mutating any state so a failed append leaves no partial row.
func CheckRecord(reg *schema.Registry, rec record.TypedRecord) error {
	if rec.Len() != reg.Len() {
		return errors.Newf(errors.ErrorTypeSchema,
			"record has %d values, table has %d columns", rec.Len(), reg.Len())
	}
	for i := 0; i < rec.Len(); i++ {
		d := reg.Descriptor(i)
		v := rec.At(i)
		if v.Kind != d.Kind {
			return errors.Newf(errors.ErrorTypeSchema,
				"value for %q has kind %s, column is %s", d.Name, v.Kind, d.Kind)
		}
		if d.Kind.IsText() && !v.Null {
			if n := record.Measure(d.Kind, v.Str); n > d.MaxSize {
				return errors.Newf(errors.ErrorTypeSchemaViolation,
					"value of %d exceeds column %s size %d", n, d.Name, d.MaxSize).
					WithDetail("attribute", d.Name).
					WithDetail("length", n).
					WithDetail("max_size", d.MaxSize)
			}
		}
	}
	return nil
}

// UnknownColumn returns the error for access to an undeclared column
func UnknownColumn(name string) error {
	return errors.Newf(errors.ErrorTypeUnknownColumn, "column %q not found", name).
		WithDetail("column", name)
}

// OutOfRange returns the error for row access beyond the table
func OutOfRange(index, length int) error {
	return errors.Newf(errors.ErrorTypeIndexOutOfRange, "index %d out of range [0, %d)", index, length).
		WithDetail("index", index)
}
