package columnar

import (
	"sync"

	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
	"github.com/ajitpratap0/tabulate/pkg/table"
)

func init() {
	table.Register(table.BackendColumnar, func(reg *schema.Registry) table.Table {
		return NewStore(reg)
	})
}

// Store keeps one typed column per schema attribute. Columns are created up
// front from the registry and always have the same length.
type Store struct {
	mu       sync.RWMutex
	schema   *schema.Registry
	columns  []Column
	rowCount int
}

// NewStore creates an empty store for the registry's attributes
func NewStore(reg *schema.Registry) *Store {
	s := &Store{schema: reg, columns: make([]Column, reg.Len())}
	for i, d := range reg.Descriptors() {
		s.columns[i] = newColumn(d.Kind)
	}
	return s
}

// Schema returns the store schema
func (s *Store) Schema() *schema.Registry { return s.schema }

// Append adds a row. The record is checked against the schema before any
// column is touched, so a rejected record leaves all columns unchanged.
func (s *Store) Append(rec record.TypedRecord) error {
	s.schema.Seal()
	if err := table.CheckRecord(s.schema, rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, col := range s.columns {
		if err := col.Append(rec.At(i)); err != nil {
			// unreachable after CheckRecord; kinds already match
			panic(err)
		}
	}
	s.rowCount++
	return nil
}

// Row reassembles the record at index
func (s *Store) Row(index int) (record.TypedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= s.rowCount {
		return record.TypedRecord{}, table.OutOfRange(index, s.rowCount)
	}
	values := make([]record.Value, len(s.columns))
	for i, col := range s.columns {
		values[i] = col.Get(index)
	}
	return record.NewTypedRecord(s.schema, values)
}

// Column returns the named column
func (s *Store) Column(name string) (table.Column, error) {
	i, ok := s.schema.Index(name)
	if !ok {
		return nil, table.UnknownColumn(name)
	}
	return &columnView{store: s, desc: s.schema.Descriptor(i), col: s.columns[i]}, nil
}

// Len returns the number of rows
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rowCount
}

// MemoryUsage returns an estimate of the bytes held by column data. It
// satisfies table.MemoryReporter.
func (s *Store) MemoryUsage() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := int64(64 + len(s.columns)*32)
	for i, col := range s.columns {
		total += int64(len(s.schema.Descriptor(i).Name))
		total += col.MemoryUsage()
	}
	return total
}

type columnView struct {
	store *Store
	desc  schema.AttributeDescriptor
	col   Column
}

func (v *columnView) Name() string               { return v.desc.Name }
func (v *columnView) Kind() schema.AttributeKind { return v.desc.Kind }
func (v *columnView) Len() int                   { return v.store.Len() }

func (v *columnView) Value(i int) record.Value {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	return v.col.Get(i)
}
