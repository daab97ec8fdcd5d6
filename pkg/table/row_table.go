package table

import (
	"sync"

	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
)

// RowTable keeps parsed records as rows. It suits small loads and callers that
// mostly read whole rows.
type RowTable struct {
	mu     sync.RWMutex
	schema *schema.Registry
	rows   []record.TypedRecord
}

// NewRowTable creates an empty row-oriented table
func NewRowTable(reg *schema.Registry) *RowTable {
	return &RowTable{schema: reg, rows: make([]record.TypedRecord, 0, 1024)}
}

// Schema returns the table schema
func (t *RowTable) Schema() *schema.Registry { return t.schema }

// Append adds a row. The first append seals the schema.
func (t *RowTable) Append(rec record.TypedRecord) error {
	t.schema.Seal()
	if err := CheckRecord(t.schema, rec); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, rec)
	return nil
}

// Len returns the row count
func (t *RowTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Row returns the record at index
func (t *RowTable) Row(index int) (record.TypedRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index < 0 || index >= len(t.rows) {
		return record.TypedRecord{}, OutOfRange(index, len(t.rows))
	}
	return t.rows[index], nil
}

// Column returns a view over one attribute of every row
func (t *RowTable) Column(name string) (Column, error) {
	i, ok := t.schema.Index(name)
	if !ok {
		return nil, UnknownColumn(name)
	}
	return &rowColumn{table: t, index: i, desc: t.schema.Descriptor(i)}, nil
}

type rowColumn struct {
	table *RowTable
	index int
	desc  schema.AttributeDescriptor
}

func (c *rowColumn) Name() string               { return c.desc.Name }
func (c *rowColumn) Kind() schema.AttributeKind { return c.desc.Kind }
func (c *rowColumn) Len() int                   { return c.table.Len() }

func (c *rowColumn) Value(i int) record.Value {
	c.table.mu.RLock()
	defer c.table.mu.RUnlock()
	return c.table.rows[i].At(c.index)
}
