package columnar

import (
	"fmt"

	"github.com/ajitpratap0/tabulate/pkg/record"
	"github.com/ajitpratap0/tabulate/pkg/schema"
)

// Column is the storage interface for one typed attribute array
type Column interface {
	Kind() schema.AttributeKind
	Len() int
	Get(i int) record.Value
	Append(v record.Value) error
	MemoryUsage() int64
}

// newColumn creates an empty column for an attribute kind
func newColumn(kind schema.AttributeKind) Column {
	switch kind {
	case schema.KindInteger:
		return NewIntColumn()
	case schema.KindFloat:
		return NewFloatColumn()
	case schema.KindDate:
		return NewTimestampColumn()
	case schema.KindText, schema.KindMarkupText:
		return NewStringColumn(kind)
	default:
		panic(fmt.Sprintf("columnar: no column for kind %s", kind))
	}
}

// validity is a bit-packed null mask: 64 rows per word, bit set means present
type validity struct {
	words []uint64
	count int
	nulls int
}

func (b *validity) append(present bool) {
	word, bit := b.count/64, b.count%64
	if word >= len(b.words) {
		b.words = append(b.words, 0)
	}
	if present {
		b.words[word] |= 1 << bit
	} else {
		b.nulls++
	}
	b.count++
}

func (b *validity) present(i int) bool {
	return b.words[i/64]&(1<<(i%64)) != 0
}

// StringColumn stores Text and MarkupText values. Once enough values repeat
// it switches to dictionary encoding: each row holds a code into a table of
// distinct strings.
type StringColumn struct {
	kind   schema.AttributeKind
	valid  validity
	values []string

	// Dictionary encoding for repeated values
	dict      map[string]uint32
	entries   []string
	codes     []uint32
	dictMode  bool
	threshold float64 // switch when distinct/total drops below this
}

// NewStringColumn creates a new string column
func NewStringColumn(kind schema.AttributeKind) *StringColumn {
	return &StringColumn{
		kind:      kind,
		values:    make([]string, 0, 1024),
		dict:      make(map[string]uint32),
		threshold: 0.5,
	}
}

func (c *StringColumn) Kind() schema.AttributeKind { return c.kind }
func (c *StringColumn) Len() int                   { return c.valid.count }

// Dictionary reports whether the column is dictionary encoded
func (c *StringColumn) Dictionary() bool { return c.dictMode }

func (c *StringColumn) Get(i int) record.Value {
	if !c.valid.present(i) {
		return record.Value{Kind: c.kind, Null: true}
	}
	if c.dictMode {
		return record.Value{Kind: c.kind, Str: c.entries[c.codes[i]]}
	}
	return record.Value{Kind: c.kind, Str: c.values[i]}
}

func (c *StringColumn) Append(v record.Value) error {
	if v.Kind != c.kind {
		return fmt.Errorf("expected %s, got %s", c.kind, v.Kind)
	}
	c.valid.append(!v.Null)

	if c.dictMode {
		c.codes = append(c.codes, c.code(v.Str))
		return nil
	}

	c.values = append(c.values, v.Str)
	// re-evaluated each time the column doubles past 1024 rows
	if n := len(c.values); n >= 1024 && n&(n-1) == 0 && c.shouldUseDictionary() {
		c.convertToDictionary()
	}
	return nil
}

func (c *StringColumn) code(s string) uint32 {
	if code, exists := c.dict[s]; exists {
		return code
	}
	code := uint32(len(c.entries))
	c.dict[s] = code
	c.entries = append(c.entries, s)
	return code
}

func (c *StringColumn) shouldUseDictionary() bool {
	unique := make(map[string]struct{})
	for _, v := range c.values {
		unique[v] = struct{}{}
	}
	ratio := float64(len(unique)) / float64(len(c.values))
	return ratio < c.threshold
}

func (c *StringColumn) convertToDictionary() {
	c.dictMode = true
	c.codes = make([]uint32, 0, 2*len(c.values))
	for _, v := range c.values {
		c.codes = append(c.codes, c.code(v))
	}

	// Clear values to free memory
	c.values = nil
}

func (c *StringColumn) MemoryUsage() int64 {
	total := int64(len(c.valid.words) * 8)

	if c.dictMode {
		for _, k := range c.entries {
			total += int64(len(k)) + 16 + 4
		}
		total += int64(len(c.codes) * 4)
	} else {
		for _, v := range c.values {
			total += int64(len(v)) + 16
		}
	}
	return total
}

// IntColumn stores Integer values and tracks their range
type IntColumn struct {
	values   []int64
	min, max int64
}

// NewIntColumn creates a new integer column
func NewIntColumn() *IntColumn {
	return &IntColumn{values: make([]int64, 0, 1024)}
}

func (c *IntColumn) Kind() schema.AttributeKind { return schema.KindInteger }
func (c *IntColumn) Len() int                   { return len(c.values) }

func (c *IntColumn) Get(i int) record.Value {
	return record.IntValue(c.values[i])
}

func (c *IntColumn) Append(v record.Value) error {
	if v.Kind != schema.KindInteger {
		return fmt.Errorf("expected integer, got %s", v.Kind)
	}

	if len(c.values) == 0 {
		c.min, c.max = v.Int, v.Int
	} else {
		if v.Int < c.min {
			c.min = v.Int
		}
		if v.Int > c.max {
			c.max = v.Int
		}
	}

	c.values = append(c.values, v.Int)
	return nil
}

// Range returns the smallest and largest stored values. ok is false when empty.
func (c *IntColumn) Range() (lo, hi int64, ok bool) {
	return c.min, c.max, len(c.values) > 0
}

func (c *IntColumn) MemoryUsage() int64 {
	return int64(len(c.values) * 8)
}

// FloatColumn stores Float values. NaN is kept as-is and reads back as missing.
type FloatColumn struct {
	values []float64
}

// NewFloatColumn creates a new float column
func NewFloatColumn() *FloatColumn {
	return &FloatColumn{values: make([]float64, 0, 1024)}
}

func (c *FloatColumn) Kind() schema.AttributeKind { return schema.KindFloat }
func (c *FloatColumn) Len() int                   { return len(c.values) }

func (c *FloatColumn) Get(i int) record.Value {
	return record.FloatValue(c.values[i])
}

func (c *FloatColumn) Append(v record.Value) error {
	if v.Kind != schema.KindFloat {
		return fmt.Errorf("expected float, got %s", v.Kind)
	}
	c.values = append(c.values, v.Float)
	return nil
}

func (c *FloatColumn) MemoryUsage() int64 {
	return int64(len(c.values) * 8)
}

// TimestampColumn stores Date values as seconds since the epoch
type TimestampColumn struct {
	values []float64
}

// NewTimestampColumn creates a new timestamp column
func NewTimestampColumn() *TimestampColumn {
	return &TimestampColumn{values: make([]float64, 0, 1024)}
}

func (c *TimestampColumn) Kind() schema.AttributeKind { return schema.KindDate }
func (c *TimestampColumn) Len() int                   { return len(c.values) }

func (c *TimestampColumn) Get(i int) record.Value {
	return record.DateValue(c.values[i])
}

func (c *TimestampColumn) Append(v record.Value) error {
	if v.Kind != schema.KindDate {
		return fmt.Errorf("expected date, got %s", v.Kind)
	}
	c.values = append(c.values, v.Float)
	return nil
}

func (c *TimestampColumn) MemoryUsage() int64 {
	return int64(len(c.values) * 8)
}
