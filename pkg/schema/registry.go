// Package schema describes the attributes of an entity and the bounds applied
// to them during ingestion.
package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ajitpratap0/tabulate/pkg/errors"
	"github.com/ajitpratap0/tabulate/pkg/logger"
	"go.uber.org/zap"
)

// DefaultPadding is added to every observed text length when sizes are finalized
// from a scan, to tolerate small estimation errors.
const DefaultPadding = 10

// AttributeKind is the logical type of an attribute
type AttributeKind int

const (
	// KindText is plain text measured in characters; absent values are null
	KindText AttributeKind = iota
	// KindDate is an ISO-8601 timestamp stored as seconds since the epoch
	KindDate
	// KindMarkupText is markup-encoded text measured in UTF-8 bytes; absent values are ""
	KindMarkupText
	// KindInteger is a signed 64-bit integer
	KindInteger
	// KindFloat is a 64-bit float
	KindFloat
)

var kindNames = map[AttributeKind]string{
	KindText:       "text",
	KindDate:       "date",
	KindMarkupText: "markup",
	KindInteger:    "integer",
	KindFloat:      "float",
}

var kindAliases = map[string]AttributeKind{
	"text":    KindText,
	"str":     KindText,
	"string":  KindText,
	"date":    KindDate,
	"markup":  KindMarkupText,
	"html":    KindMarkupText,
	"integer": KindInteger,
	"int":     KindInteger,
	"float":   KindFloat,
	"dbl":     KindFloat,
	"double":  KindFloat,
}

func (k AttributeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsText reports whether values of this kind carry a size bound
func (k AttributeKind) IsText() bool {
	return k == KindText || k == KindMarkupText
}

// ParseKind converts a configuration string into an AttributeKind
func ParseKind(s string) (AttributeKind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, errors.Newf(errors.ErrorTypeSchema, "unknown attribute kind %q", s)
	}
	return k, nil
}

// AttributeDescriptor describes one column of the table
type AttributeDescriptor struct {
	Name    string
	Kind    AttributeKind
	MaxSize int // only meaningful for text kinds
}

// Registry holds the ordered attribute descriptors of the single entity schema.
// Sizes may be finalized from a scan until the registry is sealed, which happens
// when the first row is appended to a table.
type Registry struct {
	mu          sync.RWMutex
	descriptors []AttributeDescriptor
	index       map[string]int
	sealed      bool
	logger      *zap.Logger
}

// NewRegistry creates a registry from an ordered list of descriptors
func NewRegistry(descs ...AttributeDescriptor) (*Registry, error) {
	if len(descs) == 0 {
		return nil, errors.New(errors.ErrorTypeSchema, "schema has no attributes")
	}

	r := &Registry{
		descriptors: make([]AttributeDescriptor, 0, len(descs)),
		index:       make(map[string]int, len(descs)),
		logger:      logger.With(zap.String("component", "schema_registry")),
	}

	for _, d := range descs {
		if d.Name == "" {
			return nil, errors.New(errors.ErrorTypeSchema, "attribute name must not be empty")
		}
		if _, exists := r.index[d.Name]; exists {
			return nil, errors.Newf(errors.ErrorTypeSchema, "attribute %q declared twice", d.Name)
		}
		if _, ok := kindNames[d.Kind]; !ok {
			return nil, errors.Newf(errors.ErrorTypeSchema, "attribute %q has unknown kind %d", d.Name, int(d.Kind))
		}
		if d.MaxSize < 0 {
			return nil, errors.Newf(errors.ErrorTypeSchema, "attribute %q has negative size %d", d.Name, d.MaxSize)
		}
		if !d.Kind.IsText() {
			d.MaxSize = 0
		}
		r.index[d.Name] = len(r.descriptors)
		r.descriptors = append(r.descriptors, d)
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on an invalid schema.
// It is intended for statically declared schemas.
func MustRegistry(descs ...AttributeDescriptor) *Registry {
	r, err := NewRegistry(descs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of attributes
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// Descriptors returns a copy of the ordered descriptors
func (r *Registry) Descriptors() []AttributeDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AttributeDescriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Descriptor returns the descriptor at position i
func (r *Registry) Descriptor(i int) AttributeDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.descriptors[i]
}

// Names returns the attribute names in declaration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		names[i] = d.Name
	}
	return names
}

// Lookup finds a descriptor by name
func (r *Registry) Lookup(name string) (AttributeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return AttributeDescriptor{}, false
	}
	return r.descriptors[i], true
}

// Index returns the position of the named attribute
func (r *Registry) Index(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	return i, ok
}

// TextDescriptors returns the Text and MarkupText descriptors in declaration order
func (r *Registry) TextDescriptors() []AttributeDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []AttributeDescriptor
	for _, d := range r.descriptors {
		if d.Kind.IsText() {
			out = append(out, d)
		}
	}
	return out
}

// Finalize sets MaxSize = observed + padding for each text descriptor present in
// sizes. Descriptors missing from sizes keep their configured size.
func (r *Registry) Finalize(sizes map[string]int, padding int) error {
	if padding < 0 {
		return errors.Newf(errors.ErrorTypeSchema, "padding must not be negative, got %d", padding)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.New(errors.ErrorTypeSchema, "registry sealed: sizes cannot change once ingestion has started")
	}

	for name, observed := range sizes {
		i, ok := r.index[name]
		if !ok {
			return errors.Newf(errors.ErrorTypeUnknownColumn, "size given for unknown attribute %q", name)
		}
		if !r.descriptors[i].Kind.IsText() {
			continue
		}
		if observed < 0 {
			return errors.Newf(errors.ErrorTypeSchema, "observed size for %q is negative", name)
		}
		r.descriptors[i].MaxSize = observed + padding
		r.logger.Debug("attribute size finalized",
			zap.String("attribute", name),
			zap.Int("observed", observed),
			zap.Int("max_size", observed+padding))
	}

	return nil
}

// Seal freezes the descriptors. It is idempotent.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sealed {
		r.sealed = true
		r.logger.Debug("schema sealed", zap.String("fingerprint", r.fingerprintLocked()))
	}
}

// Sealed reports whether ingestion has started
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Fingerprint returns a stable identifier of names, kinds and sizes.
// Caches use it to reject files written under a different schema.
func (r *Registry) Fingerprint() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fingerprintLocked()
}

func (r *Registry) fingerprintLocked() string {
	var b strings.Builder
	for _, d := range r.descriptors {
		b.WriteString(d.Name)
		b.WriteByte(':')
		b.WriteString(d.Kind.String())
		if d.Kind.IsText() {
			fmt.Fprintf(&b, "(%d)", d.MaxSize)
		}
		b.WriteByte(';')
	}
	return b.String()
}

// SortedKinds returns the names of all recognized kinds, for help output
func SortedKinds() []string {
	out := make([]string, 0, len(kindAliases))
	for alias := range kindAliases {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}
