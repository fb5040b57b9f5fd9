package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/sysisolate/internal/plan"
)

// Encoder renders a plan in one output format.
type Encoder func(p *plan.FilterPlan) ([]byte, error)

// Registry maps format names to encoders, enabling pluggable output formats.
type Registry struct {
	mu       sync.RWMutex
	encoders map[string]Encoder
}

// NewRegistry creates an empty encoder registry.
func NewRegistry() *Registry {
	return &Registry{
		encoders: make(map[string]Encoder),
	}
}

// Register adds an encoder under the given format name.
// Existing entries for the same name are overwritten.
func (r *Registry) Register(name string, enc Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.encoders[name] = enc
}

// Encoder returns the encoder for the given format, or an error if not found.
func (r *Registry) Encoder(name string) (Encoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enc, ok := r.encoders[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %s)", name, r.availableLocked())
	}

	return enc, nil
}

// Encode renders p in the named format.
func (r *Registry) Encode(name string, p *plan.FilterPlan) ([]byte, error) {
	enc, err := r.Encoder(name)
	if err != nil {
		return nil, err
	}

	return enc(p)
}

// Formats returns the sorted list of registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.formatsLocked()
}

func (r *Registry) formatsLocked() []string {
	names := make([]string, 0, len(r.encoders))
	for name := range r.encoders {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// AvailableFormats returns a comma-separated string of registered format names.
func (r *Registry) AvailableFormats() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.availableLocked()
}

func (r *Registry) availableLocked() string {
	formats := r.formatsLocked()
	if len(formats) == 0 {
		return "none"
	}

	return strings.Join(formats, ", ")
}

// DefaultRegistry returns a registry pre-populated with the built-in
// formats: yaml, json, text, compact.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("yaml", Serialize)

	r.Register("json", func(p *plan.FilterPlan) ([]byte, error) {
		return SerializeJSON(p, DefaultSerializeOptions())
	})

	r.Register("text", func(p *plan.FilterPlan) ([]byte, error) {
		var buf bytes.Buffer
		plan.FormatPlan(&buf, p)

		return buf.Bytes(), nil
	})

	r.Register("compact", func(p *plan.FilterPlan) ([]byte, error) {
		var buf bytes.Buffer
		plan.FormatPlanCompact(&buf, p)

		return buf.Bytes(), nil
	})

	return r
}
