package config

import (
	"fmt"
	"os"
	"strings"

	sigsyaml "sigs.k8s.io/yaml"
)

// Overrides holds declarative engine overrides loaded from the config file
// (.sysisolate.yaml).
type Overrides struct {
	// Capabilities force a category to be treated as supporting (true) or
	// not supporting (false) the group property (group-key), regardless of
	// what the model declares. Queries for other properties are unaffected.
	Capabilities map[string]bool `json:"capabilities,omitempty"`

	// ExcludeCategories are always hidden when evaluating a view.
	ExcludeCategories []string `json:"excludeCategories,omitempty"`
}

// ParseOverrides parses the capabilities and excludeCategories sections from
// raw config file bytes. Other keys are ignored.
func ParseOverrides(data []byte) (*Overrides, error) {
	var raw struct {
		Capabilities      map[string]bool `json:"capabilities,omitempty"`
		ExcludeCategories []string        `json:"excludeCategories,omitempty"`
	}

	if err := sigsyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing overrides: %w", err)
	}

	o := &Overrides{
		Capabilities:      raw.Capabilities,
		ExcludeCategories: raw.ExcludeCategories,
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}

	return o, nil
}

// LoadOverrides reads overrides from the config file at path. An empty path
// yields empty overrides.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overrides: %w", err)
	}

	return ParseOverrides(data)
}

// Validate checks the overrides for correctness.
func (o *Overrides) Validate() error {
	for name := range o.Capabilities {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("capabilities: category name must not be empty")
		}
	}

	seen := make(map[string]bool, len(o.ExcludeCategories))

	for i, name := range o.ExcludeCategories {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("excludeCategories[%d]: category name must not be empty", i)
		}

		if seen[name] {
			return fmt.Errorf("excludeCategories[%d]: duplicate category %q", i, name)
		}

		seen[name] = true
	}

	return nil
}

// IsEmpty returns true if no override is set.
func (o *Overrides) IsEmpty() bool {
	return len(o.Capabilities) == 0 && len(o.ExcludeCategories) == 0
}
