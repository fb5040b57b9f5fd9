package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/sysisolate/internal/plan"
)

// SerializeOptions configures the plan serializer.
type SerializeOptions struct {
	// Indent is the JSON indentation string (default: two spaces).
	Indent string
}

// DefaultSerializeOptions returns sensible defaults.
func DefaultSerializeOptions() SerializeOptions {
	return SerializeOptions{Indent: "  "}
}

// Serialize converts a plan to canonical YAML bytes. Keys are emitted in
// sorted order, so equal plans serialize to equal bytes.
func Serialize(p *plan.FilterPlan) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("serializing YAML: no plan")
	}

	yamlBytes, err := sigsyaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("serializing YAML: %w", err)
	}

	return ensureNewline(yamlBytes), nil
}

// SerializeJSON converts a plan to indented JSON bytes with sorted keys.
func SerializeJSON(p *plan.FilterPlan, opts SerializeOptions) ([]byte, error) {
	if opts.Indent == "" {
		opts.Indent = "  "
	}

	yamlBytes, err := Serialize(p)
	if err != nil {
		return nil, err
	}

	// Going through YAML yields the same key order as the YAML form.
	jsonBytes, err := sigsyaml.YAMLToJSON(yamlBytes)
	if err != nil {
		return nil, fmt.Errorf("converting to JSON: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, jsonBytes, "", opts.Indent); err != nil {
		return nil, fmt.Errorf("formatting JSON: %w", err)
	}

	return ensureNewline(buf.Bytes()), nil
}

// ReadPlan parses a plan previously written as YAML or JSON and validates
// it.
func ReadPlan(data []byte) (*plan.FilterPlan, error) {
	var p plan.FilterPlan
	if err := sigsyaml.UnmarshalStrict(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

func ensureNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] != '\n' {
		b = append(b, '\n')
	}

	return b
}
