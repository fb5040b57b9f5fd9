package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// CurrentSchemaVersion is the model document version written by this release.
const CurrentSchemaVersion = "1.0.0"

// supportedSchemaVersions is the range of document versions Parse accepts.
const supportedSchemaVersions = ">= 1.0.0, < 2.0.0"

// document is the on-disk shape of a model file.
type document struct {
	SchemaVersion string        `yaml:"schemaVersion"`
	Categories    []rawCategory `yaml:"categories"`
	Objects       []rawObject   `yaml:"objects"`
}

type rawCategory struct {
	Name string `yaml:"name"`
	// Properties is a pointer so that an omitted list (capability unknown)
	// can be told apart from an empty one (supports nothing).
	Properties *[]PropertyKey `yaml:"properties"`
}

type rawObject struct {
	ID         string                  `yaml:"id"`
	Category   Category                `yaml:"category"`
	Properties map[PropertyKey]*string `yaml:"properties"`
}

// Load reads and parses a model file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided model file
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}

	return m, nil
}

// Parse decodes a YAML (or JSON) model document. Unknown fields are rejected.
func Parse(data []byte) (*Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing model: document is empty")
		}

		return nil, fmt.Errorf("parsing model: %w", err)
	}

	if err := checkSchemaVersion(doc.SchemaVersion); err != nil {
		return nil, err
	}

	categories := make([]Category, 0, len(doc.Categories))
	caps := make(map[Category][]PropertyKey, len(doc.Categories))

	for _, rc := range doc.Categories {
		c := Category(rc.Name)
		categories = append(categories, c)

		if rc.Properties != nil {
			caps[c] = append(caps[c], *rc.Properties...)
		}
	}

	objects := make([]*TaggedObject, 0, len(doc.Objects))
	for _, ro := range doc.Objects {
		objects = append(objects, &TaggedObject{
			ID:         ro.ID,
			Category:   ro.Category,
			Properties: ro.Properties,
		})
	}

	m, err := New(categories, caps, objects)
	if err != nil {
		return nil, err
	}

	m.SchemaVersion = doc.SchemaVersion

	return m, nil
}

// checkSchemaVersion verifies that version lies in the supported range.
func checkSchemaVersion(version string) error {
	if version == "" {
		return fmt.Errorf("schemaVersion is required")
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid schemaVersion %q: %w", version, err)
	}

	c, err := semver.NewConstraint(supportedSchemaVersions)
	if err != nil {
		return fmt.Errorf("invalid schema constraint: %w", err)
	}

	if !c.Check(v) {
		return fmt.Errorf("unsupported schemaVersion %q (supported: %s)", version, supportedSchemaVersions)
	}

	return nil
}
