// Package model defines the in-memory object/category model that the
// isolation engine operates on: categories with the property keys they can
// carry, and tagged objects holding property values.
//
// A [Model] is a read-only snapshot. It is loaded once per invocation and
// answers capability queries ("can objects of this category carry that
// property?") on behalf of the host environment.
package model

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// DefaultGroupKey is the property that names the system an object belongs to.
const DefaultGroupKey PropertyKey = "system-name"

// ErrCapabilityQueryUnavailable is returned when the host cannot tell whether
// a category supports a property.
var ErrCapabilityQueryUnavailable = errors.New("capability query unavailable")

// Category is an opaque classification bucket for objects.
type Category string

// PropertyKey identifies a named property.
type PropertyKey string

// TaggedObject is a single object of the host document.
type TaggedObject struct {
	// ID uniquely identifies the object within a model.
	ID string `json:"id"`
	// Category is the object's classification bucket.
	Category Category `json:"category"`
	// Properties maps property keys to values. A present key with a nil
	// value means the property exists on the object but holds no value.
	Properties map[PropertyKey]*string `json:"properties,omitempty"`
}

// Lookup returns the value of key. ok reports whether the object carries
// the property at all; value is nil when the property has no value.
func (o *TaggedObject) Lookup(key PropertyKey) (value *string, ok bool) {
	if o == nil || o.Properties == nil {
		return nil, false
	}

	value, ok = o.Properties[key]

	return value, ok
}

// HasValue reports whether the object carries key with a non-blank value.
func (o *TaggedObject) HasValue(key PropertyKey) bool {
	v, ok := o.Lookup(key)

	return ok && v != nil && strings.TrimSpace(*v) != ""
}

// String returns "id (category)".
func (o *TaggedObject) String() string {
	return fmt.Sprintf("%s (%s)", o.ID, o.Category)
}

// Model is a loaded snapshot of categories and objects.
type Model struct {
	// SchemaVersion is the document schema version the model was read from.
	SchemaVersion string

	categories []Category
	// supported holds the property keys per category. A nil set means the
	// capability of that category is unknown.
	supported map[Category]sets.Set[PropertyKey]
	objects   []*TaggedObject
	byID      map[string]*TaggedObject
}

// New builds a model from categories and objects. caps maps each category
// to its supported property keys; categories missing from caps have an
// unknown capability. Duplicate categories collapse.
func New(categories []Category, caps map[Category][]PropertyKey, objects []*TaggedObject) (*Model, error) {
	m := &Model{
		SchemaVersion: CurrentSchemaVersion,
		supported:     make(map[Category]sets.Set[PropertyKey], len(categories)),
		byID:          make(map[string]*TaggedObject, len(objects)),
	}

	seen := sets.New[Category]()

	for _, c := range categories {
		if c == "" {
			return nil, fmt.Errorf("category name must not be empty")
		}

		if seen.Has(c) {
			continue
		}

		seen.Insert(c)
		m.categories = append(m.categories, c)

		if keys, ok := caps[c]; ok {
			m.supported[c] = sets.New(keys...)
		} else {
			m.supported[c] = nil
		}
	}

	for _, o := range objects {
		if o == nil || o.ID == "" {
			return nil, fmt.Errorf("object id must not be empty")
		}

		if _, dup := m.byID[o.ID]; dup {
			return nil, fmt.Errorf("duplicate object id %q", o.ID)
		}

		if !seen.Has(o.Category) {
			return nil, fmt.Errorf("object %q references unknown category %q", o.ID, o.Category)
		}

		m.byID[o.ID] = o
		m.objects = append(m.objects, o)
	}

	return m, nil
}

// Universe returns the set of all categories in the model.
func (m *Model) Universe() sets.Set[Category] {
	return sets.New(m.categories...)
}

// Categories returns the categories in document order.
func (m *Model) Categories() []Category {
	return append([]Category(nil), m.categories...)
}

// SupportsProperty reports whether objects of category c can carry key.
func (m *Model) SupportsProperty(c Category, key PropertyKey) (bool, error) {
	keys, ok := m.supported[c]
	if !ok {
		return false, fmt.Errorf("category %q: not part of the model: %w", c, ErrCapabilityQueryUnavailable)
	}

	if keys == nil {
		return false, fmt.Errorf("category %q: no capability information: %w", c, ErrCapabilityQueryUnavailable)
	}

	return keys.Has(key), nil
}

// Objects returns all objects in document order.
func (m *Model) Objects() []*TaggedObject {
	return append([]*TaggedObject(nil), m.objects...)
}

// Object looks up an object by ID.
func (m *Model) Object(id string) (*TaggedObject, bool) {
	o, ok := m.byID[id]

	return o, ok
}
