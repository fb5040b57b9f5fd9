// Package category partitions a category universe by whether its categories
// can carry a given property.
package category

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/hupe1980/sysisolate/internal/model"
)

// ErrCapabilityQueryUnavailable is returned when the capability query fails
// for any category of the universe.
var ErrCapabilityQueryUnavailable = model.ErrCapabilityQueryUnavailable

// CapabilityQuery answers whether objects of a category can carry a property.
// In a CAD host this is typically one API round-trip per category.
type CapabilityQuery interface {
	SupportsProperty(c model.Category, key model.PropertyKey) (bool, error)
}

// QueryFunc adapts a plain function to the CapabilityQuery interface.
type QueryFunc func(c model.Category, key model.PropertyKey) (bool, error)

// SupportsProperty calls f.
func (f QueryFunc) SupportsProperty(c model.Category, key model.PropertyKey) (bool, error) {
	return f(c, key)
}

// Index is the result of partitioning a category universe into the
// categories that support a property and the ones that do not. Supporting
// and NonSupporting are disjoint and their union is the universe the index
// was built from.
type Index struct {
	// Key is the property the universe was partitioned by.
	Key model.PropertyKey
	// Supporting holds the categories that can carry Key.
	Supporting sets.Set[model.Category]
	// NonSupporting holds the rest of the universe.
	NonSupporting sets.Set[model.Category]
}

// Universe returns the union of both halves.
func (p Index) Universe() sets.Set[model.Category] {
	return p.Supporting.Union(p.NonSupporting)
}

// Inverse returns the index with both halves swapped, i.e. the categories
// that cannot be filtered by Key come first.
func (p Index) Inverse() Index {
	return Index{
		Key:           p.Key,
		Supporting:    p.NonSupporting.Clone(),
		NonSupporting: p.Supporting.Clone(),
	}
}

// Partition queries every category of universe and returns the split.
// A failing query aborts the whole partition; no partial result is returned.
// An empty universe yields two empty sets.
func Partition(ctx context.Context, universe sets.Set[model.Category], key model.PropertyKey, q CapabilityQuery) (Index, error) {
	supporting := sets.New[model.Category]()

	// Sorted iteration keeps query order, and therefore the first reported
	// failure, deterministic.
	for _, c := range sets.List(universe) {
		select {
		case <-ctx.Done():
			return Index{}, ctx.Err()
		default:
		}

		ok, err := q.SupportsProperty(c, key)
		if err != nil {
			return Index{}, wrapQueryErr(c, err)
		}

		if ok {
			supporting.Insert(c)
		}
	}

	return Index{
		Key:           key,
		Supporting:    supporting,
		NonSupporting: universe.Difference(supporting),
	}, nil
}

func wrapQueryErr(c model.Category, err error) error {
	if errors.Is(err, ErrCapabilityQueryUnavailable) {
		return fmt.Errorf("partitioning categories: %w", err)
	}

	return fmt.Errorf("partitioning categories: category %q: %w: %w", c, ErrCapabilityQueryUnavailable, err)
}

// WithOverrides returns a query that answers from forced for the categories
// it names when asked about key, and delegates to q for everything else.
func WithOverrides(q CapabilityQuery, key model.PropertyKey, forced map[model.Category]bool) CapabilityQuery {
	if len(forced) == 0 {
		return q
	}

	return QueryFunc(func(c model.Category, k model.PropertyKey) (bool, error) {
		if v, ok := forced[c]; ok && k == key {
			return v, nil
		}

		return q.SupportsProperty(c, k)
	})
}
