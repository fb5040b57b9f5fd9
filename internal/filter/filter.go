package filter

import (
	"context"

	"github.com/hupe1980/sysisolate/internal/model"
)

// Filter is the interface for all object filters.
// Filters are stateless: they receive a set of objects and return
// a result without modifying shared state.
type Filter interface {
	// Apply runs the filter on the given objects and returns a result.
	// The context allows cancellation of long-running filter operations.
	Apply(ctx context.Context, objects []*model.TaggedObject) (*Result, error)
}

// ExcludedObject records an object that was hidden by a filter.
type ExcludedObject struct {
	// Object is the hidden object.
	Object *model.TaggedObject
	// Filter is the name of the filter that hid the object.
	Filter string
	// Reason is a human-readable explanation for the exclusion.
	Reason string
}

// Result holds the outcome of a filter application.
type Result struct {
	// Included are the objects that passed the filter.
	Included []*model.TaggedObject
	// Excluded are the objects removed by the filter.
	Excluded []ExcludedObject
}

// NewResult creates an empty Result.
func NewResult() *Result {
	return &Result{}
}

// ExcludedIDs returns the IDs of the excluded objects in exclusion order.
func (r *Result) ExcludedIDs() []string {
	ids := make([]string, 0, len(r.Excluded))
	for _, ex := range r.Excluded {
		ids = append(ids, ex.Object.ID)
	}

	return ids
}

// IncludedIDs returns the IDs of the included objects.
func (r *Result) IncludedIDs() []string {
	ids := make([]string, 0, len(r.Included))
	for _, o := range r.Included {
		ids = append(ids, o.ID)
	}

	return ids
}

// Chain applies multiple filters sequentially, passing the included
// objects from each filter as input to the next.
type Chain struct {
	filters []Filter
}

// NewChain creates a filter chain from the given filters.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Apply runs all filters in order, accumulating excluded objects.
// Returns the combined result.
func (c *Chain) Apply(ctx context.Context, objects []*model.TaggedObject) (*Result, error) {
	combined := NewResult()
	current := objects

	for _, f := range c.filters {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		r, err := f.Apply(ctx, current)
		if err != nil {
			return nil, err
		}

		current = r.Included

		combined.Excluded = append(combined.Excluded, r.Excluded...)
	}

	combined.Included = current

	return combined, nil
}
