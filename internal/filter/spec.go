package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/sysisolate/internal/model"
	"github.com/hupe1980/sysisolate/internal/plan"
	"github.com/hupe1980/sysisolate/internal/rule"
)

// SpecFilter hides the objects matched by a plan filter spec: objects of the
// spec's categories that match all of its rules.
type SpecFilter struct {
	spec plan.FilterSpec
}

// NewSpecFilter creates a filter enforcing spec.
func NewSpecFilter(spec plan.FilterSpec) *SpecFilter {
	return &SpecFilter{spec: spec}
}

// Name returns the name of the wrapped spec.
func (f *SpecFilter) Name() string {
	return f.spec.Name
}

// Apply hides matching objects when the spec's visibility is hidden; a
// visible spec passes every object through.
func (f *SpecFilter) Apply(_ context.Context, objects []*model.TaggedObject) (*Result, error) {
	r := NewResult()

	for _, o := range objects {
		if f.spec.Visibility == plan.Hidden && f.spec.Matches(o) {
			r.Excluded = append(r.Excluded, ExcludedObject{
				Object: o,
				Filter: f.spec.Name,
				Reason: f.reason(o),
			})
		} else {
			r.Included = append(r.Included, o)
		}
	}

	return r, nil
}

func (f *SpecFilter) reason(o *model.TaggedObject) string {
	if len(f.spec.Rules) == 0 {
		return fmt.Sprintf("category %s cannot carry the group property", o.Category)
	}

	key := f.spec.Rules[0].Key
	if rule.MissingProperty(key).Matches(o) {
		return fmt.Sprintf("%s has no value", key)
	}

	v, _ := o.Lookup(key)

	tokens := make([]string, 0, len(f.spec.Rules))
	for _, r := range f.spec.Rules {
		tokens = append(tokens, r.Token)
	}

	return fmt.Sprintf("%s %q is none of [%s]", key, strings.TrimSpace(*v), strings.Join(tokens, ", "))
}

// PlanChain returns a chain enforcing both filters of p in install order.
func PlanChain(p *plan.FilterPlan) *Chain {
	specs := p.Specs()
	filters := make([]Filter, 0, len(specs))

	for _, s := range specs {
		filters = append(filters, NewSpecFilter(s))
	}

	return NewChain(filters...)
}
