// Package view is an in-memory stand-in for a host view: a named set of
// installed visibility filters that can be evaluated against objects.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hupe1980/sysisolate/internal/filter"
	"github.com/hupe1980/sysisolate/internal/logging"
	"github.com/hupe1980/sysisolate/internal/model"
	"github.com/hupe1980/sysisolate/internal/plan"
)

// ErrFilterExists is returned when a filter name is already installed.
var ErrFilterExists = errors.New("filter already exists")

// View holds the filters installed in one view. It is safe for concurrent
// use.
type View struct {
	name string

	mu      sync.RWMutex
	filters []plan.FilterSpec
}

// New creates an empty view.
func New(name string) *View {
	return &View{name: name}
}

// Name returns the view name.
func (v *View) Name() string {
	return v.name
}

// Install adds spec to the view. Filter names are unique per view.
func (v *View) Install(spec plan.FilterSpec) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.installLocked(spec)
}

func (v *View) installLocked(spec plan.FilterSpec) error {
	if v.indexLocked(spec.Name) >= 0 {
		return fmt.Errorf("%w: %q in view %s", ErrFilterExists, spec.Name, v.name)
	}

	v.filters = append(v.filters, spec)

	return nil
}

// Remove uninstalls the named filter and reports whether it was present.
func (v *View) Remove(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.removeLocked(name)
}

func (v *View) removeLocked(name string) bool {
	i := v.indexLocked(name)
	if i < 0 {
		return false
	}

	v.filters = append(v.filters[:i], v.filters[i+1:]...)

	return true
}

func (v *View) indexLocked(name string) int {
	for i, f := range v.filters {
		if f.Name == name {
			return i
		}
	}

	return -1
}

// Filters returns a copy of the installed filters in install order.
func (v *View) Filters() []plan.FilterSpec {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]plan.FilterSpec, len(v.filters))
	copy(out, v.filters)

	return out
}

// Clear removes every installed filter.
func (v *View) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.filters = nil
}

// Apply installs both filters of p as one unit: when the second install
// fails the first one is rolled back, and the view is left unchanged.
func (v *View) Apply(ctx context.Context, p *plan.FilterPlan) plan.ApplyResult {
	if err := ctx.Err(); err != nil {
		return plan.Failed("%v", err)
	}

	if err := p.Validate(); err != nil {
		return plan.Failed("%v", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	var installed []string

	for _, spec := range p.Specs() {
		if err := v.installLocked(spec); err != nil {
			for _, name := range installed {
				v.removeLocked(name)
			}

			return plan.Failed("%v", err)
		}

		installed = append(installed, spec.Name)
	}

	logging.FromContext(ctx).Debug("applied plan",
		slog.String("view", v.name),
		slog.Int("filters", len(installed)),
	)

	return plan.Ok()
}

// Evaluate runs objects through the installed filters, followed by any
// extra filters, and returns which objects remain visible.
func (v *View) Evaluate(ctx context.Context, objects []*model.TaggedObject, extra ...filter.Filter) (*filter.Result, error) {
	specs := v.Filters()
	chain := make([]filter.Filter, 0, len(specs)+len(extra))

	for _, s := range specs {
		chain = append(chain, filter.NewSpecFilter(s))
	}

	chain = append(chain, extra...)

	return filter.NewChain(chain...).Apply(ctx, objects)
}

// Visible reports whether obj is visible in the view. For a hidden object
// it also returns the reason.
func (v *View) Visible(ctx context.Context, obj *model.TaggedObject) (bool, string, error) {
	r, err := v.Evaluate(ctx, []*model.TaggedObject{obj})
	if err != nil {
		return false, "", err
	}

	if len(r.Excluded) > 0 {
		ex := r.Excluded[0]
		return false, fmt.Sprintf("%s: %s", ex.Filter, ex.Reason), nil
	}

	return true, "", nil
}
