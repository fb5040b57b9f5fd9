package isolate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/hupe1980/sysisolate/internal/category"
	"github.com/hupe1980/sysisolate/internal/logging"
	"github.com/hupe1980/sysisolate/internal/model"
	"github.com/hupe1980/sysisolate/internal/plan"
)

// ErrApplyFailed is returned when the host refused to install a plan.
var ErrApplyFailed = errors.New("plan could not be applied")

// Session runs the full pick, plan, apply sequence against one view.
type Session struct {
	// Key is the group property; model.DefaultGroupKey when empty.
	Key model.PropertyKey
	// CaseSensitive makes group name comparisons exact.
	CaseSensitive bool
	// Universe is the category universe of the view.
	Universe sets.Set[model.Category]
	// Query answers capability questions for the universe.
	Query category.CapabilityQuery
	// Applier installs the plan; the plan is only computed when nil.
	Applier plan.Applier
}

// Run asks sel for an object, isolates its groups and applies the plan. A
// cancelled pick yields (nil, Cancelled, nil).
func (s *Session) Run(ctx context.Context, sel Selector) (*plan.FilterPlan, Outcome, error) {
	logger := logging.FromContext(ctx)

	obj, err := sel.Select(ctx)
	if err != nil {
		if Classify(err) == Cancelled {
			logger.Info("selection cancelled")
			return nil, Cancelled, nil
		}

		return nil, Failed, fmt.Errorf("selecting object: %w", err)
	}

	p, err := Isolate(ctx, Request{
		Object:        obj,
		Key:           s.Key,
		Universe:      s.Universe,
		Query:         s.Query,
		CaseSensitive: s.CaseSensitive,
	})
	if err != nil {
		return nil, Classify(err), err
	}

	if s.Applier == nil {
		return p, Succeeded, nil
	}

	res := s.Applier.Apply(ctx, p)
	if !res.OK() {
		return nil, Failed, fmt.Errorf("%w: %w", ErrApplyFailed, res.Err())
	}

	logger.Info("isolated groups",
		slog.String("object", obj.ID),
		slog.String("groups", p.GroupLabel),
	)

	return p, Succeeded, nil
}
