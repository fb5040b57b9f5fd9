// Package isolate turns a picked object into the filter plan that hides
// everything outside the object's groups.
//
// The data flow is: read the group property of the picked object, build one
// rule per group token, partition the category universe by whether its
// categories can carry the property, and compose the two hidden filters.
// Every failure is terminal; no partial plan is ever returned.
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
	"github.com/hupe1980/sysisolate/internal/rule"
)

var (
	// ErrNoGroupProperty is returned when the picked object does not carry
	// the group property at all.
	ErrNoGroupProperty = errors.New("object has no group property")

	// ErrEmptyGroupSelector is returned when the group property yields no
	// group names.
	ErrEmptyGroupSelector = rule.ErrEmptyGroupSelector

	// ErrCapabilityQueryUnavailable is returned when a category's capability
	// could not be determined.
	ErrCapabilityQueryUnavailable = category.ErrCapabilityQueryUnavailable

	// ErrCancelled is returned by a Selector when the user aborted the pick.
	// It is an outcome, not a failure.
	ErrCancelled = errors.New("selection cancelled")
)

// Request is the input of a single isolate operation.
type Request struct {
	// Object is the picked object.
	Object *model.TaggedObject
	// Key is the group property; model.DefaultGroupKey when empty.
	Key model.PropertyKey
	// Universe is the set of categories the plan covers.
	Universe sets.Set[model.Category]
	// Query answers capability questions for the universe.
	Query category.CapabilityQuery
	// CaseSensitive makes group name comparisons exact.
	CaseSensitive bool
}

// Isolate computes the filter plan isolating the groups of req.Object.
func Isolate(ctx context.Context, req Request) (*plan.FilterPlan, error) {
	if req.Object == nil {
		return nil, errors.New("isolate: no object picked")
	}

	if req.Query == nil {
		return nil, errors.New("isolate: no capability query")
	}

	key := req.Key
	if key == "" {
		key = model.DefaultGroupKey
	}

	logger := logging.FromContext(ctx).With(slog.String("object", req.Object.ID), slog.String("key", string(key)))

	v, ok := req.Object.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s", ErrNoGroupProperty, req.Object, key)
	}

	raw := ""
	if v != nil {
		raw = *v
	}

	rules, err := rule.Build(key, raw, rule.BuildOptions{CaseSensitive: req.CaseSensitive})
	if err != nil {
		return nil, fmt.Errorf("isolating %s: %w", req.Object, err)
	}

	logger.Debug("parsed group selector", slog.String("selector", raw), slog.Int("tokens", len(rules)))

	idx, err := category.Partition(ctx, req.Universe, key, req.Query)
	if err != nil {
		return nil, fmt.Errorf("isolating %s: %w", req.Object, err)
	}

	logger.Debug("partitioned categories",
		slog.Int("supporting", idx.Supporting.Len()),
		slog.Int("non_supporting", idx.NonSupporting.Len()),
	)

	p, err := plan.Compose(idx, rules, raw)
	if err != nil {
		return nil, fmt.Errorf("isolating %s: %w", req.Object, err)
	}

	return p, nil
}

// Selectable reports whether obj may be picked for isolation: it must carry
// a non-blank value for key.
func Selectable(obj *model.TaggedObject, key model.PropertyKey) bool {
	return obj != nil && obj.HasValue(key)
}

// Selector is the upstream pick step. Implementations return ErrCancelled
// when the user aborts.
type Selector interface {
	Select(ctx context.Context) (*model.TaggedObject, error)
}

// SelectorFunc adapts a plain function to the Selector interface.
type SelectorFunc func(ctx context.Context) (*model.TaggedObject, error)

// Select calls f.
func (f SelectorFunc) Select(ctx context.Context) (*model.TaggedObject, error) {
	return f(ctx)
}

// Outcome classifies how a pick-and-isolate session ended.
type Outcome int

// Outcome values.
const (
	Succeeded Outcome = iota
	Cancelled
	Failed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Classify maps the error of a session to its outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Succeeded
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return Cancelled
	default:
		return Failed
	}
}
