// Package sysisolate provides a public Go API for computing the view
// filters that isolate the groups (systems) of a building model.
//
// This package exposes the sysisolate engine as a library, allowing
// programmatic use without the CLI.
//
// Basic usage:
//
//	result, err := sysisolate.Isolate(ctx, "plant.yaml", "p2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(string(result.Data))
//
// With options:
//
//	result, err := sysisolate.Isolate(ctx, "plant.yaml", "p2",
//	    sysisolate.WithGroupKey("level"),
//	    sysisolate.WithFormat("json"),
//	    sysisolate.WithCapabilityOverrides(map[string]bool{"Links": false}),
//	)
package sysisolate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hupe1980/sysisolate/internal/category"
	"github.com/hupe1980/sysisolate/internal/filter"
	"github.com/hupe1980/sysisolate/internal/isolate"
	"github.com/hupe1980/sysisolate/internal/logging"
	"github.com/hupe1980/sysisolate/internal/model"
	"github.com/hupe1980/sysisolate/internal/output"
	"github.com/hupe1980/sysisolate/internal/view"
)

// Errors returned by Isolate. Use errors.Is to test for them.
var (
	ErrNoGroupProperty            = isolate.ErrNoGroupProperty
	ErrEmptyGroupSelector         = isolate.ErrEmptyGroupSelector
	ErrCapabilityQueryUnavailable = isolate.ErrCapabilityQueryUnavailable
	ErrApplyFailed                = isolate.ErrApplyFailed
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Option configures Isolate.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	groupKey          string
	caseSensitive     bool
	format            string
	capabilities      map[string]bool
	excludeCategories []string
	logger            *slog.Logger
}

// WithGroupKey sets the property naming an object's groups
// (default "system-name").
func WithGroupKey(key string) Option { return func(o *options) { o.groupKey = key } }

// WithCaseSensitive makes group name comparisons exact.
func WithCaseSensitive() Option { return func(o *options) { o.caseSensitive = true } }

// WithFormat sets the serialization format of Result.Data: yaml (default),
// json, text or compact.
func WithFormat(format string) Option { return func(o *options) { o.format = format } }

// WithCapabilityOverrides forces categories to be treated as supporting
// (true) or not supporting (false) the group property.
func WithCapabilityOverrides(caps map[string]bool) Option {
	return func(o *options) { o.capabilities = caps }
}

// WithExcludeCategories hides these categories when computing
// Result.Visible and Result.Hidden.
func WithExcludeCategories(categories []string) Option {
	return func(o *options) { o.excludeCategories = categories }
}

// WithLogger sets the logger used for debug output. By default nothing is
// logged.
func WithLogger(logger *slog.Logger) Option { return func(o *options) { o.logger = logger } }

func (o *options) applyDefaults() {
	if o.groupKey == "" {
		o.groupKey = string(model.DefaultGroupKey)
	}

	if o.format == "" {
		o.format = "yaml"
	}

	if o.logger == nil {
		o.logger = discardLogger()
	}
}

// Result holds the output of a successful isolation.
type Result struct {
	// Data is the serialized plan in the requested format.
	Data []byte

	// GroupLabel is the raw group property value of the picked object.
	GroupLabel string

	// Groups are the group names parsed from GroupLabel.
	Groups []string

	// HiddenCategories are the categories that cannot carry the group
	// property; all of their objects are hidden.
	HiddenCategories []string

	// FilteredCategories are the categories whose objects are hidden unless
	// they belong to one of Groups.
	FilteredCategories []string

	// Visible lists the IDs of the objects that remain visible.
	Visible []string

	// Hidden lists the IDs of the objects that are hidden.
	Hidden []string
}

// Isolate loads the model at modelPath, picks the object with the given ID
// and computes the plan isolating its groups. The plan is applied to a
// fresh view of the model to report which objects remain visible.
func Isolate(ctx context.Context, modelPath, objectID string, opts ...Option) (*Result, error) {
	if objectID == "" {
		return nil, errors.New("object ID must not be empty")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	o.applyDefaults()

	ctx = logging.NewContext(ctx, o.logger)

	m, err := model.Load(modelPath)
	if err != nil {
		return nil, err
	}

	obj, ok := m.Object(objectID)
	if !ok {
		return nil, fmt.Errorf("unknown object %q", objectID)
	}

	forced := make(map[model.Category]bool, len(o.capabilities))
	for name, supports := range o.capabilities {
		forced[model.Category(name)] = supports
	}

	v := view.New("sysisolate")

	s := &isolate.Session{
		Key:           model.PropertyKey(o.groupKey),
		CaseSensitive: o.caseSensitive,
		Universe:      m.Universe(),
		Query:         category.WithOverrides(m, model.PropertyKey(o.groupKey), forced),
		Applier:       v,
	}

	p, _, err := s.Run(ctx, isolate.SelectorFunc(func(context.Context) (*model.TaggedObject, error) {
		return obj, nil
	}))
	if err != nil {
		return nil, err
	}

	data, err := output.DefaultRegistry().Encode(o.format, p)
	if err != nil {
		return nil, err
	}

	var extra []filter.Filter
	if len(o.excludeCategories) > 0 {
		extra = append(extra, filter.NewCategoryFilter(o.excludeCategories))
	}

	evaluated, err := v.Evaluate(ctx, m.Objects(), extra...)
	if err != nil {
		return nil, fmt.Errorf("evaluating view: %w", err)
	}

	return &Result{
		Data:               data,
		GroupLabel:         p.GroupLabel,
		Groups:             p.Tokens(),
		HiddenCategories:   categoryNames(p.ExcludeNoProperty.Categories),
		FilteredCategories: categoryNames(p.ExcludeOutsideGroups.Categories),
		Visible:            evaluated.IncludedIDs(),
		Hidden:             evaluated.ExcludedIDs(),
	}, nil
}

func categoryNames(cs []model.Category) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = string(c)
	}

	return names
}
