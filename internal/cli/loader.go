package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/sysisolate/internal/category"
	"github.com/hupe1980/sysisolate/internal/config"
	"github.com/hupe1980/sysisolate/internal/isolate"
	"github.com/hupe1980/sysisolate/internal/logging"
	"github.com/hupe1980/sysisolate/internal/model"
	"github.com/hupe1980/sysisolate/internal/output"
	"github.com/hupe1980/sysisolate/internal/plan"
)

// engine bundles a loaded model with the configuration every command
// builds plans from.
type engine struct {
	model     *model.Model
	cfg       *config.Config
	overrides *config.Overrides
	query     category.CapabilityQuery
}

// loadEngine loads the model at path and applies the capability overrides
// of the active config file.
func loadEngine(ctx context.Context, path string) (*engine, error) {
	logger := logging.FromContext(ctx)

	cfg := config.FromContext(ctx)

	m, err := model.Load(path)
	if err != nil {
		return nil, &ExitError{Code: exitInvalidArgs, Err: err}
	}

	ov, err := config.LoadOverrides(config.ConfigFileFromContext(ctx))
	if err != nil {
		return nil, &ExitError{Code: exitInvalidArgs, Err: err}
	}

	forced := make(map[model.Category]bool, len(ov.Capabilities))
	for name, supports := range ov.Capabilities {
		forced[model.Category(name)] = supports
	}

	logger.Debug("model loaded",
		slog.String("path", path),
		slog.Int("categories", len(m.Categories())),
		slog.Int("objects", len(m.Objects())),
		slog.Int("capabilityOverrides", len(forced)),
	)

	return &engine{
		model:     m,
		cfg:       cfg,
		overrides: ov,
		query:     category.WithOverrides(m, model.PropertyKey(cfg.GroupKey), forced),
	}, nil
}

func (e *engine) key() model.PropertyKey {
	return model.PropertyKey(e.cfg.GroupKey)
}

// session returns an isolate session over the whole model.
func (e *engine) session(applier plan.Applier) *isolate.Session {
	return &isolate.Session{
		Key:           e.key(),
		CaseSensitive: e.cfg.CaseSensitive,
		Universe:      e.model.Universe(),
		Query:         e.query,
		Applier:       applier,
	}
}

// lookup returns the object with the given ID.
func (e *engine) lookup(id string) (*model.TaggedObject, error) {
	obj, ok := e.model.Object(id)
	if !ok {
		return nil, &ExitError{Code: exitInvalidArgs, Err: fmt.Errorf("unknown object %q", id)}
	}

	return obj, nil
}

// planFor isolates the groups of the object with the given ID.
func (e *engine) planFor(ctx context.Context, id string) (*plan.FilterPlan, error) {
	obj, err := e.lookup(id)
	if err != nil {
		return nil, err
	}

	p, err := isolate.Isolate(ctx, isolate.Request{
		Object:        obj,
		Key:           e.key(),
		Universe:      e.model.Universe(),
		Query:         e.query,
		CaseSensitive: e.cfg.CaseSensitive,
	})
	if err != nil {
		return nil, engineExit(err)
	}

	return p, nil
}

// selector returns the pick step: the object named by id, or an
// interactive prompt when id is empty.
func (e *engine) selector(id string, p *prompt) isolate.Selector {
	if id == "" {
		return p
	}

	return isolate.SelectorFunc(func(context.Context) (*model.TaggedObject, error) {
		return e.lookup(id)
	})
}

// loadPlanFile reads a serialized plan from disk.
func loadPlanFile(path string) (*plan.FilterPlan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided plan file
	if err != nil {
		return nil, &ExitError{Code: exitFailure, Err: fmt.Errorf("reading plan file: %w", err)}
	}

	p, err := output.ReadPlan(data)
	if err != nil {
		return nil, &ExitError{Code: exitInvalidArgs, Err: fmt.Errorf("%s: %w", path, err)}
	}

	return p, nil
}

// resolveFormat returns the plan format to emit: the --format flag when set,
// the configured output format otherwise.
func resolveFormat(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}

	return cfg.OutputFormat
}

// writePlan encodes p in the requested format and writes it to the output
// file, or to stdout for dry runs and when no file was given.
func writePlan(ctx context.Context, stdout io.Writer, p *plan.FilterPlan, opts planOutputOptions, cfg *config.Config) error {
	format := resolveFormat(opts.format, cfg)

	data, err := output.DefaultRegistry().Encode(format, p)
	if err != nil {
		return &ExitError{Code: exitInvalidArgs, Err: err}
	}

	path := opts.output
	if opts.dryRun {
		path = ""
	}

	if err := output.NewWriter(path, stdout).Write(data); err != nil {
		return &ExitError{Code: exitFailure, Err: fmt.Errorf("writing plan: %w", err)}
	}

	if path != "" {
		logging.FromContext(ctx).Info("plan written", slog.String("path", path), slog.String("format", format))
	}

	return nil
}
