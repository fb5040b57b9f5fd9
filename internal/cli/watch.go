package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sysisolate/internal/config"
	"github.com/hupe1980/sysisolate/internal/logging"
	"github.com/hupe1980/sysisolate/internal/output"
	"github.com/hupe1980/sysisolate/internal/plan"
	"github.com/hupe1980/sysisolate/internal/watch"
)

type watchOptions struct {
	planOutputOptions

	// object is the ID of the picked object.
	object string

	// Watch-specific options.
	debounce time.Duration
	validate bool
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <model>",
		Short: "Watch a model for changes and regenerate the plan",
		Long: `Watch monitors the model file (and the config file, if any) and
re-computes the plan of the picked object whenever they change.

File changes are debounced to avoid rapid re-runs. Each regeneration
reports the isolated groups, the number of governed categories, and how
the plan changed since the previous run.

Use --validate (enabled by default) to read the written plan back and
check it after each generation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.object, "object", "", "ID of the picked object (required)")
	f.StringVarP(&opts.output, "output", "o", "", "output file path (required)")
	f.StringVar(&opts.format, "format", "", "plan format: yaml, json (default: output-format)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "preview output without writing")

	f.DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")
	f.BoolVar(&opts.validate, "validate", true, "auto-validate after each generation")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, modelPath string, opts *watchOptions) error {
	if opts.output == "" {
		return &ExitError{Code: exitInvalidArgs, Err: fmt.Errorf("--output (-o) is required for watch mode")}
	}

	if opts.object == "" {
		return &ExitError{Code: exitInvalidArgs, Err: fmt.Errorf("--object is required for watch mode")}
	}

	format := resolveFormat(opts.format, config.FromContext(ctx))
	if format != config.OutputFormatYAML && format != config.OutputFormatJSON {
		return &ExitError{Code: exitInvalidArgs, Err: fmt.Errorf("watch writes yaml or json plans, not %q", format)}
	}

	// Previous plan for change detection across regenerations.
	var prev *plan.FilterPlan

	runFn := func(fnCtx context.Context) (*watch.RunResult, error) {
		e, err := loadEngine(fnCtx, modelPath)
		if err != nil {
			return nil, err
		}

		p, err := e.planFor(fnCtx, opts.object)
		if err != nil {
			return nil, err
		}

		data, err := output.DefaultRegistry().Encode(format, p)
		if err != nil {
			return nil, err
		}

		result := &watch.RunResult{
			Groups:     p.GroupLabel,
			Categories: p.Universe().Len(),
		}

		if !opts.dryRun {
			if err := output.NewFileWriter(opts.output, output.WithLogger(logging.FromContext(fnCtx))).Write(data); err != nil {
				return nil, fmt.Errorf("writing output: %w", err)
			}

			result.OutputPath = opts.output
		}

		if prev != nil {
			result.Changes = plan.Changes(prev, p)
		}

		prev = p

		return result, nil
	}

	var validateFn watch.ValidateFunc
	if opts.validate {
		validateFn = validatePlanFile
	}

	files := []string{modelPath}
	if cfgFile := config.ConfigFileFromContext(ctx); cfgFile != "" {
		files = append(files, cfgFile)
	}

	watchOpts := watch.Options{
		Files:      files,
		Debounce:   opts.debounce,
		Validate:   opts.validate,
		ValidateFn: validateFn,
		Logger:     logging.FromContext(ctx),
		Out:        cmd.ErrOrStderr(),
	}

	if err := watch.Run(ctx, watchOpts, runFn); err != nil {
		return &ExitError{Code: exitFailure, Err: err}
	}

	return nil
}

// validatePlanFile reads a written plan back and checks its invariants.
func validatePlanFile(_ context.Context, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is the watch output file
	if err != nil {
		return fmt.Errorf("reading plan: %w", err)
	}

	if _, err := output.ReadPlan(data); err != nil {
		return err
	}

	return nil
}
