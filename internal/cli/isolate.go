package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sysisolate/internal/config"
	"github.com/hupe1980/sysisolate/internal/isolate"
	"github.com/hupe1980/sysisolate/internal/logging"
)

type isolateOptions struct {
	engineOptions
	planOutputOptions
}

func newIsolateCommand() *cobra.Command {
	opts := &isolateOptions{}

	cmd := &cobra.Command{
		Use:   "isolate <model>",
		Short: "Compute the filter plan isolating the groups of an object",
		Long: `Isolate reads the group property of the picked object and computes
the two filters that isolate its groups:

  objects without <key>       hides every category that cannot carry the
                              group property
  objects not in groups ...   hides objects of the remaining categories
                              whose value names none of the picked groups

Without --object the object is read interactively from stdin; an empty
line or end of input cancels the pick.

Exit codes:
  0   Plan written
  1   Error
  2   Invalid arguments, model or config
  3   Object has no group property
  4   Group property names no groups
  5   Category capability could not be determined
  10  Selection cancelled`,
		Example: `  # Isolate the systems of pipe p2 and print the plan as YAML
  sysisolate isolate plant.yaml --object p2

  # Write a JSON plan to a file
  sysisolate isolate plant.yaml --object p2 --format json -o plan.json

  # Pick the object interactively
  sysisolate isolate plant.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIsolate(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerObjectFlags(cmd, &opts.engineOptions)
	registerPlanOutputFlags(cmd, &opts.planOutputOptions)

	return cmd
}

func runIsolate(ctx context.Context, cmd *cobra.Command, modelPath string, opts *isolateOptions) error {
	ctx = logging.With(ctx, slog.String("model", modelPath))

	e, err := loadEngine(ctx, modelPath)
	if err != nil {
		return err
	}

	sel := e.selector(opts.object, newPrompt(cmd.InOrStdin(), cmd.ErrOrStderr(), e.model, e.key()))

	p, outcome, err := e.session(nil).Run(ctx, sel)
	if err != nil {
		return engineExit(err)
	}

	if outcome == isolate.Cancelled {
		return cancelled(cmd)
	}

	return writePlan(ctx, cmd.OutOrStdout(), p, opts.planOutputOptions, e.cfg)
}

// cancelled reports a cancelled pick and returns the cancelled exit code.
func cancelled(cmd *cobra.Command) error {
	if !quiet(cmd) {
		fmt.Fprintln(cmd.ErrOrStderr(), "selection cancelled, nothing changed")
	}

	return &ExitError{Code: exitCancelled, Err: isolate.ErrCancelled}
}

// quiet reports whether non-essential output is suppressed.
func quiet(cmd *cobra.Command) bool {
	return config.FromContext(cmd.Context()).Quiet
}
