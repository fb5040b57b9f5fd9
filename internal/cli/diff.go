package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sysisolate/internal/logging"
	"github.com/hupe1980/sysisolate/internal/plan"
)

type diffOptions struct {
	// object is the ID of the object whose plan is proposed.
	object string

	// against is the ID of a second object whose plan is the baseline.
	against string

	// existing is a plan file used as the baseline.
	existing string

	// Output format: "unified" (default), "json".
	format string
}

func newDiffCommand() *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff <model>",
		Short: "Compare the plan of an object against a baseline plan",
		Long: `Diff computes the plan for --object and compares it against a baseline:
either the plan of a second object (--against) or a plan file written by
a previous run (--existing).

The unified format prints a YAML diff followed by the structural changes
(groups added or removed, categories moved between the two filters).
The json format prints only the structural changes.`,
		Example: `  # How does isolating p1 differ from isolating p2?
  sysisolate diff plant.yaml --object p1 --against p2

  # Did the model change since plan.yaml was written?
  sysisolate diff plant.yaml --object p2 --existing plan.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.object, "object", "", "ID of the object whose plan is proposed (required)")
	f.StringVar(&opts.against, "against", "", "ID of an object whose plan is the baseline")
	f.StringVar(&opts.existing, "existing", "", "path to a plan file used as the baseline")
	f.StringVar(&opts.format, "format", "unified", "output format: unified, json")

	return cmd
}

func runDiff(ctx context.Context, cmd *cobra.Command, modelPath string, opts *diffOptions) error {
	if opts.object == "" {
		return &ExitError{Code: exitInvalidArgs, Err: fmt.Errorf("--object is required")}
	}

	if (opts.against == "") == (opts.existing == "") {
		return &ExitError{Code: exitInvalidArgs, Err: fmt.Errorf("exactly one of --against or --existing is required")}
	}

	if opts.format != "unified" && opts.format != "json" {
		return &ExitError{Code: exitInvalidArgs, Err: fmt.Errorf("invalid --format %q: must be unified or json", opts.format)}
	}

	ctx = logging.With(ctx, slog.String("model", modelPath))

	e, err := loadEngine(ctx, modelPath)
	if err != nil {
		return err
	}

	var (
		baseline      *plan.FilterPlan
		baselineLabel string
	)

	if opts.existing != "" {
		baseline, err = loadPlanFile(opts.existing)
		baselineLabel = opts.existing
	} else {
		baseline, err = e.planFor(ctx, opts.against)
		baselineLabel = opts.against
	}

	if err != nil {
		return err
	}

	proposed, err := e.planFor(ctx, opts.object)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if opts.format == "json" {
		changes := plan.Changes(baseline, proposed)
		if changes == nil {
			changes = []plan.Change{}
		}

		data, err := json.MarshalIndent(changes, "", "  ")
		if err != nil {
			return &ExitError{Code: exitFailure, Err: fmt.Errorf("encoding changes: %w", err)}
		}

		_, err = fmt.Fprintln(w, string(data))

		return err
	}

	diffOpts := plan.DefaultDiffOptions()
	diffOpts.OldLabel = baselineLabel
	diffOpts.NewLabel = opts.object

	result, err := plan.DiffPlans(baseline, proposed, diffOpts)
	if err != nil {
		return &ExitError{Code: exitFailure, Err: fmt.Errorf("computing diff: %w", err)}
	}

	plan.WriteDiff(w, result, !e.cfg.NoColor)

	return nil
}
