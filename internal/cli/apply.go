package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sysisolate/internal/filter"
	"github.com/hupe1980/sysisolate/internal/isolate"
	"github.com/hupe1980/sysisolate/internal/logging"
	"github.com/hupe1980/sysisolate/internal/plan"
	"github.com/hupe1980/sysisolate/internal/view"
)

type applyOptions struct {
	engineOptions

	// viewName names the view the plan is applied to.
	viewName string

	// existingFilters are filter names already present in the view.
	existingFilters []string

	// excludeCategories are hidden in addition to the plan.
	excludeCategories []string

	// excludeObjects are object IDs hidden in addition to the plan.
	excludeObjects []string

	// where hides objects matching a property selector.
	where string

	// show selects which objects are listed: all, visible, hidden.
	show string
}

func newApplyCommand() *cobra.Command {
	opts := &applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply <model>",
		Short: "Apply the isolation plan to a view and list what stays visible",
		Long: `Apply computes the plan for the picked object, installs both filters
in a view of the model and reports which objects remain visible. Every
hidden object is listed with the filter that hides it.

Both filters are installed as a unit: when the view already holds a
filter with one of the plan's names, nothing is installed.

Exit codes:
  0   Plan applied
  1   Error
  2   Invalid arguments, model or config
  3   Object has no group property
  4   Group property names no groups
  5   Category capability could not be determined
  6   The view refused the plan
  10  Selection cancelled`,
		Example: `  # Show what stays visible when isolating the systems of p2
  sysisolate apply plant.yaml --object p2

  # Additionally hide doors and everything on level L1
  sysisolate apply plant.yaml --object p2 --exclude-categories Doors --where level=L1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerObjectFlags(cmd, &opts.engineOptions)

	f := cmd.Flags()
	f.StringVar(&opts.viewName, "view", "active view", "name of the view the plan is applied to")
	f.StringArrayVar(&opts.existingFilters, "existing-filter", nil, "name of a filter already installed in the view (repeatable, not split on commas)")
	f.StringSliceVar(&opts.excludeCategories, "exclude-categories", nil, "hide these categories as well (comma-separated)")
	f.StringSliceVar(&opts.excludeObjects, "exclude-objects", nil, "hide these object IDs as well (comma-separated)")
	f.StringVar(&opts.where, "where", "", "hide objects matching a property selector (e.g. level=L1,diameter in (DN50,DN80))")
	f.StringVar(&opts.show, "show", "all", "objects to list: all, visible, hidden")

	return cmd
}

func runApply(ctx context.Context, cmd *cobra.Command, modelPath string, opts *applyOptions) error {
	switch opts.show {
	case "all", "visible", "hidden":
	default:
		return &ExitError{Code: exitInvalidArgs, Err: fmt.Errorf("invalid --show %q: must be all, visible or hidden", opts.show)}
	}

	extra, err := extraFilters(opts)
	if err != nil {
		return err
	}

	ctx = logging.With(ctx, slog.String("model", modelPath))

	e, err := loadEngine(ctx, modelPath)
	if err != nil {
		return err
	}

	if len(e.overrides.ExcludeCategories) > 0 {
		extra = append(extra, filter.NewCategoryFilter(e.overrides.ExcludeCategories))
	}

	v := view.New(opts.viewName)

	for _, name := range opts.existingFilters {
		if err := v.Install(plan.FilterSpec{Name: name, Visibility: plan.Hidden}); err != nil {
			return &ExitError{Code: exitInvalidArgs, Err: err}
		}
	}

	sel := e.selector(opts.object, newPrompt(cmd.InOrStdin(), cmd.ErrOrStderr(), e.model, e.key()))

	p, outcome, err := e.session(v).Run(ctx, sel)
	if err != nil {
		return engineExit(err)
	}

	if outcome == isolate.Cancelled {
		return cancelled(cmd)
	}

	result, err := v.Evaluate(ctx, e.model.Objects(), extra...)
	if err != nil {
		return engineExit(err)
	}

	logging.FromContext(ctx).Debug("view evaluated",
		slog.String("view", v.Name()),
		slog.Int("visible", len(result.Included)),
		slog.Int("hidden", len(result.Excluded)),
	)

	writeApplyReport(cmd.OutOrStdout(), v.Name(), p, result, opts.show)

	return nil
}

// extraFilters builds the filters given on the command line.
func extraFilters(opts *applyOptions) ([]filter.Filter, error) {
	var extra []filter.Filter

	if len(opts.excludeCategories) > 0 {
		extra = append(extra, filter.NewCategoryFilter(opts.excludeCategories))
	}

	if len(opts.excludeObjects) > 0 {
		extra = append(extra, filter.NewIDFilter(opts.excludeObjects))
	}

	if opts.where != "" {
		pf, err := filter.NewPropertyFilter(opts.where)
		if err != nil {
			return nil, &ExitError{Code: exitInvalidArgs, Err: err}
		}

		extra = append(extra, pf)
	}

	return extra, nil
}

func writeApplyReport(w io.Writer, viewName string, p *plan.FilterPlan, r *filter.Result, show string) {
	fmt.Fprintf(w, "Isolated %s = %s in view %q\n", p.Key, p.GroupLabel, viewName)

	if show != "hidden" {
		fmt.Fprintf(w, "\nVisible (%d):\n", len(r.Included))

		for _, o := range r.Included {
			fmt.Fprintf(w, "  %s\n", o)
		}
	}

	if show != "visible" {
		fmt.Fprintf(w, "\nHidden (%d):\n", len(r.Excluded))

		for _, ex := range r.Excluded {
			fmt.Fprintf(w, "  %-24s %s: %s\n", ex.Object.String(), ex.Filter, ex.Reason)
		}
	}
}
