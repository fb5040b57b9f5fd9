package cli

import (
	"github.com/spf13/cobra"
)

// engineOptions are the flags shared by every command that picks an object.
type engineOptions struct {
	// object is the ID of the picked object.
	object string
}

// planOutputOptions control where and how a plan is emitted.
type planOutputOptions struct {
	// output is the plan file path; stdout when empty.
	output string

	// format overrides the configured output format: yaml, json, text, compact.
	format string

	// dryRun prints instead of writing the output file.
	dryRun bool
}

// registerObjectFlags adds the object selection flags to a cobra command.
func registerObjectFlags(cmd *cobra.Command, opts *engineOptions) {
	cmd.Flags().StringVar(&opts.object, "object", "", "ID of the picked object (prompts on stdin when empty)")
}

// registerPlanOutputFlags adds the plan output flags to a cobra command.
func registerPlanOutputFlags(cmd *cobra.Command, opts *planOutputOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "write the plan to a file instead of stdout")
	f.StringVar(&opts.format, "format", "", "plan format: yaml, json, text, compact (default: output-format)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the plan instead of writing the output file")
}
