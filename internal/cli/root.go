// Package cli implements the cobra command tree for sysisolate.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sysisolate/internal/config"
	"github.com/hupe1980/sysisolate/internal/isolate"
	"github.com/hupe1980/sysisolate/internal/logging"
)

// Process exit codes.
const (
	exitOK                         = 0
	exitFailure                    = 1
	exitInvalidArgs                = 2
	exitNoGroupProperty            = 3
	exitEmptyGroupSelector         = 4
	exitCapabilityQueryUnavailable = 5
	exitApplyFailed                = 6
	exitCancelled                  = 10
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// engineExit maps an engine error to an ExitError carrying its exit code.
func engineExit(err error) error {
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	code := exitFailure

	switch {
	case errors.Is(err, isolate.ErrNoGroupProperty):
		code = exitNoGroupProperty
	case errors.Is(err, isolate.ErrEmptyGroupSelector):
		code = exitEmptyGroupSelector
	case errors.Is(err, isolate.ErrCapabilityQueryUnavailable):
		code = exitCapabilityQueryUnavailable
	case errors.Is(err, isolate.ErrApplyFailed):
		code = exitApplyFailed
	case errors.Is(err, isolate.ErrCancelled), errors.Is(err, context.Canceled):
		code = exitCancelled
	}

	return &ExitError{Code: code, Err: err}
}

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Code != exitCancelled {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", exitErr)
			}

			return exitErr.Code
		}

		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)

		return exitFailure
	}

	return exitOK
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "sysisolate",
		Short: "Isolate the systems of a picked object in a view",
		Long: `sysisolate computes the visibility filters that isolate one or more
groups (systems) of a building model in a view.

Pick an object: its group property (system-name by default) names the
groups to keep. sysisolate hides every category that cannot carry the
property and every object that belongs to none of the picked groups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: exitInvalidArgs, Err: err}
			}

			logger := logging.Setup(cfg)

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = config.NewContextWithConfigFile(ctx, cfg.ConfigFile)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("groupKey", cfg.GroupKey),
				slog.String("configFile", cfg.ConfigFile),
			)

			return nil
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .sysisolate.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")
	pf.String("group-key", config.DefaultGroupKey, "property naming an object's groups")
	pf.Bool("case-sensitive", false, "compare group names case-sensitively")
	pf.String("output-format", config.OutputFormatYAML, "plan serialization format: yaml, json")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: exitInvalidArgs, Err: err}
	})

	cmd.AddCommand(
		newVersionCommand(),
		newIsolateCommand(),
		newPartitionCommand(),
		newApplyCommand(),
		newDiffCommand(),
		newWatchCommand(),
		newCompletionCommand(),
	)

	return cmd
}
