// Package cmd provides the CLI commands for mvmatch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/logging"
	"github.com/openrecon/mvmatch/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the mvmatch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mvmatch",
		Short: "Putative descriptor matching for multi-view reconstruction",
		Long: `mvmatch computes putative feature correspondences between image pairs
of a scene: for every candidate pair it searches nearest-neighbor
descriptors and keeps matches that pass the distance ratio test.

The result file feeds the geometric filtering stage of the
reconstruction pipeline.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("mvmatch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.mvmatch/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRun = stopLogging

	cmd.AddCommand(newMatchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// reportError prints a structured error to stderr and passes it through so
// the process exits non-zero.
func reportError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), errors.FormatForCLI(err))
	return err
}

// startLogging installs the default logger. Debug mode adds file logging
// under ~/.mvmatch/logs/.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
		slog.SetDefault(slog.New(handler))
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("Debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

// stopLogging flushes the debug log file if one was opened.
func stopLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
