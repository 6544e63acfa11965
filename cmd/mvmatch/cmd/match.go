package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/openrecon/mvmatch/internal/config"
	"github.com/openrecon/mvmatch/internal/logging"
	"github.com/openrecon/mvmatch/internal/pipeline"
	"github.com/openrecon/mvmatch/internal/progress"
)

// matchFlags carries all match command flags.
type matchFlags struct {
	scene      string
	output     string
	pairList   string
	ratio      float64
	method     string
	force      bool
	cacheSize  int
	workers    int
	noProgress bool
}

// newMatchCmd creates the match command, the main run of the tool.
func newMatchCmd() *cobra.Command {
	flags := &matchFlags{}

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Compute putative matches for the candidate pairs",
		Long: `Compute putative feature correspondences for every candidate view pair.

For each pair, descriptors of the first view are matched against the
second with the selected nearest-neighbor method, and only matches
passing the distance ratio test are kept. If the output file already
exists the stored result is reused unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.buildConfig(cmd)
			if err != nil {
				return reportError(cmd, err)
			}
			if err := cfg.Validate(); err != nil {
				return reportError(cmd, err)
			}
			return reportError(cmd, runMatch(cmd, cfg))
		},
	}

	flags.register(cmd)
	return cmd
}

func (f *matchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.scene, "input", "i", "", "Scene description file (required)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output match file (required)")
	cmd.Flags().StringVarP(&f.pairList, "pair-list", "p", "", "Candidate pair list file (required)")
	cmd.Flags().Float64VarP(&f.ratio, "ratio", "r", config.DefaultRatio, "Nearest/second-nearest distance ratio")
	cmd.Flags().StringVarP(&f.method, "nearest-matching-method", "n", "AUTO", "Matching method (AUTO, BRUTEFORCEL2, HNSWL2, ANNL2, CASCADEHASHINGL2, FASTCASCADEHASHINGL2, BRUTEFORCEHAMMING)")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Recompute matches even if the output file exists")
	cmd.Flags().IntVarP(&f.cacheSize, "cache-size", "c", 0, "Regions cache capacity; 0 keeps all regions in memory")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Pair matching workers; 0 means all CPUs")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "Disable the progress reporter")
}

// buildConfig merges the optional dataset config file and environment
// overrides, then applies the changed flags on top.
func (f *matchFlags) buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(sceneDir(f.scene))
	if err != nil {
		return nil, err
	}
	cfg.ScenePath = f.scene
	cfg.OutputPath = f.output
	cfg.PairListPath = f.pairList
	if cmd.Flags().Changed("ratio") {
		cfg.Ratio = f.ratio
	}
	if cmd.Flags().Changed("nearest-matching-method") {
		cfg.Method = f.method
	}
	if cmd.Flags().Changed("cache-size") {
		cfg.CacheSize = f.cacheSize
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = f.workers
	}
	cfg.Force = cfg.Force || f.force
	cfg.NoProgress = cfg.NoProgress || f.noProgress
	return cfg, nil
}

// applyLogLevel reinstalls the default logger at the configured level.
// Debug mode already routes everything through the debug file handler.
func applyLogLevel(cfg *config.Config) {
	if debugMode {
		return
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.LevelFromString(cfg.LogLevel),
	})
	slog.SetDefault(slog.New(handler))
}

// runMatch executes the matching pipeline with progress on interactive
// terminals.
func runMatch(cmd *cobra.Command, cfg *config.Config) error {
	applyLogLevel(cfg)

	opts := []pipeline.Option{pipeline.WithLogger(slog.Default())}
	if !cfg.NoProgress && isatty.IsTerminal(os.Stderr.Fd()) {
		opts = append(opts, pipeline.WithObserver(progress.NewTracker(os.Stderr, 50)))
	}

	result, err := pipeline.NewRunner(cfg, opts...).Run(cmd.Context())
	if err != nil {
		return err
	}

	if result.Resumed {
		fmt.Fprintf(cmd.OutOrStdout(),
			"Reused existing matches %s (%d pairs, %d correspondences)\n",
			cfg.OutputPath, result.Pairs, result.Correspondences)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"Matched %d pairs with %s: %d correspondences in %s\n",
		result.Pairs, result.Method, result.Correspondences, result.Elapsed.Round(time.Millisecond))
	return nil
}
