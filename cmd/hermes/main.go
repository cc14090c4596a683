// Package main implements the hermes CLI: a cobra root command with a run
// subcommand that drives one Conduit run end to end and a validate
// subcommand that checks target URLs against the SSRF policy.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/WhiteDevil-93/hermes-go/internal/obslog"
)

var (
	verbose    bool
	configPath string
	timeout    time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hermes",
	Short: "hermes drives a deterministic, phase-driven web scraping run",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = obslog.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "override the configured global timeout")

	runCmd.Flags().StringVar(&runTargetURL, "url", "", "target URL to scrape (overrides config)")
	runCmd.Flags().StringVar(&runExtractionMode, "mode", "", "extraction mode: heuristic, ai, or hybrid (overrides config)")
	runCmd.Flags().StringVar(&runOutputDir, "output", "", "data directory override")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "keep raw captures on disk even after persist")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "re-run on every change to the config file")

	rootCmd.AddCommand(runCmd, validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
