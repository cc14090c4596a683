package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/WhiteDevil-93/hermes-go/internal/aiengine"
	"github.com/WhiteDevil-93/hermes-go/internal/browser"
	"github.com/WhiteDevil-93/hermes-go/internal/conduit"
	"github.com/WhiteDevil-93/hermes-go/internal/config"
	"github.com/WhiteDevil-93/hermes-go/internal/pipeline"
	hsignal "github.com/WhiteDevil-93/hermes-go/internal/signal"
	"github.com/WhiteDevil-93/hermes-go/internal/urlpolicy"
)

var (
	runTargetURL      string
	runExtractionMode string
	runOutputDir      string
	runDebug          bool
	runWatch          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "drive one scraping run from INIT to a terminal phase",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyRunOverrides(cfg)

	if cfg.TargetURL == "" {
		return fmt.Errorf("hermes run: no target URL configured (set --url or target_url in the config file)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runWatch && configPath != "" {
		return watchAndRun(ctx, cfg)
	}

	return runOnce(ctx, cfg)
}

func runOnce(ctx context.Context, cfg *config.Config) error {
	result, err := executeRun(ctx, cfg)
	if err != nil && err != context.Canceled {
		return err
	}
	if result != nil {
		fmt.Printf("run %s finished: status=%s phase=%s records=%d ai_calls=%d duration=%.2fs\n",
			result.RunID, result.Status, result.Phase, result.RecordsCount, result.AICalls, result.DurationS)
		if result.Status != "complete" {
			os.Exit(1)
		}
	}
	return nil
}

// watchAndRun fires one run immediately, then installs a watcher on the
// config file and fires one more run each time the file changes, until ctx
// is canceled. Changes made during the first run, before the watcher is
// installed, are not seen. A change during a later run is picked up only
// after that run reaches a terminal phase. Because runOnce exits the
// process when a run ends in any status other than complete, watching
// stops at the first run that does not complete.
func watchAndRun(ctx context.Context, initial *config.Config) error {
	if err := runOnce(ctx, initial); err != nil {
		return err
	}

	changed := make(chan *config.Config, 1)
	stopWatch, err := config.Watch(configPath, func(cfg *config.Config) {
		applyRunOverrides(cfg)
		select {
		case changed <- cfg:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("hermes run: watch config: %w", err)
	}
	defer stopWatch()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-changed:
			if err := runOnce(ctx, cfg); err != nil {
				return err
			}
		}
	}
}

func applyRunOverrides(cfg *config.Config) {
	if runTargetURL != "" {
		cfg.TargetURL = runTargetURL
	}
	if runExtractionMode != "" {
		cfg.ExtractionMode = runExtractionMode
	}
	if runOutputDir != "" {
		cfg.Pipeline.DataDir = runOutputDir
	}
	if runDebug {
		cfg.Pipeline.DebugMode = true
	}
	if timeout > 0 {
		cfg.Timeouts.GlobalTimeoutS = int(timeout.Seconds())
	}
}

// executeRun wires one Run's dependencies and drives it to completion. It
// is the single place a Conduit gets constructed outside tests.
func executeRun(ctx context.Context, cfg *config.Config) (*conduit.Result, error) {
	runID := uuid.NewString()
	ledgerPath := filepath.Join(cfg.Pipeline.DataDir, runID, "signals.jsonl")

	emitter, err := hsignal.New(runID, ledgerPath, logger)
	if err != nil {
		return nil, fmt.Errorf("hermes run: construct emitter: %w", err)
	}
	defer emitter.Close()

	mgr, err := pipeline.NewManager(runID, cfg.Pipeline.DataDir, cfg.Pipeline.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("hermes run: construct pipeline manager: %w", err)
	}

	browserLayer := browser.New(browser.Config{
		Headless:       cfg.Browser.Headless,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		UserAgent:      cfg.Browser.UserAgent,
		Locale:         cfg.Browser.Locale,
	})

	provider, err := aiengine.NewProvider(ctx, cfg.AI)
	if err != nil {
		logger.Warn("hermes run: AI provider construction failed, continuing heuristic-only", zapErrField(err))
		provider = nil
	}
	engine := aiengine.New(provider, logger)

	run := conduit.Run{
		RunID:                  runID,
		TargetURL:              cfg.TargetURL,
		ExtractionSchema:       cfg.ExtractionSchema,
		ExtractionMode:         cfg.ExtractionMode,
		HeuristicSelectors:     cfg.HeuristicSelectors,
		ContainerSelector:      cfg.ContainerSelector,
		AllowCrossOrigin:       cfg.AllowCrossOrigin,
		AllowedSchemes:         cfg.URLPolicy.AllowedSchemes,
		BlockLocalHostnames:    cfg.URLPolicy.BlockLocalHostnames,
		BlockPrivateIPs:        cfg.URLPolicy.BlockPrivateIPs,
		MaxRetries:             cfg.Retry.MaxRetries,
		GlobalTimeout:          secondsToDuration(cfg.Timeouts.GlobalTimeoutS),
		PageLoadTimeout:        secondsToDuration(cfg.Timeouts.PageLoadTimeoutS),
		InteractionTimeout:     secondsToDuration(cfg.Timeouts.InteractionTimeoutS),
		AITimeout:              secondsToDuration(cfg.Timeouts.AITimeoutS),
		BackoffBase:            millisToDuration(cfg.Retry.BackoffBaseMs),
		BackoffMax:             millisToDuration(cfg.Retry.BackoffMaxMs),
		Jitter:                 cfg.Retry.Jitter,
		MinConfidenceThreshold: cfg.Pipeline.MinConfidenceThreshold,
		DebugMode:              cfg.Pipeline.DebugMode,
	}

	c := conduit.New(run, logger, emitter, mgr, browserLayer, engine)
	return c.Run(ctx)
}

// validateCmd batch-checks a set of candidate target URLs against the
// SSRF policy concurrently, ahead of ever constructing a Conduit for any
// of them.
var validateCmd = &cobra.Command{
	Use:   "validate [urls...]",
	Short: "check one or more target URLs against the SSRF policy",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	policy := urlpolicy.Config{
		AllowedSchemes:      cfg.URLPolicy.AllowedSchemes,
		BlockLocalHostnames: cfg.URLPolicy.BlockLocalHostnames,
		BlockPrivateIPs:     cfg.URLPolicy.BlockPrivateIPs,
	}

	results := make([]urlpolicy.Result, len(args))
	var group errgroup.Group
	for i, target := range args {
		i, target := i, target
		group.Go(func() error {
			results[i] = urlpolicy.Validate(target, policy)
			return nil
		})
	}
	_ = group.Wait()

	rejected := 0
	for i, target := range args {
		r := results[i]
		status := "ALLOWED"
		if !r.Allowed {
			status = "REJECTED: " + r.Reason
			rejected++
		}
		fmt.Printf("%s: %s\n", target, status)
	}
	if rejected > 0 {
		os.Exit(1)
	}
	return nil
}
