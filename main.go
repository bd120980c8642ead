package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"satoribalance/internal/addrfile"
	"satoribalance/internal/aggregate"
	"satoribalance/internal/config"
	"satoribalance/internal/coordinator"
	"satoribalance/internal/cryptoscope"
	"satoribalance/internal/extractor"
	"satoribalance/internal/fetcher"
	"satoribalance/internal/history"
	"satoribalance/internal/logging"
	"satoribalance/internal/metrics"
	"satoribalance/internal/ratelimit"
	"satoribalance/internal/report"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "satori-balance <addresses.txt>",
		Short: "Check SATORI balances for a list of Evrmore addresses",
		Long: `satori-balance looks up every address in the given file on the
cryptoscope explorer, writes one CSV row per address and prints a summary
of the total, valid, missing and failed balances.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Usage is only useful for argument errors.
			cmd.SilenceUsage = true

			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if verbose {
				cfg.LogLevel = "debug"
			}

			logger := logging.New(cfg.LogLevel, cmd.ErrOrStderr())
			slog.SetDefault(logger)

			// Create context with cancellation for graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, args[0], cmd.OutOrStdout(), logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./config.yaml or "+config.ConfigDir()+"/config.yaml)")
	flags.StringP("output", "o", "satori_balances.csv", "CSV file for per-address results")
	flags.Int("concurrency", coordinator.DefaultConcurrency, "maximum number of lookups in flight")
	flags.String("markdown", "", "also write a markdown report to this file")
	flags.String("history-db", "", "record the run in this SQLite database")
	flags.String("metrics-file", "", "write Prometheus metrics to this file when done")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// run executes one balance check. Address-level failures are part of the
// results; only input and output errors are returned.
func run(ctx context.Context, cfg *config.Config, inputPath string, stdout io.Writer, logger *slog.Logger) error {
	addresses, err := addrfile.Load(inputPath)
	if err != nil {
		return err
	}

	recorder := metrics.New()
	limiter := ratelimit.New(cfg.RequestsPerSecond)

	balanceFetcher := cryptoscope.NewBalanceFetcher(cryptoscope.Options{
		BaseURL:        cfg.BaseURL,
		UserAgent:      cfg.UserAgent,
		MaxAttempts:    cfg.MaxAttempts,
		AttemptTimeout: cfg.AttemptTimeout,
		RetryWait:      cfg.RetryWait,
		Extractor:      extractor.NewLabelExtractor(cfg.Label),
		Limiter:        limiter,
		Metrics:        recorder,
		Logger:         logger,
	})

	coord := coordinator.New(balanceFetcher,
		coordinator.WithConcurrency(cfg.Concurrency),
		coordinator.WithLogger(logger),
		coordinator.WithMetrics(recorder),
	)

	logger.Info("fetching balances",
		"addresses", len(addresses),
		"concurrency", cfg.Concurrency,
		"rate_limited", !limiter.Unlimited(),
		"base_url", cfg.BaseURL)

	startedAt := time.Now()
	records := coord.Run(ctx, addresses)
	finishedAt := time.Now()

	if err := report.SaveCSV(cfg.Output, records); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	logger.Info("results saved", "path", cfg.Output, "rows", len(records))

	summary := summarize(cfg, records)
	if err := report.WriteSummary(stdout, summary); err != nil {
		return fmt.Errorf("failed to print summary: %w", err)
	}

	if cfg.Markdown != "" {
		if err := report.SaveMarkdown(cfg.Markdown, finishedAt, summary, records); err != nil {
			return err
		}
		logger.Info("markdown report saved", "path", cfg.Markdown)
	}

	if cfg.HistoryDB != "" {
		if err := saveHistory(ctx, cfg.HistoryDB, history.Run{
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Summary:    summary,
			Records:    records,
		}, logger); err != nil {
			return err
		}
	}

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		logger.Info("metrics written", "path", cfg.MetricsFile)
	}

	return nil
}

func summarize(cfg *config.Config, records []fetcher.Record) aggregate.Summary {
	if cfg.ClassifyRendered {
		return aggregate.SummarizeRendered(records)
	}
	return aggregate.Summarize(records)
}

func saveHistory(ctx context.Context, path string, run history.Run, logger *slog.Logger) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	// The run is over; store it even if the batch was interrupted.
	runID, err := store.SaveRun(context.WithoutCancel(ctx), run)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	logger.Info("run recorded", "path", store.Path(), "run_id", runID)
	return nil
}
