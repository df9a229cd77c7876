// Command ratios computes Debt-to-Equity, OPM and ROCE for companies listed on
// the screener website, or for a statement page saved to disk.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ratio_screener/pkg/core/cache"
	"ratio_screener/pkg/core/config"
	"ratio_screener/pkg/core/ingest"
	"ratio_screener/pkg/core/logging"
	"ratio_screener/pkg/core/pipeline"
)

var (
	configPath string
	outputPath string
	format     string
	workers    int
	company    string
	cacheDir   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "ratios",
		Short:        "Derive financial ratios from screener statement pages",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "json", "Output format: json, csv, xlsx, pdf, html")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <company>...",
		Short: "Search, fetch and analyze companies",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent companies (default: from config)")
	analyzeCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Search cache directory when no Redis is configured")

	parseCmd := &cobra.Command{
		Use:   "parse <page.html>",
		Short: "Analyze a saved company page without network access",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}
	parseCmd.Flags().StringVarP(&company, "company", "c", "", "Company name for the output records (default: file name)")

	rootCmd.AddCommand(analyzeCmd, parseCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := checkFormat(format); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.Setup(cfg.Logging.Level, cfg.Logging.Format), nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	creds, err := cfg.RequireSession()
	if err != nil {
		return fmt.Errorf("SESSION_ID and CSRF_TOKEN must be set: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []ingest.Option{ingest.WithLogger(logger)}
	store, closeStore := searchCache(ctx, cfg, logger)
	defer closeStore()
	if store != nil {
		opts = append(opts, ingest.WithCache(store))
	}

	client, err := ingest.NewClient(cfg.ClientConfig(), creds, opts...)
	if err != nil {
		return err
	}

	n := cfg.Pipeline.Workers
	if workers > 0 {
		n = workers
	}
	outcome, err := pipeline.NewRunner(client, n, logger).Analyze(ctx, args)
	if err != nil {
		return err
	}
	for _, msg := range outcome.Errors {
		logger.Warn().Msg(msg)
	}
	return emit(outcome)
}

// searchCache prefers Redis and falls back to files on disk.
func searchCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Store, func()) {
	if cfg.Cache.RedisAddr != "" {
		rc := cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.Password, cfg.Cache.DB, "ratio_screener:")
		err := rc.Ping(ctx)
		if err == nil {
			return rc, func() { _ = rc.Close() }
		}
		logger.Warn().Err(err).Msg("redis unavailable, using file cache")
		_ = rc.Close()
	}
	fc, err := cache.NewFile(cacheDir)
	if err != nil {
		logger.Warn().Err(err).Msg("search cache disabled")
		return nil, func() {}
	}
	return fc, func() {}
}

func runParse(cmd *cobra.Command, args []string) error {
	_, logger, err := setup()
	if err != nil {
		return err
	}

	outcome, err := parseFile(args[0], company, logger)
	if err != nil {
		return err
	}
	return emit(outcome)
}

func emit(outcome *pipeline.Outcome) error {
	var w io.Writer = os.Stdout
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer file.Close()
		w = file
	}
	return render(w, format, outcome)
}
