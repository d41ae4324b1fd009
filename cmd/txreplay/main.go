package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/txreplay/internal/adapter/csvfile"
	"github.com/iho/txreplay/internal/adapter/repository/memory"
	"github.com/iho/txreplay/internal/domain"
	"github.com/iho/txreplay/internal/infrastructure/config"
	"github.com/iho/txreplay/internal/infrastructure/idgen"
	"github.com/iho/txreplay/internal/infrastructure/logger"
	"github.com/iho/txreplay/internal/infrastructure/metrics"
	"github.com/iho/txreplay/internal/usecase"
)

type options struct {
	logLevel    string
	logFormat   string
	metricsFile string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "txreplay INPUT",
		Short: "Replay a transaction log and print client balances",
		Long: `Reads deposits, withdrawals, disputes, resolves and chargebacks from a CSV file,
applies them in order to per-client accounts and prints the final balances as CSV.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			opts.applyDefaults(cmd, cfg)

			return run(cmd.Context(), opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	rootCmd.Flags().StringVar(&opts.logFormat, "log-format", "", "Log format: console or json (env LOG_FORMAT)")
	rootCmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file (env METRICS_FILE)")

	return rootCmd
}

// applyDefaults fills every flag the user did not set from cfg.
func (o *options) applyDefaults(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("log-level") {
		o.logLevel = cfg.LogLevel
	}
	if !flags.Changed("log-format") {
		o.logFormat = cfg.LogFormat
	}
	if !flags.Changed("metrics-file") {
		o.metricsFile = cfg.MetricsFile
	}
}

func run(ctx context.Context, opts *options, input string, stdout, stderr io.Writer) error {
	log := newRunLogger(logger.New(logger.Config{
		Level:  opts.logLevel,
		Format: opts.logFormat,
		Output: stderr,
	}), idgen.NewRunIDGenerator())

	records, err := readTransactions(input)
	if err != nil {
		return err
	}
	log.Debug().Str("input", input).Int("records", len(records)).Msg("transactions decoded")

	registry := prometheus.NewRegistry()
	store := memory.NewLedgerStore()
	processor := usecase.NewTransactionProcessor(store, store, log, metrics.New(registry))

	if _, err := processor.Replay(ctx, records); err != nil {
		return fmt.Errorf("replay interrupted: %w", err)
	}

	if err := csvfile.WriteReport(stdout, processor.Accounts()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return nil
}

func newRunLogger(base zerolog.Logger, ids usecase.IDGenerator) zerolog.Logger {
	return base.With().Str("run_id", ids.Generate()).Logger()
}

// readTransactions decodes the whole input before anything is applied.
func readTransactions(path string) ([]domain.TransactionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	records, err := csvfile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return records, nil
}
