package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SteelMorgan/sqldump-importer/internal/config"
	"github.com/SteelMorgan/sqldump-importer/internal/observability"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	importDir   string
	batchLines  int
	batchTime   time.Duration
	verbose     bool
	cfg         *config.Config
	stopTracing func(context.Context) error
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sqlimport",
		Short: "Import large MySQL dumps in resumable batches",
		Long: `sqlimport replays plain or gzip-compressed MySQL dumps against a MySQL server
in bounded batches. Every batch ends with a checkpoint (byte offset, line number,
counters and active delimiter) so an interrupted import resumes where it stopped.

Connection settings come from the environment (MYSQL_HOST, MYSQL_PORT, MYSQL_USER,
MYSQL_PASSWORD, MYSQL_DB); flags override the batch settings.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if stopTracing != nil {
				return stopTracing(context.Background())
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&importDir, "import-dir", "d", "", "Directory holding the dump files (default $IMPORT_DIR)")
	rootCmd.PersistentFlags().IntVar(&batchLines, "batch-lines", 0, "Lines per batch (default $BATCH_LINES or 3000)")
	rootCmd.PersistentFlags().DurationVar(&batchTime, "batch-time", 0, "Wall-clock budget per batch (default $BATCH_TIME_SECONDS or 25s)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newRunCmd(), newBatchCmd(), newSessionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the environment config, applies flag overrides and starts logging
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}

	if importDir != "" {
		if loaded.LogDir == loaded.ImportDir {
			loaded.LogDir = importDir
		}
		loaded.ImportDir = importDir
	}
	if batchLines > 0 {
		loaded.BatchLines = batchLines
	}
	if batchTime > 0 {
		loaded.BatchTime = batchTime
	}
	if verbose {
		loaded.LogLevel = "debug"
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	stopTracing, err = observability.InitTracer(observability.TracerConfig{
		ServiceName:    "sqlimport",
		ServiceVersion: version,
		Endpoint:       cfg.TracingEndpoint,
		Protocol:       cfg.TracingProtocol,
		Enabled:        cfg.TracingEnabled,
		TargetHost:     cfg.MySQLHost,
		TargetDatabase: cfg.MySQLDB,
		ImportDir:      cfg.ImportDir,
		SampleRatio:    cfg.TracingSample,
	})
	return err
}

// signalContext is cancelled on SIGINT or SIGTERM. A running batch
// finishes its current statement and stops at the next boundary.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
