package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/giygas/dispensacao-api/config"
	"github.com/giygas/dispensacao-api/data"
	"github.com/giygas/dispensacao-api/dispensingparser"
	"github.com/giygas/dispensacao-api/handlers"
	"github.com/giygas/dispensacao-api/health"
	"github.com/giygas/dispensacao-api/history"
	"github.com/giygas/dispensacao-api/interfaces"
	"github.com/giygas/dispensacao-api/logging"
	"github.com/giygas/dispensacao-api/scheduler"
	"github.com/giygas/dispensacao-api/server"
	"github.com/giygas/dispensacao-api/validation"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "dispensacao-api",
		Short:        "Dispensing program dashboard API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(checkCmd())

	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// loadEnv reads .env from the working directory, then from the executable
// directory. A missing file is not an error.
func loadEnv() error {
	if err := godotenv.Load(); err == nil {
		return nil
	}

	ex, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	envFile := filepath.Join(filepath.Dir(ex), ".env")
	if _, err := os.Stat(envFile); err != nil {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

// app holds what every command needs: configuration, logger, history and
// the load memo
type app struct {
	cfg       *config.Config
	logs      *logging.LoggingService
	recorder  interfaces.LoadRecorder
	container *data.DataContainer
}

// newApp wires the dependencies. Only the server writes log files.
func newApp(logToFiles bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logDir := cfg.LogDir
	if !logToFiles {
		logDir = ""
	}
	logs := logging.InitLoggerWithOptions(logging.Options{
		LogDir:         logDir,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
	})

	encodings, err := dispensingparser.ParseEncodings(cfg.SourceEncodings)
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("invalid SOURCE_ENCODINGS: %w", err)
	}

	var recorder interfaces.LoadRecorder = history.NopRecorder{}
	if cfg.HistoryDB != "" {
		sqlite, err := history.Open(cfg.HistoryDB)
		if err != nil {
			logging.Warn("Load history disabled", "path", cfg.HistoryDB, "error", err)
		} else {
			recorder = sqlite
		}
	}

	parser := dispensingparser.NewDispensingParser(cfg.PatientsDir, cfg.DistributionsDir, cfg.LookupFile, encodings)

	return &app{
		cfg:       cfg,
		logs:      logs,
		recorder:  recorder,
		container: data.NewDataContainer(parser, recorder),
	}, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		logging.Warn("Failed to close load history", "error", err)
	}
	if err := a.logs.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to close log file:", err)
	}
}

func runServe() error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	a.container.SetServerStartTime(time.Now())

	sched := scheduler.NewScheduler(a.container, cfg.RefreshAt, cfg.StaleAfter())
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	healthChecker := health.NewHealthChecker(a.container, cfg.RefreshAt, cfg.StaleAfter())
	handler := handlers.NewHTTPHandler(a.container, validation.NewDataValidator(), a.recorder, healthChecker,
		handlers.ExportEncodings{
			Patients:      cfg.ExportEncodingPatients,
			Summary:       cfg.ExportEncodingSummary,
			Distributions: cfg.ExportEncodingDistributions,
		})

	srv := server.NewServer(cfg, handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errChan
}
