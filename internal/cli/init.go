// Package cli provides common CLI initialization utilities shared by
// cmd/lanchonete and cmd/lanchonete-report.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"lanchonete/internal/backend"
	"lanchonete/internal/config"
	"lanchonete/internal/log"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging at the given level.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenLedgerReader builds the ledger reader selected by cfg.DataBackend.
func OpenLedgerReader(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.ReaderResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateReader(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s reader: %w", bcfg.Type, err)
	}
	return res, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			logger.Info("Shutdown signal received")
		}
	}()
	return ctx, stop
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}
