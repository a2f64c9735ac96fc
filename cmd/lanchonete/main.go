package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"lanchonete/internal/cache"
	"lanchonete/internal/cli"
	"lanchonete/internal/config"
	apphttp "lanchonete/internal/http"
	"lanchonete/internal/log"
	"lanchonete/internal/metrics"
	"lanchonete/internal/services"

	"golang.org/x/sync/errgroup"
)

const (
	maxInFlight   = 64
	sweepInterval = time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		cli.Fatal(logger, "Server error", err)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	m := metrics.New()
	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxInFlight:  maxInFlight,
		Logger:       logger,
		Metrics:      m,
	})

	opts := services.Options{Metrics: m, Logger: logger}
	var chartCache *cache.LRUCache[services.Chart]
	if cfg.CacheSize > 0 {
		chartCache = cache.NewLRUCache[services.Chart](cfg.CacheSize, cfg.CacheTTL)
		opts.Cache = chartCache
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting lanchonete server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	// The server answers /healthz while the ledger loads; /readyz flips once it is in.
	g.Go(func() error {
		res, err := cli.OpenLedgerReader(gctx, logger, cfg)
		if err != nil {
			return err
		}
		defer res.Close()

		svc, err := services.Load(gctx, res.Reader, opts)
		if err != nil {
			return err
		}
		srv.SetDashboard(svc)
		stats := svc.Summary().Load
		log.NewStructuredLogger(logger).LogLedgerLoaded(gctx, cfg.DataBackend, svc.Ledger().Len(), stats.DroppedDates, stats.DroppedValues)
		return nil
	})

	if chartCache != nil {
		janitor := cache.NewJanitor(logger.Logger.With(log.FieldComponent, log.ComponentCache), chartCache)
		g.Go(func() error {
			return janitor.Run(gctx, sweepInterval)
		})
	}

	return g.Wait()
}
