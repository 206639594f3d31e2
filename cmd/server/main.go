// Package main is the entrypoint for the faultline API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/faultline/internal/api"
	"github.com/kiranshivaraju/faultline/internal/api/handler"
	mw "github.com/kiranshivaraju/faultline/internal/api/middleware"
	"github.com/kiranshivaraju/faultline/internal/cache"
	"github.com/kiranshivaraju/faultline/internal/config"
	"github.com/kiranshivaraju/faultline/internal/metrics"
	"github.com/kiranshivaraju/faultline/internal/report"
	"github.com/kiranshivaraju/faultline/internal/store"
	"github.com/kiranshivaraju/faultline/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"tracker", cfg.Tracker.Kind,
		"dedup_backend", cfg.Dedup.Backend,
		"reporting_enabled", cfg.ReportingEnabled(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	pgStore := store.NewPostgresStore(pool)

	// 5. Build the reporter
	dedup := newDedupStore(cfg.Dedup, redisCache)
	reporter, err := newReporter(ctx, cfg, dedup, pgStore)
	if err != nil {
		return fmt.Errorf("create reporter: %w", err)
	}
	dispatcher := report.NewDispatcher(reporter)

	var sweeper *report.Sweeper
	if cfg.Dedup.Backend == "memory" {
		sweeper = report.NewSweeper(dedup, nil)
		if err := sweeper.Start(cfg.Dedup.SweepInterval); err != nil {
			return fmt.Errorf("start dedup sweeper: %w", err)
		}
	}

	// 6. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// 7. Build router with dependencies
	router := api.NewRouter(buildDependencies(cfg, pgStore, redisCache, reporter, dispatcher, reg))

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := dispatcher.Drain(shutdownCtx); err != nil {
		slog.Warn("in-flight error reports abandoned", "error", err)
	}
	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newDedupStore selects where signatures are remembered. The redis backend
// shares dedup state across replicas and lets Redis expire entries itself.
func newDedupStore(cfg config.DedupConfig, c cache.Cache) report.Store {
	if cfg.Backend == "redis" {
		return cache.NewDedupStore(c, cfg.TTL)
	}
	return report.NewMemoryStore(cfg.TTL)
}

// newReporter builds the reporter and resolves its team. A team that cannot be
// resolved leaves the server running with reporting disabled.
func newReporter(ctx context.Context, cfg *config.Config, dedup report.Store, rec report.Recorder) (*report.Service, error) {
	tr, err := tracker.New(cfg.Tracker)
	if err != nil {
		return nil, err
	}

	svc := report.New(report.Config{
		Environment: cfg.Server.Env,
		APIKey:      cfg.Tracker.APIKey,
		Team:        cfg.Tracker.Team,
		Label:       cfg.Tracker.Label,
		Timeout:     cfg.Tracker.Timeout,
	}, tr, dedup, report.WithRecorder(rec))

	if err := svc.Initialize(ctx); err != nil {
		slog.Warn("error reporting disabled", "error", err)
	}
	slog.Info("error reporter ready", "enabled", svc.Enabled(), "tracker", tr.Name())
	return svc, nil
}

func buildDependencies(
	cfg *config.Config,
	ledger store.Store,
	c cache.Cache,
	status handler.StatusProvider,
	n report.Notifier,
	reg *prometheus.Registry,
) api.Dependencies {
	deps := api.Dependencies{
		Recovery:      mw.NewRecovery(n),
		RateLimit:     mw.NewRateLimit(c, cfg.Ingest.RequestsPerMin),
		HealthHandler: handler.NewHealthHandler(ledger, c),
		IngestHandler: handler.NewIngestHandler(n),
		ListIssues:    handler.NewListIssuesHandler(ledger, n),
		GetIssue:      handler.NewGetIssueHandler(ledger, n),
		StatusHandler: handler.NewStatusHandler(status),
		Metrics:       metrics.Handler(reg),
	}
	if cfg.Admin.PasswordHash != "" {
		deps.AdminAuth = mw.NewAdminAuth(cfg.Admin.PasswordHash)
	}
	return deps
}
