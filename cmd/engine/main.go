package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perchsocial/cohort-engine/internal/adapters/http/api"
	"github.com/perchsocial/cohort-engine/internal/adapters/notify"
	"github.com/perchsocial/cohort-engine/internal/adapters/repository"
	"github.com/perchsocial/cohort-engine/internal/adapters/snapshot"
	app "github.com/perchsocial/cohort-engine/internal/app"
	"github.com/perchsocial/cohort-engine/internal/config"
	"github.com/perchsocial/cohort-engine/internal/domain/formation"
	"github.com/perchsocial/cohort-engine/internal/domain/scoring"
	"github.com/perchsocial/cohort-engine/pkg/logger"
	"github.com/perchsocial/cohort-engine/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	announcer := notify.NewChannelAnnouncer()
	defer func() { _ = announcer.Close() }()
	go drainAnnouncements(ctx, announcer, loggerInstance)

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithSource(snapshot.NewStaticSource(nil)),
		app.WithRunStore(repository.NewMemRunStore()),
		app.WithHistoryStore(repository.NewMemHistoryStore(
			repository.WithRetentionWeeks(cfg.HistoryRetentionWeeks),
		)),
		app.WithAnnouncer(announcer),
		app.WithScorer(scoring.New(cfg.Weights, scoring.WithMaxAgeGap(cfg.MaxAgeGap))),
		app.WithFormationParams(formation.Params{
			MinSize:   cfg.MinGroupSize,
			MaxSize:   cfg.MaxGroupSize,
			Threshold: cfg.AcceptanceThreshold,
		}),
		app.WithCooldownWeeks(cfg.CooldownWeeks),
		app.WithGroupTTLWeeks(cfg.GroupTTLWeeks),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithRunTimeout(cfg.RunTimeout()),
		app.WithScheduleInterval(cfg.ScheduleInterval()),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc, cfg.AdminToken)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// drainAnnouncements logs group-formed events. A deployment replaces this
// consumer with the bridge to the chat provisioning transport.
func drainAnnouncements(ctx context.Context, announcer *notify.ChannelAnnouncer, log logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-announcer.Events():
			if !ok {
				return
			}
			log.Info(ctx, "group formed",
				logger.String("groupID", ev.GroupID),
				logger.String("city", ev.City),
				logger.Int("members", len(ev.Members)),
				logger.String("batchID", ev.BatchID),
			)
		}
	}
}

// startServiceMetricsUpdater refreshes gauge metrics from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics updates service-level gauges between runs.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
