// Command analytics starts the standalone analytics aggregation service.
//
// It consumes similarity-analytics events from Kafka, aggregates them in
// memory (checks, match rate, latency percentiles, cache hit rate, most
// matched documents, indexing outcomes) and exposes them at
// GET /api/v1/analytics. When PostgreSQL is reachable, aggregates are
// snapshotted every minute and GET /api/v1/analytics/history lists them.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/analytics.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/analytics.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	if !cfg.Kafka.Enabled {
		slog.Error("analytics service requires kafka.enabled")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	agg := analytics.NewAggregator(nil)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg),
		kafka.WithGroup(cfg.Kafka.ConsumerGroup+"-analytics"))
	agg.Attach(consumer)

	hc := health.NewChecker("analytics")
	hc.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", hc.LiveHandler())
	mux.HandleFunc("GET /health/ready", hc.ReadyHandler())

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, analytics history disabled", "error", err)
	} else {
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("postgres migration failed", "error", err)
			os.Exit(1)
		}
		store := aggregator.NewStore(db)
		if err := store.RestoreLatest(ctx, agg); err != nil {
			slog.Warn("analytics restore failed", "error", err)
		}
		store.StartPeriodicSave(ctx, agg, time.Minute)
		hc.Register("postgres", health.Ping(db.Ping, false))
		mux.HandleFunc("GET /api/v1/analytics/history", store.HistoryHandler())
	}

	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, middleware.RequestID, middleware.Metrics(m)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		consumer.Close()
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
