// Command ingestion starts the document ingestion HTTP service.
//
// The service accepts new corpus documents via POST /api/v1/documents,
// validates them, records them in the PostgreSQL registry and publishes them
// to Kafka, where the detector picks them up for indexing. Status lookups are
// served at GET /api/v1/documents/{id}.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion/registry"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/postgres"
)

// main connects to PostgreSQL, creates the Kafka producer, wires up the
// ingestion handler and serves HTTP until SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to migrate postgres", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to postgres")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.DocumentIngest)

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	pub := publisher.New(registry.NewPostgres(db), producer, m)
	hc := health.NewChecker("ingestion")
	hc.Register("postgres", health.Ping(db.Ping, true))

	mux := http.NewServeMux()
	handler.New(pub).Register(mux)
	mux.HandleFunc("GET /health/live", hc.LiveHandler())
	mux.HandleFunc("GET /health/ready", hc.ReadyHandler())

	chain := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if cfg.Server.RequireAPIKey {
		chain = append(chain, apikey.RequireForWrites(apikey.NewPostgres(db)))
	}
	chain = append(chain, middleware.Timeout(cfg.Server.WriteTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, chain...),
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
	}()
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
