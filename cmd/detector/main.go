// Command detector starts the LSH plagiarism detection service.
//
// On startup it indexes every .txt file of the corpus directory, restores
// the documents of the newest signature snapshot that the corpus does not
// own, and then serves the check API over HTTP and
// the SimilarityService over JSON-over-TCP RPC. With Kafka enabled it also
// indexes documents published by the ingestion service and ships analytics
// events through the analytics topic.
//
// Usage:
//
//	go run ./cmd/detector [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
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
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/cache"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/checker"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/consumer"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/handler"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion/registry"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/rpc"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting detector",
		"port", cfg.Server.Port,
		"hash_functions", cfg.LSH.NumHashFunctions,
		"bands", cfg.LSH.Bands,
		"shingle_size", cfg.LSH.ShingleSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	idx, err := similarity.NewIndex(cfg.LSH)
	if err != nil {
		slog.Error("failed to create index", "error", err)
		os.Exit(1)
	}
	if err := loadIndex(idx, cfg); err != nil {
		slog.Error("failed to load corpus", "error", err)
		os.Exit(1)
	}
	st := idx.Stats()
	m.IndexDocuments.Set(float64(st.Documents))
	m.IndexBuckets.Set(float64(st.Buckets))
	if cfg.Snapshot.DataDir != "" {
		idx.StartFlushLoop(ctx, cfg.Snapshot.DataDir, cfg.Snapshot.FlushInterval)
	}

	var db *postgres.Client
	if cfg.Kafka.Enabled || cfg.Server.RequireAPIKey {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, registry updates and analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				slog.Warn("postgres migration failed", "error", err)
			}
		}
	}
	if cfg.Server.RequireAPIKey && db == nil {
		slog.Error("requireApiKey needs postgres for key storage")
		os.Exit(1)
	}

	var resultCache *cache.ResultCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, check caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		resultCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		slog.Info("check cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	collector, agg := startAnalytics(ctx, cfg, db)
	defer collector.Close()

	if cfg.Kafka.Enabled {
		var reg registry.Registry
		if db != nil {
			reg = registry.NewPostgres(db)
		}
		ic := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest,
			consumer.HandleMessage(idx, reg, collector, m), kafka.FromBeginning()))
		defer ic.Close()
		go func() {
			if err := ic.Start(ctx); err != nil {
				slog.Error("index consumer error", "error", err)
			}
		}()
	}

	chk := checker.New(idx, corpus.NewMainStore(cfg.Corpus.MainFile), resultCache, collector, m, cfg.LSH.DefaultThreshold)

	if cfg.RPC.Port > 0 {
		rpcServer := rpc.NewServer()
		detector.NewService(idx, chk).Register(rpcServer)
		go func() {
			if err := rpcServer.Serve(fmt.Sprintf(":%d", cfg.RPC.Port)); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
		defer rpcServer.Stop()
	}

	hc := health.NewChecker("detector")
	hc.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", idx.Len())}
	})
	if redisClient != nil {
		hc.Register("redis", health.Ping(redisClient.Ping, false))
	}
	if db != nil {
		hc.Register("postgres", health.Ping(db.Ping, false))
	}

	mux := http.NewServeMux()
	handler.New(idx, chk, resultCache, collector, agg, m).Register(mux)
	mux.HandleFunc("GET /health/live", hc.LiveHandler())
	mux.HandleFunc("GET /health/ready", hc.ReadyHandler())

	chain := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = append(chain, middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)))
	}
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimitPerMinute, time.Minute)
		defer limiter.Close()
		chain = append(chain, middleware.RateLimit(limiter))
	}
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

	slog.Info("detector listening", "addr", server.Addr, "rpc_port", cfg.RPC.Port, "documents", idx.Len())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	stop()
	if cfg.Snapshot.DataDir != "" {
		if _, err := idx.SaveSnapshot(cfg.Snapshot.DataDir); err != nil {
			slog.Error("final snapshot failed", "error", err)
		}
	}
	slog.Info("detector stopped")
}

// loadIndex indexes the corpus, then restores the newest snapshot. Corpus
// files own their doc_<n> ids: a snapshot entry under an id the corpus
// assigned is dropped, so renamed or inserted files never keep a stale
// signature.
func loadIndex(idx *similarity.Index, cfg *config.Config) error {
	listing, err := corpus.Scan(cfg.Corpus.DocumentsDir)
	if err != nil {
		return err
	}
	start := time.Now()
	added := 0
	for _, doc := range listing.Documents {
		err := idx.AddDocument(doc.ID, doc.Text)
		switch {
		case err == nil:
			added++
		case errors.Is(err, apperrors.ErrDuplicateDocument):
			slog.Warn("corpus document already indexed", "file", doc.Name, "doc_id", doc.ID)
		default:
			slog.Warn("skipping corpus document", "file", doc.Name, "doc_id", doc.ID, "error", err)
		}
	}
	slog.Info("corpus indexed",
		"dir", cfg.Corpus.DocumentsDir,
		"files", listing.Files,
		"added", added,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if cfg.Snapshot.DataDir != "" {
		n, err := idx.RestoreSnapshot(cfg.Snapshot.DataDir, listing.Owns)
		if err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}
		slog.Info("snapshot restored", "documents", n, "dir", cfg.Snapshot.DataDir)
	}
	return nil
}

// startAnalytics wires the collector to Kafka when enabled and to an
// in-process aggregator otherwise.
func startAnalytics(ctx context.Context, cfg *config.Config, db *postgres.Client) (*analytics.Collector, *analytics.Aggregator) {
	if !cfg.Kafka.Enabled {
		agg := analytics.NewAggregator(nil)
		collector := analytics.NewCollector(agg, 1, time.Second)
		collector.Start(ctx)
		return collector, agg
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	collector := analytics.NewCollector(producer, 100, 5*time.Second)
	collector.Start(ctx)

	agg := analytics.NewAggregator(nil)
	agg.Attach(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents,
		analytics.HandleEvent(agg), kafka.WithGroup(cfg.Kafka.ConsumerGroup+"-analytics")))
	if db != nil {
		store := aggregator.NewStore(db)
		if err := store.RestoreLatest(ctx, agg); err != nil {
			slog.Warn("analytics restore failed", "error", err)
		}
		store.StartPeriodicSave(ctx, agg, time.Minute)
	}
	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()
	return collector, agg
}
