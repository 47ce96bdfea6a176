// Package checker runs the detector's main use case: comparing the main
// document against every indexed corpus document.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/cache"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/ranker"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/shingle"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/tracing"
)

// Index is the part of similarity.Index the checker queries.
type Index interface {
	FindSimilarText(text string, threshold float64) ([]ranker.ScoredDoc, error)
	Len() int
}

// Report is the result of one check. ExecutionTime is in seconds, rounded
// to milliseconds.
type Report struct {
	SimilarDocs   ranker.Ordered `json:"similar_docs"`
	ExecutionTime float64        `json:"execution_time"`
	Cached        bool           `json:"cached,omitempty"`
}

type Checker struct {
	index            Index
	main             *corpus.MainStore
	cache            *cache.ResultCache
	collector        *analytics.Collector
	metrics          *metrics.Metrics
	defaultThreshold float64
	logger           *slog.Logger
}

// New builds a Checker. resultCache, collector and m are optional.
func New(
	index Index,
	main *corpus.MainStore,
	resultCache *cache.ResultCache,
	collector *analytics.Collector,
	m *metrics.Metrics,
	defaultThreshold float64,
) *Checker {
	return &Checker{
		index:            index,
		main:             main,
		cache:            resultCache,
		collector:        collector,
		metrics:          m,
		defaultThreshold: defaultThreshold,
		logger:           logger.WithComponent("checker"),
	}
}

func (c *Checker) DefaultThreshold() float64 {
	return c.defaultThreshold
}

// MainText returns the current main document.
func (c *Checker) MainText(ctx context.Context) (string, error) {
	return c.main.Read()
}

// Check compares the main document against the corpus.
func (c *Checker) Check(ctx context.Context, threshold float64) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "check", "")
	defer func() {
		span.End()
		span.Log()
	}()

	text, err := c.main.Read()
	if err != nil {
		span.Fail(err)
		c.outcome("error")
		return nil, err
	}
	report, err := c.check(ctx, "main", text, threshold)
	if err != nil {
		span.Fail(err)
		return nil, err
	}
	span.SetAttr("matches", len(report.SimilarDocs))
	return report, nil
}

// Replace swaps the main document for text and checks the new content.
// Text that yields no shingles is rejected before the file is touched.
func (c *Checker) Replace(ctx context.Context, text string, threshold float64) (*Report, error) {
	if err := similarity.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if _, err := shingle.Normalize(text); err != nil {
		return nil, err
	}
	if err := c.main.Replace(text); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("main document replaced", "size_bytes", len(text))
	return c.Check(ctx, threshold)
}

// CheckText compares arbitrary text against the corpus without touching
// the main document.
func (c *Checker) CheckText(ctx context.Context, text string, threshold float64) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "check_text", "")
	defer span.End()
	report, err := c.check(ctx, "text", text, threshold)
	span.Fail(err)
	return report, err
}

func (c *Checker) check(ctx context.Context, source, text string, threshold float64) (*Report, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if err := similarity.ValidateThreshold(threshold); err != nil {
		c.outcome("error")
		return nil, err
	}

	_, span := tracing.StartChildSpan(ctx, "find_similar")
	compute := func() (ranker.Ordered, error) {
		docs, err := c.index.FindSimilarText(text, threshold)
		if err != nil {
			return nil, err
		}
		return ranker.Ordered(docs), nil
	}

	var (
		docs     ranker.Ordered
		err      error
		cacheHit bool
	)
	cacheStatus := "disabled"
	if key, ok := cache.Key(text, threshold, c.index.Len()); ok && c.cache != nil {
		docs, cacheHit, err = c.cache.GetOrCompute(ctx, key, compute)
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		docs, err = compute()
	}
	span.SetAttr("cache", cacheStatus)
	span.Fail(err)
	span.End()

	elapsed := time.Since(start)
	if err != nil {
		c.outcome("error")
		if !apperrors.IsValidation(err) {
			log.Error("similarity check failed", "source", source, "error", err)
		}
		return nil, fmt.Errorf("checking %s document: %w", source, err)
	}
	if docs == nil {
		docs = ranker.Ordered{}
	}

	if len(docs) > 0 {
		c.outcome("match")
	} else {
		c.outcome("no_match")
	}
	if c.metrics != nil {
		c.metrics.CheckLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
		c.metrics.SimilarDocsCount.Observe(float64(len(docs)))
	}
	if c.collector != nil {
		event := analytics.NewCheckEvent(source, threshold, len(docs), elapsed, cacheHit)
		if len(docs) > 0 {
			event.TopDocID = docs[0].DocID
			event.TopScore = docs[0].Score
		}
		event.RequestID = logger.RequestID(ctx)
		c.collector.Track(event)
	}

	log.Info("similarity check completed",
		"source", source,
		"threshold", threshold,
		"matches", len(docs),
		"cache", cacheStatus,
		"latency_ms", elapsed.Milliseconds(),
	)
	return &Report{
		SimilarDocs:   docs,
		ExecutionTime: math.Round(elapsed.Seconds()*1000) / 1000,
		Cached:        cacheHit,
	}, nil
}

func (c *Checker) outcome(outcome string) {
	if c.metrics != nil {
		c.metrics.ChecksTotal.WithLabelValues(outcome).Inc()
	}
}
