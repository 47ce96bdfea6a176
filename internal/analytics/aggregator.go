package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalChecks     int64      `json:"total_checks"`
	ChecksWithMatch int64      `json:"checks_with_match"`
	NoMatchChecks   int64      `json:"no_match_checks"`
	CacheHits       int64      `json:"cache_hits"`
	CacheMisses     int64      `json:"cache_misses"`
	DocsIndexed     int64      `json:"docs_indexed"`
	DocsDuplicate   int64      `json:"docs_duplicate"`
	DocsRejected    int64      `json:"docs_rejected"`
	AvgLatencyMs    float64    `json:"avg_latency_ms"`
	P50LatencyMs    int64      `json:"p50_latency_ms"`
	P95LatencyMs    int64      `json:"p95_latency_ms"`
	P99LatencyMs    int64      `json:"p99_latency_ms"`
	AvgMatches      float64    `json:"avg_matches"`
	TopMatchedDocs  []DocCount `json:"top_matched_docs"`
	ChecksPerMinute float64    `json:"checks_per_minute"`
	CollectingSince time.Time  `json:"collecting_since"`
	LastEventAt     *time.Time `json:"last_event_at,omitempty"`
	UndecodedEvents int64      `json:"undecoded_events"`
}

// DocCount is how often a corpus document was the best match of a check.
type DocCount struct {
	DocID string `json:"doc_id"`
	Count int64  `json:"count"`
}

type Aggregator struct {
	mu           sync.RWMutex
	stats        AggregatedStats
	totalMatches int64
	latencies    []int64
	latencyNext  int
	topDocs      map[string]int64
	startTime    time.Time
	lastEvent    time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator. consumer may be nil when events are
// delivered in-process through PublishBatch.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies: make([]int64, 0, 1024),
		topDocs:   make(map[string]int64),
		startTime: time.Now().UTC(),
		consumer:  consumer,
		logger:    logger.WithComponent("analytics-aggregator"),
	}
}

// Attach sets the consumer used by Start. The consumer's handler usually
// comes from HandleEvent(a), so it can only be built after a. Call it
// before Start.
func (a *Aggregator) Attach(consumer *kafka.Consumer) {
	a.consumer = consumer
}

// Start consumes the analytics topic until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		return fmt.Errorf("aggregator has no kafka consumer")
	}
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent decodes analytics messages from Kafka by their "type" field.
// Undecodable messages are counted and acknowledged.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		if err := agg.Record(value); err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			agg.mu.Lock()
			agg.stats.UndecodedEvents++
			agg.mu.Unlock()
		}
		return nil
	}
}

// Record decodes one JSON-encoded event and folds it into the stats.
func (a *Aggregator) Record(value []byte) error {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return fmt.Errorf("decoding event type: %w", err)
	}
	switch head.Type {
	case EventCheck:
		event, err := kafka.DecodeJSON[CheckEvent](value)
		if err != nil {
			return err
		}
		a.recordCheck(event)
	case EventIndexDoc:
		event, err := kafka.DecodeJSON[IndexEvent](value)
		if err != nil {
			return err
		}
		a.recordIndex(event)
	default:
		return fmt.Errorf("unknown event type %q", head.Type)
	}
	return nil
}

// PublishBatch lets the Aggregator act as a Collector sink when Kafka is
// disabled.
func (a *Aggregator) PublishBatch(ctx context.Context, events []kafka.Event) error {
	for _, e := range events {
		switch v := e.Value.(type) {
		case CheckEvent:
			a.recordCheck(v)
		case IndexEvent:
			a.recordIndex(v)
		default:
			a.logger.Warn("ignoring analytics event of unknown type", "type", fmt.Sprintf("%T", v))
		}
	}
	return nil
}

func (a *Aggregator) recordCheck(event CheckEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalChecks++
	if event.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	if event.Matches == 0 {
		a.stats.NoMatchChecks++
	} else {
		a.stats.ChecksWithMatch++
	}
	a.totalMatches += int64(event.Matches)
	if event.TopDocID != "" {
		a.topDocs[event.TopDocID]++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyNext] = event.LatencyMs
		a.latencyNext = (a.latencyNext + 1) % maxLatencySamples
	}
	a.touch(event.Timestamp)
}

func (a *Aggregator) recordIndex(event IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch event.Status {
	case IndexStatusIndexed:
		a.stats.DocsIndexed++
	case IndexStatusDuplicate:
		a.stats.DocsDuplicate++
	default:
		a.stats.DocsRejected++
	}
	a.touch(event.Timestamp)
}

func (a *Aggregator) touch(ts time.Time) {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if ts.After(a.lastEvent) {
		a.lastEvent = ts
	}
}

// Restore seeds the counters from a persisted snapshot. Latency samples and
// per-document counts start fresh.
func (a *Aggregator) Restore(prev AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalChecks += prev.TotalChecks
	a.stats.ChecksWithMatch += prev.ChecksWithMatch
	a.stats.NoMatchChecks += prev.NoMatchChecks
	a.stats.CacheHits += prev.CacheHits
	a.stats.CacheMisses += prev.CacheMisses
	a.stats.DocsIndexed += prev.DocsIndexed
	a.stats.DocsDuplicate += prev.DocsDuplicate
	a.stats.DocsRejected += prev.DocsRejected
	a.totalMatches += int64(prev.AvgMatches * float64(prev.TotalChecks))
	if !prev.CollectingSince.IsZero() && prev.CollectingSince.Before(a.startTime) {
		a.startTime = prev.CollectingSince
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	stats.CollectingSince = a.startTime
	if !a.lastEvent.IsZero() {
		last := a.lastEvent
		stats.LastEventAt = &last
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if stats.TotalChecks > 0 {
		stats.AvgMatches = float64(a.totalMatches) / float64(stats.TotalChecks)
	}
	stats.TopMatchedDocs = topN(a.topDocs, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.ChecksPerMinute = float64(stats.TotalChecks) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent docs, ties broken by ascending id.
func topN(counts map[string]int64, n int) []DocCount {
	result := make([]DocCount, 0, len(counts))
	for docID, count := range counts {
		result = append(result, DocCount{DocID: docID, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].DocID < result[j].DocID
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
