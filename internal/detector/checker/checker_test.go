package checker

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/cache"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memStore) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (s *memStore) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return nil
}

func (s *memStore) FlushByPattern(context.Context, string) (int64, error) {
	return 0, nil
}

type fixture struct {
	checker *Checker
	main    *corpus.MainStore
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, withCache bool, collector *analytics.Collector) fixture {
	t.Helper()
	idx, err := similarity.NewIndex(config.Default().LSH)
	require.NoError(t, err)
	require.NoError(t, idx.AddDocument("doc_1", "the quick brown fox jumps over the lazy dog"))
	require.NoError(t, idx.AddDocument("doc_2", "an entirely different essay about weather patterns"))

	main := corpus.NewMainStore(filepath.Join(t.TempDir(), "main.txt"))
	require.NoError(t, main.Replace("the quick brown fox jumps over the lazy dog!"))

	m := metrics.New(prometheus.NewRegistry())
	var rc *cache.ResultCache
	if withCache {
		rc = cache.New(&memStore{data: make(map[string][]byte)}, time.Minute, m)
	}
	return fixture{
		checker: New(idx, main, rc, collector, m, 0.1),
		main:    main,
		metrics: m,
	}
}

func TestCheckFindsCopiedDocument(t *testing.T) {
	f := newFixture(t, false, nil)
	report, err := f.checker.Check(context.Background(), 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, report.SimilarDocs)
	assert.Equal(t, "doc_1", report.SimilarDocs[0].DocID)
	assert.GreaterOrEqual(t, report.ExecutionTime, 0.0)
	assert.False(t, report.Cached)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ChecksTotal.WithLabelValues("match")))
}

func TestCheckUsesCache(t *testing.T) {
	f := newFixture(t, true, nil)
	first, err := f.checker.Check(context.Background(), 0.3)
	require.NoError(t, err)
	second, err := f.checker.Check(context.Background(), 0.3)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.SimilarDocs, second.SimilarDocs)
}

func TestCheckRejectsBadThreshold(t *testing.T) {
	f := newFixture(t, true, nil)
	_, err := f.checker.Check(context.Background(), 1.5)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ChecksTotal.WithLabelValues("error")))
}

func TestReplaceThenCheck(t *testing.T) {
	f := newFixture(t, false, nil)
	report, err := f.checker.Replace(context.Background(), "an entirely different essay about weather patterns", 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, report.SimilarDocs)
	assert.Equal(t, "doc_2", report.SimilarDocs[0].DocID)

	text, err := f.checker.MainText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "an entirely different essay about weather patterns", text)
}

func TestReplaceRejectsUnusableText(t *testing.T) {
	f := newFixture(t, false, nil)
	_, err := f.checker.Replace(context.Background(), "?!? ...", 0.5)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	text, err := f.main.Read()
	require.NoError(t, err)
	assert.Equal(t, "the quick brown fox jumps over the lazy dog!", text, "main document untouched")
}

func TestCheckTextTracksAnalytics(t *testing.T) {
	agg := analytics.NewAggregator(nil)
	collector := analytics.NewCollector(agg, 1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	collector.Start(ctx)

	f := newFixture(t, false, collector)
	report, err := f.checker.CheckText(context.Background(), "the quick brown fox jumps over the lazy dog", 0)
	require.NoError(t, err)
	require.NotEmpty(t, report.SimilarDocs)

	cancel()
	collector.Close()
	st := agg.Stats()
	assert.Equal(t, int64(1), st.TotalChecks)
	require.NotEmpty(t, st.TopMatchedDocs)
	assert.Equal(t, "doc_1", st.TopMatchedDocs[0].DocID)
}
