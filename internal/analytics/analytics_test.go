package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (s *recordingSink) PublishBatch(ctx context.Context, events []kafka.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broker down")
	}
	s.batches = append(s.batches, events)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestAggregatorRecordsChecksAndIndexing(t *testing.T) {
	agg := NewAggregator(nil)
	check := NewCheckEvent("main", 0.1, 2, 12*time.Millisecond, false)
	check.TopDocID = "doc_3"
	require.NoError(t, agg.PublishBatch(context.Background(), []kafka.Event{
		{Value: check},
		{Value: NewCheckEvent("main", 0.1, 0, 4*time.Millisecond, true)},
		{Value: NewIndexEvent("doc_1", IndexStatusIndexed, 100, time.Millisecond)},
		{Value: NewIndexEvent("doc_1", IndexStatusDuplicate, 100, time.Millisecond)},
		{Value: NewIndexEvent("doc_2", IndexStatusRejected, 0, time.Millisecond)},
	}))

	st := agg.Stats()
	assert.Equal(t, int64(2), st.TotalChecks)
	assert.Equal(t, int64(1), st.ChecksWithMatch)
	assert.Equal(t, int64(1), st.NoMatchChecks)
	assert.Equal(t, int64(1), st.CacheHits)
	assert.Equal(t, int64(1), st.CacheMisses)
	assert.Equal(t, int64(1), st.DocsIndexed)
	assert.Equal(t, int64(1), st.DocsDuplicate)
	assert.Equal(t, int64(1), st.DocsRejected)
	assert.Equal(t, 1.0, st.AvgMatches)
	assert.Equal(t, 8.0, st.AvgLatencyMs)
	assert.Equal(t, []DocCount{{DocID: "doc_3", Count: 1}}, st.TopMatchedDocs)
	assert.NotNil(t, st.LastEventAt)
}

func TestHandleEventDecodesByType(t *testing.T) {
	agg := NewAggregator(nil)
	handle := HandleEvent(agg)

	check, err := json.Marshal(NewCheckEvent("rpc", 0.5, 1, time.Millisecond, false))
	require.NoError(t, err)
	index, err := json.Marshal(NewIndexEvent("doc_9", IndexStatusIndexed, 10, time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, handle(context.Background(), nil, check))
	require.NoError(t, handle(context.Background(), nil, index))
	require.NoError(t, handle(context.Background(), nil, []byte(`{"type":"mystery"}`)))
	require.NoError(t, handle(context.Background(), nil, []byte(`not json`)))

	st := agg.Stats()
	assert.Equal(t, int64(1), st.TotalChecks)
	assert.Equal(t, int64(1), st.DocsIndexed)
	assert.Equal(t, int64(2), st.UndecodedEvents)
}

func TestRestoreAddsPreviousCounters(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Restore(AggregatedStats{TotalChecks: 10, DocsIndexed: 4, AvgMatches: 0.5})
	require.NoError(t, agg.PublishBatch(context.Background(), []kafka.Event{
		{Value: NewCheckEvent("main", 0.1, 3, time.Millisecond, false)},
	}))
	st := agg.Stats()
	assert.Equal(t, int64(11), st.TotalChecks)
	assert.Equal(t, int64(4), st.DocsIndexed)
	assert.InDelta(t, 8.0/11.0, st.AvgMatches, 1e-9)
}

func TestCollectorFlushesOnBatchSizeAndShutdown(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(sink, 2, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	c.Track(NewCheckEvent("main", 0.1, 0, 0, false))
	c.Track(NewCheckEvent("main", 0.1, 0, 0, false))
	assert.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)

	c.Track(NewIndexEvent("doc_1", IndexStatusIndexed, 1, 0))
	cancel()
	c.Close()
	assert.Equal(t, 3, sink.count())
	assert.Zero(t, c.BufferLen())
}

func TestCollectorRequeuesOnFailure(t *testing.T) {
	sink := &recordingSink{fail: true}
	c := NewCollector(sink, 10, time.Hour)
	c.Track(NewCheckEvent("main", 0.1, 0, 0, false))
	c.flush(context.Background())
	assert.Equal(t, 1, c.BufferLen())

	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()
	c.flush(context.Background())
	assert.Zero(t, c.BufferLen())
	assert.Equal(t, 1, sink.count())
}

func TestHandlerServesStats(t *testing.T) {
	agg := NewAggregator(nil)
	require.NoError(t, agg.PublishBatch(context.Background(), []kafka.Event{
		{Value: NewCheckEvent("main", 0.1, 1, time.Millisecond, false)},
	}))
	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var st AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, int64(1), st.TotalChecks)
}
