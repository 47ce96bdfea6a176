package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion/registry"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	mu       sync.Mutex
	events   []kafka.Event
	failures int
}

func (f *fakeProducer) Publish(ctx context.Context, event kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeProducer) PublishBatch(ctx context.Context, events []kafka.Event) error {
	for _, e := range events {
		if err := f.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func TestIngestRegistersAndPublishes(t *testing.T) {
	reg := registry.NewMemory()
	prod := &fakeProducer{failures: 1}
	m := metrics.New(prometheus.NewRegistry())
	pub := New(reg, prod, m)

	resp, err := pub.Ingest(context.Background(), &ingestion.IngestRequest{Title: "Essay", Body: "some body text"})
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatusPending, resp.Status)
	assert.NotEmpty(t, resp.DocumentID)

	require.Len(t, prod.events, 1, "publish is retried")
	event := prod.events[0].Value.(ingestion.IngestEvent)
	assert.Equal(t, resp.DocumentID, event.DocumentID)
	assert.Equal(t, resp.DocumentID, prod.events[0].Key)
	assert.Equal(t, "some body text", event.Body)
	assert.Len(t, event.ContentHash, 64)

	st, err := pub.Status(context.Background(), resp.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatusPending, st.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsIngestedTotal.WithLabelValues("published")))
}

func TestIngestIdempotencyKeyReplays(t *testing.T) {
	reg := registry.NewMemory()
	prod := &fakeProducer{}
	pub := New(reg, prod, nil)
	req := &ingestion.IngestRequest{Title: "Essay", Body: "text", IdempotencyKey: "k1"}

	first, err := pub.Ingest(context.Background(), req)
	require.NoError(t, err)
	second, err := pub.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Len(t, prod.events, 1)
}

func TestIngestKeepsPendingWhenKafkaDown(t *testing.T) {
	reg := registry.NewMemory()
	prod := &fakeProducer{failures: 100}
	pub := New(reg, prod, nil)

	resp, err := pub.Ingest(context.Background(), &ingestion.IngestRequest{Title: "t", Body: "b"})
	require.NoError(t, err)
	st, err := reg.Get(context.Background(), resp.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatusPending, st.Status)
	assert.Empty(t, prod.events)
}
