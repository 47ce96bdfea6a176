// Package publisher registers incoming documents and publishes ingest events
// to Kafka for the detector to add to its LSH index. Writes are idempotent
// when the caller supplies an idempotency key.
package publisher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion/registry"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/resilience"
	"github.com/google/uuid"
)

// Publisher coordinates document registration and Kafka event production.
type Publisher struct {
	registry registry.Registry
	producer kafka.Publisher
	metrics  *metrics.Metrics
	retry    resilience.RetryConfig
	logger   *slog.Logger
}

// New creates a Publisher. m may be nil.
func New(reg registry.Registry, producer kafka.Publisher, m *metrics.Metrics) *Publisher {
	return &Publisher{
		registry: reg,
		producer: producer,
		metrics:  m,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			Retryable:    func(err error) bool { return !apperrors.IsValidation(err) },
		},
		logger: logger.WithComponent("publisher"),
	}
}

// Ingest registers the document as PENDING and publishes an IngestEvent keyed
// by document id. A repeated idempotency key returns the earlier document
// without re-publishing. A publish that still fails after retries is logged
// and the row stays PENDING.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	if req.IdempotencyKey != "" {
		existing, err := p.registry.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != nil {
			p.logger.Info("duplicate ingestion detected",
				"idempotency_key", req.IdempotencyKey,
				"existing_id", existing.DocumentID,
			)
			p.count("replayed")
			return existing, nil
		}
	}

	contentHash := fmt.Sprintf("%x", sha256.Sum256([]byte(req.Body)))
	docID := uuid.NewString()
	err := resilience.Retry(ctx, "registry-insert", p.retry, func() error {
		return p.registry.Insert(ctx, registry.Record{
			DocumentID:     docID,
			Title:          req.Title,
			ContentHash:    contentHash,
			ContentSize:    len(req.Body),
			IdempotencyKey: req.IdempotencyKey,
		})
	})
	if err != nil {
		p.count("failed")
		return nil, fmt.Errorf("registering document: %w", err)
	}

	event := kafka.Event{
		Key: docID,
		Value: ingestion.IngestEvent{
			DocumentID:  docID,
			Title:       req.Title,
			Body:        req.Body,
			ContentHash: contentHash,
			IngestedAt:  time.Now().UTC(),
		},
	}
	err = resilience.Retry(ctx, "publish-ingest", p.retry, func() error {
		return p.producer.Publish(ctx, event)
	})
	if err != nil {
		p.logger.Error("failed to publish to kafka, document stuck in PENDING",
			"doc_id", docID,
			"error", err,
		)
		p.count("unpublished")
	} else {
		p.count("published")
	}
	return &ingestion.IngestResponse{
		DocumentID: docID,
		Status:     ingestion.StatusPending,
	}, nil
}

// Status reports the registry row of a document.
func (p *Publisher) Status(ctx context.Context, documentID string) (*ingestion.DocumentStatus, error) {
	return p.registry.Get(ctx, documentID)
}

func (p *Publisher) count(status string) {
	if p.metrics != nil {
		p.metrics.DocsIngestedTotal.WithLabelValues(status).Inc()
	}
}
