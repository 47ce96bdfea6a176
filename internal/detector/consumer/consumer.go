// Package consumer reads ingestion events from Kafka and adds the documents
// to the detector's LSH index, reporting the outcome back to the registry.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion/registry"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
)

// Index is the part of similarity.Index the consumer writes to.
type Index interface {
	AddDocument(docID string, text string) error
	Len() int
}

// IndexConsumer wraps a Kafka consumer to drive indexing.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   logger.WithComponent("index-consumer"),
	}
}

// Start consumes until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

func (ic *IndexConsumer) Close() error {
	return ic.consumer.Close()
}

// HandleMessage returns a MessageHandler that adds every ingest event to idx.
// reg, collector and m may be nil. Undecodable messages and rejected
// documents are acknowledged; only unexpected index errors leave the
// message uncommitted.
func HandleMessage(idx Index, reg registry.Registry, collector *analytics.Collector, m *metrics.Metrics) kafka.MessageHandler {
	log := logger.WithComponent("index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			log.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		start := time.Now()
		addErr := idx.AddDocument(event.DocumentID, event.Body)

		status, outcome, detail := ingestion.StatusIndexed, analytics.IndexStatusIndexed, ""
		switch {
		case addErr == nil:
		case errors.Is(addErr, apperrors.ErrDuplicateDocument):
			status, outcome, detail = ingestion.StatusDuplicate, analytics.IndexStatusDuplicate, addErr.Error()
		case apperrors.IsValidation(addErr):
			status, outcome, detail = ingestion.StatusRejected, analytics.IndexStatusRejected, addErr.Error()
		default:
			return fmt.Errorf("indexing document %s: %w", event.DocumentID, addErr)
		}

		if reg != nil {
			if err := reg.UpdateStatus(ctx, event.DocumentID, status, detail); err != nil {
				log.Error("failed to update document status",
					"doc_id", event.DocumentID,
					"status", status,
					"error", err,
				)
			}
		}
		if m != nil {
			m.DocsIndexedTotal.WithLabelValues(outcome).Inc()
			m.IndexDocuments.Set(float64(idx.Len()))
		}
		if collector != nil {
			collector.Track(analytics.NewIndexEvent(event.DocumentID, outcome, len(event.Body), time.Since(start)))
		}

		if addErr != nil {
			log.Warn("document not indexed",
				"doc_id", event.DocumentID,
				"status", status,
				"reason", addErr,
			)
			return nil
		}
		log.Info("document indexed",
			"doc_id", event.DocumentID,
			"title", event.Title,
			"documents", idx.Len(),
		)
		return nil
	}
}
