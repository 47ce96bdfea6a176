package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
)

// Memory is an in-process Registry for tests and for running the detector
// without PostgreSQL.
type Memory struct {
	mu    sync.Mutex
	docs  map[string]*ingestion.DocumentStatus
	byKey map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]*ingestion.DocumentStatus),
		byKey: make(map[string]string),
	}
}

func (m *Memory) FindByIdempotencyKey(ctx context.Context, key string) (*ingestion.IngestResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, nil
	}
	return &ingestion.IngestResponse{DocumentID: id, Status: m.docs[id].Status}, nil
}

func (m *Memory) Insert(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.IdempotencyKey != "" {
		if _, ok := m.byKey[rec.IdempotencyKey]; ok {
			return apperrors.New(apperrors.ErrIdempotencyConflict, 409, "idempotency key already in use")
		}
		m.byKey[rec.IdempotencyKey] = rec.DocumentID
	}
	now := time.Now().UTC()
	m.docs[rec.DocumentID] = &ingestion.DocumentStatus{
		DocumentID:  rec.DocumentID,
		Title:       rec.Title,
		ContentHash: rec.ContentHash,
		ContentSize: rec.ContentSize,
		Status:      ingestion.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (m *Memory) UpdateStatus(ctx context.Context, documentID, status, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return fmt.Errorf("%w: %q not registered", apperrors.ErrUnknownDocument, documentID)
	}
	doc.Status = status
	doc.StatusDetail = detail
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) Get(ctx context.Context, documentID string) (*ingestion.DocumentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDocument, documentID)
	}
	cp := *doc
	return &cp, nil
}
