// Package registry keeps the PostgreSQL record of every ingested document and
// its indexing status.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/postgres"
)

// Record is a new registry row.
type Record struct {
	DocumentID     string
	Title          string
	ContentHash    string
	ContentSize    int
	IdempotencyKey string
}

// Registry is the document registry used by the ingestion publisher and the
// detector's ingest consumer.
type Registry interface {
	FindByIdempotencyKey(ctx context.Context, key string) (*ingestion.IngestResponse, error)
	Insert(ctx context.Context, rec Record) error
	UpdateStatus(ctx context.Context, documentID, status, detail string) error
	Get(ctx context.Context, documentID string) (*ingestion.DocumentStatus, error)
}

// Postgres is the lib/pq-backed Registry.
type Postgres struct {
	db *postgres.Client
}

func NewPostgres(db *postgres.Client) *Postgres {
	return &Postgres{db: db}
}

// FindByIdempotencyKey returns the existing document registered under key,
// or nil when there is none.
func (p *Postgres) FindByIdempotencyKey(ctx context.Context, key string) (*ingestion.IngestResponse, error) {
	var resp ingestion.IngestResponse
	err := p.db.DB.QueryRowContext(ctx,
		`SELECT id, status FROM documents WHERE idempotency_key=$1`, key).Scan(&resp.DocumentID, &resp.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	return &resp, nil
}

// Insert adds a PENDING row. A concurrent insert with the same idempotency
// key yields ErrIdempotencyConflict.
func (p *Postgres) Insert(ctx context.Context, rec Record) error {
	return p.db.InTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx,
			`INSERT INTO documents (id, title, content_hash, content_size, idempotency_key, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id`,
			rec.DocumentID, rec.Title, rec.ContentHash, rec.ContentSize,
			nullableString(rec.IdempotencyKey), ingestion.StatusPending).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.New(apperrors.ErrIdempotencyConflict, 409, "idempotency key already in use")
		}
		return err
	})
}

// UpdateStatus records the indexing outcome of a document.
func (p *Postgres) UpdateStatus(ctx context.Context, documentID, status, detail string) error {
	res, err := p.db.DB.ExecContext(ctx,
		`UPDATE documents SET status=$2, status_detail=$3, updated_at=now() WHERE id=$1`,
		documentID, status, nullableString(detail))
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", documentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q not registered", apperrors.ErrUnknownDocument, documentID)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, documentID string) (*ingestion.DocumentStatus, error) {
	var st ingestion.DocumentStatus
	var detail sql.NullString
	err := p.db.DB.QueryRowContext(ctx,
		`SELECT id, title, content_hash, content_size, status, status_detail, created_at, updated_at
		FROM documents WHERE id=$1`, documentID).Scan(
		&st.DocumentID, &st.Title, &st.ContentHash, &st.ContentSize,
		&st.Status, &detail, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDocument, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", documentID, err)
	}
	st.StatusDetail = detail.String
	return &st, nil
}

// nullableString converts a Go string to a sql.NullString, treating the
// empty string as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
