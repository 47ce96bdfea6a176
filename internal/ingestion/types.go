// Package ingestion defines the request/response types and Kafka event schema
// of the document ingestion pipeline that feeds the detector's corpus.
package ingestion

import "time"

// Registry statuses of an ingested document.
const (
	StatusPending   = "PENDING"
	StatusIndexed   = "INDEXED"
	StatusDuplicate = "DUPLICATE"
	StatusRejected  = "REJECTED"
)

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
type IngestRequest struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	IdempotencyKey string `json:"idempotency_key"`
}

// IngestResponse is returned to the caller after a document is accepted.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// IngestEvent is the Kafka message payload produced after a document is
// registered and ready to be added to the LSH index.
type IngestEvent struct {
	DocumentID  string    `json:"document_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ContentHash string    `json:"content_hash"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// DocumentStatus is a registry row as reported by the status endpoint.
type DocumentStatus struct {
	DocumentID   string    `json:"document_id"`
	Title        string    `json:"title"`
	ContentHash  string    `json:"content_hash"`
	ContentSize  int       `json:"content_size"`
	Status       string    `json:"status"`
	StatusDetail string    `json:"status_detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
