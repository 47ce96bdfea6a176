// Package analytics records what the detector does: every similarity check
// and every document submitted to the index. Events travel through Kafka (or
// straight into a local Aggregator when Kafka is off) and are summarized for
// the /api/v1/analytics endpoint.
package analytics

import "time"

type EventType string

const (
	EventCheck    EventType = "check"
	EventIndexDoc EventType = "index_document"
)

// Index outcomes carried by IndexEvent.Status.
const (
	IndexStatusIndexed   = "indexed"
	IndexStatusDuplicate = "duplicate"
	IndexStatusRejected  = "rejected"
)

type CheckEvent struct {
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Threshold float64   `json:"threshold"`
	Matches   int       `json:"matches"`
	TopDocID  string    `json:"top_doc_id,omitempty"`
	TopScore  float64   `json:"top_score,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type IndexEvent struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"document_id"`
	Status     string    `json:"status"`
	SizeBytes  int       `json:"size_bytes"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewCheckEvent stamps a check event with its type and the current time.
func NewCheckEvent(source string, threshold float64, matches int, latency time.Duration, cacheHit bool) CheckEvent {
	return CheckEvent{
		Type:      EventCheck,
		Source:    source,
		Threshold: threshold,
		Matches:   matches,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexEvent stamps an index event with its type and the current time.
func NewIndexEvent(docID, status string, sizeBytes int, latency time.Duration) IndexEvent {
	return IndexEvent{
		Type:       EventIndexDoc,
		DocumentID: docID,
		Status:     status,
		SizeBytes:  sizeBytes,
		LatencyMs:  latency.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
}
