// Package proto defines the message types exchanged with the detector over
// the JSON-over-TCP RPC layer (see pkg/rpc). Field tags match the HTTP API so
// both transports share one JSON shape.
package proto

import (
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/ranker"
)

// Method names registered by the detector.
const (
	MethodAddDocument = "SimilarityService.AddDocument"
	MethodFindSimilar = "SimilarityService.FindSimilar"
	MethodCheck       = "SimilarityService.Check"
	MethodStats       = "SimilarityService.Stats"
)

// ---------- Documents ----------

// AddDocumentRequest is the input to the AddDocument RPC.
type AddDocumentRequest struct {
	DocumentID string `json:"id"`
	Text       string `json:"text"`
}

// AddDocumentResponse is the output of the AddDocument RPC.
type AddDocumentResponse struct {
	DocumentID string `json:"id"`
	Documents  int    `json:"documents"`
}

// ---------- Similarity ----------

// FindSimilarRequest asks for documents similar to a stored document. A nil
// Threshold means the server default.
type FindSimilarRequest struct {
	DocumentID string   `json:"id"`
	Threshold  *float64 `json:"threshold,omitempty"`
}

// FindSimilarResponse carries ranked matches, best first.
type FindSimilarResponse struct {
	DocumentID  string         `json:"id"`
	Threshold   float64        `json:"threshold"`
	SimilarDocs ranker.Ordered `json:"similar_docs"`
}

// CheckRequest runs the main-document check. Text, when set, replaces the
// main document first.
type CheckRequest struct {
	Threshold *float64 `json:"threshold,omitempty"`
	Text      string   `json:"text,omitempty"`
}

// CheckResponse mirrors the HTTP check body.
type CheckResponse struct {
	SimilarDocs   ranker.Ordered `json:"similar_docs"`
	ExecutionTime float64        `json:"execution_time"`
	Cached        bool           `json:"cached,omitempty"`
}

// ---------- Stats ----------

// StatsRequest is empty; it exists so every method takes a params object.
type StatsRequest struct{}

// StatsResponse contains index-level statistics.
type StatsResponse struct {
	Documents        int    `json:"documents"`
	Bands            int    `json:"bands"`
	RowsPerBand      int    `json:"rows_per_band"`
	Buckets          int    `json:"buckets"`
	LargestBucket    int    `json:"largest_bucket"`
	NumHashFunctions uint32 `json:"num_hash_functions"`
	ShingleSize      uint32 `json:"shingle_size"`
	Seed             uint64 `json:"seed"`
}
