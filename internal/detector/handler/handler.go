// Package handler exposes the detector over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/cache"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/checker"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/proto"
)

const (
	welcome         = "Welcome to the plagiarism detector\n"
	maxRequestBytes = 4 << 20
)

// Checker is the main-document check service.
type Checker interface {
	Check(ctx context.Context, threshold float64) (*checker.Report, error)
	Replace(ctx context.Context, text string, threshold float64) (*checker.Report, error)
	MainText(ctx context.Context) (string, error)
	DefaultThreshold() float64
}

// Index is the corpus index.
type Index interface {
	AddDocument(docID string, text string) error
	FindSimilar(docID string, threshold float64) ([]ranker.ScoredDoc, error)
	Stats() similarity.Stats
}

type Handler struct {
	index     Index
	checker   Checker
	cache     *cache.ResultCache
	collector *analytics.Collector
	analytics *analytics.Handler
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New wires the detector routes. resultCache, collector, aggregator and m
// may be nil.
func New(
	index Index,
	chk Checker,
	resultCache *cache.ResultCache,
	collector *analytics.Collector,
	aggregator *analytics.Aggregator,
	m *metrics.Metrics,
) *Handler {
	h := &Handler{
		index:     index,
		checker:   chk,
		cache:     resultCache,
		collector: collector,
		metrics:   m,
		logger:    logger.WithComponent("detector-handler"),
	}
	if aggregator != nil {
		h.analytics = analytics.NewHandler(aggregator)
	}
	return h
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /check", h.Check)
	mux.HandleFunc("POST /replace", h.Replace)
	mux.HandleFunc("GET /api/v1/check", h.Check)
	mux.HandleFunc("POST /api/v1/replace", h.Replace)
	mux.HandleFunc("GET /api/v1/main", h.Main)
	mux.HandleFunc("POST /api/v1/documents", h.AddDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/similar", h.Similar)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics", h.Analytics)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, welcome)
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	threshold, ok := h.threshold(w, r)
	if !ok {
		return
	}
	report, err := h.checker.Check(r.Context(), threshold)
	if err != nil {
		h.fail(w, r, "check failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

type replaceRequest struct {
	Text      string   `json:"text"`
	Threshold *float64 `json:"threshold,omitempty"`
}

func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if !h.decode(w, r, &req) {
		return
	}
	threshold := h.checker.DefaultThreshold()
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	report, err := h.checker.Replace(r.Context(), req.Text, threshold)
	if err != nil {
		h.fail(w, r, "replace failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Main(w http.ResponseWriter, r *http.Request) {
	text, err := h.checker.MainText(r.Context())
	if err != nil {
		h.fail(w, r, "reading main document failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	var req proto.AddDocumentRequest
	if !h.decode(w, r, &req) {
		return
	}
	start := time.Now()
	err := h.index.AddDocument(req.DocumentID, req.Text)
	h.trackIndexed(req.DocumentID, len(req.Text), time.Since(start), err)
	if err != nil {
		h.fail(w, r, "adding document failed", err)
		return
	}
	st := h.index.Stats()
	if h.metrics != nil {
		h.metrics.IndexDocuments.Set(float64(st.Documents))
		h.metrics.IndexBuckets.Set(float64(st.Buckets))
	}
	logger.FromContext(r.Context()).Info("document added", "doc_id", req.DocumentID, "documents", st.Documents)
	h.writeJSON(w, http.StatusCreated, proto.AddDocumentResponse{
		DocumentID: req.DocumentID,
		Documents:  st.Documents,
	})
}

func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	threshold, ok := h.threshold(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	docs, err := h.index.FindSimilar(id, threshold)
	if err != nil {
		h.fail(w, r, "similarity query failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, proto.FindSimilarResponse{
		DocumentID:  id,
		Threshold:   threshold,
		SimilarDocs: ranker.Ordered(docs),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.index.Stats())
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		h.writeError(w, http.StatusServiceUnavailable, "analytics are disabled")
		return
	}
	h.analytics.Stats(w, r)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// threshold parses the optional threshold query parameter.
func (h *Handler) threshold(w http.ResponseWriter, r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		return h.checker.DefaultThreshold(), true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "threshold must be a number in [0,1]")
		return 0, false
	}
	return v, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// trackIndexed reports an AddDocument outcome the same way the ingest
// consumer does. Internal failures are not index outcomes and are skipped.
func (h *Handler) trackIndexed(docID string, size int, latency time.Duration, err error) {
	status := analytics.IndexStatusIndexed
	switch {
	case err == nil:
	case apperrors.HTTPStatusCode(err) == http.StatusConflict:
		status = analytics.IndexStatusDuplicate
	case apperrors.IsValidation(err):
		status = analytics.IndexStatusRejected
	default:
		return
	}
	if h.metrics != nil {
		h.metrics.DocsIndexedTotal.WithLabelValues(status).Inc()
	}
	if h.collector != nil {
		h.collector.Track(analytics.NewIndexEvent(docID, status, size, latency))
	}
}

// fail maps err to a status code. Client errors echo the error text; server
// errors are logged and hidden behind msg.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error(msg, "error", err, "status_code", status)
		h.writeError(w, status, msg)
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{"status": status, "message": message})
}
