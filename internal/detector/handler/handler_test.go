package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/checker"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	mux       *http.ServeMux
	main      *corpus.MainStore
	collector *analytics.Collector
}

func newServer(t *testing.T) server {
	t.Helper()
	idx, err := similarity.NewIndex(config.Default().LSH)
	require.NoError(t, err)
	require.NoError(t, idx.AddDocument("doc_1", "the quick brown fox jumps over the lazy dog"))
	require.NoError(t, idx.AddDocument("doc_2", "the quick brown fox jumps over the lazy cat"))
	require.NoError(t, idx.AddDocument("doc_3", "completely unrelated notes on medieval farming"))

	main := corpus.NewMainStore(filepath.Join(t.TempDir(), "main.txt"))
	m := metrics.New(prometheus.NewRegistry())
	chk := checker.New(idx, main, nil, nil, m, 0.1)

	agg := analytics.NewAggregator(nil)
	collector := analytics.NewCollector(agg, 100, time.Hour)

	mux := http.NewServeMux()
	New(idx, chk, nil, collector, agg, m).Register(mux)
	return server{mux: mux, main: main, collector: collector}
}

func (s server) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func TestHome(t *testing.T) {
	rec := newServer(t).do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, welcome, rec.Body.String())
}

func TestCheckWithoutMainDocument(t *testing.T) {
	rec := newServer(t).do(http.MethodGet, "/api/v1/check", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, float64(http.StatusNotFound), body["status"])
}

func TestReplaceThenCheck(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodPost, "/api/v1/replace", `{"text":"the quick brown fox jumps over the lazy dog"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report struct {
		SimilarDocs   json.RawMessage `json:"similar_docs"`
		ExecutionTime float64         `json:"execution_time"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	body := string(report.SimilarDocs)
	require.True(t, strings.HasPrefix(body, `{"doc_1":1`), body)
	assert.Less(t, strings.Index(body, "doc_1"), strings.Index(body, "doc_2"))
	assert.NotContains(t, body, "doc_3")

	rec = s.do(http.MethodGet, "/check?threshold=0.99", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"doc_1":1`)
	assert.NotContains(t, rec.Body.String(), "doc_2")

	rec = s.do(http.MethodGet, "/api/v1/main", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"the quick brown fox jumps over the lazy dog"}`, rec.Body.String())
}

func TestReplaceRejectsEmptyText(t *testing.T) {
	rec := newServer(t).do(http.MethodPost, "/replace", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckRejectsBadThreshold(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.main.Replace("anything at all"))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/check?threshold=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/check?threshold=2", "").Code)
}

func TestAddDocumentAndSimilar(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodPost, "/api/v1/documents", `{"id":"doc_4","text":"the quick brown fox jumps over the lazy dog"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":"doc_4","documents":4}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/documents", `{"id":"doc_4","text":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/documents", `{"id":"doc_5","text":"  ... "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/documents/doc_4/similar?threshold=0.9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"similar_docs":{"doc_1":1`)

	rec = s.do(http.MethodGet, "/api/v1/documents/missing/similar", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 3, s.collector.BufferLen(), "indexed, duplicate and rejected adds are all tracked")
}

func TestAddDocumentBadJSONNotTracked(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodPost, "/api/v1/documents", `{"id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, s.collector.BufferLen())
}

func TestStatsAndAnalytics(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st similarity.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, 3, st.Documents)
	assert.Equal(t, uint64(42), st.Seed)

	rec = s.do(http.MethodGet, "/api/v1/analytics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestCacheRoutesWhenDisabled(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodGet, "/api/v1/cache/stats", "")
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/v1/cache/invalidate", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
