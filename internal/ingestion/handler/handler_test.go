package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion/registry"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopProducer struct{}

func (nopProducer) Publish(context.Context, kafka.Event) error        { return nil }
func (nopProducer) PublishBatch(context.Context, []kafka.Event) error { return nil }

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	New(publisher.New(registry.NewMemory(), nopProducer{}, nil)).Register(mux)
	return mux
}

func TestIngestAndStatus(t *testing.T) {
	mux := newMux()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/documents",
		strings.NewReader(`{"title":"Essay","body":"The quick brown fox."}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp ingestion.IngestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, ingestion.StatusPending, resp.Status)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+resp.DocumentID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st ingestion.DocumentStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, "Essay", st.Title)
}

func TestIngestValidationErrors(t *testing.T) {
	mux := newMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":400,"message":"invalid JSON body"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(`{"title":"","body":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "validation failed", body["message"])
	assert.Contains(t, body["fields"], "title")
}

func TestStatusUnknownDocument(t *testing.T) {
	rec := httptest.NewRecorder()
	newMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
