package apikey

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKeyIsStableHex(t *testing.T) {
	h := HashKey("secret")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashKey("secret"))
	assert.NotEqual(t, h, HashKey("Secret"))
}

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	keys := NewMemory()

	raw, info, err := keys.Create(ctx, "grader", nil)
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.True(t, info.IsActive)

	got, err := keys.Validate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)

	_, err = keys.Validate(ctx, "not-a-key")
	assert.ErrorIs(t, err, ErrInvalidKey)

	listed, err := keys.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, keys.Revoke(ctx, info.ID))
	assert.ErrorIs(t, keys.Revoke(ctx, info.ID), ErrInvalidKey)
	_, err = keys.Validate(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemoryExpiredKey(t *testing.T) {
	keys := NewMemory()
	past := time.Now().Add(-time.Hour)
	raw, _, err := keys.Create(context.Background(), "old", &past)
	require.NoError(t, err)
	_, err = keys.Validate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrExpiredKey)
}

func TestRequireForWrites(t *testing.T) {
	keys := NewMemory()
	raw, info, err := keys.Create(context.Background(), "ci", nil)
	require.NoError(t, err)

	var seen *KeyInfo
	h := RequireForWrites(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	serve := func(method, path string, header map[string]string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, nil)
		for k, v := range header {
			r.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/api/v1/check", nil).Code)
	assert.Nil(t, seen)

	rec := serve(http.MethodPost, "/api/v1/replace", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":401,"message":"missing api key"}`, rec.Body.String())

	rec = serve(http.MethodPost, "/api/v1/replace", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(http.MethodPost, "/api/v1/replace", map[string]string{"Authorization": "Bearer " + raw})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, info.ID, seen.ID)

	assert.Equal(t, http.StatusOK, serve(http.MethodPost, "/health/ready", nil).Code)
}
