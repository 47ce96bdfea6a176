package registry

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseRegistry(t *testing.T, reg Registry) {
	ctx := context.Background()
	key := "key-" + uuid.NewString()
	id := uuid.NewString()

	found, err := reg.FindByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, reg.Insert(ctx, Record{DocumentID: id, Title: "t", ContentHash: "h", ContentSize: 4, IdempotencyKey: key}))
	err = reg.Insert(ctx, Record{DocumentID: uuid.NewString(), Title: "t", ContentHash: "h", IdempotencyKey: key})
	assert.ErrorIs(t, err, apperrors.ErrIdempotencyConflict)

	found, err = reg.FindByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.DocumentID)
	assert.Equal(t, ingestion.StatusPending, found.Status)

	require.NoError(t, reg.UpdateStatus(ctx, id, ingestion.StatusDuplicate, "already indexed"))
	st, err := reg.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatusDuplicate, st.Status)
	assert.Equal(t, "already indexed", st.StatusDetail)

	assert.ErrorIs(t, reg.UpdateStatus(ctx, uuid.NewString(), ingestion.StatusIndexed, ""), apperrors.ErrUnknownDocument)
	_, err = reg.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrUnknownDocument)
}

func TestMemoryRegistry(t *testing.T) {
	exerciseRegistry(t, NewMemory())
}

// TestPostgresRegistry runs against a live database when LSH_TEST_POSTGRES
// is set.
func TestPostgresRegistry(t *testing.T) {
	if os.Getenv("LSH_TEST_POSTGRES") == "" {
		t.Skip("LSH_TEST_POSTGRES not set")
	}
	cfg := config.Default().Postgres
	if host := os.Getenv("LSH_POSTGRES_HOST"); host != "" {
		cfg.Host = host
	}
	db, err := postgres.New(cfg)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, db.Migrate(ctx))
	exerciseRegistry(t, NewPostgres(db))
}
