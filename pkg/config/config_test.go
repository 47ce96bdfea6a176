package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, uint32(100), cfg.LSH.NumHashFunctions)
	assert.Equal(t, uint32(20), cfg.LSH.Bands)
	assert.Equal(t, uint32(5), cfg.LSH.RowsPerBand())
	assert.Equal(t, uint64(42), cfg.LSH.Seed)
	assert.InDelta(t, 0.1, cfg.LSH.DefaultThreshold, 1e-9)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9999
  readTimeout: 5s
lsh:
  numHashFunctions: 200
  bands: 40
  shingleSize: 4
  seed: 7
corpus:
  documentsDir: /srv/essays
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("LSH_SEED", "99")
	t.Setenv("LSH_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, uint32(200), cfg.LSH.NumHashFunctions)
	assert.Equal(t, uint32(40), cfg.LSH.Bands)
	assert.Equal(t, uint32(4), cfg.LSH.ShingleSize)
	assert.Equal(t, uint64(99), cfg.LSH.Seed)
	assert.Equal(t, "/srv/essays", cfg.Corpus.DocumentsDir)
	assert.Equal(t, "main.txt", cfg.Corpus.MainFile)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsInvalidLSH(t *testing.T) {
	t.Setenv("LSH_BANDS", "7")
	_, err := Load("")
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfiguration)
}

func TestLoadRejectsNonPositiveFlushInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
snapshot:
  dataDir: /var/lib/lsh
  flushInterval: 0s
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfiguration)

	data = []byte(`
snapshot:
  flushInterval: 0s
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	_, err = Load(path)
	assert.NoError(t, err, "no data dir means no flush loop")
}

func TestLSHConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  LSHConfig
		ok   bool
	}{
		{"valid", LSHConfig{NumHashFunctions: 100, Bands: 20, ShingleSize: 3}, true},
		{"zero hashes", LSHConfig{NumHashFunctions: 0, Bands: 20, ShingleSize: 3}, false},
		{"zero bands", LSHConfig{NumHashFunctions: 100, Bands: 0, ShingleSize: 3}, false},
		{"zero shingle", LSHConfig{NumHashFunctions: 100, Bands: 20, ShingleSize: 0}, false},
		{"not divisible", LSHConfig{NumHashFunctions: 100, Bands: 30, ShingleSize: 3}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrInvalidConfiguration)
		})
	}
}
