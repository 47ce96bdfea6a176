package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	essayA = "rivers carve deep valleys as they wind toward the sea over many centuries"
	essayB = "the printing press changed how ideas spread across early modern europe"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Corpus.DocumentsDir = t.TempDir()
	cfg.Snapshot.DataDir = t.TempDir()
	return cfg
}

func newIndex(t *testing.T, cfg *config.Config) *similarity.Index {
	t.Helper()
	idx, err := similarity.NewIndex(cfg.LSH)
	require.NoError(t, err)
	require.NoError(t, loadIndex(idx, cfg))
	return idx
}

func TestLoadIndexCorpusOwnsDocumentIDs(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Corpus.DocumentsDir, "b.txt"), []byte(essayB), 0o644))

	first := newIndex(t, cfg)
	require.NoError(t, first.AddDocument("api-doc", "submitted through the api and kept across restarts"))
	_, err := first.SaveSnapshot(cfg.Snapshot.DataDir)
	require.NoError(t, err)

	// a.txt sorts first, so b.txt moves from doc_1 to doc_2.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Corpus.DocumentsDir, "a.txt"), []byte(essayA), 0o644))
	second := newIndex(t, cfg)
	assert.Equal(t, 3, second.Len())

	for id, text := range map[string]string{"doc_1": essayA, "doc_2": essayB} {
		want, err := second.SignatureOf(text)
		require.NoError(t, err)
		got, err := second.Signature(id)
		require.NoError(t, err)
		assert.Equal(t, want, got, id)
	}

	similar, err := second.FindSimilar("doc_1", 0.9)
	require.NoError(t, err)
	assert.Empty(t, similar)

	_, err = second.Signature("api-doc")
	assert.NoError(t, err)
}

func TestLoadIndexWithoutSnapshotDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Snapshot.DataDir = ""
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Corpus.DocumentsDir, "a.txt"), []byte(essayA), 0o644))

	idx := newIndex(t, cfg)
	assert.Equal(t, 1, idx.Len())
}

func TestLoadIndexMissingCorpus(t *testing.T) {
	cfg := testConfig(t)
	cfg.Corpus.DocumentsDir = filepath.Join(t.TempDir(), "missing")
	idx, err := similarity.NewIndex(cfg.LSH)
	require.NoError(t, err)
	assert.Error(t, loadIndex(idx, cfg))
}
