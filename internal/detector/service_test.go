package detector

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/checker"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialService(t *testing.T) *rpc.Client {
	t.Helper()
	idx, err := similarity.NewIndex(config.Default().LSH)
	require.NoError(t, err)
	main := corpus.NewMainStore(filepath.Join(t.TempDir(), "main.txt"))
	chk := checker.New(idx, main, nil, nil, nil, 0.1)

	s := rpc.NewServer()
	NewService(idx, chk).Register(s)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.ServeListener(ln)
	t.Cleanup(s.Stop)

	c, err := rpc.Dial(ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSimilarityServiceOverRPC(t *testing.T) {
	c := dialService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var added proto.AddDocumentResponse
	require.NoError(t, c.Call(ctx, proto.MethodAddDocument, proto.AddDocumentRequest{DocumentID: "doc_1", Text: "the quick brown fox"}, &added))
	require.NoError(t, c.Call(ctx, proto.MethodAddDocument, proto.AddDocumentRequest{DocumentID: "doc_2", Text: "the quick brown fox jumps"}, &added))
	assert.Equal(t, 2, added.Documents)

	err := c.Call(ctx, proto.MethodAddDocument, proto.AddDocumentRequest{DocumentID: "doc_1", Text: "again"}, &added)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateDocument)

	threshold := 0.5
	var similar proto.FindSimilarResponse
	require.NoError(t, c.Call(ctx, proto.MethodFindSimilar, proto.FindSimilarRequest{DocumentID: "doc_1", Threshold: &threshold}, &similar))
	require.Len(t, similar.SimilarDocs, 1)
	assert.Equal(t, "doc_2", similar.SimilarDocs[0].DocID)

	err = c.Call(ctx, proto.MethodFindSimilar, proto.FindSimilarRequest{DocumentID: "nope"}, &similar)
	assert.ErrorIs(t, err, apperrors.ErrUnknownDocument)

	var checked proto.CheckResponse
	require.NoError(t, c.Call(ctx, proto.MethodCheck, proto.CheckRequest{Text: "the quick brown fox"}, &checked))
	require.NotEmpty(t, checked.SimilarDocs)
	assert.Equal(t, "doc_1", checked.SimilarDocs[0].DocID)

	var stats proto.StatsResponse
	require.NoError(t, c.Call(ctx, proto.MethodStats, proto.StatsRequest{}, &stats))
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 20, stats.Bands)
	assert.Equal(t, uint64(42), stats.Seed)
}
