// Package detector exposes the similarity index and the main-document
// checker as RPC methods for other services.
package detector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/detector/checker"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/rpc"
)

type Index interface {
	AddDocument(docID string, text string) error
	FindSimilar(docID string, threshold float64) ([]ranker.ScoredDoc, error)
	Len() int
	Stats() similarity.Stats
}

type Checker interface {
	Check(ctx context.Context, threshold float64) (*checker.Report, error)
	Replace(ctx context.Context, text string, threshold float64) (*checker.Report, error)
	DefaultThreshold() float64
}

// Service implements the SimilarityService RPC methods.
type Service struct {
	index   Index
	checker Checker
}

func NewService(index Index, chk Checker) *Service {
	return &Service{index: index, checker: chk}
}

// Register adds every SimilarityService method to s.
func (svc *Service) Register(s *rpc.Server) {
	s.Register(proto.MethodAddDocument, svc.addDocument)
	s.Register(proto.MethodFindSimilar, svc.findSimilar)
	s.Register(proto.MethodCheck, svc.check)
	s.Register(proto.MethodStats, svc.stats)
}

func (svc *Service) addDocument(ctx context.Context, raw json.RawMessage) (any, error) {
	var req proto.AddDocumentRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	if err := svc.index.AddDocument(req.DocumentID, req.Text); err != nil {
		return nil, err
	}
	return proto.AddDocumentResponse{DocumentID: req.DocumentID, Documents: svc.index.Len()}, nil
}

func (svc *Service) findSimilar(ctx context.Context, raw json.RawMessage) (any, error) {
	var req proto.FindSimilarRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	threshold := svc.threshold(req.Threshold)
	docs, err := svc.index.FindSimilar(req.DocumentID, threshold)
	if err != nil {
		return nil, err
	}
	return proto.FindSimilarResponse{
		DocumentID:  req.DocumentID,
		Threshold:   threshold,
		SimilarDocs: ranker.Ordered(docs),
	}, nil
}

func (svc *Service) check(ctx context.Context, raw json.RawMessage) (any, error) {
	var req proto.CheckRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	threshold := svc.threshold(req.Threshold)
	var (
		report *checker.Report
		err    error
	)
	if req.Text != "" {
		report, err = svc.checker.Replace(ctx, req.Text, threshold)
	} else {
		report, err = svc.checker.Check(ctx, threshold)
	}
	if err != nil {
		return nil, err
	}
	return proto.CheckResponse{
		SimilarDocs:   report.SimilarDocs,
		ExecutionTime: report.ExecutionTime,
		Cached:        report.Cached,
	}, nil
}

func (svc *Service) stats(ctx context.Context, raw json.RawMessage) (any, error) {
	st := svc.index.Stats()
	return proto.StatsResponse{
		Documents:        st.Documents,
		Bands:            st.Bands,
		RowsPerBand:      st.RowsPerBand,
		Buckets:          st.Buckets,
		LargestBucket:    st.LargestBucket,
		NumHashFunctions: st.NumHashFunctions,
		ShingleSize:      st.ShingleSize,
		Seed:             st.Seed,
	}, nil
}

func (svc *Service) threshold(t *float64) float64 {
	if t == nil {
		return svc.checker.DefaultThreshold()
	}
	return *t
}

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: decoding params: %v", apperrors.ErrInvalidArgument, err)
	}
	return nil
}
