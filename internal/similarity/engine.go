// Package similarity is the near-duplicate detection engine. Text is
// normalized and shingled, reduced to a MinHash signature, and filed in a
// banded LSH index; queries gather band-bucket candidates and score them by
// signature agreement.
package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/band"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/hashfamily"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/minhash"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/ranker"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/segment"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/shingle"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
)

const defaultFlushInterval = time.Minute

// Index owns the document table and the band buckets. All methods are safe
// for concurrent use: AddDocument holds the write lock across the duplicate
// check and every band insert, queries share the read lock.
type Index struct {
	cfg    config.LSHConfig
	coeffs []hashfamily.Coefficient
	logger *slog.Logger

	mu    sync.RWMutex
	docs  map[string]minhash.Signature
	bands *band.Index

	// version counts accepted documents; savedVersion is the version the
	// newest snapshot covers.
	version      uint64
	savedVersion uint64
	saveMu       sync.Mutex
}

// Stats describes the index configuration and bucket occupancy.
type Stats struct {
	band.Stats
	NumHashFunctions uint32 `json:"num_hash_functions"`
	ShingleSize      uint32 `json:"shingle_size"`
	Seed             uint64 `json:"seed"`
}

func NewIndex(cfg config.LSHConfig) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	idx := &Index{
		cfg:    cfg,
		coeffs: hashfamily.BuildCoefficients(cfg.NumHashFunctions, cfg.Seed),
		logger: logger.WithComponent("similarity"),
		docs:   make(map[string]minhash.Signature),
		bands:  band.New(int(cfg.Bands), int(cfg.RowsPerBand())),
	}
	idx.logger.Debug("index created",
		"num_hash_functions", cfg.NumHashFunctions,
		"bands", cfg.Bands,
		"rows_per_band", cfg.RowsPerBand(),
		"shingle_size", cfg.ShingleSize,
		"seed", cfg.Seed,
	)
	return idx, nil
}

// SignatureOf computes the MinHash signature of text without touching the
// index.
func (x *Index) SignatureOf(text string) (minhash.Signature, error) {
	shingles, err := shingle.Shingle(text, x.cfg.ShingleSize)
	if err != nil {
		return nil, err
	}
	return minhash.Compute(shingles, x.coeffs)
}

// AddDocument signs text and files it under docID. A rejected call leaves the
// index unchanged.
func (x *Index) AddDocument(docID string, text string) error {
	if docID == "" {
		return fmt.Errorf("%w: document id is empty", apperrors.ErrInvalidInput)
	}
	sig, err := x.SignatureOf(text)
	if err != nil {
		return fmt.Errorf("document %q: %w", docID, err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.docs[docID]; exists {
		return fmt.Errorf("%w: %q", apperrors.ErrDuplicateDocument, docID)
	}
	if err := x.bands.Insert(docID, sig); err != nil {
		return err
	}
	x.docs[docID] = sig
	x.version++
	x.logger.Debug("document indexed", "doc_id", docID, "documents", len(x.docs))
	return nil
}

// FindSimilar ranks the documents sharing a band bucket with docID whose
// estimated Jaccard similarity is at least threshold. docID itself is never
// part of the result.
func (x *Index) FindSimilar(docID string, threshold float64) ([]ranker.ScoredDoc, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	sig, ok := x.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDocument, docID)
	}
	return x.scoreLocked(sig, docID, threshold)
}

// FindSimilarText scores an ad-hoc text against the index without inserting
// it.
func (x *Index) FindSimilarText(text string, threshold float64) ([]ranker.ScoredDoc, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	sig, err := x.SignatureOf(text)
	if err != nil {
		return nil, err
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.scoreLocked(sig, "", threshold)
}

func (x *Index) scoreLocked(sig minhash.Signature, exclude string, threshold float64) ([]ranker.ScoredDoc, error) {
	candidates, err := x.bands.CandidatesFor(sig)
	if err != nil {
		return nil, err
	}
	delete(candidates, exclude)
	scores := make(map[string]float64, len(candidates))
	for docID := range candidates {
		score, err := minhash.MatchFraction(sig, x.docs[docID])
		if err != nil {
			return nil, fmt.Errorf("scoring %q: %w", docID, err)
		}
		scores[docID] = score
	}
	return ranker.Rank(scores, threshold, 0), nil
}

// Signature returns a copy of the stored signature for docID.
func (x *Index) Signature(docID string) (minhash.Signature, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	sig, ok := x.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDocument, docID)
	}
	return sig.Clone(), nil
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

func (x *Index) Config() config.LSHConfig {
	return x.cfg
}

func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return Stats{
		Stats:            x.bands.Stats(),
		NumHashFunctions: x.cfg.NumHashFunctions,
		ShingleSize:      x.cfg.ShingleSize,
		Seed:             x.cfg.Seed,
	}
}

// SaveSnapshot writes every signature to a new snapshot file in dir. It
// returns "" without writing when nothing was added since the last save.
func (x *Index) SaveSnapshot(dir string) (string, error) {
	x.saveMu.Lock()
	defer x.saveMu.Unlock()

	x.mu.RLock()
	if x.version == x.savedVersion || len(x.docs) == 0 {
		x.mu.RUnlock()
		return "", nil
	}
	version := x.version
	docs := make([]segment.Document, 0, len(x.docs))
	for id, sig := range x.docs {
		docs = append(docs, segment.Document{ID: id, Signature: sig})
	}
	x.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	name, err := segment.NewWriter(dir).Write(x.snapshotHeader(), docs)
	if err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	x.mu.Lock()
	x.savedVersion = version
	x.mu.Unlock()
	x.logger.Info("snapshot saved", "snapshot", name, "documents", len(docs))
	return filepath.Join(dir, name), nil
}

// LoadSnapshot restores the newest snapshot in dir and returns the number of
// documents added. Snapshots built with a different configuration are
// rejected with ErrInvalidConfiguration; ids already present are skipped.
func (x *Index) LoadSnapshot(dir string) (int, error) {
	return x.RestoreSnapshot(dir, nil)
}

// RestoreSnapshot is LoadSnapshot, also dropping every snapshot document for
// which superseded returns true. superseded may be nil.
func (x *Index) RestoreSnapshot(dir string, superseded func(docID string) bool) (int, error) {
	path, err := segment.Latest(dir)
	if err != nil {
		return 0, err
	}
	if path == "" {
		return 0, nil
	}
	reader, err := segment.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("loading snapshot: %w", err)
	}
	hdr := reader.Header()
	want := x.snapshotHeader()
	if hdr.NumHashFunctions != want.NumHashFunctions || hdr.Bands != want.Bands ||
		hdr.ShingleSize != want.ShingleSize || hdr.Seed != want.Seed {
		return 0, fmt.Errorf("%w: snapshot %s built with hashes=%d bands=%d shingle=%d seed=%d",
			apperrors.ErrInvalidConfiguration, filepath.Base(path),
			hdr.NumHashFunctions, hdr.Bands, hdr.ShingleSize, hdr.Seed)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	clean := x.version == x.savedVersion
	loaded, dropped := 0, 0
	for _, doc := range reader.Documents() {
		if superseded != nil && superseded(doc.ID) {
			dropped++
			continue
		}
		if _, exists := x.docs[doc.ID]; exists {
			x.logger.Warn("snapshot document already indexed, skipping", "doc_id", doc.ID)
			continue
		}
		if err := x.bands.Insert(doc.ID, doc.Signature); err != nil {
			return loaded, fmt.Errorf("restoring %q: %w", doc.ID, err)
		}
		x.docs[doc.ID] = doc.Signature
		x.version++
		loaded++
	}
	if clean {
		x.savedVersion = x.version
	}
	x.logger.Info("snapshot loaded",
		"snapshot", filepath.Base(path),
		"documents", loaded,
		"superseded", dropped,
		"created_at", time.Unix(hdr.CreatedAt, 0).UTC(),
	)
	return loaded, nil
}

// StartFlushLoop saves a snapshot into dir every interval and once more when
// ctx is cancelled. A non-positive interval falls back to one minute.
func (x *Index) StartFlushLoop(ctx context.Context, dir string, interval time.Duration) {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				x.logger.Info("flush loop stopping, performing final snapshot")
				if _, err := x.SaveSnapshot(dir); err != nil {
					x.logger.Error("final snapshot failed", "error", err)
				}
				return
			case <-ticker.C:
				if _, err := x.SaveSnapshot(dir); err != nil {
					x.logger.Error("periodic snapshot failed", "error", err)
				}
			}
		}
	}()
}

func (x *Index) snapshotHeader() segment.Header {
	return segment.Header{
		NumHashFunctions: x.cfg.NumHashFunctions,
		Bands:            x.cfg.Bands,
		ShingleSize:      x.cfg.ShingleSize,
		Seed:             x.cfg.Seed,
	}
}

// ValidateThreshold rejects NaN and values outside [0,1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [0,1]", apperrors.ErrInvalidArgument, threshold)
	}
	return nil
}
