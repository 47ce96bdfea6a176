// Package band implements the banded LSH bucket index. A signature is cut
// into contiguous bands of rowsPerBand values; two documents become
// candidates when every value of at least one band agrees.
package band

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/minhash"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
)

// Index holds one bucket map per band. It is not safe for concurrent use;
// the owning similarity.Index serializes writers.
type Index struct {
	bands       int
	rowsPerBand int
	buckets     []map[string][]string
	docCount    int
}

// Stats summarizes bucket occupancy.
type Stats struct {
	Bands         int `json:"bands"`
	RowsPerBand   int `json:"rows_per_band"`
	Documents     int `json:"documents"`
	Buckets       int `json:"buckets"`
	LargestBucket int `json:"largest_bucket"`
}

func New(bands, rowsPerBand int) *Index {
	buckets := make([]map[string][]string, bands)
	for i := range buckets {
		buckets[i] = make(map[string][]string)
	}
	return &Index{
		bands:       bands,
		rowsPerBand: rowsPerBand,
		buckets:     buckets,
	}
}

// Insert files docID under its sub-signature in every band. The signature
// length is checked before any bucket is touched.
func (x *Index) Insert(docID string, sig minhash.Signature) error {
	if err := x.checkLength(sig); err != nil {
		return err
	}
	keys := x.keys(sig)
	for band, key := range keys {
		x.buckets[band][key] = append(x.buckets[band][key], docID)
	}
	x.docCount++
	return nil
}

// CandidatesFor unions the bucket contents of every band sig falls into.
func (x *Index) CandidatesFor(sig minhash.Signature) (map[string]struct{}, error) {
	if err := x.checkLength(sig); err != nil {
		return nil, err
	}
	candidates := make(map[string]struct{})
	for band, key := range x.keys(sig) {
		for _, docID := range x.buckets[band][key] {
			candidates[docID] = struct{}{}
		}
	}
	return candidates, nil
}

// SortedCandidates is CandidatesFor in ascending id order.
func (x *Index) SortedCandidates(sig minhash.Signature) ([]string, error) {
	set, err := x.CandidatesFor(sig)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (x *Index) Stats() Stats {
	st := Stats{
		Bands:       x.bands,
		RowsPerBand: x.rowsPerBand,
		Documents:   x.docCount,
	}
	for _, b := range x.buckets {
		st.Buckets += len(b)
		for _, ids := range b {
			if len(ids) > st.LargestBucket {
				st.LargestBucket = len(ids)
			}
		}
	}
	return st
}

func (x *Index) checkLength(sig minhash.Signature) error {
	if want := x.bands * x.rowsPerBand; len(sig) != want {
		return fmt.Errorf("%w: got %d values, bands need %d",
			apperrors.ErrSignatureLengthMismatch, len(sig), want)
	}
	return nil
}

// keys encodes each band's values as fixed-width little-endian bytes, so
// equal keys mean equal integer tuples.
func (x *Index) keys(sig minhash.Signature) []string {
	keys := make([]string, x.bands)
	buf := make([]byte, 4*x.rowsPerBand)
	for band := 0; band < x.bands; band++ {
		rows := sig[band*x.rowsPerBand : (band+1)*x.rowsPerBand]
		for i, v := range rows {
			binary.LittleEndian.PutUint32(buf[i*4:], v)
		}
		keys[band] = string(buf)
	}
	return keys
}
