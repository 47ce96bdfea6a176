// Package minhash reduces a shingle set to a fixed-length MinHash signature.
// The fraction of equal slots between two signatures estimates the Jaccard
// similarity of the underlying shingle sets.
package minhash

import (
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/hashfamily"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/similarity/shingle"
	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
)

// Signature holds one minimum per hash function.
type Signature []uint32

// Clone returns an independent copy of s.
func (s Signature) Clone() Signature {
	out := make(Signature, len(s))
	copy(out, s)
	return out
}

// Compute returns the MinHash signature of shingles under coeffs. Slot i is
// the minimum of H_i over every shingle; math.MaxUint32 is the "unseen"
// sentinel.
func Compute(shingles shingle.Set, coeffs []hashfamily.Coefficient) (Signature, error) {
	if len(shingles) == 0 {
		return nil, apperrors.ErrEmptyShingleSet
	}
	sig := make(Signature, len(coeffs))
	for i := range sig {
		sig[i] = math.MaxUint32
	}
	for s := range shingles {
		base := hashfamily.BaseHash(s)
		for i, c := range coeffs {
			if h := c.Apply(base); h < sig[i] {
				sig[i] = h
			}
		}
	}
	return sig, nil
}

// MatchFraction returns matches/len for two signatures of equal length.
func MatchFraction(a, b Signature) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", apperrors.ErrSignatureLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty signatures", apperrors.ErrSignatureLengthMismatch)
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a)), nil
}
