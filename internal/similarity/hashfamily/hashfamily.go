// Package hashfamily derives the affine hash functions used for MinHash.
//
// Every function shares one 32-bit FNV-style base hash and differs only in
// its (A, B) coefficients: H_i(v) = A_i*BaseHash(v) + B_i, all arithmetic
// wrapping modulo 2^32. The wraparound keeps every value in the uint32
// domain on every platform.
package hashfamily

import (
	"math/rand/v2"
)

const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619

	// maxCoefficient is the inclusive upper bound for A and B.
	maxCoefficient uint32 = 1<<31 - 1

	// pcgStream is the fixed second PCG word; the seed supplies the first.
	pcgStream uint64 = 0x9e3779b97f4a7c15
)

// Coefficient defines one affine hash function.
type Coefficient struct {
	A uint32 `json:"a"`
	B uint32 `json:"b"`
}

// Apply maps a base hash through the affine transform.
func (c Coefficient) Apply(base uint32) uint32 {
	return c.A*base + c.B
}

// Hash applies the transform to the base hash of value.
func (c Coefficient) Hash(value string) uint32 {
	return c.Apply(BaseHash(value))
}

// BaseHash is the 32-bit FNV-style accumulator over the Unicode code points
// of value: h ^= rune, then h *= 16777619.
func BaseHash(value string) uint32 {
	h := fnvOffsetBasis
	for _, r := range value {
		h ^= uint32(r)
		h *= fnvPrime
	}
	return h
}

// BuildCoefficients draws n coefficient pairs uniformly from [1, 2^31-1]
// using a PCG generator keyed by seed. The sequence depends only on
// (n, seed).
func BuildCoefficients(n uint32, seed uint64) []Coefficient {
	rng := rand.New(rand.NewPCG(seed, pcgStream))
	coeffs := make([]Coefficient, n)
	for i := range coeffs {
		coeffs[i] = Coefficient{
			A: 1 + rng.Uint32N(maxCoefficient),
			B: 1 + rng.Uint32N(maxCoefficient),
		}
	}
	return coeffs
}
