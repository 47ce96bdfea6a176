package hashfamily

import (
	"hash/fnv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseHashMatchesFNV1aForASCII(t *testing.T) {
	for _, s := range []string{"", "a", "the", "quick brown fox", "don't"} {
		h := fnv.New32a()
		h.Write([]byte(s))
		assert.Equal(t, h.Sum32(), BaseHash(s), "%q", s)
	}
}

func TestBaseHashUsesCodePoints(t *testing.T) {
	// One XOR/multiply round per code point, not per UTF-8 byte.
	want := fnvOffsetBasis ^ uint32('é')
	want *= fnvPrime
	assert.Equal(t, want, BaseHash("é"))
}

func TestApplyWrapsModulo32Bits(t *testing.T) {
	c := Coefficient{A: maxCoefficient, B: maxCoefficient}
	base := uint32(0xFFFFFFFF)
	want := uint32((uint64(c.A)*uint64(base) + uint64(c.B)) % (1 << 32))
	assert.Equal(t, want, c.Apply(base))
	assert.Equal(t, c.Apply(BaseHash("abc")), c.Hash("abc"))
}

func TestBuildCoefficientsDeterministic(t *testing.T) {
	a := BuildCoefficients(100, 42)
	b := BuildCoefficients(100, 42)
	require.Len(t, a, 100)
	assert.Equal(t, a, b)

	other := BuildCoefficients(100, 43)
	assert.NotEqual(t, a, other)
}

func TestBuildCoefficientsPrefixStable(t *testing.T) {
	short := BuildCoefficients(10, 7)
	long := BuildCoefficients(50, 7)
	assert.Equal(t, short, long[:10])
}

func TestBuildCoefficientsRange(t *testing.T) {
	for _, c := range BuildCoefficients(5000, 1) {
		assert.GreaterOrEqual(t, c.A, uint32(1))
		assert.LessOrEqual(t, c.A, maxCoefficient)
		assert.GreaterOrEqual(t, c.B, uint32(1))
		assert.LessOrEqual(t, c.B, maxCoefficient)
	}
}
