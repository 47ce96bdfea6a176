package shingle

import (
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Quick\tBrown\nFox", "the quick brown fox"},
		{"  Hello,   World!!  ", "hello world"},
		{"don't stop", "don't stop"},
		{"e-mail: a@b.c", "e mail a b c"},
		{"Ünïcödé 123", "ünïcödé 123"},
		{"under_score", "under score"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNormalizeComposesDecomposedInput(t *testing.T) {
	composed, err := Normalize("caf\u00e9")
	require.NoError(t, err)
	decomposed, err := Normalize("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestNormalizeRejectsEmptyAndInvalid(t *testing.T) {
	for _, in := range []string{"", "   \n\t ", "?!...", string([]byte{0xff, 0xfe})} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "%q", in)
	}
}

func TestShingleCharacterWindows(t *testing.T) {
	got, err := Shingle("abcd", 3)
	require.NoError(t, err)
	assert.Equal(t, Set{"abc": {}, "bcd": {}}, got)
}

func TestShingleCollapsesDuplicates(t *testing.T) {
	got, err := Shingle("aaaa", 2)
	require.NoError(t, err)
	assert.Equal(t, Set{"aa": {}}, got)
}

func TestShingleShortTextIsSingleton(t *testing.T) {
	got, err := Shingle("Hi!", 5)
	require.NoError(t, err)
	assert.Equal(t, Set{"hi": {}}, got)
}

func TestShingleCountsCodePoints(t *testing.T) {
	got, err := Shingle("ééé", 3)
	require.NoError(t, err)
	assert.Equal(t, Set{"ééé": {}}, got)
}

func TestShingleRejectsZeroSize(t *testing.T) {
	_, err := Shingle("text", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
