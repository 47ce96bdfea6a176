// Package shingle turns raw text into a canonical set of fixed-length
// character shingles. Text is NFC-composed, lower-cased, stripped of
// everything except letters, digits, whitespace and apostrophes, and
// whitespace-collapsed before shingling. Lengths and offsets count Unicode
// code points, never bytes.
package shingle

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// Set is a set of shingles.
type Set map[string]struct{}

// Normalize returns the canonical form of text used for shingling. It fails
// with ErrInvalidInput if text is not valid UTF-8 or nothing remains after
// normalization.
func Normalize(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", apperrors.ErrInvalidInput)
	}
	text = strings.ToLower(norm.NFC.String(text))
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return ' '
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r), r == '\'':
			return r
		default:
			return ' '
		}
	}, text)
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return "", fmt.Errorf("%w: text is empty after normalization", apperrors.ErrInvalidInput)
	}
	return normalized, nil
}

// Shingle normalizes text and returns the distinct substrings of k code
// points at every offset. Normalized text shorter than k yields the
// singleton set holding the whole text.
func Shingle(text string, k uint32) (Set, error) {
	if k == 0 {
		return nil, fmt.Errorf("%w: shingle size must be positive", apperrors.ErrInvalidInput)
	}
	normalized, err := Normalize(text)
	if err != nil {
		return nil, err
	}
	runes := []rune(normalized)
	size := int(k)
	if len(runes) < size {
		return Set{normalized: {}}, nil
	}
	shingles := make(Set, len(runes)-size+1)
	for i := 0; i+size <= len(runes); i++ {
		shingles[string(runes[i:i+size])] = struct{}{}
	}
	return shingles, nil
}
