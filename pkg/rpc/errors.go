package rpc

import (
	"errors"

	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
)

var kinds = []struct {
	name     string
	sentinel error
}{
	{"invalid_configuration", apperrors.ErrInvalidConfiguration},
	{"invalid_input", apperrors.ErrInvalidInput},
	{"empty_shingle_set", apperrors.ErrEmptyShingleSet},
	{"duplicate_document", apperrors.ErrDuplicateDocument},
	{"unknown_document", apperrors.ErrUnknownDocument},
	{"invalid_argument", apperrors.ErrInvalidArgument},
	{"signature_length_mismatch", apperrors.ErrSignatureLengthMismatch},
	{"unavailable", apperrors.ErrUnavailable},
	{"timeout", apperrors.ErrTimeout},
}

func kindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.name
		}
	}
	return ""
}

func sentinelFor(kind string) error {
	for _, k := range kinds {
		if k.name == kind {
			return k.sentinel
		}
	}
	return nil
}
