package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
)

// MainStore holds the document under check in a single file.
type MainStore struct {
	path string
	mu   sync.RWMutex
}

func NewMainStore(path string) *MainStore {
	return &MainStore{path: path}
}

func (m *MainStore) Path() string {
	return m.path
}

func (m *MainStore) Read() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: main document %s does not exist", apperrors.ErrUnknownDocument, m.path)
	}
	if err != nil {
		return "", fmt.Errorf("reading main document: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: main document is not valid UTF-8", apperrors.ErrInvalidInput)
	}
	return string(data), nil
}

// Replace atomically swaps the main document's content for text.
func (m *MainStore) Replace(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: replacement text is empty", apperrors.ErrInvalidInput)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: replacement text is not valid UTF-8", apperrors.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating main document directory: %w", err)
	}
	f, err := os.CreateTemp(dir, ".main-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp main document: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("writing main document: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing main document: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing main document: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("replacing main document: %w", err)
	}
	return nil
}
