// Package corpus reads the reference documents a check runs against and
// manages the single "main" document being checked.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
)

const (
	textSuffix = ".txt"
	idPrefix   = "doc_"
)

// Document is one corpus file with its assigned id.
type Document struct {
	ID   string
	Name string
	Text string
}

// Listing is the result of scanning a corpus directory.
type Listing struct {
	Documents []Document
	// Files counts every .txt file seen, including those that failed to load.
	Files int
}

// Owns reports whether id is one the corpus assigned in this listing.
// Ids of files that failed to load are still owned.
func (l Listing) Owns(id string) bool {
	n, ok := parseID(id)
	return ok && n <= l.Files
}

// Load reads every regular .txt file in dir in ascending filename order and
// assigns ids doc_1, doc_2, ... in that order. Files that cannot be read or
// are not valid UTF-8 are logged and skipped; they still consume an id so
// ids stay stable for a given directory listing.
func Load(dir string) ([]Document, error) {
	l, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	return l.Documents, nil
}

// Scan is Load, also reporting how many ids were assigned.
func Scan(dir string) (Listing, error) {
	names, err := textFiles(dir)
	if err != nil {
		return Listing{}, err
	}
	log := logger.WithComponent("corpus")
	docs := make([]Document, 0, len(names))
	for i, name := range names {
		id := idPrefix + strconv.Itoa(i+1)
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Error("failed to read corpus file, skipping", "file", name, "error", err)
			continue
		}
		if !utf8.Valid(data) {
			log.Error("corpus file is not valid UTF-8, skipping", "file", name)
			continue
		}
		docs = append(docs, Document{ID: id, Name: name, Text: string(data)})
	}
	log.Info("corpus loaded", "dir", dir, "files", len(names), "documents", len(docs))
	return Listing{Documents: docs, Files: len(names)}, nil
}

func parseID(id string) (int, bool) {
	digits, found := strings.CutPrefix(id, idPrefix)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || strconv.Itoa(n) != digits {
		return 0, false
	}
	return n, true
}

func textFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), textSuffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
