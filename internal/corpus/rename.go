package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/logger"
	"github.com/google/uuid"
)

// Rename gives the .txt files in dir sequential names <prefix>1.txt,
// <prefix>2.txt, ... in ascending filename order and returns how many files
// were renamed. Files go through unique temporary names first so a target
// name that already belongs to another file is never overwritten.
func Rename(dir, prefix string) (int, error) {
	if prefix == "" {
		prefix = "essay"
	}
	names, err := textFiles(dir)
	if err != nil {
		return 0, err
	}

	moves := make([]move, 0, len(names))
	for i, name := range names {
		target := fmt.Sprintf("%s%d%s", prefix, i+1, textSuffix)
		if name == target {
			continue
		}
		moves = append(moves, move{
			from: filepath.Join(dir, name),
			tmp:  filepath.Join(dir, ".rename-"+uuid.NewString()),
			to:   filepath.Join(dir, target),
		})
	}

	for i, m := range moves {
		if err := os.Rename(m.from, m.tmp); err != nil {
			rollback(moves[:i])
			return 0, fmt.Errorf("staging %s: %w", filepath.Base(m.from), err)
		}
	}
	for _, m := range moves {
		if err := os.Rename(m.tmp, m.to); err != nil {
			return 0, fmt.Errorf("renaming %s to %s: %w",
				filepath.Base(m.from), filepath.Base(m.to), err)
		}
	}
	logger.WithComponent("corpus").Info("corpus renamed",
		"dir", dir, "renamed", len(moves), "files", len(names))
	return len(moves), nil
}

type move struct{ from, tmp, to string }

func rollback(staged []move) {
	for _, m := range staged {
		_ = os.Rename(m.tmp, m.from)
	}
}
