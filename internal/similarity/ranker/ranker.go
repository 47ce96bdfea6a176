package ranker

import (
	"sort"
)

// ScoredDoc is a candidate with its estimated Jaccard similarity.
type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Rank keeps docs scoring at least threshold and orders them by score
// descending, breaking ties by ascending DocID. A positive limit truncates
// the result.
func Rank(scores map[string]float64, threshold float64, limit int) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		if score >= threshold {
			result = append(result, ScoredDoc{DocID: docID, Score: score})
		}
	}
	Sort(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Sort orders docs in place by score descending, then DocID ascending.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}
