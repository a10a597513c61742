package retrieval

import (
	"context"
	"sort"
)

// Match is a document and its relevance score. Higher is better.
type Match struct {
	Document Document
	Score    float64
}

// Index ranks documents against a natural-language query.
type Index interface {
	// Search returns at most k matches, best first.
	Search(ctx context.Context, query string, k int) ([]Match, error)

	// Len returns the number of indexed documents.
	Len() int
}

// topK sorts matches by score descending (stable, so document order breaks
// ties) and truncates to k.
func topK(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
