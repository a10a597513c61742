package retrieval

import (
	"context"
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "by": true, "each": true,
	"for": true, "from": true, "how": true, "in": true, "is": true, "many": true,
	"me": true, "of": true, "on": true, "or": true, "show": true, "the": true,
	"to": true, "what": true, "which": true, "who": true, "with": true, "list": true,
}

// tableNameWeight is the extra score for naming a document's table.
const tableNameWeight = 3.0

// KeywordIndex scores documents by shared singularized terms. It needs no
// embedding backend.
type KeywordIndex struct {
	docs  []Document
	terms []map[string]bool
	table []map[string]bool
}

// NewKeywordIndex indexes docs.
func NewKeywordIndex(docs []Document) *KeywordIndex {
	idx := &KeywordIndex{
		docs:  docs,
		terms: make([]map[string]bool, len(docs)),
		table: make([]map[string]bool, len(docs)),
	}
	for i, d := range docs {
		idx.terms[i] = termSet(d.Content)
		idx.table[i] = termSet(strings.ReplaceAll(d.Table, "_", " "))
	}
	return idx
}

// Search implements Index. Documents sharing no terms with the query are
// not returned.
func (idx *KeywordIndex) Search(ctx context.Context, query string, k int) ([]Match, error) {
	queryTerms := termSet(query)

	var matches []Match
	for i, d := range idx.docs {
		score := 0.0
		for term := range queryTerms {
			if idx.terms[i][term] {
				score++
			}
			if idx.table[i][term] {
				score += tableNameWeight
			}
		}
		if score > 0 {
			matches = append(matches, Match{Document: d, Score: score})
		}
	}
	return topK(matches, k), nil
}

// Len implements Index.
func (idx *KeywordIndex) Len() int { return len(idx.docs) }

// termSet lowercases, splits on non-alphanumerics (so snake_case splits too),
// drops stop words and singularizes.
func termSet(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if stopWords[w] {
			continue
		}
		terms[inflection.Singular(w)] = true
	}
	return terms
}

var _ Index = (*KeywordIndex)(nil)
