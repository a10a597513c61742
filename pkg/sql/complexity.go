package sql

import "regexp"

// Complexity tags used for performance bucketing.
const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

var (
	nestedSelectPattern = regexp.MustCompile(`(?i)\(\s*SELECT\b`)
	joinPattern         = regexp.MustCompile(`(?i)\bJOIN\b`)
	aggregatePattern    = regexp.MustCompile(`(?i)\b(?:SUM|AVG|COUNT|MAX|MIN)\s*\(`)
)

// ComplexityTag classifies a query: complex if it nests a SELECT, medium if it
// has both a join and an aggregate function, simple otherwise.
func ComplexityTag(sqlQuery string) string {
	switch {
	case nestedSelectPattern.MatchString(sqlQuery):
		return ComplexityComplex
	case joinPattern.MatchString(sqlQuery) && aggregatePattern.MatchString(sqlQuery):
		return ComplexityMedium
	default:
		return ComplexitySimple
	}
}
