package sql

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Issue severities reported by Analyze.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// maxIndexHints caps the number of index recommendations per query.
const maxIndexHints = 5

// LintIssue is a potential performance problem found in a query.
type LintIssue struct {
	Severity string `json:"severity"`
	Issue    string `json:"issue"`
	Impact   string `json:"impact"`
	Solution string `json:"solution"`
}

// IndexHint suggests a column that would benefit from an index.
type IndexHint struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Reason string `json:"reason"`
}

// Analysis is the output of the heuristic linter. It is not a cost-based plan.
type Analysis struct {
	Score       float64     `json:"performance_score"`
	Issues      []LintIssue `json:"issues"`
	Suggestions []string    `json:"suggestions"`
	IndexHints  []IndexHint `json:"index_recommendations"`
	Plan        []string    `json:"execution_plan"`
	SpeedRating string      `json:"speed_rating,omitempty"`
}

var (
	commaJoinPattern    = regexp.MustCompile(`from\s+\w+\s*,\s*\w+`)
	whereColumnPattern  = regexp.MustCompile(`where\s+(\w+)\s*[=<>]`)
	joinOnPattern       = regexp.MustCompile(`on\s+(\w+)\.(\w+)\s*=\s*(\w+)\.(\w+)`)
	orderColumnPattern  = regexp.MustCompile(`order\s+by\s+(\w+)`)
	fromTablePattern    = regexp.MustCompile(`from\s+(\w+)`)
	orConditionPattern  = regexp.MustCompile(`\bor\b`)
	notInPattern        = regexp.MustCompile(`\bnot\s+in\b`)
	functionCallPattern = regexp.MustCompile(`\bcast\s*\(`)
)

// Analyze lints a query. elapsed is optional; when non-zero a speed rating is added.
func Analyze(sqlQuery string, elapsed time.Duration) Analysis {
	lower := strings.ToLower(sqlQuery)

	analysis := Analysis{
		Score:       performanceScore(lower),
		Issues:      lintIssues(lower),
		Suggestions: lintSuggestions(lower),
		IndexHints:  indexHints(lower),
		Plan:        likelyPlan(lower),
	}
	if elapsed > 0 {
		analysis.SpeedRating = RateSpeed(elapsed)
	}
	return analysis
}

func performanceScore(lower string) float64 {
	score := 10.0

	if selectStarPattern.MatchString(lower) {
		score -= 2
	}
	if strings.Count(lower, "join") > 3 {
		score -= 1.5
	}
	if orConditionPattern.MatchString(lower) {
		score--
	}
	if notInPattern.MatchString(lower) {
		score -= 1.5
	}
	if strings.Count(lower, "select") > 1 {
		score--
	}
	if functionCallPattern.MatchString(lower) {
		score -= 0.5
	}
	if wherePattern.MatchString(lower) {
		score += 0.5
	}
	if strings.Contains(lower, "limit") {
		score += 0.5
	}

	return math.Max(0, math.Min(10, math.Round(score*10)/10))
}

func lintIssues(lower string) []LintIssue {
	issues := []LintIssue{}

	if selectStarPattern.MatchString(lower) {
		issues = append(issues, LintIssue{
			Severity: SeverityMedium,
			Issue:    "Using SELECT *",
			Impact:   "Retrieves unnecessary columns and increases I/O",
			Solution: "Specify only the needed columns",
		})
	}

	if joins := strings.Count(lower, "join"); joins > 3 {
		issues = append(issues, LintIssue{
			Severity: SeverityHigh,
			Issue:    fmt.Sprintf("%d table joins", joins),
			Impact:   "Can significantly slow down execution",
			Solution: "Consider denormalizing or a materialized view",
		})
	}

	if orConditionPattern.MatchString(lower) {
		issues = append(issues, LintIssue{
			Severity: SeverityMedium,
			Issue:    "OR conditions in WHERE clause",
			Impact:   "Prevents efficient index usage",
			Solution: "Use UNION or an IN list instead",
		})
	}

	if notInPattern.MatchString(lower) {
		issues = append(issues, LintIssue{
			Severity: SeverityMedium,
			Issue:    "NOT IN clause",
			Impact:   "Usually less efficient than NOT EXISTS",
			Solution: "Use NOT EXISTS or LEFT JOIN ... IS NULL",
		})
	}

	if strings.Contains(lower, "join") && !wherePattern.MatchString(lower) {
		issues = append(issues, LintIssue{
			Severity: SeverityLow,
			Issue:    "No WHERE clause with JOIN",
			Impact:   "May return more data than needed",
			Solution: "Filter rows with a WHERE clause",
		})
	}

	if commaJoinPattern.MatchString(lower) {
		issues = append(issues, LintIssue{
			Severity: SeverityHigh,
			Issue:    "Comma-separated FROM (potential cartesian product)",
			Impact:   "Row counts can explode",
			Solution: "Use explicit JOIN ... ON syntax",
		})
	}

	return issues
}

func lintSuggestions(lower string) []string {
	var suggestions []string

	if m := whereColumnPattern.FindStringSubmatch(lower); m != nil {
		suggestions = append(suggestions, fmt.Sprintf("Consider an index on %q for faster filtering", m[1]))
	}
	if strings.Contains(lower, "join") {
		suggestions = append(suggestions,
			"Ensure JOIN columns are indexed",
			"Filter with WHERE before joining when possible")
	}
	if strings.Contains(lower, "group by") {
		suggestions = append(suggestions, "Consider a summary table for frequently used aggregations")
	}
	if strings.Contains(lower, "order by") && !strings.Contains(lower, "limit") {
		suggestions = append(suggestions, "Add LIMIT when ordering to reduce the result set")
	}
	if strings.Contains(lower, "distinct") {
		suggestions = append(suggestions, "DISTINCT can be expensive; make sure it is needed")
	}
	if strings.Count(lower, "select") > 1 {
		suggestions = append(suggestions, "Consider a JOIN instead of a subquery")
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Query appears well-optimized")
	}
	return suggestions
}

func indexHints(lower string) []IndexHint {
	var hints []IndexHint
	seen := make(map[string]bool)

	add := func(table, column, reason string) {
		if seen[column] {
			return
		}
		seen[column] = true
		hints = append(hints, IndexHint{Table: table, Column: column, Reason: reason})
	}

	for _, m := range whereColumnPattern.FindAllStringSubmatch(lower, -1) {
		add("", m[1], "used in WHERE clause for filtering")
	}
	for _, m := range joinOnPattern.FindAllStringSubmatch(lower, -1) {
		add(m[1], m[2], "used in JOIN condition")
		add(m[3], m[4], "used in JOIN condition")
	}
	for _, m := range orderColumnPattern.FindAllStringSubmatch(lower, -1) {
		add("", m[1], "used in ORDER BY for sorting")
	}

	if len(hints) > maxIndexHints {
		hints = hints[:maxIndexHints]
	}
	return hints
}

func likelyPlan(lower string) []string {
	var plan []string

	if m := fromTablePattern.FindStringSubmatch(lower); m != nil {
		plan = append(plan, fmt.Sprintf("Scan %s", m[1]))
	}
	if wherePattern.MatchString(lower) {
		plan = append(plan, "Apply WHERE filters (index seek if available)")
	}
	if joins := strings.Count(lower, "join"); joins > 0 {
		plan = append(plan, fmt.Sprintf("Perform %d join(s)", joins))
	}
	if strings.Contains(lower, "group by") {
		plan = append(plan, "Group rows and compute aggregates")
	}
	if strings.Contains(lower, "having") {
		plan = append(plan, "Filter groups with HAVING")
	}
	if strings.Contains(lower, "order by") {
		plan = append(plan, "Sort results")
	}
	if strings.Contains(lower, "limit") {
		plan = append(plan, "Return top N rows")
	}
	return append(plan, "Return final result set")
}

// RateSpeed buckets an execution time into a coarse rating.
func RateSpeed(elapsed time.Duration) string {
	switch {
	case elapsed < 100*time.Millisecond:
		return "blazing fast"
	case elapsed < 500*time.Millisecond:
		return "fast"
	case elapsed < time.Second:
		return "good"
	case elapsed < 3*time.Second:
		return "acceptable"
	default:
		return "slow, optimization needed"
	}
}
