package sql

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultLargeTables lists tables that should not be scanned without a filter.
var DefaultLargeTables = []string{"orders"}

// Message prefixes callers can match to tell rule families apart.
const (
	DangerousOperationPrefix = "dangerous operation detected: "
	InjectionLiteralPrefix   = "string literal resembles an injection payload"
)

// Verdict is the outcome of validating exactly one candidate query.
// Valid is true iff Errors is empty; warnings never block execution.
type Verdict struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// dangerousPattern is a single mutation or injection pattern.
type dangerousPattern struct {
	name    string
	pattern *regexp.Regexp
}

var dangerousPatterns = []dangerousPattern{
	{"DROP TABLE", regexp.MustCompile(`(?i)\bDROP\s+TABLE\b`)},
	{"DROP DATABASE", regexp.MustCompile(`(?i)\bDROP\s+DATABASE\b`)},
	{"DELETE FROM", regexp.MustCompile(`(?i)\bDELETE\s+FROM\b`)},
	{"TRUNCATE", regexp.MustCompile(`(?i)\bTRUNCATE\b`)},
	{"UPDATE ... SET", regexp.MustCompile(`(?is)\bUPDATE\s+.*\s+SET\b`)},
	{"INSERT INTO", regexp.MustCompile(`(?i)\bINSERT\s+INTO\b`)},
	{"ALTER TABLE", regexp.MustCompile(`(?i)\bALTER\s+TABLE\b`)},
	{"CREATE TABLE", regexp.MustCompile(`(?i)\bCREATE\s+TABLE\b`)},
	{"stacked DROP statement", regexp.MustCompile(`(?i);\s*DROP\b`)},
	{"inline comment (--)", regexp.MustCompile(`--`)},
}

var (
	selectStarPattern = regexp.MustCompile(`(?i)\bSELECT\s*(?:DISTINCT\s+)?\*`)
	wherePattern      = regexp.MustCompile(`(?i)\bWHERE\b`)
)

// rule is one predicate + message pair. A rule may emit several messages.
type rule struct {
	name  string
	check func(sqlQuery string) []string
}

// Validator performs static safety checks on candidate SQL before execution.
// It is safe for concurrent use; Validate has no side effects.
type Validator struct {
	errorRules   []rule
	warningRules []rule
}

// NewValidator creates a validator. largeTables names tables that trigger a
// warning when queried without a WHERE clause; nil uses DefaultLargeTables.
func NewValidator(largeTables []string) *Validator {
	if largeTables == nil {
		largeTables = DefaultLargeTables
	}

	largeTablePatterns := make(map[string]*regexp.Regexp, len(largeTables))
	for _, table := range largeTables {
		table = strings.TrimSpace(table)
		if table == "" {
			continue
		}
		largeTablePatterns[table] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(table) + `\b`)
	}
	tableOrder := make([]string, 0, len(largeTablePatterns))
	for _, table := range largeTables {
		if _, ok := largeTablePatterns[strings.TrimSpace(table)]; ok {
			tableOrder = append(tableOrder, strings.TrimSpace(table))
		}
	}

	return &Validator{
		errorRules: []rule{
			{name: "read_only", check: checkReadOnly},
			{name: "dangerous_operation", check: checkDangerous},
			{name: "balanced_parentheses", check: checkParentheses},
		},
		warningRules: []rule{
			{name: "multiple_statements", check: checkMultipleStatements},
			{name: "select_star", check: checkSelectStar},
			{name: "unfiltered_large_table", check: func(sqlQuery string) []string {
				if wherePattern.MatchString(sqlQuery) {
					return nil
				}
				var msgs []string
				for _, table := range tableOrder {
					if largeTablePatterns[table].MatchString(sqlQuery) {
						msgs = append(msgs, fmt.Sprintf("large table %s queried without a WHERE clause; this may be slow", table))
					}
				}
				return msgs
			}},
			{name: "suspicious_literal", check: checkLiterals},
		},
	}
}

// Validate runs every rule over sqlQuery and returns the verdict.
// Errors and warnings keep the order in which rules were evaluated.
func (v *Validator) Validate(sqlQuery string) Verdict {
	verdict := Verdict{
		Errors:   []string{},
		Warnings: []string{},
	}

	for _, r := range v.errorRules {
		verdict.Errors = append(verdict.Errors, r.check(sqlQuery)...)
	}
	for _, r := range v.warningRules {
		verdict.Warnings = append(verdict.Warnings, r.check(sqlQuery)...)
	}

	verdict.Valid = len(verdict.Errors) == 0
	return verdict
}

func checkReadOnly(sqlQuery string) []string {
	normalized := strings.ToUpper(strings.TrimSpace(sqlQuery))
	if strings.HasPrefix(normalized, "SELECT") || strings.HasPrefix(normalized, "WITH") {
		return nil
	}
	return []string{"must be a read-only statement (SELECT or WITH)"}
}

func checkDangerous(sqlQuery string) []string {
	var msgs []string
	for _, p := range dangerousPatterns {
		if p.pattern.MatchString(sqlQuery) {
			msgs = append(msgs, DangerousOperationPrefix+p.name)
		}
	}
	return msgs
}

func checkParentheses(sqlQuery string) []string {
	if strings.Count(sqlQuery, "(") != strings.Count(sqlQuery, ")") {
		return []string{"unbalanced parentheses"}
	}
	return nil
}

func checkMultipleStatements(sqlQuery string) []string {
	if HasMultipleStatements(sqlQuery) {
		return []string{"multiple statements detected; only the first will execute"}
	}
	return nil
}

func checkSelectStar(sqlQuery string) []string {
	if selectStarPattern.MatchString(sqlQuery) {
		return []string{"SELECT * used; consider listing columns explicitly"}
	}
	return nil
}

func checkLiterals(sqlQuery string) []string {
	for _, literal := range stringLiterals(sqlQuery) {
		if result := CheckLiteralForInjection(literal); result != nil {
			return []string{fmt.Sprintf("%s (fingerprint %s)", InjectionLiteralPrefix, result.Fingerprint)}
		}
	}
	return nil
}
