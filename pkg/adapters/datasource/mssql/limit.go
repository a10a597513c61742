package mssql

import (
	"fmt"
	"regexp"
	"strings"

	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

var (
	leadingWithRe   = regexp.MustCompile(`(?i)^\s*WITH\b`)
	topLevelOrderRe = regexp.MustCompile(`(?i)\bORDER\s+BY\b`)
)

// limitedStatement returns the statement to send for a row-capped query.
// Plain SELECTs are wrapped in SELECT TOP (n). A statement that starts with
// WITH cannot be nested in a derived table, and a derived table may not
// carry ORDER BY without TOP, so both are returned unwrapped and
// wrapped is false; callers must cap rows while scanning.
func limitedStatement(sqlQuery string, limit int) (stmt string, wrapped bool) {
	inner := strings.TrimSpace(sqlutil.StripTrailingSemicolon(sqlQuery))
	if leadingWithRe.MatchString(inner) || topLevelOrderRe.MatchString(topLevelText(inner)) {
		return inner, false
	}
	return fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", limit, inner), true
}

// topLevelText blanks out quoted literals, bracketed identifiers and
// anything nested in parentheses, leaving only the outermost clauses.
func topLevelText(sqlQuery string) string {
	var b strings.Builder
	b.Grow(len(sqlQuery))

	depth := 0
	var quote byte
	for i := 0; i < len(sqlQuery); i++ {
		ch := sqlQuery[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			b.WriteByte(' ')
			continue
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '[':
			quote = ']'
		case ch == '(':
			depth++
		case ch == ')':
			if depth > 0 {
				depth--
			}
			b.WriteByte(' ')
			continue
		}
		if depth > 0 || quote != 0 {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
