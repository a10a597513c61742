// Package sql provides static, read-only analysis of candidate SQL strings:
// the safety validator, complexity tagging, the heuristic linter and the explainer.
package sql

import (
	"strings"
)

// StripTrailingSemicolon removes one trailing semicolon and surrounding whitespace.
// Executors call this before wrapping a query in a row-limiting subquery.
func StripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}

// HasMultipleStatements reports whether a semicolon outside string literals
// appears before the final trailing semicolon.
func HasMultipleStatements(sqlQuery string) bool {
	return hasSemicolonOutsideStrings(StripTrailingSemicolon(strings.TrimSpace(sqlQuery)))
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Doubled quotes ('') exit and immediately re-enter, which keeps us in the string.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stringLiterals returns the contents of single-quoted literals in order.
// Doubled quotes inside a literal are collapsed to one quote.
func stringLiterals(sqlQuery string) []string {
	var (
		literals []string
		current  strings.Builder
		inString bool
	)

	runes := []rune(sqlQuery)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if !inString {
			if c == '\'' {
				inString = true
				current.Reset()
			}
			continue
		}

		if c == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				current.WriteRune('\'')
				i++
				continue
			}
			inString = false
			literals = append(literals, current.String())
			continue
		}
		current.WriteRune(c)
	}

	return literals
}
