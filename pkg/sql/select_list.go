package sql

import (
	"regexp"
	"strings"
)

// Column kinds.
const (
	ColumnKindAll        = "all"
	ColumnKindColumn     = "column"
	ColumnKindAggregate  = "aggregate"
	ColumnKindExpression = "expression"
)

// ExplainedColumn is one item of a SELECT list.
type ExplainedColumn struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Kind       string `json:"kind"`
}

var (
	selectKeywordPattern = regexp.MustCompile(`(?i)\bSELECT\s+(?:DISTINCT\s+)?(?:TOP\s*\(?\d+\)?\s+)?`)
	selectListEndPattern = regexp.MustCompile(`(?i)^(?:FROM|WHERE|GROUP|ORDER|LIMIT|UNION|INTERSECT|EXCEPT)\b`)
	explicitAliasPattern = regexp.MustCompile(`(?i)\s+AS\s+["\[` + "`" + `]?(\w+)["\]` + "`" + `]?\s*$`)
	functionNamePattern  = regexp.MustCompile(`^(\w+)\s*\(`)
	identifierPattern    = regexp.MustCompile(`^[\w."\[\]` + "`" + `]+$`)
	caseExprPattern      = regexp.MustCompile(`(?i)^CASE\b`)
)

// Words that end an expression rather than name it.
var nonAliasWords = map[string]bool{
	"from": true, "where": true, "group": true, "order": true, "limit": true,
	"and": true, "or": true, "as": true, "end": true, "null": true,
}

// explainColumns lists the items of the first SELECT list. Nested selects,
// function arguments and string literals are not split.
func explainColumns(sqlQuery string) []ExplainedColumn {
	columns := []ExplainedColumn{}
	loc := selectKeywordPattern.FindStringIndex(sqlQuery)
	if loc == nil {
		return columns
	}
	for _, item := range splitSelectList(sqlQuery[loc[1]:]) {
		columns = append(columns, explainColumn(item))
	}
	return columns
}

// splitSelectList splits on top-level commas and stops at the first
// top-level clause keyword or semicolon.
func splitSelectList(rest string) []string {
	var items []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			items = append(items, s)
		}
		current.Reset()
	}

	depth := 0
	var quote rune
	for i, ch := range rest {
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case depth == 0 && ch == ',':
			flush()
			continue
		case depth == 0 && ch == ';':
			flush()
			return items
		case depth == 0 && atWordStart(rest, i) && selectListEndPattern.MatchString(rest[i:]):
			flush()
			return items
		}
		current.WriteRune(ch)
	}
	flush()
	return items
}

func atWordStart(s string, i int) bool {
	if i == 0 {
		return true
	}
	prev := s[i-1]
	return !(prev == '_' || prev == '.' || prev >= '0' && prev <= '9' || prev >= 'a' && prev <= 'z' || prev >= 'A' && prev <= 'Z')
}

func explainColumn(expr string) ExplainedColumn {
	if expr == "*" || strings.HasSuffix(expr, ".*") {
		return ExplainedColumn{Name: expr, Expression: expr, Kind: ColumnKindAll}
	}

	body, name := expr, ""
	if m := explicitAliasPattern.FindStringSubmatchIndex(expr); m != nil {
		body, name = strings.TrimSpace(expr[:m[0]]), expr[m[2]:m[3]]
	} else if b, alias, ok := implicitAlias(expr); ok {
		body, name = b, alias
	} else {
		name = baseName(expr)
	}

	return ExplainedColumn{Name: name, Expression: expr, Kind: columnKind(body)}
}

// implicitAlias recognizes "expr alias" without AS. The word before the
// alias must close a call or be an identifier, so "a + b" has no alias.
func implicitAlias(expr string) (body, alias string, ok bool) {
	if strings.Count(expr, "(") != strings.Count(expr, ")") {
		return "", "", false
	}
	fields := strings.Fields(expr)
	if len(fields) < 2 {
		return "", "", false
	}

	last := fields[len(fields)-1]
	prev := fields[len(fields)-2]
	if strings.ContainsAny(last, "()'") || nonAliasWords[strings.ToLower(last)] {
		return "", "", false
	}
	if !strings.HasSuffix(prev, ")") && !identifierPattern.MatchString(prev) {
		return "", "", false
	}
	if !identifierPattern.MatchString(last) {
		return "", "", false
	}
	return strings.TrimSpace(strings.TrimSuffix(expr, last)), last, true
}

// baseName derives a display name for an unaliased expression: the column
// without its table qualifier, or the lowercased function name.
func baseName(expr string) string {
	if m := functionNamePattern.FindStringSubmatch(expr); m != nil {
		return strings.ToLower(m[1])
	}
	if caseExprPattern.MatchString(expr) {
		return "case"
	}
	if identifierPattern.MatchString(expr) {
		if i := strings.LastIndex(expr, "."); i != -1 {
			expr = expr[i+1:]
		}
		return strings.ToLower(strings.Trim(expr, "`\"[]"))
	}
	return expr
}

func columnKind(body string) string {
	switch {
	case aggregatePattern.MatchString(body):
		return ColumnKindAggregate
	case identifierPattern.MatchString(body):
		return ColumnKindColumn
	default:
		return ColumnKindExpression
	}
}
