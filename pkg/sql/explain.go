package sql

import (
	"regexp"
	"strconv"
	"strings"
)

// Explanation breaks a query into parts a non-SQL reader can follow.
type Explanation struct {
	Overview     string               `json:"overview"`
	Columns      []ExplainedColumn    `json:"columns"`
	Tables       []ExplainedTable     `json:"tables"`
	Filters      []ExplainedFilter    `json:"filters"`
	Aggregations []ExplainedAggregate `json:"aggregations"`
	GroupBy      string               `json:"group_by,omitempty"`
	OrderBy      *ExplainedOrder      `json:"order_by,omitempty"`
	Limit        *int                 `json:"limit,omitempty"`
	Complexity   ExplainedComplexity  `json:"complexity"`
	Tips         []string             `json:"tips"`
}

// ExplainedTable is a table referenced by FROM or JOIN.
type ExplainedTable struct {
	Name string `json:"name"`
	Role string `json:"role"` // "primary" or "joined"
}

// ExplainedFilter is one AND/OR-separated WHERE condition.
type ExplainedFilter struct {
	Condition string `json:"condition"`
	Purpose   string `json:"purpose"`
}

// ExplainedAggregate is one aggregate call.
type ExplainedAggregate struct {
	Function string `json:"function"`
	Argument string `json:"argument"`
	Purpose  string `json:"purpose"`
}

// ExplainedOrder describes ORDER BY.
type ExplainedOrder struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// ExplainedComplexity is a coarse difficulty score for the reader.
type ExplainedComplexity struct {
	Score   int      `json:"score"`
	Level   string   `json:"level"` // Simple, Moderate, Complex
	Factors []string `json:"factors"`
}

var (
	tableRefPattern     = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)?)`)
	whereClausePattern  = regexp.MustCompile(`(?is)\bWHERE\s+(.+?)(?:\bGROUP\s+BY\b|\bORDER\s+BY\b|\bLIMIT\b|;|$)`)
	conditionSplitter   = regexp.MustCompile(`(?i)\s+(?:AND|OR)\s+`)
	aggregateArgPattern = regexp.MustCompile(`(?i)\b(SUM|AVG|COUNT|MAX|MIN)\s*\(([^)]*)\)`)
	groupByPattern      = regexp.MustCompile(`(?is)\bGROUP\s+BY\s+(.+?)(?:\bHAVING\b|\bORDER\s+BY\b|\bLIMIT\b|;|$)`)
	orderByPattern      = regexp.MustCompile(`(?is)\bORDER\s+BY\s+(.+?)(?:\bLIMIT\b|;|$)`)
	limitPattern        = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
	directionPattern    = regexp.MustCompile(`(?i)\s+(ASC|DESC)\b`)
)

var aggregatePurposes = map[string]string{
	"SUM":   "adds up all values",
	"AVG":   "calculates the average value",
	"COUNT": "counts rows",
	"MAX":   "finds the maximum value",
	"MIN":   "finds the minimum value",
}

// Explain describes what a query does, clause by clause.
func Explain(sqlQuery string) Explanation {
	lower := strings.ToLower(sqlQuery)

	e := Explanation{
		Overview:     overview(lower),
		Columns:      explainColumns(sqlQuery),
		Tables:       explainTables(sqlQuery),
		Filters:      explainFilters(sqlQuery),
		Aggregations: explainAggregates(sqlQuery),
		Complexity:   explainComplexity(lower),
		Tips:         explainTips(lower),
	}

	if m := groupByPattern.FindStringSubmatch(sqlQuery); m != nil {
		e.GroupBy = strings.TrimSpace(m[1])
	}
	if m := orderByPattern.FindStringSubmatch(sqlQuery); m != nil {
		clause := strings.TrimSpace(m[1])
		direction := "ascending"
		if strings.Contains(strings.ToUpper(clause), "DESC") {
			direction = "descending"
		}
		e.OrderBy = &ExplainedOrder{
			Column:    strings.TrimSpace(directionPattern.ReplaceAllString(clause, "")),
			Direction: direction,
		}
	}
	if m := limitPattern.FindStringSubmatch(sqlQuery); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			e.Limit = &n
		}
	}

	return e
}

// TablesUsed returns the distinct lowercase table names referenced by FROM and JOIN.
func TablesUsed(sqlQuery string) []string {
	var tables []string
	seen := make(map[string]bool)
	for _, t := range explainTables(sqlQuery) {
		name := strings.ToLower(t.Name)
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}
	return tables
}

func overview(lower string) string {
	switch {
	case strings.Contains(lower, "group by") && strings.Contains(lower, "sum"):
		return "Aggregates data to calculate totals grouped by category"
	case strings.Contains(lower, "join"):
		return "Combines data from multiple related tables"
	case strings.Contains(lower, "where") && strings.Contains(lower, "between"):
		return "Filters data within a specific range"
	case strings.Contains(lower, "order by") && strings.Contains(lower, "limit"):
		return "Ranks rows and returns the top results"
	default:
		return "Retrieves data from the database"
	}
}

func explainTables(sqlQuery string) []ExplainedTable {
	tables := []ExplainedTable{}
	for _, m := range tableRefPattern.FindAllStringSubmatch(sqlQuery, -1) {
		name := m[2]
		if strings.EqualFold(name, "select") || strings.EqualFold(name, "lateral") {
			continue
		}
		role := "primary"
		if strings.EqualFold(m[1], "JOIN") {
			role = "joined"
		}
		tables = append(tables, ExplainedTable{Name: name, Role: role})
	}
	return tables
}

func explainFilters(sqlQuery string) []ExplainedFilter {
	filters := []ExplainedFilter{}
	m := whereClausePattern.FindStringSubmatch(sqlQuery)
	if m == nil {
		return filters
	}
	for _, cond := range conditionSplitter.Split(strings.TrimSpace(m[1]), -1) {
		cond = strings.TrimSpace(cond)
		if cond == "" {
			continue
		}
		filters = append(filters, ExplainedFilter{Condition: cond, Purpose: conditionPurpose(cond)})
	}
	return filters
}

func conditionPurpose(cond string) string {
	upper := strings.ToUpper(cond)
	switch {
	case strings.Contains(upper, " BETWEEN "):
		return "values between two points"
	case strings.Contains(upper, " LIKE "):
		return "text pattern match"
	case strings.Contains(upper, " IN "), strings.Contains(upper, " IN("):
		return "values in a list"
	case strings.ContainsAny(cond, "<>"):
		return "values in a range"
	case strings.Contains(cond, "="):
		return "exact match"
	default:
		return "filter condition"
	}
}

func explainAggregates(sqlQuery string) []ExplainedAggregate {
	aggs := []ExplainedAggregate{}
	for _, m := range aggregateArgPattern.FindAllStringSubmatch(sqlQuery, -1) {
		fn := strings.ToUpper(m[1])
		aggs = append(aggs, ExplainedAggregate{
			Function: fn,
			Argument: strings.TrimSpace(m[2]),
			Purpose:  aggregatePurposes[fn],
		})
	}
	return aggs
}

func explainComplexity(lower string) ExplainedComplexity {
	score := 0
	factors := []string{}

	if joins := strings.Count(lower, "join"); joins > 0 {
		score += joins * 2
		factors = append(factors, strconv.Itoa(joins)+" table join(s)")
	}
	if strings.Contains(lower, "group by") {
		score += 2
		factors = append(factors, "aggregation with grouping")
	}
	if strings.Contains(lower, "having") {
		score++
		factors = append(factors, "post-aggregation filtering")
	}
	if strings.Count(lower, "select") > 1 {
		score += 3
		factors = append(factors, "subqueries")
	}
	if strings.Contains(lower, "case") {
		score += 2
		factors = append(factors, "conditional logic")
	}

	level := "Complex"
	switch {
	case score <= 2:
		level = "Simple"
	case score <= 5:
		level = "Moderate"
	}

	return ExplainedComplexity{Score: score, Level: level, Factors: factors}
}

func explainTips(lower string) []string {
	var tips []string
	if selectStarPattern.MatchString(lower) {
		tips = append(tips, "Select only the needed columns instead of SELECT *")
	}
	if strings.Contains(lower, "join") && !wherePattern.MatchString(lower) {
		tips = append(tips, "Filter with WHERE before joining")
	}
	if strings.Count(lower, "join") > 2 {
		tips = append(tips, "Several joins can be slow; check that each one is needed")
	}
	if strings.Contains(lower, "group by") && !strings.Contains(lower, "having") {
		tips = append(tips, "Use HAVING to filter aggregated results")
	}
	if strings.Contains(lower, "order by") && !strings.Contains(lower, "limit") {
		tips = append(tips, "Add LIMIT when sorting")
	}
	if len(tips) == 0 {
		tips = append(tips, "Query looks well-optimized")
	}
	return tips
}
