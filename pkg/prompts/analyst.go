// Package prompts builds the oracle prompts used by the resolution pipeline.
package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

// MaxHistoryTurns is how many prior exchanges a generation prompt carries.
const MaxHistoryTurns = 3

// MaxInsightRows caps the rows shown to the oracle when summarizing results.
const MaxInsightRows = 10

// Dialect carries the engine-specific hints added to SQL-writing prompts.
type Dialect struct {
	Name  string
	Hints []string
}

var dialects = map[string]Dialect{
	"sqlite": {
		Name:  "SQLite",
		Hints: []string{"For date operations, use strftime() (e.g. strftime('%Y-%m', order_date))"},
	},
	"postgres": {
		Name:  "PostgreSQL",
		Hints: []string{"For date operations, use date_trunc() or to_char()"},
	},
	"mssql": {
		Name: "SQL Server (T-SQL)",
		Hints: []string{
			"For date operations, use DATEPART() or FORMAT()",
			"Use TOP (n) instead of LIMIT",
		},
	},
}

// DialectFor returns the dialect for a datasource type. Unknown types get
// generic ANSI SQL wording.
func DialectFor(dsType string) Dialect {
	if d, ok := dialects[strings.ToLower(dsType)]; ok {
		return d
	}
	return Dialect{Name: "ANSI SQL"}
}

// RenderHistory renders the last MaxHistoryTurns turns oldest first as
// numbered Q/SQL pairs. Turns without SQL contribute only their question.
func RenderHistory(history []models.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}

	var b strings.Builder
	for i, turn := range history {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, turn.Question)
		if turn.SQL != "" {
			fmt.Fprintf(&b, "SQL%d: %s\n", i+1, turn.SQL)
		}
	}
	return b.String()
}

// BuildGenerationPrompt asks for a single SQL statement answering question.
func BuildGenerationPrompt(question, schemaContext string, history []models.ConversationTurn, dialect Dialect) string {
	var prompt strings.Builder

	prompt.WriteString("Given the following database schema and a user question, generate a SQL query.\n\n")
	prompt.WriteString("Database Schema:\n")
	prompt.WriteString(schemaContext)
	prompt.WriteString("\n")

	if rendered := RenderHistory(history); rendered != "" {
		prompt.WriteString("\nPrevious Conversation Context:\n")
		prompt.WriteString(rendered)
	}

	fmt.Fprintf(&prompt, "\nUser Question: %s\n\n", question)
	fmt.Fprintf(&prompt, "Generate a valid %s query that answers the question. Important:\n", dialect.Name)
	fmt.Fprintf(&prompt, "- Use proper %s syntax\n", dialect.Name)
	for _, hint := range dialect.Hints {
		fmt.Fprintf(&prompt, "- %s\n", hint)
	}
	prompt.WriteString("- Use appropriate JOINs when accessing multiple tables\n")
	prompt.WriteString("- Include proper GROUP BY for aggregations\n")
	prompt.WriteString("- Add ORDER BY and LIMIT when appropriate\n")
	prompt.WriteString("- Use meaningful aliases\n")
	prompt.WriteString("- If this is a follow-up question (like \"show more\", \"break it down\"), reference the previous SQL context\n\n")
	prompt.WriteString("Provide ONLY the SQL query, no explanations or markdown formatting.\n")

	return prompt.String()
}

// RepairRequest is what the oracle sees when a query failed to execute.
type RepairRequest struct {
	FailedSQL string
	Error     string
	Schema    string
	Intent    string
	Dialect   Dialect
}

// BuildRepairPrompt asks for a corrected version of a failed query.
func BuildRepairPrompt(req RepairRequest) string {
	var prompt strings.Builder

	prompt.WriteString("You are a SQL expert. A SQL query has failed with an error. Your task is to fix the query.\n\n")
	fmt.Fprintf(&prompt, "Database Schema:\n%s\n\n", req.Schema)
	fmt.Fprintf(&prompt, "Failed Query:\n%s\n\n", req.FailedSQL)
	fmt.Fprintf(&prompt, "Error Message:\n%s\n\n", req.Error)

	intent := req.Intent
	if intent == "" {
		intent = "Not provided"
	}
	fmt.Fprintf(&prompt, "User Intent:\n%s\n\n", intent)

	prompt.WriteString("Please provide a corrected SQL query that will execute successfully. Consider:\n")
	prompt.WriteString("1. Column names and table names must match the schema exactly\n")
	fmt.Fprintf(&prompt, "2. Use proper %s syntax\n", req.Dialect.Name)
	prompt.WriteString("3. Ensure proper JOIN syntax if joining tables\n")
	prompt.WriteString("4. Check for proper GROUP BY usage with aggregations\n")
	prompt.WriteString("5. Verify WHERE clause conditions\n\n")
	prompt.WriteString("Provide ONLY the corrected SQL query, nothing else. Do not include any explanations or markdown formatting.\n")

	return prompt.String()
}

// BuildExpansionPrompt asks for n alternative phrasings, one per line.
func BuildExpansionPrompt(question string, n int) string {
	return fmt.Sprintf(`Given this data analysis question, generate %d alternative ways to phrase it that mean the same thing. Focus on different SQL-related terms.

Original Question: %s

Generate %d alternative phrasings (one per line):
`, n, question, n)
}

// BuildInsightsPrompt asks for a short narrative summary of a result set.
// Only the first MaxInsightRows rows are shown.
func BuildInsightsPrompt(question, sqlQuery string, columns []string, rows []map[string]any) string {
	var summary strings.Builder
	fmt.Fprintf(&summary, "Found %d rows.\n", len(rows))
	fmt.Fprintf(&summary, "Columns: %s\n", strings.Join(columns, ", "))
	summary.WriteString("\nFirst few rows:\n")
	summary.WriteString(strings.Join(columns, " | "))
	summary.WriteString("\n")
	for i, row := range rows {
		if i == MaxInsightRows {
			break
		}
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = fmt.Sprint(row[c])
		}
		summary.WriteString(strings.Join(cells, " | "))
		summary.WriteString("\n")
	}

	return fmt.Sprintf(`Analyze the following SQL query results and provide insights.

Original Question: %s

SQL Query: %s

Results:
%s
Provide a clear, concise summary of the insights. Include:
1. Direct answer to the user's question
2. Key findings and trends
3. Notable patterns or anomalies
4. Any actionable insights

Keep it brief and focused (3-5 sentences).
`, question, sqlQuery, summary.String())
}
