package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

// mockOracle routes prompts by kind. Nil funcs return "".
type mockOracle struct {
	mu sync.Mutex

	ExpandFunc   func(prompt string) (string, error)
	GenerateFunc func(prompt string) (string, error)
	RepairFunc   func(prompt string) (string, error)
	InsightFunc  func(prompt string) (string, error)

	ExpandCalls   int
	GenerateCalls int
	RepairCalls   int
	InsightCalls  int

	GeneratePrompts []string
	RepairPrompts   []string
}

func (m *mockOracle) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	var fn func(string) (string, error)
	switch {
	case strings.Contains(prompt, "alternative ways to phrase"):
		m.ExpandCalls++
		fn = m.ExpandFunc
	case strings.Contains(prompt, "Failed Query:"):
		m.RepairCalls++
		m.RepairPrompts = append(m.RepairPrompts, prompt)
		fn = m.RepairFunc
	case strings.Contains(prompt, "Analyze the following SQL query results"):
		m.InsightCalls++
		fn = m.InsightFunc
	default:
		m.GenerateCalls++
		m.GeneratePrompts = append(m.GeneratePrompts, prompt)
		fn = m.GenerateFunc
	}
	m.mu.Unlock()

	if fn == nil {
		return "", nil
	}
	return fn(prompt)
}

func (m *mockOracle) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExpandCalls + m.GenerateCalls + m.RepairCalls + m.InsightCalls
}

func returns(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}

func fails(msg string) func(string) (string, error) {
	return func(string) (string, error) { return "", fmt.Errorf("%s", msg) }
}

// mockEngine records every query it is asked to run.
type mockEngine struct {
	mu        sync.Mutex
	QueryFunc func(sqlQuery string) (*datasource.QueryExecutionResult, error)
	Calls     int
	Queries   []string
	Limits    []int
}

func (m *mockEngine) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	m.mu.Lock()
	m.Calls++
	m.Queries = append(m.Queries, sqlQuery)
	m.Limits = append(m.Limits, limit)
	fn := m.QueryFunc
	m.mu.Unlock()

	if fn == nil {
		return &datasource.QueryExecutionResult{}, nil
	}
	return fn(sqlQuery)
}

type mockContextProvider struct {
	RetrieveFunc func(query string) (string, error)
	Queries      []string
}

func (m *mockContextProvider) Retrieve(ctx context.Context, query string) (string, error) {
	m.Queries = append(m.Queries, query)
	if m.RetrieveFunc == nil {
		return "", nil
	}
	return m.RetrieveFunc(query)
}

type mockSchema struct {
	Summary string
	Err     error
	Calls   int
}

func (m *mockSchema) SchemaSummary(ctx context.Context) (string, error) {
	m.Calls++
	return m.Summary, m.Err
}

type mockRecorder struct {
	Entries []*models.QueryHistoryEntry
	Err     error
	Panic   any
}

func (m *mockRecorder) Record(ctx context.Context, entry *models.QueryHistoryEntry) error {
	m.Entries = append(m.Entries, entry)
	if m.Panic != nil {
		panic(m.Panic)
	}
	return m.Err
}

// customerRows builds a result of n (customer, revenue) rows.
func customerRows(n int) *datasource.QueryExecutionResult {
	res := &datasource.QueryExecutionResult{
		Columns: []datasource.ColumnInfo{{Name: "customer", Type: "TEXT"}, {Name: "revenue", Type: "REAL"}},
		Rows:    []map[string]any{},
	}
	for i := 0; i < n; i++ {
		res.Rows = append(res.Rows, map[string]any{
			"customer": fmt.Sprintf("customer-%d", i+1),
			"revenue":  float64(1000 - i*100),
		})
	}
	res.RowCount = n
	return res
}
