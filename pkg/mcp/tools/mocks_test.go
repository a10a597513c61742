package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

// toolResponse is the decoded result of a tools/call.
type toolResponse struct {
	Text    string
	IsError bool
	RPCErr  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
}

func newTestServer() *server.MCPServer {
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
}

// callTool sends a tools/call through the server's JSON-RPC handler.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()
	request, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.HandleMessage(context.Background(), request))
	require.NoError(t, err)

	var response struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &response))

	out := toolResponse{IsError: response.Result.IsError, RPCErr: response.Error}
	if len(response.Result.Content) > 0 {
		out.Text = response.Result.Content[0].Text
	}
	return out
}

// listToolNames returns the names from tools/list.
func listToolNames(t *testing.T, s *server.MCPServer) []string {
	t.Helper()
	raw, err := json.Marshal(s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &response))

	names := make([]string, 0, len(response.Result.Tools))
	for _, tool := range response.Result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func decodeText(t *testing.T, resp toolResponse, v any) {
	t.Helper()
	require.Nil(t, resp.RPCErr, "unexpected JSON-RPC error")
	require.NoError(t, json.Unmarshal([]byte(resp.Text), v), resp.Text)
}

type mockResolver struct {
	ResolveFunc func(ctx context.Context, question string, history []models.ConversationTurn, useCache bool) *models.ResolutionResult

	LastQuestion  string
	LastHistory   []models.ConversationTurn
	LastUseCache  bool
	InsightsCalls int
	CacheCleared  int
	Stats         models.PerformanceStats
	Cache         models.CacheStats
}

func (m *mockResolver) Resolve(ctx context.Context, question string, history []models.ConversationTurn, useCache bool) *models.ResolutionResult {
	m.LastQuestion = question
	m.LastHistory = history
	m.LastUseCache = useCache
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, question, history, useCache)
	}
	sql := "SELECT COUNT(*) AS n FROM orders"
	return &models.ResolutionResult{Success: true, SQL: &sql, Columns: []string{"n"}, Rows: []map[string]any{{"n": 42}}, RowCount: 1}
}

func (m *mockResolver) CacheStats() models.CacheStats { return m.Cache }

func (m *mockResolver) ClearCache() { m.CacheCleared++ }

func (m *mockResolver) PerformanceStats() models.PerformanceStats { return m.Stats }

func (m *mockResolver) PerformanceRecommendations() []string { return nil }

func (m *mockResolver) ClearPerformanceHistory() {}

func (m *mockResolver) GenerateInsights(ctx context.Context, question string, result *models.ResolutionResult) string {
	m.InsightsCalls++
	return fmt.Sprintf("%d rows answer %q", result.RowCount, question)
}

type mockEngine struct {
	QueryFunc func(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error)
	Calls     int
	LastLimit int
}

func (m *mockEngine) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	m.Calls++
	m.LastLimit = limit
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sqlQuery, limit)
	}
	return &datasource.QueryExecutionResult{
		Columns:  []datasource.ColumnInfo{{Name: "name", Type: "TEXT"}},
		Rows:     []map[string]any{{"name": "Ada"}},
		RowCount: 1,
	}, nil
}

type mockPlanner struct {
	Plan  []string
	Err   error
	Calls int
}

func (m *mockPlanner) ExplainQuery(ctx context.Context, sqlQuery string) ([]string, error) {
	m.Calls++
	return m.Plan, m.Err
}

type mockSchema struct {
	Summary      string
	Err          error
	RefreshCalls int
}

func (m *mockSchema) SchemaSummary(ctx context.Context) (string, error) { return m.Summary, m.Err }

func (m *mockSchema) Refresh(ctx context.Context) error {
	m.RefreshCalls++
	return nil
}

type mockHistoryService struct {
	Entries     []*models.QueryHistoryEntry
	Err         error
	LastFilters models.QueryHistoryFilters
}

func (m *mockHistoryService) Record(ctx context.Context, entry *models.QueryHistoryEntry) error {
	return nil
}

func (m *mockHistoryService) List(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error) {
	m.LastFilters = filters
	return m.Entries, len(m.Entries), m.Err
}

func (m *mockHistoryService) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
