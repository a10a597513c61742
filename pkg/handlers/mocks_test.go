package handlers

import (
	"context"
	"time"

	"github.com/ekaya-inc/ekaya-analyst/pkg/llm"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

type mockResolver struct {
	ResolveFunc  func(ctx context.Context, question string, history []models.ConversationTurn, useCache bool) *models.ResolutionResult
	InsightsFunc func(ctx context.Context, question string, result *models.ResolutionResult) string

	ResolveCalls     int
	LastQuestion     string
	LastHistory      []models.ConversationTurn
	LastUseCache     bool
	CacheCleared     int
	PerfCleared      int
	Recommendations  []string
	Stats            models.PerformanceStats
	CacheStatsResult models.CacheStats
}

func (m *mockResolver) Resolve(ctx context.Context, question string, history []models.ConversationTurn, useCache bool) *models.ResolutionResult {
	m.ResolveCalls++
	m.LastQuestion = question
	m.LastHistory = history
	m.LastUseCache = useCache
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, question, history, useCache)
	}
	sql := "SELECT 1"
	return &models.ResolutionResult{Success: true, SQL: &sql, Columns: []string{"1"}, Rows: []map[string]any{{"1": 1}}, RowCount: 1}
}

func (m *mockResolver) CacheStats() models.CacheStats { return m.CacheStatsResult }

func (m *mockResolver) ClearCache() { m.CacheCleared++ }

func (m *mockResolver) PerformanceStats() models.PerformanceStats { return m.Stats }

func (m *mockResolver) PerformanceRecommendations() []string { return m.Recommendations }

func (m *mockResolver) ClearPerformanceHistory() { m.PerfCleared++ }

func (m *mockResolver) GenerateInsights(ctx context.Context, question string, result *models.ResolutionResult) string {
	if m.InsightsFunc != nil {
		return m.InsightsFunc(ctx, question, result)
	}
	return "insight"
}

type mockHistoryService struct {
	ListFunc    func(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error)
	LastFilters models.QueryHistoryFilters
}

func (m *mockHistoryService) Record(ctx context.Context, entry *models.QueryHistoryEntry) error {
	return nil
}

func (m *mockHistoryService) List(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error) {
	m.LastFilters = filters
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filters)
	}
	return nil, 0, nil
}

func (m *mockHistoryService) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type mockSchema struct {
	Summary      string
	Err          error
	RefreshErr   error
	RefreshCalls int
}

func (m *mockSchema) SchemaSummary(ctx context.Context) (string, error) {
	return m.Summary, m.Err
}

func (m *mockSchema) Refresh(ctx context.Context) error {
	m.RefreshCalls++
	return m.RefreshErr
}

type mockOracleStatus struct {
	state llm.CircuitState
}

func (m *mockOracleStatus) BreakerState() llm.CircuitState { return m.state }

func (m *mockOracleStatus) Model() string { return "gpt-test" }
