package tools

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

func TestGetSchemaTool(t *testing.T) {
	schema := &mockSchema{Summary: "Table: customers\nColumns:\n- id (INTEGER)\n- name (TEXT)\n"}
	s := newTestServer()
	RegisterSchemaTools(s, &SchemaToolDeps{Schema: schema, Logger: zap.NewNop()})

	assert.Equal(t, []string{"get_schema"}, listToolNames(t, s))

	resp := callTool(t, s, "get_schema", nil)
	require.False(t, resp.IsError)
	assert.Equal(t, schema.Summary, resp.Text)
}

func TestGetSchemaTool_Error(t *testing.T) {
	s := newTestServer()
	RegisterSchemaTools(s, &SchemaToolDeps{Schema: &mockSchema{Err: errors.New("unreachable")}, Logger: zap.NewNop()})

	resp := callTool(t, s, "get_schema", nil)
	assert.True(t, resp.RPCErr != nil || resp.IsError)
}

func TestRefreshSchemaTool(t *testing.T) {
	schema := &mockSchema{}
	s := newTestServer()
	RegisterSchemaTools(s, &SchemaToolDeps{Schema: schema, Refresher: schema, Logger: zap.NewNop()})

	var out map[string]bool
	decodeText(t, callTool(t, s, "refresh_schema", nil), &out)
	assert.True(t, out["refreshed"])
	assert.Equal(t, 1, schema.RefreshCalls)
}

func TestGetQueryHistoryTool(t *testing.T) {
	service := &mockHistoryService{Entries: []*models.QueryHistoryEntry{
		{ID: uuid.New(), Question: "orders per region", SQL: "SELECT region, COUNT(*) FROM orders GROUP BY region"},
	}}
	s := newTestServer()
	RegisterHistoryTools(s, &HistoryToolDeps{Service: service, Logger: zap.NewNop()})

	before := time.Now()
	var result queryHistoryResult
	decodeText(t, callTool(t, s, "get_query_history", map[string]any{
		"tables": []any{"Orders", " ", 7},
		"days":   7.0,
		"limit":  5.0,
	}), &result)

	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "orders per region", result.Entries[0].Question)

	assert.Equal(t, []string{"orders"}, service.LastFilters.TablesUsed)
	assert.Equal(t, 5, service.LastFilters.Limit)
	require.NotNil(t, service.LastFilters.Since)
	assert.WithinDuration(t, before.Add(-7*24*time.Hour), *service.LastFilters.Since, time.Minute)
}

func TestGetQueryHistoryTool_EmptyIsArray(t *testing.T) {
	s := newTestServer()
	RegisterHistoryTools(s, &HistoryToolDeps{Service: &mockHistoryService{}, Logger: zap.NewNop()})

	resp := callTool(t, s, "get_query_history", nil)
	assert.Contains(t, resp.Text, `"entries":[]`)
}
