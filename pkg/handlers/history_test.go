package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/services"
)

func serveHistory(service services.QueryHistoryService, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	NewHistoryHandler(service, zap.NewNop()).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHistoryHandler_Disabled(t *testing.T) {
	rec := serveHistory(nil, "/api/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "history_disabled", body["error"])
}

func TestHistoryHandler_List(t *testing.T) {
	entry := &models.QueryHistoryEntry{ID: uuid.New(), Question: "top customers", SQL: "SELECT name FROM customers LIMIT 5"}
	service := &mockHistoryService{
		ListFunc: func(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error) {
			return []*models.QueryHistoryEntry{entry}, 7, nil
		},
	}

	rec := serveHistory(service, "/api/history?tables=Customers,%20orders,&since=2026-01-02T03:04:05Z&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var data ListHistoryResponse
	decodeEnvelope(t, rec, &data)
	assert.Equal(t, 7, data.Total)
	require.Len(t, data.Entries, 1)
	assert.Equal(t, entry.ID, data.Entries[0].ID)

	assert.Equal(t, []string{"customers", "orders"}, service.LastFilters.TablesUsed)
	require.NotNil(t, service.LastFilters.Since)
	assert.True(t, service.LastFilters.Since.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, 10, service.LastFilters.Limit)
}

func TestHistoryHandler_EmptyListIsArray(t *testing.T) {
	rec := serveHistory(&mockHistoryService{}, "/api/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)
}

func TestHistoryHandler_InvalidFilters(t *testing.T) {
	for _, target := range []string{
		"/api/history?since=yesterday",
		"/api/history?limit=-1",
		"/api/history?limit=ten",
	} {
		rec := serveHistory(&mockHistoryService{}, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHistoryHandler_ServiceError(t *testing.T) {
	service := &mockHistoryService{
		ListFunc: func(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error) {
			return nil, 0, errors.New("db down")
		},
	}
	rec := serveHistory(service, "/api/history")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
