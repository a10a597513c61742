package models

import (
	"time"

	"github.com/google/uuid"
)

// QueryHistoryEntry is a persisted successful resolution.
type QueryHistoryEntry struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	SQL      string    `json:"sql"`

	// Execution details
	ExecutionDurationMs int `json:"execution_duration_ms"`
	RowCount            int `json:"row_count"`

	// Query classification, filled in before the entry is stored
	QueryType    string   `json:"query_type"` // aggregation, lookup, report, exploration
	Complexity   string   `json:"complexity"`
	TablesUsed   []string `json:"tables_used,omitempty"`
	Aggregations []string `json:"aggregations_used,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// QueryHistoryFilters contains filters for listing query history.
type QueryHistoryFilters struct {
	TablesUsed []string
	Since      *time.Time
	Limit      int
}
