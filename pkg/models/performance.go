package models

import (
	"time"

	"github.com/google/uuid"
)

// PerformanceRecord is one tracked resolution outcome.
type PerformanceRecord struct {
	ID         uuid.UUID     `json:"id"`
	Question   string        `json:"question"`
	SQL        string        `json:"sql"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	RowCount   int           `json:"row_count"`
	Success    bool          `json:"success"`
	Complexity string        `json:"complexity"` // simple, medium, complex
	RecordedAt time.Time     `json:"recorded_at"`
}

// ComplexityStats aggregates records sharing a complexity tag.
type ComplexityStats struct {
	Count      int           `json:"count"`
	AvgElapsed time.Duration `json:"avg_elapsed_ns"`
	MaxElapsed time.Duration `json:"max_elapsed_ns"`
}

// PerformanceStats is computed over the full tracked history.
type PerformanceStats struct {
	Total       int                        `json:"total"`
	Successful  int                        `json:"successful"`
	Failed      int                        `json:"failed"`
	SuccessRate float64                    `json:"success_rate"` // percent, 0-100
	AvgElapsed  time.Duration              `json:"avg_elapsed_ns"`
	TotalRows   int                        `json:"total_rows"`
	Complexity  map[string]ComplexityStats `json:"complexity"`
	Slowest     *PerformanceRecord         `json:"slowest,omitempty"`
}
