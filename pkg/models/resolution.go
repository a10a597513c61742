package models

import (
	"time"
)

// FailureKind classifies why a resolution did not succeed.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureSynthesis  FailureKind = "synthesis"
	FailureValidation FailureKind = "validation"
	FailureExecution  FailureKind = "execution"
	FailureInternal   FailureKind = "internal"
)

// ConversationTurn is one prior question and the SQL that answered it.
type ConversationTurn struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

// ResolutionResult is the outcome of resolving one natural-language question.
//
// SQL is nil only when no candidate query was ever produced (synthesis
// failures and internal faults raised before synthesis). For execution
// failures it holds the query that was last tried before giving up.
type ResolutionResult struct {
	Success  bool             `json:"success"`
	SQL      *string          `json:"sql"`
	Columns  []string         `json:"columns,omitempty"`
	Rows     []map[string]any `json:"rows,omitempty"`
	RowCount int              `json:"row_count"`
	Elapsed  time.Duration    `json:"elapsed_ns"`

	FromCache        bool     `json:"from_cache"`
	Warnings         []string `json:"warnings,omitempty"`
	ValidationErrors []string `json:"validation_errors,omitempty"`

	Error    string      `json:"error,omitempty"`
	Failure  FailureKind `json:"failure,omitempty"`
	Attempts int         `json:"attempts,omitempty"` // execution attempts made by the repair loop
}

// SQLText returns the query text or "" when none was produced.
func (r *ResolutionResult) SQLText() string {
	if r == nil || r.SQL == nil {
		return ""
	}
	return *r.SQL
}

// Clone returns a deep copy so cached results cannot be mutated by callers.
func (r *ResolutionResult) Clone() *ResolutionResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.SQL != nil {
		sql := *r.SQL
		c.SQL = &sql
	}
	if r.Columns != nil {
		c.Columns = append([]string(nil), r.Columns...)
	}
	if r.Rows != nil {
		c.Rows = make([]map[string]any, len(r.Rows))
		for i, row := range r.Rows {
			copied := make(map[string]any, len(row))
			for k, v := range row {
				copied[k] = v
			}
			c.Rows[i] = copied
		}
	}
	if r.Warnings != nil {
		c.Warnings = append([]string(nil), r.Warnings...)
	}
	if r.ValidationErrors != nil {
		c.ValidationErrors = append([]string(nil), r.ValidationErrors...)
	}
	return &c
}

// CacheStats summarizes the result cache.
type CacheStats struct {
	Entries         int `json:"entries"`
	TotalHits       int `json:"total_hits"`
	ApproxSizeBytes int `json:"approx_size_bytes"`
}
