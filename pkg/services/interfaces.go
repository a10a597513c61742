// Package services holds the query resolution pipeline and the collaborators
// it is assembled from.
package services

import (
	"context"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

// TextCompletionOracle turns a prompt into text. Implementations return
// completions already stripped of reasoning blocks and code fences.
type TextCompletionOracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SchemaContextProvider returns schema text relevant to a query.
// An empty string means nothing relevant was found.
type SchemaContextProvider interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// ExecutionEngine runs a read-only query and returns at most limit rows.
type ExecutionEngine interface {
	Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error)
}

// SchemaSummarizer renders the full schema for repair prompts.
type SchemaSummarizer interface {
	SchemaSummary(ctx context.Context) (string, error)
}

// QueryHistoryRecorder receives successful resolutions.
type QueryHistoryRecorder interface {
	Record(ctx context.Context, entry *models.QueryHistoryEntry) error
}

var (
	_ ExecutionEngine  = (datasource.Datasource)(nil)
	_ SchemaSummarizer = (*datasource.SchemaCatalog)(nil)
)
