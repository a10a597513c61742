// Package repositories provides data access for the query-history store.
package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-analyst/pkg/database"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

// Listing limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// QueryHistoryRepository provides data access for the query history.
type QueryHistoryRepository interface {
	Create(ctx context.Context, entry *models.QueryHistoryEntry) error
	List(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type queryHistoryRepository struct {
	db *database.DB
}

func NewQueryHistoryRepository(db *database.DB) QueryHistoryRepository {
	return &queryHistoryRepository{db: db}
}

var _ QueryHistoryRepository = (*queryHistoryRepository)(nil)

func (r *queryHistoryRepository) Create(ctx context.Context, entry *models.QueryHistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO analyst_query_history (
			id, question, sql,
			execution_duration_ms, row_count,
			query_type, complexity, tables_used, aggregations_used,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.Question,
		entry.SQL,
		entry.ExecutionDurationMs,
		entry.RowCount,
		orDefault(entry.QueryType, "exploration"),
		orDefault(entry.Complexity, "simple"),
		nonNil(entry.TablesUsed),
		nonNil(entry.Aggregations),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create query history entry: %w", err)
	}

	return nil
}

func (r *queryHistoryRepository) List(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error) {
	limit := filters.Limit
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = DefaultHistoryLimit
	}

	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filters.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filters.Since)
		argIdx++
	}

	if len(filters.TablesUsed) > 0 {
		conditions = append(conditions, fmt.Sprintf("tables_used && $%d", argIdx))
		args = append(args, filters.TablesUsed)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM analyst_query_history WHERE %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count query history entries: %w", err)
	}

	dataQuery := fmt.Sprintf(`
		SELECT id, question, sql,
		       execution_duration_ms, row_count,
		       query_type, complexity, tables_used, aggregations_used,
		       created_at
		FROM analyst_query_history
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d`, where, argIdx)

	args = append(args, limit)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list query history entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.QueryHistoryEntry
	for rows.Next() {
		var entry models.QueryHistoryEntry
		err := rows.Scan(
			&entry.ID,
			&entry.Question,
			&entry.SQL,
			&entry.ExecutionDurationMs,
			&entry.RowCount,
			&entry.QueryType,
			&entry.Complexity,
			&entry.TablesUsed,
			&entry.Aggregations,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan query history entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating query history entries: %w", err)
	}

	return entries, total, nil
}

func (r *queryHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM analyst_query_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old query history entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
