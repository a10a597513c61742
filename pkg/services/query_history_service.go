package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/repositories"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// QueryHistoryService classifies and stores successful resolutions.
type QueryHistoryService interface {
	Record(ctx context.Context, entry *models.QueryHistoryEntry) error
	List(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type queryHistoryService struct {
	repo   repositories.QueryHistoryRepository
	logger *zap.Logger
}

func NewQueryHistoryService(repo repositories.QueryHistoryRepository, logger *zap.Logger) QueryHistoryService {
	return &queryHistoryService{
		repo:   repo,
		logger: logger.Named("query-history-service"),
	}
}

var (
	_ QueryHistoryService  = (*queryHistoryService)(nil)
	_ QueryHistoryRecorder = (*queryHistoryService)(nil)
)

func (s *queryHistoryService) Record(ctx context.Context, entry *models.QueryHistoryEntry) error {
	if entry.SQL == "" {
		return apperrors.ErrEmptySQL
	}

	classifyQuery(entry)

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record query history entry",
			zap.String("question", entry.Question),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *queryHistoryService) List(ctx context.Context, filters models.QueryHistoryFilters) ([]*models.QueryHistoryEntry, int, error) {
	entries, total, err := s.repo.List(ctx, filters)
	if err != nil {
		s.logger.Error("Failed to list query history entries", zap.Error(err))
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *queryHistoryService) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	count, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to prune query history",
			zap.Time("cutoff", cutoff),
			zap.Error(err))
		return 0, err
	}
	return count, nil
}

// classifyQuery sets the type, complexity, tables and aggregates on the entry.
func classifyQuery(entry *models.QueryHistoryEntry) {
	upper := strings.ToUpper(entry.SQL)

	entry.TablesUsed = sqlutil.TablesUsed(entry.SQL)
	entry.Aggregations = extractAggregations(upper)
	entry.Complexity = sqlutil.ComplexityTag(entry.SQL)
	entry.QueryType = classifyQueryType(upper)
}

var aggregationPattern = regexp.MustCompile(`\b(COUNT|SUM|AVG|MIN|MAX|GROUP_CONCAT|STRING_AGG|ARRAY_AGG)\s*\(`)

func extractAggregations(sqlUpper string) []string {
	seen := make(map[string]bool)
	var aggs []string
	for _, match := range aggregationPattern.FindAllStringSubmatch(sqlUpper, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			aggs = append(aggs, match[1])
		}
	}
	return aggs
}

func classifyQueryType(sqlUpper string) string {
	if aggregationPattern.MatchString(sqlUpper) || strings.Contains(sqlUpper, "GROUP BY") {
		return "aggregation"
	}

	hasLimit := strings.Contains(sqlUpper, "LIMIT") || strings.Contains(sqlUpper, "TOP ")
	if strings.Contains(sqlUpper, "WHERE") && hasLimit {
		return "lookup"
	}
	if strings.Contains(sqlUpper, "ORDER BY") && !hasLimit {
		return "report"
	}
	return "exploration"
}
