package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-analyst/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-analyst/pkg/audit"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/performance"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
	"github.com/ekaya-inc/ekaya-analyst/pkg/templates"
)

// TemplateService lists the prebuilt query templates and runs them. Runs
// skip the oracle but pass through the same validation, audit and tracking
// as resolved questions.
type TemplateService interface {
	List(category string) []templates.Template
	Categories() []string
	// Run returns apperrors.ErrNotFound for an unknown id. Validation and
	// execution failures are reported in the result, not as errors.
	Run(ctx context.Context, id string, limit int) (*models.ResolutionResult, error)
}

// TemplateServiceDeps are the collaborators of a template service.
// Tracker, Auditor and Clock are optional.
type TemplateServiceDeps struct {
	Library   *templates.Library
	Engine    ExecutionEngine
	Validator *sqlutil.Validator
	Tracker   *performance.Tracker
	Auditor   *audit.SecurityAuditor
	Clock     clockwork.Clock
}

type templateService struct {
	deps   TemplateServiceDeps
	logger *zap.Logger
}

func NewTemplateService(deps TemplateServiceDeps, logger *zap.Logger) TemplateService {
	if deps.Library == nil {
		deps.Library = templates.Default()
	}
	if deps.Validator == nil {
		deps.Validator = sqlutil.NewValidator(nil)
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &templateService{
		deps:   deps,
		logger: logger.Named("templates"),
	}
}

var _ TemplateService = (*templateService)(nil)

func (s *templateService) List(category string) []templates.Template {
	return s.deps.Library.ByCategory(category)
}

func (s *templateService) Categories() []string {
	return s.deps.Library.Categories()
}

func (s *templateService) Run(ctx context.Context, id string, limit int) (*models.ResolutionResult, error) {
	tmpl, ok := s.deps.Library.Get(id)
	if !ok {
		return nil, fmt.Errorf("template %q: %w", id, apperrors.ErrNotFound)
	}
	if s.deps.Engine == nil {
		return nil, fmt.Errorf("template %q: no datasource configured", id)
	}

	start := s.deps.Clock.Now()
	label := "template:" + tmpl.ID
	sqlText := tmpl.SQL
	result := s.run(ctx, tmpl, limit, start)
	result.SQL = &sqlText

	if s.deps.Tracker != nil {
		s.deps.Tracker.Record(label, sqlText, result.Elapsed, result.RowCount, result.Success)
	}
	return result, nil
}

func (s *templateService) run(ctx context.Context, tmpl templates.Template, limit int, start time.Time) *models.ResolutionResult {
	verdict := s.deps.Validator.Validate(tmpl.SQL)
	s.deps.Auditor.AuditVerdict(ctx, audit.SourceTemplate, tmpl.ID, tmpl.SQL, verdict)
	if !verdict.Valid {
		return &models.ResolutionResult{
			Elapsed:          s.deps.Clock.Since(start),
			Warnings:         verdict.Warnings,
			ValidationErrors: verdict.Errors,
			Error:            ErrMsgValidation + strings.Join(verdict.Errors, "; "),
			Failure:          models.FailureValidation,
		}
	}

	res, err := s.deps.Engine.Query(ctx, tmpl.SQL, datasource.EffectiveLimit(limit))
	if err != nil {
		s.logger.Warn("Template execution failed",
			zap.String("template", tmpl.ID),
			zap.Error(err))
		return &models.ResolutionResult{
			Elapsed:  s.deps.Clock.Since(start),
			Warnings: verdict.Warnings,
			Error:    err.Error(),
			Failure:  models.FailureExecution,
			Attempts: 1,
		}
	}
	s.deps.Auditor.LogQueryExecution(ctx, audit.SourceTemplate, tmpl.SQL, res.RowCount)

	return &models.ResolutionResult{
		Success:  true,
		Columns:  res.ColumnNames(),
		Rows:     res.Rows,
		RowCount: res.RowCount,
		Elapsed:  s.deps.Clock.Since(start),
		Warnings: verdict.Warnings,
		Attempts: 1,
	}
}
