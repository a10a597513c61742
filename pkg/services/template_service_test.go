package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-analyst/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-analyst/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-analyst/pkg/audit"
	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
	"github.com/ekaya-inc/ekaya-analyst/pkg/performance"
	"github.com/ekaya-inc/ekaya-analyst/pkg/templates"
)

type templateFixture struct {
	engine  *mockEngine
	tracker *performance.Tracker
	clock   *clockwork.FakeClock
	logs    *observer.ObservedLogs
	service TemplateService
}

func newTemplateFixture(t *testing.T, lib *templates.Library) *templateFixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &templateFixture{
		engine: &mockEngine{},
		clock:  clockwork.NewFakeClock(),
		logs:   logs,
	}
	f.engine.QueryFunc = func(string) (*datasource.QueryExecutionResult, error) {
		f.clock.Advance(300 * time.Millisecond)
		return customerRows(4), nil
	}
	f.tracker = performance.NewTracker(performance.Config{Clock: f.clock})
	f.service = NewTemplateService(TemplateServiceDeps{
		Library: lib,
		Engine:  f.engine,
		Tracker: f.tracker,
		Auditor: audit.NewSecurityAuditor(zap.New(core)),
		Clock:   f.clock,
	}, zap.NewNop())
	return f
}

func TestTemplateService_RunBuiltIn(t *testing.T) {
	f := newTemplateFixture(t, nil)

	result, err := f.service.Run(context.Background(), "category_performance", 10)

	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	tmpl, _ := templates.Default().Get("category_performance")
	assert.Equal(t, tmpl.SQL, result.SQLText())
	assert.Equal(t, 4, result.RowCount)
	assert.Equal(t, 300*time.Millisecond, result.Elapsed)
	assert.Equal(t, []int{10}, f.engine.Limits)

	records := f.tracker.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "template:category_performance", records[0].Question)
	assert.True(t, records[0].Success)

	executed := f.logs.FilterField(zap.String("source", audit.SourceTemplate)).All()
	assert.NotEmpty(t, executed)
}

func TestTemplateService_UnknownTemplate(t *testing.T) {
	f := newTemplateFixture(t, nil)

	_, err := f.service.Run(context.Background(), "nope", 10)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, f.engine.Calls)
	assert.Empty(t, f.tracker.Records())
}

func TestTemplateService_InvalidTemplateNeverExecutes(t *testing.T) {
	lib := templates.NewLibrary(templates.Template{ID: "purge", Category: "Ops", SQL: "DELETE FROM orders"})
	f := newTemplateFixture(t, lib)

	result, err := f.service.Run(context.Background(), "purge", 10)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.FailureValidation, result.Failure)
	assert.Equal(t, "DELETE FROM orders", result.SQLText())
	assert.NotEmpty(t, result.ValidationErrors)
	assert.Zero(t, f.engine.Calls)

	records := f.tracker.Records()
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
}

func TestTemplateService_ExecutionFailure(t *testing.T) {
	f := newTemplateFixture(t, nil)
	f.engine.QueryFunc = func(string) (*datasource.QueryExecutionResult, error) {
		return nil, errors.New("no such table: order_items")
	}

	result, err := f.service.Run(context.Background(), "sales_trends", 0)

	require.NoError(t, err)
	assert.Equal(t, models.FailureExecution, result.Failure)
	assert.Equal(t, "no such table: order_items", result.Error)
	assert.Equal(t, []int{datasource.MaxQueryLimit}, f.engine.Limits)
}

func TestTemplateService_ListAndCategories(t *testing.T) {
	f := newTemplateFixture(t, nil)

	assert.Len(t, f.service.List(""), 8)
	assert.Len(t, f.service.List("Sales Analytics"), 2)
	assert.Contains(t, f.service.Categories(), "Customer Segmentation")
}
