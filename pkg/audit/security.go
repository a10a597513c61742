// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-analyst/pkg/llm"
	sqlutil "github.com/ekaya-inc/ekaya-analyst/pkg/sql"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventQueryRejected is logged when SQL fails validation and is not executed.
	EventQueryRejected SecurityEventType = "query_rejected"
	// EventSuspiciousLiteral is logged when libinjection flags a string literal
	// in SQL that was otherwise allowed to run.
	EventSuspiciousLiteral SecurityEventType = "suspicious_literal"
	// EventQueryExecution is logged for caller-supplied SQL that was executed.
	EventQueryExecution SecurityEventType = "query_execution"
)

// Sources name where audited SQL came from.
const (
	SourceResolver = "resolver"
	SourceRunSQL   = "run_sql"
	SourceExplain  = "explain_sql"
	SourceTemplate = "template"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID string            `json:"request_id,omitempty"`
	Source    string            `json:"source"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// QueryDetails describes the SQL an event is about. Question is empty for
// caller-supplied SQL.
type QueryDetails struct {
	Question string   `json:"question,omitempty"`
	SQL      string   `json:"sql"`
	Findings []string `json:"findings,omitempty"`
	RowCount *int     `json:"row_count,omitempty"`
}

// SecurityAuditor logs security events. A nil *SecurityAuditor is valid and
// logs nothing.
type SecurityAuditor struct {
	logger *zap.Logger
	clock  clockwork.Clock
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		clock:  clockwork.NewRealClock(),
	}
}

// AuditVerdict records what validation found in sqlQuery. A rejection is
// critical when a mutating or dangerous pattern matched and a warning
// otherwise. Valid SQL is only logged when a literal looked like an
// injection payload.
func (a *SecurityAuditor) AuditVerdict(ctx context.Context, source, question, sqlQuery string, verdict sqlutil.Verdict) {
	if a == nil {
		return
	}

	if !verdict.Valid {
		severity := "warning"
		for _, msg := range verdict.Errors {
			if strings.HasPrefix(msg, sqlutil.DangerousOperationPrefix) {
				severity = "critical"
				break
			}
		}
		a.log(ctx, "SQL rejected by validation", SecurityEvent{
			EventType: EventQueryRejected,
			Source:    source,
			Severity:  severity,
			Details:   QueryDetails{Question: question, SQL: sqlQuery, Findings: verdict.Errors},
		})
		return
	}

	var suspicious []string
	for _, msg := range verdict.Warnings {
		if strings.HasPrefix(msg, sqlutil.InjectionLiteralPrefix) {
			suspicious = append(suspicious, msg)
		}
	}
	if len(suspicious) > 0 {
		a.log(ctx, "Suspicious literal in SQL", SecurityEvent{
			EventType: EventSuspiciousLiteral,
			Source:    source,
			Severity:  "warning",
			Details:   QueryDetails{Question: question, SQL: sqlQuery, Findings: suspicious},
		})
	}
}

// LogQueryExecution records executed caller-supplied SQL for the audit trail.
func (a *SecurityAuditor) LogQueryExecution(ctx context.Context, source, sqlQuery string, rowCount int) {
	if a == nil {
		return
	}
	a.log(ctx, "Query executed", SecurityEvent{
		EventType: EventQueryExecution,
		Source:    source,
		Severity:  "info",
		Details:   QueryDetails{SQL: sqlQuery, RowCount: &rowCount},
	})
}

func (a *SecurityAuditor) log(ctx context.Context, msg string, event SecurityEvent) {
	event.Timestamp = a.clock.Now().UTC()
	event.RequestID = llm.RequestIDFromContext(ctx)

	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)

	fields := []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(event.EventType)),
		zap.String("source", event.Source),
		zap.String("request_id", event.RequestID),
		zap.String("severity", event.Severity),
	}

	switch event.Severity {
	case "critical":
		a.logger.Error(msg, fields...)
	case "warning":
		a.logger.Warn(msg, fields...)
	default:
		a.logger.Info(msg, fields...)
	}
}
