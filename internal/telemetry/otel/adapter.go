package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"attendance-control-plane/internal/audit"
	auditdomain "attendance-control-plane/internal/audit/domain"
)

// NewAuditEmitter returns an emitter that mirrors audit events as OTel log
// records via the given LoggerProvider. If provider is nil, returns a no-op
// emitter.
func NewAuditEmitter(provider *sdklog.LoggerProvider) audit.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("attendance.audit")}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *auditdomain.AuditEvent) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the audit event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, event *auditdomain.AuditEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	}
	if event.Metadata != "" {
		rec.SetBody(otellog.StringValue(event.Metadata))
	}
	rec.AddAttributes(otellog.String("event_type", event.EventType))
	if event.SubjectID != "" {
		rec.AddAttributes(otellog.String("subject_id", event.SubjectID))
	}
	if event.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", event.SessionID))
	}
	if event.Origin != "" {
		rec.AddAttributes(otellog.String("origin", event.Origin))
	}
	if cat := audit.CategoryFor(event.EventType); cat != "" {
		rec.AddAttributes(otellog.String("category", cat))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
