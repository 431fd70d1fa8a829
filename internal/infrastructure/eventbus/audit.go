package eventbus

import (
	"context"

	ce "github.com/cloudevents/sdk-go/v2/event"
	"go.uber.org/zap"
)

// NewAuditHandler writes every lifecycle event to the audit log.
func NewAuditHandler(l *zap.Logger) func(context.Context, *ce.Event) error {
	return func(_ context.Context, e *ce.Event) error {
		fields := []zap.Field{
			zap.String("event", e.Type()),
			zap.String("event_id", e.ID()),
			zap.String("source", e.Source()),
			zap.String("subject", e.Subject()),
			zap.Time("occurred_at", e.Time()),
		}
		if actor, ok := e.Extensions()[extensionActor]; ok {
			fields = append(fields, zap.Any("actor", actor))
		}
		if role, ok := e.Extensions()[extensionActorRole]; ok {
			fields = append(fields, zap.Any("actor_role", role))
		}
		l.Info("Audit", fields...)
		return nil
	}
}
