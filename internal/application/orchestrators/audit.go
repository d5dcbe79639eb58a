package orchestrators

import (
	"context"
	"log/slog"

	"skykeen/internal/domain/audit"
)

// Actor identifies the admin performing an action and the request it came from.
type Actor struct {
	ID        string
	Email     string
	IP        string
	UserAgent string
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Save(ctx context.Context, e audit.Event) error
}

// newAuditEvent starts an event attributed to actor.
func newAuditEvent(actor Actor, category audit.Category, action audit.Action) audit.Event {
	return audit.NewEvent(actor.ID, actor.Email, category, action).
		WithRequest(actor.IP, actor.UserAgent)
}

// recordAudit saves e. Failures are logged and never fail the action itself.
func recordAudit(ctx context.Context, rec AuditRecorder, e audit.Event) {
	if rec == nil {
		return
	}
	if err := rec.Save(ctx, e); err != nil {
		slog.Error("audit_save_failed", "action", e.Label(), "resource_id", e.ResourceID, "error", err.Error())
	}
}
