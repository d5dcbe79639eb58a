package orchestrators

import (
	"context"
	"log/slog"

	"skykeen/internal/domain/audit"
)

// Deauthenticator ends the backend session.
type Deauthenticator interface {
	Logout(ctx context.Context) error
}

// LogoutInput carries input for the logout orchestrator.
type LogoutInput struct {
	Actor Actor
}

// LogoutDeps holds dependencies for Logout.
type LogoutDeps struct {
	Backend Deauthenticator
	Audit   AuditRecorder
}

// ExecuteLogout ends the backend session. The returned error is informational:
// callers clear the local session whatever happens here.
func ExecuteLogout(ctx context.Context, input LogoutInput, deps LogoutDeps) error {
	err := deps.Backend.Logout(ctx)
	if err != nil {
		slog.Warn("auth_event", "event", "logout_backend_failed", "email", input.Actor.Email, "error", err.Error())
	} else {
		slog.Info("auth_event", "event", "logout", "email", input.Actor.Email)
	}
	recordAudit(ctx, deps.Audit, newAuditEvent(input.Actor, audit.CategoryAuth, audit.ActionLogout).
		WithDescription("signed out"))
	return err
}
