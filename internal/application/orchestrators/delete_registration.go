package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"skykeen/internal/domain/audit"
)

// ErrNotConfirmed is returned when a delete arrives without confirmation.
var ErrNotConfirmed = errors.New("delete not confirmed")

// DeleteConfirmationPrompt is shown before a registration is deleted.
const DeleteConfirmationPrompt = "Are you sure you want to delete this registration? This action cannot be undone."

// RegistrationDeleter removes registrations.
type RegistrationDeleter interface {
	DeleteRegistration(ctx context.Context, id int) error
}

// DeleteRegistrationInput carries input for the delete orchestrator.
type DeleteRegistrationInput struct {
	ID        int
	Confirmed bool
	Actor     Actor
}

// DeleteRegistrationDeps holds dependencies for DeleteRegistration.
type DeleteRegistrationDeps struct {
	Backend RegistrationDeleter
	Audit   AuditRecorder
}

// ExecuteDeleteRegistration deletes one registration after explicit confirmation.
// PRE: ID > 0
// POST: the record is gone from the backend; a warning-level audit event is recorded
func ExecuteDeleteRegistration(ctx context.Context, input DeleteRegistrationInput, deps DeleteRegistrationDeps) error {
	if !input.Confirmed {
		return ErrNotConfirmed
	}
	if err := deps.Backend.DeleteRegistration(ctx, input.ID); err != nil {
		return fmt.Errorf("delete registration %d: %w", input.ID, err)
	}

	slog.Info("registration_event", "event", "registration_deleted", "registration_id", input.ID, "admin_email", input.Actor.Email)
	recordAudit(ctx, deps.Audit, newAuditEvent(input.Actor, audit.CategoryRegistration, audit.ActionDelete).
		WithResource(audit.ResourceRegistration, strconv.Itoa(input.ID)).
		WithDescription("registration deleted"))
	return nil
}
