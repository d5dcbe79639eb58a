package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"skykeen/internal/domain/audit"
	"skykeen/internal/domain/registration"
)

// PaymentVerifier reads and verifies registrations.
type PaymentVerifier interface {
	GetRegistration(ctx context.Context, id int) (registration.Registration, error)
	VerifyPayment(ctx context.Context, id int, verified bool, notes string) (registration.Registration, error)
}

// VerifyPaymentInput carries input for the verify orchestrator.
type VerifyPaymentInput struct {
	ID    int
	Notes string
	Actor Actor
}

// VerifyPaymentDeps holds dependencies for VerifyPayment.
type VerifyPaymentDeps struct {
	Backend PaymentVerifier
	Audit   AuditRecorder
}

// ExecuteVerifyPayment marks a registration's payment verified and saves the notes.
// PRE: ID > 0
// POST: payment_verified is true on the backend; an audit event is recorded
// INVARIANT: verification is one-way; an already verified record returns
// registration.ErrAlreadyVerified without a write
func ExecuteVerifyPayment(ctx context.Context, input VerifyPaymentInput, deps VerifyPaymentDeps) (registration.Registration, error) {
	current, err := deps.Backend.GetRegistration(ctx, input.ID)
	if err != nil {
		return registration.Registration{}, fmt.Errorf("load registration %d: %w", input.ID, err)
	}
	if err := current.MarkVerified(input.Notes); err != nil {
		if errors.Is(err, registration.ErrAlreadyVerified) {
			slog.Info("registration_event", "event", "verify_skipped", "registration_id", input.ID, "reason", "already_verified")
		}
		return current, err
	}

	updated, err := deps.Backend.VerifyPayment(ctx, input.ID, true, input.Notes)
	if err != nil {
		return current, fmt.Errorf("verify registration %d: %w", input.ID, err)
	}

	slog.Info("registration_event", "event", "payment_verified", "registration_id", input.ID, "admin_email", input.Actor.Email)
	recordAudit(ctx, deps.Audit, newAuditEvent(input.Actor, audit.CategoryRegistration, audit.ActionVerify).
		WithResource(audit.ResourceRegistration, strconv.Itoa(input.ID)).
		WithDescription(fmt.Sprintf("payment verified for %s (txn %s)", current.StudentName, current.TransactionID)))
	return updated, nil
}
