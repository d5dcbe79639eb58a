package orchestrators

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/adapters/email"
	"skykeen/internal/domain/registration"
)

// SubmitSuccessMessage is shown after the backend accepts a registration.
const SubmitSuccessMessage = "Registration submitted successfully! We will contact you soon."

// AcknowledgementSubject is the subject of the confirmation email.
const AcknowledgementSubject = "We received your SkyKeen registration"

// RegistrationCreator posts a new registration to the backend.
type RegistrationCreator interface {
	CreateRegistration(ctx context.Context, p *backend.Payload) (registration.Registration, error)
}

// SubmitRegistrationInput carries the submitted form.
type SubmitRegistrationInput struct {
	Form registration.Form
}

// SubmitRegistrationResult describes an accepted submission.
type SubmitRegistrationResult struct {
	SubmissionID        string
	Registration        registration.Registration
	AcknowledgementSent bool
}

// SubmitRegistrationDeps holds dependencies for SubmitRegistration.
// Mailer is optional.
type SubmitRegistrationDeps struct {
	Backend  RegistrationCreator
	Mailer   email.Sender
	MailFrom string
	ReplyTo  string
}

var ackRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// ExecuteSubmitRegistration validates the form and creates the registration.
// PRE: form fields are as posted by the browser
// POST: on success the backend holds a new unverified registration
// INVARIANT: no backend call is made when validation fails
func ExecuteSubmitRegistration(ctx context.Context, input SubmitRegistrationInput, deps SubmitRegistrationDeps) (SubmitRegistrationResult, error) {
	form := input.Form
	form.Normalize()
	if err := form.Validate(); err != nil {
		return SubmitRegistrationResult{}, err
	}

	payload, err := backend.NewRegistrationPayload(form)
	if err != nil {
		return SubmitRegistrationResult{}, err
	}

	submissionID := uuid.NewString()
	created, err := deps.Backend.CreateRegistration(ctx, payload)
	if err != nil {
		slog.Warn("registration_event", "event", "submit_failed", "submission_id", submissionID, "error", err.Error())
		return SubmitRegistrationResult{}, err
	}
	slog.Info("registration_event", "event", "submitted", "submission_id", submissionID, "registration_id", created.ID)

	result := SubmitRegistrationResult{SubmissionID: submissionID, Registration: created}
	if deps.Mailer != nil && form.StudentEmail != "" {
		if err := sendAcknowledgement(ctx, form, deps); err != nil {
			slog.Error("email_event", "event", "ack_failed", "submission_id", submissionID, "error", err.Error())
		} else {
			result.AcknowledgementSent = true
		}
	}
	return result, nil
}

func sendAcknowledgement(ctx context.Context, form registration.Form, deps SubmitRegistrationDeps) error {
	body, err := AcknowledgementHTML(form)
	if err != nil {
		return err
	}
	_, err = deps.Mailer.Send(ctx, email.SendRequest{
		To:      []string{form.StudentEmail},
		From:    deps.MailFrom,
		Subject: AcknowledgementSubject,
		HTML:    body,
		ReplyTo: deps.ReplyTo,
	})
	return err
}

// AcknowledgementHTML renders the confirmation email for a submitted form.
func AcknowledgementHTML(form registration.Form) (string, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "Hi %s,\n\n", markdownEscape(form.StudentName))
	md.WriteString("Thanks for registering with **SkyKeen Events**. Our team will check your payment and contact you soon.\n\n")
	fmt.Fprintf(&md, "- School: %s\n", markdownEscape(form.SchoolName))
	fmt.Fprintf(&md, "- Class: %s\n", markdownEscape(form.StudentClass))
	fmt.Fprintf(&md, "- Transaction ID: %s\n", markdownEscape(form.TransactionID))
	if len(form.Competitions) > 0 {
		fmt.Fprintf(&md, "- Competitions: %s\n", markdownEscape(strings.Join(form.Competitions, ", ")))
	}
	if len(form.Workshops) > 0 {
		fmt.Fprintf(&md, "- Workshops: %s\n", markdownEscape(strings.Join(form.Workshops, ", ")))
	}

	var buf bytes.Buffer
	if err := ackRenderer.Convert([]byte(md.String()), &buf); err != nil {
		return "", fmt.Errorf("render acknowledgement: %w", err)
	}
	return buf.String(), nil
}

var markdownReplacer = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
)

func markdownEscape(s string) string {
	return markdownReplacer.Replace(s)
}
