package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/adapters/email"
	"skykeen/internal/domain/registration"
)

// TestExecuteSubmitRegistration_Valid tests a successful submission with acknowledgement.
func TestExecuteSubmitRegistration_Valid(t *testing.T) {
	be := newFakeBackend()
	mailer := email.NewNoopSender()

	res, err := ExecuteSubmitRegistration(context.Background(), SubmitRegistrationInput{Form: validForm()}, SubmitRegistrationDeps{
		Backend:  be,
		Mailer:   mailer,
		MailFrom: "events@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(be.creates) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(be.creates))
	}
	if res.SubmissionID == "" || res.Registration.ID != 101 {
		t.Errorf("unexpected result: %+v", res)
	}
	if !res.AcknowledgementSent {
		t.Error("expected acknowledgement to be sent")
	}
	sent := mailer.Sent()
	if len(sent) != 1 || sent[0].To[0] != "riya@example.com" {
		t.Fatalf("unexpected sends: %+v", sent)
	}
	if !strings.Contains(sent[0].HTML, "TXN123") {
		t.Errorf("acknowledgement missing transaction ID: %s", sent[0].HTML)
	}
}

// TestExecuteSubmitRegistration_InvalidMakesNoCall tests that validation errors stop before the network.
func TestExecuteSubmitRegistration_InvalidMakesNoCall(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *registration.Form)
		wantErr error
	}{
		{name: "missing screenshot", mutate: func(f *registration.Form) { f.Uploads.PaymentScreenshot = nil }, wantErr: registration.ErrScreenshotRequired},
		{name: "oversize screenshot", mutate: func(f *registration.Form) {
			f.Uploads.PaymentScreenshot = registration.NewUpload("big.png", registration.MaxUploadBytes+1, nil)
		}, wantErr: registration.ErrUploadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := newFakeBackend()
			form := validForm()
			tt.mutate(&form)
			_, err := ExecuteSubmitRegistration(context.Background(), SubmitRegistrationInput{Form: form}, SubmitRegistrationDeps{Backend: be})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if len(be.creates) != 0 {
				t.Error("backend should not be called")
			}
		})
	}

	t.Run("blank required field", func(t *testing.T) {
		be := newFakeBackend()
		form := validForm()
		form.SchoolName = "  "
		_, err := ExecuteSubmitRegistration(context.Background(), SubmitRegistrationInput{Form: form}, SubmitRegistrationDeps{Backend: be})
		var fe registration.FieldErrors
		if !errors.As(err, &fe) {
			t.Fatalf("error = %v, want FieldErrors", err)
		}
		if len(be.creates) != 0 {
			t.Error("backend should not be called")
		}
	})
}

// TestExecuteSubmitRegistration_BackendError tests that backend errors pass through unchanged.
func TestExecuteSubmitRegistration_BackendError(t *testing.T) {
	be := newFakeBackend()
	be.err = &backend.APIError{Status: 400, Message: "transaction_id: This field must be unique."}
	mailer := email.NewNoopSender()

	_, err := ExecuteSubmitRegistration(context.Background(), SubmitRegistrationInput{Form: validForm()}, SubmitRegistrationDeps{Backend: be, Mailer: mailer})
	if got := backend.UserMessage(err, "fallback"); got != "transaction_id: This field must be unique." {
		t.Fatalf("error = %v", err)
	}
	if len(mailer.Sent()) != 0 {
		t.Error("no acknowledgement should be sent on failure")
	}
}

// TestAcknowledgementHTML_EscapesInput tests that user text cannot inject markup.
func TestAcknowledgementHTML_EscapesInput(t *testing.T) {
	form := validForm()
	form.StudentName = "<script>x</script> *bold*"
	html, err := AcknowledgementHTML(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("raw script tag rendered: %s", html)
	}
	if strings.Contains(html, "<em>bold</em>") {
		t.Errorf("user emphasis rendered as markup: %s", html)
	}
	if !strings.Contains(html, "<strong>SkyKeen Events</strong>") {
		t.Errorf("template markdown not rendered: %s", html)
	}
}
