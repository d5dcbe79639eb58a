package orchestrators

import (
	"context"
	"errors"
	"testing"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/domain/audit"
)

// TestExecuteLogin tests login outcomes and their page messages.
func TestExecuteLogin(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		result   backend.LoginResult
		err      error
		wantMsg  string
	}{
		{name: "missing password", email: "a@b.c", wantMsg: "Email and password are required"},
		{name: "backend rejects", email: "a@b.c", password: "x", err: &backend.APIError{Status: 401, Message: "Invalid credentials"}, wantMsg: "Invalid credentials"},
		{name: "success false", email: "a@b.c", password: "x", result: backend.LoginResult{Success: false}, wantMsg: LoginFailedMessage},
		{name: "unreachable", email: "a@b.c", password: "x", err: &backend.ConnectivityError{Op: "login", Err: errors.New("refused")}, wantMsg: backend.ConnectivityMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := newFakeBackend()
			be.loginResult = tt.result
			be.err = tt.err
			rec := &memAudit{}
			_, err := ExecuteLogin(context.Background(), LoginInput{Email: tt.email, Password: tt.password}, LoginDeps{Backend: be, Audit: rec})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := LoginMessage(err); got != tt.wantMsg {
				t.Errorf("LoginMessage = %q, want %q", got, tt.wantMsg)
			}
			if len(rec.events) != 0 {
				t.Error("failed login should not be audited")
			}
		})
	}
}

// TestExecuteLogin_Success tests identity mapping and the audit record.
func TestExecuteLogin_Success(t *testing.T) {
	be := newFakeBackend()
	be.loginResult = backend.LoginResult{Success: true, User: backend.AdminUser{ID: 7, Email: "admin@example.com", Username: "admin"}}
	rec := &memAudit{}

	res, err := ExecuteLogin(context.Background(), LoginInput{Email: " admin@example.com ", Password: "pw", IP: "10.0.0.1"}, LoginDeps{Backend: be, Audit: rec})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AdminID != 7 || res.Username != "admin" {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(rec.events))
	}
	e := rec.events[0]
	if e.Action != audit.ActionLogin || e.ActorID != "7" || e.IPAddress != "10.0.0.1" {
		t.Errorf("unexpected audit event: %+v", e)
	}
}

// TestExecuteLogout tests that a backend failure is still audited.
func TestExecuteLogout(t *testing.T) {
	be := newFakeBackend()
	be.err = &backend.ConnectivityError{Op: "logout", Err: errors.New("timeout")}
	rec := &memAudit{}

	err := ExecuteLogout(context.Background(), LogoutInput{Actor: Actor{ID: "7", Email: "admin@example.com"}}, LogoutDeps{Backend: be, Audit: rec})
	if !errors.Is(err, backend.ErrUnreachable) {
		t.Fatalf("error = %v, want ErrUnreachable", err)
	}
	if be.logouts != 1 || len(rec.events) != 1 || rec.events[0].Action != audit.ActionLogout {
		t.Errorf("logouts=%d events=%+v", be.logouts, rec.events)
	}
}
