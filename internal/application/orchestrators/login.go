package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/domain/audit"
)

// LoginFailedMessage is shown when the backend gives no reason.
const LoginFailedMessage = "Login failed. Please try again."

// Authenticator performs the backend login.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (backend.LoginResult, error)
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// LoginResult carries the identity of a successful login.
type LoginResult struct {
	AdminID  int
	Email    string
	Username string
}

// LoginDeps holds dependencies for Login. Backend must be bound to the jar
// that will back the new session.
type LoginDeps struct {
	Backend Authenticator
	Audit   AuditRecorder
}

var ErrMissingCredentials = errors.New("Email and password are required")

// LoginRejectedError is a 2xx login response with success=false.
type LoginRejectedError struct {
	Message string
}

func (e *LoginRejectedError) Error() string { return e.Message }

// ExecuteLogin authenticates against the backend.
// PRE: deps.Backend holds a fresh cookie jar
// POST: on success the jar holds the backend session; an audit event is recorded
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	res, err := deps.Backend.Login(ctx, email, input.Password)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", email, "error", err.Error())
		return LoginResult{}, err
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = LoginFailedMessage
		}
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", msg)
		return LoginResult{}, &LoginRejectedError{Message: msg}
	}

	out := LoginResult{AdminID: res.User.ID, Email: res.User.Email, Username: res.User.Username}
	if out.Email == "" {
		out.Email = email
	}
	slog.Info("auth_event", "event", "login_success", "email", out.Email)

	actor := Actor{Email: out.Email, IP: input.IP, UserAgent: input.UserAgent}
	if out.AdminID != 0 {
		actor.ID = strconv.Itoa(out.AdminID)
	}
	recordAudit(ctx, deps.Audit, newAuditEvent(actor, audit.CategoryAuth, audit.ActionLogin).
		WithDescription("signed in"))
	return out, nil
}

// LoginMessage maps a login error to the text shown on the login page.
func LoginMessage(err error) string {
	var rejected *LoginRejectedError
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return ErrMissingCredentials.Error()
	case errors.As(err, &rejected):
		return rejected.Message
	}
	return backend.UserMessage(err, LoginFailedMessage)
}
