package web

import (
	"errors"
	"net/http"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/adapters/http/middleware"
	"skykeen/internal/application/orchestrators"
)

// handleRoot sends the admin to the dashboard or the login page (GET /).
func (a *app) handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleLoginPage renders the login form (GET /login).
func (a *app) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	renderTemplate(w, r, http.StatusOK, "login.html", map[string]any{"Title": "Admin Login"})
}

// handleLogin authenticates against the backend and opens a local session (POST /login).
// PRE: form fields email and password
// POST: success sets the signed session cookie and redirects to /dashboard
func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	jar := backend.NewJar()
	email := r.PostFormValue("email")
	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:     email,
		Password:  r.PostFormValue("password"),
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}, orchestrators.LoginDeps{
		Backend: a.deps.Backend.WithJar(jar),
		Audit:   a.deps.Audit,
	})
	if err != nil {
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, orchestrators.ErrMissingCredentials):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, backend.ErrUnreachable):
			status = http.StatusBadGateway
		}
		renderTemplate(w, r, status, "login.html", map[string]any{
			"Title": "Admin Login",
			"Email": email,
			"Error": orchestrators.LoginMessage(err),
		})
		return
	}

	sess := a.sessions.Create(result.AdminID, result.Email, result.Username, jar)
	if err := a.cookies.Set(w, sess.Token); err != nil {
		a.sessions.Delete(sess.Token)
		internalError(w, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleLogout ends the backend session and always clears the local one (POST /logout).
func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, hasCookie := a.cookies.Read(r)
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		// Backend failures are logged by the orchestrator; the admin is never kept signed in.
		_ = orchestrators.ExecuteLogout(r.Context(), orchestrators.LogoutInput{Actor: actorFrom(r, sess)}, orchestrators.LogoutDeps{
			Backend: a.deps.Backend.WithJar(sess.Jar),
			Audit:   a.deps.Audit,
		})
	}
	if hasCookie {
		a.sessions.Delete(token)
	}
	a.cookies.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// endSession drops the local session after the backend rejected its cookies.
func (a *app) endSession(w http.ResponseWriter, r *http.Request) {
	if token, ok := a.cookies.Read(r); ok {
		a.sessions.Delete(token)
	}
	a.cookies.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func actorFrom(r *http.Request, sess middleware.Session) orchestrators.Actor {
	return orchestrators.Actor{
		ID:        sess.ActorID(),
		Email:     sess.Email,
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
