package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

type contextKey string

const sessionContextKey contextKey = "admin_session"

// SessionTTL bounds how long a local admin session lives, whatever the backend says.
const SessionTTL = 12 * time.Hour

// Session is a signed-in admin. Jar holds the backend's session and CSRF
// cookies; they never reach the browser.
type Session struct {
	Token     string
	AdminID   int
	Email     string
	Username  string
	Jar       http.CookieJar
	CreatedAt time.Time
}

// ActorID returns the admin ID as used in audit records.
func (s Session) ActorID() string {
	if s.AdminID == 0 {
		return ""
	}
	return strconv.Itoa(s.AdminID)
}

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
}

// NewSessionStore creates a new in-memory session store. A non-positive ttl uses SessionTTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &SessionStore{sessions: make(map[string]Session), ttl: ttl}
}

// Create stores a new session bound to jar and returns it with its token.
// PRE: jar is the jar used for the successful backend login
func (ss *SessionStore) Create(adminID int, email, username string, jar http.CookieJar) Session {
	s := Session{
		Token:     uuid.NewString(),
		AdminID:   adminID,
		Email:     email,
		Username:  username,
		Jar:       jar,
		CreatedAt: time.Now(),
	}
	ss.mu.Lock()
	ss.sessions[s.Token] = s
	ss.mu.Unlock()
	return s
}

// Get retrieves a live session by token; expired sessions are removed.
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.RLock()
	s, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if time.Since(s.CreatedAt) > ss.ttl {
		ss.Delete(token)
		return Session{}, false
	}
	return s, true
}

// Delete removes a session by token.
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	delete(ss.sessions, token)
	ss.mu.Unlock()
}

// Len returns the number of stored sessions, expired or not.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// SessionCookies signs the session token into the browser cookie.
type SessionCookies struct {
	name   string
	codec  *securecookie.SecureCookie
	secure bool
}

// NewSessionCookies creates a cookie codec keyed by hashKey (32 or 64 bytes).
func NewSessionCookies(name string, hashKey []byte, secure bool) *SessionCookies {
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(int(SessionTTL.Seconds()))
	return &SessionCookies{name: name, codec: codec, secure: secure}
}

// Set writes the signed token cookie.
func (c *SessionCookies) Set(w http.ResponseWriter, token string) error {
	encoded, err := c.codec.Encode(c.name, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL.Seconds()),
	})
	return nil
}

// Read returns the token from a validly signed cookie.
func (c *SessionCookies) Read(r *http.Request) (string, bool) {
	ck, err := r.Cookie(c.name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	var token string
	if err := c.codec.Decode(c.name, ck.Value, &token); err != nil {
		slog.Debug("session_cookie_invalid", "error", err.Error())
		return "", false
	}
	return token, true
}

// Clear removes the session cookie.
func (c *SessionCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Verifier asks the backend whether the credentials in jar still belong to an admin.
type Verifier func(ctx context.Context, jar http.CookieJar) (bool, error)

// ErrBackendDown is returned by a Verifier that could not reach the backend.
// Auth treats the request as unauthenticated but keeps the local session.
var ErrBackendDown = errors.New("auth check unreachable")

// Auth resolves the session cookie and re-checks it against the backend on
// every request, placing the session in the context only when the backend
// confirms it. It does not block; use RequireAuth for that.
func Auth(sessions *SessionStore, cookies *SessionCookies, verify Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := cookies.Read(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			sess, ok := sessions.Get(token)
			if !ok {
				cookies.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			authenticated, err := verify(r.Context(), sess.Jar)
			switch {
			case err == nil && authenticated:
				r = r.WithContext(ContextWithSession(r.Context(), sess))
			case errors.Is(err, ErrBackendDown):
				slog.Warn("auth_event", "event", "check_unreachable", "admin_email", sess.Email)
			default:
				if err != nil {
					slog.Warn("auth_event", "event", "check_failed", "admin_email", sess.Email, "error", err.Error())
				} else {
					slog.Info("auth_event", "event", "session_revoked", "admin_email", sess.Email)
				}
				sessions.Delete(token)
				cookies.Clear(w)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth redirects unauthenticated requests to /login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(Session)
	return s, ok
}

// ContextWithSession returns a context carrying sess.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
