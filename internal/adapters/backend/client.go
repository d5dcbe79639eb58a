package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"skykeen/internal/adapters/http/perf"
	"skykeen/internal/domain/registration"
)

// Backend endpoints
const (
	pathLogin         = "/api/admin/login/"
	pathLogout        = "/api/admin/logout/"
	pathCheck         = "/api/admin/check/"
	pathRegistrations = "/api/registrations/"
)

// CSRF cookie and header used by the backend framework.
const (
	csrfCookieName = "csrftoken"
	csrfHeaderName = "X-CSRFToken"
)

const maxResponseBytes = 16 << 20

// AdminUser is the identity returned by login and check.
type AdminUser struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// LoginResult is the backend's login response body.
type LoginResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   string    `json:"error"`
	User    AdminUser `json:"user"`
}

// AuthStatus is the backend's check response body.
type AuthStatus struct {
	Authenticated bool      `json:"authenticated"`
	User          AdminUser `json:"user"`
}

// ListFilter narrows ListRegistrations. A nil PaymentVerified lists everything.
type ListFilter struct {
	PaymentVerified *bool
}

// Client talks to the registration backend. The zero-jar client is
// anonymous; WithJar binds a copy to one admin's credentials.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	jar        http.CookieJar
	collector  *perf.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Jar is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithCollector records every call's latency.
func WithCollector(pc *perf.Collector) Option {
	return func(c *Client) { c.collector = pc }
}

// NewClient builds a client for the backend at baseURL.
// PRE: baseURL is absolute, without trailing slash
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithJar returns a copy of c that sends and stores cookies in jar.
func (c *Client) WithJar(jar http.CookieJar) *Client {
	cp := *c
	cp.jar = jar
	return &cp
}

// Jar returns the credential jar, nil for the anonymous client.
func (c *Client) Jar() http.CookieJar { return c.jar }

// NewJar returns an empty jar for one admin session.
func NewJar() http.CookieJar {
	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// Login posts credentials. A 2xx body with success=false is returned as-is;
// the caller decides how to present it.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res LoginResult
	err := c.doJSON(ctx, http.MethodPost, pathLogin, map[string]string{
		"email":    email,
		"password": password,
	}, &res, "Login failed. Please try again.")
	return res, err
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, pathLogout, nil, nil, "Logout failed")
}

// CheckAuth reports whether the jar's session belongs to an admin.
func (c *Client) CheckAuth(ctx context.Context) (AuthStatus, error) {
	var st AuthStatus
	err := c.doJSON(ctx, http.MethodGet, pathCheck, nil, &st, "Authentication check failed")
	return st, err
}

// ListRegistrations fetches all registrations, newest first as the backend orders them.
// Both a bare array and a paginated {"results": [...]} body are accepted.
func (c *Client) ListRegistrations(ctx context.Context, f ListFilter) ([]registration.Registration, error) {
	path := pathRegistrations
	if f.PaymentVerified != nil {
		path += "?" + url.Values{"payment_verified": {strconv.FormatBool(*f.PaymentVerified)}}.Encode()
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw, "Failed to fetch registrations"); err != nil {
		return nil, err
	}
	return decodeList(raw)
}

// GetRegistration fetches one full record.
func (c *Client) GetRegistration(ctx context.Context, id int) (registration.Registration, error) {
	var r registration.Registration
	err := c.doJSON(ctx, http.MethodGet, registrationPath(id, ""), nil, &r, "Failed to fetch registration details")
	return r, err
}

// VerifyPayment sets the payment flag and replaces the notes.
func (c *Client) VerifyPayment(ctx context.Context, id int, verified bool, notes string) (registration.Registration, error) {
	var r registration.Registration
	body := map[string]any{"payment_verified": verified, "notes": notes}
	err := c.doJSON(ctx, http.MethodPatch, registrationPath(id, "verify/"), body, &r, "Failed to verify payment")
	return r, err
}

// DeleteRegistration removes one record.
func (c *Client) DeleteRegistration(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, registrationPath(id, ""), nil, nil, "Failed to delete registration")
}

// CreateRegistration submits a multipart payload anonymously: no cookies and
// no CSRF header are sent, whatever jar the client holds.
func (c *Client) CreateRegistration(ctx context.Context, p *Payload) (registration.Registration, error) {
	var r registration.Registration
	resp, body, err := c.send(ctx, http.MethodPost, pathRegistrations, bytes.NewReader(p.Body), p.ContentType, false)
	if err != nil {
		return r, err
	}
	if resp.StatusCode/100 != 2 {
		return r, &APIError{
			Status:  resp.StatusCode,
			Message: ResolveMessage(resp.StatusCode, body, fmt.Sprintf("Registration failed (%d). Please try again.", resp.StatusCode)),
		}
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &r); err != nil {
			return r, fmt.Errorf("decode created registration: %w", err)
		}
	}
	return r, nil
}

func registrationPath(id int, suffix string) string {
	return pathRegistrations + strconv.Itoa(id) + "/" + suffix
}

func decodeList(raw json.RawMessage) ([]registration.Registration, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var page struct {
			Results []registration.Registration `json:"results"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode registration page: %w", err)
		}
		if page.Results == nil {
			return []registration.Registration{}, nil
		}
		return page.Results, nil
	}
	list := []registration.Registration{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode registrations: %w", err)
		}
	}
	return list, nil
}

// doJSON performs one credentialed call with an optional JSON body and
// decodes a 2xx response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, fallback string) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, respBody, err := c.send(ctx, method, path, body, contentType, true)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return &APIError{Status: resp.StatusCode, Message: ResolveMessage(resp.StatusCode, respBody, fallback)}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send executes a single request and reads the whole response body.
// Credentialed calls carry the jar's cookies and, on unsafe methods, the
// CSRF header; their Set-Cookie responses are stored back.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, credentialed bool) (*http.Response, []byte, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, nil, fmt.Errorf("build url %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	useJar := credentialed && c.jar != nil
	if useJar {
		cookies := c.jar.Cookies(u)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		if unsafeMethod(method) {
			if token := cookieValue(cookies, csrfCookieName); token != "" {
				req.Header.Set(csrfHeaderName, token)
				req.Header.Set("Referer", c.baseURL+"/")
			}
		}
	}

	label := method + " " + routeLabel(path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(label, 0, start, err)
		return nil, nil, &ConnectivityError{Op: label, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.observe(label, 0, start, err)
		return nil, nil, &ConnectivityError{Op: label, Err: err}
	}
	c.observe(label, resp.StatusCode, start, nil)

	if useJar {
		if rc := resp.Cookies(); len(rc) > 0 {
			c.jar.SetCookies(u, rc)
		}
	}
	return resp, respBody, nil
}

func (c *Client) observe(label string, status int, start time.Time, err error) {
	d := time.Since(start)
	ms := float64(d.Microseconds()) / 1000.0
	c.collector.Record(perf.Entry{
		Kind:       perf.KindUpstream,
		Label:      label,
		StatusCode: status,
		DurationMs: ms,
		Timestamp:  start,
	})
	switch {
	case err != nil:
		slog.Warn("backend_call", "call", label, "duration_ms", ms, "error", err.Error())
	case status >= 500:
		slog.Warn("backend_call", "call", label, "status", status, "duration_ms", ms)
	default:
		slog.Debug("backend_call", "call", label, "status", status, "duration_ms", ms)
	}
}

func unsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

func cookieValue(cookies []*http.Cookie, name string) string {
	for _, ck := range cookies {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// routeLabel collapses record IDs so per-record calls aggregate together.
func routeLabel(path string) string {
	path, _, _ = strings.Cut(path, "?")
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if _, err := strconv.Atoi(s); err == nil {
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}

// IsUnauthorized reports whether err means the admin session is no longer valid.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
