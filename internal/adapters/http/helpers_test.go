package web

import (
	"bytes"
	"context"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/adapters/email"
	"skykeen/internal/adapters/http/perf"
	auditStore "skykeen/internal/adapters/storage/audit"
	auditDomain "skykeen/internal/domain/audit"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func init() {
	RateLimitPerSecond = 1000
}

// memAuditStore implements auditStore.Store in memory.
type memAuditStore struct {
	mu     sync.Mutex
	events []auditDomain.Event
}

func (m *memAuditStore) Save(_ context.Context, e auditDomain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memAuditStore) List(_ context.Context, f auditStore.Filter, limit int) ([]auditDomain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auditDomain.Event
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.events[i]
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memAuditStore) actions() []auditDomain.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]auditDomain.Action, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}

type testEnv struct {
	deps   Deps
	audit  *memAuditStore
	mailer *email.NoopSender
}

func newTestEnv(apiURL string) testEnv {
	audit := &memAuditStore{}
	mailer := email.NewNoopSender()
	collector := perf.NewCollector(500)
	return testEnv{
		deps: Deps{
			Backend:   backend.NewClient(apiURL, backend.WithTimeout(5*time.Second), backend.WithCollector(collector)),
			Audit:     audit,
			Mailer:    mailer,
			MailFrom:  "events@example.com",
			Collector: collector,
		},
		audit:  audit,
		mailer: mailer,
	}
}

func testOptions() Options {
	return Options{CSRFKey: testKey, SessionKey: testKey}
}

// browser is an HTTP client with a cookie jar that does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func startServer(t *testing.T, s *Server) *browser {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})
	jar, _ := cookiejar.New(nil)
	return &browser{t: t, base: srv.URL, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, b.base+path, nil)
	return b.do(req)
}

func (b *browser) postForm(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// postMultipart posts fields and files; files maps field name to filename and bytes.
func (b *browser) postMultipart(path string, fields url.Values, files map[string]fileFixture) (*http.Response, string) {
	b.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			_ = w.WriteField(k, v)
		}
	}
	for field, f := range files {
		part, err := w.CreateFormFile(field, f.name)
		if err != nil {
			b.t.Fatal(err)
		}
		_, _ = part.Write(f.data)
	}
	_ = w.Close()
	req, _ := http.NewRequest(http.MethodPost, b.base+path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

type fileFixture struct {
	name string
	data []byte
}

var csrfFieldRe = regexp.MustCompile(`name="gorilla\.csrf\.Token" value="([^"]*)"`)

// csrfToken loads path and returns the form token rendered on it.
func (b *browser) csrfToken(path string) string {
	b.t.Helper()
	_, body := b.get(path)
	m := csrfFieldRe.FindStringSubmatch(body)
	if m == nil {
		b.t.Fatalf("no csrf token on %s", path)
	}
	return html.UnescapeString(m[1])
}

// login signs in through the form and fails the test unless it lands on the dashboard.
func (b *browser) login() {
	b.t.Helper()
	token := b.csrfToken("/login")
	resp, _ := b.postForm("/login", url.Values{
		"email":              {testAdminEmail},
		"password":           {testAdminPassword},
		"gorilla.csrf.Token": {token},
	})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/dashboard" {
		b.t.Fatalf("login: status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func location(resp *http.Response) string {
	return resp.Header.Get("Location")
}

func unescapeToken(s string) string {
	return html.UnescapeString(s)
}
