package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/adapters/http/perf"
	"skykeen/internal/domain/registration"
)

// fakeBackend records requests and serves canned responses.
type fakeBackend struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	handler  http.HandlerFunc
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	f.bodies = append(f.bodies, string(b))
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeBackend) last() (*http.Request, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1], f.bodies[len(f.bodies)-1]
}

func newFake(t *testing.T, h http.HandlerFunc) (*fakeBackend, *httptest.Server) {
	t.Helper()
	f := &fakeBackend{handler: h}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// TestLoginStoresSessionAndSendsCSRF tests the cookie round trip and CSRF header.
func TestLoginStoresSessionAndSendsCSRF(t *testing.T) {
	f, srv := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/login/":
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "s1", Path: "/"})
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok", Path: "/"})
			writeJSON(w, 200, map[string]any{"success": true, "message": "Login successful", "user": map[string]any{"id": 1, "email": "a@x.io", "username": "a"}})
		case "/api/registrations/5/verify/":
			writeJSON(w, 200, map[string]any{"id": 5, "payment_verified": true, "notes": "ok"})
		default:
			w.WriteHeader(404)
		}
	})

	client := backend.NewClient(srv.URL).WithJar(backend.NewJar())
	ctx := context.Background()

	res, err := client.Login(ctx, "a@x.io", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !res.Success || res.User.Email != "a@x.io" {
		t.Fatalf("Login() = %+v", res)
	}
	req, body := f.last()
	if req.Header.Get("X-CSRFToken") != "" {
		t.Error("no CSRF header expected before the cookie exists")
	}
	if !strings.Contains(body, `"email":"a@x.io"`) {
		t.Errorf("login body = %s", body)
	}

	reg, err := client.VerifyPayment(ctx, 5, true, "ok")
	if err != nil {
		t.Fatalf("VerifyPayment() error = %v", err)
	}
	if !reg.PaymentVerified {
		t.Error("expected verified registration in response")
	}
	req, body = f.last()
	if req.Method != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", req.Method)
	}
	if req.Header.Get("X-CSRFToken") != "tok" {
		t.Errorf("X-CSRFToken = %q, want tok", req.Header.Get("X-CSRFToken"))
	}
	if ck, err := req.Cookie("sessionid"); err != nil || ck.Value != "s1" {
		t.Errorf("session cookie not sent: %v", err)
	}
	if !strings.Contains(body, `"payment_verified":true`) || !strings.Contains(body, `"notes":"ok"`) {
		t.Errorf("verify body = %s", body)
	}
}

// TestCreateRegistrationIsAnonymous tests that create sends no credentials.
func TestCreateRegistrationIsAnonymous(t *testing.T) {
	f, srv := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/admin/login/" {
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok", Path: "/"})
			writeJSON(w, 200, map[string]any{"success": true})
			return
		}
		writeJSON(w, 201, map[string]any{"id": 99, "student_name": "Riya"})
	})
	client := backend.NewClient(srv.URL).WithJar(backend.NewJar())
	if _, err := client.Login(context.Background(), "a", "b"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	form := validForm()
	payload, err := backend.NewRegistrationPayload(form)
	if err != nil {
		t.Fatalf("NewRegistrationPayload() error = %v", err)
	}
	reg, err := client.CreateRegistration(context.Background(), payload)
	if err != nil {
		t.Fatalf("CreateRegistration() error = %v", err)
	}
	if reg.ID != 99 {
		t.Errorf("ID = %d, want 99", reg.ID)
	}
	req, _ := f.last()
	if len(req.Cookies()) != 0 {
		t.Errorf("create sent cookies: %v", req.Cookies())
	}
	if req.Header.Get("X-CSRFToken") != "" {
		t.Error("create sent a CSRF header")
	}
	if !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		t.Errorf("Content-Type = %q", req.Header.Get("Content-Type"))
	}
}

// TestCreateRegistrationErrors tests rejection and fallback messages.
func TestCreateRegistrationErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "field errors", status: 400, body: `{"transaction_id":["This field is required."]}`, wantMsg: "transaction_id: This field is required."},
		{name: "empty body object", status: 400, body: `{}`, wantMsg: "Registration failed (400). Please try again."},
		{name: "html", status: 502, body: `<h1>Bad Gateway</h1>`, wantMsg: "Server error: 502 Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFake(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			payload, err := backend.NewRegistrationPayload(validForm())
			if err != nil {
				t.Fatal(err)
			}
			_, err = backend.NewClient(srv.URL).CreateRegistration(context.Background(), payload)
			var apiErr *backend.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("APIError = %+v, want %d %q", apiErr, tt.status, tt.wantMsg)
			}
		})
	}
}

// TestConnectivityError tests that transport failures are distinguishable.
func TestConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	collector := perf.NewCollector(10)
	client := backend.NewClient(url, backend.WithCollector(collector), backend.WithTimeout(time.Second))
	_, err := client.ListRegistrations(context.Background(), backend.ListFilter{})
	if !errors.Is(err, backend.ErrUnreachable) {
		t.Fatalf("error = %v, want ErrUnreachable", err)
	}
	if backend.UserMessage(err, "x") != backend.ConnectivityMessage {
		t.Error("expected connectivity message")
	}
	snap := collector.Snapshot(time.Now().Add(-time.Minute), 5)
	if snap.UpstreamFailures != 1 {
		t.Errorf("UpstreamFailures = %d, want 1", snap.UpstreamFailures)
	}
}

// TestListRegistrations tests bare, paginated, and filtered list responses.
func TestListRegistrations(t *testing.T) {
	var paginated atomic.Bool
	f, srv := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]any{{"id": 2, "student_name": "B"}, {"id": 1, "student_name": "A"}}
		if paginated.Load() {
			writeJSON(w, 200, map[string]any{"count": 2, "results": items})
			return
		}
		writeJSON(w, 200, items)
	})
	client := backend.NewClient(srv.URL).WithJar(backend.NewJar())

	list, err := client.ListRegistrations(context.Background(), backend.ListFilter{})
	if err != nil || len(list) != 2 || list[0].ID != 2 {
		t.Fatalf("bare list = %+v, %v", list, err)
	}

	paginated.Store(true)
	pending := false
	list, err = client.ListRegistrations(context.Background(), backend.ListFilter{PaymentVerified: &pending})
	if err != nil || len(list) != 2 {
		t.Fatalf("paginated list = %+v, %v", list, err)
	}
	req, _ := f.last()
	if req.URL.Query().Get("payment_verified") != "false" {
		t.Errorf("query = %q", req.URL.RawQuery)
	}
}

// TestUnauthorizedAndDelete tests 403 mapping and a 204 delete.
func TestUnauthorizedAndDelete(t *testing.T) {
	f, srv := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, 403, map[string]string{"detail": "Authentication credentials were not provided."})
	})
	client := backend.NewClient(srv.URL).WithJar(backend.NewJar())

	_, err := client.GetRegistration(context.Background(), 3)
	if !backend.IsUnauthorized(err) {
		t.Fatalf("error = %v, want unauthorized", err)
	}
	if err := client.DeleteRegistration(context.Background(), 3); err != nil {
		t.Fatalf("DeleteRegistration() error = %v", err)
	}
	req, _ := f.last()
	if req.URL.Path != "/api/registrations/3/" {
		t.Errorf("delete path = %s", req.URL.Path)
	}
}

// TestCheckAuth tests decoding of the check response.
func TestCheckAuth(t *testing.T) {
	_, srv := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"authenticated": false})
	})
	st, err := backend.NewClient(srv.URL).WithJar(backend.NewJar()).CheckAuth(context.Background())
	if err != nil || st.Authenticated {
		t.Fatalf("CheckAuth() = %+v, %v", st, err)
	}
}

func validForm() registration.Form {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	f := registration.Form{
		StudentName:    "Riya",
		StudentClass:   "8",
		SchoolName:     "GVS",
		StudentContact: "123",
		StudentEmail:   "riya@example.com",
		ParentName:     "Anil",
		ParentContact:  "456",
		TransactionID:  "TX1",
		Competitions:   []string{"Chess Tournament"},
		Uploads: registration.Uploads{
			PaymentScreenshot: registration.NewUpload("pay.png", int64(len(png)), png),
		},
	}
	f.Normalize()
	return f
}
