package web

import (
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"skykeen/internal/domain/registration"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "secret"
)

// fakeAPI is an in-memory stand-in for the registration REST backend.
// It issues sessionid and csrftoken cookies and enforces X-CSRFToken on
// unsafe admin calls.
type fakeAPI struct {
	mu       sync.Mutex
	records  map[int]registration.Registration
	nextID   int
	sessions map[string]bool
	creates  int
	failOps  map[string]int
}

func newFakeAPI(t *testing.T, records ...registration.Registration) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		records:  make(map[int]registration.Registration),
		nextID:   100,
		sessions: make(map[string]bool),
		failOps:  make(map[string]int),
	}
	for _, r := range records {
		f.records[r.ID] = r
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) revokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = make(map[string]bool)
}

// failNext makes the next call to op ("verify", "delete", "list", "create") fail with status.
func (f *fakeAPI) failNext(op string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOps[op] = status
}

func (f *fakeAPI) get(id int) (registration.Registration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	return r, ok
}

func apiJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) authed(r *http.Request) bool {
	ck, err := r.Cookie("sessionid")
	return err == nil && f.sessions[ck.Value]
}

func (f *fakeAPI) csrfOK(r *http.Request) bool {
	ck, err := r.Cookie("csrftoken")
	return err == nil && ck.Value != "" && r.Header.Get("X-CSRFToken") == ck.Value
}

func (f *fakeAPI) takeFailure(op string) int {
	status := f.failOps[op]
	delete(f.failOps, op)
	return status
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/api/admin/login/" && r.Method == http.MethodPost:
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email != testAdminEmail || body.Password != testAdminPassword {
			apiJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		sid := "sid-" + strconv.Itoa(len(f.sessions)+1)
		f.sessions[sid] = true
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: sid, Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-" + sid, Path: "/"})
		apiJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Login successful",
			"user": map[string]any{"id": 1, "email": testAdminEmail, "username": "admin"}})

	case path == "/api/admin/logout/" && r.Method == http.MethodPost:
		if ck, err := r.Cookie("sessionid"); err == nil {
			delete(f.sessions, ck.Value)
		}
		apiJSON(w, http.StatusOK, map[string]any{"success": true})

	case path == "/api/admin/check/":
		apiJSON(w, http.StatusOK, map[string]any{"authenticated": f.authed(r)})

	case path == "/api/registrations/" && r.Method == http.MethodPost:
		if status := f.takeFailure("create"); status != 0 {
			apiJSON(w, status, map[string][]string{"transaction_id": {"registration with this transaction id already exists."}})
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			apiJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		f.creates++
		f.nextID++
		rec := registration.Registration{
			ID:              f.nextID,
			StudentName:     r.FormValue("student_name"),
			TransactionID:   r.FormValue("transaction_id"),
			PaymentMode:     r.FormValue("payment_mode"),
			PaymentVerified: false,
			CreatedAt:       time.Now().UTC(),
		}
		_ = json.Unmarshal([]byte(r.FormValue("competitions")), &rec.Competitions)
		_ = json.Unmarshal([]byte(r.FormValue("workshops")), &rec.Workshops)
		f.records[rec.ID] = rec
		apiJSON(w, http.StatusCreated, rec)

	case path == "/api/registrations/" && r.Method == http.MethodGet:
		if !f.authed(r) {
			apiJSON(w, http.StatusForbidden, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		if status := f.takeFailure("list"); status != 0 {
			apiJSON(w, status, map[string]string{"detail": "list exploded"})
			return
		}
		ids := slices.Sorted(maps.Keys(f.records))
		list := make([]registration.Registration, 0, len(ids))
		for _, id := range ids {
			list = append(list, f.records[id])
		}
		apiJSON(w, http.StatusOK, list)

	case strings.HasPrefix(path, "/api/registrations/"):
		f.serveRecord(w, r, strings.Trim(strings.TrimPrefix(path, "/api/registrations/"), "/"))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) serveRecord(w http.ResponseWriter, r *http.Request, rest string) {
	if !f.authed(r) {
		apiJSON(w, http.StatusForbidden, map[string]string{"detail": "Authentication credentials were not provided."})
		return
	}
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.Atoi(idPart)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	rec, ok := f.records[id]
	if !ok {
		apiJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if r.Method != http.MethodGet && !f.csrfOK(r) {
		apiJSON(w, http.StatusForbidden, map[string]string{"detail": "CSRF Failed: CSRF token missing."})
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		apiJSON(w, http.StatusOK, rec)
	case action == "" && r.Method == http.MethodDelete:
		if status := f.takeFailure("delete"); status != 0 {
			apiJSON(w, status, map[string]string{"error": "Delete not allowed right now"})
			return
		}
		delete(f.records, id)
		w.WriteHeader(http.StatusNoContent)
	case action == "verify" && r.Method == http.MethodPatch:
		if status := f.takeFailure("verify"); status != 0 {
			apiJSON(w, status, map[string]string{"error": "Verification service busy"})
			return
		}
		var body struct {
			PaymentVerified bool   `json:"payment_verified"`
			Notes           string `json:"notes"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		rec.PaymentVerified = body.PaymentVerified
		rec.Notes = body.Notes
		f.records[id] = rec
		apiJSON(w, http.StatusOK, rec)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeAPI) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}
