package orchestrators

import (
	"context"
	"sync"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/domain/audit"
	"skykeen/internal/domain/registration"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func validForm() registration.Form {
	return registration.Form{
		StudentName:    "Riya Sharma",
		StudentClass:   "8",
		SchoolName:     "Green Valley School",
		StudentContact: "9876543210",
		StudentEmail:   "riya@example.com",
		ParentName:     "Anil Sharma",
		ParentContact:  "9876500000",
		TransactionID:  "TXN123",
		Competitions:   []string{"Academic Quiz"},
		Uploads: registration.Uploads{
			PaymentScreenshot: registration.NewUpload("pay.png", int64(len(pngBytes)), pngBytes),
		},
	}
}

// fakeBackend implements every backend port used by the orchestrators.
type fakeBackend struct {
	records map[int]registration.Registration

	loginResult backend.LoginResult
	err         error

	creates  []*backend.Payload
	verifies []int
	deletes  []int
	logouts  int
}

func newFakeBackend(records ...registration.Registration) *fakeBackend {
	f := &fakeBackend{records: make(map[int]registration.Registration)}
	for _, r := range records {
		f.records[r.ID] = r
	}
	return f
}

func (f *fakeBackend) Login(_ context.Context, _, _ string) (backend.LoginResult, error) {
	return f.loginResult, f.err
}

func (f *fakeBackend) Logout(_ context.Context) error {
	f.logouts++
	return f.err
}

func (f *fakeBackend) CreateRegistration(_ context.Context, p *backend.Payload) (registration.Registration, error) {
	if f.err != nil {
		return registration.Registration{}, f.err
	}
	f.creates = append(f.creates, p)
	return registration.Registration{ID: 100 + len(f.creates)}, nil
}

func (f *fakeBackend) GetRegistration(_ context.Context, id int) (registration.Registration, error) {
	r, ok := f.records[id]
	if !ok {
		return registration.Registration{}, &backend.APIError{Status: 404, Message: "Not found."}
	}
	return r, nil
}

func (f *fakeBackend) VerifyPayment(_ context.Context, id int, verified bool, notes string) (registration.Registration, error) {
	if f.err != nil {
		return registration.Registration{}, f.err
	}
	f.verifies = append(f.verifies, id)
	r := f.records[id]
	r.PaymentVerified = verified
	r.Notes = notes
	f.records[id] = r
	return r, nil
}

func (f *fakeBackend) DeleteRegistration(_ context.Context, id int) error {
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, id)
	delete(f.records, id)
	return nil
}

// memAudit implements AuditRecorder in memory.
type memAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memAudit) Save(_ context.Context, e audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}
