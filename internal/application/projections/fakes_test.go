package projections

import (
	"context"
	"errors"

	"skykeen/internal/adapters/backend"
	auditStore "skykeen/internal/adapters/storage/audit"
	domainAudit "skykeen/internal/domain/audit"
	"skykeen/internal/domain/registration"
)

// fakeReader implements RegistrationReader for testing.
type fakeReader struct {
	list       []registration.Registration
	err        error
	lastFilter backend.ListFilter
}

func (f *fakeReader) ListRegistrations(_ context.Context, filter backend.ListFilter) ([]registration.Registration, error) {
	f.lastFilter = filter
	return f.list, f.err
}

func (f *fakeReader) GetRegistration(_ context.Context, id int) (registration.Registration, error) {
	if f.err != nil {
		return registration.Registration{}, f.err
	}
	for _, r := range f.list {
		if r.ID == id {
			return r, nil
		}
	}
	return registration.Registration{}, &backend.APIError{Status: 404, Message: "Not found."}
}

// fakeAuditReader implements AuditReader for testing.
type fakeAuditReader struct {
	events     []domainAudit.Event
	lastFilter auditStore.Filter
	lastLimit  int
}

func (f *fakeAuditReader) List(_ context.Context, filter auditStore.Filter, limit int) ([]domainAudit.Event, error) {
	f.lastFilter = filter
	f.lastLimit = limit
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	return f.events, nil
}
