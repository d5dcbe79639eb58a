package projections

import (
	"context"

	"skykeen/internal/adapters/backend"
	auditStore "skykeen/internal/adapters/storage/audit"
	domainAudit "skykeen/internal/domain/audit"
	"skykeen/internal/domain/registration"
)

// RegistrationReader reads registrations from the backend.
type RegistrationReader interface {
	ListRegistrations(ctx context.Context, f backend.ListFilter) ([]registration.Registration, error)
	GetRegistration(ctx context.Context, id int) (registration.Registration, error)
}

// AuditReader lists recorded admin actions.
type AuditReader interface {
	List(ctx context.Context, filter auditStore.Filter, limit int) ([]domainAudit.Event, error)
}
