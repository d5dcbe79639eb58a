package audit

import (
	"context"

	domain "skykeen/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	// PRE: event has an ID
	Save(ctx context.Context, event domain.Event) error

	// List returns events matching filter, newest first.
	// PRE: limit > 0
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Action     domain.Action
	ActorEmail string
	ResourceID string
}

var _ Store = (*SQLiteStore)(nil)
