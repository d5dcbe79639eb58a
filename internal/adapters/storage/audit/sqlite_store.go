package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"skykeen/internal/adapters/storage"
	domain "skykeen/internal/domain/audit"
)

const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectColumns = `SELECT id, timestamp, category, action, severity, actor_id, actor_email, resource_id, resource_type, description, ip_address, user_agent, metadata FROM audit_event`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (id, timestamp, category, action, severity, actor_id, actor_email, resource_id, resource_type, description, ip_address, user_agent, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(dateLayout), string(e.Category), string(e.Action),
		string(e.Severity), e.ActorID, e.ActorEmail, e.ResourceID, e.ResourceType,
		e.Description, e.IPAddress, e.UserAgent, e.Metadata)
	if err != nil {
		return fmt.Errorf("save audit event %s: %w", e.ID, err)
	}
	return nil
}

// List returns events matching filter ordered by timestamp desc.
func (s *SQLiteStore) List(ctx context.Context, f Filter, limit int) ([]domain.Event, error) {
	query := selectColumns + ` WHERE 1=1`
	var args []any
	if f.Action != "" {
		query += " AND action = ?"
		args = append(args, string(f.Action))
	}
	if f.ActorEmail != "" {
		query += " AND actor_email = ?"
		args = append(args, f.ActorEmail)
	}
	if f.ResourceID != "" {
		query += " AND resource_id = ?"
		args = append(args, f.ResourceID)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (domain.Event, error) {
	var e domain.Event
	var ts string
	if err := rows.Scan(&e.ID, &ts, &e.Category, &e.Action, &e.Severity, &e.ActorID, &e.ActorEmail,
		&e.ResourceID, &e.ResourceType, &e.Description, &e.IPAddress, &e.UserAgent, &e.Metadata); err != nil {
		return domain.Event{}, fmt.Errorf("scan audit event: %w", err)
	}
	e.Timestamp, _ = time.Parse(dateLayout, ts)
	return e, nil
}
