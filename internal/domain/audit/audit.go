package audit

import (
	"time"

	"github.com/google/uuid"
)

// Category represents the type of audit event.
type Category string

const (
	CategoryAuth         Category = "auth"
	CategoryRegistration Category = "registration"
)

// Action represents the action that occurred.
type Action string

const (
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
	ActionVerify Action = "verify"
	ActionDelete Action = "delete"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// ResourceRegistration is the resource type of registration events.
const ResourceRegistration = "registration"

// Event is one admin action recorded on this server.
// The registration backend keeps its own records; events here only
// describe what was done through the dashboard.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ActorEmail   string    `json:"actor_email"`
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	Description  string    `json:"description"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	Metadata     string    `json:"metadata"`
}

// NewEvent creates a new audit event with the current timestamp.
// Delete actions default to warning severity.
// PRE: action is non-empty
// POST: Returns an Event with a fresh ID and the provided fields
func NewEvent(actorID, actorEmail string, category Category, action Action) Event {
	sev := SeverityInfo
	if action == ActionDelete {
		sev = SeverityWarning
	}
	return Event{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Category:   category,
		Action:     action,
		Severity:   sev,
		ActorID:    actorID,
		ActorEmail: actorEmail,
	}
}

// WithResource sets resource information.
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithRequest sets IP address and user agent from the HTTP request.
func (e Event) WithRequest(ipAddress, userAgent string) Event {
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}

// WithMetadata sets optional JSON metadata.
// PRE: metadata is valid JSON or empty
func (e Event) WithMetadata(metadata string) Event {
	e.Metadata = metadata
	return e
}

// Label renders the action for listings, e.g. "registration.delete".
func (e Event) Label() string {
	return string(e.Category) + "." + string(e.Action)
}
