package projections

import (
	"context"

	auditStore "skykeen/internal/adapters/storage/audit"
	domainAudit "skykeen/internal/domain/audit"
)

// DefaultAuditLimit caps the audit page.
const DefaultAuditLimit = 200

// GetAuditTrailQuery carries query parameters.
type GetAuditTrailQuery struct {
	Action     domainAudit.Action
	ActorEmail string
	ResourceID string
	Limit      int
}

// GetAuditTrailResult carries the query result.
type GetAuditTrailResult struct {
	Events []domainAudit.Event
}

// GetAuditTrailDeps holds dependencies for GetAuditTrail.
type GetAuditTrailDeps struct {
	Audit AuditReader
}

// QueryGetAuditTrail lists recent admin actions, newest first.
func QueryGetAuditTrail(ctx context.Context, query GetAuditTrailQuery, deps GetAuditTrailDeps) (GetAuditTrailResult, error) {
	limit := query.Limit
	if limit <= 0 || limit > DefaultAuditLimit {
		limit = DefaultAuditLimit
	}
	events, err := deps.Audit.List(ctx, auditStore.Filter{
		Action:     query.Action,
		ActorEmail: query.ActorEmail,
		ResourceID: query.ResourceID,
	}, limit)
	if err != nil {
		return GetAuditTrailResult{}, err
	}
	return GetAuditTrailResult{Events: events}, nil
}
