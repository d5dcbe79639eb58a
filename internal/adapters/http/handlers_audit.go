package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"skykeen/internal/application/projections"
	auditDomain "skykeen/internal/domain/audit"
)

// handleAuditTrail renders recent admin actions (GET /dashboard/audit).
// PRE: authenticated admin session
// POST: renders events newest first, optionally filtered by action, actor or registration
func (a *app) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if a.deps.Audit == nil {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	query := projections.GetAuditTrailQuery{
		Action:     auditDomain.Action(q.Get("action")),
		ActorEmail: q.Get("actor"),
		ResourceID: q.Get("registration"),
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		query.Limit = l
	}

	result, err := projections.QueryGetAuditTrail(r.Context(), query, projections.GetAuditTrailDeps{Audit: a.deps.Audit})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, http.StatusOK, "audit_trail.html", map[string]any{
		"Title":   "Audit trail",
		"Events":  result.Events,
		"Query":   query,
		"Actions": []auditDomain.Action{auditDomain.ActionLogin, auditDomain.ActionLogout, auditDomain.ActionVerify, auditDomain.ActionDelete},
	})
}

// handlePerf returns timing percentiles and the slowest routes of the last hour (GET /dashboard/perf?window=).
func (a *app) handlePerf(w http.ResponseWriter, r *http.Request) {
	if a.deps.Collector == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	window := time.Hour
	if d, err := time.ParseDuration(r.URL.Query().Get("window")); err == nil && d > 0 {
		window = d
	}
	_ = json.NewEncoder(w).Encode(a.deps.Collector.Snapshot(time.Now().Add(-window), 10))
}
