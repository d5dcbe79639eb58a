package web

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/application/listutil"
	"skykeen/internal/application/orchestrators"
	"skykeen/internal/application/projections"
	"skykeen/internal/domain/registration"
)

// Fallback messages when the backend gives none.
const (
	listFailedMessage   = "Failed to fetch registrations"
	detailFailedMessage = "Failed to fetch registration details"
	verifyFailedMessage = "Failed to verify payment"
	deleteFailedMessage = "Failed to delete registration"
)

func sortableColumns() []string {
	cols := make([]string, len(registration.SortableKeys))
	for i, k := range registration.SortableKeys {
		cols[i] = string(k)
	}
	return cols
}

func sortState(sp listutil.SortParams) registration.SortState {
	if sp.Sort == "" {
		return registration.SortState{}
	}
	return registration.SortState{Key: registration.SortKey(sp.Sort), Dir: registration.SortDir(sp.Dir)}
}

func sortParams(s registration.SortState) listutil.SortParams {
	return listutil.SortParams{Sort: string(s.Key), Dir: string(s.Dir)}
}

// dashboardView holds what the dashboard template needs besides the list.
type dashboardView struct {
	Error   string
	Detail  *projections.GetRegistrationDetailResult
	Notes   string
	Confirm string
}

// renderDashboard refetches the list and renders it with view on top.
// A 401/403 from the backend ends the session instead.
func (a *app) renderDashboard(w http.ResponseWriter, r *http.Request, status int, view dashboardView) {
	client, _ := a.backendFor(r)
	sp := listutil.ParseSortParams(r.URL.Query(), sortableColumns())
	state := sortState(sp)

	data := map[string]any{
		"Title":    "Registrations",
		"Sort":     state,
		"SortURL":  sp.URL("/dashboard"),
		"SortQS":   template.URL(sp.Encode()),
		"Columns":  registration.SortableKeys,
		"Error":    view.Error,
		"Detail":   view.Detail,
		"Notes":    view.Notes,
		"Confirm":  view.Confirm,
		"Loaded":   false,
		"Verified": 0,
		"Pending":  0,
	}

	list, err := projections.QueryGetRegistrationList(r.Context(), projections.GetRegistrationListQuery{Sort: state}, projections.GetRegistrationListDeps{Backend: client})
	if err != nil {
		if backend.IsUnauthorized(err) {
			a.endSession(w, r)
			return
		}
		slog.Warn("registration_event", "event", "list_failed", "error", err.Error())
		if view.Error == "" {
			data["Error"] = backend.UserMessage(err, listFailedMessage)
		}
		if status == http.StatusOK {
			status = errorStatus(err)
		}
	} else {
		data["Loaded"] = true
		data["Registrations"] = list.Registrations
		data["Total"] = list.Total
		data["Verified"] = list.Verified
		data["Pending"] = list.Pending
	}
	renderTemplate(w, r, status, "dashboard.html", data)
}

// handleDashboard renders the registration table (GET /dashboard).
func (a *app) handleDashboard(w http.ResponseWriter, r *http.Request) {
	a.renderDashboard(w, r, http.StatusOK, dashboardView{})
}

// handleRegistrationDetail renders the dashboard with the details modal open (GET /dashboard/registrations/{id}).
func (a *app) handleRegistrationDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := registrationID(w, r)
	if !ok {
		return
	}
	client, _ := a.backendFor(r)
	detail, err := projections.QueryGetRegistrationDetail(r.Context(), projections.GetRegistrationDetailQuery{ID: id}, projections.GetRegistrationDetailDeps{Backend: client})
	if err != nil {
		if backend.IsUnauthorized(err) {
			a.endSession(w, r)
			return
		}
		a.renderDashboard(w, r, errorStatus(err), dashboardView{Error: backend.UserMessage(err, detailFailedMessage)})
		return
	}
	a.renderDashboard(w, r, http.StatusOK, dashboardView{Detail: &detail, Notes: detail.Registration.Notes})
}

// handleVerify marks a registration's payment verified (POST /dashboard/registrations/{id}/verify).
// PRE: form field notes (may be empty)
// POST: success redirects to /dashboard; failure re-renders the modal with the edited notes
func (a *app) handleVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := registrationID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	notes := r.PostFormValue("notes")
	client, sess := a.backendFor(r)

	_, err := orchestrators.ExecuteVerifyPayment(r.Context(), orchestrators.VerifyPaymentInput{
		ID:    id,
		Notes: notes,
		Actor: actorFrom(r, sess),
	}, orchestrators.VerifyPaymentDeps{Backend: client, Audit: a.deps.Audit})
	switch {
	case err == nil, errors.Is(err, registration.ErrAlreadyVerified):
		http.Redirect(w, r, returnURL(r), http.StatusSeeOther)
		return
	case backend.IsUnauthorized(err):
		a.endSession(w, r)
		return
	}

	view := dashboardView{Error: backend.UserMessage(err, verifyFailedMessage), Notes: notes}
	if detail, derr := projections.QueryGetRegistrationDetail(r.Context(), projections.GetRegistrationDetailQuery{ID: id}, projections.GetRegistrationDetailDeps{Backend: client}); derr == nil {
		view.Detail = &detail
	}
	a.renderDashboard(w, r, errorStatus(err), view)
}

// handleDeleteConfirm asks for confirmation before a delete (GET /dashboard/registrations/{id}/delete).
func (a *app) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := registrationID(w, r)
	if !ok {
		return
	}
	renderTemplate(w, r, http.StatusOK, "confirm_delete.html", map[string]any{
		"Title":  "Delete registration",
		"ID":     id,
		"Prompt": orchestrators.DeleteConfirmationPrompt,
		"Return": returnURL(r),
		"SortQS": template.URL(listutil.ParseSortParams(r.URL.Query(), sortableColumns()).Encode()),
	})
}

// handleDelete deletes a registration after confirmation (POST /dashboard/registrations/{id}/delete).
// PRE: form field confirm=yes
// POST: success redirects to the refetched list; failure shows the list with an error banner
func (a *app) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := registrationID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	client, sess := a.backendFor(r)

	err := orchestrators.ExecuteDeleteRegistration(r.Context(), orchestrators.DeleteRegistrationInput{
		ID:        id,
		Confirmed: r.PostFormValue("confirm") == "yes",
		Actor:     actorFrom(r, sess),
	}, orchestrators.DeleteRegistrationDeps{Backend: client, Audit: a.deps.Audit})
	switch {
	case err == nil:
		http.Redirect(w, r, returnURL(r), http.StatusSeeOther)
		return
	case errors.Is(err, orchestrators.ErrNotConfirmed):
		a.handleDeleteConfirm(w, r)
		return
	case backend.IsUnauthorized(err):
		a.endSession(w, r)
		return
	}
	a.renderDashboard(w, r, errorStatus(err), dashboardView{Error: backend.UserMessage(err, deleteFailedMessage)})
}

// registrationID parses the {id} path value, writing 404 when it is not a positive integer.
func registrationID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

// returnURL is the dashboard URL carrying the current sort, so actions keep the table order.
func returnURL(r *http.Request) string {
	return listutil.ParseSortParams(r.URL.Query(), sortableColumns()).URL("/dashboard")
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, backend.ErrUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
