package projections

import (
	"context"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/domain/registration"
)

// GetRegistrationListQuery carries query parameters.
type GetRegistrationListQuery struct {
	Sort registration.SortState
	// PendingOnly asks the backend for unverified records only.
	PendingOnly bool
}

// GetRegistrationListResult carries the query result.
type GetRegistrationListResult struct {
	Registrations []registration.Registration
	Sort          registration.SortState
	Total         int
	Verified      int
	Pending       int
}

// Empty reports whether there is nothing to show.
func (r GetRegistrationListResult) Empty() bool {
	return len(r.Registrations) == 0
}

// GetRegistrationListDeps holds dependencies for GetRegistrationList.
type GetRegistrationListDeps struct {
	Backend RegistrationReader
}

// QueryGetRegistrationList fetches registrations and orders them for display.
// PRE: Sort.Key is empty or one of registration.SortableKeys
// POST: Registrations is a sorted copy of the backend list
// INVARIANT: Verified + Pending == Total
func QueryGetRegistrationList(ctx context.Context, query GetRegistrationListQuery, deps GetRegistrationListDeps) (GetRegistrationListResult, error) {
	var filter backend.ListFilter
	if query.PendingOnly {
		pending := false
		filter.PaymentVerified = &pending
	}

	list, err := deps.Backend.ListRegistrations(ctx, filter)
	if err != nil {
		return GetRegistrationListResult{}, err
	}

	result := GetRegistrationListResult{
		Registrations: registration.SortRegistrations(list, query.Sort),
		Sort:          query.Sort,
		Total:         len(list),
	}
	for _, r := range list {
		if r.PaymentVerified {
			result.Verified++
		} else {
			result.Pending++
		}
	}
	return result, nil
}
