package projections

import (
	"context"
	"fmt"
	"strings"

	"skykeen/internal/domain/registration"
)

// GetRegistrationDetailQuery carries query parameters.
type GetRegistrationDetailQuery struct {
	ID int
}

// Field is one labelled value in the details modal.
type Field struct {
	Label string
	Value string
}

// Section groups fields under a heading.
type Section struct {
	Title  string
	Fields []Field
}

// GetRegistrationDetailResult carries the query result.
type GetRegistrationDetailResult struct {
	Registration registration.Registration
	Sections     []Section
	Siblings     []registration.Sibling
	Competitions []string
	Workshops    []string
}

// GetRegistrationDetailDeps holds dependencies for GetRegistrationDetail.
type GetRegistrationDetailDeps struct {
	Backend RegistrationReader
}

// QueryGetRegistrationDetail loads one registration and shapes it for the modal.
// PRE: ID > 0
// POST: Siblings is empty unless at least one sibling name is present
func QueryGetRegistrationDetail(ctx context.Context, query GetRegistrationDetailQuery, deps GetRegistrationDetailDeps) (GetRegistrationDetailResult, error) {
	r, err := deps.Backend.GetRegistration(ctx, query.ID)
	if err != nil {
		return GetRegistrationDetailResult{}, fmt.Errorf("get registration %d: %w", query.ID, err)
	}

	return GetRegistrationDetailResult{
		Registration: r,
		Sections:     detailSections(r),
		Siblings:     r.Siblings(),
		Competitions: displayLabels(r.Competitions),
		Workshops:    displayLabels(r.Workshops),
	}, nil
}

func detailSections(r registration.Registration) []Section {
	return []Section{
		{Title: "Student Information", Fields: []Field{
			{"Name", r.StudentName},
			{"Class", r.StudentClass},
			{"School", r.SchoolName},
			{"Contact", r.StudentContact},
			{"Email", r.StudentEmail},
		}},
		{Title: "Parent Information", Fields: []Field{
			{"Name", r.ParentName},
			{"Contact", r.ParentContact},
		}},
		{Title: "Payment Information", Fields: []Field{
			{"Mode", r.PaymentMode},
			{"Transaction ID", r.TransactionID},
			{"Registered", r.CreatedAt.Format("2 Jan 2006, 15:04")},
		}},
	}
}

func displayLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, registration.DisplayLabel(l))
	}
	return out
}
