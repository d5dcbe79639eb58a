package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"skykeen/internal/application/projections"
	"skykeen/internal/domain/registration"
)

const timeLayout = "2 Jan 2006, 15:04"

var (
	verifiedColor = color.New(color.FgGreen)
	pendingColor  = color.New(color.FgYellow)
	headingColor  = color.New(color.FgCyan, color.Bold)
)

func renderList(w io.Writer, res projections.GetRegistrationListResult) {
	if res.Empty() {
		pendingColor.Fprintln(w, "No registrations found.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Student", "Class", "School", "Transaction", "Payment", "Registered"})
	table.SetAutoWrapText(false)
	for _, r := range res.Registrations {
		table.Append([]string{
			strconv.Itoa(r.ID),
			r.StudentName,
			r.StudentClass,
			r.SchoolName,
			r.TransactionID,
			paymentStatus(r),
			r.CreatedAt.Local().Format(timeLayout),
		})
	}
	table.Render()

	fmt.Fprintf(w, "%d total · %s · %s\n",
		res.Total,
		verifiedColor.Sprintf("%d verified", res.Verified),
		pendingColor.Sprintf("%d pending", res.Pending),
	)
}

func paymentStatus(r registration.Registration) string {
	if r.PaymentVerified {
		return verifiedColor.Sprint("verified")
	}
	return pendingColor.Sprint("pending")
}

func renderDetail(w io.Writer, res projections.GetRegistrationDetailResult) {
	r := res.Registration
	headingColor.Fprintf(w, "Registration #%d: %s\n", r.ID, r.StudentName)

	for _, sec := range res.Sections {
		fmt.Fprintln(w)
		headingColor.Fprintln(w, sec.Title)
		for _, f := range sec.Fields {
			fmt.Fprintf(w, "  %-20s %s\n", f.Label+":", orDash(f.Value))
		}
	}

	if len(res.Siblings) > 0 {
		fmt.Fprintln(w)
		headingColor.Fprintln(w, "Siblings")
		for _, s := range res.Siblings {
			fmt.Fprintf(w, "  %s (%s, class %s)\n", s.Name, orDash(s.School), orDash(s.Class))
		}
	}

	fmt.Fprintln(w)
	headingColor.Fprintln(w, "Events")
	fmt.Fprintf(w, "  %-20s %s\n", "Competitions:", orDash(strings.Join(res.Competitions, ", ")))
	fmt.Fprintf(w, "  %-20s %s\n", "Workshops:", orDash(strings.Join(res.Workshops, ", ")))

	fmt.Fprintln(w)
	headingColor.Fprintln(w, "Verification")
	fmt.Fprintf(w, "  %-20s %s\n", "Status:", paymentStatus(r))
	fmt.Fprintf(w, "  %-20s %s\n", "Screenshot:", orDash(r.PaymentScreenshot))
	fmt.Fprintf(w, "  %-20s %s\n", "Signature:", orDash(r.ParentSignature))
	if r.Notes != "" {
		fmt.Fprintf(w, "  %-20s %s\n", "Notes:", r.Notes)
	}
}

func success(w io.Writer, format string, args ...any) {
	verifiedColor.Fprintf(w, format+"\n", args...)
}

func notice(w io.Writer, format string, args ...any) {
	pendingColor.Fprintf(w, format+"\n", args...)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
