package registration

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrAlreadyVerified = errors.New("payment is already verified")
)

// Registration is one event sign-up as stored by the registration backend.
// The backend assigns ID and CreatedAt; both are immutable afterwards.
type Registration struct {
	ID int `json:"id"`

	StudentName    string `json:"student_name"`
	StudentClass   string `json:"student_class"`
	SchoolName     string `json:"school_name"`
	StudentContact string `json:"student_contact"`
	StudentEmail   string `json:"student_email"`

	Sibling1Name   string `json:"sibling1_name"`
	Sibling1School string `json:"sibling1_school"`
	Sibling1Class  string `json:"sibling1_class"`
	Sibling2Name   string `json:"sibling2_name"`
	Sibling2School string `json:"sibling2_school"`
	Sibling2Class  string `json:"sibling2_class"`

	ParentName      string `json:"parent_name"`
	ParentContact   string `json:"parent_contact"`
	ParentSignature string `json:"parent_signature"` // image URL, empty when not uploaded

	Competitions []string `json:"competitions"`
	Workshops    []string `json:"workshops"`

	PaymentMode       string `json:"payment_mode"`
	TransactionID     string `json:"transaction_id"`
	PaymentScreenshot string `json:"payment_screenshot"` // image URL
	PaymentVerified   bool   `json:"payment_verified"`
	Notes             string `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
}

// Sibling is one optional sibling group of a registration.
type Sibling struct {
	Name   string
	School string
	Class  string
}

// Siblings returns the sibling groups that carry a name.
// A sibling group without a name is not shown, whatever its other fields hold.
func (r Registration) Siblings() []Sibling {
	var out []Sibling
	if strings.TrimSpace(r.Sibling1Name) != "" {
		out = append(out, Sibling{Name: r.Sibling1Name, School: r.Sibling1School, Class: r.Sibling1Class})
	}
	if strings.TrimSpace(r.Sibling2Name) != "" {
		out = append(out, Sibling{Name: r.Sibling2Name, School: r.Sibling2School, Class: r.Sibling2Class})
	}
	return out
}

// HasSiblings reports whether any sibling group is present.
func (r Registration) HasSiblings() bool {
	return len(r.Siblings()) > 0
}

// CanVerify reports whether the "mark payment verified" action is available.
// INVARIANT: PaymentVerified only moves false -> true
func (r Registration) CanVerify() bool {
	return !r.PaymentVerified
}

// MarkVerified flips the payment flag and replaces the admin notes.
// PRE: payment is not yet verified
// POST: PaymentVerified is true, Notes updated
func (r *Registration) MarkVerified(notes string) error {
	if r.PaymentVerified {
		return ErrAlreadyVerified
	}
	r.PaymentVerified = true
	r.Notes = notes
	return nil
}
