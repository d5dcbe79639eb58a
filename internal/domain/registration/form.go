package registration

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form is the public registration form before submission.
// Field limits mirror the backend columns; browsers enforce presence natively
// and Validate re-checks the same rules on the server.
type Form struct {
	StudentName    string `form:"student_name" validate:"required,max=255"`
	StudentClass   string `form:"student_class" validate:"required,max=100"`
	SchoolName     string `form:"school_name" validate:"required,max=255"`
	StudentContact string `form:"student_contact" validate:"required,max=20"`
	StudentEmail   string `form:"student_email" validate:"required,email,max=254"`

	Sibling1Name   string `form:"sibling1_name" validate:"max=255"`
	Sibling1School string `form:"sibling1_school" validate:"max=255"`
	Sibling1Class  string `form:"sibling1_class" validate:"max=100"`
	Sibling2Name   string `form:"sibling2_name" validate:"max=255"`
	Sibling2School string `form:"sibling2_school" validate:"max=255"`
	Sibling2Class  string `form:"sibling2_class" validate:"max=100"`

	ParentName    string `form:"parent_name" validate:"required,max=255"`
	ParentContact string `form:"parent_contact" validate:"required,max=20"`

	Competitions []string `form:"competitions"`
	Workshops    []string `form:"workshops"`

	PaymentMode   string `form:"payment_mode" validate:"max=100"`
	TransactionID string `form:"transaction_id" validate:"required,max=255"`

	Uploads Uploads `form:"-" validate:"-"`
}

// Uploads holds the two independent file selections of the form.
type Uploads struct {
	PaymentScreenshot *Upload
	ParentSignature   *Upload
}

// Upload field names as sent to the backend.
const (
	FieldPaymentScreenshot = "payment_screenshot"
	FieldParentSignature   = "parent_signature"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldError is one field-level validation message.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors aggregates field messages into one "field: message; ..." string.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

// Normalize trims text fields and drops selections outside the option vocabularies.
// POST: Competitions and Workshops are non-nil
func (f *Form) Normalize() {
	for _, p := range []*string{
		&f.StudentName, &f.StudentClass, &f.SchoolName, &f.StudentContact, &f.StudentEmail,
		&f.Sibling1Name, &f.Sibling1School, &f.Sibling1Class,
		&f.Sibling2Name, &f.Sibling2School, &f.Sibling2Class,
		&f.ParentName, &f.ParentContact, &f.PaymentMode, &f.TransactionID,
	} {
		*p = strings.TrimSpace(*p)
	}
	f.Competitions = FilterSelections(f.Competitions, Competitions)
	f.Workshops = FilterSelections(f.Workshops, Workshops)
}

// Validate checks the form before anything is sent.
// Order: text fields, then each provided upload, then screenshot presence.
// PRE: Normalize has been called
// POST: returns FieldErrors, *UploadError, or nil
func (f *Form) Validate() error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate form: %w", err)
		}
		out := make(FieldErrors, 0, len(verrs))
		for _, ve := range verrs {
			out = append(out, FieldError{Field: ve.Field(), Message: fieldMessage(ve)})
		}
		return out
	}

	if sig := f.Uploads.ParentSignature; sig != nil {
		if err := sig.Validate(FieldParentSignature, "Parent signature"); err != nil {
			return err
		}
	}
	shot := f.Uploads.PaymentScreenshot
	if shot == nil {
		return &UploadError{
			Field:   FieldPaymentScreenshot,
			Message: "Please upload a payment screenshot",
			Err:     ErrScreenshotRequired,
		}
	}
	return shot.Validate(FieldPaymentScreenshot, "Payment screenshot")
}

// Reset returns the form and both upload states to their initial empty values.
func (f *Form) Reset() {
	*f = Form{}
}

// IsSelected reports whether label is among the chosen competitions or workshops.
func (f Form) IsSelected(label string) bool {
	for _, s := range f.Competitions {
		if s == label {
			return true
		}
	}
	for _, s := range f.Workshops {
		if s == label {
			return true
		}
	}
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	default:
		return "Invalid value."
	}
}
