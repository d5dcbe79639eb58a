package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"skykeen/internal/domain/registration"
)

// Payload is an encoded multipart registration body.
type Payload struct {
	ContentType string
	Body        []byte
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// NewRegistrationPayload encodes a validated form for CreateRegistration.
// PRE: form has been normalized and validated
// POST: sibling parts present only when non-empty; competitions and
// workshops are JSON arrays (never null); payment_mode defaults to Online
func NewRegistrationPayload(form registration.Form) (*Payload, error) {
	if form.Uploads.PaymentScreenshot == nil {
		return nil, registration.ErrScreenshotRequired
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	mode := form.PaymentMode
	if mode == "" {
		mode = registration.DefaultPaymentMode
	}
	fields := []struct {
		name, value string
		optional    bool
	}{
		{"student_name", form.StudentName, false},
		{"student_class", form.StudentClass, false},
		{"school_name", form.SchoolName, false},
		{"student_contact", form.StudentContact, false},
		{"student_email", form.StudentEmail, false},
		{"sibling1_name", form.Sibling1Name, true},
		{"sibling1_school", form.Sibling1School, true},
		{"sibling1_class", form.Sibling1Class, true},
		{"sibling2_name", form.Sibling2Name, true},
		{"sibling2_school", form.Sibling2School, true},
		{"sibling2_class", form.Sibling2Class, true},
		{"parent_name", form.ParentName, false},
		{"parent_contact", form.ParentContact, false},
		{"payment_mode", mode, false},
		{"transaction_id", form.TransactionID, false},
	}
	for _, f := range fields {
		if f.optional && f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	for _, sel := range []struct {
		name string
		list []string
	}{
		{"competitions", form.Competitions},
		{"workshops", form.Workshops},
	} {
		name, list := sel.name, sel.list
		if list == nil {
			list = []string{}
		}
		b, err := json.Marshal(list)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		if err := w.WriteField(name, string(b)); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}

	if err := writeFile(w, registration.FieldPaymentScreenshot, form.Uploads.PaymentScreenshot); err != nil {
		return nil, err
	}
	if sig := form.Uploads.ParentSignature; sig != nil {
		if err := writeFile(w, registration.FieldParentSignature, sig); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return &Payload{ContentType: w.FormDataContentType(), Body: buf.Bytes()}, nil
}

func writeFile(w *multipart.Writer, field string, u *registration.Upload) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(u.Filename)))
	h.Set("Content-Type", u.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", field, err)
	}
	if _, err := part.Write(u.Data); err != nil {
		return fmt.Errorf("write part %s: %w", field, err)
	}
	return nil
}
