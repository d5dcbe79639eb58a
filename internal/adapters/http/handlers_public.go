package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"skykeen/internal/adapters/backend"
	"skykeen/internal/application/orchestrators"
	"skykeen/internal/domain/registration"
)

// registrationFailedMessage is shown when a submission fails for an unexpected reason.
const registrationFailedMessage = "Registration failed. Please try again."

// uploadsTooLargeMessage is shown when the request body exceeds maxRequestBody.
const uploadsTooLargeMessage = "Uploads must be less than 10MB each"

// homeData is the view model of the marketing page and its form.
func homeData(form registration.Form) map[string]any {
	return map[string]any{
		"Title":        "SkyKeen Events",
		"Form":         form,
		"Competitions": registration.Competitions,
		"Workshops":    registration.Workshops,
		"PaymentModes": registration.PaymentModes,
		"MaxUploadMB":  registration.MaxUploadBytes >> 20,
		"AcceptTypes":  "image/jpeg,image/png,image/webp",
	}
}

// handleHome renders the marketing page with an empty registration form (GET /).
func (a *app) handleHome(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, http.StatusOK, "home.html", homeData(registration.Form{}))
}

// handleRegister submits the registration form (POST /register).
// PRE: multipart/form-data body within maxRequestBody
// POST: success resets the form; failures re-render it with the entered values
func (a *app) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxRequestBody); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			a.handleTooLarge(w, r)
			return
		}
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	form := bindRegistrationForm(r)
	var err error
	if form.Uploads.PaymentScreenshot, err = readUpload(r, registration.FieldPaymentScreenshot); err != nil {
		internalError(w, err)
		return
	}
	if form.Uploads.ParentSignature, err = readUpload(r, registration.FieldParentSignature); err != nil {
		internalError(w, err)
		return
	}

	_, err = orchestrators.ExecuteSubmitRegistration(r.Context(), orchestrators.SubmitRegistrationInput{Form: form}, orchestrators.SubmitRegistrationDeps{
		Backend:  a.deps.Backend,
		Mailer:   a.deps.Mailer,
		MailFrom: a.deps.MailFrom,
		ReplyTo:  a.deps.ReplyTo,
	})
	if err != nil {
		status, msg := submitErrorMessage(err)
		form.Normalize()
		renderRegisterError(w, r, status, form, msg)
		return
	}

	form.Reset()
	data := homeData(form)
	data["Success"] = orchestrators.SubmitSuccessMessage
	renderTemplate(w, r, http.StatusOK, "home.html", data)
}

// handleTooLarge re-renders an empty form with the size error. The body was
// cut off, so none of the entered values can be recovered.
func (a *app) handleTooLarge(w http.ResponseWriter, r *http.Request) {
	renderRegisterError(w, r, http.StatusRequestEntityTooLarge, registration.Form{}, uploadsTooLargeMessage)
}

func renderRegisterError(w http.ResponseWriter, r *http.Request, status int, form registration.Form, msg string) {
	// File inputs cannot be refilled by the server; the user selects them again.
	form.Uploads = registration.Uploads{}
	data := homeData(form)
	data["Error"] = msg
	renderTemplate(w, r, status, "home.html", data)
}

// submitErrorMessage maps a submission error to a status and the message shown above the form.
func submitErrorMessage(err error) (int, string) {
	var fieldErrs registration.FieldErrors
	var uploadErr *registration.UploadError
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &uploadErr):
		return http.StatusUnprocessableEntity, uploadErr.Message
	case errors.As(err, &fieldErrs):
		return http.StatusUnprocessableEntity, fieldErrs.Error()
	case errors.Is(err, backend.ErrUnreachable):
		return http.StatusBadGateway, backend.ConnectivityMessage
	case errors.As(err, &apiErr):
		return http.StatusUnprocessableEntity, apiErr.Message
	}
	return http.StatusInternalServerError, registrationFailedMessage
}

func bindRegistrationForm(r *http.Request) registration.Form {
	return registration.Form{
		StudentName:    r.FormValue("student_name"),
		StudentClass:   r.FormValue("student_class"),
		SchoolName:     r.FormValue("school_name"),
		StudentContact: r.FormValue("student_contact"),
		StudentEmail:   r.FormValue("student_email"),
		Sibling1Name:   r.FormValue("sibling1_name"),
		Sibling1School: r.FormValue("sibling1_school"),
		Sibling1Class:  r.FormValue("sibling1_class"),
		Sibling2Name:   r.FormValue("sibling2_name"),
		Sibling2School: r.FormValue("sibling2_school"),
		Sibling2Class:  r.FormValue("sibling2_class"),
		ParentName:     r.FormValue("parent_name"),
		ParentContact:  r.FormValue("parent_contact"),
		Competitions:   r.PostForm["competitions"],
		Workshops:      r.PostForm["workshops"],
		PaymentMode:    r.FormValue("payment_mode"),
		TransactionID:  r.FormValue("transaction_id"),
	}
}

// readUpload returns the file posted under field, or nil when none was selected.
// Oversized files are not read; their size alone fails validation.
func readUpload(r *http.Request, field string) (*registration.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", field, err)
	}
	defer file.Close()

	if header.Size == 0 && header.Filename == "" {
		return nil, nil
	}
	if header.Size > registration.MaxUploadBytes {
		return registration.NewUpload(header.Filename, header.Size, nil), nil
	}
	data, err := io.ReadAll(io.LimitReader(file, registration.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", field, err)
	}
	return registration.NewUpload(header.Filename, int64(len(data)), data), nil
}
