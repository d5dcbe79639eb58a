package registration

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes is the largest accepted image upload (10 MB).
const MaxUploadBytes = 10 * 1024 * 1024

// AllowedImageTypes are the accepted upload content types.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Upload errors
var (
	ErrUploadTooLarge     = errors.New("upload exceeds size limit")
	ErrUploadType         = errors.New("upload type not allowed")
	ErrScreenshotRequired = errors.New("payment screenshot is required")
)

// Upload is one selected file on the form.
// Data is only populated for uploads within MaxUploadBytes.
type Upload struct {
	Filename    string
	ContentType string // sniffed from Data, not taken from the client
	Size        int64
	Data        []byte
}

// NewUpload builds an Upload from a file's bytes, sniffing its content type.
// PRE: data holds the whole file when size <= MaxUploadBytes
// POST: ContentType is the detected MIME type without parameters
func NewUpload(filename string, size int64, data []byte) *Upload {
	u := &Upload{Filename: filename, Size: size}
	if size <= MaxUploadBytes {
		u.Data = data
		mt := mimetype.Detect(data)
		u.ContentType = mt.String()
		for _, allowed := range AllowedImageTypes {
			if mt.Is(allowed) {
				u.ContentType = allowed
				break
			}
		}
	}
	return u
}

// UploadError reports why an upload was rejected.
type UploadError struct {
	Field   string
	Message string
	Err     error
}

func (e *UploadError) Error() string { return e.Message }

func (e *UploadError) Unwrap() error { return e.Err }

// Validate checks size and type of the upload. label names the upload in
// the message shown to the user (e.g. "Payment screenshot").
// PRE: u is non-nil
// POST: returns *UploadError wrapping ErrUploadTooLarge or ErrUploadType
func (u *Upload) Validate(field, label string) error {
	if u.Size > MaxUploadBytes {
		return &UploadError{
			Field:   field,
			Message: fmt.Sprintf("%s must be less than 10MB", label),
			Err:     ErrUploadTooLarge,
		}
	}
	if !u.IsAllowedType() {
		return &UploadError{
			Field:   field,
			Message: "Only JPG, PNG, and WEBP formats are allowed",
			Err:     ErrUploadType,
		}
	}
	return nil
}

// IsAllowedType reports whether the sniffed type is an accepted image type.
func (u *Upload) IsAllowedType() bool {
	for _, allowed := range AllowedImageTypes {
		if u.ContentType == allowed {
			return true
		}
	}
	return false
}
