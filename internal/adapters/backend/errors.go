package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Sentinel errors matched through errors.Is on *APIError and *ConnectivityError.
var (
	ErrUnreachable  = errors.New("backend unreachable")
	ErrUnauthorized = errors.New("backend rejected credentials")
	ErrNotFound     = errors.New("backend resource not found")
)

// ConnectivityMessage is shown when no response was received from the backend.
const ConnectivityMessage = "Unable to connect to the server. Please check your internet connection and ensure the API server is running. If the problem persists, the server may be experiencing issues."

// APIError is a non-2xx response from the backend. Message is already
// resolved for display.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// ConnectivityError wraps a transport failure where no response arrived.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

func (e *ConnectivityError) Is(target error) bool { return target == ErrUnreachable }

// UserMessage maps err to the text shown to a user.
// Connectivity failures get ConnectivityMessage, backend rejections their
// resolved message, anything else the fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnreachable) {
		return ConnectivityMessage
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// ResolveMessage extracts the display message from an error response body.
// Priority: "detail", then "error", then field messages joined as
// "field: m1, m2; other: m3". A JSON body carrying none of these yields the
// fallback; a non-JSON body yields "Server error: <status> <text>".
func ResolveMessage(status int, body []byte, fallback string) string {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		text := http.StatusText(status)
		if text == "" {
			text = "Unknown error"
		}
		return fmt.Sprintf("Server error: %d %s", status, text)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return fmt.Sprintf("%s (status %d)", fallback, status)
	}
	if s := messageText(obj["detail"]); s != "" {
		return s
	}
	if s := messageText(obj["error"]); s != "" {
		return s
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var parts []string
	for _, k := range keys {
		if s := messageText(obj[k]); s != "" {
			parts = append(parts, k+": "+s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "; ")
	}
	return fallback
}

// messageText flattens a DRF error value: a string, or a list of strings.
func messageText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		msgs := make([]string, 0, len(t))
		for _, item := range t {
			if s := messageText(item); s != "" {
				msgs = append(msgs, s)
			}
		}
		return strings.Join(msgs, ", ")
	}
	return ""
}
