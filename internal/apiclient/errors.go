package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// APIError is a non-2xx answer from the remote API. Message carries the
// server-provided text when there was one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// MessageOr returns the server-provided message carried by err, or fallback
// when err has none.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// UserError is an error whose text is safe to show as-is in the view that
// triggered it. The underlying cause stays available through Unwrap.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Message }
func (e *UserError) Unwrap() error { return e.Err }

// Friendly wraps err into a UserError using the server message when present.
func Friendly(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return err
	}
	return &UserError{Message: MessageOr(err, fallback), Err: err}
}

// errorBody matches the error envelopes the API uses: {"error": "..."},
// {"error": ["..."]} or {"message": "..."}.
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

func (b *errorBody) text() string {
	if len(b.Error) > 0 {
		var s string
		if err := json.Unmarshal(b.Error, &s); err == nil && s != "" {
			return s
		}
		var list []string
		if err := json.Unmarshal(b.Error, &list); err == nil && len(list) > 0 {
			return list[0]
		}
	}
	return strings.TrimSpace(b.Message)
}
