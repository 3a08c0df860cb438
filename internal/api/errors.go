package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"clipdeck/internal/services"
)

// Error is the single error kind produced for non-2xx responses.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Is lets callers classify API failures with the shared service markers.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case services.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case services.ErrNotFound:
		return e.Status == http.StatusNotFound
	case services.ErrValidation:
		return e.Status == http.StatusUnprocessableEntity || e.Status == http.StatusBadRequest
	}
	return false
}

// IsUnauthorized reports whether err is an authentication rejection from the service.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func newError(status int, body []byte) *Error {
	message := detailMessage(body)
	if message == "" {
		message = fmt.Sprintf("HTTP error: status %d", status)
	}
	return &Error{Status: status, Message: message}
}

// detailMessage extracts the FastAPI style "detail" field. A plain string is
// used as-is; validation lists are flattened to their "msg" entries.
func detailMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			msg := strings.TrimSpace(item.Msg)
			if msg == "" {
				continue
			}
			if field := locField(item.Loc); field != "" {
				msg = field + ": " + msg
			}
			parts = append(parts, msg)
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func locField(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if last, ok := loc[len(loc)-1].(string); ok && last != "body" {
		return last
	}
	return ""
}
