package session

import (
	"fmt"

	"clipdeck/internal/services"
)

var (
	// ErrNotAuthenticated is returned when a protected operation runs without a credential.
	ErrNotAuthenticated = fmt.Errorf("%w: not logged in (run `clipdeck login`)", services.ErrUnauthorized)
	// ErrSessionExpired is returned after the service rejected the stored credential.
	ErrSessionExpired = fmt.Errorf("%w: session expired, log in again", services.ErrUnauthorized)
)

// AuthError reports a failed login or registration. Its message is the
// server-supplied reason.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e == nil || e.Err == nil {
		return "authentication failed"
	}
	return e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
