package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates an authorization denial. The specific denial
	// reason stays internal; callers surface only this generic error.
	ErrForbidden = errors.New("forbidden")
	// ErrEmailTaken indicates a registration conflict on email.
	ErrEmailTaken = errors.New("email already registered")
)

// UserSafeMessage maps an error to a message safe to return to clients.
// Anything unrecognized collapses to a generic message so internal detail
// never leaks.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrEmailTaken):
		return "email already registered"
	}
	return "internal error"
}
