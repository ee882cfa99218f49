package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Reddit sign-in flow
var (
	// Token errors
	ErrNoToken       = errors.New("no usable access token")
	ErrTokenExchange = errors.New("token endpoint exchange failed")

	// Callback errors
	ErrStateMismatch        = errors.New("incorrect state")
	ErrProviderError        = errors.New("provider returned an error")
	ErrIdentityUnavailable  = errors.New("remote identity unavailable")
	ErrLocalAuthDenied      = errors.New("local authentication denied")
	ErrMissingAuthorization = errors.New("missing authorization code")

	// Storage errors
	ErrSessionNotFound = errors.New("session not found")
	ErrUserNotFound    = errors.New("user not found")
)

// ProviderError carries the error text the provider sent back on the redirect.
type ProviderError struct {
	Code string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", ErrProviderError, e.Code)
}

// Is lets errors.Is(err, ErrProviderError) match any ProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderError
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
