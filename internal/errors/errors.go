package errors

import (
	"errors"
	"fmt"
)

// Common error conditions surfaced by the API client
var (
	// Precondition errors - never reach the network
	ErrAuthRequired = errors.New("authentication required")
	ErrNoBaseURL    = errors.New("no base URL configured")

	// Backend availability errors
	ErrBackendNotReady   = errors.New("backend not reachable")
	ErrServerUnreachable = errors.New("cannot reach server")
	ErrRequestTimeout    = errors.New("request timed out")

	// Rate limiting - surfaced, never silently retried
	ErrRateLimited = errors.New("rate limited")

	// Session errors
	ErrSessionExpired = errors.New("session expired")
	ErrNoSession      = errors.New("no active session")

	// Realtime channel errors
	ErrChannelClosed = errors.New("realtime channel closed")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

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
