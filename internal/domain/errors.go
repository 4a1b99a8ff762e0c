package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBookmark is returned when an add request misses a title, url or owner.
	ErrInvalidBookmark = errors.New("missing required fields")

	// ErrNotFound is returned when a delete matched no bookmark owned by the requester.
	ErrNotFound = errors.New("bookmark not found")

	// ErrUnauthenticated is returned when no valid session is attached to a request.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// AuthError reports an identity failure: missing or invalid session,
// unknown provider, or a failed provider exchange.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// QueryError reports a storage read or write failure.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// SubscriptionError reports a failure of the change-notification channel.
type SubscriptionError struct {
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription: %v", e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
