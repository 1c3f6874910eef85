package userstore

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeNotStarted        = "USER_STORE_NOT_STARTED"
	textCodeInvalidTransition = "INVALID_STORE_STATE_TRANSITION"
	textCodeValidation        = "USER_STORE_VALIDATION"
	textCodeWaitTimeout       = "USER_STORE_WAIT_TIMEOUT"
	textCodeMalformedReserved = "MALFORMED_RESERVED_USER"
	textCodeEmptyPassword     = "EMPTY_PASSWORD"
	textCodeInvalidCreds      = "INVALID_CREDENTIALS"
)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(textCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a cleartext password does
// not match the stored hash.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotStarted is returned by every operation attempted while the store
// is not in the started state. The store never contacts the backing index
// on this path.
var ErrNotStarted = goerrors.New("user store has not been started", goerrors.CategoryConflict).
	WithTextCode(textCodeNotStarted).
	WithCode(goerrors.CodeConflict)

// ErrInvalidTransition is returned when a requested lifecycle change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid store state transition", goerrors.CategoryConflict).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

// ErrWaitTimeout is returned by the blocking adapters when the bounded
// wait elapses. The underlying operation is not cancelled and may still
// complete and have effects.
var ErrWaitTimeout = goerrors.New("timed out waiting on the document store", goerrors.CategoryOperation).
	WithTextCode(textCodeWaitTimeout)

// newValidationError builds the user-facing business-rule failure, kept
// distinct from infrastructure errors by category and text code.
func newValidationError(msg string) error {
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithTextCode(textCodeValidation).
		WithCode(goerrors.CodeBadRequest)
}

func newMalformedReservedError(username, msg string) error {
	return goerrors.New(msg, goerrors.CategoryInternal).
		WithTextCode(textCodeMalformedReserved).
		WithMetadata(map[string]any{
			"username": username,
		})
}

// CacheInvalidationError reports that a mutation committed but the
// follow-up cache invalidation broadcast failed. The mutation is never
// retried or undone; stale cached copies of the named user may survive
// until the cache is cleared by other means.
type CacheInvalidationError struct {
	Username string
	Err      error
}

func (e *CacheInvalidationError) Error() string {
	return fmt.Sprintf("clearing the cache for [%s] failed, please clear the user cache manually: %v", e.Username, e.Err)
}

func (e *CacheInvalidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotStarted reports whether err is the not-started rejection.
func IsNotStarted(err error) bool {
	return errors.Is(err, ErrNotStarted)
}

// IsValidation reports whether err is a business-rule violation rather
// than an infrastructure failure.
func IsValidation(err error) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryValidation
	}
	return false
}

// IsWaitTimeout reports whether err is a bounded-wait timeout.
func IsWaitTimeout(err error) bool {
	return errors.Is(err, ErrWaitTimeout)
}

// IsCacheInvalidationFailure reports whether err means "mutation applied,
// cache invalidation failed".
func IsCacheInvalidationFailure(err error) bool {
	var cie *CacheInvalidationError
	return errors.As(err, &cie)
}
