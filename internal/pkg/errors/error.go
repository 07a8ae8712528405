package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict: resource already exists")
	ErrInternal     = errors.New("internal server error")
	ErrRateLimited  = errors.New("too many requests")
	ErrBadRequest   = errors.New("bad request")
)

// Pricing errors
var (
	ErrInvalidPeriodUnit = errors.New("invalid offer period unit")
	ErrMixedFrequency    = errors.New("all selected packages must have the same frequency")
)

// Subscription and payment errors
var (
	ErrInvalidState           = errors.New("subscription is not in an eligible state")
	ErrAlreadyClaimed         = errors.New("package already claimed")
	ErrInsufficientBalance    = errors.New("insufficient token balance")
	ErrControllerNotFound     = errors.New("subscription controller is not initialized")
	ErrDelegationMissing      = errors.New("spending delegation to controller is missing")
	ErrInsufficientDelegation = errors.New("insufficient delegated amount")
	ErrBundleNotRegistered    = errors.New("bundle is not registered on chain")
	ErrSubmissionFailed       = errors.New("transaction submission failed")
	ErrTransactionFailed      = errors.New("transaction did not succeed")
	ErrConfirmationTimeout    = errors.New("transaction confirmation timed out")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
