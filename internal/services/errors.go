package services

import (
	"errors"
	"fmt"

	"govportal/internal/store"

	"go.uber.org/zap"
)

var (
	ErrAlreadyVoted          = errors.New("you have already voted")
	ErrCandidateNotFound     = errors.New("candidate not found")
	ErrDuplicateRegistration = errors.New("registration conflicts with an existing record")
	ErrNotFound              = errors.New("record not found")
	ErrStoreUnavailable      = errors.New("service temporarily unavailable, please try again later")
	ErrInvalidCredentials    = errors.New("invalid email or password")
)

// ValidationError carries a message that is safe to show the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// duplicate wraps ErrDuplicateRegistration with a caller-facing reason.
type duplicateError struct {
	reason string
}

func (e *duplicateError) Error() string { return e.reason }
func (e *duplicateError) Unwrap() error { return ErrDuplicateRegistration }

func duplicate(reason string) error {
	return &duplicateError{reason: reason}
}

// unavailable logs the underlying store failure and returns the generic
// sentinel so store text never reaches clients.
func unavailable(log *zap.Logger, op string, err error) error {
	log.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, store.ErrDuplicate)
}
