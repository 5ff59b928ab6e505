package app

import (
	"errors"

	"github.com/artpar/documind/domain/quota"
)

var (
	// ErrInvalidInput marks caller mistakes; the message is safe to show.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned for operations that require a signed-in user.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAllModelsFailed is returned when no language model produced an answer.
	ErrAllModelsFailed = errors.New("all models failed")
)

// InputError is a user-facing validation failure. It matches ErrInvalidInput.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalid(msg string) error {
	return &InputError{Message: msg}
}

// DeniedError is returned when the usage gate refuses an action.
type DeniedError struct {
	Decision quota.Decision
}

func (e *DeniedError) Error() string {
	return quota.DeniedMessage(e.Decision)
}
