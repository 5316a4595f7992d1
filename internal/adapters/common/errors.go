package common

import (
	"errors"
	"fmt"

	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

// Sentinel errors used to classify per-item failures. Every failure is
// recoverable at the batch level.
var (
	ErrValidation  = errors.New("validation error")
	ErrResolution  = errors.New("template not found")
	ErrUnsupported = errors.New("operation not supported")
	ErrProvider    = errors.New("provider error")
)

// WrapValidation annotates err as a validation failure.
func WrapValidation(err error) error {
	return wrap(ErrValidation, err)
}

// WrapResolution annotates err as a template resolution failure.
func WrapResolution(err error) error {
	return wrap(ErrResolution, err)
}

// WrapUnsupported annotates err as an unsupported channel/operation pair.
func WrapUnsupported(err error) error {
	return wrap(ErrUnsupported, err)
}

// WrapProvider annotates err as a provider failure. The original error stays
// reachable through errors.As.
func WrapProvider(err error) error {
	if err == nil {
		return ErrProvider
	}
	return &providerError{err: err}
}

// Validationf builds a validation error from a format string.
func Validationf(format string, args ...any) error {
	return WrapValidation(fmt.Errorf(format, args...))
}

// Kind maps an error onto the result record error kinds.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return models.ErrorKindValidation
	case errors.Is(err, ErrResolution):
		return models.ErrorKindResolution
	case errors.Is(err, ErrUnsupported):
		return models.ErrorKindUnsupported
	case errors.Is(err, ErrProvider):
		return models.ErrorKindProvider
	default:
		return models.ErrorKindUnknown
	}
}

func wrap(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

type providerError struct {
	err error
}

func (e *providerError) Error() string {
	return e.err.Error()
}

func (e *providerError) Unwrap() []error {
	return []error{ErrProvider, e.err}
}
