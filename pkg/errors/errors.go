// Package errors defines the sentinel errors shared across the active
// learning pipeline and an AppError wrapper that carries a process exit code.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrUnknownClassifier = errors.New("unknown classifier")
	ErrPoolExhausted     = errors.New("pool smaller than required acquisitions")
	ErrEmptyPool         = errors.New("pool is empty")
	ErrSingleClass       = errors.New("training data contains a single class")
	ErrNotFitted         = errors.New("classifier not fitted")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrCorpus            = errors.New("corpus error")
)

// Exit codes returned by the command-line tools.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// ExitCode maps an error to the exit status a command should terminate with.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnknownStrategy),
		errors.Is(err, ErrUnknownClassifier),
		errors.Is(err, ErrPoolExhausted):
		return ExitUsage
	default:
		return ExitFailure
	}
}
