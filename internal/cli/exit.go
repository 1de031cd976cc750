package cli

import (
	"errors"
	"fmt"

	"github.com/regidor/inventario/internal/inventory"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected operation or remote failure
	ExitCommandError = 2 // Bad flags, missing config, not signed in
	ExitCancelled    = 3 // The user declined a confirmation
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	switch {
	case e.Message == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Errors that are not an
// ExitError map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps an engine error to an exit code. The engine has already
// shown the user-facing message through the dialog.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, inventory.ErrOperationCancelled):
		return WrapExitError(ExitCancelled, "", err)
	case errors.Is(err, inventory.ErrNotAuthenticated):
		return WrapExitError(ExitCommandError, "sesión no iniciada; ejecute `inventario login`", err)
	default:
		return WrapExitError(ExitFailure, "", err)
	}
}
