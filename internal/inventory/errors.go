package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrMaterialNotFound   = errors.New("material not found")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNoData             = errors.New("no data")
	ErrOperationCancelled = errors.New("operation cancelled")
)

// ValidationError reports a rejected field before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StockError reports an exit that exceeds the material's stock.
type StockError struct {
	Material  string
	Requested string
	Available string
	Unit      string
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %s, available %s %s", e.Material, e.Requested, e.Available, e.Unit)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
