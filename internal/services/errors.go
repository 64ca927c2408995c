package services

import (
	"fmt"

	"github.com/pkg/errors"

	"furnishop-backend/internal/utils"
)

// Error kinds. Every error returned by a service matches exactly one of
// these with errors.Is; the HTTP layer maps kinds to status codes.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("object storage failure")
	ErrPersistence  = errors.New("persistence failure")
)

// Error carries a client-facing message, its kind and an optional cause
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	default:
		return e.Message
	}
}

// Is matches the error's kind
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the cause
func (e *Error) Unwrap() error {
	return e.Err
}

func invalidInput(format string, args ...interface{}) error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...interface{}) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

func unauthorized(format string, args ...interface{}) error {
	return &Error{Kind: ErrUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func storageError(err error, format string, args ...interface{}) error {
	return &Error{Kind: ErrStorage, Message: fmt.Sprintf(format, args...), Err: errors.WithStack(err)}
}

func persistenceError(err error, format string, args ...interface{}) error {
	return &Error{Kind: ErrPersistence, Message: fmt.Sprintf(format, args...), Err: errors.WithStack(err)}
}

// validate runs struct tag validation and reports failures as invalid input
func validate(s interface{}) error {
	if err := utils.ValidateStruct(s); err != nil {
		return &Error{Kind: ErrInvalidInput, Err: err}
	}
	return nil
}

// InsufficientStockError reports a line item that cannot be filled.
// It matches ErrInvalidInput.
type InsufficientStockError struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.ProductName, e.Available, e.Requested)
}

// Is matches ErrInvalidInput
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInvalidInput
}
