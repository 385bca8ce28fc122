package service

import (
	"errors"
	"fmt"

	"github.com/crave-grocer/api/internal/enum"
	"github.com/crave-grocer/api/internal/ledger"
	"github.com/crave-grocer/api/internal/session"
)

// Errors returned by the order service. Each is wrapped in an *Error that
// carries its kind.
var (
	ErrEmptyItems         = errors.New("items are required")
	ErrInvalidQuantity    = fmt.Errorf("quantity must be between 1 and %d", ledger.MaxQuantity)
	ErrAmountTooLarge     = errors.New("order amount is too large")
	ErrMissingReference   = errors.New("one of product_id, product_name or position is required")
	ErrProductNotFound    = errors.New("product not found")
	ErrLedgerUnavailable  = errors.New("order could not be saved")
	ErrPositionOutOfRange = session.ErrPositionOutOfRange
	ErrEmptyContext       = session.ErrEmptyContext
	ErrBlankCustomer      = ledger.ErrBlankCustomer
)

// Error is a service failure the conversational layer can act on. Kind is
// one of the enum.ErrorKind values.
type Error struct {
	Kind        string
	Detail      string
	Suggestions []string
	Err         error
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" when err is not a service error.
func KindOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func validationError(err error, format string, args ...any) *Error {
	return &Error{Kind: enum.ErrorKindValidation, Detail: detail(err, format, args...), Err: err}
}

func notFoundError(err error, suggestions []string, format string, args ...any) *Error {
	return &Error{Kind: enum.ErrorKindNotFound, Detail: detail(err, format, args...), Suggestions: suggestions, Err: err}
}

func outOfRangeError(err error, format string, args ...any) *Error {
	return &Error{Kind: enum.ErrorKindOutOfRange, Detail: detail(err, format, args...), Err: err}
}

func persistenceError(err error) *Error {
	return &Error{
		Kind:   enum.ErrorKindPersistence,
		Detail: ErrLedgerUnavailable.Error(),
		Err:    fmt.Errorf("%w: %w", ErrLedgerUnavailable, err),
	}
}

// detail prefixes the cause message with the formatted context,
// e.g. "item[2]: product not found: name \"Green Mug\"".
func detail(err error, format string, args ...any) string {
	if format == "" {
		return err.Error()
	}
	return fmt.Sprintf(format, args...) + ": " + err.Error()
}
