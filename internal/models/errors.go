package models

import (
	"fmt"

	"repello/internal/money"
)

// ErrorKind is the §7 error taxonomy. It is a kind, not a Go type
// hierarchy: callers switch on Kind rather than type-asserting concrete
// error structs.
type ErrorKind string

const (
	// KindValidation: malformed order at construction.
	KindValidation ErrorKind = "VALIDATION"
	// KindDuplicate: order_id already resting in a book.
	KindDuplicate ErrorKind = "DUPLICATE"
	// KindOverfill: fill(q) with q > remaining — an internal invariant breach.
	KindOverfill ErrorKind = "OVERFILL"
	// KindNotFound: cancel for an unknown (order_id, symbol).
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindRejectedState: submission of an order not in PENDING.
	KindRejectedState ErrorKind = "REJECTED_STATE"
)

// Error is the engine's typed error, carrying an ErrorKind callers can
// switch on to map to a transport status code (spec §6/§7).
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindOf extracts the ErrorKind from err, returning ("", false) for errors
// not produced by this package.
func KindOf(err error) (ErrorKind, bool) {
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return "", false
}

// NewValidationError builds a VALIDATION error.
func NewValidationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NewDuplicateError builds a DUPLICATE error for an order_id already
// resting in a book.
func NewDuplicateError(orderID string) error {
	return &Error{Kind: KindDuplicate, Message: fmt.Sprintf("order %s already resting", orderID)}
}

// NewOverfillError builds an OVERFILL error: an internal invariant breach,
// never expected in normal operation.
func NewOverfillError(orderID string, requested, remaining money.Quantity) error {
	return &Error{
		Kind:    KindOverfill,
		Message: fmt.Sprintf("order %s: fill %s exceeds remaining %s", orderID, requested, remaining),
	}
}

// NewNotFoundError builds a NOT_FOUND error for an unknown (order_id, symbol).
func NewNotFoundError(orderID, symbol string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("order %s not found for symbol %s", orderID, symbol)}
}

// NewRejectedStateError builds a REJECTED_STATE error for submission of an
// order not in PENDING.
func NewRejectedStateError(orderID string, status OrderStatus) error {
	return &Error{
		Kind:    KindRejectedState,
		Message: fmt.Sprintf("order %s submitted in non-pending status %s", orderID, status),
	}
}
