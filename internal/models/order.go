package models

import (
	"fmt"
	"time"

	"repello/internal/money"
)

// Order is the unit of ownership the book and matching engine operate on.
// Invariants (spec §3): FilledQuantity+RemainingQuantity == Quantity;
// RemainingQuantity >= 0; Status==Filled iff RemainingQuantity==0;
// Status==PartiallyFilled implies 0 < FilledQuantity < Quantity.
type Order struct {
	ID                string
	ClientOrderID     *string
	Symbol            string
	Side              Side
	Type              OrderType
	Quantity          money.Quantity // original, immutable after creation
	Price             *money.Price   // nil iff Type == Market
	Status            OrderStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
	FilledQuantity    money.Quantity
	RemainingQuantity money.Quantity
}

// NewOrder validates and constructs a PENDING order. id is caller-supplied
// (the API layer assigns a uuid before calling this), matching the
// teacher's NewOrder(id, ...) shape.
func NewOrder(id string, clientOrderID *string, symbol string, side Side, typ OrderType, quantity money.Quantity, price *money.Price) (*Order, error) {
	if !quantity.IsPositive() {
		return nil, NewValidationError("quantity must be positive")
	}
	if typ != Market {
		if price == nil || !price.IsPositive() {
			return nil, NewValidationError("price must be positive for non-market orders")
		}
	}

	now := time.Now().UTC()
	return &Order{
		ID:                id,
		ClientOrderID:     clientOrderID,
		Symbol:            symbol,
		Side:              side,
		Type:              typ,
		Quantity:          quantity,
		Price:             price,
		Status:            Pending,
		CreatedAt:         now,
		UpdatedAt:         now,
		FilledQuantity:    money.Zero(),
		RemainingQuantity: quantity,
	}, nil
}

// transition moves the order to a new status, enforcing the legal
// transition table; a violation indicates an engine bug, not caller error.
func (o *Order) transition(to OrderStatus) {
	if !CanTransition(o.Status, to) {
		panic(fmt.Sprintf("models: illegal order status transition %s -> %s", o.Status, to))
	}
	o.Status = to
}

// Fill records a fill of q at price p against this order. p is retained
// for callers that want a weighted average fill price; Order itself keeps
// no such running average, it is not required for correctness (spec §4.1).
func (o *Order) Fill(q money.Quantity, p money.Price) error {
	if !q.IsPositive() {
		return NewValidationError("fill quantity must be positive")
	}
	if q.GreaterThan(o.RemainingQuantity) {
		return NewOverfillError(o.ID, q, o.RemainingQuantity)
	}

	o.FilledQuantity = o.FilledQuantity.Add(q)
	o.RemainingQuantity = o.RemainingQuantity.Sub(q)
	o.UpdatedAt = time.Now().UTC()

	if o.RemainingQuantity.IsZero() {
		o.transition(Filled)
	} else if o.Status == Pending || o.Status == Open || o.Status == PartiallyFilled {
		o.transition(PartiallyFilled)
	}
	return nil
}

// Rest transitions a still-PENDING order to OPEN before it is admitted to
// the book with no fills yet applied. A no-op if the order already has a
// partial fill (already PARTIALLY_FILLED) or is in any other status.
func (o *Order) Rest() {
	if o.Status == Pending {
		o.transition(Open)
		o.UpdatedAt = time.Now().UTC()
	}
}

// Cancel cancels the order if it is not already terminal. Returns false
// without mutating the order if it is already FILLED, CANCELLED, or
// REJECTED.
func (o *Order) Cancel() bool {
	if o.Status.Terminal() {
		return false
	}
	o.transition(Cancelled)
	o.UpdatedAt = time.Now().UTC()
	return true
}

// Reject marks a defensively-rejected order (spec §4.5, §7 REJECTED_STATE).
// Submitting an order whose status is not already PENDING is undefined by
// spec, so this bypasses the normal transition table rather than risk a
// panic on a caller-contract violation the spec explicitly leaves open.
func (o *Order) Reject() {
	o.Status = Rejected
	o.UpdatedAt = time.Now().UTC()
}

func (o *Order) String() string {
	return fmt.Sprintf("Order[id=%s symbol=%s side=%s type=%s qty=%s/%s status=%s]",
		o.ID, o.Symbol, o.Side, o.Type, o.FilledQuantity, o.Quantity, o.Status)
}
