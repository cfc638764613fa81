// Package book implements the per-symbol order book: price-indexed FIFO
// queues of resting orders plus the order-id index that lets the matching
// engine look orders up and cancel them in O(1).
package book

import (
	"container/list"

	"repello/internal/models"
	"repello/internal/money"
)

// PriceLevel is a FIFO queue of resting orders at a single price, with a
// running TotalQuantity kept equal to the sum of RemainingQuantity over
// its orders. Backed by a doubly-linked list and an id->element index so
// Add/PeekOldest/PopOldest are O(1) and Remove (arbitrary cancel) is O(1)
// too — replacing the teacher's re-sliced []*Order (and the original
// Python source's re-heapified min-heap) per spec §9.
type PriceLevel struct {
	Price         money.Price
	TotalQuantity money.Quantity

	orders  *list.List
	byOrder map[string]*list.Element
}

// NewPriceLevel creates an empty level at the given price.
func NewPriceLevel(price money.Price) *PriceLevel {
	return &PriceLevel{
		Price:         price,
		TotalQuantity: money.Zero(),
		orders:        list.New(),
		byOrder:       make(map[string]*list.Element),
	}
}

// Add appends order to the tail of the queue.
func (l *PriceLevel) Add(order *models.Order) {
	el := l.orders.PushBack(order)
	l.byOrder[order.ID] = el
	l.TotalQuantity = l.TotalQuantity.Add(order.RemainingQuantity)
}

// PeekOldest returns the head order without removing it.
func (l *PriceLevel) PeekOldest() *models.Order {
	front := l.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*models.Order)
}

// PopOldest removes and returns the head order without touching
// TotalQuantity. A head order that was just filled to zero remaining has
// already had its quantity subtracted via DecrementQuantity (see below);
// popping it here would double-count that subtraction.
func (l *PriceLevel) PopOldest() *models.Order {
	front := l.orders.Front()
	if front == nil {
		return nil
	}
	order := front.Value.(*models.Order)
	l.orders.Remove(front)
	delete(l.byOrder, order.ID)
	return order
}

// DecrementQuantity subtracts q from TotalQuantity. The matching loop
// calls this on every fill against the head order, not only when the
// head is fully filled and popped — the source implementation's bug
// (decrementing only in pop_oldest_order) left best_bid/ask quantities
// stale between a partial fill of the head and its eventual pop.
func (l *PriceLevel) DecrementQuantity(q money.Quantity) {
	l.TotalQuantity = l.TotalQuantity.Sub(q)
}

// Remove removes the order with the given id from anywhere in the queue,
// preserving the FIFO order of the remaining entries, and adjusts
// TotalQuantity by that order's remaining quantity at removal time.
func (l *PriceLevel) Remove(orderID string) *models.Order {
	el, ok := l.byOrder[orderID]
	if !ok {
		return nil
	}
	order := el.Value.(*models.Order)
	l.orders.Remove(el)
	delete(l.byOrder, orderID)
	l.TotalQuantity = l.TotalQuantity.Sub(order.RemainingQuantity)
	return order
}

// IsEmpty reports whether the level has no resting orders.
func (l *PriceLevel) IsEmpty() bool {
	return l.orders.Len() == 0
}
