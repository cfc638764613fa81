package matching

import (
	"repello/internal/logging"
	"repello/internal/models"
)

// Cancel removes orderID from symbol's book and marks it CANCELLED,
// returning the updated order. Returns nil if symbol has no book or
// orderID is not resting in it — spec's cancel(order_id, symbol) never
// errors on not-found, it simply reports none (callers wanting a 404
// map a nil return to NOT_FOUND themselves, see internal/api).
func (e *Engine) Cancel(orderID, symbol string) *models.Order {
	e.booksMu.RLock()
	ob, exists := e.books[symbol]
	e.booksMu.RUnlock()
	if !exists {
		return nil
	}

	ob.Lock()
	defer ob.Unlock()

	order := ob.Remove(orderID)
	if order == nil {
		return nil
	}
	order.Cancel()
	e.metrics.IncOrdersCancelled()
	e.metrics.DecOrdersInBook()
	logging.LogOrder(e.log, order, "cancelled")
	return order
}

// Get returns the resting order with the given id in symbol's book, or
// nil if no such book or order exists.
func (e *Engine) Get(orderID, symbol string) *models.Order {
	e.booksMu.RLock()
	ob, exists := e.books[symbol]
	e.booksMu.RUnlock()
	if !exists {
		return nil
	}

	ob.RLock()
	defer ob.RUnlock()
	return ob.Get(orderID)
}
