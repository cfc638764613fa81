package matching

import (
	"repello/internal/book"
	"repello/internal/models"
	"repello/internal/money"
)

// processMarket walks the book at any price until filled or liquidity
// runs out. An order that never fills at all is CANCELLED outright; one
// that fills partially before running out of liquidity keeps the
// PARTIALLY_FILLED status its last fill already set — residual MARKET
// liquidity is never added to the book (spec §9's MARKET open question).
func (e *Engine) processMarket(taker *models.Order, ob *book.OrderBook) []*models.Trade {
	trades := e.matchLoop(taker, ob, acceptAny)
	if taker.RemainingQuantity.IsPositive() && taker.FilledQuantity.IsZero() {
		taker.Cancel()
	}
	return trades
}

// processLimit matches at taker's limit or better, then rests any
// residual quantity in the book. A residual that arrived with zero fills
// transitions PENDING->OPEN; a residual after a partial fill keeps the
// PARTIALLY_FILLED status already set by the last Fill call (it is not
// overwritten back to OPEN — spec §9's LIMIT open question).
func (e *Engine) processLimit(taker *models.Order, ob *book.OrderBook) []*models.Trade {
	accept := priceAccept(taker)
	trades := e.matchLoop(taker, ob, accept)

	if taker.RemainingQuantity.IsPositive() {
		if taker.FilledQuantity.IsZero() {
			taker.Rest()
		}
		if err := ob.Add(taker); err != nil {
			e.log.Error().Err(err).Str("order_id", taker.ID).Msg("unexpected duplicate resting a fresh order")
		} else {
			e.metrics.IncOrdersInBook()
		}
	}

	return trades
}

// processIOC matches at taker's limit or better and never rests a
// residual: any quantity left over after the book runs dry or runs out
// of acceptable prices is cancelled, even if some quantity already
// filled (spec scenario D: filled=1.5, remaining cancelled, not rested).
func (e *Engine) processIOC(taker *models.Order, ob *book.OrderBook) []*models.Trade {
	trades := e.matchLoop(taker, ob, priceAccept(taker))
	if taker.RemainingQuantity.IsPositive() {
		taker.Cancel()
	}
	return trades
}

// processFOK runs a non-destructive feasibility scan first: if the book
// cannot supply taker's full quantity at acceptable prices, the order is
// cancelled without taking a single fill. Only once feasibility is
// confirmed does it run the ordinary matching loop, which is then
// guaranteed to fully consume the order.
func (e *Engine) processFOK(taker *models.Order, ob *book.OrderBook) []*models.Trade {
	accept := priceAccept(taker)
	if !e.fokFeasible(taker, ob, accept) {
		taker.Cancel()
		return nil
	}
	return e.matchLoop(taker, ob, accept)
}

// fokFeasible walks the opposing side best-first, accumulating available
// quantity at acceptable prices without mutating any book state, and
// reports whether that total reaches taker's full (original) quantity.
// Grounded on the original engine's _can_fully_fill_order pre-scan,
// reimplemented over the book's ordered-tree iterator instead of
// repeatedly popping and restoring a heap.
func (e *Engine) fokFeasible(taker *models.Order, ob *book.OrderBook, accept func(p money.Price) bool) bool {
	oppSide := taker.Side.Opposite()
	available := money.Zero()
	feasible := false

	ob.Levels(oppSide, func(level *book.PriceLevel) bool {
		if !accept(level.Price) {
			return false
		}
		available = available.Add(level.TotalQuantity)
		if available.GreaterThanOrEqual(taker.Quantity) {
			feasible = true
			return false
		}
		return true
	})

	return feasible
}
