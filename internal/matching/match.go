package matching

import (
	"repello/internal/book"
	"repello/internal/models"
	"repello/internal/money"
)

// priceAccept returns the per-fill acceptance predicate for a priced
// (LIMIT/IOC/FOK) order: a resting price is matchable iff it is at least
// as good as the taker's limit (spec §4.4's common accept(price) rule).
func priceAccept(taker *models.Order) func(money.Price) bool {
	limit := *taker.Price
	if taker.Side == models.Buy {
		return func(p money.Price) bool { return p.LessThanOrEqual(limit) }
	}
	return func(p money.Price) bool { return p.GreaterThanOrEqual(limit) }
}

// acceptAny never rejects a price — MARKET orders walk the book until
// either they are filled or liquidity runs out.
func acceptAny(money.Price) bool { return true }

// matchLoop is the single matching algorithm shared by all four order
// types (spec §4.4): repeatedly take the best opposing price level,
// stop if accept rejects it, then consume resting orders at that level
// oldest-first until the taker is filled or the level is exhausted.
// Every fill against a level's head order decrements the level's
// TotalQuantity immediately (book.PriceLevel.DecrementQuantity), not
// only when the head order is fully consumed and popped — the
// price-level total-quantity bug spec §9 calls out.
func (e *Engine) matchLoop(taker *models.Order, ob *book.OrderBook, accept func(money.Price) bool) []*models.Trade {
	oppSide := taker.Side.Opposite()
	var trades []*models.Trade

	for !taker.RemainingQuantity.IsZero() {
		level := ob.BestLevel(oppSide)
		if level == nil {
			break
		}
		if !accept(level.Price) {
			break
		}

		for !taker.RemainingQuantity.IsZero() && !level.IsEmpty() {
			maker := level.PeekOldest()
			q := taker.RemainingQuantity.Min(maker.RemainingQuantity)

			trade := models.NewTrade(newTradeID(), taker.Symbol, level.Price, q, maker.ID, taker.ID, taker.Side)
			level.DecrementQuantity(q)
			e.mustFill(taker, q, level.Price)
			e.mustFill(maker, q, level.Price)

			trades = append(trades, trade)
			e.record(trade)

			if maker.Status == models.Filled {
				ob.PopFilledHead(oppSide, level)
				e.metrics.DecOrdersInBook()
			}
		}
	}

	return trades
}

// mustFill applies a fill that the matching loop has already sized to
// never exceed the order's remaining quantity; an error here means the
// q = min(...) invariant was violated elsewhere, which is an engine bug.
func (e *Engine) mustFill(o *models.Order, q money.Quantity, p money.Price) {
	if err := o.Fill(q, p); err != nil {
		e.log.Error().Err(err).Str("order_id", o.ID).Msg("overfill invariant breach")
		panic(err)
	}
}
