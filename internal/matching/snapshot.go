package matching

import (
	"time"

	"repello/internal/book"
	"repello/internal/models"
)

// PriceQty is one aggregated depth row: a price and the total resting
// quantity at that price, both rendered as decimal strings (spec §6's
// wire contract).
type PriceQty struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// DepthView is a point-in-time snapshot of a symbol's book, best-first on
// both sides.
type DepthView struct {
	Symbol    string     `json:"symbol"`
	Timestamp time.Time  `json:"timestamp"`
	Bids      []PriceQty `json:"bids"`
	Asks      []PriceQty `json:"asks"`
}

// BboView is a point-in-time best-bid/best-offer snapshot. Bid/Ask are
// nil when that side of the book is empty.
type BboView struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Bid       *PriceQty `json:"bid"`
	Ask       *PriceQty `json:"ask"`
}

// Depth returns every resting price level for symbol, best-first on each
// side. Sampled under the book's read lock: a consistent snapshot at one
// instant, not a live view.
func (e *Engine) Depth(symbol string) *DepthView {
	ob := e.getOrderBook(symbol)
	ob.RLock()
	defer ob.RUnlock()

	view := &DepthView{Symbol: symbol, Timestamp: time.Now().UTC()}
	ob.Levels(models.Buy, func(level *book.PriceLevel) bool {
		view.Bids = append(view.Bids, PriceQty{Price: level.Price.String(), Quantity: level.TotalQuantity.String()})
		return true
	})
	ob.Levels(models.Sell, func(level *book.PriceLevel) bool {
		view.Asks = append(view.Asks, PriceQty{Price: level.Price.String(), Quantity: level.TotalQuantity.String()})
		return true
	})
	return view
}

// BBO returns the best bid and best offer for symbol.
func (e *Engine) BBO(symbol string) *BboView {
	ob := e.getOrderBook(symbol)
	ob.RLock()
	defer ob.RUnlock()

	view := &BboView{Symbol: symbol, Timestamp: time.Now().UTC()}
	if price, qty, ok := ob.BestBid(); ok {
		view.Bid = &PriceQty{Price: price.String(), Quantity: qty.String()}
	}
	if price, qty, ok := ob.BestAsk(); ok {
		view.Ask = &PriceQty{Price: price.String(), Quantity: qty.String()}
	}
	return view
}
