package models

import (
	"fmt"
	"time"

	"repello/internal/money"
)

// Trade is an immutable record of a single fill. Price is always the
// maker's resting price (spec §4.4's price-improvement invariant), never
// the taker's limit.
type Trade struct {
	TradeID       string
	Symbol        string
	Price         money.Price
	Quantity      money.Quantity
	MakerOrderID  string
	TakerOrderID  string
	AggressorSide Side
	Timestamp     time.Time
}

// NewTrade constructs a Trade. id is caller-supplied (a uuid from the
// matching engine).
func NewTrade(id, symbol string, price money.Price, quantity money.Quantity, makerOrderID, takerOrderID string, aggressorSide Side) *Trade {
	return &Trade{
		TradeID:       id,
		Symbol:        symbol,
		Price:         price,
		Quantity:      quantity,
		MakerOrderID:  makerOrderID,
		TakerOrderID:  takerOrderID,
		AggressorSide: aggressorSide,
		Timestamp:     time.Now().UTC(),
	}
}

func (t *Trade) String() string {
	return fmt.Sprintf("Trade[id=%s symbol=%s price=%s qty=%s maker=%s taker=%s aggressor=%s]",
		t.TradeID, t.Symbol, t.Price, t.Quantity, t.MakerOrderID, t.TakerOrderID, t.AggressorSide)
}
