// Package matching implements the central-limit matching engine: one
// OrderBook per symbol, a shared price-time priority matching loop
// parameterized per order type, an append-only trade log, and a
// synchronous trade-listener fan-out.
package matching

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"repello/internal/book"
	"repello/internal/logging"
	"repello/internal/metrics"
	"repello/internal/models"
)

// TradeListener receives each trade as it is produced, in matching-loop
// order, before Submit returns (spec §5).
type TradeListener func(*models.Trade)

// Engine owns all symbols' order books plus the engine-wide trade log
// and listener registry. Grounded on the teacher's Engine (lazy
// double-checked-locked per-symbol book map), generalized from two order
// types to four.
type Engine struct {
	booksMu sync.RWMutex
	books   map[string]*book.OrderBook

	tradesMu sync.Mutex
	trades   []*models.Trade

	listenersMu sync.Mutex
	listeners   []TradeListener

	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewEngine constructs an empty Engine. m and log may not be nil.
func NewEngine(m *metrics.Metrics, log zerolog.Logger) *Engine {
	return &Engine{
		books:   make(map[string]*book.OrderBook),
		metrics: m,
		log:     log,
	}
}

// getOrderBook returns the book for symbol, creating it on first use.
// Double-checked locking: the common case (book already exists) only
// takes the read lock.
func (e *Engine) getOrderBook(symbol string) *book.OrderBook {
	e.booksMu.RLock()
	ob, exists := e.books[symbol]
	e.booksMu.RUnlock()
	if exists {
		return ob
	}

	e.booksMu.Lock()
	defer e.booksMu.Unlock()
	if ob, exists = e.books[symbol]; exists {
		return ob
	}
	ob = book.NewOrderBook(symbol)
	e.books[symbol] = ob
	return ob
}

// RegisterTradeListener adds h to the fan-out list. Listeners are
// invoked in registration order, synchronously, within the Submit call
// that produced the trade.
func (e *Engine) RegisterTradeListener(h TradeListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, h)
}

// record appends trade to the engine-wide trade log and dispatches it to
// every registered listener. A listener panic is recovered and logged so
// one bad consumer cannot take down the matching loop or lose the trade
// from the log (spec §5's "panic-isolated" fan-out).
func (e *Engine) record(trade *models.Trade) {
	e.tradesMu.Lock()
	e.trades = append(e.trades, trade)
	e.tradesMu.Unlock()

	e.listenersMu.Lock()
	listeners := make([]TradeListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.listenersMu.Unlock()

	for _, h := range listeners {
		e.dispatchOne(h, trade)
	}
}

func (e *Engine) dispatchOne(h TradeListener, trade *models.Trade) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Interface("panic", r).
				Str("trade_id", trade.TradeID).
				Msg("trade listener panicked")
		}
	}()
	h(trade)
}

// Trades returns a snapshot copy of the engine-wide trade log.
func (e *Engine) Trades() []*models.Trade {
	e.tradesMu.Lock()
	defer e.tradesMu.Unlock()
	out := make([]*models.Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// Submit admits order to its symbol's book and runs it through the
// matching loop for its order type, returning the (possibly updated)
// order and the trades it produced. order.Status must be PENDING; any
// other status is a caller-contract violation the spec leaves undefined,
// handled here by defensive rejection rather than risking a panic deep
// in a transition table.
func (e *Engine) Submit(order *models.Order) (*models.Order, []*models.Trade, error) {
	e.metrics.IncOrdersReceived()
	start := time.Now()
	defer func() { e.metrics.AddLatency(time.Since(start).Microseconds()) }()

	if order.Status != models.Pending {
		order.Reject()
		e.metrics.IncOrdersRejected()
		err := models.NewRejectedStateError(order.ID, order.Status)
		e.log.Error().Err(err).Str("order_id", order.ID).Msg("rejected order not submitted pending")
		return order, nil, err
	}

	ob := e.getOrderBook(order.Symbol)
	ob.Lock()
	defer ob.Unlock()

	trades := e.runMatching(order, ob)

	e.metrics.IncTradesExecuted(int64(len(trades)))
	if len(trades) > 0 {
		e.metrics.IncOrdersMatched(1)
	}
	logging.LogOrder(e.log, order, "submitted")
	return order, trades, nil
}

// runMatching dispatches order to its type-specific processor inside a
// single panic-recovering critical section: an OVERFILL invariant breach
// deep in the matching loop is an engine bug, not a caller error, and
// must not crash the whole service.
func (e *Engine) runMatching(order *models.Order, ob *book.OrderBook) (trades []*models.Trade) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Interface("panic", r).
				Str("order_id", order.ID).
				Msg("matching invariant breach recovered")
		}
	}()

	switch order.Type {
	case models.Market:
		trades = e.processMarket(order, ob)
	case models.Limit:
		trades = e.processLimit(order, ob)
	case models.IOC:
		trades = e.processIOC(order, ob)
	case models.FOK:
		trades = e.processFOK(order, ob)
	}
	return trades
}

func newTradeID() string {
	return uuid.NewString()
}
