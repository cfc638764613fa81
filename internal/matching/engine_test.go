package matching

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repello/internal/metrics"
	"repello/internal/models"
	"repello/internal/money"
)

func amt(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.ParseAmount(s)
	require.NoError(t, err)
	return a
}

func newTestEngine() *Engine {
	return NewEngine(metrics.NewMetrics(), zerolog.Nop())
}

func limitOrder(t *testing.T, id, symbol string, side models.Side, price, qty string) *models.Order {
	t.Helper()
	p := amt(t, price)
	o, err := models.NewOrder(id, nil, symbol, side, models.Limit, amt(t, qty), &p)
	require.NoError(t, err)
	return o
}

func marketOrder(t *testing.T, id, symbol string, side models.Side, qty string) *models.Order {
	t.Helper()
	o, err := models.NewOrder(id, nil, symbol, side, models.Market, amt(t, qty), nil)
	require.NoError(t, err)
	return o
}

func iocOrder(t *testing.T, id, symbol string, side models.Side, price, qty string) *models.Order {
	t.Helper()
	p := amt(t, price)
	o, err := models.NewOrder(id, nil, symbol, side, models.IOC, amt(t, qty), &p)
	require.NoError(t, err)
	return o
}

func fokOrder(t *testing.T, id, symbol string, side models.Side, price, qty string) *models.Order {
	t.Helper()
	p := amt(t, price)
	o, err := models.NewOrder(id, nil, symbol, side, models.FOK, amt(t, qty), &p)
	require.NoError(t, err)
	return o
}

func TestSubmit_SimpleMatch(t *testing.T) {
	e := newTestEngine()

	sell := limitOrder(t, "seller1", "BTCUSD", models.Sell, "100", "10")
	_, _, err := e.Submit(sell)
	require.NoError(t, err)

	buy := limitOrder(t, "buyer1", "BTCUSD", models.Buy, "100", "10")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(amt(t, "10")))
	assert.True(t, trades[0].Price.Equal(amt(t, "100")))
	assert.Equal(t, models.Filled, buy.Status)
	assert.Equal(t, models.Filled, sell.Status)

	ob := e.getOrderBook("BTCUSD")
	assert.True(t, ob.Bids.Empty())
	assert.True(t, ob.Asks.Empty())
}

func TestSubmit_PartialFill(t *testing.T) {
	e := newTestEngine()

	sell := limitOrder(t, "seller1", "BTCUSD", models.Sell, "100", "5")
	_, _, err := e.Submit(sell)
	require.NoError(t, err)

	buy := limitOrder(t, "buyer1", "BTCUSD", models.Buy, "100", "10")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(amt(t, "5")))
	assert.True(t, buy.RemainingQuantity.Equal(amt(t, "5")))
	assert.Equal(t, models.PartiallyFilled, buy.Status)

	ob := e.getOrderBook("BTCUSD")
	assert.False(t, ob.Bids.Empty())
	assert.True(t, ob.Asks.Empty())
	price, qty, ok := ob.BestBid()
	require.True(t, ok)
	assert.True(t, price.Equal(amt(t, "100")))
	assert.True(t, qty.Equal(amt(t, "5")))
}

func TestSubmit_MultiLevelMatch(t *testing.T) {
	e := newTestEngine()

	s1 := limitOrder(t, "seller1", "BTCUSD", models.Sell, "100", "5")
	s2 := limitOrder(t, "seller2", "BTCUSD", models.Sell, "101", "5")
	_, _, err := e.Submit(s1)
	require.NoError(t, err)
	_, _, err = e.Submit(s2)
	require.NoError(t, err)

	buy := limitOrder(t, "buyer1", "BTCUSD", models.Buy, "101", "8")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	require.Len(t, trades, 2)
	assert.True(t, trades[0].Quantity.Equal(amt(t, "5")))
	assert.True(t, trades[0].Price.Equal(amt(t, "100")))
	assert.True(t, trades[1].Quantity.Equal(amt(t, "3")))
	assert.True(t, trades[1].Price.Equal(amt(t, "101")))
	assert.Equal(t, models.Filled, buy.Status)

	ob := e.getOrderBook("BTCUSD")
	price, qty, ok := ob.BestAsk()
	require.True(t, ok)
	assert.True(t, price.Equal(amt(t, "101")))
	assert.True(t, qty.Equal(amt(t, "2")))
}

func TestSubmit_PriceTimePriority(t *testing.T) {
	e := newTestEngine()

	first := limitOrder(t, "seller1", "BTCUSD", models.Sell, "100", "5")
	second := limitOrder(t, "seller2", "BTCUSD", models.Sell, "100", "5")
	_, _, err := e.Submit(first)
	require.NoError(t, err)
	_, _, err = e.Submit(second)
	require.NoError(t, err)

	buy := limitOrder(t, "buyer1", "BTCUSD", models.Buy, "100", "5")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, "seller1", trades[0].MakerOrderID)
	assert.Equal(t, models.Filled, first.Status)
	assert.Equal(t, models.Open, second.Status)
}

// A MARKET order that exhausts all available liquidity before it is fully
// filled keeps PARTIALLY_FILLED rather than being cancelled outright.
func TestSubmit_MarketPartialExhaustion(t *testing.T) {
	e := newTestEngine()

	sell := limitOrder(t, "seller1", "BTCUSD", models.Sell, "100", "5")
	_, _, err := e.Submit(sell)
	require.NoError(t, err)

	buy := marketOrder(t, "buyer1", "BTCUSD", models.Buy, "10")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(amt(t, "5")))
	assert.True(t, buy.FilledQuantity.Equal(amt(t, "5")))
	assert.Equal(t, models.PartiallyFilled, buy.Status)

	ob := e.getOrderBook("BTCUSD")
	assert.True(t, ob.Bids.Empty(), "unfilled MARKET residual must never rest in the book")
}

func TestSubmit_MarketNoLiquidityCancelled(t *testing.T) {
	e := newTestEngine()

	buy := marketOrder(t, "buyer1", "BTCUSD", models.Buy, "10")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	assert.Empty(t, trades)
	assert.True(t, buy.FilledQuantity.IsZero())
	assert.Equal(t, models.Cancelled, buy.Status)
}

// Scenario B: price improvement — the taker's limit is worse than the
// resting ask, the fill executes at the maker's (better) price.
func TestSubmit_LimitPriceImprovement(t *testing.T) {
	e := newTestEngine()

	sell := limitOrder(t, "seller1", "BTCUSD", models.Sell, "98", "5")
	_, _, err := e.Submit(sell)
	require.NoError(t, err)

	buy := limitOrder(t, "buyer1", "BTCUSD", models.Buy, "100", "5")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(amt(t, "98")), "trade must execute at the maker's price, not the taker's limit")
}

func TestSubmit_LimitRestsWhenUnmatchable(t *testing.T) {
	e := newTestEngine()

	sell := limitOrder(t, "seller1", "BTCUSD", models.Sell, "105", "5")
	_, _, err := e.Submit(sell)
	require.NoError(t, err)

	buy := limitOrder(t, "buyer1", "BTCUSD", models.Buy, "100", "5")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	assert.Empty(t, trades)
	assert.Equal(t, models.Open, buy.Status)

	ob := e.getOrderBook("BTCUSD")
	assert.False(t, ob.Bids.Empty())
}

// Scenario D: IOC partial-then-cancel — residual quantity is cancelled
// even though a partial fill already occurred.
func TestSubmit_IOCPartialThenCancel(t *testing.T) {
	e := newTestEngine()

	sell := limitOrder(t, "seller1", "BTCUSD", models.Sell, "100", "3")
	_, _, err := e.Submit(sell)
	require.NoError(t, err)

	buy := iocOrder(t, "buyer1", "BTCUSD", models.Buy, "100", "5")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.True(t, buy.FilledQuantity.Equal(amt(t, "3")))
	assert.Equal(t, models.Cancelled, buy.Status)

	ob := e.getOrderBook("BTCUSD")
	assert.True(t, ob.Bids.Empty(), "IOC residual must never rest in the book")
}

// Scenario E: FOK infeasible — the book cannot cover the full requested
// quantity, so it is cancelled without a single fill, and the book is
// left untouched.
func TestSubmit_FOKInfeasibleCancelsWithoutFills(t *testing.T) {
	e := newTestEngine()

	sell := limitOrder(t, "seller1", "BTCUSD", models.Sell, "100", "5")
	_, _, err := e.Submit(sell)
	require.NoError(t, err)

	buy := fokOrder(t, "buyer1", "BTCUSD", models.Buy, "100", "10")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	assert.Empty(t, trades)
	assert.Equal(t, models.Cancelled, buy.Status)
	assert.True(t, buy.FilledQuantity.IsZero())

	ob := e.getOrderBook("BTCUSD")
	price, qty, ok := ob.BestAsk()
	require.True(t, ok)
	assert.True(t, price.Equal(amt(t, "100")))
	assert.True(t, qty.Equal(amt(t, "5")), "infeasible FOK must not mutate the book")
}

// Scenario F: FOK feasible spanning levels — liquidity across two price
// levels covers the order, so the whole order is filled in one call.
func TestSubmit_FOKFeasibleSpansLevels(t *testing.T) {
	e := newTestEngine()

	s1 := limitOrder(t, "seller1", "BTCUSD", models.Sell, "100", "5")
	s2 := limitOrder(t, "seller2", "BTCUSD", models.Sell, "101", "5")
	_, _, err := e.Submit(s1)
	require.NoError(t, err)
	_, _, err = e.Submit(s2)
	require.NoError(t, err)

	buy := fokOrder(t, "buyer1", "BTCUSD", models.Buy, "101", "8")
	_, trades, err := e.Submit(buy)
	require.NoError(t, err)

	require.Len(t, trades, 2)
	assert.Equal(t, models.Filled, buy.Status)
	assert.True(t, buy.FilledQuantity.Equal(amt(t, "8")))
}

func TestCancel_RemovesRestingOrder(t *testing.T) {
	e := newTestEngine()

	buy := limitOrder(t, "buyer1", "BTCUSD", models.Buy, "100", "5")
	_, _, err := e.Submit(buy)
	require.NoError(t, err)

	cancelled := e.Cancel("buyer1", "BTCUSD")
	require.NotNil(t, cancelled)
	assert.Equal(t, models.Cancelled, cancelled.Status)

	assert.Nil(t, e.Get("buyer1", "BTCUSD"))
}

func TestCancel_UnknownOrderReturnsNil(t *testing.T) {
	e := newTestEngine()
	assert.Nil(t, e.Cancel("nope", "BTCUSD"))
	assert.Nil(t, e.Cancel("nope", "UNKNOWNSYMBOL"))
}

func TestDepthAndBBO(t *testing.T) {
	e := newTestEngine()

	_, _, err := e.Submit(limitOrder(t, "b1", "ETHUSD", models.Buy, "99", "2"))
	require.NoError(t, err)
	_, _, err = e.Submit(limitOrder(t, "a1", "ETHUSD", models.Sell, "101", "3"))
	require.NoError(t, err)

	depth := e.Depth("ETHUSD")
	require.Len(t, depth.Bids, 1)
	require.Len(t, depth.Asks, 1)
	assert.Equal(t, "99", depth.Bids[0].Price)
	assert.Equal(t, "101", depth.Asks[0].Price)

	bbo := e.BBO("ETHUSD")
	require.NotNil(t, bbo.Bid)
	require.NotNil(t, bbo.Ask)
	assert.Equal(t, "99", bbo.Bid.Price)
	assert.Equal(t, "101", bbo.Ask.Price)
}

func TestTradeListenerFanOutIsOrderedAndPanicIsolated(t *testing.T) {
	e := newTestEngine()

	var order []string
	var mu sync.Mutex
	e.RegisterTradeListener(func(trade *models.Trade) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	e.RegisterTradeListener(func(trade *models.Trade) {
		panic("boom")
	})
	e.RegisterTradeListener(func(trade *models.Trade) {
		mu.Lock()
		order = append(order, "third")
		mu.Unlock()
	})

	_, _, err := e.Submit(limitOrder(t, "seller1", "BTCUSD", models.Sell, "100", "5"))
	require.NoError(t, err)
	_, trades, err := e.Submit(limitOrder(t, "buyer1", "BTCUSD", models.Buy, "100", "5"))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	assert.Equal(t, []string{"first", "third"}, order)
}

func TestEngineConcurrency(t *testing.T) {
	e := newTestEngine()
	numGoroutines := 50
	ordersPerGoroutine := 50
	symbol := "BTCUSD"

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ordersPerGoroutine; j++ {
				side := models.Buy
				if (id+j)%2 == 0 {
					side = models.Sell
				}
				order := limitOrder(t, fmt.Sprintf("order-%d-%d", id, j), symbol, side, "100", "1")
				_, _, err := e.Submit(order)
				assert.NoError(t, err)
			}
		}(i)
	}

	wg.Wait()
}

func BenchmarkSubmit(b *testing.B) {
	e := NewEngine(metrics.NewMetrics(), zerolog.Nop())
	symbol := "BTCUSD"

	for i := 0; i < 1000; i++ {
		price, _ := money.ParseAmount(fmt.Sprintf("%d", 1000+i))
		qty, _ := money.ParseAmount("1")
		order, _ := models.NewOrder(fmt.Sprintf("sell-%d", i), nil, symbol, models.Sell, models.Limit, qty, &price)
		e.Submit(order)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		price, _ := money.ParseAmount("1000")
		qty, _ := money.ParseAmount("1")
		order, _ := models.NewOrder(fmt.Sprintf("bench-%d", i), nil, symbol, models.Buy, models.Limit, qty, &price)
		e.Submit(order)
	}
}
