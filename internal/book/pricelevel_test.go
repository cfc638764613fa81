package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repello/internal/models"
	"repello/internal/money"
)

func mustAmount(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.ParseAmount(s)
	require.NoError(t, err)
	return a
}

func newTestOrder(t *testing.T, id string, qty string) *models.Order {
	t.Helper()
	price := mustAmount(t, "100")
	o, err := models.NewOrder(id, nil, "BTCUSD", models.Buy, models.Limit, mustAmount(t, qty), &price)
	require.NoError(t, err)
	return o
}

func TestPriceLevel_AddAndPeekIsFIFO(t *testing.T) {
	l := NewPriceLevel(mustAmount(t, "100"))
	l.Add(newTestOrder(t, "a", "5"))
	l.Add(newTestOrder(t, "b", "5"))

	assert.Equal(t, "a", l.PeekOldest().ID)
	assert.True(t, l.TotalQuantity.Equal(mustAmount(t, "10")))
}

// This is the bug spec §9 calls out: TotalQuantity must decrement on
// every fill against the head order, not only when the head is fully
// filled and popped. Otherwise best_bid/ask quantity reads stale data
// between a partial fill of the head and its eventual pop.
func TestPriceLevel_DecrementsOnEveryPartialFill(t *testing.T) {
	l := NewPriceLevel(mustAmount(t, "100"))
	l.Add(newTestOrder(t, "a", "10"))

	l.DecrementQuantity(mustAmount(t, "3"))
	assert.True(t, l.TotalQuantity.Equal(mustAmount(t, "7")), "total must reflect the partial fill immediately")

	l.DecrementQuantity(mustAmount(t, "7"))
	assert.True(t, l.TotalQuantity.IsZero())

	// PopOldest must not double-decrement: the quantity was already
	// accounted for incrementally above.
	head := l.PopOldest()
	require.NotNil(t, head)
	assert.Equal(t, "a", head.ID)
	assert.True(t, l.TotalQuantity.IsZero())
	assert.True(t, l.IsEmpty())
}

func TestPriceLevel_RemoveArbitraryOrderPreservesFIFOOrder(t *testing.T) {
	l := NewPriceLevel(mustAmount(t, "100"))
	l.Add(newTestOrder(t, "a", "5"))
	l.Add(newTestOrder(t, "b", "5"))
	l.Add(newTestOrder(t, "c", "5"))

	removed := l.Remove("b")
	require.NotNil(t, removed)
	assert.Equal(t, "b", removed.ID)
	assert.True(t, l.TotalQuantity.Equal(mustAmount(t, "10")))

	assert.Equal(t, "a", l.PeekOldest().ID)
	l.PopOldest()
	assert.Equal(t, "c", l.PeekOldest().ID, "removing b must not disturb a/c ordering")
}

func TestPriceLevel_RemoveUnknownOrderIsNoop(t *testing.T) {
	l := NewPriceLevel(mustAmount(t, "100"))
	l.Add(newTestOrder(t, "a", "5"))

	assert.Nil(t, l.Remove("missing"))
	assert.True(t, l.TotalQuantity.Equal(mustAmount(t, "5")))
}

func TestOrderBook_AddRemoveAndBestPrice(t *testing.T) {
	ob := NewOrderBook("BTCUSD")

	low := newBuyOrder(t, "low", "99", "1")
	high := newBuyOrder(t, "high", "101", "1")
	require.NoError(t, ob.Add(low))
	require.NoError(t, ob.Add(high))

	price, _, ok := ob.BestBid()
	require.True(t, ok)
	assert.True(t, price.Equal(mustAmount(t, "101")), "best bid must be the highest price")

	ob.Remove("high")
	price, _, ok = ob.BestBid()
	require.True(t, ok)
	assert.True(t, price.Equal(mustAmount(t, "99")))
}

func TestOrderBook_AddDuplicateRejected(t *testing.T) {
	ob := NewOrderBook("BTCUSD")
	order := newBuyOrder(t, "dup", "100", "1")
	require.NoError(t, ob.Add(order))

	err := ob.Add(order)
	require.Error(t, err)
	kind, ok := models.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, models.KindDuplicate, kind)
}

func newBuyOrder(t *testing.T, id, price, qty string) *models.Order {
	t.Helper()
	p := mustAmount(t, price)
	o, err := models.NewOrder(id, nil, "BTCUSD", models.Buy, models.Limit, mustAmount(t, qty), &p)
	require.NoError(t, err)
	return o
}
