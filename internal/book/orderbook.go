package book

import (
	"sync"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"

	"repello/internal/models"
	"repello/internal/money"
)

// priceComparator orders two priceKey values ascending.
func priceComparator(a, b interface{}) int {
	return a.(priceKey).amount.Cmp(b.(priceKey).amount)
}

// reversePriceComparator orders two priceKey values descending, used for
// the bids side so the tree's minimum (Left()) is the best (highest) bid.
func reversePriceComparator(a, b interface{}) int {
	return -priceComparator(a, b)
}

// priceKey wraps money.Price so it satisfies the comparable-via-function
// contract redblacktree expects without requiring Price itself to be a
// map key type (decimal.Decimal is not comparable with ==).
type priceKey struct {
	amount money.Price
}

// OrderBook is the per-symbol order book: two price-indexed maps (bids
// descending, asks ascending), an order-id index across both sides, and
// the book's own RWMutex — the teacher's lock-per-book concurrency model
// (spec §5).
type OrderBook struct {
	Symbol      string
	Bids        *redblacktree.Tree // priceKey -> *PriceLevel, best = Left()
	Asks        *redblacktree.Tree // priceKey -> *PriceLevel, best = Left()
	orders      map[string]*models.Order
	LastUpdated time.Time

	mu sync.RWMutex
}

// NewOrderBook creates an empty book for symbol.
func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		Symbol:      symbol,
		Bids:        redblacktree.NewWith(reversePriceComparator),
		Asks:        redblacktree.NewWith(priceComparator),
		orders:      make(map[string]*models.Order),
		LastUpdated: time.Now().UTC(),
	}
}

// Lock/Unlock/RLock/RUnlock expose the book's mutex so the matching
// engine can hold a single critical section across an entire
// process_order call (spec §5: all operations on a given book are
// mutually exclusive).
func (ob *OrderBook) Lock()    { ob.mu.Lock() }
func (ob *OrderBook) Unlock()  { ob.mu.Unlock() }
func (ob *OrderBook) RLock()   { ob.mu.RLock() }
func (ob *OrderBook) RUnlock() { ob.mu.RUnlock() }

func (ob *OrderBook) treeFor(side models.Side) *redblacktree.Tree {
	if side == models.Buy {
		return ob.Bids
	}
	return ob.Asks
}

// Add admits order to the book. order.Status must already be OPEN or
// PARTIALLY_FILLED (a limit order resting after a partial match). Returns
// a DUPLICATE error if order.ID is already indexed.
func (ob *OrderBook) Add(order *models.Order) error {
	if _, exists := ob.orders[order.ID]; exists {
		return models.NewDuplicateError(order.ID)
	}

	tree := ob.treeFor(order.Side)
	key := priceKey{amount: *order.Price}
	var level *PriceLevel
	if v, found := tree.Get(key); found {
		level = v.(*PriceLevel)
	} else {
		level = NewPriceLevel(*order.Price)
		tree.Put(key, level)
	}
	level.Add(order)
	ob.orders[order.ID] = order
	ob.LastUpdated = time.Now().UTC()
	return nil
}

// Remove removes and returns the order with the given id, or nil if not
// indexed. The containing PriceLevel is dropped from its tree the instant
// it becomes empty.
func (ob *OrderBook) Remove(orderID string) *models.Order {
	order, exists := ob.orders[orderID]
	if !exists {
		return nil
	}

	tree := ob.treeFor(order.Side)
	key := priceKey{amount: *order.Price}
	if v, found := tree.Get(key); found {
		level := v.(*PriceLevel)
		level.Remove(orderID)
		if level.IsEmpty() {
			tree.Remove(key)
		}
	}
	delete(ob.orders, orderID)
	ob.LastUpdated = time.Now().UTC()
	return order
}

// Get looks up an order by id without mutating the book.
func (ob *OrderBook) Get(orderID string) *models.Order {
	return ob.orders[orderID]
}

// BestBid returns the highest bid price and that level's aggregate
// quantity, or ok=false if there are no bids.
func (ob *OrderBook) BestBid() (price money.Price, qty money.Price, ok bool) {
	return bestOf(ob.Bids)
}

// BestAsk returns the lowest ask price and that level's aggregate
// quantity, or ok=false if there are no asks.
func (ob *OrderBook) BestAsk() (price money.Price, qty money.Price, ok bool) {
	return bestOf(ob.Asks)
}

func bestOf(tree *redblacktree.Tree) (price money.Price, qty money.Price, ok bool) {
	node := tree.Left()
	if node == nil {
		return price, qty, false
	}
	level := node.Value.(*PriceLevel)
	return level.Price, level.TotalQuantity, true
}

// Levels walks the given side's tree best-first, invoking fn for each
// non-empty level. Used by the FOK feasibility scan and depth snapshots,
// which observe the same best-first ordering the matching loop gets from
// BestLevel.
func (ob *OrderBook) Levels(side models.Side, fn func(level *PriceLevel) bool) {
	it := ob.treeFor(side).Iterator()
	it.Begin()
	for it.Next() {
		level := it.Value().(*PriceLevel)
		if !fn(level) {
			return
		}
	}
}

// BestLevel returns the best (first-to-match) PriceLevel on side, or nil
// if that side has no resting liquidity. Unlike BestBid/BestAsk it hands
// back the level itself so the matching loop can pop and decrement it
// directly.
func (ob *OrderBook) BestLevel(side models.Side) *PriceLevel {
	node := ob.treeFor(side).Left()
	if node == nil {
		return nil
	}
	return node.Value.(*PriceLevel)
}

// PopFilledHead removes level's now-fully-filled head order, deletes it
// from the book-wide id index, and drops level from its tree if that
// leaves it empty. level must be the current BestLevel(side). Exported
// because orders is unexported and the matching engine lives in a
// different package.
func (ob *OrderBook) PopFilledHead(side models.Side, level *PriceLevel) *models.Order {
	order := level.PopOldest()
	if order != nil {
		delete(ob.orders, order.ID)
		ob.LastUpdated = time.Now().UTC()
	}
	if level.IsEmpty() {
		ob.RemoveLevelIfEmpty(side, level.Price)
	}
	return order
}

// RemoveLevelIfEmpty drops the price level for side/price from its tree
// if it has become empty. Called by the matching loop after consuming a
// level's liquidity.
func (ob *OrderBook) RemoveLevelIfEmpty(side models.Side, price money.Price) {
	tree := ob.treeFor(side)
	key := priceKey{amount: price}
	if v, found := tree.Get(key); found {
		if v.(*PriceLevel).IsEmpty() {
			tree.Remove(key)
		}
	}
}
