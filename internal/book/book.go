// Package book implements the two price-time-priority ordered containers of
// spec §4.2: bids descending by price then ascending by sequence, asks
// ascending by price then ascending by sequence. It generalizes the
// teacher's (saiputravu-Exchange) tidwall/btree price-level map —
// internal/engine/orderbook.go there indexes a btree.BTreeG[*PriceLevel] by
// price alone and keeps per-level time priority as an order slice — into a
// single btree.BTreeG[entry] per side keyed directly on the full
// FIFOOrderId, since spec §3 defines priority over (price, sequence) as one
// unit rather than two.
package book

import (
	"github.com/tidwall/btree"

	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/quantity"
)

// entry is the btree element. Order is a pointer so in-place mutation of
// NumBaseLots during matching (spec §4.2 "must support in-place mutation ...
// without invalidating iteration state") never needs a remove+reinsert: the
// sort key is entry.ID alone, and it never changes after insertion.
type entry struct {
	ID    clobtypes.FIFOOrderId
	Order *clobtypes.RestingOrder
}

// Entry is an exported, value-copy snapshot of a resting order, for
// inspection/testing without exposing the live pointer.
type Entry struct {
	ID    clobtypes.FIFOOrderId
	Order clobtypes.RestingOrder
}

// OrderBook holds one side-pair of fixed-capacity, price-time-priority
// resting-order containers.
type OrderBook struct {
	bids *btree.BTreeG[entry]
	asks *btree.BTreeG[entry]

	capacityPerSide int
	nBids           int
	nAsks           int
}

// NewOrderBook constructs an empty book with the given per-side capacity.
func NewOrderBook(capacityPerSide int) *OrderBook {
	return &OrderBook{
		bids: btree.NewBTreeG(func(a, b entry) bool {
			return clobtypes.Less(clobtypes.Bid, a.ID, b.ID)
		}),
		asks: btree.NewBTreeG(func(a, b entry) bool {
			return clobtypes.Less(clobtypes.Ask, a.ID, b.ID)
		}),
		capacityPerSide: capacityPerSide,
	}
}

func (b *OrderBook) tree(side clobtypes.Side) *btree.BTreeG[entry] {
	if side == clobtypes.Bid {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) count(side clobtypes.Side) int {
	if side == clobtypes.Bid {
		return b.nBids
	}
	return b.nAsks
}

func (b *OrderBook) adjustCount(side clobtypes.Side, delta int) {
	if side == clobtypes.Bid {
		b.nBids += delta
	} else {
		b.nAsks += delta
	}
}

// Len reports the number of resting orders on side.
func (b *OrderBook) Len(side clobtypes.Side) int {
	return b.count(side)
}

// Best peeks the best-priority resting order on side (O(log N)).
func (b *OrderBook) Best(side clobtypes.Side) (clobtypes.FIFOOrderId, *clobtypes.RestingOrder, bool) {
	e, ok := b.tree(side).Min()
	if !ok {
		return clobtypes.FIFOOrderId{}, nil, false
	}
	return e.ID, e.Order, true
}

// Worst peeks the worst-priority resting order on side — the candidate an
// Insert eviction would remove (spec §4.2).
func (b *OrderBook) Worst(side clobtypes.Side) (clobtypes.FIFOOrderId, *clobtypes.RestingOrder, bool) {
	e, ok := b.tree(side).Max()
	if !ok {
		return clobtypes.FIFOOrderId{}, nil, false
	}
	return e.ID, e.Order, true
}

// BestPrice peeks the best resting price on side.
func (b *OrderBook) BestPrice(side clobtypes.Side) (quantity.Ticks, bool) {
	id, _, ok := b.Best(side)
	if !ok {
		return 0, false
	}
	return id.PriceInTicks, true
}

// Get fetches the resting order at id on side without removing it.
func (b *OrderBook) Get(side clobtypes.Side, id clobtypes.FIFOOrderId) (*clobtypes.RestingOrder, bool) {
	e, ok := b.tree(side).Get(entry{ID: id})
	if !ok {
		return nil, false
	}
	return e.Order, true
}

// Remove deletes and returns the resting order at id on side.
func (b *OrderBook) Remove(side clobtypes.Side, id clobtypes.FIFOOrderId) (*clobtypes.RestingOrder, bool) {
	e, ok := b.tree(side).Delete(entry{ID: id})
	if !ok {
		return nil, false
	}
	b.adjustCount(side, -1)
	return e.Order, true
}

// InsertResult reports what Insert actually did, including an eviction.
type InsertResult struct {
	EvictedID    clobtypes.FIFOOrderId
	EvictedOrder *clobtypes.RestingOrder
	Evicted      bool
}

// Insert places a new resting order, applying the capacity/eviction rule of
// spec §4.2: when the side is full, a strictly-better-priority order
// evicts the current worst; otherwise Insert fails with ErrBookFull.
func (b *OrderBook) Insert(side clobtypes.Side, id clobtypes.FIFOOrderId, order *clobtypes.RestingOrder) (InsertResult, error) {
	if b.count(side) >= b.capacityPerSide {
		worstID, worstOrder, ok := b.Worst(side)
		if !ok || !clobtypes.Less(side, id, worstID) {
			return InsertResult{}, ErrBookFull
		}
		b.tree(side).Delete(entry{ID: worstID})
		b.adjustCount(side, -1)
		b.tree(side).Set(entry{ID: id, Order: order})
		b.adjustCount(side, 1)
		return InsertResult{EvictedID: worstID, EvictedOrder: worstOrder, Evicted: true}, nil
	}

	b.tree(side).Set(entry{ID: id, Order: order})
	b.adjustCount(side, 1)
	return InsertResult{}, nil
}

// Snapshot returns a best-priority-first, value-copied view of side, for
// tests and event-log replay comparisons.
func (b *OrderBook) Snapshot(side clobtypes.Side) []Entry {
	out := make([]Entry, 0, b.count(side))
	b.tree(side).Scan(func(e entry) bool {
		out = append(out, Entry{ID: e.ID, Order: *e.Order})
		return true
	})
	return out
}
