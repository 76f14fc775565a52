package book_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxmarkets/clobcore/internal/book"
	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/quantity"
)

func id(price uint64, seq uint64) clobtypes.FIFOOrderId {
	return clobtypes.FIFOOrderId{PriceInTicks: quantity.Ticks(price), SequenceNumber: seq}
}

func TestInsertAndBestPriceTime(t *testing.T) {
	b := book.NewOrderBook(10)

	_, err := b.Insert(clobtypes.Bid, id(99, 1), &clobtypes.RestingOrder{NumBaseLots: 100})
	require.NoError(t, err)
	_, err = b.Insert(clobtypes.Bid, id(100, 2), &clobtypes.RestingOrder{NumBaseLots: 50})
	require.NoError(t, err)
	_, err = b.Insert(clobtypes.Bid, id(100, 0), &clobtypes.RestingOrder{NumBaseLots: 30})
	require.NoError(t, err)

	bestID, bestOrder, ok := b.Best(clobtypes.Bid)
	require.True(t, ok)
	// Best bid is highest price; among price 100, lowest sequence first.
	assert.Equal(t, id(100, 0), bestID)
	assert.Equal(t, quantity.BaseLots(30), bestOrder.NumBaseLots)
}

func TestAskOrderingAscendingPrice(t *testing.T) {
	b := book.NewOrderBook(10)
	_, _ = b.Insert(clobtypes.Ask, id(105, 1), &clobtypes.RestingOrder{NumBaseLots: 1})
	_, _ = b.Insert(clobtypes.Ask, id(100, 2), &clobtypes.RestingOrder{NumBaseLots: 1})

	bestID, _, ok := b.Best(clobtypes.Ask)
	require.True(t, ok)
	assert.Equal(t, id(100, 2), bestID)
}

func TestRemoveAndLen(t *testing.T) {
	b := book.NewOrderBook(10)
	_, _ = b.Insert(clobtypes.Bid, id(99, 1), &clobtypes.RestingOrder{NumBaseLots: 10})
	assert.Equal(t, 1, b.Len(clobtypes.Bid))

	removed, ok := b.Remove(clobtypes.Bid, id(99, 1))
	require.True(t, ok)
	assert.Equal(t, quantity.BaseLots(10), removed.NumBaseLots)
	assert.Equal(t, 0, b.Len(clobtypes.Bid))

	_, ok = b.Remove(clobtypes.Bid, id(99, 1))
	assert.False(t, ok)
}

func TestInPlaceMutationDoesNotDisturbOrdering(t *testing.T) {
	b := book.NewOrderBook(10)
	_, _ = b.Insert(clobtypes.Ask, id(100, 1), &clobtypes.RestingOrder{NumBaseLots: 100})

	_, order, ok := b.Best(clobtypes.Ask)
	require.True(t, ok)
	order.NumBaseLots -= 40

	_, orderAgain, ok := b.Best(clobtypes.Ask)
	require.True(t, ok)
	assert.Equal(t, quantity.BaseLots(60), orderAgain.NumBaseLots)
}

func TestEvictionOnFullBookWithBetterPriority(t *testing.T) {
	b := book.NewOrderBook(2)
	_, _ = b.Insert(clobtypes.Ask, id(200, 1), &clobtypes.RestingOrder{NumBaseLots: 5})
	_, _ = b.Insert(clobtypes.Ask, id(150, 2), &clobtypes.RestingOrder{NumBaseLots: 5})

	// Book full; worst ask is 200 (highest price = worst for asks).
	worstID, _, ok := b.Worst(clobtypes.Ask)
	require.True(t, ok)
	assert.Equal(t, id(200, 1), worstID)

	res, err := b.Insert(clobtypes.Ask, id(100, 3), &clobtypes.RestingOrder{NumBaseLots: 5})
	require.NoError(t, err)
	assert.True(t, res.Evicted)
	assert.Equal(t, id(200, 1), res.EvictedID)
	assert.Equal(t, 2, b.Len(clobtypes.Ask))

	bestID, _, _ := b.Best(clobtypes.Ask)
	assert.Equal(t, id(100, 3), bestID)
}

func TestInsertFailsWhenFullAndNotBetter(t *testing.T) {
	b := book.NewOrderBook(1)
	_, err := b.Insert(clobtypes.Ask, id(100, 1), &clobtypes.RestingOrder{NumBaseLots: 5})
	require.NoError(t, err)

	// Same or worse price cannot evict.
	_, err = b.Insert(clobtypes.Ask, id(100, 2), &clobtypes.RestingOrder{NumBaseLots: 5})
	assert.ErrorIs(t, err, book.ErrBookFull)

	_, err = b.Insert(clobtypes.Ask, id(150, 2), &clobtypes.RestingOrder{NumBaseLots: 5})
	assert.ErrorIs(t, err, book.ErrBookFull)
}

func TestSnapshotOrdering(t *testing.T) {
	b := book.NewOrderBook(10)
	_, _ = b.Insert(clobtypes.Bid, id(99, 1), &clobtypes.RestingOrder{NumBaseLots: 1})
	_, _ = b.Insert(clobtypes.Bid, id(101, 2), &clobtypes.RestingOrder{NumBaseLots: 1})
	_, _ = b.Insert(clobtypes.Bid, id(100, 3), &clobtypes.RestingOrder{NumBaseLots: 1})

	snap := b.Snapshot(clobtypes.Bid)
	require.Len(t, snap, 3)
	assert.Equal(t, id(101, 2), snap[0].ID)
	assert.Equal(t, id(100, 3), snap[1].ID)
	assert.Equal(t, id(99, 1), snap[2].ID)
}
