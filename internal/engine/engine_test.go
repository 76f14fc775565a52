package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxmarkets/clobcore/internal/book"
	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/engine"
	"github.com/nyxmarkets/clobcore/internal/events"
	"github.com/nyxmarkets/clobcore/internal/packet"
	"github.com/nyxmarkets/clobcore/internal/quantity"
	"github.com/nyxmarkets/clobcore/internal/trader"
)

// newTestMarket builds the market described in spec §8's concrete
// scenarios: tick = 10_000 quote-lots/base-unit/tick, 100 base lots per
// base unit, fee = feeBps.
func newTestMarket(t *testing.T, feeBps uint16, bookCapacity, traderCapacity int) (*engine.Engine, *trader.Registry) {
	t.Helper()
	header := &clobtypes.MarketHeader{
		TickSize:            10_000,
		BaseLotsPerBaseUnit: 100,
		FeeBps:              feeBps,
		Status:              clobtypes.MarketStatusActive,
	}
	b := book.NewOrderBook(bookCapacity)
	traders := trader.NewRegistry(traderCapacity)
	return engine.New(header, b, traders), traders
}

func seat(t *testing.T, traders *trader.Registry, base quantity.BaseLots, quote quantity.QuoteLots) clobtypes.TraderIndex {
	t.Helper()
	var identity trader.Identity
	identity[0] = byte(traders.Len()) + 1
	idx, err := traders.RequestSeat(identity)
	require.NoError(t, err)
	require.NoError(t, traders.Deposit(idx, base, quote))
	return idx
}

func recorder(t *testing.T) *events.Recorder {
	t.Helper()
	r := events.NewRecorder(64)
	require.NoError(t, r.Open(events.Header{}))
	return r
}

func TestScenario1_CrossThinBook(t *testing.T) {
	e, traders := newTestMarket(t, 0, 8, 8)
	a := seat(t, traders, 500, 0)
	b := seat(t, traders, 0, 10_000_000)
	rec := recorder(t)

	_, err := e.PlaceOrder(a, packet.NewPostOnly(clobtypes.Ask, 100, 500, 1, true), events.Now{}, rec)
	require.NoError(t, err)

	ioc := packet.NewImmediateOrCancel(clobtypes.Bid, ptrTicks(100), 500, 0, 2, clobtypes.SelfTradeAbort)
	_, err = e.PlaceOrder(b, ioc, events.Now{}, rec)
	require.NoError(t, err)

	assert.Equal(t, 0, e.Book.Len(clobtypes.Ask))
	assert.Equal(t, 0, e.Book.Len(clobtypes.Bid))

	aState, err := traders.State(a)
	require.NoError(t, err)
	assert.Equal(t, quantity.BaseLots(0), aState.BaseLotsLocked)

	bState, err := traders.State(b)
	require.NoError(t, err)
	assert.Equal(t, quantity.QuoteLots(0), bState.QuoteLotsLocked)
	assert.Equal(t, quantity.BaseLots(500), bState.BaseLotsFree)
}

func TestScenario2_PartialFillThenPost(t *testing.T) {
	e, traders := newTestMarket(t, 0, 8, 8)
	a := seat(t, traders, 300, 0)
	b := seat(t, traders, 0, 10_000_000)
	rec := recorder(t)

	_, err := e.PlaceOrder(a, packet.NewPostOnly(clobtypes.Ask, 100, 300, 1, true), events.Now{}, rec)
	require.NoError(t, err)

	ids, err := e.PlaceOrder(b, packet.NewLimit(clobtypes.Bid, 100, 500, 2, clobtypes.SelfTradeAbort), events.Now{}, rec)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	assert.Equal(t, 0, e.Book.Len(clobtypes.Ask))
	require.Equal(t, 1, e.Book.Len(clobtypes.Bid))
	resting, ok := e.Book.Get(clobtypes.Bid, ids[0])
	require.True(t, ok)
	assert.Equal(t, quantity.BaseLots(200), resting.NumBaseLots)
	assert.Equal(t, quantity.Ticks(100), ids[0].PriceInTicks)
}

func TestScenario3_PostOnlyAmendment(t *testing.T) {
	e, traders := newTestMarket(t, 0, 8, 8)
	a := seat(t, traders, 300, 0)
	b := seat(t, traders, 0, 10_000_000)
	rec := recorder(t)

	_, err := e.PlaceOrder(a, packet.NewPostOnly(clobtypes.Ask, 100, 300, 1, true), events.Now{}, rec)
	require.NoError(t, err)

	p := packet.NewPostOnly(clobtypes.Bid, 100, 200, 2, false)
	ids, err := e.PlaceOrder(b, p, events.Now{}, rec)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, quantity.Ticks(99), ids[0].PriceInTicks)

	require.Equal(t, 1, e.Book.Len(clobtypes.Ask))
	require.Equal(t, 1, e.Book.Len(clobtypes.Bid))
}

func TestScenario4_FOKRejection(t *testing.T) {
	e, traders := newTestMarket(t, 0, 8, 8)
	a := seat(t, traders, 100, 0)
	b := seat(t, traders, 0, 10_000_000)
	rec := recorder(t)

	_, err := e.PlaceOrder(a, packet.NewPostOnly(clobtypes.Ask, 100, 100, 1, true), events.Now{}, rec)
	require.NoError(t, err)
	baseBefore := rec.Len()

	fok := packet.NewImmediateOrCancel(clobtypes.Bid, ptrTicks(100), 500, 0, 2, clobtypes.SelfTradeAbort)
	fok.MinBaseLotsToFill = 500
	_, err = e.PlaceOrder(b, fok, events.Now{}, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrFillOrKillNotFilled)

	require.Equal(t, 1, e.Book.Len(clobtypes.Ask))
	resting, ok := e.Book.Get(clobtypes.Ask, clobtypes.FIFOOrderId{PriceInTicks: 100, SequenceNumber: 0})
	require.True(t, ok)
	assert.Equal(t, quantity.BaseLots(100), resting.NumBaseLots, "A's ask is untouched")
	assert.Equal(t, baseBefore, rec.Len(), "no events survive beyond what preceded the reverted instruction")

	bState, err := traders.State(b)
	require.NoError(t, err)
	assert.Equal(t, quantity.QuoteLots(0), bState.QuoteLotsLocked)
	assert.Equal(t, quantity.QuoteLots(10_000_000), bState.QuoteLotsFree)
}

func TestScenario5_SelfTradeCancelProvide(t *testing.T) {
	e, traders := newTestMarket(t, 0, 8, 8)
	a := seat(t, traders, 200, 10_000_000)
	rec := recorder(t)

	_, err := e.PlaceOrder(a, packet.NewPostOnly(clobtypes.Ask, 100, 200, 1, true), events.Now{}, rec)
	require.NoError(t, err)

	p := packet.NewLimit(clobtypes.Bid, 100, 500, 2, clobtypes.SelfTradeCancelProvide)
	ids, err := e.PlaceOrder(a, p, events.Now{}, rec)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	assert.Equal(t, 0, e.Book.Len(clobtypes.Ask), "A's ask was cancelled, not filled")
	require.Equal(t, 1, e.Book.Len(clobtypes.Bid))
	resting, ok := e.Book.Get(clobtypes.Bid, ids[0])
	require.True(t, ok)
	assert.Equal(t, quantity.BaseLots(500), resting.NumBaseLots, "full budget posted, no fills")
}

func TestScenario6_Eviction(t *testing.T) {
	e, traders := newTestMarket(t, 0, 1, 8)
	worst := seat(t, traders, 100, 0)
	rec := recorder(t)

	_, err := e.PlaceOrder(worst, packet.NewPostOnly(clobtypes.Ask, 200, 100, 1, true), events.Now{}, rec)
	require.NoError(t, err)

	newcomer := seat(t, traders, 100, 0)
	p := packet.NewPostOnly(clobtypes.Ask, 150, 100, 2, true)
	ids, err := e.PlaceOrder(newcomer, p, events.Now{}, rec)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	require.Equal(t, 1, e.Book.Len(clobtypes.Ask))
	_, stillThere := e.Book.Get(clobtypes.Ask, ids[0])
	assert.True(t, stillThere)

	worstState, err := traders.State(worst)
	require.NoError(t, err)
	assert.Equal(t, quantity.BaseLots(0), worstState.BaseLotsLocked)
	assert.Equal(t, quantity.BaseLots(100), worstState.BaseLotsFree)
}

func ptrTicks(v uint64) *quantity.Ticks {
	t := quantity.Ticks(v)
	return &t
}
