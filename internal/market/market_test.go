package market_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxmarkets/clobcore/internal/book"
	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/engine"
	"github.com/nyxmarkets/clobcore/internal/market"
	"github.com/nyxmarkets/clobcore/internal/packet"
	"github.com/nyxmarkets/clobcore/internal/quantity"
	"github.com/nyxmarkets/clobcore/internal/trader"
)

func newTestMarket(t *testing.T) *market.Market {
	t.Helper()
	header := &clobtypes.MarketHeader{
		TickSize:            10_000,
		BaseLotsPerBaseUnit: 100,
		FeeBps:              0,
		Status:              clobtypes.MarketStatusActive,
	}
	b := book.NewOrderBook(8)
	traders := trader.NewRegistry(8)
	clock := market.NewFixedClock(1, 1_700_000_000)
	return market.New(header, b, traders, clock, market.AllowAllAuthority{})
}

func seatWithDeposit(t *testing.T, m *market.Market, seed byte, base quantity.BaseLots, quote quantity.QuoteLots) clobtypes.TraderIndex {
	t.Helper()
	var identity trader.Identity
	identity[0] = seed
	idx, err := m.RequestSeat(identity)
	require.NoError(t, err)
	require.NoError(t, m.Deposit(idx, base, quote))
	return idx
}

func TestMarketRequestSeatIsIdempotent(t *testing.T) {
	m := newTestMarket(t)
	var identity trader.Identity
	identity[0] = 7

	first, err := m.RequestSeat(identity)
	require.NoError(t, err)
	second, err := m.RequestSeat(identity)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMarketPlaceOrderCrossesAndEmitsEvents(t *testing.T) {
	m := newTestMarket(t)
	a := seatWithDeposit(t, m, 1, 500, 0)
	b := seatWithDeposit(t, m, 2, 0, 10_000_000)

	askWire := packet.Encode(packet.NewPostOnly(clobtypes.Ask, 100, 500, 1, true))
	_, placeEvents, err := m.PlaceOrder(a, "a", askWire)
	require.NoError(t, err)
	require.NotEmpty(t, placeEvents)

	bidWire := packet.Encode(packet.NewImmediateOrCancel(clobtypes.Bid, ptrTicks(100), 500, 0, 2, clobtypes.SelfTradeAbort))
	_, fillEvents, err := m.PlaceOrder(b, "b", bidWire)
	require.NoError(t, err)
	require.NotEmpty(t, fillEvents)

	assert.Equal(t, 0, m.Book.Len(clobtypes.Ask))
	assert.Equal(t, 0, m.Book.Len(clobtypes.Bid))

	bState, err := m.Traders.State(b)
	require.NoError(t, err)
	assert.Equal(t, quantity.BaseLots(500), bState.BaseLotsFree)
}

func TestMarketPlaceOrderRejectsMalformedWire(t *testing.T) {
	m := newTestMarket(t)
	a := seatWithDeposit(t, m, 1, 500, 0)

	_, _, err := m.PlaceOrder(a, "a", []byte{0xFF})
	require.Error(t, err)
}

func TestMarketReduceOrder(t *testing.T) {
	m := newTestMarket(t)
	a := seatWithDeposit(t, m, 1, 300, 0)

	wire := packet.Encode(packet.NewPostOnly(clobtypes.Ask, 100, 300, 1, true))
	ids, _, err := m.PlaceOrder(a, "a", wire)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	size := quantity.BaseLots(100)
	_, err = m.ReduceOrder(a, "a", clobtypes.Ask, ids[0], &size)
	require.NoError(t, err)

	resting, ok := m.Book.Get(clobtypes.Ask, ids[0])
	require.True(t, ok)
	assert.Equal(t, quantity.BaseLots(200), resting.NumBaseLots)
}

func TestMarketCancelAllOrders(t *testing.T) {
	m := newTestMarket(t)
	a := seatWithDeposit(t, m, 1, 300, 10_000_000)

	_, _, err := m.PlaceOrder(a, "a", packet.Encode(packet.NewPostOnly(clobtypes.Ask, 100, 100, 1, true)))
	require.NoError(t, err)
	_, _, err = m.PlaceOrder(a, "a", packet.Encode(packet.NewPostOnly(clobtypes.Bid, 50, 100, 2, true)))
	require.NoError(t, err)

	_, err = m.CancelAllOrders(a, "a")
	require.NoError(t, err)

	assert.Equal(t, 0, m.Book.Len(clobtypes.Ask))
	assert.Equal(t, 0, m.Book.Len(clobtypes.Bid))
}

func TestMarketForceCancelOrdersRejectedWithoutGovernance(t *testing.T) {
	header := &clobtypes.MarketHeader{
		TickSize:            10_000,
		BaseLotsPerBaseUnit: 100,
		Status:              clobtypes.MarketStatusActive,
	}
	b := book.NewOrderBook(8)
	traders := trader.NewRegistry(8)
	clock := market.NewFixedClock(1, 1_700_000_000)
	m := market.New(header, b, traders, clock, market.DenyAllAuthority{})

	a := seatWithDeposit(t, m, 1, 200, 0)
	ids, _, err := m.PlaceOrder(a, "a", packet.Encode(packet.NewPostOnly(clobtypes.Ask, 100, 200, 1, true)))
	require.NoError(t, err)

	_, err = m.ForceCancelOrders("not-governance", []engine.OrderRef{{Side: clobtypes.Ask, ID: ids[0]}})
	require.Error(t, err)

	_, ok := m.Book.Get(clobtypes.Ask, ids[0])
	assert.True(t, ok, "rejected force-cancel must not touch the book")
}

func TestMarketForceCancelOrdersAllowedWithGovernance(t *testing.T) {
	m := newTestMarket(t)
	a := seatWithDeposit(t, m, 1, 200, 0)

	ids, _, err := m.PlaceOrder(a, "a", packet.Encode(packet.NewPostOnly(clobtypes.Ask, 100, 200, 1, true)))
	require.NoError(t, err)

	_, err = m.ForceCancelOrders("governor", []engine.OrderRef{{Side: clobtypes.Ask, ID: ids[0]}})
	require.NoError(t, err)

	_, ok := m.Book.Get(clobtypes.Ask, ids[0])
	assert.False(t, ok)
}

// TestMarketSequenceNumberAdvancesEveryInstruction pins spec §4.5/§8: the
// market sequence number must advance exactly once per instruction at
// flush, not only when an instruction happens to place an order. A
// cancel-only instruction still must bump it, and two such instructions
// in a row must stamp distinct MarketSequenceNumberAtStart values.
func TestMarketSequenceNumberAdvancesEveryInstruction(t *testing.T) {
	m := newTestMarket(t)
	a := seatWithDeposit(t, m, 1, 300, 0)

	_, placeEvents, err := m.PlaceOrder(a, "a", packet.Encode(packet.NewPostOnly(clobtypes.Ask, 100, 300, 1, true)))
	require.NoError(t, err)
	seqAfterPlace := m.Header.SequenceNumber

	_, cancelEvents1, err := m.CancelAllOrders(a, "a")
	require.NoError(t, err)
	assert.Equal(t, seqAfterPlace+1, m.Header.SequenceNumber, "a cancel-only instruction still advances the sequence number")

	_, cancelEvents2, err := m.CancelAllOrders(a, "a")
	require.NoError(t, err)
	assert.Equal(t, seqAfterPlace+2, m.Header.SequenceNumber, "a second consecutive cancel-only instruction advances it again")

	require.NotEmpty(t, placeEvents)
	require.NotEmpty(t, cancelEvents1)
	require.NotEmpty(t, cancelEvents2)
	assert.Less(t, placeEvents[0].Header.MarketSequenceNumberAtStart, cancelEvents1[0].Header.MarketSequenceNumberAtStart)
	assert.Less(t, cancelEvents1[0].Header.MarketSequenceNumberAtStart, cancelEvents2[0].Header.MarketSequenceNumberAtStart)
}

func TestFixedClockAdvance(t *testing.T) {
	c := market.NewFixedClock(10, 1_000)
	c.Advance(5, 30)
	now := c.Now()
	assert.Equal(t, uint64(15), now.Slot)
	assert.Equal(t, int64(1_030), now.UnixTs)
}

func ptrTicks(v uint64) *quantity.Ticks {
	t := quantity.Ticks(v)
	return &t
}
