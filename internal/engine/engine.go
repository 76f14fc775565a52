// Package engine implements the deterministic matching engine of spec
// §4.4: preflight validation, the three order-packet handlers (post-only,
// limit, immediate-or-cancel/fill-or-kill), the match loop with
// self-trade handling and fee computation, and the cancel/reduce family.
//
// Grounded on the teacher's (saiputravu-Exchange) internal/engine/{engine,
// orderbook}.go: the sweep loop here generalizes its handleMarket/Match
// price-time sweep, and Engine.Trade generalizes into settleFill below.
// The teacher mutates book and order state directly as it walks the
// sweep; this engine does the same, but pushes an undo closure after each
// mutating step onto a local stack so §4.4.3's fill-or-kill void path can
// unwind a partially-applied match loop without a second, parallel
// "simulate first" implementation.
package engine

import (
	"github.com/nyxmarkets/clobcore/internal/book"
	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/events"
	"github.com/nyxmarkets/clobcore/internal/packet"
	"github.com/nyxmarkets/clobcore/internal/quantity"
	"github.com/nyxmarkets/clobcore/internal/trader"
)

// Engine owns one market's mutable state: the header (sequencing + static
// params), the order book, and the trader registry. One Engine serves one
// market; a host running many markets owns one Engine per market (spec §1
// "one market per program instance").
type Engine struct {
	Header  *clobtypes.MarketHeader
	Book    *book.OrderBook
	Traders *trader.Registry
}

// New constructs an engine over an already-initialized header and
// fixed-capacity book/registry pair.
func New(header *clobtypes.MarketHeader, book *book.OrderBook, traders *trader.Registry) *Engine {
	return &Engine{Header: header, Book: book, Traders: traders}
}

// undoStack accumulates compensating actions for the current instruction.
// Pushed in mutation order, unwound in reverse on void/abort.
type undoStack []func()

func (u *undoStack) push(fn func()) { *u = append(*u, fn) }

func (u undoStack) unwind() {
	for i := len(u) - 1; i >= 0; i-- {
		u[i]()
	}
}

// preflight runs the market-state-independent and market-state-dependent
// checks common to every order placement (spec §4.4 "Preflight").
func (e *Engine) preflight(p packet.OrderPacket, now events.Now) error {
	if e.Header.Status != clobtypes.MarketStatusActive && !(e.Header.Status == clobtypes.MarketStatusPostOnly && p.IsPostOnly()) {
		return wrap(KindInvalidState, ErrMarketNotActive)
	}
	if err := p.Validate(); err != nil {
		return wrap(KindInvalidInstructionData, err)
	}
	if p.Expired(now.Slot, now.UnixTs) {
		return wrap(KindInvalidState, ErrExpiredPacket)
	}
	return nil
}

func (e *Engine) requireSeat(idx clobtypes.TraderIndex) error {
	state, err := e.Traders.State(idx)
	if err != nil {
		return wrap(KindInvalidState, err)
	}
	if !state.SeatApproved {
		return wrap(KindInvalidState, ErrSeatNotApproved)
	}
	return nil
}

// requiredQuoteLockup computes the up-front quote-lot lockup for a resting
// bid (it will pay that much to buy), rounded up. An ask's lockup is its
// base lots, which lockForResting locks directly without this helper.
func (e *Engine) requiredQuoteLockup(price quantity.Ticks, numBaseLots quantity.BaseLots) (quantity.QuoteLots, error) {
	adjusted, err := quantity.TradeAdjustedQuoteLots(numBaseLots, price, e.Header.TickSize)
	if err != nil {
		return 0, wrap(KindNumericalOverflow, err)
	}
	q, err := adjusted.ToQuoteLotsCeil(e.Header.BaseLotsPerBaseUnit)
	if err != nil {
		return 0, wrap(KindNumericalOverflow, err)
	}
	return q, nil
}

// lockForResting locks the funds a new resting order of (side, price,
// size) requires, pushing the matching unlock onto undo, and returns the
// quote-lot amount locked for a bid (0 for an ask) so the caller can stash
// it on the new RestingOrder as its QuoteLotsLocked starting balance.
func (e *Engine) lockForResting(idx clobtypes.TraderIndex, side clobtypes.Side, price quantity.Ticks, numBaseLots quantity.BaseLots, u *undoStack) (quantity.QuoteLots, error) {
	if side == clobtypes.Bid {
		quoteLots, err := e.requiredQuoteLockup(price, numBaseLots)
		if err != nil {
			return 0, err
		}
		if err := e.Traders.LockQuote(idx, quoteLots); err != nil {
			return 0, wrap(KindAccountingInvariant, err)
		}
		u.push(func() { _ = e.Traders.UnlockQuote(idx, quoteLots) })
		return quoteLots, nil
	}
	if err := e.Traders.LockBase(idx, numBaseLots); err != nil {
		return 0, wrap(KindAccountingInvariant, err)
	}
	u.push(func() { _ = e.Traders.UnlockBase(idx, numBaseLots) })
	return 0, nil
}

// reduceRestingLockup releases reduceBy base lots' worth of a resting
// order's reservation back to its owner, pushing the matching re-lock
// onto undo. For an ask this is exact and lot-for-lot (base lots never
// round). For a bid, resting.QuoteLotsLocked is the source of truth:
// consuming the order's whole remaining size releases exactly what is
// left there, and a partial consumption releases a floor-rounded share
// and decrements the field by that share — so repeated partial calls
// (fills, reduces) can never together release more than the ceil-rounded
// amount reserved at placement (spec §3 invariant 2).
func (e *Engine) reduceRestingLockup(resting *clobtypes.RestingOrder, side clobtypes.Side, price quantity.Ticks, reduceBy quantity.BaseLots, u *undoStack) error {
	if side == clobtypes.Ask {
		if err := e.Traders.UnlockBase(resting.TraderIndex, reduceBy); err != nil {
			return wrap(KindAccountingInvariant, err)
		}
		u.push(func() { _ = e.Traders.LockBase(resting.TraderIndex, reduceBy) })
		return nil
	}

	amount, err := e.releaseBidLockup(resting, price, reduceBy, u)
	if err != nil {
		return err
	}
	if err := e.Traders.UnlockQuote(resting.TraderIndex, amount); err != nil {
		return wrap(KindAccountingInvariant, err)
	}
	u.push(func() { _ = e.Traders.LockQuote(resting.TraderIndex, amount) })
	return nil
}

// spendRestingLockup permanently consumes reduceBy base lots' worth of a
// resting order's reservation as the result of a fill. Unlike
// reduceRestingLockup (a cancel, reduce, expiry, or eviction — the owner
// gets their own reservation back), a fill transfers custody to the
// counterparty: the spent amount must vanish from the owner's locked
// balance, not reappear in their free balance.
func (e *Engine) spendRestingLockup(resting *clobtypes.RestingOrder, side clobtypes.Side, price quantity.Ticks, reduceBy quantity.BaseLots, u *undoStack) error {
	if side == clobtypes.Ask {
		if err := e.Traders.SpendLockedBase(resting.TraderIndex, reduceBy); err != nil {
			return wrap(KindAccountingInvariant, err)
		}
		u.push(func() { _ = e.Traders.RestoreLockedBase(resting.TraderIndex, reduceBy) })
		return nil
	}

	amount, err := e.releaseBidLockup(resting, price, reduceBy, u)
	if err != nil {
		return err
	}
	if err := e.Traders.SpendLockedQuote(resting.TraderIndex, amount); err != nil {
		return wrap(KindAccountingInvariant, err)
	}
	u.push(func() { _ = e.Traders.RestoreLockedQuote(resting.TraderIndex, amount) })
	return nil
}

// releaseBidLockup computes how much of a resting bid's quote reservation
// reduceBy base lots accounts for and updates the order's own
// QuoteLotsLocked bookkeeping (undo-logged), without touching the trader
// registry. Consuming the order's entire remaining size releases exactly
// what is left reserved; a partial consumption releases a floor-rounded
// share. Either way the sum released across any sequence of partial calls
// never exceeds the ceil-rounded amount reserved at placement (spec §3
// invariant 2).
func (e *Engine) releaseBidLockup(resting *clobtypes.RestingOrder, price quantity.Ticks, reduceBy quantity.BaseLots, u *undoStack) (quantity.QuoteLots, error) {
	oldLocked := resting.QuoteLotsLocked
	var amount quantity.QuoteLots
	if reduceBy >= resting.NumBaseLots {
		amount = resting.QuoteLotsLocked
		resting.QuoteLotsLocked = 0
	} else {
		adjusted, err := quantity.TradeAdjustedQuoteLots(reduceBy, price, e.Header.TickSize)
		if err != nil {
			return 0, wrap(KindNumericalOverflow, err)
		}
		floorAmount, err := adjusted.ToQuoteLotsFloor(e.Header.BaseLotsPerBaseUnit)
		if err != nil {
			return 0, wrap(KindNumericalOverflow, err)
		}
		amount = floorAmount
		resting.QuoteLotsLocked -= amount
	}
	u.push(func() { resting.QuoteLotsLocked = oldLocked })
	return amount, nil
}

// insertResting inserts a new resting order on side, handling the
// capacity eviction rule of spec §4.2/§4.4.1 and emitting Place (and, on
// eviction, Reduce) events. Every mutation it performs is undo-logged.
func (e *Engine) insertResting(side clobtypes.Side, id clobtypes.FIFOOrderId, order *clobtypes.RestingOrder, rec *events.Recorder, u *undoStack) error {
	result, err := e.Book.Insert(side, id, order)
	if err != nil {
		return wrap(KindResourceExhausted, err)
	}
	u.push(func() { _, _ = e.Book.Remove(side, id) })

	if result.Evicted {
		if err := e.reduceRestingLockup(result.EvictedOrder, side, result.EvictedID.PriceInTicks, result.EvictedOrder.NumBaseLots, u); err != nil {
			return err
		}
		if err := rec.EmitReduce(events.Reduce{
			ID:              result.EvictedID,
			TraderIndex:     result.EvictedOrder.TraderIndex,
			BaseLotsRemoved: result.EvictedOrder.NumBaseLots,
			FullyRemoved:    true,
			Reason:          "evicted",
		}); err != nil {
			return wrap(KindResourceExhausted, err)
		}
	}

	if err := rec.EmitPlace(events.Place{
		ID:            id,
		ClientOrderId: order.ClientOrderId,
		TraderIndex:   order.TraderIndex,
		NumBaseLots:   order.NumBaseLots,
		PriceInTicks:  id.PriceInTicks,
	}); err != nil {
		return wrap(KindResourceExhausted, err)
	}
	return nil
}

// PlaceOrder dispatches p to the post-only, limit, or IOC/FOK handler
// (spec §4.4.1-§4.4.3) and returns any order IDs placed.
func (e *Engine) PlaceOrder(idx clobtypes.TraderIndex, p packet.OrderPacket, now events.Now, rec *events.Recorder) ([]clobtypes.FIFOOrderId, error) {
	if err := e.preflight(p, now); err != nil {
		return nil, err
	}
	if (p.IsPostOnly() || p.IsLimit()) && p.NoDepositOrWithdrawal() {
		if err := e.requireSeat(idx); err != nil {
			return nil, err
		}
	}

	switch {
	case p.IsPostOnly():
		return e.placePostOnly(idx, p, rec)
	case p.IsLimit():
		return e.placeLimit(idx, p, now, rec)
	default:
		return e.placeImmediateOrCancel(idx, p, now, rec)
	}
}

func (e *Engine) placePostOnly(idx clobtypes.TraderIndex, p packet.OrderPacket, rec *events.Recorder) ([]clobtypes.FIFOOrderId, error) {
	var u undoStack
	mark := rec.Mark()
	price := *p.PriceInTicks

	if opposingPrice, ok := e.Book.BestPrice(p.Side.Opposite()); ok {
		crosses := (p.Side == clobtypes.Bid && price >= opposingPrice) || (p.Side == clobtypes.Ask && price <= opposingPrice)
		if crosses {
			if p.RejectPostOnly {
				return nil, wrap(KindPreconditionFailed, ErrPostOnlyWouldCross)
			}
			if p.Side == clobtypes.Bid {
				if opposingPrice == 0 {
					return nil, wrap(KindPreconditionFailed, ErrPostOnlyWouldCross)
				}
				price = opposingPrice - 1
			} else {
				price = opposingPrice + 1
			}
		}
	}

	locked, err := e.lockForResting(idx, p.Side, price, p.NumBaseLots, &u)
	if err != nil {
		u.unwind()
		rec.TruncateTo(mark)
		return nil, err
	}

	seq := e.Header.NextSequenceNumber()
	id := clobtypes.FIFOOrderId{PriceInTicks: price, SequenceNumber: seq}
	order := &clobtypes.RestingOrder{
		TraderIndex:     idx,
		NumBaseLots:     p.NumBaseLots,
		LastValidSlot:   p.LastValidSlot,
		LastValidUnixTs: p.LastValidUnixTimestampInSeconds,
		ClientOrderId:   p.ClientOrderId,
		QuoteLotsLocked: locked,
	}
	if err := e.insertResting(p.Side, id, order, rec, &u); err != nil {
		u.unwind()
		rec.TruncateTo(mark)
		return nil, err
	}
	return []clobtypes.FIFOOrderId{id}, nil
}

func (e *Engine) placeLimit(idx clobtypes.TraderIndex, p packet.OrderPacket, now events.Now, rec *events.Recorder) ([]clobtypes.FIFOOrderId, error) {
	var u undoStack
	mark := rec.Mark()
	result, err := e.runMatchLoop(idx, p, now, rec, &u)
	if err != nil {
		u.unwind()
		rec.TruncateTo(mark)
		return nil, err
	}

	if result.remainingBase == 0 || p.IsTakeOnly() {
		return nil, nil
	}
	residual := result.remainingBase
	price := *p.PriceInTicks

	locked, err := e.lockForResting(idx, p.Side, price, residual, &u)
	if err != nil {
		u.unwind()
		rec.TruncateTo(mark)
		return nil, err
	}
	seq := e.Header.NextSequenceNumber()
	id := clobtypes.FIFOOrderId{PriceInTicks: price, SequenceNumber: seq}
	order := &clobtypes.RestingOrder{
		TraderIndex:     idx,
		NumBaseLots:     residual,
		LastValidSlot:   p.LastValidSlot,
		LastValidUnixTs: p.LastValidUnixTimestampInSeconds,
		ClientOrderId:   p.ClientOrderId,
		QuoteLotsLocked: locked,
	}
	if err := e.insertResting(p.Side, id, order, rec, &u); err != nil {
		u.unwind()
		rec.TruncateTo(mark)
		return nil, err
	}
	return []clobtypes.FIFOOrderId{id}, nil
}

func (e *Engine) placeImmediateOrCancel(idx clobtypes.TraderIndex, p packet.OrderPacket, now events.Now, rec *events.Recorder) ([]clobtypes.FIFOOrderId, error) {
	var u undoStack
	mark := rec.Mark()

	result, err := e.runMatchLoop(idx, p, now, rec, &u)
	if err != nil {
		u.unwind()
		rec.TruncateTo(mark)
		return nil, err
	}

	minBase := p.MinBaseLotsToFill
	minQuote := p.MinQuoteLotsToFill
	if result.baseFilled < minBase || result.quoteFilled < minQuote {
		u.unwind()
		rec.TruncateTo(mark)
		if p.FailSilentlyOnInsufficientFunds {
			return nil, nil
		}
		return nil, wrap(KindPreconditionFailed, ErrFillOrKillNotFilled)
	}
	return nil, nil
}
