// Package market wires the per-market pieces (header, order book, trader
// registry, matching engine, event recorder) behind the single-market
// instruction surface of spec §6, and hosts the narrow external-
// collaborator interfaces that stand in for the out-of-scope host runtime
// (spec §1 Non-goals: "Solana program account loading, authority and
// signature checks, instruction framing/dispatch").
//
// Grounded on the teacher's own narrow-interface-at-the-boundary idiom —
// internal/net/server.go's Engine interface names exactly the three calls
// its TCP layer needs (PlaceOrder, CancelOrder, LogBook) rather than
// depending on the concrete engine type directly. MarketAuthority and
// ClockSource below play the same role for clobcore's host boundary.
package market

import (
	"github.com/rs/zerolog/log"

	"github.com/nyxmarkets/clobcore/internal/book"
	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/engine"
	"github.com/nyxmarkets/clobcore/internal/events"
	"github.com/nyxmarkets/clobcore/internal/packet"
	"github.com/nyxmarkets/clobcore/internal/quantity"
	"github.com/nyxmarkets/clobcore/internal/trader"
)

// eventBufferCapacity bounds the per-instruction event recorder (spec
// §4.5). An instruction records its Header, one Fill or Reduce per resting
// order it matches, expires, cancels or evicts, at most one Place, and a
// closing FillSummary; one that would record more events than this fails
// with the recorder's ErrEventLogFull.
const eventBufferCapacity = 256

// ClockSource supplies the slot/unix-timestamp pair the engine needs for
// expiry checks (spec §4.4.4 step 2). The host runtime owns real wall-clock
// and ledger-slot state; clobcore never reads a clock itself.
type ClockSource interface {
	Now() events.Now
}

// MarketAuthority gates the privileged operations spec §1 scopes out of
// the core: whether a signer may call ForceCancelOrders. A host wires this
// to its own signature/governance verification; clobcore only asks the
// yes/no question.
type MarketAuthority interface {
	IsGovernanceSigner(signer string) bool
}

// Market owns one market's complete runtime state and dispatches the
// instruction surface of spec §6 against it. One Market serves one market
// (spec §1 "one market per program instance"); a host running many
// markets owns one Market per market.
type Market struct {
	Header  *clobtypes.MarketHeader
	Book    *book.OrderBook
	Traders *trader.Registry
	Engine  *engine.Engine

	clock     ClockSource
	authority MarketAuthority
}

// New constructs a Market over an already-initialized header and
// fixed-capacity book/registry pair (spec §6 InitializeMarket is the
// host-side allocation step that produces these; clobcore only takes them
// as given, per spec §1's account-allocation Non-goal).
func New(header *clobtypes.MarketHeader, b *book.OrderBook, traders *trader.Registry, clock ClockSource, authority MarketAuthority) *Market {
	return &Market{
		Header:    header,
		Book:      b,
		Traders:   traders,
		Engine:    engine.New(header, b, traders),
		clock:     clock,
		authority: authority,
	}
}

func (m *Market) openRecorder(tag string, signer string) (*events.Recorder, error) {
	rec := events.NewRecorder(eventBufferCapacity)
	now := m.clock.Now()
	err := rec.Open(events.Header{
		InstructionTag:              tag,
		MarketSequenceNumberAtStart: m.Header.SequenceNumber,
		Slot:                        now.Slot,
		UnixTs:                      now.UnixTs,
		Signer:                      signer,
	})
	return rec, err
}

// flushInstruction completes an instruction that committed — whether or
// not every part of it succeeded — advancing the market's own per-
// instruction sequence counter alongside its recorder flush (spec §4.5
// "At instruction end, the market sequence number is incremented" / §8
// "Market sequence number is strictly monotonic across instructions").
// The same Header.SequenceNumber field also supplies the per-order FIFO
// sequence numbers that NextSequenceNumber hands out on placement, so an
// instruction that places an order advances it once for the order and
// once more here. An instruction that aborts entirely and
// unwinds every mutation must not call this — only a path that left real
// state changed behind does.
func (m *Market) flushInstruction(rec *events.Recorder) []events.Event {
	m.Header.SequenceNumber++
	return rec.Flush()
}

// RequestSeat onboards a new trader (spec §6 RequestSeat), returning its
// compact index.
func (m *Market) RequestSeat(identity trader.Identity) (clobtypes.TraderIndex, error) {
	idx, err := m.Traders.RequestSeat(identity)
	if err != nil {
		log.Error().Err(err).Msg("request seat failed")
		return 0, err
	}
	log.Info().Uint32("traderIndex", uint32(idx)).Msg("seat granted")
	return idx, nil
}

// Deposit credits a trader's free balances (spec §6 Deposit; the actual
// token transfer is the host runtime's concern, spec §1 Non-goals — this
// only updates the ledger-side accounting clobcore owns).
func (m *Market) Deposit(idx clobtypes.TraderIndex, base quantity.BaseLots, quote quantity.QuoteLots) error {
	return m.Traders.Deposit(idx, base, quote)
}

// PlaceOrder decodes and dispatches a new-order instruction (spec §6
// PlaceOrder / §4.4), opening and flushing one event-recorder instruction
// around the call.
func (m *Market) PlaceOrder(idx clobtypes.TraderIndex, signer string, wire []byte) ([]clobtypes.FIFOOrderId, []events.Event, error) {
	p, err := packet.Decode(wire)
	if err != nil {
		log.Error().Err(err).Msg("order packet decode failed")
		return nil, nil, err
	}

	rec, err := m.openRecorder("PlaceOrder", signer)
	if err != nil {
		return nil, nil, err
	}

	ids, err := m.Engine.PlaceOrder(idx, p, m.clock.Now(), rec)
	if err != nil {
		log.Error().Err(err).Uint32("traderIndex", uint32(idx)).Msg("place order failed")
		return nil, rec.Flush(), err
	}
	log.Info().Uint32("traderIndex", uint32(idx)).Int("orderCount", len(ids)).Msg("order placed")
	return ids, m.flushInstruction(rec), nil
}

// ReduceOrder dispatches a reduce/cancel-one instruction (spec §6
// ReduceOrder / §4.4.5). A nil size reduces the order to zero (full
// cancel).
func (m *Market) ReduceOrder(idx clobtypes.TraderIndex, signer string, side clobtypes.Side, id clobtypes.FIFOOrderId, size *quantity.BaseLots) ([]events.Event, error) {
	rec, err := m.openRecorder("ReduceOrder", signer)
	if err != nil {
		return nil, err
	}
	if err := m.Engine.ReduceOrder(idx, side, id, size, rec); err != nil {
		log.Error().Err(err).Msg("reduce order failed")
		return rec.Flush(), err
	}
	return m.flushInstruction(rec), nil
}

// CancelAllOrders dispatches spec §6 CancelAllOrders.
func (m *Market) CancelAllOrders(idx clobtypes.TraderIndex, signer string) ([]events.Event, error) {
	rec, err := m.openRecorder("CancelAllOrders", signer)
	if err != nil {
		return nil, err
	}
	// Unlike PlaceOrder/ReduceOrder, a batch cancel applies ReduceOrder to
	// each matching order independently (spec §4.4.5): one bad order in the
	// batch aggregates into the returned error without undoing the orders
	// that did reduce, so the instruction still committed and the sequence
	// number still advances.
	err = m.Engine.CancelAllOrders(idx, rec)
	if err != nil {
		log.Error().Err(err).Msg("cancel all orders reported at least one failure")
	}
	return m.flushInstruction(rec), err
}

// CancelUpTo dispatches spec §6 CancelUpTo.
func (m *Market) CancelUpTo(idx clobtypes.TraderIndex, signer string, maxBids, maxAsks int, bidTickLimit, askTickLimit *quantity.Ticks) ([]events.Event, error) {
	rec, err := m.openRecorder("CancelUpTo", signer)
	if err != nil {
		return nil, err
	}
	err = m.Engine.CancelUpTo(idx, maxBids, maxAsks, bidTickLimit, askTickLimit, rec)
	if err != nil {
		log.Error().Err(err).Msg("cancel up to reported at least one failure")
	}
	return m.flushInstruction(rec), err
}

// CancelMultipleOrdersById dispatches spec §6 CancelMultipleOrdersById.
func (m *Market) CancelMultipleOrdersById(idx clobtypes.TraderIndex, signer string, refs []engine.OrderRef) ([]events.Event, error) {
	rec, err := m.openRecorder("CancelMultipleOrdersById", signer)
	if err != nil {
		return nil, err
	}
	err = m.Engine.CancelMultipleOrdersById(idx, refs, rec)
	if err != nil {
		log.Error().Err(err).Msg("cancel multiple orders reported at least one failure")
	}
	return m.flushInstruction(rec), err
}

// ForceCancelOrders dispatches spec §6's governance-only ForceCancelOrders,
// rejecting the call outright unless authority confirms signer holds
// governance (spec §7 MissingRequiredSignature).
func (m *Market) ForceCancelOrders(signer string, refs []engine.OrderRef) ([]events.Event, error) {
	if !m.authority.IsGovernanceSigner(signer) {
		log.Error().Str("signer", signer).Msg("force-cancel rejected: missing governance signature")
		return nil, engine.WrapMissingGovernanceSignature()
	}
	rec, err := m.openRecorder("ForceCancelOrders", signer)
	if err != nil {
		return nil, err
	}
	err = m.Engine.ForceCancelOrders(refs, rec)
	if err != nil {
		log.Error().Err(err).Msg("force-cancel reported at least one failure")
	}
	return m.flushInstruction(rec), err
}
