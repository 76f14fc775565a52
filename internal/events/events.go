// Package events implements the bounded, order-preserving event buffer of
// spec §4.5: a Header event opens every instruction, matching-engine
// activity appends Place/Fill/Reduce/FillSummary events in emission order,
// and the buffer flushes exactly once at instruction end. The Fee variant
// can be recorded through EmitFee; the engine does not emit it.
package events

import (
	"time"

	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/quantity"
)

// Kind discriminates the closed MarketEvent sum type (spec §9 "Tagged
// variants": adding a variant is a breaking wire change).
type Kind uint8

const (
	KindHeader Kind = iota
	KindPlace
	KindFill
	KindReduce
	KindFillSummary
	KindFee
)

// Header opens every instruction's event stream (spec §4.5).
type Header struct {
	InstructionTag           string
	MarketSequenceNumberAtStart uint64
	Slot                     uint64
	UnixTs                   int64
	Signer                   string
}

// Place records a newly resting order (spec §4.4.1/§4.4.2).
type Place struct {
	ID            clobtypes.FIFOOrderId
	ClientOrderId uint64
	TraderIndex   clobtypes.TraderIndex
	NumBaseLots   quantity.BaseLots
	PriceInTicks  quantity.Ticks
}

// Fill records one match between a taker and a resting maker (spec
// §4.4.4 step 8).
type Fill struct {
	MakerID             clobtypes.FIFOOrderId
	MakerClientOrderId  uint64
	MakerTraderIndex    clobtypes.TraderIndex
	TakerTraderIndex    clobtypes.TraderIndex
	BaseLotsFilled      quantity.BaseLots
	QuoteLotsFilled     quantity.QuoteLots
	PriceInTicks        quantity.Ticks
	MakerSide           clobtypes.Side
}

// Reduce records a resting order shrinking or being removed, whether by
// owner cancellation, expiry, eviction, self-trade cancellation or
// decrement, or governance force-cancel (spec §4.2, §4.4.4, §4.4.5).
// A partial fill is recorded as a Fill, not a Reduce.
type Reduce struct {
	ID           clobtypes.FIFOOrderId
	TraderIndex  clobtypes.TraderIndex
	BaseLotsRemoved quantity.BaseLots
	FullyRemoved bool
	Expired      bool
	Reason       string
}

// FillSummary closes out one taker instruction's matching activity (spec
// §4.4.4, end of match loop).
type FillSummary struct {
	ClientOrderId    uint64
	TotalBaseFilled  quantity.BaseLots
	TotalQuoteFilled quantity.QuoteLots
	TotalFeeQuoteLots quantity.QuoteLots
}

// Fee records fee accrual to the market's collected-fees counter,
// separate from the per-fill settlement so off-chain clients can audit
// protocol revenue independently of trade reconstruction.
type Fee struct {
	QuoteLots quantity.QuoteLots
}

// Event is one entry in the ordered log. Exactly one of the typed fields
// is populated, selected by Kind — the closed-sum-type idiom spec §9 asks
// for, expressed as a tagged struct rather than an interface so the
// buffer can be a plain preallocated slice (no per-event heap escape via
// an interface value).
type Event struct {
	Kind        Kind
	Header      Header
	Place       Place
	Fill        Fill
	Reduce      Reduce
	FillSummary FillSummary
	Fee         Fee
}

// Now is the pair the host clock_fn of spec §4.4 supplies: a monotonic
// slot counter and a wall-clock unix timestamp. Both are used for order
// expiry (spec §4.4.4 step 2) and stamped into the Header event.
type Now struct {
	Slot   uint64
	UnixTs int64
}

// NowFromWallClock is the harness/test ClockSource backing: it has no
// notion of "slot" (a host-runtime concept explicitly out of scope, spec
// §1), so it derives one from wall-clock seconds. Production hosts
// provide their own ClockSource instead of this one.
func NowFromWallClock() Now {
	t := time.Now()
	return Now{Slot: uint64(t.Unix()), UnixTs: t.Unix()}
}
