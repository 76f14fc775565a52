package clobtypes

import (
	"fmt"

	"github.com/nyxmarkets/clobcore/internal/quantity"
)

// FIFOOrderId is the book key of spec §3: price orders the book, sequence
// breaks ties in strict arrival order. Bids and asks share one monotonic
// sequence space so a FIFOOrderId is globally comparable regardless of
// side.
type FIFOOrderId struct {
	PriceInTicks   quantity.Ticks
	SequenceNumber uint64
}

func (id FIFOOrderId) String() string {
	return fmt.Sprintf("%d@%d", id.SequenceNumber, id.PriceInTicks)
}

// Less orders two ids for a given side: better price first, then lower
// sequence number. "Better" is side-dependent (higher for bids, lower for
// asks), which is why Less takes the side explicitly rather than living as
// a bare method — the same id compares differently depending on which
// side's book it sits in.
func Less(side Side, a, b FIFOOrderId) bool {
	if a.PriceInTicks != b.PriceInTicks {
		if side == Bid {
			return a.PriceInTicks > b.PriceInTicks
		}
		return a.PriceInTicks < b.PriceInTicks
	}
	return a.SequenceNumber < b.SequenceNumber
}

// RestingOrder is the book's payload for a live resting order (spec §3).
type RestingOrder struct {
	TraderIndex     TraderIndex
	NumBaseLots     quantity.BaseLots
	LastValidSlot   *uint64
	LastValidUnixTs *int64
	ClientOrderId   uint64

	// QuoteLotsLocked is a bid's exact remaining quote-lot reservation,
	// ceil-rounded once at placement (spec §4.4 "Compute required
	// quote-lot lockup"). Every later partial consumption (a fill, a
	// reduce) releases a floor-rounded share and decrements this field by
	// that share, except the consumption that empties the order, which
	// releases whatever is left here exactly — so the sum released across
	// an order's whole life always equals the original reservation
	// regardless of how many partial steps it took (spec §3 invariant 2).
	// Unused (always zero) for an ask, whose lockup is base lots and never
	// rounds.
	QuoteLotsLocked quantity.QuoteLots
}

// Expired reports whether the order is stale as of (slot, unixTs), per the
// lazy-expiry rule of spec §4.4.4 step 2 / §5.
func (o *RestingOrder) Expired(slot uint64, unixTs int64) bool {
	if o.LastValidSlot != nil && *o.LastValidSlot < slot {
		return true
	}
	if o.LastValidUnixTs != nil && *o.LastValidUnixTs < unixTs {
		return true
	}
	return false
}

// TraderState is the per-trader accounting spec §3 describes: locked
// balances back resting orders, free balances are withdrawable.
type TraderState struct {
	BaseLotsLocked  quantity.BaseLots
	QuoteLotsLocked quantity.QuoteLots
	BaseLotsFree    quantity.BaseLots
	QuoteLotsFree   quantity.QuoteLots
	// SeatApproved records whether this trader is permitted to post
	// resting liquidity (spec §3 "Seat"). Swap-only takers never get one.
	SeatApproved bool
}

// MarketHeader is the per-market static configuration plus mutable
// sequencing state of spec §3.
type MarketHeader struct {
	TickSize              quantity.QuoteLotsPerBaseUnitPerTick
	BaseLotsPerBaseUnit   quantity.BaseLotsPerBaseUnit
	BaseAtomsPerBaseLot   quantity.BaseAtomsPerBaseLot
	QuoteAtomsPerQuoteLot quantity.QuoteAtomsPerQuoteLot
	FeeBps                uint16
	CollectedQuoteLotFees quantity.QuoteLots
	SequenceNumber        uint64
	Status                MarketStatus
}

// NextSequenceNumber assigns and advances the market's monotonic sequence
// counter (spec §4.4.1: "sequence_number = market.sequence_number;
// market.sequence_number += 1").
func (h *MarketHeader) NextSequenceNumber() uint64 {
	seq := h.SequenceNumber
	h.SequenceNumber++
	return seq
}
