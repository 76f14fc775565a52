// Package packet implements the order packet taxonomy of spec §4.3: the
// three instruction-level variants a caller submits (PostOnly, Limit,
// ImmediateOrCancel), their derived predicates, and the budget extraction
// the match loop consumes. Unlike events.Event, which favors a flat tagged
// struct to dodge interface boxing, OrderPacket is a flat struct for a
// different reason: the three variants share the bulk of their fields
// (side, price, size, client order id, expiry), and splitting them into
// three Go types would just relocate the overlap into three repeated
// field lists. The OrderType tag plus irrelevant-field-is-zero is how the
// teacher's engine.Order models overlapping order shapes too.
package packet

import (
	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/quantity"
)

// OrderPacket is the decoded, validated request for a new order (spec
// §4.3). Fields not meaningful for a given OrderType are left zero; see
// the per-variant constructors below for which fields each variant uses.
type OrderPacket struct {
	OrderType clobtypes.OrderType
	Side      clobtypes.Side

	// PriceInTicks is required (non-nil, non-zero) for PostOnly and Limit.
	// For ImmediateOrCancel, nil means "market": matches at any price up
	// to the book's resting liquidity (spec §4.3 "An absent price means
	// cross at any price").
	PriceInTicks *quantity.Ticks

	NumBaseLots  quantity.BaseLots
	NumQuoteLots quantity.QuoteLots // ImmediateOrCancel only; 0 means unset.

	MinBaseLotsToFill  quantity.BaseLots  // ImmediateOrCancel only.
	MinQuoteLotsToFill quantity.QuoteLots // ImmediateOrCancel only.

	ClientOrderId     uint64
	SelfTradeBehavior clobtypes.SelfTradeBehavior // Limit and ImmediateOrCancel only.

	// MatchLimit caps the number of resting orders one instruction may
	// cross before stopping early (spec §4.4.4). Nil means unspecified,
	// which the engine treats as unbounded; 0 is a valid, explicit value
	// that matches nothing and falls through to the post/void behavior.
	MatchLimit *uint64

	RejectPostOnly                   bool // PostOnly only: reject instead of amend-to-non-crossing on cross.
	UseOnlyDepositedFunds            bool
	FailSilentlyOnInsufficientFunds  bool
	LastValidSlot                    *uint64
	LastValidUnixTimestampInSeconds  *int64
}

// NewPostOnly constructs a PostOnly packet. price must be non-zero.
func NewPostOnly(side clobtypes.Side, price quantity.Ticks, numBaseLots quantity.BaseLots, clientOrderId uint64, rejectPostOnly bool) OrderPacket {
	p := price
	return OrderPacket{
		OrderType:     clobtypes.OrderTypePostOnly,
		Side:          side,
		PriceInTicks:  &p,
		NumBaseLots:   numBaseLots,
		ClientOrderId: clientOrderId,
		RejectPostOnly: rejectPostOnly,
	}
}

// NewLimit constructs a Limit packet (match-then-post, spec §4.4.2). price
// must be non-zero.
func NewLimit(side clobtypes.Side, price quantity.Ticks, numBaseLots quantity.BaseLots, clientOrderId uint64, selfTrade clobtypes.SelfTradeBehavior) OrderPacket {
	p := price
	return OrderPacket{
		OrderType:         clobtypes.OrderTypeLimit,
		Side:              side,
		PriceInTicks:      &p,
		NumBaseLots:       numBaseLots,
		ClientOrderId:     clientOrderId,
		SelfTradeBehavior: selfTrade,
	}
}

// NewImmediateOrCancel constructs an IOC packet. A nil price means market.
func NewImmediateOrCancel(side clobtypes.Side, price *quantity.Ticks, numBaseLots quantity.BaseLots, numQuoteLots quantity.QuoteLots, clientOrderId uint64, selfTrade clobtypes.SelfTradeBehavior) OrderPacket {
	return OrderPacket{
		OrderType:         clobtypes.OrderTypeImmediateOrCancel,
		Side:              side,
		PriceInTicks:      price,
		NumBaseLots:       numBaseLots,
		NumQuoteLots:      numQuoteLots,
		ClientOrderId:     clientOrderId,
		SelfTradeBehavior: selfTrade,
	}
}

// IsPostOnly reports whether p is the PostOnly variant.
func (p OrderPacket) IsPostOnly() bool { return p.OrderType == clobtypes.OrderTypePostOnly }

// IsLimit reports whether p is the Limit variant.
func (p OrderPacket) IsLimit() bool { return p.OrderType == clobtypes.OrderTypeLimit }

// IsImmediateOrCancel reports whether p is the IOC variant.
func (p OrderPacket) IsImmediateOrCancel() bool {
	return p.OrderType == clobtypes.OrderTypeImmediateOrCancel
}

// IsFOK reports whether p is a fill-or-kill IOC: an IOC whose min-to-fill
// exactly equals its corresponding budget on whichever dimension is
// active, and that budget is non-zero (spec §4.3 "FOK is IOC's min==max
// special case, not a fourth variant").
func (p OrderPacket) IsFOK() bool {
	if !p.IsImmediateOrCancel() {
		return false
	}
	if p.NumBaseLots > 0 && p.MinBaseLotsToFill == p.NumBaseLots {
		return true
	}
	if p.NumQuoteLots > 0 && p.MinQuoteLotsToFill == p.NumQuoteLots {
		return true
	}
	return false
}

// IsTakeOnly reports whether p never rests on the book.
func (p OrderPacket) IsTakeOnly() bool {
	return p.IsImmediateOrCancel() || p.IsFOK()
}

// NoDepositOrWithdrawal reports whether settlement for p must be satisfied
// entirely out of the trader's already-deposited free balance, with no
// implicit top-up (spec §4.4 preflight; the deposit/withdraw mechanism
// itself is the out-of-scope host runtime, spec §1 Non-goals).
func (p OrderPacket) NoDepositOrWithdrawal() bool { return p.UseOnlyDepositedFunds }

// BaseLotBudget resolves the effective base-lot ceiling: num_base_lots if
// set, otherwise unbounded (spec §4.3 "a zero num_base_lots means the
// quote budget alone limits the order").
func (p OrderPacket) BaseLotBudget() quantity.BaseLots {
	if p.NumBaseLots > 0 {
		return p.NumBaseLots
	}
	return quantity.BaseLots(^uint64(0))
}

// QuoteLotBudget resolves the effective quote-lot ceiling, and whether one
// was set at all.
func (p OrderPacket) QuoteLotBudget() (quantity.QuoteLots, bool) {
	if p.NumQuoteLots > 0 {
		return p.NumQuoteLots, true
	}
	return 0, false
}

// MatchLimitOrMax resolves an unset MatchLimit to "unbounded".
func (p OrderPacket) MatchLimitOrMax() uint64 {
	if p.MatchLimit != nil {
		return *p.MatchLimit
	}
	return ^uint64(0)
}

// EffectiveLimitPrice resolves p's crossing boundary: the order's own
// price_in_ticks if set, otherwise the side's extreme (spec §4.3: an IOC
// with no price crosses at any price, which is Ticks::MAX for a bid and
// Ticks::MIN, i.e. zero, for an ask).
func (p OrderPacket) EffectiveLimitPrice() quantity.Ticks {
	if p.PriceInTicks != nil {
		return *p.PriceInTicks
	}
	if p.Side == clobtypes.Bid {
		return quantity.Ticks(^uint64(0))
	}
	return quantity.Ticks(0)
}

// Validate runs the packet-level preflight checks of spec §4.4 step 1 that
// don't require market state: PostOnly and Limit must carry a non-zero
// price.
func (p OrderPacket) Validate() error {
	if (p.IsPostOnly() || p.IsLimit()) && (p.PriceInTicks == nil || *p.PriceInTicks == 0) {
		return ErrZeroPrice
	}
	return nil
}

// Expired reports whether p's expiry (if any) has passed as of now, per
// spec §4.4 step 2. A packet with neither expiry field set never expires.
func (p OrderPacket) Expired(nowSlot uint64, nowUnixTs int64) bool {
	if p.LastValidSlot != nil && nowSlot > *p.LastValidSlot {
		return true
	}
	if p.LastValidUnixTimestampInSeconds != nil && nowUnixTs > *p.LastValidUnixTimestampInSeconds {
		return true
	}
	return false
}
