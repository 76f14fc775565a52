// Package trader implements the bounded trader registry of spec §3/§9: a
// dense, fixed-capacity array of TraderState indexed by the compact
// TraderIndex handle, plus the wide-identity -> index lookup that lets
// resting orders store only the small handle (spec §9 "Arena + index").
package trader

import (
	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/quantity"
)

// Identity is the host-chain-wide trader identity (spec §9: "wide — 256
// bits"). The core never interprets its bytes; it is purely a lookup key.
type Identity [32]byte

// Registry is the fixed-capacity trader_index -> TraderState arena.
type Registry struct {
	capacity   int
	identities []Identity
	states     []clobtypes.TraderState
	byIdentity map[Identity]clobtypes.TraderIndex
}

// NewRegistry constructs an empty registry with room for capacity seats.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity:   capacity,
		identities: make([]Identity, 0, capacity),
		states:     make([]clobtypes.TraderState, 0, capacity),
		byIdentity: make(map[Identity]clobtypes.TraderIndex, capacity),
	}
}

// Len reports the number of occupied seats.
func (r *Registry) Len() int { return len(r.states) }

// Index looks up the compact handle for a wide identity.
func (r *Registry) Index(identity Identity) (clobtypes.TraderIndex, bool) {
	idx, ok := r.byIdentity[identity]
	return idx, ok
}

// RequestSeat assigns a fresh TraderIndex to identity, or returns the
// existing one if already seated (idempotent — governance's RequestSeat
// instruction, spec §6, is safe to replay).
func (r *Registry) RequestSeat(identity Identity) (clobtypes.TraderIndex, error) {
	if idx, ok := r.byIdentity[identity]; ok {
		return idx, nil
	}
	if len(r.states) >= r.capacity {
		return 0, ErrRegistryFull
	}
	idx := clobtypes.TraderIndex(len(r.states))
	r.identities = append(r.identities, identity)
	r.states = append(r.states, clobtypes.TraderState{SeatApproved: true})
	r.byIdentity[identity] = idx
	return idx, nil
}

// State fetches a pointer to the live TraderState for idx, for the engine
// to mutate locked/free balances directly.
func (r *Registry) State(idx clobtypes.TraderIndex) (*clobtypes.TraderState, error) {
	if int(idx) < 0 || int(idx) >= len(r.states) {
		return nil, ErrUnknownTrader
	}
	return &r.states[idx], nil
}

// ChangeSeatStatus flips whether idx may post resting liquidity, without
// touching its balances (spec §6 ChangeSeatStatus).
func (r *Registry) ChangeSeatStatus(idx clobtypes.TraderIndex, approved bool) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	state.SeatApproved = approved
	return nil
}

// EvictSeat clears a seat's approval (governance EvictSeat, spec §6). The
// slot and any existing balances are left in place — eviction only
// revokes the ability to post new resting liquidity, it is not a balance
// wipe.
func (r *Registry) EvictSeat(idx clobtypes.TraderIndex) error {
	return r.ChangeSeatStatus(idx, false)
}

// LockBase moves amount from free to locked base balance, failing with
// ErrNegativeBalance (spec §7 AccountingInvariant) rather than going
// negative.
func (r *Registry) LockBase(idx clobtypes.TraderIndex, amount quantity.BaseLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	if state.BaseLotsFree < amount {
		return ErrNegativeBalance
	}
	state.BaseLotsFree -= amount
	state.BaseLotsLocked += amount
	return nil
}

// UnlockBase moves amount from locked back to free base balance.
func (r *Registry) UnlockBase(idx clobtypes.TraderIndex, amount quantity.BaseLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	if state.BaseLotsLocked < amount {
		return ErrNegativeBalance
	}
	state.BaseLotsLocked -= amount
	state.BaseLotsFree += amount
	return nil
}

// LockQuote moves amount from free to locked quote balance.
func (r *Registry) LockQuote(idx clobtypes.TraderIndex, amount quantity.QuoteLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	if state.QuoteLotsFree < amount {
		return ErrNegativeBalance
	}
	state.QuoteLotsFree -= amount
	state.QuoteLotsLocked += amount
	return nil
}

// UnlockQuote moves amount from locked back to free quote balance.
func (r *Registry) UnlockQuote(idx clobtypes.TraderIndex, amount quantity.QuoteLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	if state.QuoteLotsLocked < amount {
		return ErrNegativeBalance
	}
	state.QuoteLotsLocked -= amount
	state.QuoteLotsFree += amount
	return nil
}

// SpendLockedBase permanently removes amount from idx's locked base
// balance — a filled ask: the reserved base lots are transferred to the
// counterparty, not returned to the seller's own free balance.
func (r *Registry) SpendLockedBase(idx clobtypes.TraderIndex, amount quantity.BaseLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	if state.BaseLotsLocked < amount {
		return ErrNegativeBalance
	}
	state.BaseLotsLocked -= amount
	return nil
}

// RestoreLockedBase adds amount back to idx's locked base balance without
// touching free balance — the undo of SpendLockedBase.
func (r *Registry) RestoreLockedBase(idx clobtypes.TraderIndex, amount quantity.BaseLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	state.BaseLotsLocked += amount
	return nil
}

// SpendLockedQuote mirrors SpendLockedBase for quote: a filled bid's
// reserved quote lots pay for the base it bought, they do not come back.
func (r *Registry) SpendLockedQuote(idx clobtypes.TraderIndex, amount quantity.QuoteLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	if state.QuoteLotsLocked < amount {
		return ErrNegativeBalance
	}
	state.QuoteLotsLocked -= amount
	return nil
}

// RestoreLockedQuote is the undo of SpendLockedQuote.
func (r *Registry) RestoreLockedQuote(idx clobtypes.TraderIndex, amount quantity.QuoteLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	state.QuoteLotsLocked += amount
	return nil
}

// CreditBaseFree adds to idx's free base balance (a fill's proceeds).
func (r *Registry) CreditBaseFree(idx clobtypes.TraderIndex, amount quantity.BaseLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	state.BaseLotsFree += amount
	return nil
}

// CreditQuoteFree adds to idx's free quote balance (a fill's proceeds).
func (r *Registry) CreditQuoteFree(idx clobtypes.TraderIndex, amount quantity.QuoteLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	state.QuoteLotsFree += amount
	return nil
}

// DebitQuoteFree subtracts from idx's free quote balance directly (a
// use_only_deposited_funds taker paying without a resting-order lockup).
func (r *Registry) DebitQuoteFree(idx clobtypes.TraderIndex, amount quantity.QuoteLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	if state.QuoteLotsFree < amount {
		return ErrNegativeBalance
	}
	state.QuoteLotsFree -= amount
	return nil
}

// DebitBaseFree subtracts from idx's free base balance directly.
func (r *Registry) DebitBaseFree(idx clobtypes.TraderIndex, amount quantity.BaseLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	if state.BaseLotsFree < amount {
		return ErrNegativeBalance
	}
	state.BaseLotsFree -= amount
	return nil
}

// Deposit credits free balances directly — the narrow slice of spec §6's
// DepositFunds that is the core's concern; everything about the actual
// token transfer is the host's (spec §1 Non-goals).
func (r *Registry) Deposit(idx clobtypes.TraderIndex, base quantity.BaseLots, quote quantity.QuoteLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	state.BaseLotsFree += base
	state.QuoteLotsFree += quote
	return nil
}

// Withdraw debits free balances directly — the core's slice of spec §6's
// WithdrawFunds.
func (r *Registry) Withdraw(idx clobtypes.TraderIndex, base quantity.BaseLots, quote quantity.QuoteLots) error {
	state, err := r.State(idx)
	if err != nil {
		return err
	}
	if state.BaseLotsFree < base || state.QuoteLotsFree < quote {
		return ErrNegativeBalance
	}
	state.BaseLotsFree -= base
	state.QuoteLotsFree -= quote
	return nil
}
