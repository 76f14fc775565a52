package trader

import "errors"

// ErrRegistryFull is spec §7's TraderRegistryFull: the fixed-capacity
// trader registry has no room for a new seat.
var ErrRegistryFull = errors.New("trader: registry at capacity")

// ErrUnknownTrader is returned when an index or identity has no entry.
var ErrUnknownTrader = errors.New("trader: unknown trader")

// ErrAlreadySeated names an identity that already has a trader_index.
// RequestSeat is idempotent and returns the existing index instead of it.
var ErrAlreadySeated = errors.New("trader: identity already has a seat")

// ErrNegativeBalance is spec §7's AccountingInvariant: a would-be negative
// free or locked balance. Fatal — callers must abort the instruction.
var ErrNegativeBalance = errors.New("trader: would-be negative balance")
