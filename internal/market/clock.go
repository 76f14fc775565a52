package market

import "github.com/nyxmarkets/clobcore/internal/events"

// WallClock is the default ClockSource for a standalone harness that has
// no ledger-slot concept of its own (spec §1 scopes slot production out
// of the core as a host-runtime concern): it derives a slot from
// wall-clock seconds, the same fallback events.NowFromWallClock documents.
type WallClock struct{}

func (WallClock) Now() events.Now { return events.NowFromWallClock() }

// FixedClock is a deterministic ClockSource for tests and scripted
// replays: it returns whatever (slot, unixTs) pair it was last set to,
// rather than reading real wall-clock time, so a replay run is
// bit-for-bit reproducible (spec §3 invariant 4, "replay-reconstructible").
type FixedClock struct {
	now events.Now
}

// NewFixedClock constructs a FixedClock starting at the given time.
func NewFixedClock(slot uint64, unixTs int64) *FixedClock {
	return &FixedClock{now: events.Now{Slot: slot, UnixTs: unixTs}}
}

func (c *FixedClock) Now() events.Now { return c.now }

// Advance moves the clock forward, for a replay script to simulate time
// passing between instructions (e.g. to exercise order expiry).
func (c *FixedClock) Advance(slots uint64, seconds int64) {
	c.now.Slot += slots
	c.now.UnixTs += seconds
}

// AllowAllAuthority is a MarketAuthority that treats every signer as a
// valid governance signer. Suitable for a single-operator replay harness
// or tests; a real host wires its own signature verification instead.
type AllowAllAuthority struct{}

func (AllowAllAuthority) IsGovernanceSigner(string) bool { return true }

// DenyAllAuthority is a MarketAuthority that rejects every signer,
// useful for exercising spec §7's MissingRequiredSignature path in tests.
type DenyAllAuthority struct{}

func (DenyAllAuthority) IsGovernanceSigner(string) bool { return false }
