package packet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/packet"
	"github.com/nyxmarkets/clobcore/internal/quantity"
)

func TestPostOnlyRoundTrip(t *testing.T) {
	p := packet.NewPostOnly(clobtypes.Bid, 100, 5, 42, true)
	p.UseOnlyDepositedFunds = true
	slot := uint64(900)
	p.LastValidSlot = &slot

	got, err := packet.Decode(packet.Encode(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestLimitRoundTrip(t *testing.T) {
	limit := uint64(3)
	p := packet.NewLimit(clobtypes.Ask, 250, 10, 7, clobtypes.SelfTradeCancelProvide)
	p.MatchLimit = &limit

	got, err := packet.Decode(packet.Encode(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestImmediateOrCancelRoundTripWithMarketPrice(t *testing.T) {
	p := packet.NewImmediateOrCancel(clobtypes.Bid, nil, 20, 0, 99, clobtypes.SelfTradeDecrementTake)
	p.MinBaseLotsToFill = 20

	got, err := packet.Decode(packet.Encode(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.True(t, got.IsFOK())
}

func TestTrailingOptionalsOmittedEqualsZeroPadded(t *testing.T) {
	p := packet.NewLimit(clobtypes.Bid, 100, 5, 1, clobtypes.SelfTradeAbort)
	full := packet.Encode(p)

	// The encoder always writes the canonical trailing region (presence
	// byte 0, presence byte 0, bool byte 0) for an all-absent packet;
	// trim it entirely to simulate an older-format caller that never
	// knew about these fields.
	trimmed := full[:len(full)-3]

	gotFull, err := packet.Decode(full)
	require.NoError(t, err)
	gotTrimmed, err := packet.Decode(trimmed)
	require.NoError(t, err)

	assert.Equal(t, gotFull, gotTrimmed)
}

func TestTrailingOptionalsPartiallyOmitted(t *testing.T) {
	p := packet.NewPostOnly(clobtypes.Ask, 50, 1, 0, false)
	slot := uint64(12345)
	p.LastValidSlot = &slot
	full := packet.Encode(p)

	// Drop only the trailing fail-silently byte (the newest field),
	// keeping last_valid_slot and the (absent) last_valid_unix_ts intact.
	truncated := full[:len(full)-1]

	got, err := packet.Decode(truncated)
	require.NoError(t, err)
	assert.Equal(t, slot, *got.LastValidSlot)
	assert.Nil(t, got.LastValidUnixTimestampInSeconds)
	assert.False(t, got.FailSilentlyOnInsufficientFunds)
}

func TestDecodeUnknownVariant(t *testing.T) {
	_, err := packet.Decode([]byte{0xFF})
	assert.ErrorIs(t, err, packet.ErrUnknownVariant)
}

func TestDecodeTruncatedMandatoryField(t *testing.T) {
	_, err := packet.Decode([]byte{0x00, 0x01})
	assert.ErrorIs(t, err, packet.ErrTruncated)
}

func TestValidateRejectsZeroPrice(t *testing.T) {
	zero := quantity.Ticks(0)
	p := packet.OrderPacket{OrderType: clobtypes.OrderTypeLimit, PriceInTicks: &zero}
	assert.ErrorIs(t, p.Validate(), packet.ErrZeroPrice)

	p2 := packet.OrderPacket{OrderType: clobtypes.OrderTypeLimit}
	assert.ErrorIs(t, p2.Validate(), packet.ErrZeroPrice)
}

func TestEffectiveLimitPriceForMarketIOC(t *testing.T) {
	bid := packet.NewImmediateOrCancel(clobtypes.Bid, nil, 1, 0, 0, clobtypes.SelfTradeAbort)
	ask := packet.NewImmediateOrCancel(clobtypes.Ask, nil, 1, 0, 0, clobtypes.SelfTradeAbort)

	assert.Equal(t, quantity.Ticks(^uint64(0)), bid.EffectiveLimitPrice())
	assert.Equal(t, quantity.Ticks(0), ask.EffectiveLimitPrice())
}

func TestExpired(t *testing.T) {
	slot := uint64(100)
	p := packet.OrderPacket{LastValidSlot: &slot}
	assert.False(t, p.Expired(100, 0))
	assert.True(t, p.Expired(101, 0))
}

func TestMatchLimitOrMax(t *testing.T) {
	p := packet.OrderPacket{}
	assert.Equal(t, ^uint64(0), p.MatchLimitOrMax())

	zero := uint64(0)
	p.MatchLimit = &zero
	assert.Equal(t, uint64(0), p.MatchLimitOrMax())
}
