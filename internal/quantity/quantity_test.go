package quantity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseLotsAddOverflow(t *testing.T) {
	_, err := BaseLots(math.MaxUint64).Add(1)
	assert.ErrorIs(t, err, ErrOverflow)

	sum, err := BaseLots(5).Add(3)
	require.NoError(t, err)
	assert.Equal(t, BaseLots(8), sum)
}

func TestBaseLotsSubUnderflow(t *testing.T) {
	_, err := BaseLots(3).Sub(5)
	assert.ErrorIs(t, err, ErrOverflow)

	assert.Equal(t, BaseLots(0), BaseLots(3).SaturatingSub(5))
	assert.Equal(t, BaseLots(2), BaseLots(5).SaturatingSub(3))
}

func TestBaseAtomsRoundTrip(t *testing.T) {
	atoms, err := BaseLots(10).ToBaseAtoms(1_000_000)
	require.NoError(t, err)
	assert.Equal(t, BaseAtoms(10_000_000), atoms)

	lots, remainder, err := atoms.ToBaseLots(1_000_000)
	require.NoError(t, err)
	assert.Equal(t, BaseLots(10), lots)
	assert.Equal(t, BaseAtoms(0), remainder)
}

func TestBaseAtomsRemainder(t *testing.T) {
	lots, remainder, err := BaseAtoms(10_000_123).ToBaseLots(1_000_000)
	require.NoError(t, err)
	assert.Equal(t, BaseLots(10), lots)
	assert.Equal(t, BaseAtoms(123), remainder)
}

func TestTicksToQuoteLotsPerBaseUnit(t *testing.T) {
	price, err := Ticks(100).ToQuoteLotsPerBaseUnit(10_000)
	require.NoError(t, err)
	assert.Equal(t, QuoteLotsPerBaseUnit(1_000_000), price)
}

func TestTradeAdjustedQuoteLotsExactDivision(t *testing.T) {
	// 500 base lots, price 100 ticks, tick size 10_000, 100 base lots per
	// base unit: matches scenario 1 of spec §8.
	adj, err := TradeAdjustedQuoteLots(500, 100, 10_000)
	require.NoError(t, err)

	quoteLots, err := adj.ToQuoteLotsCeil(100)
	require.NoError(t, err)
	assert.Equal(t, QuoteLots(5_000_000), quoteLots)

	floor, err := adj.ToQuoteLotsFloor(100)
	require.NoError(t, err)
	assert.Equal(t, quoteLots, floor, "exact division: ceil and floor agree")
}

func TestTradeAdjustedQuoteLotsRoundingSplit(t *testing.T) {
	// 3 base lots at price 7 ticks, tick size 333, 100 base lots per base
	// unit: 3*7*333 = 6993 adjusted quote lots, which does not divide
	// evenly by 100 lots-per-unit -> 69 remainder 93, so ceil 70, floor 69.
	adj, err := TradeAdjustedQuoteLots(3, 7, 333)
	require.NoError(t, err)
	ceil, err := adj.ToQuoteLotsCeil(100)
	require.NoError(t, err)
	floor, err := adj.ToQuoteLotsFloor(100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, uint64(ceil), uint64(floor))
	assert.LessOrEqual(t, uint64(ceil)-uint64(floor), uint64(1))
}

func TestCeilDivU64Fee(t *testing.T) {
	fee, err := CeilDivU64(500_000*30, 10_000) // 30 bps on 500,000 quote lots
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), fee)

	fee, err = CeilDivU64(1, 10_000) // tiny trade still rounds up to 1
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fee)

	fee, err = CeilDivU64(0, 10_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), fee)
}

func TestFeeCeil(t *testing.T) {
	fee, err := QuoteLots(500_000).FeeCeil(30) // 30 bps on 500,000 quote lots
	require.NoError(t, err)
	assert.Equal(t, QuoteLots(1500), fee)

	fee, err = QuoteLots(1).FeeCeil(1)
	require.NoError(t, err)
	assert.Equal(t, QuoteLots(1), fee, "any non-zero product rounds up to at least 1")

	fee, err = QuoteLots(0).FeeCeil(30)
	require.NoError(t, err)
	assert.Equal(t, QuoteLots(0), fee)

	// A product that would overflow uint64 before the divide is still
	// computed correctly via the big.Int intermediate.
	fee, err = QuoteLots(math.MaxUint64).FeeCeil(30)
	require.NoError(t, err)
	assert.Greater(t, uint64(fee), uint64(0))
}

func TestOverflowDetectedAcrossThreeFactors(t *testing.T) {
	_, err := TradeAdjustedQuoteLots(math.MaxUint64, math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestZeroConversionFactorRejected(t *testing.T) {
	_, _, err := BaseAtoms(10).ToBaseLots(0)
	assert.ErrorIs(t, err, ErrZeroConversionFactor)
}
