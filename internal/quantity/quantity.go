// Package quantity implements the phantom-typed quantity algebra described
// in spec §3/§4.1: every on-book or on-wire amount is one of a handful of
// incompatible units, and the only way to move between units is one of the
// named conversions below. The compiler rejects anything else because each
// unit is its own defined type over uint64 — there is no implicit numeric
// conversion between e.g. BaseLots and QuoteLots.
package quantity

import (
	"math"
	"math/big"
)

// BaseLots and QuoteLots are the book-internal amounts resting orders and
// trade sizes are denominated in.
type BaseLots uint64

// QuoteLots is the quote-side counterpart of BaseLots.
type QuoteLots uint64

// BaseAtoms and QuoteAtoms are settlement-level amounts: the smallest
// transferable unit of each token, the level the host's deposit/withdraw
// bookkeeping (out of scope here, spec §1) actually moves.
type BaseAtoms uint64

// QuoteAtoms is the quote-side counterpart of BaseAtoms.
type QuoteAtoms uint64

// BaseUnits and QuoteUnits are human display-scale amounts (spec GLOSSARY).
type BaseUnits uint64

// QuoteUnits is the quote-side counterpart of BaseUnits.
type QuoteUnits uint64

// Ticks is an integer price expressed in the market's tick size.
type Ticks uint64

// AdjustedQuoteLots is QuoteLots scaled by BaseLotsPerBaseUnit, used as the
// intermediate unit for pricing partial base lots exactly (spec §3).
type AdjustedQuoteLots uint64

// QuoteLotsPerBaseUnit is the quote-lot value of one base unit at a given
// price; it is what price_in_ticks resolves to once scaled by tick size.
type QuoteLotsPerBaseUnit uint64

// Conversion factors. These are market-header constants (spec §3), never
// derived at runtime.
type (
	BaseAtomsPerBaseLot         uint64
	QuoteAtomsPerQuoteLot       uint64
	BaseLotsPerBaseUnit         uint64
	QuoteLotsPerQuoteUnit       uint64
	QuoteLotsPerBaseUnitPerTick uint64
)

// Add and Sub are defined per-unit below rather than generically: keeping
// one pair of methods per type (instead of a shared generic numeric
// interface) is what lets each type's own overflow/underflow behavior stay
// explicit and auditable, matching the teacher's plain-field style.

// Add returns a+b, checked against uint64 overflow.
func (a BaseLots) Add(b BaseLots) (BaseLots, error) {
	if math.MaxUint64-uint64(a) < uint64(b) {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a-b, failing rather than wrapping if b > a.
func (a BaseLots) Sub(b BaseLots) (BaseLots, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// SaturatingSub returns a-b, floored at zero instead of failing.
func (a BaseLots) SaturatingSub(b BaseLots) BaseLots {
	if b > a {
		return 0
	}
	return a - b
}

// Add returns a+b, checked against uint64 overflow.
func (a QuoteLots) Add(b QuoteLots) (QuoteLots, error) {
	if math.MaxUint64-uint64(a) < uint64(b) {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a-b, failing rather than wrapping if b > a.
func (a QuoteLots) Sub(b QuoteLots) (QuoteLots, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// SaturatingSub returns a-b, floored at zero instead of failing.
func (a QuoteLots) SaturatingSub(b QuoteLots) QuoteLots {
	if b > a {
		return 0
	}
	return a - b
}

// Min returns the smaller of a and b.
func (a BaseLots) Min(b BaseLots) BaseLots {
	if a < b {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func (a QuoteLots) Min(b QuoteLots) QuoteLots {
	if a < b {
		return a
	}
	return b
}

// --- BaseLots <-> BaseAtoms -------------------------------------------------

// ToBaseAtoms converts a resting/traded base-lot amount to settlement atoms.
func (l BaseLots) ToBaseAtoms(conv BaseAtomsPerBaseLot) (BaseAtoms, error) {
	v, err := checkedUint64(mul2(uint64(l), uint64(conv)))
	if err != nil {
		return 0, err
	}
	return BaseAtoms(v), nil
}

// ToBaseLots converts settlement atoms down to whole base lots, floor-
// rounded, returning the atom remainder that did not divide evenly.
func (a BaseAtoms) ToBaseLots(conv BaseAtomsPerBaseLot) (BaseLots, BaseAtoms, error) {
	if conv == 0 {
		return 0, 0, ErrZeroConversionFactor
	}
	return BaseLots(uint64(a) / uint64(conv)), BaseAtoms(uint64(a) % uint64(conv)), nil
}

// --- QuoteLots <-> QuoteAtoms ------------------------------------------------

// ToQuoteAtoms converts a quote-lot amount to settlement atoms.
func (q QuoteLots) ToQuoteAtoms(conv QuoteAtomsPerQuoteLot) (QuoteAtoms, error) {
	v, err := checkedUint64(mul2(uint64(q), uint64(conv)))
	if err != nil {
		return 0, err
	}
	return QuoteAtoms(v), nil
}

// ToQuoteLots converts settlement atoms down to whole quote lots, floor-
// rounded, returning the atom remainder.
func (a QuoteAtoms) ToQuoteLots(conv QuoteAtomsPerQuoteLot) (QuoteLots, QuoteAtoms, error) {
	if conv == 0 {
		return 0, 0, ErrZeroConversionFactor
	}
	return QuoteLots(uint64(a) / uint64(conv)), QuoteAtoms(uint64(a) % uint64(conv)), nil
}

// --- BaseUnits <-> BaseLots --------------------------------------------------

// ToBaseLots converts a display-scale base amount to book-internal lots.
func (u BaseUnits) ToBaseLots(conv BaseLotsPerBaseUnit) (BaseLots, error) {
	v, err := checkedUint64(mul2(uint64(u), uint64(conv)))
	if err != nil {
		return 0, err
	}
	return BaseLots(v), nil
}

// ToBaseUnits converts book-internal lots down to whole display units,
// floor-rounded, returning the lot remainder.
func (l BaseLots) ToBaseUnits(conv BaseLotsPerBaseUnit) (BaseUnits, BaseLots, error) {
	if conv == 0 {
		return 0, 0, ErrZeroConversionFactor
	}
	return BaseUnits(uint64(l) / uint64(conv)), BaseLots(uint64(l) % uint64(conv)), nil
}

// --- QuoteUnits <-> QuoteLots ------------------------------------------------

// ToQuoteLots converts a display-scale quote amount to book-internal lots.
func (u QuoteUnits) ToQuoteLots(conv QuoteLotsPerQuoteUnit) (QuoteLots, error) {
	v, err := checkedUint64(mul2(uint64(u), uint64(conv)))
	if err != nil {
		return 0, err
	}
	return QuoteLots(v), nil
}

// ToQuoteUnits converts book-internal lots down to whole display units,
// floor-rounded, returning the lot remainder.
func (q QuoteLots) ToQuoteUnits(conv QuoteLotsPerQuoteUnit) (QuoteUnits, QuoteLots, error) {
	if conv == 0 {
		return 0, 0, ErrZeroConversionFactor
	}
	return QuoteUnits(uint64(q) / uint64(conv)), QuoteLots(uint64(q) % uint64(conv)), nil
}

// --- Ticks <-> QuoteLotsPerBaseUnit ------------------------------------------

// ToQuoteLotsPerBaseUnit resolves an integer price to the quote-lot value
// of one base unit at that price: price_in_ticks × QuoteLotsPerBaseUnitPerTick
// (spec §3, "Price encoding").
func (t Ticks) ToQuoteLotsPerBaseUnit(conv QuoteLotsPerBaseUnitPerTick) (QuoteLotsPerBaseUnit, error) {
	v, err := checkedUint64(mul2(uint64(t), uint64(conv)))
	if err != nil {
		return 0, err
	}
	return QuoteLotsPerBaseUnit(v), nil
}

// --- QuoteLots <-> AdjustedQuoteLots -----------------------------------------

// ToAdjustedQuoteLots scales a quote-lot amount by BaseLotsPerBaseUnit,
// producing the precision-preserving intermediate unit spec §3 defines:
// AdjustedQuoteLots = QuoteLots × BaseLotsPerBaseUnit.
func (q QuoteLots) ToAdjustedQuoteLots(conv BaseLotsPerBaseUnit) (AdjustedQuoteLots, error) {
	v, err := checkedUint64(mul2(uint64(q), uint64(conv)))
	if err != nil {
		return 0, err
	}
	return AdjustedQuoteLots(v), nil
}

// ToQuoteLotsCeil divides back down to QuoteLots, rounding up. Used for the
// buyer's debit (spec §4.4.4 step 5/6 and §9 "documented rounding: ceiling
// for buyer debit").
func (a AdjustedQuoteLots) ToQuoteLotsCeil(conv BaseLotsPerBaseUnit) (QuoteLots, error) {
	if conv == 0 {
		return 0, ErrZeroConversionFactor
	}
	q := uint64(a) / uint64(conv)
	if uint64(a)%uint64(conv) != 0 {
		if q == math.MaxUint64 {
			return 0, ErrOverflow
		}
		q++
	}
	return QuoteLots(q), nil
}

// ToQuoteLotsFloor divides back down to QuoteLots, rounding down. Used for
// the seller's credit (spec §4.4.4 step 5/6 and §9 "floor for seller
// credit").
func (a AdjustedQuoteLots) ToQuoteLotsFloor(conv BaseLotsPerBaseUnit) (QuoteLots, error) {
	if conv == 0 {
		return 0, ErrZeroConversionFactor
	}
	return QuoteLots(uint64(a) / uint64(conv)), nil
}

// TradeAdjustedQuoteLots computes trade_base × price_in_ticks × tick_size
// (spec §4.4.4 step 5) as a single checked 128-bit-intermediate product,
// narrowed to AdjustedQuoteLots. This is the central pricing primitive the
// match loop calls for every fill.
func TradeAdjustedQuoteLots(tradeBase BaseLots, priceInTicks Ticks, tickSize QuoteLotsPerBaseUnitPerTick) (AdjustedQuoteLots, error) {
	v, err := checkedUint64(mul3(uint64(tradeBase), uint64(priceInTicks), uint64(tickSize)))
	if err != nil {
		return 0, err
	}
	return AdjustedQuoteLots(v), nil
}

// CeilDivU64 divides two plain u64s and rounds up, failing on a zero
// denominator. The engine's fee uses QuoteLots.FeeCeil, not this helper.
func CeilDivU64(numerator, denominator uint64) (uint64, error) {
	if denominator == 0 {
		return 0, ErrZeroConversionFactor
	}
	q := numerator / denominator
	if numerator%denominator != 0 {
		if q == math.MaxUint64 {
			return 0, ErrOverflow
		}
		q++
	}
	return q, nil
}

// FeeCeil computes ceil(q × feeBps / 10_000) (spec §4.4.4 step 6), using a
// big.Int intermediate since q × feeBps can exceed uint64 well before the
// division brings it back down.
func (q QuoteLots) FeeCeil(feeBps uint16) (QuoteLots, error) {
	prod := mul2(uint64(q), uint64(feeBps))
	ten000 := big.NewInt(10000)
	quot, rem := new(big.Int), new(big.Int)
	quot.QuoRem(prod, ten000, rem)
	if rem.Sign() != 0 {
		quot.Add(quot, big.NewInt(1))
	}
	v, err := checkedUint64(quot)
	if err != nil {
		return 0, err
	}
	return QuoteLots(v), nil
}
