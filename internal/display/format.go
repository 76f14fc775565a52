// Package display formats book-internal integer lot amounts for humans:
// replay CLI summaries and log lines. It never feeds back into matching —
// every value here is constructed from an already-settled integer lot
// amount plus the market's own conversion factor, never from a float, so
// the Non-goals' "no floating-point in matching" holds regardless of what
// this package does with the result afterward.
package display

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/events"
	"github.com/nyxmarkets/clobcore/internal/quantity"
)

// BaseUnits renders a base-lot amount as a decimal base-unit quantity,
// e.g. 1_234 lots at 100 lots/unit -> "12.34".
func BaseUnits(lots quantity.BaseLots, conv quantity.BaseLotsPerBaseUnit) decimal.Decimal {
	if conv == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(lots)).DivRound(decimal.NewFromInt(int64(conv)), 8)
}

// QuoteAtoms renders a quote-lot amount as a decimal settlement-atom
// quantity. The market header has no quote-unit display factor of its own
// (spec §3 only names a quote-lot/quote-atom conversion), so atoms are the
// finest quote-side scale available to render exactly.
func QuoteAtoms(lots quantity.QuoteLots, conv quantity.QuoteAtomsPerQuoteLot) decimal.Decimal {
	atoms, err := lots.ToQuoteAtoms(conv)
	if err != nil {
		return decimal.NewFromInt(int64(lots)).Mul(decimal.NewFromInt(int64(conv)))
	}
	return decimal.NewFromInt(int64(atoms))
}

// Fill renders one Fill event as a human-readable trade line for logs and
// replay summaries, resolving lot amounts against the market header's own
// conversion factors rather than any of the event's own fields.
func Fill(f events.Fill, header *clobtypes.MarketHeader) string {
	base := BaseUnits(f.BaseLotsFilled, header.BaseLotsPerBaseUnit)
	quote := QuoteAtoms(f.QuoteLotsFilled, header.QuoteAtomsPerQuoteLot)
	side := "sell"
	if f.MakerSide == clobtypes.Bid {
		side = "buy"
	}
	return fmt.Sprintf("maker %s %s base @ tick %d for %s quote atoms", side, base.String(), f.PriceInTicks, quote.String())
}

// FillSummary renders one taker instruction's FillSummary event as a
// one-line settlement recap: total base/quote filled and the fee charged,
// all in display units.
func FillSummary(s events.FillSummary, header *clobtypes.MarketHeader) string {
	base := BaseUnits(s.TotalBaseFilled, header.BaseLotsPerBaseUnit)
	quote := QuoteAtoms(s.TotalQuoteFilled, header.QuoteAtomsPerQuoteLot)
	fee := QuoteAtoms(s.TotalFeeQuoteLots, header.QuoteAtomsPerQuoteLot)
	return fmt.Sprintf("client_order_id=%d filled %s base for %s quote atoms (fee %s quote atoms)",
		s.ClientOrderId, base.String(), quote.String(), fee.String())
}
