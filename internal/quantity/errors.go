package quantity

import "errors"

// ErrOverflow is returned whenever a conversion or composition would not
// fit in the destination width. Checked explicitly rather than relying on
// u64 wraparound: the matching engine must reject these inputs outright
// (spec §4.1, §7 NumericalOverflow), not silently truncate them.
var ErrOverflow = errors.New("quantity: arithmetic overflow")

// ErrZeroConversionFactor guards the conversion-factor divisions: a market
// configured with a zero tick size or zero lot size is malformed, not a
// runtime numerical edge case, so it gets its own sentinel.
var ErrZeroConversionFactor = errors.New("quantity: zero conversion factor")
