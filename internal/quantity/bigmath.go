package quantity

import "math/big"

// mul2 and mul3 compute exact products of two or three u64 operands using
// math/big. The corpus has no third-party fixed-width checked-arithmetic
// library (decimal.Decimal is arbitrary-precision but float-rooted in
// intent and loses the "reject on overflow" semantics this package needs),
// so big.Int is the justified stdlib choice here — see DESIGN.md.
func mul2(a, b uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
}

func mul3(a, b, c uint64) *big.Int {
	ab := mul2(a, b)
	return ab.Mul(ab, new(big.Int).SetUint64(c))
}

// checkedUint64 narrows x to a uint64, returning ErrOverflow if it does not fit.
func checkedUint64(x *big.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, ErrOverflow
	}
	return x.Uint64(), nil
}
