package packet

import (
	"encoding/binary"

	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/quantity"
)

// Wire tags, one per OrderPacket variant (spec §4.3).
const (
	tagPostOnly byte = iota
	tagLimit
	tagImmediateOrCancel
)

// trailingMaxWidth is the width, in bytes, of the three backward-compatible
// trailing optional fields when all three are present: last_valid_slot
// (Option<u64>, 9 bytes), last_valid_unix_timestamp_in_seconds (Option<i64>,
// 9 bytes), fail_silently_on_insufficient_funds (bool, 1 byte). Spec §6
// requires these three to decode correctly even when a caller built on an
// older version of this packet's layout omits them entirely from the wire.
const trailingMaxWidth = 9 + 9 + 1

// cursor is a bounds-checked, forward-only byte reader. Every read reports
// ok=false instead of panicking so the trailing-optional decode loop below
// can treat "ran out of bytes" as an ordinary decode failure to retry at a
// shorter length.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) readByte() (byte, bool) {
	if c.pos >= len(c.buf) {
		return 0, false
	}
	b := c.buf[c.pos]
	c.pos++
	return b, true
}

func (c *cursor) readU64() (uint64, bool) {
	if c.pos+8 > len(c.buf) {
		return 0, false
	}
	v := binary.BigEndian.Uint64(c.buf[c.pos : c.pos+8])
	c.pos += 8
	return v, true
}

func (c *cursor) readI64() (int64, bool) {
	u, ok := c.readU64()
	return int64(u), ok
}

func (c *cursor) readBool() (bool, bool) {
	b, ok := c.readByte()
	return b != 0, ok
}

// readOptionU64 reads a presence byte (must be 0 or 1) and, if 1, the
// 8-byte value. A presence byte outside {0,1} is a decode failure.
func (c *cursor) readOptionU64() (*uint64, bool) {
	tag, ok := c.readByte()
	if !ok || tag > 1 {
		return nil, false
	}
	if tag == 0 {
		return nil, true
	}
	v, ok := c.readU64()
	if !ok {
		return nil, false
	}
	return &v, true
}

func (c *cursor) readOptionI64() (*int64, bool) {
	tag, ok := c.readByte()
	if !ok || tag > 1 {
		return nil, false
	}
	if tag == 0 {
		return nil, true
	}
	v, ok := c.readI64()
	if !ok {
		return nil, false
	}
	return &v, true
}

func writeU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func writeOptionU64(buf []byte, v *uint64) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return writeU64(buf, *v)
}

func writeOptionI64(buf []byte, v *int64) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return writeU64(buf, uint64(*v))
}

// decodeTrailing implements spec §6's backward-compatible decode: pad the
// real remaining bytes out to trailingMaxWidth with zeros, then try
// decoding the schema at every length from trailingMaxWidth down to zero,
// accepting the first length whose decode consumes the buffer exactly. A
// zero byte in the presence-tag position always decodes as "absent", so
// the zero padding can never manufacture a phantom present field; it can
// only ever supply the tail a shorter, older-format input is missing.
func decodeTrailing(real []byte) (lastValidSlot *uint64, lastValidUnixTs *int64, failSilently bool, err error) {
	padded := make([]byte, trailingMaxWidth)
	copy(padded, real)

	for length := trailingMaxWidth; length >= 0; length-- {
		c := &cursor{buf: padded[:length]}
		slot, ok := c.readOptionU64()
		if !ok {
			continue
		}
		ts, ok := c.readOptionI64()
		if !ok {
			continue
		}
		fs, ok := c.readBool()
		if !ok {
			continue
		}
		if c.pos != length {
			continue
		}
		return slot, ts, fs, nil
	}
	return nil, nil, false, ErrMalformedOptional
}

func encodeTrailing(buf []byte, lastValidSlot *uint64, lastValidUnixTs *int64, failSilently bool) []byte {
	buf = writeOptionU64(buf, lastValidSlot)
	buf = writeOptionI64(buf, lastValidUnixTs)
	if failSilently {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// Encode serializes p to its wire form (spec §4.3/§6). Encoding always
// writes the full, current-version layout; only decode needs to tolerate
// shorter, older-version inputs.
func Encode(p OrderPacket) []byte {
	buf := make([]byte, 0, 64)
	switch p.OrderType {
	case clobtypes.OrderTypePostOnly:
		buf = append(buf, tagPostOnly, byte(p.Side))
		buf = writeU64(buf, uint64(*p.PriceInTicks))
		buf = writeU64(buf, uint64(p.NumBaseLots))
		buf = writeU64(buf, p.ClientOrderId)
		if p.RejectPostOnly {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		if p.UseOnlyDepositedFunds {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case clobtypes.OrderTypeLimit:
		buf = append(buf, tagLimit, byte(p.Side))
		buf = writeU64(buf, uint64(*p.PriceInTicks))
		buf = writeU64(buf, uint64(p.NumBaseLots))
		buf = writeU64(buf, p.ClientOrderId)
		buf = append(buf, byte(p.SelfTradeBehavior))
		buf = writeOptionU64(buf, p.MatchLimit)
		if p.UseOnlyDepositedFunds {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case clobtypes.OrderTypeImmediateOrCancel:
		buf = append(buf, tagImmediateOrCancel, byte(p.Side))
		var priceU64 *uint64
		if p.PriceInTicks != nil {
			v := uint64(*p.PriceInTicks)
			priceU64 = &v
		}
		buf = writeOptionU64(buf, priceU64)
		buf = writeU64(buf, uint64(p.NumBaseLots))
		buf = writeU64(buf, uint64(p.NumQuoteLots))
		buf = writeU64(buf, uint64(p.MinBaseLotsToFill))
		buf = writeU64(buf, uint64(p.MinQuoteLotsToFill))
		buf = append(buf, byte(p.SelfTradeBehavior))
		buf = writeOptionU64(buf, p.MatchLimit)
		buf = writeU64(buf, p.ClientOrderId)
		if p.UseOnlyDepositedFunds {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	buf = encodeTrailing(buf, p.LastValidSlot, p.LastValidUnixTimestampInSeconds, p.FailSilentlyOnInsufficientFunds)
	return buf
}

// Decode parses buf into an OrderPacket, per spec §4.3/§6.
func Decode(buf []byte) (OrderPacket, error) {
	if len(buf) < 1 {
		return OrderPacket{}, ErrTruncated
	}
	tag := buf[0]
	c := &cursor{buf: buf, pos: 1}

	var p OrderPacket
	switch tag {
	case tagPostOnly:
		sideByte, ok := c.readByte()
		price, ok2 := c.readU64()
		baseLots, ok3 := c.readU64()
		clientOrderId, ok4 := c.readU64()
		rejectByte, ok5 := c.readByte()
		depositByte, ok6 := c.readByte()
		if !(ok && ok2 && ok3 && ok4 && ok5 && ok6) {
			return OrderPacket{}, ErrTruncated
		}
		priceTicks := quantity.Ticks(price)
		p = OrderPacket{
			OrderType:             clobtypes.OrderTypePostOnly,
			Side:                  clobtypes.Side(sideByte),
			PriceInTicks:          &priceTicks,
			NumBaseLots:           quantity.BaseLots(baseLots),
			ClientOrderId:         clientOrderId,
			RejectPostOnly:        rejectByte != 0,
			UseOnlyDepositedFunds: depositByte != 0,
		}
	case tagLimit:
		sideByte, ok := c.readByte()
		price, ok2 := c.readU64()
		baseLots, ok3 := c.readU64()
		clientOrderId, ok4 := c.readU64()
		selfTradeByte, ok5 := c.readByte()
		matchLimit, ok6 := c.readOptionU64()
		depositByte, ok7 := c.readByte()
		if !(ok && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
			return OrderPacket{}, ErrTruncated
		}
		priceTicks := quantity.Ticks(price)
		p = OrderPacket{
			OrderType:             clobtypes.OrderTypeLimit,
			Side:                  clobtypes.Side(sideByte),
			PriceInTicks:          &priceTicks,
			NumBaseLots:           quantity.BaseLots(baseLots),
			ClientOrderId:         clientOrderId,
			SelfTradeBehavior:     clobtypes.SelfTradeBehavior(selfTradeByte),
			MatchLimit:            matchLimit,
			UseOnlyDepositedFunds: depositByte != 0,
		}
	case tagImmediateOrCancel:
		sideByte, ok := c.readByte()
		price, ok2 := c.readOptionU64()
		baseLots, ok3 := c.readU64()
		quoteLots, ok4 := c.readU64()
		minBaseLots, ok5 := c.readU64()
		minQuoteLots, ok6 := c.readU64()
		selfTradeByte, ok7 := c.readByte()
		matchLimit, ok8 := c.readOptionU64()
		clientOrderId, ok9 := c.readU64()
		depositByte, ok10 := c.readByte()
		if !(ok && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8 && ok9 && ok10) {
			return OrderPacket{}, ErrTruncated
		}
		var priceTicks *quantity.Ticks
		if price != nil {
			t := quantity.Ticks(*price)
			priceTicks = &t
		}
		p = OrderPacket{
			OrderType:             clobtypes.OrderTypeImmediateOrCancel,
			Side:                  clobtypes.Side(sideByte),
			PriceInTicks:          priceTicks,
			NumBaseLots:           quantity.BaseLots(baseLots),
			NumQuoteLots:          quantity.QuoteLots(quoteLots),
			MinBaseLotsToFill:     quantity.BaseLots(minBaseLots),
			MinQuoteLotsToFill:    quantity.QuoteLots(minQuoteLots),
			ClientOrderId:         clientOrderId,
			SelfTradeBehavior:     clobtypes.SelfTradeBehavior(selfTradeByte),
			MatchLimit:            matchLimit,
			UseOnlyDepositedFunds: depositByte != 0,
		}
	default:
		return OrderPacket{}, ErrUnknownVariant
	}

	slot, ts, failSilently, err := decodeTrailing(c.buf[c.pos:])
	if err != nil {
		return OrderPacket{}, err
	}
	p.LastValidSlot = slot
	p.LastValidUnixTimestampInSeconds = ts
	p.FailSilentlyOnInsufficientFunds = failSilently
	return p, nil
}
