package packet

import "errors"

// ErrUnknownVariant is returned when the tag byte does not match
// PostOnly/Limit/ImmediateOrCancel (spec §7 InvalidInstructionData).
var ErrUnknownVariant = errors.New("packet: unknown order packet variant")

// ErrTruncated is returned when the buffer ends before a mandatory field
// has been fully read.
var ErrTruncated = errors.New("packet: buffer truncated")

// ErrMalformedOptional is returned when the trailing-optional-field region
// cannot be decoded under any truncation length (spec §6).
var ErrMalformedOptional = errors.New("packet: malformed optional field region")

// ErrZeroPrice is spec §4.4 preflight: price_in_ticks must be non-zero for
// PostOnly/Limit packets.
var ErrZeroPrice = errors.New("packet: price_in_ticks must be non-zero")
