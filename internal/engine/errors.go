package engine

import "errors"

// Kind classifies every error the engine can return into spec §7's
// taxonomy. Propagation is uniform regardless of Kind — any error aborts
// the whole instruction — but the host surface (out of scope here, spec
// §1) maps Kind to its own status codes, so callers need it preserved
// rather than flattened into a bare error string.
type Kind uint8

const (
	KindInvalidInstructionData Kind = iota
	KindMissingRequiredSignature
	KindInvalidState
	KindPreconditionFailed
	KindResourceExhausted
	KindNumericalOverflow
	KindAccountingInvariant
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInstructionData:
		return "InvalidInstructionData"
	case KindMissingRequiredSignature:
		return "MissingRequiredSignature"
	case KindInvalidState:
		return "InvalidState"
	case KindPreconditionFailed:
		return "PreconditionFailed"
	case KindResourceExhausted:
		return "ResourceExhausted"
	case KindNumericalOverflow:
		return "NumericalOverflow"
	case KindAccountingInvariant:
		return "AccountingInvariant"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying sentinel with the taxonomy Kind it belongs to.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func wrap(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Sentinels named directly after spec §7's worked examples.
var (
	ErrPostOnlyWouldCross = errors.New("engine: post-only order would cross the book")
	ErrSelfTradeNotAllowed = errors.New("engine: self-trade not allowed")
	ErrFillOrKillNotFilled = errors.New("engine: fill-or-kill minimum not met")
	ErrExpiredPacket       = errors.New("engine: packet already expired")
	ErrMarketNotActive     = errors.New("engine: market is not accepting this instruction")
	ErrSeatNotApproved     = errors.New("engine: trader does not hold an approved seat")
	ErrUnknownOrder        = errors.New("engine: order id not found for owner")
	ErrMissingGovernanceSignature = errors.New("engine: signer does not hold the governance authority required for this instruction")
)

// WrapMissingGovernanceSignature tags ErrMissingGovernanceSignature with
// KindMissingRequiredSignature (spec §7), for the host-boundary layer that
// checks a signer against its own MarketAuthority rather than against
// anything the engine itself tracks.
func WrapMissingGovernanceSignature() error {
	return wrap(KindMissingRequiredSignature, ErrMissingGovernanceSignature)
}

