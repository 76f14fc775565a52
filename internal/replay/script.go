// Package replay implements the ambient harness that exercises a
// market.Market end to end from a scripted instruction feed, the same
// role the teacher's cmd/client/cmd/server pair plays for its TCP wire
// protocol without itself being a host runtime (spec §1 Non-goals: no
// account loading, no signature checks, no instruction framing).
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/quantity"
	"github.com/nyxmarkets/clobcore/internal/trader"
)

// Script is a sequence of instructions to replay against one market in
// order, read from a JSON file. The instruction set mirrors spec §6; one
// Step carries exactly one instruction, tagged by Op.
type Script struct {
	Steps []Step `json:"steps"`
}

// Step is one instruction in a Script. Only the fields relevant to Op are
// populated; unrecognized or irrelevant fields are simply ignored by the
// runner for a given Op.
type Step struct {
	Op string `json:"op"`

	// Trader and Signer are short human labels ("alice"). Trader is hashed
	// into a stable 32-byte trader.Identity by identityFor; Signer is passed
	// to the market unchanged as the instruction's signer string. A real
	// host's identities come from chain-native account keys, never a label.
	Trader string `json:"trader,omitempty"`
	Signer string `json:"signer,omitempty"`

	BaseLots  quantity.BaseLots  `json:"base_lots,omitempty"`
	QuoteLots quantity.QuoteLots `json:"quote_lots,omitempty"`

	// Order is a human-authorable stand-in for the §4.3 wire payload
	// PlaceOrder actually decodes; the runner re-serializes it through
	// packet.Encode so the exact decode path production traffic uses is
	// still exercised, rather than constructing an OrderPacket directly.
	Order *OrderStep `json:"order,omitempty"`

	Side         string           `json:"side,omitempty"` // "bid" | "ask"
	OrderID      *FIFOOrderIDStep `json:"order_id,omitempty"`
	ReduceToSize *quantity.BaseLots `json:"reduce_to_size,omitempty"`

	MaxBids      int             `json:"max_bids,omitempty"`
	MaxAsks      int             `json:"max_asks,omitempty"`
	BidTickLimit *quantity.Ticks `json:"bid_tick_limit,omitempty"`
	AskTickLimit *quantity.Ticks `json:"ask_tick_limit,omitempty"`
	OrderRefs    []OrderRefStep  `json:"order_refs,omitempty"`

	AdvanceSlots   uint64 `json:"advance_slots,omitempty"`
	AdvanceSeconds int64  `json:"advance_seconds,omitempty"`
}

// OrderStep describes one new-order instruction in the script's own
// vocabulary; the runner turns it into the real wire-encoded packet.
type OrderStep struct {
	Type                  string             `json:"type"` // "post_only" | "limit" | "ioc"
	Side                  string             `json:"side"`
	PriceInTicks          *quantity.Ticks    `json:"price_in_ticks,omitempty"`
	NumBaseLots           quantity.BaseLots  `json:"num_base_lots"`
	NumQuoteLots          quantity.QuoteLots `json:"num_quote_lots,omitempty"`
	MinBaseLotsToFill     quantity.BaseLots  `json:"min_base_lots_to_fill,omitempty"`
	MinQuoteLotsToFill    quantity.QuoteLots `json:"min_quote_lots_to_fill,omitempty"`
	ClientOrderId         uint64             `json:"client_order_id"`
	SelfTradeBehavior     string             `json:"self_trade_behavior,omitempty"` // "decrement_take" | "cancel_provide" | "abort"
	RejectPostOnly        bool               `json:"reject_post_only,omitempty"`
	UseOnlyDepositedFunds bool               `json:"use_only_deposited_funds,omitempty"`
}

// FIFOOrderIDStep mirrors clobtypes.FIFOOrderId in JSON-friendly form.
type FIFOOrderIDStep struct {
	PriceInTicks   quantity.Ticks `json:"price_in_ticks"`
	SequenceNumber uint64         `json:"sequence_number"`
}

func (s FIFOOrderIDStep) toID() clobtypes.FIFOOrderId {
	return clobtypes.FIFOOrderId{PriceInTicks: s.PriceInTicks, SequenceNumber: s.SequenceNumber}
}

// OrderRefStep mirrors engine.OrderRef in JSON-friendly form.
type OrderRefStep struct {
	Side string          `json:"side"`
	ID   FIFOOrderIDStep `json:"id"`
}

// LoadScript reads and parses a Script from path.
func LoadScript(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay: read script: %w", err)
	}
	var s Script
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("replay: parse script: %w", err)
	}
	return &s, nil
}

func parseSide(s string) (clobtypes.Side, error) {
	switch s {
	case "bid":
		return clobtypes.Bid, nil
	case "ask":
		return clobtypes.Ask, nil
	default:
		return 0, fmt.Errorf("replay: unknown side %q", s)
	}
}

func parseSelfTradeBehavior(s string) (clobtypes.SelfTradeBehavior, error) {
	switch s {
	case "", "decrement_take":
		return clobtypes.SelfTradeDecrementTake, nil
	case "cancel_provide":
		return clobtypes.SelfTradeCancelProvide, nil
	case "abort":
		return clobtypes.SelfTradeAbort, nil
	default:
		return 0, fmt.Errorf("replay: unknown self_trade_behavior %q", s)
	}
}

// identityFor derives a stable 32-byte trader.Identity from a script's
// short human label, so scripts read "alice"/"bob" rather than raw hex.
// This is a replay-harness-only convenience; a real host's identities
// come from chain-native account keys, never a label hash.
func identityFor(label string) trader.Identity {
	var id trader.Identity
	sum := uuid.NewSHA1(uuid.NameSpaceOID, []byte(label))
	copy(id[:], sum[:])
	return id
}
