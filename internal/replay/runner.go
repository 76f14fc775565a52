package replay

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/display"
	"github.com/nyxmarkets/clobcore/internal/engine"
	"github.com/nyxmarkets/clobcore/internal/events"
	"github.com/nyxmarkets/clobcore/internal/market"
	"github.com/nyxmarkets/clobcore/internal/packet"
)

// Runner replays one Script against one market.Market, in order, on a
// single goroutine. Determinism (spec §3 invariant 4) depends on steps
// never running concurrently against the same market; Runner.Run is the
// only writer of m for its whole call.
type Runner struct {
	m     *market.Market
	clock *market.FixedClock

	seats map[string]clobtypes.TraderIndex
}

// NewRunner builds a Runner over m, driven by clock (Run advances it
// directly in response to a Step's AdvanceSlots/AdvanceSeconds).
func NewRunner(m *market.Market, clock *market.FixedClock) *Runner {
	return &Runner{m: m, clock: clock, seats: make(map[string]clobtypes.TraderIndex)}
}

// Run executes every step of s in order, logging each instruction's
// outcome. It stops at the first step that returns an error, since a
// script is meant to describe one coherent, ordered scenario rather than
// a bag of independent instructions.
func (r *Runner) Run(s *Script) error {
	for i, step := range s.Steps {
		if err := r.runStep(step); err != nil {
			log.Error().Int("step", i).Str("op", step.Op).Err(err).Msg("replay step failed")
			return fmt.Errorf("replay: step %d (%s): %w", i, step.Op, err)
		}
	}
	return nil
}

// logFills writes a human-readable decimal summary line for every Fill and
// FillSummary event an instruction produced, alongside the structured log
// fields runStep already emits. This is purely a display concern (spec's
// Non-goals keep floating-point out of matching itself); the underlying
// events carry the exact integer lot amounts regardless.
func (r *Runner) logFills(evs []events.Event) {
	for _, e := range evs {
		switch e.Kind {
		case events.KindFill:
			log.Info().Msg(display.Fill(e.Fill, r.m.Header))
		case events.KindFillSummary:
			log.Info().Msg(display.FillSummary(e.FillSummary, r.m.Header))
		}
	}
}

func (r *Runner) seatFor(label string) (clobtypes.TraderIndex, error) {
	if idx, ok := r.seats[label]; ok {
		return idx, nil
	}
	idx, err := r.m.RequestSeat(identityFor(label))
	if err != nil {
		return 0, err
	}
	r.seats[label] = idx
	return idx, nil
}

func (r *Runner) runStep(step Step) error {
	if step.AdvanceSlots != 0 || step.AdvanceSeconds != 0 {
		r.clock.Advance(step.AdvanceSlots, step.AdvanceSeconds)
	}

	switch step.Op {
	case "request_seat":
		idx, err := r.seatFor(step.Trader)
		if err != nil {
			return err
		}
		log.Info().Str("trader", step.Trader).Uint32("traderIndex", uint32(idx)).Msg("seated")
		return nil

	case "deposit":
		idx, err := r.seatFor(step.Trader)
		if err != nil {
			return err
		}
		return r.m.Deposit(idx, step.BaseLots, step.QuoteLots)

	case "place_order":
		idx, err := r.seatFor(step.Trader)
		if err != nil {
			return err
		}
		if step.Order == nil {
			return fmt.Errorf("replay: place_order step missing order payload")
		}
		wire, err := encodeOrderStep(*step.Order)
		if err != nil {
			return err
		}
		ids, evs, err := r.m.PlaceOrder(idx, step.Signer, wire)
		if err != nil {
			return err
		}
		log.Info().Str("trader", step.Trader).Any("orderIds", ids).Int("events", len(evs)).Msg("order placed")
		r.logFills(evs)
		return nil

	case "reduce_order":
		idx, err := r.seatFor(step.Trader)
		if err != nil {
			return err
		}
		if step.OrderID == nil {
			return fmt.Errorf("replay: reduce_order step missing order_id")
		}
		side, err := parseSide(step.Side)
		if err != nil {
			return err
		}
		_, err = r.m.ReduceOrder(idx, step.Signer, side, step.OrderID.toID(), step.ReduceToSize)
		return err

	case "cancel_all_orders":
		idx, err := r.seatFor(step.Trader)
		if err != nil {
			return err
		}
		_, err = r.m.CancelAllOrders(idx, step.Signer)
		return err

	case "cancel_up_to":
		idx, err := r.seatFor(step.Trader)
		if err != nil {
			return err
		}
		_, err = r.m.CancelUpTo(idx, step.Signer, step.MaxBids, step.MaxAsks, step.BidTickLimit, step.AskTickLimit)
		return err

	case "cancel_multiple_orders_by_id":
		idx, err := r.seatFor(step.Trader)
		if err != nil {
			return err
		}
		refs, err := toOrderRefs(step.OrderRefs)
		if err != nil {
			return err
		}
		_, err = r.m.CancelMultipleOrdersById(idx, step.Signer, refs)
		return err

	case "force_cancel_orders":
		refs, err := toOrderRefs(step.OrderRefs)
		if err != nil {
			return err
		}
		_, err = r.m.ForceCancelOrders(step.Signer, refs)
		return err

	case "advance_clock":
		return nil // already advanced above

	default:
		return fmt.Errorf("replay: unknown op %q", step.Op)
	}
}

func toOrderRefs(steps []OrderRefStep) ([]engine.OrderRef, error) {
	refs := make([]engine.OrderRef, len(steps))
	for i, s := range steps {
		side, err := parseSide(s.Side)
		if err != nil {
			return nil, err
		}
		refs[i] = engine.OrderRef{Side: side, ID: s.ID.toID()}
	}
	return refs, nil
}

func encodeOrderStep(o OrderStep) ([]byte, error) {
	side, err := parseSide(o.Side)
	if err != nil {
		return nil, err
	}
	selfTrade, err := parseSelfTradeBehavior(o.SelfTradeBehavior)
	if err != nil {
		return nil, err
	}

	switch o.Type {
	case "post_only":
		if o.PriceInTicks == nil {
			return nil, fmt.Errorf("replay: post_only order requires price_in_ticks")
		}
		p := packet.NewPostOnly(side, *o.PriceInTicks, o.NumBaseLots, o.ClientOrderId, o.RejectPostOnly)
		p.UseOnlyDepositedFunds = o.UseOnlyDepositedFunds
		return packet.Encode(p), nil
	case "limit":
		if o.PriceInTicks == nil {
			return nil, fmt.Errorf("replay: limit order requires price_in_ticks")
		}
		p := packet.NewLimit(side, *o.PriceInTicks, o.NumBaseLots, o.ClientOrderId, selfTrade)
		p.UseOnlyDepositedFunds = o.UseOnlyDepositedFunds
		return packet.Encode(p), nil
	case "ioc":
		p := packet.NewImmediateOrCancel(side, o.PriceInTicks, o.NumBaseLots, o.NumQuoteLots, o.ClientOrderId, selfTrade)
		p.MinBaseLotsToFill = o.MinBaseLotsToFill
		p.MinQuoteLotsToFill = o.MinQuoteLotsToFill
		p.UseOnlyDepositedFunds = o.UseOnlyDepositedFunds
		return packet.Encode(p), nil
	default:
		return nil, fmt.Errorf("replay: unknown order type %q", o.Type)
	}
}
