package engine

import (
	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/events"
	"github.com/nyxmarkets/clobcore/internal/packet"
	"github.com/nyxmarkets/clobcore/internal/quantity"
)

// matchLoopResult accumulates what the loop produced, for the residual-
// post decision (Limit) and the min-fill check (IOC/FOK).
type matchLoopResult struct {
	baseFilled  quantity.BaseLots
	quoteFilled quantity.QuoteLots
	feeTotal    quantity.QuoteLots

	// remainingBase is the taker's base-lot budget left over at loop exit.
	// It differs from NumBaseLots-baseFilled whenever a self-trade
	// DecrementTake consumed budget without a matching fill (spec §4.4.4
	// step 4): that consumed amount must not come back as postable
	// residual, so callers that post a residual (Limit) use this field
	// rather than re-deriving it from baseFilled.
	remainingBase quantity.BaseLots
}

// runMatchLoop implements spec §4.4.4. It mutates the book and trader
// registry directly as it walks the opposite side's best-priority resting
// orders, pushing a compensating action onto u after every mutation so
// the caller (IOC/FOK void path) can unwind the whole loop on failure.
func (e *Engine) runMatchLoop(takerIdx clobtypes.TraderIndex, p packet.OrderPacket, now events.Now, rec *events.Recorder, u *undoStack) (matchLoopResult, error) {
	var result matchLoopResult

	remainingBase := p.BaseLotBudget()
	remainingQuote, hasQuoteBudget := p.QuoteLotBudget()
	matchLimit := p.MatchLimitOrMax()
	limitPrice := p.EffectiveLimitPrice()
	opposite := p.Side.Opposite()

	var matchesUsed uint64
	for matchesUsed < matchLimit && remainingBase > 0 && (!hasQuoteBudget || remainingQuote > 0) {
		id, resting, ok := e.Book.Best(opposite)
		if !ok {
			break
		}

		if resting.Expired(now.Slot, now.UnixTs) {
			if err := e.removeResting(opposite, id, resting, "expired", true, rec, u); err != nil {
				return result, err
			}
			continue
		}

		if priceIsWorse(opposite, id.PriceInTicks, limitPrice) {
			break
		}

		if resting.TraderIndex == takerIdx {
			consumed, err := e.handleSelfTrade(takerIdx, p, opposite, id, resting, &remainingBase, rec, u)
			if err != nil {
				return result, err
			}
			if consumed {
				matchesUsed++
			}
			continue
		}

		tradeBase := remainingBase.Min(resting.NumBaseLots)
		if hasQuoteBudget {
			clamped, err := clampByQuoteBudget(tradeBase, id.PriceInTicks, e.Header.TickSize, e.Header.BaseLotsPerBaseUnit, remainingQuote)
			if err != nil {
				return result, wrap(KindNumericalOverflow, err)
			}
			tradeBase = clamped
		}
		if tradeBase == 0 {
			break
		}

		fill, err := e.settleFill(takerIdx, p.Side, opposite, id, resting, tradeBase, p.UseOnlyDepositedFunds, rec, u)
		if err != nil {
			return result, err
		}

		result.baseFilled += fill.tradeBase
		result.quoteFilled += fill.takerQuoteLots
		result.feeTotal += fill.feeQuoteLots
		remainingBase -= fill.tradeBase
		if hasQuoteBudget {
			remainingQuote = remainingQuote.SaturatingSub(fill.takerQuoteLots)
		}
		matchesUsed++
	}

	result.remainingBase = remainingBase

	if err := rec.EmitFillSummary(events.FillSummary{
		ClientOrderId:     p.ClientOrderId,
		TotalBaseFilled:   result.baseFilled,
		TotalQuoteFilled:  result.quoteFilled,
		TotalFeeQuoteLots: result.feeTotal,
	}); err != nil {
		return result, wrap(KindResourceExhausted, err)
	}
	return result, nil
}

// priceIsWorse reports whether a resting order at restingPrice on
// restingSide is worse than the taker's limit (spec §4.4.4 step 3).
func priceIsWorse(restingSide clobtypes.Side, restingPrice, limit quantity.Ticks) bool {
	if restingSide == clobtypes.Ask {
		return restingPrice > limit
	}
	return restingPrice < limit
}

// clampByQuoteBudget reduces tradeBase, if needed, so that the buyer's
// ceiling-rounded quote cost stays within remainingQuote (spec §4.4.4 step
// 5). Flooring the affordable-base-lot count is always safe: it can only
// under-spend the budget, never exceed it.
func clampByQuoteBudget(tradeBase quantity.BaseLots, price quantity.Ticks, tickSize quantity.QuoteLotsPerBaseUnitPerTick, blpbu quantity.BaseLotsPerBaseUnit, remainingQuote quantity.QuoteLots) (quantity.BaseLots, error) {
	adjustedAtFull, err := quantity.TradeAdjustedQuoteLots(tradeBase, price, tickSize)
	if err != nil {
		return 0, err
	}
	costAtFull, err := adjustedAtFull.ToQuoteLotsCeil(blpbu)
	if err != nil {
		return 0, err
	}
	if costAtFull <= remainingQuote {
		return tradeBase, nil
	}

	budgetAdjusted, err := remainingQuote.ToAdjustedQuoteLots(blpbu)
	if err != nil {
		return 0, err
	}
	perLotAdjusted, err := quantity.TradeAdjustedQuoteLots(1, price, tickSize)
	if err != nil {
		return 0, err
	}
	if perLotAdjusted == 0 {
		return 0, nil
	}
	maxBase := quantity.BaseLots(uint64(budgetAdjusted) / uint64(perLotAdjusted))
	return tradeBase.Min(maxBase), nil
}

// removeResting removes a resting order outright (expiry or self-trade
// cancel-provide), returns its lockup, and emits the Reduce event. Every
// step is undo-logged.
func (e *Engine) removeResting(side clobtypes.Side, id clobtypes.FIFOOrderId, resting *clobtypes.RestingOrder, reason string, expired bool, rec *events.Recorder, u *undoStack) error {
	snapshot := *resting
	if _, ok := e.Book.Remove(side, id); !ok {
		return wrap(KindInvalidState, ErrUnknownOrder)
	}
	u.push(func() {
		restored := snapshot
		_, _ = e.Book.Insert(side, id, &restored)
	})
	if err := e.reduceRestingLockup(resting, side, id.PriceInTicks, resting.NumBaseLots, u); err != nil {
		return err
	}
	if err := rec.EmitReduce(events.Reduce{
		ID:              id,
		TraderIndex:     resting.TraderIndex,
		BaseLotsRemoved: resting.NumBaseLots,
		FullyRemoved:    true,
		Expired:         expired,
		Reason:          reason,
	}); err != nil {
		return wrap(KindResourceExhausted, err)
	}
	return nil
}

// handleSelfTrade applies taker p's self-trade policy against a resting
// order it also owns (spec §4.4.4 step 4). Returns whether a match-limit
// slot was consumed.
func (e *Engine) handleSelfTrade(takerIdx clobtypes.TraderIndex, p packet.OrderPacket, opposite clobtypes.Side, id clobtypes.FIFOOrderId, resting *clobtypes.RestingOrder, remainingBase *quantity.BaseLots, rec *events.Recorder, u *undoStack) (bool, error) {
	switch p.SelfTradeBehavior {
	case clobtypes.SelfTradeAbort:
		return false, wrap(KindPreconditionFailed, ErrSelfTradeNotAllowed)

	case clobtypes.SelfTradeCancelProvide:
		if err := e.removeResting(opposite, id, resting, "self-trade-cancel-provide", false, rec, u); err != nil {
			return false, err
		}
		return false, nil

	default: // SelfTradeDecrementTake
		dec := (*remainingBase).Min(resting.NumBaseLots)
		if err := e.reduceRestingLockup(resting, opposite, id.PriceInTicks, dec, u); err != nil {
			return false, err
		}
		oldQty := resting.NumBaseLots
		resting.NumBaseLots -= dec
		u.push(func() { resting.NumBaseLots = oldQty })
		*remainingBase -= dec

		fullyRemoved := resting.NumBaseLots == 0
		if fullyRemoved {
			removedOrder := *resting
			if _, ok := e.Book.Remove(opposite, id); !ok {
				return false, wrap(KindInvalidState, ErrUnknownOrder)
			}
			u.push(func() {
				restored := removedOrder
				restored.NumBaseLots = oldQty
				_, _ = e.Book.Insert(opposite, id, &restored)
			})
		}
		if err := rec.EmitReduce(events.Reduce{
			ID:              id,
			TraderIndex:     resting.TraderIndex,
			BaseLotsRemoved: dec,
			FullyRemoved:    fullyRemoved,
			Reason:          "self-trade-decrement-take",
		}); err != nil {
			return false, wrap(KindResourceExhausted, err)
		}
		return true, nil
	}
}

// fillOutcome is what one non-self-trade match produced, for the loop's
// running accumulators.
type fillOutcome struct {
	tradeBase      quantity.BaseLots
	takerQuoteLots quantity.QuoteLots
	feeQuoteLots   quantity.QuoteLots
}

// settleFill executes one match between taker and the resting order at id
// (spec §4.4.4 steps 5-9): prices the trade, applies the fee convention
// pinned in SPEC_FULL.md's Open Question decisions (maker always gross,
// taker absorbs the full fee), updates both parties' balances, emits
// Fill, and shrinks or removes the resting order.
func (e *Engine) settleFill(takerIdx clobtypes.TraderIndex, takerSide, restingSide clobtypes.Side, id clobtypes.FIFOOrderId, resting *clobtypes.RestingOrder, tradeBase quantity.BaseLots, takerUseOnlyDeposited bool, rec *events.Recorder, u *undoStack) (fillOutcome, error) {
	price := id.PriceInTicks
	adjusted, err := quantity.TradeAdjustedQuoteLots(tradeBase, price, e.Header.TickSize)
	if err != nil {
		return fillOutcome{}, wrap(KindNumericalOverflow, err)
	}
	buyerGross, err := adjusted.ToQuoteLotsCeil(e.Header.BaseLotsPerBaseUnit)
	if err != nil {
		return fillOutcome{}, wrap(KindNumericalOverflow, err)
	}
	sellerGross, err := adjusted.ToQuoteLotsFloor(e.Header.BaseLotsPerBaseUnit)
	if err != nil {
		return fillOutcome{}, wrap(KindNumericalOverflow, err)
	}
	roundingRemainder := buyerGross - sellerGross

	fee, err := sellerGross.FeeCeil(e.Header.FeeBps)
	if err != nil {
		return fillOutcome{}, wrap(KindNumericalOverflow, err)
	}

	makerIdx := resting.TraderIndex
	var outcome fillOutcome
	outcome.tradeBase = tradeBase
	outcome.feeQuoteLots = fee

	if restingSide == clobtypes.Ask {
		// Maker sells (gross), taker buys (pays fee on top). The maker's
		// locked base lots are spent outright here, not released back to
		// free: they are custody transferred to the taker, and crediting
		// them to the maker's own free balance on top of the quote
		// proceeds below would manufacture base lots out of nothing (spec
		// §3 "the sum across all traders of locked + free equals the
		// engine's accounting of custodied tokens").
		if err := e.Traders.SpendLockedBase(makerIdx, tradeBase); err != nil {
			return fillOutcome{}, wrap(KindAccountingInvariant, err)
		}
		u.push(func() { _ = e.Traders.RestoreLockedBase(makerIdx, tradeBase) })
		if err := e.Traders.CreditQuoteFree(makerIdx, sellerGross); err != nil {
			return fillOutcome{}, wrap(KindAccountingInvariant, err)
		}
		u.push(func() { _ = e.Traders.DebitQuoteFree(makerIdx, sellerGross) })

		if err := e.Traders.CreditBaseFree(takerIdx, tradeBase); err != nil {
			return fillOutcome{}, wrap(KindAccountingInvariant, err)
		}
		u.push(func() { _ = e.Traders.DebitBaseFree(takerIdx, tradeBase) })
		takerCost := buyerGross + fee
		if takerUseOnlyDeposited {
			if err := e.Traders.DebitQuoteFree(takerIdx, takerCost); err != nil {
				return fillOutcome{}, wrap(KindAccountingInvariant, err)
			}
			u.push(func() { _ = e.Traders.CreditQuoteFree(takerIdx, takerCost) })
		}
		outcome.takerQuoteLots = takerCost
	} else {
		// Maker buys (gross), taker sells (receives gross minus fee). The
		// maker's locked quote is spent outright — it paid for the base
		// credited below, it is not released back to the maker's own free
		// balance (that would pay the maker twice). The amount spent must
		// track the resting order's own remaining reservation
		// (RestingOrder.QuoteLotsLocked), not buyerGross recomputed for
		// this trade alone: summing per-trade ceils across several partial
		// fills can exceed the single ceil reserved at placement and drive
		// the lock negative (spec §3 invariant 2).
		if err := e.spendRestingLockup(resting, restingSide, price, tradeBase, u); err != nil {
			return fillOutcome{}, err
		}
		if err := e.Traders.CreditBaseFree(makerIdx, tradeBase); err != nil {
			return fillOutcome{}, wrap(KindAccountingInvariant, err)
		}
		u.push(func() { _ = e.Traders.DebitBaseFree(makerIdx, tradeBase) })

		takerProceeds := sellerGross - fee
		if err := e.Traders.CreditQuoteFree(takerIdx, takerProceeds); err != nil {
			return fillOutcome{}, wrap(KindAccountingInvariant, err)
		}
		u.push(func() { _ = e.Traders.DebitQuoteFree(takerIdx, takerProceeds) })
		if takerUseOnlyDeposited {
			if err := e.Traders.DebitBaseFree(takerIdx, tradeBase); err != nil {
				return fillOutcome{}, wrap(KindAccountingInvariant, err)
			}
			u.push(func() { _ = e.Traders.CreditBaseFree(takerIdx, tradeBase) })
		}
		outcome.takerQuoteLots = takerProceeds
	}

	protocolAccrual := fee + roundingRemainder
	e.Header.CollectedQuoteLotFees += protocolAccrual
	u.push(func() { e.Header.CollectedQuoteLotFees -= protocolAccrual })

	if err := rec.EmitFill(events.Fill{
		MakerID:            id,
		MakerClientOrderId: resting.ClientOrderId,
		MakerTraderIndex:   makerIdx,
		TakerTraderIndex:   takerIdx,
		BaseLotsFilled:     tradeBase,
		QuoteLotsFilled:    sellerGross,
		PriceInTicks:       price,
		MakerSide:          restingSide,
	}); err != nil {
		return fillOutcome{}, wrap(KindResourceExhausted, err)
	}

	oldQty := resting.NumBaseLots
	resting.NumBaseLots -= tradeBase
	u.push(func() { resting.NumBaseLots = oldQty })
	if resting.NumBaseLots == 0 {
		if _, ok := e.Book.Remove(restingSide, id); !ok {
			return fillOutcome{}, wrap(KindInvalidState, ErrUnknownOrder)
		}
		u.push(func() {
			restored := *resting
			restored.NumBaseLots = oldQty
			_, _ = e.Book.Insert(restingSide, id, &restored)
		})
	}

	return outcome, nil
}
