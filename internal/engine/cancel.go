package engine

import (
	"go.uber.org/multierr"

	"github.com/nyxmarkets/clobcore/internal/clobtypes"
	"github.com/nyxmarkets/clobcore/internal/events"
	"github.com/nyxmarkets/clobcore/internal/quantity"
)

// OrderRef names one resting order by side and id, for the batch cancel
// operations of spec §4.4.5.
type OrderRef struct {
	Side clobtypes.Side
	ID   clobtypes.FIFOOrderId
}

// ReduceOrder shrinks or removes the owner's resting order at (side, id)
// by size (or in full if size is nil), returning its lockup and emitting
// Reduce (spec §4.4.5).
func (e *Engine) ReduceOrder(ownerIdx clobtypes.TraderIndex, side clobtypes.Side, id clobtypes.FIFOOrderId, size *quantity.BaseLots, rec *events.Recorder) error {
	return e.reduceOrder(ownerIdx, side, id, size, false, rec)
}

func (e *Engine) reduceOrder(ownerIdx clobtypes.TraderIndex, side clobtypes.Side, id clobtypes.FIFOOrderId, size *quantity.BaseLots, force bool, rec *events.Recorder) error {
	resting, ok := e.Book.Get(side, id)
	if !ok {
		return wrap(KindInvalidState, ErrUnknownOrder)
	}
	if !force && resting.TraderIndex != ownerIdx {
		return wrap(KindInvalidState, ErrUnknownOrder)
	}

	reduceBy := resting.NumBaseLots
	if size != nil && *size > 0 && *size < reduceBy {
		reduceBy = *size
	}

	var discard undoStack
	if err := e.reduceRestingLockup(resting, side, id.PriceInTicks, reduceBy, &discard); err != nil {
		return err
	}

	fullyRemoved := reduceBy == resting.NumBaseLots
	if fullyRemoved {
		e.Book.Remove(side, id)
	} else {
		resting.NumBaseLots -= reduceBy
	}

	if err := rec.EmitReduce(events.Reduce{
		ID:              id,
		TraderIndex:     resting.TraderIndex,
		BaseLotsRemoved: reduceBy,
		FullyRemoved:    fullyRemoved,
	}); err != nil {
		return wrap(KindResourceExhausted, err)
	}
	return nil
}

// CancelAllOrders reduces every resting order ownerIdx holds on both
// sides, in price-time order (spec §4.4.5).
func (e *Engine) CancelAllOrders(ownerIdx clobtypes.TraderIndex, rec *events.Recorder) error {
	var errs error
	for _, side := range [2]clobtypes.Side{clobtypes.Bid, clobtypes.Ask} {
		for _, entry := range e.Book.Snapshot(side) {
			if entry.Order.TraderIndex != ownerIdx {
				continue
			}
			errs = multierr.Append(errs, e.ReduceOrder(ownerIdx, side, entry.ID, nil, rec))
		}
	}
	return errs
}

// CancelUpTo cancels at most maxBids bid and maxAsks ask orders ownerIdx
// holds, best-priority first, skipping any order better than the
// corresponding tick limit when one is given (spec §4.4.5 "apply
// ReduceOrder to each matching order in price-time order").
func (e *Engine) CancelUpTo(ownerIdx clobtypes.TraderIndex, maxBids, maxAsks int, bidTickLimit, askTickLimit *quantity.Ticks, rec *events.Recorder) error {
	var errs error
	errs = multierr.Append(errs, e.cancelUpToSide(ownerIdx, clobtypes.Bid, maxBids, bidTickLimit, rec))
	errs = multierr.Append(errs, e.cancelUpToSide(ownerIdx, clobtypes.Ask, maxAsks, askTickLimit, rec))
	return errs
}

func (e *Engine) cancelUpToSide(ownerIdx clobtypes.TraderIndex, side clobtypes.Side, max int, tickLimit *quantity.Ticks, rec *events.Recorder) error {
	var errs error
	cancelled := 0
	for _, entry := range e.Book.Snapshot(side) {
		if cancelled >= max {
			break
		}
		if entry.Order.TraderIndex != ownerIdx {
			continue
		}
		if tickLimit != nil && betterThanLimit(side, entry.ID.PriceInTicks, *tickLimit) {
			continue
		}
		errs = multierr.Append(errs, e.ReduceOrder(ownerIdx, side, entry.ID, nil, rec))
		cancelled++
	}
	return errs
}

// betterThanLimit reports whether price is strictly better than limit for
// side — the CancelUpTo floor: orders at or past the limit are fair game,
// orders better than it are left resting.
func betterThanLimit(side clobtypes.Side, price, limit quantity.Ticks) bool {
	if side == clobtypes.Bid {
		return price > limit
	}
	return price < limit
}

// CancelMultipleOrdersById reduces each named order in full, aggregating
// any per-order failures rather than stopping at the first (spec §4.4.5).
func (e *Engine) CancelMultipleOrdersById(ownerIdx clobtypes.TraderIndex, refs []OrderRef, rec *events.Recorder) error {
	var errs error
	for _, ref := range refs {
		errs = multierr.Append(errs, e.ReduceOrder(ownerIdx, ref.Side, ref.ID, nil, rec))
	}
	return errs
}

// ForceCancelOrders is CancelMultipleOrdersById without an ownership check
// (spec §4.4.5 "Governance ForceCancelOrders is identical but ignores
// ownership") — a privileged path the host restricts to a governance
// signer (spec §7 MissingRequiredSignature), which is enforced above this
// package, not here.
func (e *Engine) ForceCancelOrders(refs []OrderRef, rec *events.Recorder) error {
	var errs error
	for _, ref := range refs {
		errs = multierr.Append(errs, e.reduceOrder(clobtypes.TraderIndexNone, ref.Side, ref.ID, nil, true, rec))
	}
	return errs
}
