// Package tracker drives batch lifecycle transitions and per-order
// completion aggregation through to the hand-off event. Every transition
// here is an explicit, auditable operation; nothing is resolved by tacit
// floor coordination.
package tracker

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quadica/batchplan/pkg/application/services/ledger"
	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
	"github.com/quadica/batchplan/pkg/domain/services"
	"github.com/quadica/batchplan/pkg/infrastructure/events"
	"github.com/quadica/batchplan/pkg/infrastructure/metrics"
)

// Service aggregates built versus required quantities per order and owns
// batch completion, cancellation, and adjustment.
type Service struct {
	ledger  *ledger.Service
	orders  repositories.OrderRepository
	batches repositories.BatchRepository
	units   repositories.UnitRepository
	serials *services.SerialAllocator
	store   events.EventStore
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a completion tracker
func NewService(
	ledgerSvc *ledger.Service,
	orders repositories.OrderRepository,
	batches repositories.BatchRepository,
	units repositories.UnitRepository,
	serials *services.SerialAllocator,
	store events.EventStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:  ledgerSvc,
		orders:  orders,
		batches: batches,
		units:   units,
		serials: serials,
		store:   store,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the time source; tests use this for determinism
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CompleteBatch closes a batch as built: hard locks leave the pool for good
// (components consumed), line-item built counts advance, and every affected
// order is re-evaluated for completion.
func (s *Service) CompleteBatch(batchID string) error {
	batch, err := s.batches.GetBatch(batchID)
	if err != nil {
		return err
	}
	if batch.Status != entities.BatchInProgress {
		return fmt.Errorf("batch %s is %s, only InProgress batches can complete", batchID, batch.Status)
	}

	if err := s.ledger.ReleaseHard(batchID, true); err != nil {
		return err
	}
	batch.Status = entities.BatchComplete
	batch.Touch(s.now())
	if err := s.batches.SaveBatch(batch); err != nil {
		return err
	}

	affected := make(map[string]bool)
	for _, e := range batch.Entries {
		li, err := s.orders.GetLineItem(e.LineItemID)
		if err != nil {
			return err
		}
		li.BuiltQty += e.CommittedQty
		if err := s.orders.SaveLineItem(li); err != nil {
			return err
		}
		affected[e.OrderID] = true
	}

	s.publish(events.BatchCompletedEvent, batchID, events.BatchCompleted{
		BatchID: batchID, TotalQty: batch.TotalQty(),
	})
	s.logger.Info("batch completed",
		zap.String("batch", batchID), zap.Int64("total_qty", int64(batch.TotalQty())))

	for orderID := range affected {
		if err := s.EvaluateOrder(orderID); err != nil {
			return err
		}
	}
	return nil
}

// CancelBatch abandons a batch: hard locks return to the originating
// orders' soft claims, and the batch's units are voided with their serials
// permanently retired.
func (s *Service) CancelBatch(batchID, reason string) error {
	batch, err := s.batches.GetBatch(batchID)
	if err != nil {
		return err
	}
	if batch.Status != entities.BatchInProgress {
		return fmt.Errorf("batch %s is %s, only InProgress batches can be cancelled", batchID, batch.Status)
	}

	if err := s.ledger.ReleaseHard(batchID, false); err != nil {
		return err
	}
	batch.Status = entities.BatchCancelled
	batch.Touch(s.now())
	if err := s.batches.SaveBatch(batch); err != nil {
		return err
	}

	batchUnits, err := s.units.GetByBatch(batchID)
	if err != nil {
		return err
	}
	for _, u := range batchUnits {
		if err := s.units.Void(u.Serial); err != nil {
			return err
		}
	}

	s.publish(events.BatchCancelledEvent, batchID, events.BatchCancelled{
		BatchID: batchID, Reason: reason,
	})
	s.logger.Info("batch cancelled",
		zap.String("batch", batchID), zap.String("reason", reason), zap.Int("units_voided", len(batchUnits)))
	return nil
}

// AdjustQuantity changes one entry of an InProgress batch. Decreases demote
// the hard-lock delta back to the order's soft claim and void the entry's
// last-issued units, their serials staying retired; increases promote more
// stock and issue fresh serials, failing like a commit would when the stock
// cannot be covered. The unit log always matches the committed quantity, and
// the batch's activity timestamp resets either way.
func (s *Service) AdjustQuantity(batchID, lineItemID string, newQty entities.Quantity) error {
	if newQty < 1 {
		return fmt.Errorf("adjusted quantity must be at least 1, got %d", newQty)
	}

	batch, err := s.batches.GetBatch(batchID)
	if err != nil {
		return err
	}
	if batch.Status != entities.BatchInProgress {
		return fmt.Errorf("batch %s is %s, only InProgress batches can be adjusted", batchID, batch.Status)
	}

	entryIdx := -1
	for i, e := range batch.Entries {
		if e.LineItemID == lineItemID {
			entryIdx = i
			break
		}
	}
	if entryIdx < 0 {
		return fmt.Errorf("batch %s has no entry for line item %s", batchID, lineItemID)
	}
	entry := &batch.Entries[entryIdx]
	oldQty := entry.CommittedQty
	if newQty == oldQty {
		return nil
	}

	li, err := s.orders.GetLineItem(lineItemID)
	if err != nil {
		return err
	}

	if newQty < oldQty {
		delta := oldQty - newQty
		for sku, per := range li.Components {
			if err := s.ledger.DemoteHard(batchID, entry.OrderID, sku, per*delta); err != nil {
				return err
			}
		}
		if err := s.voidTailUnits(batchID, lineItemID, delta); err != nil {
			return err
		}
	} else {
		delta := newQty - oldQty
		err := s.ledger.CommitPromotions(batchID, []ledger.EntryDemand{{
			OrderID:    entry.OrderID,
			LineItemID: lineItemID,
			Qty:        delta,
			PerUnit:    li.Components,
		}})
		if err != nil {
			return err
		}
		if err := s.issueDeltaUnits(batch, entry, li, delta); err != nil {
			return err
		}
	}

	entry.CommittedQty = newQty
	batch.Touch(s.now())
	if err := s.batches.SaveBatch(batch); err != nil {
		return err
	}

	s.publish(events.BatchAdjustedEvent, batchID, events.BatchAdjusted{
		BatchID: batchID, LineItemID: lineItemID, OldQty: oldQty, NewQty: newQty,
	})
	s.logger.Info("batch adjusted",
		zap.String("batch", batchID), zap.String("line_item", lineItemID),
		zap.Int64("old_qty", int64(oldQty)), zap.Int64("new_qty", int64(newQty)))
	return nil
}

// voidTailUnits retires the last-issued delta units of one batch entry.
// Voided serials stay burned; only the physical unit count shrinks.
func (s *Service) voidTailUnits(batchID, lineItemID string, delta entities.Quantity) error {
	batchUnits, err := s.units.GetByBatch(batchID)
	if err != nil {
		return err
	}
	var active []*entities.ManufacturedUnit
	for _, u := range batchUnits {
		if u.LineItemID == lineItemID && !u.Voided {
			active = append(active, u)
		}
	}
	if entities.Quantity(len(active)) < delta {
		return fmt.Errorf("batch %s has %d active units for line item %s, cannot void %d",
			batchID, len(active), lineItemID, delta)
	}
	for i := len(active) - int(delta); i < len(active); i++ {
		if err := s.units.Void(active[i].Serial); err != nil {
			return err
		}
	}
	return nil
}

// issueDeltaUnits allocates serials for the units an increase adds and
// appends them to the issued log. Allocation failure demotes the components
// the increase just promoted, so the entry never commits more than the log
// records.
func (s *Service) issueDeltaUnits(batch *entities.Batch, entry *entities.BatchEntry, li *entities.LineItem, delta entities.Quantity) error {
	serials, err := s.serials.Allocate(int(delta))
	if err != nil {
		s.demoteDelta(batch.ID, entry.OrderID, li, delta)
		return fmt.Errorf("batch %s serial allocation failed: %w", batch.ID, err)
	}
	for _, serial := range serials {
		unit, err := entities.NewManufacturedUnit(serial, batch.ID, entry.OrderID, li.ID, s.now())
		if err != nil {
			s.demoteDelta(batch.ID, entry.OrderID, li, delta)
			return err
		}
		if err := s.units.Append(unit); err != nil {
			s.demoteDelta(batch.ID, entry.OrderID, li, delta)
			return err
		}
	}
	if s.metrics != nil {
		s.metrics.SerialsIssued.Add(float64(len(serials)))
	}
	return nil
}

// demoteDelta returns an increase's promoted components to the order's soft
// claim after a failure between promotion and unit issue
func (s *Service) demoteDelta(batchID, orderID string, li *entities.LineItem, delta entities.Quantity) {
	for sku, per := range li.Components {
		if err := s.ledger.DemoteHard(batchID, orderID, sku, per*delta); err != nil {
			s.logger.Error("adjustment rollback failed, ledger requires audit",
				zap.String("batch", batchID), zap.String("sku", string(sku)), zap.Error(err))
		}
	}
}

// TouchBatch resets a batch's inactivity timer after explicit floor action
func (s *Service) TouchBatch(batchID string) error {
	batch, err := s.batches.GetBatch(batchID)
	if err != nil {
		return err
	}
	if batch.Status != entities.BatchInProgress {
		return fmt.Errorf("batch %s is %s, only InProgress batches can be touched", batchID, batch.Status)
	}
	batch.Touch(s.now())
	return s.batches.SaveBatch(batch)
}

// EvaluateOrder recomputes one order's completion state from its line items.
// Reaching full completion verifies that every batch touching the order is
// closed and that no hard lock survived them (either is
// ErrInconsistentCompletionState, fatal), releases leftover soft claims, and
// emits the hand-off event exactly once.
func (s *Service) EvaluateOrder(orderID string) error {
	order, err := s.orders.GetOrder(orderID)
	if err != nil {
		return err
	}
	if !order.IsOpen() {
		return nil
	}

	items, err := s.orders.GetLineItemsByOrder(orderID)
	if err != nil {
		return err
	}
	var built, required entities.Quantity
	for _, li := range items {
		built += li.BuiltQty
		required += li.RequiredQty
	}

	switch {
	case built == 0:
		return nil
	case built < required:
		if order.Status != entities.OrderPartiallyComplete {
			order.Status = entities.OrderPartiallyComplete
			return s.orders.SaveOrder(order)
		}
		return nil
	}

	orderBatches, err := s.batches.GetBatchesByOrder(orderID)
	if err != nil {
		return err
	}
	for _, b := range orderBatches {
		if b.Status == entities.BatchInProgress {
			s.logger.Error("open batch at full completion",
				zap.String("order", orderID), zap.String("batch", b.ID))
			return fmt.Errorf("%w: order %s completed while batch %s is still InProgress",
				entities.ErrInconsistentCompletionState, orderID, b.ID)
		}
	}

	residual, err := s.ledger.ResidualHardLocks(orderID)
	if err != nil {
		return err
	}
	if len(residual) > 0 {
		s.logger.Error("residual hard locks at full completion",
			zap.String("order", orderID), zap.Int("rows", len(residual)))
		return fmt.Errorf("%w: order %s completed with %d residual hard lock row(s)",
			entities.ErrInconsistentCompletionState, orderID, len(residual))
	}
	if err := s.ledger.ReleaseAllSoft(orderID, "order complete"); err != nil {
		return err
	}

	order.Status = entities.OrderComplete
	if !order.HandoffSent {
		s.publish(events.ProductionCompleteEvent, orderID, events.ProductionComplete{
			OrderID: orderID, TotalQty: built,
		})
		order.HandoffSent = true
		if s.metrics != nil {
			s.metrics.HandoffsEmitted.Inc()
		}
		s.logger.Info("production complete", zap.String("order", orderID), zap.Int64("built", int64(built)))
	}
	return s.orders.SaveOrder(order)
}

func (s *Service) publish(eventType, streamID string, data interface{}) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendEvent(streamID, events.NewEvent(eventType, streamID, data)); err != nil {
		s.logger.Warn("event delivery failed", zap.String("type", eventType), zap.Error(err))
	}
}
