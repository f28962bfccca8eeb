package composer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/quadica/batchplan/pkg/application/services/ledger"
	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/infrastructure/events"
)

// CommitBatch turns a draft into an InProgress batch: promotes reservations
// atomically, issues one permanent serial per unit, and records the units.
//
// If stock changed since composition, the first failure shrinks the draft to
// the now-coverable quantities and re-attempts (when policy allows); repeated
// failures within the bounded retry count surface ErrConcurrentStockChange
// with the failing entries. No partially reserved batch ever survives.
func (s *Service) CommitBatch(draft *entities.BatchDraft, policy CommitPolicy) (*entities.Batch, []entities.UnitSerial, error) {
	if draft == nil || len(draft.Composition) == 0 {
		return nil, nil, fmt.Errorf("cannot commit an empty draft")
	}

	batchID := s.newBatchID()
	working := draft
	shrunk := false

	for attempt := 0; ; attempt++ {
		demands, err := s.demandsFor(working)
		if err != nil {
			return nil, nil, err
		}

		err = s.ledger.CommitPromotions(batchID, demands)
		if err == nil {
			break
		}

		var commitErr *ledger.CommitError
		if !errors.As(err, &commitErr) {
			return nil, nil, err
		}
		if !policy.AllowShrink || attempt >= s.commitRetries {
			return nil, nil, err
		}

		s.logger.Warn("stock changed under draft, shrinking",
			zap.String("batch", batchID), zap.Int("attempt", attempt+1))
		working, err = s.shrinkDraft(working)
		if err != nil {
			return nil, nil, err
		}
		shrunk = true
	}

	entries := make([]entities.BatchEntry, 0, len(working.Composition))
	for _, e := range working.Composition {
		entries = append(entries, entities.BatchEntry{
			OrderID:      e.OrderID,
			LineItemID:   e.LineItemID,
			CommittedQty: e.Qty,
		})
	}
	batch, err := entities.NewBatch(batchID, working.BaseType, entries, s.now())
	if err != nil {
		s.rollback(batchID)
		return nil, nil, err
	}

	serials, err := s.serials.Allocate(int(batch.TotalQty()))
	if err != nil {
		// Serial allocation failed after reservations were taken; give the
		// stock back before surfacing. Exhaustion stays distinct for the
		// caller via errors.Is.
		s.rollback(batchID)
		return nil, nil, fmt.Errorf("batch %s serial allocation failed: %w", batchID, err)
	}

	idx := 0
	for _, e := range batch.Entries {
		for u := entities.Quantity(0); u < e.CommittedQty; u++ {
			unit, err := entities.NewManufacturedUnit(serials[idx], batchID, e.OrderID, e.LineItemID, batch.CreatedAt)
			if err != nil {
				s.rollback(batchID)
				return nil, nil, err
			}
			if err := s.units.Append(unit); err != nil {
				s.rollback(batchID)
				return nil, nil, err
			}
			idx++
		}
	}

	if err := s.batches.SaveBatch(batch); err != nil {
		s.rollback(batchID)
		return nil, nil, err
	}

	if s.metrics != nil {
		s.metrics.BatchesCommitted.Inc()
		s.metrics.SerialsIssued.Add(float64(len(serials)))
		if shrunk {
			s.metrics.CommitShrinks.Inc()
		}
	}
	s.logger.Info("batch committed",
		zap.String("batch", batchID),
		zap.String("base_type", batch.BaseType),
		zap.Int64("total_qty", int64(batch.TotalQty())),
		zap.Bool("shrunk", shrunk))
	s.publish(events.BatchCommittedEvent, batchID, events.BatchCommitted{
		Batch:    *batch,
		Serials:  serials,
		TotalQty: batch.TotalQty(),
	})
	return batch, serials, nil
}

// demandsFor expands draft entries into per-entry component demand
func (s *Service) demandsFor(draft *entities.BatchDraft) ([]ledger.EntryDemand, error) {
	demands := make([]ledger.EntryDemand, 0, len(draft.Composition))
	for _, e := range draft.Composition {
		li, err := s.orders.GetLineItem(e.LineItemID)
		if err != nil {
			return nil, err
		}
		demands = append(demands, ledger.EntryDemand{
			OrderID:    e.OrderID,
			LineItemID: e.LineItemID,
			Qty:        e.Qty,
			PerUnit:    li.Components,
		})
	}
	return demands, nil
}

// shrinkDraft recomputes each entry against current ledger state, walking in
// the draft's priority order, and drops entries that shrank to zero.
func (s *Service) shrinkDraft(draft *entities.BatchDraft) (*entities.BatchDraft, error) {
	shrunk := &entities.BatchDraft{
		BaseType:   draft.BaseType,
		ArraySize:  draft.ArraySize,
		TrimmedQty: draft.TrimmedQty,
	}

	free := make(map[entities.ComponentSKU]entities.Quantity)
	soft := make(map[string]map[entities.ComponentSKU]entities.Quantity)
	for _, e := range draft.Composition {
		li, err := s.orders.GetLineItem(e.LineItemID)
		if err != nil {
			return nil, err
		}
		for sku := range li.Components {
			if _, seen := free[sku]; !seen {
				avail, err := s.ledger.Availability(sku)
				if err != nil {
					return nil, err
				}
				free[sku] = avail
			}
			if _, seen := soft[e.OrderID]; !seen {
				soft[e.OrderID] = make(map[entities.ComponentSKU]entities.Quantity)
			}
			if _, seen := soft[e.OrderID][sku]; !seen {
				held, err := s.ledger.OrderSoft(e.OrderID, sku)
				if err != nil {
					return nil, err
				}
				soft[e.OrderID][sku] = held
			}
		}

		qty := e.Qty
		for sku, per := range li.Components {
			coverable := free[sku] + soft[e.OrderID][sku]
			if limit := coverable / per; limit < qty {
				qty = limit
			}
		}
		if qty <= 0 {
			continue
		}
		for sku, per := range li.Components {
			need := per * qty
			fromSoft := soft[e.OrderID][sku]
			if fromSoft > need {
				fromSoft = need
			}
			soft[e.OrderID][sku] -= fromSoft
			free[sku] -= need - fromSoft
		}

		shrunk.Composition = append(shrunk.Composition, entities.DraftEntry{
			OrderID:    e.OrderID,
			LineItemID: e.LineItemID,
			Qty:        qty,
			Tier:       e.Tier,
		})
		shrunk.TotalQty += qty
	}

	if len(shrunk.Composition) == 0 {
		return nil, fmt.Errorf("%w: no stock left to cover any draft entry", entities.ErrConcurrentStockChange)
	}
	shrunk.ArrayCount = shrunk.TotalQty / shrunk.ArraySize
	shrunk.PartialArrayRemainder = shrunk.TotalQty % shrunk.ArraySize
	return shrunk, nil
}

// rollback releases everything a failed commit already took. Releasing hard
// locks as cancelled returns the quantity to the originating orders' soft
// claims.
func (s *Service) rollback(batchID string) {
	if err := s.ledger.ReleaseHard(batchID, false); err != nil {
		s.logger.Error("rollback failed, ledger requires audit",
			zap.String("batch", batchID), zap.Error(err))
	}
}

func (s *Service) publish(eventType, streamID string, data interface{}) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendEvent(streamID, events.NewEvent(eventType, streamID, data)); err != nil {
		s.logger.Warn("event delivery failed", zap.String("type", eventType), zap.Error(err))
	}
}
