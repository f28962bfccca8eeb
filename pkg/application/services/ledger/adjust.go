package ledger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/infrastructure/events"
)

// DemoteHard moves quantity of one component from a batch's hard lock back
// to the originating order's soft claim. Used when a planner shrinks an
// in-progress batch; availability is unchanged.
func (s *Service) DemoteHard(batchID, orderID string, sku entities.ComponentSKU, qty entities.Quantity) error {
	if qty <= 0 {
		return fmt.Errorf("demotion quantity must be positive, got %d", qty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.reservations.GetHardByBatch(batchID)
	if err != nil {
		return err
	}
	var hard *entities.Reservation
	for _, row := range rows {
		if row.OrderID == orderID && row.ComponentSKU == sku {
			hard = row
			break
		}
	}
	if hard == nil || hard.Qty < qty {
		held := entities.Quantity(0)
		if hard != nil {
			held = hard.Qty
		}
		return fmt.Errorf("batch %s holds %d of %s for order %s, cannot demote %d",
			batchID, held, sku, orderID, qty)
	}

	if err := s.reservations.Adjust(hard, -qty); err != nil {
		return err
	}
	back, err := entities.NewSoftReservation(orderID, sku, qty)
	if err != nil {
		return err
	}
	if err := s.reservations.Upsert(back); err != nil {
		return err
	}

	comp, err := s.components.GetComponent(sku)
	if err != nil {
		return err
	}
	comp.HardLocked -= qty
	comp.SoftReserved += qty
	s.assertInvariant(comp)
	s.publishGauges(comp)

	s.logger.Debug("hard lock demoted",
		zap.String("batch", batchID), zap.String("order", orderID),
		zap.String("sku", string(sku)), zap.Int64("qty", int64(qty)))
	return nil
}

// ReleaseAllSoft drops every soft claim an order still holds, e.g. after
// full completion or cancellation of the order.
func (s *Service) ReleaseAllSoft(orderID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.reservations.GetSoftByOrder(orderID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		comp, err := s.components.GetComponent(row.ComponentSKU)
		if err != nil {
			return err
		}
		qty := row.Qty
		if err := s.reservations.Adjust(row, -qty); err != nil {
			return err
		}
		comp.SoftReserved -= qty
		s.assertInvariant(comp)
		s.publishGauges(comp)
		s.publish(events.SoftReleasedEvent, orderID, events.SoftReleased{
			OrderID: orderID, ComponentSKU: row.ComponentSKU, Qty: qty, Reason: reason,
		})
	}
	return nil
}
