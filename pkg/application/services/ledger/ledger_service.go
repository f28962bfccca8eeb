// Package ledger is the source of truth for component supply versus demand.
// All mutating operations run under one mutex (single-writer model): the
// availability invariant soft + hard <= physical is checked and updated
// atomically, and no operation can persist a partial effect.
package ledger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
	"github.com/quadica/batchplan/pkg/infrastructure/events"
	"github.com/quadica/batchplan/pkg/infrastructure/metrics"
)

// Service owns every reservation mutation. Collaborator notification happens
// after the ledger state is updated, never inside the critical section's
// validation path.
type Service struct {
	mu           sync.Mutex
	components   repositories.ComponentRepository
	reservations repositories.ReservationRepository
	orders       repositories.OrderRepository
	store        events.EventStore
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewService creates a reservation ledger. store and m may be nil when the
// embedding process has no sinks wired (tests, one-shot CLI runs).
func NewService(
	components repositories.ComponentRepository,
	reservations repositories.ReservationRepository,
	orders repositories.OrderRepository,
	store events.EventStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		components:   components,
		reservations: reservations,
		orders:       orders,
		store:        store,
		metrics:      m,
		logger:       logger,
	}
}

// SoftReserve places a provisional claim for an order on a component.
// Fails with ErrInsufficientStock when free availability cannot cover qty.
func (s *Service) SoftReserve(orderID string, sku entities.ComponentSKU, qty entities.Quantity) error {
	if qty <= 0 {
		return fmt.Errorf("soft reserve quantity must be positive, got %d", qty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	comp, err := s.components.GetComponent(sku)
	if err != nil {
		return err
	}
	if comp.Availability() < qty {
		return fmt.Errorf("%w: %s has %d available, order %s requested %d",
			entities.ErrInsufficientStock, sku, comp.Availability(), orderID, qty)
	}

	row, err := entities.NewSoftReservation(orderID, sku, qty)
	if err != nil {
		return err
	}
	if err := s.reservations.Upsert(row); err != nil {
		return err
	}
	comp.SoftReserved += qty
	s.assertInvariant(comp)

	s.logger.Debug("soft reserved",
		zap.String("order", orderID), zap.String("sku", string(sku)), zap.Int64("qty", int64(qty)))
	s.publishGauges(comp)
	s.publish(events.SoftReservedEvent, orderID, events.SoftReserved{
		OrderID: orderID, ComponentSKU: sku, Qty: qty,
	})
	return nil
}

// ReleaseSoft gives back part or all of an order's provisional claim, e.g.
// on order withdrawal.
func (s *Service) ReleaseSoft(orderID string, sku entities.ComponentSKU, qty entities.Quantity, reason string) error {
	if qty <= 0 {
		return fmt.Errorf("soft release quantity must be positive, got %d", qty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	comp, err := s.components.GetComponent(sku)
	if err != nil {
		return err
	}
	soft, err := s.reservations.GetSoft(orderID, sku)
	if err != nil {
		return err
	}
	if soft == nil || soft.Qty < qty {
		held := entities.Quantity(0)
		if soft != nil {
			held = soft.Qty
		}
		return fmt.Errorf("%w: order %s holds %d of %s, tried to release %d",
			entities.ErrInsufficientSoftReservation, orderID, held, sku, qty)
	}

	if err := s.reservations.Adjust(soft, -qty); err != nil {
		return err
	}
	comp.SoftReserved -= qty
	s.assertInvariant(comp)

	s.publishGauges(comp)
	s.publish(events.SoftReleasedEvent, orderID, events.SoftReleased{
		OrderID: orderID, ComponentSKU: sku, Qty: qty, Reason: reason,
	})
	return nil
}

// PromoteToHard converts part of an order's soft claim into a firm lock tied
// to a batch. Fails with ErrInsufficientSoftReservation when the order's
// soft row is smaller than qty.
func (s *Service) PromoteToHard(orderID, batchID string, sku entities.ComponentSKU, qty entities.Quantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promoteLocked(orderID, batchID, sku, qty)
}

func (s *Service) promoteLocked(orderID, batchID string, sku entities.ComponentSKU, qty entities.Quantity) error {
	if qty <= 0 {
		return fmt.Errorf("promotion quantity must be positive, got %d", qty)
	}

	comp, err := s.components.GetComponent(sku)
	if err != nil {
		return err
	}
	soft, err := s.reservations.GetSoft(orderID, sku)
	if err != nil {
		return err
	}
	if soft == nil || soft.Qty < qty {
		held := entities.Quantity(0)
		if soft != nil {
			held = soft.Qty
		}
		return fmt.Errorf("%w: order %s holds %d of %s, batch %s needs %d",
			entities.ErrInsufficientSoftReservation, orderID, held, sku, batchID, qty)
	}

	if err := s.reservations.Adjust(soft, -qty); err != nil {
		return err
	}
	hard, err := entities.NewHardReservation(orderID, batchID, sku, qty)
	if err != nil {
		return err
	}
	if err := s.reservations.Upsert(hard); err != nil {
		return err
	}
	comp.SoftReserved -= qty
	comp.HardLocked += qty
	s.assertInvariant(comp)

	s.publishGauges(comp)
	s.publish(events.ReservationPromotedEvent, batchID, events.ReservationPromoted{
		OrderID: orderID, BatchID: batchID, ComponentSKU: sku, Qty: qty,
	})
	return nil
}

// PreviewReallocation computes the first phase of a soft-reservation move:
// no state changes, just the impact summary a planner confirms before
// CommitReallocation. Hard locks are never a source: asking for more than
// the donor's soft claim fails with ErrComponentHardLocked when the donor
// holds hard-locked units of the component, ErrInsufficientSoftReservation
// otherwise.
func (s *Service) PreviewReallocation(fromOrderID, toOrderID string, sku entities.ComponentSKU, qty entities.Quantity) (*entities.ReallocationPlan, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("reallocation quantity must be positive, got %d", qty)
	}
	if fromOrderID == toOrderID {
		return nil, fmt.Errorf("cannot reallocate from order %s to itself", fromOrderID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateReallocation(fromOrderID, sku, qty); err != nil {
		return nil, err
	}

	fromSoft, _ := s.reservations.GetSoft(fromOrderID, sku)
	toSoftQty := entities.Quantity(0)
	if toSoft, err := s.reservations.GetSoft(toOrderID, sku); err == nil && toSoft != nil {
		toSoftQty = toSoft.Qty
	}

	fromReq := s.openRequirement(fromOrderID, sku)
	toReq := s.openRequirement(toOrderID, sku)

	plan := &entities.ReallocationPlan{
		FromOrderID:  fromOrderID,
		ToOrderID:    toOrderID,
		ComponentSKU: sku,
		Qty:          qty,
		Impact: []entities.OrderImpact{
			{
				OrderID:           fromOrderID,
				ComponentSKU:      sku,
				SoftBefore:        fromSoft.Qty,
				SoftAfter:         fromSoft.Qty - qty,
				OpenRequirement:   fromReq,
				LosesBuildability: fromSoft.Qty-qty < fromReq,
			},
			{
				OrderID:         toOrderID,
				ComponentSKU:    sku,
				SoftBefore:      toSoftQty,
				SoftAfter:       toSoftQty + qty,
				OpenRequirement: toReq,
			},
		},
	}
	return plan, nil
}

// CommitReallocation applies a previewed plan after re-validating it under
// the ledger lock. Total soft reservation and availability are unchanged;
// only the owning order moves.
func (s *Service) CommitReallocation(plan *entities.ReallocationPlan) error {
	if plan == nil {
		return fmt.Errorf("cannot commit nil reallocation plan")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateReallocation(plan.FromOrderID, plan.ComponentSKU, plan.Qty); err != nil {
		return err
	}

	fromSoft, _ := s.reservations.GetSoft(plan.FromOrderID, plan.ComponentSKU)
	if err := s.reservations.Adjust(fromSoft, -plan.Qty); err != nil {
		return err
	}
	row, err := entities.NewSoftReservation(plan.ToOrderID, plan.ComponentSKU, plan.Qty)
	if err != nil {
		return err
	}
	if err := s.reservations.Upsert(row); err != nil {
		return err
	}

	comp, err := s.components.GetComponent(plan.ComponentSKU)
	if err != nil {
		return err
	}
	s.assertInvariant(comp)

	s.logger.Info("soft reservation reallocated",
		zap.String("from", plan.FromOrderID), zap.String("to", plan.ToOrderID),
		zap.String("sku", string(plan.ComponentSKU)), zap.Int64("qty", int64(plan.Qty)))
	s.publish(events.ReallocationEvent, string(plan.ComponentSKU), events.Reallocated{
		FromOrderID: plan.FromOrderID, ToOrderID: plan.ToOrderID,
		ComponentSKU: plan.ComponentSKU, Qty: plan.Qty, Impact: plan.Impact,
	})
	return nil
}

func (s *Service) validateReallocation(fromOrderID string, sku entities.ComponentSKU, qty entities.Quantity) error {
	soft, err := s.reservations.GetSoft(fromOrderID, sku)
	if err != nil {
		return err
	}
	held := entities.Quantity(0)
	if soft != nil {
		held = soft.Qty
	}
	if held >= qty {
		return nil
	}

	// The shortfall could only come from hard-locked units; refuse loudly
	// when the donor holds any, so the caller knows retrying is pointless.
	hardRows, err := s.reservations.GetHardByOrder(fromOrderID)
	if err != nil {
		return err
	}
	for _, h := range hardRows {
		if h.ComponentSKU == sku {
			return fmt.Errorf("%w: order %s holds only %d soft of %s, the remaining %d is locked to batch %s",
				entities.ErrComponentHardLocked, fromOrderID, held, sku, qty-held, h.BatchID)
		}
	}
	return fmt.Errorf("%w: order %s holds %d of %s, reallocation requested %d",
		entities.ErrInsufficientSoftReservation, fromOrderID, held, sku, qty)
}

// ReleaseHard drops every hard lock tied to a batch. On cancellation the
// freed quantity returns to the originating orders' soft claims; on
// completion the components were consumed and the quantity leaves the pool
// entirely (physical stock drops with the lock).
func (s *Service) ReleaseHard(batchID string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.reservations.GetHardByBatch(batchID)
	if err != nil {
		return err
	}

	for _, row := range rows {
		comp, err := s.components.GetComponent(row.ComponentSKU)
		if err != nil {
			return err
		}
		comp.HardLocked -= row.Qty
		if completed {
			comp.PhysicalStock -= row.Qty
		} else {
			comp.SoftReserved += row.Qty
			back, err := entities.NewSoftReservation(row.OrderID, row.ComponentSKU, row.Qty)
			if err != nil {
				return err
			}
			if err := s.reservations.Upsert(back); err != nil {
				return err
			}
		}
		s.assertInvariant(comp)
		s.publishGauges(comp)
	}

	if err := s.reservations.RemoveByBatch(batchID); err != nil {
		return err
	}

	s.logger.Info("hard locks released",
		zap.String("batch", batchID), zap.Bool("completed", completed), zap.Int("rows", len(rows)))
	return nil
}

// Availability returns physical - soft - hard for one component
func (s *Service) Availability(sku entities.ComponentSKU) (entities.Quantity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comp, err := s.components.GetComponent(sku)
	if err != nil {
		return 0, err
	}
	return comp.Availability(), nil
}

// OrderSoft returns an order's current soft claim on one component
func (s *Service) OrderSoft(orderID string, sku entities.ComponentSKU) (entities.Quantity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	soft, err := s.reservations.GetSoft(orderID, sku)
	if err != nil {
		return 0, err
	}
	if soft == nil {
		return 0, nil
	}
	return soft.Qty, nil
}

// ComponentReservations returns every row, soft and hard, claiming one
// component. Planners read it to pick a reallocation donor before a preview.
func (s *Service) ComponentReservations(sku entities.ComponentSKU) ([]*entities.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations.GetByComponent(sku)
}

// ResidualHardLocks returns an order's hard rows; the completion tracker
// treats any nonzero result at full completion as a fatal consistency error.
func (s *Service) ResidualHardLocks(orderID string) ([]*entities.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations.GetHardByOrder(orderID)
}

// openRequirement is the order's not-yet-built demand for one component
func (s *Service) openRequirement(orderID string, sku entities.ComponentSKU) entities.Quantity {
	items, err := s.orders.GetLineItemsByOrder(orderID)
	if err != nil {
		return 0
	}
	var total entities.Quantity
	for _, li := range items {
		if per, ok := li.Components[sku]; ok {
			total += li.RemainingQty() * per
		}
	}
	return total
}

// assertInvariant double-checks the availability invariant after a mutation
// that was already validated. A violation here is a programming error.
func (s *Service) assertInvariant(comp *entities.Component) {
	if err := comp.CheckInvariant(); err != nil {
		s.logger.Error("ledger invariant violated", zap.Error(err))
		panic(err)
	}
}

func (s *Service) publishGauges(comp *entities.Component) {
	s.metrics.SetReservationGauges(string(comp.SKU), int64(comp.SoftReserved), int64(comp.HardLocked))
}

func (s *Service) publish(eventType, streamID string, data interface{}) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendEvent(streamID, events.NewEvent(eventType, streamID, data)); err != nil {
		s.logger.Warn("event delivery failed", zap.String("type", eventType), zap.Error(err))
	}
}
