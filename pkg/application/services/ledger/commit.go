package ledger

import (
	"fmt"
	"strings"

	"github.com/quadica/batchplan/pkg/domain/entities"
)

// EntryDemand is one draft entry's component demand at commit time
type EntryDemand struct {
	OrderID    string
	LineItemID string
	Qty        entities.Quantity
	PerUnit    map[entities.ComponentSKU]entities.Quantity
}

// PromotionFailure identifies one entry the commit could not cover
type PromotionFailure struct {
	OrderID    string
	LineItemID string
	SKU        entities.ComponentSKU
	Requested  entities.Quantity
	Available  entities.Quantity
}

// CommitError reports which entries failed commit-time re-validation. It
// unwraps to ErrConcurrentStockChange so callers can classify it.
type CommitError struct {
	BatchID  string
	Failures []PromotionFailure
}

func (e *CommitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "batch %s commit failed re-validation:", e.BatchID)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, " [order %s item %s needs %d of %s, %d coverable]",
			f.OrderID, f.LineItemID, f.Requested, f.SKU, f.Available)
	}
	return b.String()
}

func (e *CommitError) Unwrap() error { return entities.ErrConcurrentStockChange }

// orderSKU keys aggregated demand during commit validation
type orderSKU struct {
	orderID string
	sku     entities.ComponentSKU
}

// CommitPromotions re-validates and applies every promotion a batch needs
// under a single lock acquisition: all entries succeed or none do. Demand an
// entry has beyond the order's existing soft claim is covered from free
// availability (soft-reserved first, then promoted), so a draft composed
// against free stock commits without a separate reservation pass.
//
// Failure means stock moved between draft and commit; the returned
// *CommitError lists the uncoverable entries and unwraps to
// ErrConcurrentStockChange.
func (s *Service) CommitPromotions(batchID string, demands []EntryDemand) error {
	if len(demands) == 0 {
		return fmt.Errorf("batch %s has no demand entries to commit", batchID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Aggregate demand per order and SKU, preserving first-seen order for
	// deterministic application.
	need := make(map[orderSKU]entities.Quantity)
	var keys []orderSKU
	for _, d := range demands {
		for sku, per := range d.PerUnit {
			k := orderSKU{d.OrderID, sku}
			if _, seen := need[k]; !seen {
				keys = append(keys, k)
			}
			need[k] += per * d.Qty
		}
	}

	// Validation pass: nothing mutates until every key is known coverable.
	freeLeft := make(map[entities.ComponentSKU]entities.Quantity)
	coverable := make(map[orderSKU]entities.Quantity)
	var failures []PromotionFailure
	for _, k := range keys {
		comp, err := s.components.GetComponent(k.sku)
		if err != nil {
			return err
		}
		if _, seen := freeLeft[k.sku]; !seen {
			freeLeft[k.sku] = comp.Availability()
		}

		held := entities.Quantity(0)
		if soft, err := s.reservations.GetSoft(k.orderID, k.sku); err == nil && soft != nil {
			held = soft.Qty
		}
		shortfall := need[k] - held
		if shortfall < 0 {
			shortfall = 0
		}
		coverable[k] = held + freeLeft[k.sku]
		if shortfall > freeLeft[k.sku] {
			for _, d := range demands {
				if d.OrderID != k.orderID {
					continue
				}
				if per, ok := d.PerUnit[k.sku]; ok {
					failures = append(failures, PromotionFailure{
						OrderID:    d.OrderID,
						LineItemID: d.LineItemID,
						SKU:        k.sku,
						Requested:  per * d.Qty,
						Available:  coverable[k],
					})
				}
			}
			continue
		}
		freeLeft[k.sku] -= shortfall
	}
	if len(failures) > 0 {
		return &CommitError{BatchID: batchID, Failures: failures}
	}

	// Apply pass: validated above, so no call here can fail on quantity.
	for _, k := range keys {
		held := entities.Quantity(0)
		if soft, _ := s.reservations.GetSoft(k.orderID, k.sku); soft != nil {
			held = soft.Qty
		}
		if shortfall := need[k] - held; shortfall > 0 {
			comp, err := s.components.GetComponent(k.sku)
			if err != nil {
				return err
			}
			row, err := entities.NewSoftReservation(k.orderID, k.sku, shortfall)
			if err != nil {
				return err
			}
			if err := s.reservations.Upsert(row); err != nil {
				return err
			}
			comp.SoftReserved += shortfall
			s.assertInvariant(comp)
		}
		if err := s.promoteLocked(k.orderID, batchID, k.sku, need[k]); err != nil {
			return err
		}
	}
	return nil
}
