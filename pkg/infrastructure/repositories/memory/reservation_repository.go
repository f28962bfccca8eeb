package memory

import (
	"fmt"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
)

// ReservationRepository provides in-memory ledger row storage. Rows are kept
// in insertion order so sweeps and exports are deterministic.
type ReservationRepository struct {
	rows []*entities.Reservation
}

// NewReservationRepository creates a new in-memory reservation repository
func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{}
}

// Verify interface compliance
var _ repositories.ReservationRepository = (*ReservationRepository)(nil)

func sameRow(a, b *entities.Reservation) bool {
	return a.Tier == b.Tier &&
		a.ComponentSKU == b.ComponentSKU &&
		a.OrderID == b.OrderID &&
		a.BatchID == b.BatchID
}

// GetSoft returns the soft row for an order and component, or nil
func (r *ReservationRepository) GetSoft(orderID string, sku entities.ComponentSKU) (*entities.Reservation, error) {
	for _, row := range r.rows {
		if row.Tier == entities.Soft && row.OrderID == orderID && row.ComponentSKU == sku {
			return row, nil
		}
	}
	return nil, nil
}

// GetSoftByOrder returns all soft rows held by an order
func (r *ReservationRepository) GetSoftByOrder(orderID string) ([]*entities.Reservation, error) {
	var out []*entities.Reservation
	for _, row := range r.rows {
		if row.Tier == entities.Soft && row.OrderID == orderID {
			out = append(out, row)
		}
	}
	return out, nil
}

// GetHardByBatch returns all hard rows tied to a batch
func (r *ReservationRepository) GetHardByBatch(batchID string) ([]*entities.Reservation, error) {
	var out []*entities.Reservation
	for _, row := range r.rows {
		if row.Tier == entities.Hard && row.BatchID == batchID {
			out = append(out, row)
		}
	}
	return out, nil
}

// GetHardByOrder returns all hard rows originating from an order
func (r *ReservationRepository) GetHardByOrder(orderID string) ([]*entities.Reservation, error) {
	var out []*entities.Reservation
	for _, row := range r.rows {
		if row.Tier == entities.Hard && row.OrderID == orderID {
			out = append(out, row)
		}
	}
	return out, nil
}

// GetByComponent returns all rows claiming a component
func (r *ReservationRepository) GetByComponent(sku entities.ComponentSKU) ([]*entities.Reservation, error) {
	var out []*entities.Reservation
	for _, row := range r.rows {
		if row.ComponentSKU == sku {
			out = append(out, row)
		}
	}
	return out, nil
}

// GetAll returns every ledger row in insertion order
func (r *ReservationRepository) GetAll() ([]*entities.Reservation, error) {
	out := make([]*entities.Reservation, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

// Upsert adds the row's quantity to a matching row, creating it if absent
func (r *ReservationRepository) Upsert(res *entities.Reservation) error {
	if res == nil {
		return fmt.Errorf("cannot upsert nil reservation")
	}
	if res.Qty <= 0 {
		return fmt.Errorf("upsert quantity must be positive, got %d", res.Qty)
	}
	for _, row := range r.rows {
		if sameRow(row, res) {
			row.Qty += res.Qty
			return nil
		}
	}
	clone := *res
	r.rows = append(r.rows, &clone)
	return nil
}

// Adjust changes a matching row's quantity by delta, removing it at zero
func (r *ReservationRepository) Adjust(res *entities.Reservation, delta entities.Quantity) error {
	for i, row := range r.rows {
		if !sameRow(row, res) {
			continue
		}
		next := row.Qty + delta
		if next < 0 {
			return fmt.Errorf("adjust would drive %s reservation of %s below zero: %d%+d",
				row.Tier, row.ComponentSKU, row.Qty, delta)
		}
		if next == 0 {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
		row.Qty = next
		return nil
	}
	return fmt.Errorf("no %s reservation of %s for order %q batch %q to adjust",
		res.Tier, res.ComponentSKU, res.OrderID, res.BatchID)
}

// RemoveByBatch deletes every hard row tied to a batch
func (r *ReservationRepository) RemoveByBatch(batchID string) error {
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.Tier == entities.Hard && row.BatchID == batchID {
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return nil
}
