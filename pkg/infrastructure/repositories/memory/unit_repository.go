package memory

import (
	"fmt"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
)

// UnitRepository provides the in-memory issued-unit log. Append order is
// preserved so batch exports reproduce rows identically.
type UnitRepository struct {
	units    []*entities.ManufacturedUnit
	bySerial map[entities.UnitSerial]*entities.ManufacturedUnit
}

// NewUnitRepository creates a new in-memory unit repository
func NewUnitRepository() *UnitRepository {
	return &UnitRepository{
		bySerial: make(map[entities.UnitSerial]*entities.ManufacturedUnit),
	}
}

// Verify interface compliance
var _ repositories.UnitRepository = (*UnitRepository)(nil)

// IsIssued reports whether a serial has ever been issued
func (r *UnitRepository) IsIssued(serial entities.UnitSerial) (bool, error) {
	_, issued := r.bySerial[serial]
	return issued, nil
}

// IssuedCount returns how many serials have ever been issued
func (r *UnitRepository) IssuedCount() (int, error) {
	return len(r.bySerial), nil
}

// Append records a newly manufactured unit; serials cannot repeat
func (r *UnitRepository) Append(unit *entities.ManufacturedUnit) error {
	if unit == nil {
		return fmt.Errorf("cannot append nil unit")
	}
	if _, exists := r.bySerial[unit.Serial]; exists {
		return fmt.Errorf("serial %s already issued", unit.Serial)
	}
	r.units = append(r.units, unit)
	r.bySerial[unit.Serial] = unit
	return nil
}

// GetBySerial returns the unit carrying the given serial
func (r *UnitRepository) GetBySerial(serial entities.UnitSerial) (*entities.ManufacturedUnit, error) {
	unit, exists := r.bySerial[serial]
	if !exists {
		return nil, fmt.Errorf("unit %s not found", serial)
	}
	return unit, nil
}

// GetByBatch returns a batch's units in original issue order
func (r *UnitRepository) GetByBatch(batchID string) ([]*entities.ManufacturedUnit, error) {
	var out []*entities.ManufacturedUnit
	for _, u := range r.units {
		if u.BatchID == batchID {
			out = append(out, u)
		}
	}
	return out, nil
}

// GetByOrder returns an order's units in original issue order
func (r *UnitRepository) GetByOrder(orderID string) ([]*entities.ManufacturedUnit, error) {
	var out []*entities.ManufacturedUnit
	for _, u := range r.units {
		if u.OrderID == orderID {
			out = append(out, u)
		}
	}
	return out, nil
}

// Void marks a unit scrapped; the serial stays permanently retired
func (r *UnitRepository) Void(serial entities.UnitSerial) error {
	unit, exists := r.bySerial[serial]
	if !exists {
		return fmt.Errorf("unit %s not found", serial)
	}
	unit.Voided = true
	return nil
}
