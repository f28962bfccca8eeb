package repositories

import "github.com/quadica/batchplan/pkg/domain/entities"

// UnitRepository is the append-only log of manufactured units. Serials are
// recorded forever; voiding flips a flag and never frees the number.
type UnitRepository interface {
	// IsIssued reports whether a serial has ever been issued, voided or not.
	IsIssued(serial entities.UnitSerial) (bool, error)
	IssuedCount() (int, error)

	Append(unit *entities.ManufacturedUnit) error
	GetBySerial(serial entities.UnitSerial) (*entities.ManufacturedUnit, error)
	// GetByBatch returns units in their original issue order.
	GetByBatch(batchID string) ([]*entities.ManufacturedUnit, error)
	GetByOrder(orderID string) ([]*entities.ManufacturedUnit, error)

	// Void marks a unit scrapped or abandoned; the serial stays retired.
	Void(serial entities.UnitSerial) error
}
