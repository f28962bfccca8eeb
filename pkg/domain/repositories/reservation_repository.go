package repositories

import "github.com/quadica/batchplan/pkg/domain/entities"

// ReservationRepository stores the ledger rows. Rows reference orders,
// batches, and components by identifier only; the ledger service is the only
// writer.
type ReservationRepository interface {
	// GetSoft returns the soft row for an order and component, or nil if the
	// order holds no soft claim on that component.
	GetSoft(orderID string, sku entities.ComponentSKU) (*entities.Reservation, error)
	GetSoftByOrder(orderID string) ([]*entities.Reservation, error)

	GetHardByBatch(batchID string) ([]*entities.Reservation, error)
	GetHardByOrder(orderID string) ([]*entities.Reservation, error)

	GetByComponent(sku entities.ComponentSKU) ([]*entities.Reservation, error)
	GetAll() ([]*entities.Reservation, error)

	// Upsert adds qty to the matching row, creating it if absent. A row
	// reaching zero quantity is removed.
	Upsert(res *entities.Reservation) error
	// Adjust changes the quantity of an existing row by delta; the row is
	// removed when it reaches zero. It is an error to adjust below zero or
	// to adjust a row that does not exist.
	Adjust(res *entities.Reservation, delta entities.Quantity) error
	// RemoveByBatch deletes every hard row tied to a batch.
	RemoveByBatch(batchID string) error
}
