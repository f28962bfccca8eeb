package repositories

import "github.com/quadica/batchplan/pkg/domain/entities"

// ComponentRepository provides access to component stock records. Physical
// stock figures come from the external stock source; the reservation
// counters are owned by the ledger.
type ComponentRepository interface {
	GetComponent(sku entities.ComponentSKU) (*entities.Component, error)
	GetAllComponents() ([]*entities.Component, error)
	SaveComponent(component *entities.Component) error
	LoadComponents(components []*entities.Component) error

	// SetPhysicalStock applies an authoritative stock figure from the
	// external stock source without touching the reservation overlay.
	SetPhysicalStock(sku entities.ComponentSKU, qty entities.Quantity) error
}
