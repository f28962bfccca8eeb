package testing

import (
	"time"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/infrastructure/repositories/memory"
)

// Fixed reference instant used across scheduler tests for determinism
var Now = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

// MustCreateComponent is a helper for tests - panics on validation error
func MustCreateComponent(sku string, physicalStock entities.Quantity) *entities.Component {
	component, err := entities.NewComponent(entities.ComponentSKU(sku), sku+" component", physicalStock)
	if err != nil {
		panic(err)
	}
	return component
}

// MustCreateOrder is a helper for tests - panics on validation error.
// promiseInDays is relative to Now; ageDays is how long ago the order was
// created.
func MustCreateOrder(id string, promiseInDays, ageDays int) *entities.Order {
	order, err := entities.NewOrder(
		id,
		"Test Customer",
		Now.AddDate(0, 0, promiseInDays),
		Now.AddDate(0, 0, -ageDays),
	)
	if err != nil {
		panic(err)
	}
	order.Status = entities.OrderEligible
	return order
}

// MustCreateLineItem is a helper for tests - panics on validation error
func MustCreateLineItem(
	id, orderID, sku, baseType string,
	components map[entities.ComponentSKU]entities.Quantity,
	requiredQty entities.Quantity,
	seq int,
) *entities.LineItem {
	item, err := entities.NewLineItem(id, orderID, sku, baseType, components, requiredQty, seq)
	if err != nil {
		panic(err)
	}
	return item
}

// Repos bundles the in-memory repositories most scheduler tests need
type Repos struct {
	Components   *memory.ComponentRepository
	Reservations *memory.ReservationRepository
	Orders       *memory.OrderRepository
	Batches      *memory.BatchRepository
	Units        *memory.UnitRepository
}

// NewRepos creates empty in-memory repositories
func NewRepos() *Repos {
	return &Repos{
		Components:   memory.NewComponentRepository(),
		Reservations: memory.NewReservationRepository(),
		Orders:       memory.NewOrderRepository(),
		Batches:      memory.NewBatchRepository(),
		Units:        memory.NewUnitRepository(),
	}
}

// BuildSchedulerTestData seeds repositories with a small two-order scenario
// on one base type: enough stock for both orders' LEDs but a scarce lens.
func BuildSchedulerTestData() *Repos {
	r := NewRepos()

	_ = r.Components.LoadComponents([]*entities.Component{
		MustCreateComponent("LED-W5700", 500),
		MustCreateComponent("LENS-25D", 120),
		MustCreateComponent("CONN-2P", 300),
	})

	order1 := MustCreateOrder("ORD-1001", 10, 5)
	order2 := MustCreateOrder("ORD-1002", 20, 2)
	_ = r.Orders.LoadOrders([]*entities.Order{order1, order2})

	_ = r.Orders.LoadLineItems([]*entities.LineItem{
		MustCreateLineItem("LI-1", "ORD-1001", "STAR-W5700-25D", "STAR-20MM",
			map[entities.ComponentSKU]entities.Quantity{"LED-W5700": 4, "LENS-25D": 1}, 40, 0),
		MustCreateLineItem("LI-2", "ORD-1002", "STAR-W5700-CONN", "STAR-20MM",
			map[entities.ComponentSKU]entities.Quantity{"LED-W5700": 4, "CONN-2P": 2}, 25, 1),
	})

	return r
}
