package repositories

import "github.com/quadica/batchplan/pkg/domain/entities"

// OrderRepository provides access to orders and their line items as fed in
// by the external order source
type OrderRepository interface {
	GetOrder(orderID string) (*entities.Order, error)
	GetAllOrders() ([]*entities.Order, error)
	GetEligibleOrders() ([]*entities.Order, error)
	SaveOrder(order *entities.Order) error

	GetLineItem(lineItemID string) (*entities.LineItem, error)
	GetLineItemsByOrder(orderID string) ([]*entities.LineItem, error)
	GetLineItemsByBaseType(baseType string) ([]*entities.LineItem, error)
	SaveLineItem(item *entities.LineItem) error

	LoadOrders(orders []*entities.Order) error
	LoadLineItems(items []*entities.LineItem) error
}
