package memory

import (
	"fmt"
	"sort"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
)

// OrderRepository provides in-memory order and line-item storage
type OrderRepository struct {
	orders    map[string]*entities.Order
	lineItems map[string]*entities.LineItem
}

// NewOrderRepository creates a new in-memory order repository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:    make(map[string]*entities.Order),
		lineItems: make(map[string]*entities.LineItem),
	}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// GetOrder returns the order with the given ID
func (r *OrderRepository) GetOrder(orderID string) (*entities.Order, error) {
	order, exists := r.orders[orderID]
	if !exists {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	return order, nil
}

// GetAllOrders returns all orders sorted by ID for deterministic iteration
func (r *OrderRepository) GetAllOrders() ([]*entities.Order, error) {
	var orders []*entities.Order
	for _, o := range r.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

// GetEligibleOrders returns orders in the production-eligible states
func (r *OrderRepository) GetEligibleOrders() ([]*entities.Order, error) {
	all, err := r.GetAllOrders()
	if err != nil {
		return nil, err
	}
	var eligible []*entities.Order
	for _, o := range all {
		if o.Status == entities.OrderEligible || o.Status == entities.OrderPartiallyComplete {
			eligible = append(eligible, o)
		}
	}
	return eligible, nil
}

// SaveOrder stores or replaces an order
func (r *OrderRepository) SaveOrder(order *entities.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("cannot save order without an ID")
	}
	r.orders[order.ID] = order
	return nil
}

// GetLineItem returns the line item with the given ID
func (r *OrderRepository) GetLineItem(lineItemID string) (*entities.LineItem, error) {
	item, exists := r.lineItems[lineItemID]
	if !exists {
		return nil, fmt.Errorf("line item %s not found", lineItemID)
	}
	return item, nil
}

// GetLineItemsByOrder returns an order's line items in creation order
func (r *OrderRepository) GetLineItemsByOrder(orderID string) ([]*entities.LineItem, error) {
	var items []*entities.LineItem
	for _, li := range r.lineItems {
		if li.OrderID == orderID {
			items = append(items, li)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })
	return items, nil
}

// GetLineItemsByBaseType returns all line items of a base type in creation order
func (r *OrderRepository) GetLineItemsByBaseType(baseType string) ([]*entities.LineItem, error) {
	var items []*entities.LineItem
	for _, li := range r.lineItems {
		if li.BaseType == baseType {
			items = append(items, li)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })
	return items, nil
}

// SaveLineItem stores or replaces a line item
func (r *OrderRepository) SaveLineItem(item *entities.LineItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("cannot save line item without an ID")
	}
	r.lineItems[item.ID] = item
	return nil
}

// LoadOrders loads orders into the repository
func (r *OrderRepository) LoadOrders(orders []*entities.Order) error {
	for _, o := range orders {
		if err := r.SaveOrder(o); err != nil {
			return err
		}
	}
	return nil
}

// LoadLineItems loads line items into the repository
func (r *OrderRepository) LoadLineItems(items []*entities.LineItem) error {
	for _, li := range items {
		if err := r.SaveLineItem(li); err != nil {
			return err
		}
	}
	return nil
}
