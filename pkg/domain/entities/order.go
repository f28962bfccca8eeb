package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the production lifecycle state of an order
type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderEligible
	OrderOnHold
	OrderPartiallyComplete
	OrderComplete
	OrderCancelled
)

// String method for OrderStatus enum
func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "Pending"
	case OrderEligible:
		return "Eligible"
	case OrderOnHold:
		return "OnHold"
	case OrderPartiallyComplete:
		return "PartiallyComplete"
	case OrderComplete:
		return "Complete"
	case OrderCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Order represents a customer order with its ranking inputs. The core owns
// only the production lifecycle status; financial and intake fields are
// supplied by the external order source and read-only here.
type Order struct {
	ID          string
	Customer    string
	Override    int // manual planner score, meaningful only when OverrideSet
	OverrideSet bool
	ExpediteFee decimal.Decimal
	PromiseDate time.Time
	CreatedAt   time.Time
	Urgent      bool // planner flag: never trim this order for array alignment
	Status      OrderStatus
	HandoffSent bool // production-complete event already emitted
}

// NewOrder creates a validated Order in the Pending state
func NewOrder(id, customer string, promiseDate, createdAt time.Time) (*Order, error) {
	if id == "" {
		return nil, fmt.Errorf("order ID cannot be empty")
	}
	if promiseDate.IsZero() {
		return nil, fmt.Errorf("promise date cannot be zero")
	}
	if createdAt.IsZero() {
		return nil, fmt.Errorf("created date cannot be zero")
	}

	return &Order{
		ID:          id,
		Customer:    customer,
		ExpediteFee: decimal.Zero,
		PromiseDate: promiseDate,
		CreatedAt:   createdAt,
		Status:      OrderPending,
	}, nil
}

// SetOverride applies a manual priority score from a planner
func (o *Order) SetOverride(value int) {
	o.Override = value
	o.OverrideSet = true
}

// ClearOverride removes the manual priority score
func (o *Order) ClearOverride() {
	o.Override = 0
	o.OverrideSet = false
}

// IsOpen reports whether the order can still receive production work
func (o *Order) IsOpen() bool {
	return o.Status != OrderComplete && o.Status != OrderCancelled
}

// LineItem represents one module design within an order: a base type plus a
// component configuration and a required quantity. Base type and configuration
// are immutable once created; RequiredQty changes arrive as external
// order-change events.
type LineItem struct {
	ID          string
	OrderID     string
	SKU         string // module design SKU as shown on the production floor
	BaseType    string // shared carrier design; batching boundary
	Components  map[ComponentSKU]Quantity
	RequiredQty Quantity
	BuiltQty    Quantity
	Seq         int // creation order across all line items, FIFO tie-break
}

// NewLineItem creates a validated LineItem
func NewLineItem(id, orderID, sku, baseType string, components map[ComponentSKU]Quantity, requiredQty Quantity, seq int) (*LineItem, error) {
	if id == "" {
		return nil, fmt.Errorf("line item ID cannot be empty")
	}
	if orderID == "" {
		return nil, fmt.Errorf("order ID cannot be empty")
	}
	if baseType == "" {
		return nil, fmt.Errorf("base type cannot be empty")
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("line item must consume at least one component")
	}
	for sku, qty := range components {
		if qty <= 0 {
			return nil, fmt.Errorf("component %s quantity per unit must be positive, got %d", sku, qty)
		}
	}
	if requiredQty <= 0 {
		return nil, fmt.Errorf("required quantity must be positive, got %d", requiredQty)
	}

	return &LineItem{
		ID:          id,
		OrderID:     orderID,
		SKU:         sku,
		BaseType:    baseType,
		Components:  components,
		RequiredQty: requiredQty,
		Seq:         seq,
	}, nil
}

// RemainingQty returns the quantity still to be manufactured
func (li *LineItem) RemainingQty() Quantity {
	if li.BuiltQty >= li.RequiredQty {
		return 0
	}
	return li.RequiredQty - li.BuiltQty
}
