package events

import (
	"github.com/quadica/batchplan/pkg/domain/entities"
)

const (
	SoftReservedEvent        = "reservation.soft_reserved"
	SoftReleasedEvent        = "reservation.soft_released"
	ReservationPromotedEvent = "reservation.promoted"
	ReallocationEvent        = "reservation.reallocated"

	BatchCommittedEvent = "batch.committed"
	BatchAdjustedEvent  = "batch.adjusted"
	BatchCompletedEvent = "batch.completed"
	BatchCancelledEvent = "batch.cancelled"
	BatchStalledEvent   = "batch.stalled"

	ProductionCompleteEvent = "order.production_complete"
)

type SoftReserved struct {
	OrderID      string                `json:"order_id"`
	ComponentSKU entities.ComponentSKU `json:"component_sku"`
	Qty          entities.Quantity     `json:"qty"`
}

type SoftReleased struct {
	OrderID      string                `json:"order_id"`
	ComponentSKU entities.ComponentSKU `json:"component_sku"`
	Qty          entities.Quantity     `json:"qty"`
	Reason       string                `json:"reason"`
}

type ReservationPromoted struct {
	OrderID      string                `json:"order_id"`
	BatchID      string                `json:"batch_id"`
	ComponentSKU entities.ComponentSKU `json:"component_sku"`
	Qty          entities.Quantity     `json:"qty"`
}

// Reallocated carries the committed impact summary so the alert sink can
// notify planners whose orders lost coverage.
type Reallocated struct {
	FromOrderID  string                 `json:"from_order_id"`
	ToOrderID    string                 `json:"to_order_id"`
	ComponentSKU entities.ComponentSKU  `json:"component_sku"`
	Qty          entities.Quantity      `json:"qty"`
	Impact       []entities.OrderImpact `json:"impact"`
}

type BatchCommitted struct {
	Batch    entities.Batch        `json:"batch"`
	Serials  []entities.UnitSerial `json:"serials"`
	TotalQty entities.Quantity     `json:"total_qty"`
}

type BatchAdjusted struct {
	BatchID    string            `json:"batch_id"`
	LineItemID string            `json:"line_item_id"`
	OldQty     entities.Quantity `json:"old_qty"`
	NewQty     entities.Quantity `json:"new_qty"`
}

type BatchCompleted struct {
	BatchID  string            `json:"batch_id"`
	TotalQty entities.Quantity `json:"total_qty"`
}

type BatchCancelled struct {
	BatchID string `json:"batch_id"`
	Reason  string `json:"reason"`
}

// BatchStalled is the escalating inactivity alert from the stall monitor
type BatchStalled struct {
	BatchID         string `json:"batch_id"`
	BaseType        string `json:"base_type"`
	IdleFor         string `json:"idle_for"`
	EscalationLevel int    `json:"escalation_level"`
}

// ProductionComplete is the idempotent hand-off event: emitted exactly once
// per order, consumed by the external fulfillment collaborator.
type ProductionComplete struct {
	OrderID  string            `json:"order_id"`
	TotalQty entities.Quantity `json:"total_qty"`
}
