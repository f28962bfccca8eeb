package entities

import (
	"fmt"
	"time"
)

// BatchStatus represents the lifecycle state of a manufacturing batch
type BatchStatus int

const (
	BatchInProgress BatchStatus = iota
	BatchComplete
	BatchCancelled
)

// String method for BatchStatus enum
func (s BatchStatus) String() string {
	switch s {
	case BatchInProgress:
		return "InProgress"
	case BatchComplete:
		return "Complete"
	case BatchCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// BatchEntry is one committed line-item slice within a batch
type BatchEntry struct {
	OrderID      string
	LineItemID   string
	CommittedQty Quantity
}

// Batch represents a single-base-type manufacturing run. The composition
// list is owned exclusively by the batch while InProgress; once Complete or
// Cancelled it is read-only history.
type Batch struct {
	ID           string
	BaseType     string
	Status       BatchStatus
	Entries      []BatchEntry
	CreatedAt    time.Time
	LastActivity time.Time
}

// NewBatch creates a validated Batch in the InProgress state
func NewBatch(id, baseType string, entries []BatchEntry, createdAt time.Time) (*Batch, error) {
	if id == "" {
		return nil, fmt.Errorf("batch ID cannot be empty")
	}
	if baseType == "" {
		return nil, fmt.Errorf("base type cannot be empty")
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("batch must contain at least one entry")
	}
	for i, e := range entries {
		if e.OrderID == "" || e.LineItemID == "" {
			return nil, fmt.Errorf("batch entry %d missing order or line item ID", i)
		}
		if e.CommittedQty <= 0 {
			return nil, fmt.Errorf("batch entry %d committed quantity must be positive, got %d", i, e.CommittedQty)
		}
	}

	return &Batch{
		ID:           id,
		BaseType:     baseType,
		Status:       BatchInProgress,
		Entries:      entries,
		CreatedAt:    createdAt,
		LastActivity: createdAt,
	}, nil
}

// TotalQty returns the total committed unit count across all entries
func (b *Batch) TotalQty() Quantity {
	var total Quantity
	for _, e := range b.Entries {
		total += e.CommittedQty
	}
	return total
}

// Touch records planner or floor activity on the batch
func (b *Batch) Touch(at time.Time) {
	b.LastActivity = at
}

// DraftEntry is one proposed line-item slice inside a batch draft
type DraftEntry struct {
	OrderID    string
	LineItemID string
	Qty        Quantity
	Tier       PriorityTier
}

// BatchDraft is the composer's proposal: not yet committed, holds no
// reservations, and may be discarded freely.
type BatchDraft struct {
	BaseType              string
	Composition           []DraftEntry
	TotalQty              Quantity
	ArraySize             Quantity
	ArrayCount            Quantity
	PartialArrayRemainder Quantity
	TrimmedQty            Quantity // units dropped from the tail for array alignment
}
