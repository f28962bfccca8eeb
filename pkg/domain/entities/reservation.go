package entities

import "fmt"

// ReservationTier distinguishes the two claim strengths on component stock
type ReservationTier int

const (
	// Soft is a provisional claim held by an order; reallocatable.
	Soft ReservationTier = iota
	// Hard is a firm claim held by an in-progress batch; never reallocated.
	Hard
)

// String method for ReservationTier enum
func (t ReservationTier) String() string {
	switch t {
	case Soft:
		return "Soft"
	case Hard:
		return "Hard"
	default:
		return "Unknown"
	}
}

// Reservation is one ledger row. Both tiers share the type; the tier tag
// selects which owner field is authoritative. Hard rows keep OrderID so a
// cancelled batch can return quantity to the originating order's soft claim.
type Reservation struct {
	Tier         ReservationTier
	ComponentSKU ComponentSKU
	OrderID      string
	BatchID      string // set only on Hard rows
	Qty          Quantity
}

// NewSoftReservation creates a validated soft-tier reservation row
func NewSoftReservation(orderID string, sku ComponentSKU, qty Quantity) (*Reservation, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order ID cannot be empty")
	}
	if string(sku) == "" {
		return nil, fmt.Errorf("component SKU cannot be empty")
	}
	if qty <= 0 {
		return nil, fmt.Errorf("reservation quantity must be positive, got %d", qty)
	}

	return &Reservation{
		Tier:         Soft,
		ComponentSKU: sku,
		OrderID:      orderID,
		Qty:          qty,
	}, nil
}

// OrderImpact describes one order's position after a proposed reallocation:
// how much soft coverage it keeps against its open requirement for the
// component, and whether the move costs it buildability.
type OrderImpact struct {
	OrderID           string
	ComponentSKU      ComponentSKU
	SoftBefore        Quantity
	SoftAfter         Quantity
	OpenRequirement   Quantity
	LosesBuildability bool
}

// ReallocationPlan is the previewed first phase of a soft-reservation move.
// It carries everything needed for a human to confirm before commit; the
// reservation math is not re-derived at commit, only re-validated.
type ReallocationPlan struct {
	FromOrderID  string
	ToOrderID    string
	ComponentSKU ComponentSKU
	Qty          Quantity
	Impact       []OrderImpact
}

// NewHardReservation creates a validated hard-tier reservation row
func NewHardReservation(orderID, batchID string, sku ComponentSKU, qty Quantity) (*Reservation, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order ID cannot be empty")
	}
	if batchID == "" {
		return nil, fmt.Errorf("batch ID cannot be empty")
	}
	if string(sku) == "" {
		return nil, fmt.Errorf("component SKU cannot be empty")
	}
	if qty <= 0 {
		return nil, fmt.Errorf("reservation quantity must be positive, got %d", qty)
	}

	return &Reservation{
		Tier:         Hard,
		ComponentSKU: sku,
		OrderID:      orderID,
		BatchID:      batchID,
		Qty:          qty,
	}, nil
}
