package entities

import "fmt"

// ComponentSKU represents a unique stocked-part identifier
type ComponentSKU string

// Quantity represents an integer quantity value for discrete manufacturing units
type Quantity int64

// Component represents a stocked part with its reservation counters.
// PhysicalStock is externally authoritative (stock source); SoftReserved and
// HardLocked are the overlay this core maintains on top of it.
type Component struct {
	SKU           ComponentSKU
	Description   string
	PhysicalStock Quantity
	SoftReserved  Quantity
	HardLocked    Quantity
}

// NewComponent creates a validated Component
func NewComponent(sku ComponentSKU, description string, physicalStock Quantity) (*Component, error) {
	if string(sku) == "" {
		return nil, fmt.Errorf("component SKU cannot be empty")
	}
	if physicalStock < 0 {
		return nil, fmt.Errorf("physical stock cannot be negative, got %d", physicalStock)
	}

	return &Component{
		SKU:           sku,
		Description:   description,
		PhysicalStock: physicalStock,
	}, nil
}

// Availability returns the quantity still free for planning purposes:
// physical stock minus both reservation tiers.
func (c *Component) Availability() Quantity {
	return c.PhysicalStock - c.SoftReserved - c.HardLocked
}

// CheckInvariant verifies soft_reserved + hard_locked <= physical_stock and
// that no counter has gone negative.
func (c *Component) CheckInvariant() error {
	if c.SoftReserved < 0 || c.HardLocked < 0 || c.PhysicalStock < 0 {
		return fmt.Errorf("component %s has negative counter: physical=%d soft=%d hard=%d",
			c.SKU, c.PhysicalStock, c.SoftReserved, c.HardLocked)
	}
	if c.SoftReserved+c.HardLocked > c.PhysicalStock {
		return fmt.Errorf("component %s over-reserved: physical=%d soft=%d hard=%d",
			c.SKU, c.PhysicalStock, c.SoftReserved, c.HardLocked)
	}
	return nil
}
