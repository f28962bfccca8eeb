package entities

import (
	"testing"
)

func TestNewComponent_Validation(t *testing.T) {
	valid, err := NewComponent("LED-W5700", "White 5700K emitter", 500)
	if err != nil {
		t.Fatalf("Expected valid component creation to succeed: %v", err)
	}
	if valid.PhysicalStock != 500 {
		t.Errorf("Expected physical stock 500, got %d", valid.PhysicalStock)
	}
	if valid.SoftReserved != 0 || valid.HardLocked != 0 {
		t.Errorf("Expected fresh component to have zero reservations, got soft=%d hard=%d",
			valid.SoftReserved, valid.HardLocked)
	}

	testCases := []struct {
		name        string
		sku         ComponentSKU
		stock       Quantity
		expectError string
	}{
		{"empty SKU", "", 10, "component SKU cannot be empty"},
		{"negative stock", "LED-W5700", -1, "physical stock cannot be negative, got -1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewComponent(tc.sku, "test", tc.stock)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestComponent_Availability(t *testing.T) {
	c := &Component{SKU: "LENS-25D", PhysicalStock: 100, SoftReserved: 30, HardLocked: 20}
	if got := c.Availability(); got != 50 {
		t.Errorf("Expected availability 50, got %d", got)
	}
}

func TestComponent_CheckInvariant(t *testing.T) {
	testCases := []struct {
		name      string
		component Component
		wantError bool
	}{
		{"fully free", Component{SKU: "A", PhysicalStock: 10}, false},
		{"fully reserved", Component{SKU: "A", PhysicalStock: 10, SoftReserved: 6, HardLocked: 4}, false},
		{"over-reserved", Component{SKU: "A", PhysicalStock: 10, SoftReserved: 8, HardLocked: 4}, true},
		{"negative soft", Component{SKU: "A", PhysicalStock: 10, SoftReserved: -1}, true},
		{"negative hard", Component{SKU: "A", PhysicalStock: 10, HardLocked: -1}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.component.CheckInvariant()
			if tc.wantError && err == nil {
				t.Error("Expected invariant violation, got none")
			}
			if !tc.wantError && err != nil {
				t.Errorf("Expected invariant to hold: %v", err)
			}
		})
	}
}
