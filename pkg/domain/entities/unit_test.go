package entities

import (
	"testing"
	"time"
)

func TestUnitSerial_String(t *testing.T) {
	testCases := []struct {
		serial UnitSerial
		want   string
	}{
		{0, "00000000"},
		{42, "00000042"},
		{1048575, "01048575"},
	}
	for _, tc := range testCases {
		if got := tc.serial.String(); got != tc.want {
			t.Errorf("Serial %d: expected %q, got %q", uint32(tc.serial), tc.want, got)
		}
	}
}

func TestUnitSerial_Valid(t *testing.T) {
	if !UnitSerial(0).Valid() {
		t.Error("Expected serial 0 to be valid")
	}
	if !UnitSerial(SerialSpaceSize - 1).Valid() {
		t.Error("Expected the last serial in the space to be valid")
	}
	if UnitSerial(SerialSpaceSize).Valid() {
		t.Error("Expected serial outside the 20-bit space to be invalid")
	}
}

func TestNewManufacturedUnit_Validation(t *testing.T) {
	createdAt := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	unit, err := NewManufacturedUnit(42, "BATCH-1", "ORD-1001", "LI-1", createdAt)
	if err != nil {
		t.Fatalf("Expected valid unit creation to succeed: %v", err)
	}
	if unit.Voided {
		t.Error("Expected new unit to not be voided")
	}

	testCases := []struct {
		name        string
		serial      UnitSerial
		batchID     string
		orderID     string
		lineItemID  string
		expectError string
	}{
		{"serial out of space", SerialSpaceSize, "B", "O", "L", "serial 1048576 outside the 20-bit space"},
		{"empty batch", 1, "", "O", "L", "batch ID cannot be empty"},
		{"empty order", 1, "B", "", "L", "order ID cannot be empty"},
		{"empty line item", 1, "B", "O", "", "line item ID cannot be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewManufacturedUnit(tc.serial, tc.batchID, tc.orderID, tc.lineItemID, createdAt)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}
