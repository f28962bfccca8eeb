package entities

import (
	"fmt"
	"time"
)

// SerialSpaceSize is the number of distinct unit serials available. Serials
// are engraved as a 20-bit Micro-ID dot grid, so the space is fixed at 2^20.
const SerialSpaceSize = 1 << 20

// UnitSerial is a permanent unit identifier in [0, SerialSpaceSize).
type UnitSerial uint32

// String renders the serial the way it appears on labels and export files:
// zero-padded to eight digits.
func (s UnitSerial) String() string {
	return fmt.Sprintf("%08d", uint32(s))
}

// Valid reports whether the serial fits the 20-bit encoding space
func (s UnitSerial) Valid() bool {
	return uint32(s) < SerialSpaceSize
}

// ManufacturedUnit is the permanent record of one physical unit. Units are
// never deleted; a scrapped or abandoned unit is voided and its serial is
// retired from the pool forever.
type ManufacturedUnit struct {
	Serial     UnitSerial
	BatchID    string
	OrderID    string
	LineItemID string
	CreatedAt  time.Time
	Voided     bool
}

// NewManufacturedUnit creates a validated ManufacturedUnit
func NewManufacturedUnit(serial UnitSerial, batchID, orderID, lineItemID string, createdAt time.Time) (*ManufacturedUnit, error) {
	if !serial.Valid() {
		return nil, fmt.Errorf("serial %d outside the 20-bit space", serial)
	}
	if batchID == "" {
		return nil, fmt.Errorf("batch ID cannot be empty")
	}
	if orderID == "" {
		return nil, fmt.Errorf("order ID cannot be empty")
	}
	if lineItemID == "" {
		return nil, fmt.Errorf("line item ID cannot be empty")
	}

	return &ManufacturedUnit{
		Serial:     serial,
		BatchID:    batchID,
		OrderID:    orderID,
		LineItemID: lineItemID,
		CreatedAt:  createdAt,
	}, nil
}
