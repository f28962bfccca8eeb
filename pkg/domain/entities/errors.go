package entities

import "errors"

// Ledger and scheduling error kinds. Callers classify with errors.Is; the
// wrapped message carries the offending SKU, order, or batch.
var (
	// ErrInsufficientStock: a soft reservation would exceed free availability.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientSoftReservation: a promotion asked for more than the
	// order's soft claim holds.
	ErrInsufficientSoftReservation = errors.New("insufficient soft reservation")

	// ErrComponentHardLocked: a reallocation would have to touch hard-locked
	// units. Always rejected, never retried automatically.
	ErrComponentHardLocked = errors.New("component hard locked")

	// ErrConcurrentStockChange: commit-time re-validation found less stock
	// than the draft was composed against.
	ErrConcurrentStockChange = errors.New("concurrent stock change")

	// ErrSerialSpaceExhausted: the 20-bit serial space is consumed. Fatal;
	// allocation halts.
	ErrSerialSpaceExhausted = errors.New("serial space exhausted")

	// ErrInconsistentCompletionState: an order reached full completion with
	// residual hard locks. Fatal; requires manual audit.
	ErrInconsistentCompletionState = errors.New("inconsistent completion state")
)
