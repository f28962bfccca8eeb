package services

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
)

// randomAttempts is how many random draws to try per serial before falling
// back to a linear scan. The scan guarantees termination when the space is
// nearly full.
const randomAttempts = 64

// SerialAllocator issues permanent unit serials from the fixed 20-bit
// Micro-ID space. Uniqueness is checked against the append-only issued log,
// so a voided unit's serial is never drawn again.
type SerialAllocator struct {
	units     repositories.UnitRepository
	spaceSize int
	rng       *rand.Rand
	mu        sync.Mutex
}

// NewSerialAllocator creates an allocator over the full 20-bit space
func NewSerialAllocator(units repositories.UnitRepository, rng *rand.Rand) *SerialAllocator {
	return &SerialAllocator{
		units:     units,
		spaceSize: entities.SerialSpaceSize,
		rng:       rng,
	}
}

// NewSerialAllocatorWithSpace creates an allocator over a reduced space.
// Used by tests to reach exhaustion without a million draws.
func NewSerialAllocatorWithSpace(units repositories.UnitRepository, rng *rand.Rand, spaceSize int) *SerialAllocator {
	return &SerialAllocator{
		units:     units,
		spaceSize: spaceSize,
		rng:       rng,
	}
}

// Allocate draws n globally unique serials. The serials are reserved only in
// the sense that the caller is expected to append the corresponding units to
// the issued log before the next allocation; the composer does this inside
// the batch commit.
//
// Exhaustion of the address space returns ErrSerialSpaceExhausted, distinct
// from any ordinary failure.
func (a *SerialAllocator) Allocate(n int) ([]entities.UnitSerial, error) {
	if n <= 0 {
		return nil, fmt.Errorf("allocation count must be positive, got %d", n)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	issued, err := a.units.IssuedCount()
	if err != nil {
		return nil, fmt.Errorf("failed to read issued count: %w", err)
	}
	if issued+n > a.spaceSize {
		return nil, fmt.Errorf("%w: %d issued of %d, cannot allocate %d more",
			entities.ErrSerialSpaceExhausted, issued, a.spaceSize, n)
	}

	drawn := make(map[entities.UnitSerial]bool, n)
	serials := make([]entities.UnitSerial, 0, n)
	for len(serials) < n {
		serial, err := a.draw(drawn)
		if err != nil {
			return nil, err
		}
		drawn[serial] = true
		serials = append(serials, serial)
	}

	return serials, nil
}

// draw picks one free serial: random first, linear scan as a last resort
func (a *SerialAllocator) draw(drawn map[entities.UnitSerial]bool) (entities.UnitSerial, error) {
	for attempt := 0; attempt < randomAttempts; attempt++ {
		candidate := entities.UnitSerial(a.rng.Intn(a.spaceSize))
		free, err := a.isFree(candidate, drawn)
		if err != nil {
			return 0, err
		}
		if free {
			return candidate, nil
		}
	}

	// Space is crowded; scan from a random offset so allocation stays
	// unbiased across the remaining holes.
	start := a.rng.Intn(a.spaceSize)
	for i := 0; i < a.spaceSize; i++ {
		candidate := entities.UnitSerial((start + i) % a.spaceSize)
		free, err := a.isFree(candidate, drawn)
		if err != nil {
			return 0, err
		}
		if free {
			return candidate, nil
		}
	}

	return 0, fmt.Errorf("%w: no free serial in %d-slot space", entities.ErrSerialSpaceExhausted, a.spaceSize)
}

func (a *SerialAllocator) isFree(serial entities.UnitSerial, drawn map[entities.UnitSerial]bool) (bool, error) {
	if drawn[serial] {
		return false, nil
	}
	taken, err := a.units.IsIssued(serial)
	if err != nil {
		return false, fmt.Errorf("failed to check serial %s: %w", serial, err)
	}
	return !taken, nil
}
