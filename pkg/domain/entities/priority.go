package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriorityTier buckets orders for the composer's trim rule. Tiers the
// composer protects (High and Critical unless configured otherwise) are
// included in full; the rest are candidates for capacity capping and
// array-alignment trimming.
type PriorityTier int

const (
	TierNormal PriorityTier = iota
	TierHigh
	TierCritical
)

// String method for PriorityTier enum
func (t PriorityTier) String() string {
	switch t {
	case TierNormal:
		return "Normal"
	case TierHigh:
		return "High"
	case TierCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// ParseTier parses a tier name as written in config files. Matching is
// case-insensitive.
func ParseTier(name string) (PriorityTier, error) {
	switch strings.ToLower(name) {
	case "normal":
		return TierNormal, nil
	case "high":
		return TierHigh, nil
	case "critical":
		return TierCritical, nil
	default:
		return TierNormal, fmt.Errorf("unknown priority tier %q", name)
	}
}

// PriorityScore is the hierarchical ranking of one order at a point in time.
// Comparison is an ordered tuple walk, never an additive formula: a higher
// tier always decides before any lower tier is consulted.
//
// Tier order, highest first:
//  1. manual override (if set)
//  2. paid expedite amount
//  3. days past the promise date
//  4. almost-due boost inside the configured window
//  5. order age, oldest first
type PriorityScore struct {
	OverrideSet bool
	Override    int
	ExpediteFee decimal.Decimal
	DaysLate    int
	AlmostDue   bool
	CreatedAt   time.Time
}

// Compare returns 1 if s outranks other, -1 if other outranks s, 0 on a full
// tie. Suitable for stable sorting; identical inputs always compare equal.
func (s PriorityScore) Compare(other PriorityScore) int {
	// Tier 1: manual override dominates everything.
	if s.OverrideSet != other.OverrideSet {
		if s.OverrideSet {
			return 1
		}
		return -1
	}
	if s.OverrideSet && s.Override != other.Override {
		if s.Override > other.Override {
			return 1
		}
		return -1
	}

	// Tier 2: paid expedite, monotonic with the fee.
	sPaid, oPaid := s.ExpediteFee.IsPositive(), other.ExpediteFee.IsPositive()
	if sPaid != oPaid {
		if sPaid {
			return 1
		}
		return -1
	}
	if sPaid {
		if c := s.ExpediteFee.Cmp(other.ExpediteFee); c != 0 {
			return c
		}
	}

	// Tier 3: lateness past the promise date, scaling with how late.
	sLate, oLate := s.DaysLate > 0, other.DaysLate > 0
	if sLate != oLate {
		if sLate {
			return 1
		}
		return -1
	}
	if sLate && s.DaysLate != other.DaysLate {
		if s.DaysLate > other.DaysLate {
			return 1
		}
		return -1
	}

	// Tier 4: almost-due window boost.
	if s.AlmostDue != other.AlmostDue {
		if s.AlmostDue {
			return 1
		}
		return -1
	}

	// Tier 5: age, oldest first.
	if s.CreatedAt.Before(other.CreatedAt) {
		return 1
	}
	if s.CreatedAt.After(other.CreatedAt) {
		return -1
	}
	return 0
}

// Tier maps the score onto the composer's coarse buckets
func (s PriorityScore) Tier() PriorityTier {
	if s.OverrideSet || s.DaysLate > 0 {
		return TierCritical
	}
	if s.ExpediteFee.IsPositive() || s.AlmostDue {
		return TierHigh
	}
	return TierNormal
}
