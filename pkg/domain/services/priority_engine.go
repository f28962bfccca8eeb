package services

import (
	"time"

	"github.com/quadica/batchplan/pkg/domain/entities"
)

// PriorityEngine scores order urgency from hierarchical ranking inputs.
// Scoring is pull-based: the composer asks for scores at composition time,
// there is no background recalculation.
type PriorityEngine struct {
	almostDueWindow time.Duration
}

// NewPriorityEngine creates a priority engine. almostDueDays is the size of
// the window before the promise date inside which an order gets the
// almost-due boost.
func NewPriorityEngine(almostDueDays int) *PriorityEngine {
	if almostDueDays < 0 {
		almostDueDays = 0
	}
	return &PriorityEngine{
		almostDueWindow: time.Duration(almostDueDays) * 24 * time.Hour,
	}
}

// Score computes the order's priority as of the given instant. Two calls
// with identical inputs produce identical scores.
func (e *PriorityEngine) Score(order *entities.Order, asOf time.Time) entities.PriorityScore {
	score := entities.PriorityScore{
		OverrideSet: order.OverrideSet,
		Override:    order.Override,
		ExpediteFee: order.ExpediteFee,
		CreatedAt:   order.CreatedAt,
	}

	pastDue := asOf.Sub(order.PromiseDate)
	if pastDue > 0 {
		// Round up so any time past the promise date counts as late.
		score.DaysLate = int((pastDue + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
	} else if -pastDue <= e.almostDueWindow {
		score.AlmostDue = true
	}

	return score
}

// Rank scores a set of orders and returns a lookup by order ID
func (e *PriorityEngine) Rank(orders []*entities.Order, asOf time.Time) map[string]entities.PriorityScore {
	scores := make(map[string]entities.PriorityScore, len(orders))
	for _, o := range orders {
		scores[o.ID] = e.Score(o, asOf)
	}
	return scores
}
