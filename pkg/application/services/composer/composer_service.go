// Package composer selects line items into single-base-type manufacturing
// batches. Composition is a pure read over the ledger (optimistic); commit
// re-validates under the ledger lock (pessimistic) and is all-or-nothing.
package composer

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quadica/batchplan/pkg/application/services/ledger"
	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
	"github.com/quadica/batchplan/pkg/domain/services"
	"github.com/quadica/batchplan/pkg/infrastructure/events"
	"github.com/quadica/batchplan/pkg/infrastructure/metrics"
)

// CommitPolicy is the caller's stance on commit-time stock drops
type CommitPolicy struct {
	// AllowShrink lets the commit shrink entries to the now-available
	// quantity once instead of rejecting the draft outright.
	AllowShrink bool
}

// Service composes and commits batches
type Service struct {
	ledger        *ledger.Service
	orders        repositories.OrderRepository
	batches       repositories.BatchRepository
	units         repositories.UnitRepository
	serials       *services.SerialAllocator
	priority      *services.PriorityEngine
	store         events.EventStore
	metrics       *metrics.Metrics
	logger        *zap.Logger
	commitRetries int
	noTrim        map[entities.PriorityTier]bool

	now        func() time.Time
	newBatchID func() string
}

// NewService creates a batch composer. commitRetries bounds shrink attempts
// before a concurrent stock change is surfaced to the caller.
func NewService(
	ledgerSvc *ledger.Service,
	orders repositories.OrderRepository,
	batches repositories.BatchRepository,
	units repositories.UnitRepository,
	serials *services.SerialAllocator,
	priority *services.PriorityEngine,
	store events.EventStore,
	m *metrics.Metrics,
	logger *zap.Logger,
	commitRetries int,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if commitRetries < 1 {
		commitRetries = 1
	}
	return &Service{
		ledger:        ledgerSvc,
		orders:        orders,
		batches:       batches,
		units:         units,
		serials:       serials,
		priority:      priority,
		store:         store,
		metrics:       m,
		logger:        logger,
		commitRetries: commitRetries,
		noTrim: map[entities.PriorityTier]bool{
			entities.TierHigh:     true,
			entities.TierCritical: true,
		},
		now:        time.Now,
		newBatchID: func() string { return uuid.New().String() },
	}
}

// SetClock overrides the time source; tests use this for determinism
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetBatchIDSource overrides batch ID generation; tests use this
func (s *Service) SetBatchIDSource(gen func() string) { s.newBatchID = gen }

// SetNoTrimTiers replaces which tiers are exempt from capacity capping and
// array trimming. High and Critical unless overridden.
func (s *Service) SetNoTrimTiers(tiers []entities.PriorityTier) {
	s.noTrim = make(map[entities.PriorityTier]bool, len(tiers))
	for _, tier := range tiers {
		s.noTrim[tier] = true
	}
}

// candidate pairs a line item with its order's score for sorting
type candidate struct {
	item  *entities.LineItem
	order *entities.Order
	score entities.PriorityScore
}

// ComposeBatch walks eligible line items of one base type in priority order
// and proposes a batch composition:
//
//   - No-trim tiers (High and Critical unless reconfigured) contribute their
//     full buildable quantity: completeness beats manufacturing efficiency.
//   - The remaining tiers fill the rest up to capacityHint. If the total
//     leaves a partial array, the tail of the lowest-priority included item
//     is trimmed to an array boundary, unless its order is flagged urgent.
//
// The draft holds no reservations and repeated calls over an unchanged
// snapshot produce identical compositions.
func (s *Service) ComposeBatch(baseType string, capacityHint, arraySize entities.Quantity) (*entities.BatchDraft, error) {
	if arraySize < 1 {
		return nil, fmt.Errorf("array size must be at least 1, got %d", arraySize)
	}
	if capacityHint < 1 {
		return nil, fmt.Errorf("capacity hint must be at least 1, got %d", capacityHint)
	}

	eligible, err := s.orders.GetEligibleOrders()
	if err != nil {
		return nil, err
	}
	orderByID := make(map[string]*entities.Order, len(eligible))
	for _, o := range eligible {
		orderByID[o.ID] = o
	}
	scores := s.priority.Rank(eligible, s.now())

	items, err := s.orders.GetLineItemsByBaseType(baseType)
	if err != nil {
		return nil, err
	}
	var candidates []candidate
	for _, li := range items {
		order, ok := orderByID[li.OrderID]
		if !ok || li.RemainingQty() == 0 {
			continue
		}
		candidates = append(candidates, candidate{item: li, order: order, score: scores[order.ID]})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no buildable line items for base type %s", baseType)
	}

	// Priority descending, FIFO creation order on ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		if c := candidates[i].score.Compare(candidates[j].score); c != 0 {
			return c > 0
		}
		return candidates[i].item.Seq < candidates[j].item.Seq
	})

	walk, err := s.newAvailabilityWalk(candidates)
	if err != nil {
		return nil, err
	}

	draft := &entities.BatchDraft{BaseType: baseType, ArraySize: arraySize}
	lastTrimmable := -1

	for _, c := range candidates {
		tier := c.score.Tier()
		buildable := walk.buildable(c.item)
		if buildable == 0 {
			continue
		}

		qty := buildable
		if !s.noTrim[tier] {
			room := capacityHint - draft.TotalQty
			if room <= 0 {
				break
			}
			if qty > room {
				qty = room
			}
		}

		walk.take(c.item, qty)
		draft.Composition = append(draft.Composition, entities.DraftEntry{
			OrderID:    c.item.OrderID,
			LineItemID: c.item.ID,
			Qty:        qty,
			Tier:       tier,
		})
		draft.TotalQty += qty
		if !s.noTrim[tier] {
			lastTrimmable = len(draft.Composition) - 1
		}
	}
	if len(draft.Composition) == 0 {
		return nil, fmt.Errorf("no component availability for base type %s", baseType)
	}

	s.applyArrayTrim(draft, orderByID, lastTrimmable)

	draft.ArrayCount = draft.TotalQty / arraySize
	draft.PartialArrayRemainder = draft.TotalQty % arraySize

	if s.metrics != nil {
		s.metrics.BatchesComposed.Inc()
	}
	s.logger.Debug("batch composed",
		zap.String("base_type", baseType),
		zap.Int64("total_qty", int64(draft.TotalQty)),
		zap.Int64("arrays", int64(draft.ArrayCount)),
		zap.Int64("remainder", int64(draft.PartialArrayRemainder)))
	return draft, nil
}

// applyArrayTrim drops the partial-array tail from the lowest-priority
// included entry when that order tolerates it
func (s *Service) applyArrayTrim(draft *entities.BatchDraft, orders map[string]*entities.Order, lastTrimmable int) {
	rem := draft.TotalQty % draft.ArraySize
	if rem == 0 || lastTrimmable < 0 {
		return
	}
	entry := &draft.Composition[lastTrimmable]
	order := orders[entry.OrderID]
	if order != nil && order.Urgent {
		return
	}
	if entry.Qty <= rem {
		// Trimming would erase the entry; keep the partial array instead.
		return
	}
	entry.Qty -= rem
	draft.TotalQty -= rem
	draft.TrimmedQty = rem
}

// availabilityWalk tracks projected stock while the composer walks the
// priority-sorted list. An order's own soft claim is spent before free
// availability, mirroring what commit-time promotion will do.
type availabilityWalk struct {
	free map[entities.ComponentSKU]entities.Quantity
	soft map[string]map[entities.ComponentSKU]entities.Quantity // orderID -> sku -> qty
}

func (s *Service) newAvailabilityWalk(candidates []candidate) (*availabilityWalk, error) {
	w := &availabilityWalk{
		free: make(map[entities.ComponentSKU]entities.Quantity),
		soft: make(map[string]map[entities.ComponentSKU]entities.Quantity),
	}
	for _, c := range candidates {
		for sku := range c.item.Components {
			if _, seen := w.free[sku]; !seen {
				avail, err := s.ledger.Availability(sku)
				if err != nil {
					return nil, err
				}
				w.free[sku] = avail
			}
			if _, seen := w.soft[c.item.OrderID]; !seen {
				w.soft[c.item.OrderID] = make(map[entities.ComponentSKU]entities.Quantity)
			}
			if _, seen := w.soft[c.item.OrderID][sku]; !seen {
				held, err := s.ledger.OrderSoft(c.item.OrderID, sku)
				if err != nil {
					return nil, err
				}
				w.soft[c.item.OrderID][sku] = held
			}
		}
	}
	return w, nil
}

// buildable is the floor across required SKUs of coverable stock divided by
// per-unit usage, capped at the item's remaining requirement. Assembly is a
// single irreversible bonding step, so every unit needs 100% of its
// components at once; scarcity limits the unit count, never partial units.
func (w *availabilityWalk) buildable(li *entities.LineItem) entities.Quantity {
	qty := li.RemainingQty()
	for sku, per := range li.Components {
		coverable := w.free[sku] + w.soft[li.OrderID][sku]
		if limit := coverable / per; limit < qty {
			qty = limit
		}
	}
	if qty < 0 {
		return 0
	}
	return qty
}

// take consumes projected stock for qty units of the item
func (w *availabilityWalk) take(li *entities.LineItem, qty entities.Quantity) {
	for sku, per := range li.Components {
		need := per * qty
		fromSoft := w.soft[li.OrderID][sku]
		if fromSoft > need {
			fromSoft = need
		}
		w.soft[li.OrderID][sku] -= fromSoft
		w.free[sku] -= need - fromSoft
	}
}
