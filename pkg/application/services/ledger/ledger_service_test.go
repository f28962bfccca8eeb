package ledger

import (
	"errors"
	"testing"

	testhelpers "github.com/quadica/batchplan/pkg/application/services/testing"
	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/infrastructure/events"
)

// newTestLedger wires a ledger over empty repositories with one component
func newTestLedger(t *testing.T, sku string, stock entities.Quantity) (*Service, *testhelpers.Repos) {
	t.Helper()
	r := testhelpers.NewRepos()
	if err := r.Components.SaveComponent(testhelpers.MustCreateComponent(sku, stock)); err != nil {
		t.Fatalf("Failed to seed component: %v", err)
	}
	svc := NewService(r.Components, r.Reservations, r.Orders, events.NewInMemoryEventStore(), nil, nil)
	return svc, r
}

func mustAvailability(t *testing.T, svc *Service, sku entities.ComponentSKU) entities.Quantity {
	t.Helper()
	avail, err := svc.Availability(sku)
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	return avail
}

func mustOrderSoft(t *testing.T, svc *Service, orderID string, sku entities.ComponentSKU) entities.Quantity {
	t.Helper()
	held, err := svc.OrderSoft(orderID, sku)
	if err != nil {
		t.Fatalf("OrderSoft failed: %v", err)
	}
	return held
}

func TestLedger_SoftReserve(t *testing.T) {
	svc, _ := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 80); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if got := mustAvailability(t, svc, "LED-W5700"); got != 20 {
		t.Errorf("Expected availability 20 after reserving 80 of 100, got %d", got)
	}
	if got := mustOrderSoft(t, svc, "ORD-A", "LED-W5700"); got != 80 {
		t.Errorf("Expected order to hold 80 soft, got %d", got)
	}

	// A second reserve merges into the same row.
	if err := svc.SoftReserve("ORD-A", "LED-W5700", 10); err != nil {
		t.Fatalf("Second SoftReserve failed: %v", err)
	}
	if got := mustOrderSoft(t, svc, "ORD-A", "LED-W5700"); got != 90 {
		t.Errorf("Expected merged soft claim 90, got %d", got)
	}
}

func TestLedger_ComponentReservations(t *testing.T) {
	svc, _ := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 50); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if err := svc.SoftReserve("ORD-B", "LED-W5700", 30); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if err := svc.PromoteToHard("ORD-A", "BATCH-1", "LED-W5700", 20); err != nil {
		t.Fatalf("PromoteToHard failed: %v", err)
	}

	rows, err := svc.ComponentReservations("LED-W5700")
	if err != nil {
		t.Fatalf("ComponentReservations failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows claiming the component, got %d", len(rows))
	}

	var softTotal, hardTotal entities.Quantity
	for _, row := range rows {
		switch row.Tier {
		case entities.Soft:
			softTotal += row.Qty
		case entities.Hard:
			hardTotal += row.Qty
			if row.BatchID != "BATCH-1" {
				t.Errorf("Expected hard row tied to BATCH-1, got %s", row.BatchID)
			}
		}
	}
	if softTotal != 60 || hardTotal != 20 {
		t.Errorf("Expected 60 soft and 20 hard claimed, got %d and %d", softTotal, hardTotal)
	}
}

func TestLedger_SoftReserve_InsufficientStock(t *testing.T) {
	svc, _ := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 80); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}

	err := svc.SoftReserve("ORD-B", "LED-W5700", 30)
	if err == nil {
		t.Fatal("Expected insufficient stock error, got none")
	}
	if !errors.Is(err, entities.ErrInsufficientStock) {
		t.Errorf("Expected ErrInsufficientStock, got %v", err)
	}

	// The failed attempt must leave nothing behind.
	if got := mustOrderSoft(t, svc, "ORD-B", "LED-W5700"); got != 0 {
		t.Errorf("Expected no claim for the rejected order, got %d", got)
	}
	if got := mustAvailability(t, svc, "LED-W5700"); got != 20 {
		t.Errorf("Expected availability unchanged at 20, got %d", got)
	}
}

func TestLedger_SoftReserve_RejectsNonPositive(t *testing.T) {
	svc, _ := newTestLedger(t, "LED-W5700", 100)
	if err := svc.SoftReserve("ORD-A", "LED-W5700", 0); err == nil {
		t.Error("Expected error for zero quantity")
	}
	if err := svc.SoftReserve("ORD-A", "LED-W5700", -5); err == nil {
		t.Error("Expected error for negative quantity")
	}
}

func TestLedger_ReleaseSoft(t *testing.T) {
	svc, _ := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 80); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if err := svc.ReleaseSoft("ORD-A", "LED-W5700", 30, "order change"); err != nil {
		t.Fatalf("ReleaseSoft failed: %v", err)
	}
	if got := mustOrderSoft(t, svc, "ORD-A", "LED-W5700"); got != 50 {
		t.Errorf("Expected 50 soft after release, got %d", got)
	}
	if got := mustAvailability(t, svc, "LED-W5700"); got != 50 {
		t.Errorf("Expected availability 50 after release, got %d", got)
	}

	err := svc.ReleaseSoft("ORD-A", "LED-W5700", 60, "too much")
	if !errors.Is(err, entities.ErrInsufficientSoftReservation) {
		t.Errorf("Expected ErrInsufficientSoftReservation, got %v", err)
	}
}

func TestLedger_PromoteToHard(t *testing.T) {
	svc, r := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 80); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if err := svc.PromoteToHard("ORD-A", "BATCH-1", "LED-W5700", 60); err != nil {
		t.Fatalf("PromoteToHard failed: %v", err)
	}

	// Promotion moves quantity between tiers; availability never changes.
	if got := mustAvailability(t, svc, "LED-W5700"); got != 20 {
		t.Errorf("Expected availability unchanged at 20, got %d", got)
	}
	if got := mustOrderSoft(t, svc, "ORD-A", "LED-W5700"); got != 20 {
		t.Errorf("Expected 20 soft left after promoting 60, got %d", got)
	}
	hard, err := r.Reservations.GetHardByBatch("BATCH-1")
	if err != nil {
		t.Fatalf("GetHardByBatch failed: %v", err)
	}
	if len(hard) != 1 || hard[0].Qty != 60 {
		t.Fatalf("Expected one hard row of 60, got %+v", hard)
	}

	err = svc.PromoteToHard("ORD-A", "BATCH-1", "LED-W5700", 30)
	if !errors.Is(err, entities.ErrInsufficientSoftReservation) {
		t.Errorf("Expected ErrInsufficientSoftReservation, got %v", err)
	}
}

func TestLedger_Reallocation(t *testing.T) {
	svc, _ := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 80); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}

	plan, err := svc.PreviewReallocation("ORD-A", "ORD-B", "LED-W5700", 30)
	if err != nil {
		t.Fatalf("PreviewReallocation failed: %v", err)
	}

	// Preview alone changes nothing.
	if got := mustOrderSoft(t, svc, "ORD-A", "LED-W5700"); got != 80 {
		t.Errorf("Expected preview to leave the donor at 80, got %d", got)
	}
	if len(plan.Impact) != 2 {
		t.Fatalf("Expected impact rows for both orders, got %d", len(plan.Impact))
	}
	if plan.Impact[0].SoftBefore != 80 || plan.Impact[0].SoftAfter != 50 {
		t.Errorf("Expected donor impact 80 -> 50, got %d -> %d",
			plan.Impact[0].SoftBefore, plan.Impact[0].SoftAfter)
	}
	if plan.Impact[1].SoftBefore != 0 || plan.Impact[1].SoftAfter != 30 {
		t.Errorf("Expected recipient impact 0 -> 30, got %d -> %d",
			plan.Impact[1].SoftBefore, plan.Impact[1].SoftAfter)
	}

	if err := svc.CommitReallocation(plan); err != nil {
		t.Fatalf("CommitReallocation failed: %v", err)
	}
	if got := mustOrderSoft(t, svc, "ORD-A", "LED-W5700"); got != 50 {
		t.Errorf("Expected donor at 50 after commit, got %d", got)
	}
	if got := mustOrderSoft(t, svc, "ORD-B", "LED-W5700"); got != 30 {
		t.Errorf("Expected recipient at 30 after commit, got %d", got)
	}
	if got := mustAvailability(t, svc, "LED-W5700"); got != 20 {
		t.Errorf("Expected availability unchanged at 20, got %d", got)
	}
}

func TestLedger_Reallocation_RefusesHardLockedSource(t *testing.T) {
	svc, _ := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 80); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if err := svc.PromoteToHard("ORD-A", "BATCH-1", "LED-W5700", 60); err != nil {
		t.Fatalf("PromoteToHard failed: %v", err)
	}

	// 20 soft remains; asking for 30 would have to break into the hard lock.
	_, err := svc.PreviewReallocation("ORD-A", "ORD-B", "LED-W5700", 30)
	if !errors.Is(err, entities.ErrComponentHardLocked) {
		t.Errorf("Expected ErrComponentHardLocked, got %v", err)
	}

	// Within the remaining soft claim the move is fine.
	if _, err := svc.PreviewReallocation("ORD-A", "ORD-B", "LED-W5700", 20); err != nil {
		t.Errorf("Expected reallocation within soft claim to preview, got %v", err)
	}
}

func TestLedger_Reallocation_InsufficientSoft(t *testing.T) {
	svc, _ := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 20); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}

	// No hard locks involved, so the plain insufficiency error applies.
	_, err := svc.PreviewReallocation("ORD-A", "ORD-B", "LED-W5700", 30)
	if !errors.Is(err, entities.ErrInsufficientSoftReservation) {
		t.Errorf("Expected ErrInsufficientSoftReservation, got %v", err)
	}

	if _, err := svc.PreviewReallocation("ORD-A", "ORD-A", "LED-W5700", 10); err == nil {
		t.Error("Expected error for self-reallocation")
	}
	if err := svc.CommitReallocation(nil); err == nil {
		t.Error("Expected error for nil plan")
	}
}

func TestLedger_ReleaseHard_Completed(t *testing.T) {
	svc, r := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 80); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if err := svc.PromoteToHard("ORD-A", "BATCH-1", "LED-W5700", 80); err != nil {
		t.Fatalf("PromoteToHard failed: %v", err)
	}
	if err := svc.ReleaseHard("BATCH-1", true); err != nil {
		t.Fatalf("ReleaseHard failed: %v", err)
	}

	// Completion consumes the components: physical stock drops with the
	// lock, so availability is unchanged.
	comp, err := r.Components.GetComponent("LED-W5700")
	if err != nil {
		t.Fatalf("GetComponent failed: %v", err)
	}
	if comp.PhysicalStock != 20 {
		t.Errorf("Expected physical stock 20 after consuming 80, got %d", comp.PhysicalStock)
	}
	if comp.HardLocked != 0 {
		t.Errorf("Expected no hard locks, got %d", comp.HardLocked)
	}
	if got := mustAvailability(t, svc, "LED-W5700"); got != 20 {
		t.Errorf("Expected availability unchanged at 20, got %d", got)
	}
}

func TestLedger_ReleaseHard_Cancelled(t *testing.T) {
	svc, r := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 80); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if err := svc.PromoteToHard("ORD-A", "BATCH-1", "LED-W5700", 80); err != nil {
		t.Fatalf("PromoteToHard failed: %v", err)
	}
	if err := svc.ReleaseHard("BATCH-1", false); err != nil {
		t.Fatalf("ReleaseHard failed: %v", err)
	}

	// Cancellation returns the quantity to the originating order's soft tier.
	if got := mustOrderSoft(t, svc, "ORD-A", "LED-W5700"); got != 80 {
		t.Errorf("Expected soft claim restored to 80, got %d", got)
	}
	comp, err := r.Components.GetComponent("LED-W5700")
	if err != nil {
		t.Fatalf("GetComponent failed: %v", err)
	}
	if comp.PhysicalStock != 100 || comp.HardLocked != 0 {
		t.Errorf("Expected stock 100 and no hard locks, got stock=%d hard=%d",
			comp.PhysicalStock, comp.HardLocked)
	}
}

func TestLedger_DemoteHard(t *testing.T) {
	svc, _ := newTestLedger(t, "LED-W5700", 100)

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 80); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if err := svc.PromoteToHard("ORD-A", "BATCH-1", "LED-W5700", 60); err != nil {
		t.Fatalf("PromoteToHard failed: %v", err)
	}
	if err := svc.DemoteHard("BATCH-1", "ORD-A", "LED-W5700", 25); err != nil {
		t.Fatalf("DemoteHard failed: %v", err)
	}

	if got := mustOrderSoft(t, svc, "ORD-A", "LED-W5700"); got != 45 {
		t.Errorf("Expected 45 soft after demoting 25, got %d", got)
	}
	if got := mustAvailability(t, svc, "LED-W5700"); got != 20 {
		t.Errorf("Expected availability unchanged at 20, got %d", got)
	}

	if err := svc.DemoteHard("BATCH-1", "ORD-A", "LED-W5700", 100); err == nil {
		t.Error("Expected error demoting more than the hard lock holds")
	}
}

func TestLedger_ReleaseAllSoft(t *testing.T) {
	svc, r := newTestLedger(t, "LED-W5700", 100)
	if err := r.Components.SaveComponent(testhelpers.MustCreateComponent("LENS-25D", 50)); err != nil {
		t.Fatalf("Failed to seed component: %v", err)
	}

	if err := svc.SoftReserve("ORD-A", "LED-W5700", 40); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if err := svc.SoftReserve("ORD-A", "LENS-25D", 10); err != nil {
		t.Fatalf("SoftReserve failed: %v", err)
	}
	if err := svc.ReleaseAllSoft("ORD-A", "order complete"); err != nil {
		t.Fatalf("ReleaseAllSoft failed: %v", err)
	}

	if got := mustOrderSoft(t, svc, "ORD-A", "LED-W5700"); got != 0 {
		t.Errorf("Expected no LED claim left, got %d", got)
	}
	if got := mustAvailability(t, svc, "LENS-25D"); got != 50 {
		t.Errorf("Expected full lens availability back, got %d", got)
	}
}
