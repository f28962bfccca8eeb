package export

import (
	"strings"
	"testing"

	testhelpers "github.com/quadica/batchplan/pkg/application/services/testing"
	"github.com/quadica/batchplan/pkg/domain/entities"
)

func newTestExport(t *testing.T) (*Service, *testhelpers.Repos) {
	t.Helper()
	r := testhelpers.BuildSchedulerTestData()

	batch, err := entities.NewBatch("BATCH-1", "STAR-20MM", []entities.BatchEntry{
		{OrderID: "ORD-1001", LineItemID: "LI-1", CommittedQty: 2},
		{OrderID: "ORD-1002", LineItemID: "LI-2", CommittedQty: 1},
	}, testhelpers.Now)
	if err != nil {
		t.Fatalf("NewBatch failed: %v", err)
	}
	if err := r.Batches.SaveBatch(batch); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	type issue struct {
		serial     entities.UnitSerial
		orderID    string
		lineItemID string
	}
	for _, is := range []issue{
		{734212, "ORD-1001", "LI-1"},
		{18, "ORD-1001", "LI-1"},
		{402991, "ORD-1002", "LI-2"},
	} {
		unit, err := entities.NewManufacturedUnit(is.serial, "BATCH-1", is.orderID, is.lineItemID, testhelpers.Now)
		if err != nil {
			t.Fatalf("NewManufacturedUnit failed: %v", err)
		}
		if err := r.Units.Append(unit); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	return NewService(r.Batches, r.Orders, r.Units), r
}

func TestExport_Rows_IssueOrder(t *testing.T) {
	svc, _ := newTestExport(t)

	rows, err := svc.Rows("BATCH-1")
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	// Issue order, not numeric order: re-export reproduces the original
	// serial sequence exactly.
	wantSerials := []string{"00734212", "00000018", "00402991"}
	for i, row := range rows {
		if row.UnitSerial != wantSerials[i] {
			t.Errorf("Row %d: expected serial %s, got %s", i, wantSerials[i], row.UnitSerial)
		}
	}
	if rows[0].LineItemSKU != "STAR-W5700-25D" {
		t.Errorf("Expected the line item's design SKU, got %s", rows[0].LineItemSKU)
	}
	if rows[2].OrderID != "ORD-1002" {
		t.Errorf("Expected ORD-1002 on the last row, got %s", rows[2].OrderID)
	}
}

func TestExport_Rows_SkipsVoidedUnits(t *testing.T) {
	svc, r := newTestExport(t)

	if err := r.Units.Void(18); err != nil {
		t.Fatalf("Void failed: %v", err)
	}

	rows, err := svc.Rows("BATCH-1")
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows after voiding one unit, got %d", len(rows))
	}
	for _, row := range rows {
		if row.UnitSerial == "00000018" {
			t.Error("Expected the voided serial to be excluded")
		}
	}
}

func TestExport_RowsByOrder_SpansBatches(t *testing.T) {
	svc, r := newTestExport(t)

	// A later batch adds one more unit for the same order.
	batch2, err := entities.NewBatch("BATCH-2", "STAR-20MM", []entities.BatchEntry{
		{OrderID: "ORD-1001", LineItemID: "LI-1", CommittedQty: 1},
	}, testhelpers.Now)
	if err != nil {
		t.Fatalf("NewBatch failed: %v", err)
	}
	if err := r.Batches.SaveBatch(batch2); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}
	unit, err := entities.NewManufacturedUnit(551, "BATCH-2", "ORD-1001", "LI-1", testhelpers.Now)
	if err != nil {
		t.Fatalf("NewManufacturedUnit failed: %v", err)
	}
	if err := r.Units.Append(unit); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rows, err := svc.RowsByOrder("ORD-1001")
	if err != nil {
		t.Fatalf("RowsByOrder failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows across batches, got %d", len(rows))
	}
	wantBatches := []string{"BATCH-1", "BATCH-1", "BATCH-2"}
	for i, row := range rows {
		if row.BatchID != wantBatches[i] {
			t.Errorf("Row %d: expected batch %s, got %s", i, wantBatches[i], row.BatchID)
		}
		if row.OrderID != "ORD-1001" {
			t.Errorf("Row %d: expected ORD-1001, got %s", i, row.OrderID)
		}
	}
	if rows[2].UnitSerial != "00000551" {
		t.Errorf("Expected the later batch's serial last, got %s", rows[2].UnitSerial)
	}
}

func TestExport_RowsByOrder_UnknownOrder(t *testing.T) {
	svc, _ := newTestExport(t)
	if _, err := svc.RowsByOrder("NO-SUCH-ORDER"); err == nil {
		t.Error("Expected error for unknown order")
	}
}

func TestExport_Lookup(t *testing.T) {
	svc, r := newTestExport(t)

	row, err := svc.Lookup(402991)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if row.BatchID != "BATCH-1" || row.OrderID != "ORD-1002" {
		t.Errorf("Expected BATCH-1/ORD-1002, got %s/%s", row.BatchID, row.OrderID)
	}
	if row.LineItemSKU != "STAR-W5700-CONN" {
		t.Errorf("Expected the line item's design SKU, got %s", row.LineItemSKU)
	}
	if row.UnitSerial != "00402991" {
		t.Errorf("Expected serial 00402991, got %s", row.UnitSerial)
	}

	// A voided unit still resolves; the serial stays on the physical part.
	if err := r.Units.Void(402991); err != nil {
		t.Fatalf("Void failed: %v", err)
	}
	if _, err := svc.Lookup(402991); err != nil {
		t.Errorf("Expected voided serial to resolve, got %v", err)
	}

	if _, err := svc.Lookup(999999); err == nil {
		t.Error("Expected error for a serial never issued")
	}
}

func TestExport_Rows_UnknownBatch(t *testing.T) {
	svc, _ := newTestExport(t)
	if _, err := svc.Rows("NO-SUCH-BATCH"); err == nil {
		t.Error("Expected error for unknown batch")
	}
}

func TestExport_WriteCSV(t *testing.T) {
	svc, _ := newTestExport(t)

	rows, err := svc.Rows("BATCH-1")
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}

	var buf strings.Builder
	if err := svc.WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d lines", len(lines))
	}
	if lines[0] != "batch_id,line_item_sku,order_id,unit_serial" {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if lines[1] != "BATCH-1,STAR-W5700-25D,ORD-1001,00734212" {
		t.Errorf("Unexpected first row: %s", lines[1])
	}
}
