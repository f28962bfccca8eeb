package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/quadica/batchplan/pkg/application/services/ledger"
	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/infrastructure/repositories/memory"
)

// generateOutput renders a composed (and maybe committed) batch
func generateOutput(
	w io.Writer,
	format string,
	draft *entities.BatchDraft,
	batch *entities.Batch,
	serials []entities.UnitSerial,
	components *memory.ComponentRepository,
	ledgerSvc *ledger.Service,
) error {
	switch format {
	case "text":
		return generateTextOutput(w, draft, batch, serials, components, ledgerSvc)
	case "json":
		return generateJSONOutput(w, draft, batch, serials)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// generateTextOutput generates human-readable text output
func generateTextOutput(
	w io.Writer,
	draft *entities.BatchDraft,
	batch *entities.Batch,
	serials []entities.UnitSerial,
	components *memory.ComponentRepository,
	ledgerSvc *ledger.Service,
) error {
	var output string

	output += "═══════════════════════════════════════════════════════════════\n"
	output += "                    BATCH COMPOSITION RESULTS\n"
	output += "═══════════════════════════════════════════════════════════════\n\n"

	output += fmt.Sprintf("📊 SUMMARY\n")
	output += fmt.Sprintf("  Base Type: %s\n", draft.BaseType)
	output += fmt.Sprintf("  Total Units: %d\n", draft.TotalQty)
	output += fmt.Sprintf("  Arrays: %d x %d", draft.ArrayCount, draft.ArraySize)
	if draft.PartialArrayRemainder > 0 {
		output += fmt.Sprintf(" + partial array of %d", draft.PartialArrayRemainder)
	}
	output += "\n"
	if draft.TrimmedQty > 0 {
		output += fmt.Sprintf("  Trimmed for Alignment: %d\n", draft.TrimmedQty)
	}
	output += "\n"

	if len(draft.Composition) > 0 {
		output += "📝 COMPOSITION\n"
		output += "────────────────────────────────────────────────────────────────\n"
		for _, entry := range draft.Composition {
			output += fmt.Sprintf("Order: %-14s Item: %-12s Qty: %6d  Tier: %s\n",
				entry.OrderID, entry.LineItemID, entry.Qty, entry.Tier.String())
		}
		output += "\n"
	}

	if batch != nil {
		output += "🔒 COMMITTED BATCH\n"
		output += "────────────────────────────────────────────────────────────────\n"
		output += fmt.Sprintf("  Batch ID: %s\n", batch.ID)
		output += fmt.Sprintf("  Status: %s\n", batch.Status.String())
		output += fmt.Sprintf("  Committed Units: %d\n", batch.TotalQty())
		output += fmt.Sprintf("  Serials Issued: %d", len(serials))
		if len(serials) > 0 {
			output += fmt.Sprintf(" (%s .. %s in issue order)",
				serials[0].String(), serials[len(serials)-1].String())
		}
		output += "\n\n"
	}

	all, err := components.GetAllComponents()
	if err != nil {
		return err
	}
	output += "📦 COMPONENT LEDGER\n"
	output += "────────────────────────────────────────────────────────────────\n"
	for _, c := range all {
		output += fmt.Sprintf("SKU: %-16s Stock: %8d  Soft: %8d  Hard: %8d  Free: %8d\n",
			c.SKU, c.PhysicalStock, c.SoftReserved, c.HardLocked, c.Availability())
		rows, err := ledgerSvc.ComponentReservations(c.SKU)
		if err != nil {
			return err
		}
		for _, res := range rows {
			holder := fmt.Sprintf("order %s", res.OrderID)
			if res.Tier == entities.Hard {
				holder = fmt.Sprintf("batch %s (order %s)", res.BatchID, res.OrderID)
			}
			output += fmt.Sprintf("    %-4s %6d held by %s\n", res.Tier.String(), res.Qty, holder)
		}
	}

	_, err = fmt.Fprint(w, output)
	return err
}

// jsonOutput is the JSON output document
type jsonOutput struct {
	Draft   *entities.BatchDraft `json:"draft"`
	Batch   *entities.Batch      `json:"batch,omitempty"`
	Serials []string             `json:"serials,omitempty"`
}

// generateJSONOutput generates machine-readable JSON output
func generateJSONOutput(
	w io.Writer,
	draft *entities.BatchDraft,
	batch *entities.Batch,
	serials []entities.UnitSerial,
) error {
	doc := jsonOutput{Draft: draft, Batch: batch}
	for _, s := range serials {
		doc.Serials = append(doc.Serials, s.String())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
