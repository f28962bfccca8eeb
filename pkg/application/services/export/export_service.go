// Package export produces the production-floor hand-off rows for a
// committed batch. The engraver consumes one row per physical unit; rows
// come from the stored unit log, so re-exporting a batch reproduces exactly
// the serials issued at commit, never new ones.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
)

// Row is one engraving work instruction
type Row struct {
	BatchID     string
	LineItemSKU string
	OrderID     string
	UnitSerial  string
}

// Service builds deterministic export listings for committed batches
type Service struct {
	batches repositories.BatchRepository
	orders  repositories.OrderRepository
	units   repositories.UnitRepository
}

// NewService creates an export service
func NewService(
	batches repositories.BatchRepository,
	orders repositories.OrderRepository,
	units repositories.UnitRepository,
) *Service {
	return &Service{
		batches: batches,
		orders:  orders,
		units:   units,
	}
}

// Rows lists a batch's units in original issue order. Voided units are
// excluded; their serials stay retired but nothing gets engraved.
func (s *Service) Rows(batchID string) ([]Row, error) {
	if _, err := s.batches.GetBatch(batchID); err != nil {
		return nil, err
	}

	batchUnits, err := s.units.GetByBatch(batchID)
	if err != nil {
		return nil, err
	}
	if len(batchUnits) == 0 {
		return nil, fmt.Errorf("batch %s has no units to export", batchID)
	}

	skuByItem := make(map[string]string)
	rows := make([]Row, 0, len(batchUnits))
	for _, u := range batchUnits {
		if u.Voided {
			continue
		}
		sku, cached := skuByItem[u.LineItemID]
		if !cached {
			li, err := s.orders.GetLineItem(u.LineItemID)
			if err != nil {
				return nil, err
			}
			sku = li.SKU
			skuByItem[u.LineItemID] = sku
		}
		rows = append(rows, Row{
			BatchID:     u.BatchID,
			LineItemSKU: sku,
			OrderID:     u.OrderID,
			UnitSerial:  u.Serial.String(),
		})
	}
	return rows, nil
}

// RowsByOrder lists an order's units across every batch, in original issue
// order. Voided units are excluded, matching Rows.
func (s *Service) RowsByOrder(orderID string) ([]Row, error) {
	if _, err := s.orders.GetOrder(orderID); err != nil {
		return nil, err
	}

	orderUnits, err := s.units.GetByOrder(orderID)
	if err != nil {
		return nil, err
	}

	skuByItem := make(map[string]string)
	rows := make([]Row, 0, len(orderUnits))
	for _, u := range orderUnits {
		if u.Voided {
			continue
		}
		sku, cached := skuByItem[u.LineItemID]
		if !cached {
			li, err := s.orders.GetLineItem(u.LineItemID)
			if err != nil {
				return nil, err
			}
			sku = li.SKU
			skuByItem[u.LineItemID] = sku
		}
		rows = append(rows, Row{
			BatchID:     u.BatchID,
			LineItemSKU: sku,
			OrderID:     u.OrderID,
			UnitSerial:  u.Serial.String(),
		})
	}
	return rows, nil
}

// Lookup resolves one engraved serial back to its row. Voided units still
// resolve: the serial is on the physical unit whether or not it shipped.
func (s *Service) Lookup(serial entities.UnitSerial) (Row, error) {
	u, err := s.units.GetBySerial(serial)
	if err != nil {
		return Row{}, err
	}
	li, err := s.orders.GetLineItem(u.LineItemID)
	if err != nil {
		return Row{}, err
	}
	return Row{
		BatchID:     u.BatchID,
		LineItemSKU: li.SKU,
		OrderID:     u.OrderID,
		UnitSerial:  u.Serial.String(),
	}, nil
}

// WriteCSV renders rows in the engraver's expected column order
func (s *Service) WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"batch_id", "line_item_sku", "order_id", "unit_serial"}); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.BatchID, r.LineItemSKU, r.OrderID, r.UnitSerial}); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
