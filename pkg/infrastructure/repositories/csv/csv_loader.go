// Package csv loads scheduler snapshots from the CSV files the order and
// stock sources drop on the shared drive.
package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quadica/batchplan/pkg/domain/entities"
)

// Loader handles loading scheduler data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

const dateLayout = "2006-01-02"

// LoadComponents loads component stock from a CSV file
func (l *Loader) LoadComponents(filename string) ([]*entities.Component, error) {
	records, err := readAll(filename, "components")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"sku", "description", "physical_stock"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("components CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var components []*entities.Component
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("components CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}
		stock, err := strconv.ParseInt(record[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("components CSV row %d: invalid physical_stock %q: %w", i+2, record[2], err)
		}
		component, err := entities.NewComponent(entities.ComponentSKU(record[0]), record[1], entities.Quantity(stock))
		if err != nil {
			return nil, fmt.Errorf("components CSV row %d: %w", i+2, err)
		}
		components = append(components, component)
	}
	return components, nil
}

// LoadOrders loads orders with their ranking inputs from a CSV file
func (l *Loader) LoadOrders(filename string) ([]*entities.Order, error) {
	records, err := readAll(filename, "orders")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"order_id", "customer", "override", "expedite_fee", "promise_date", "created_date", "urgent", "status"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("orders CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var orders []*entities.Order
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("orders CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}
		order, err := parseOrder(record)
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: %w", i+2, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func parseOrder(record []string) (*entities.Order, error) {
	promiseDate, err := time.Parse(dateLayout, record[4])
	if err != nil {
		return nil, fmt.Errorf("invalid promise_date %q: %w", record[4], err)
	}
	createdDate, err := time.Parse(dateLayout, record[5])
	if err != nil {
		return nil, fmt.Errorf("invalid created_date %q: %w", record[5], err)
	}

	order, err := entities.NewOrder(record[0], record[1], promiseDate, createdDate)
	if err != nil {
		return nil, err
	}

	if record[2] != "" {
		override, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("invalid override %q: %w", record[2], err)
		}
		order.SetOverride(override)
	}
	if record[3] != "" {
		fee, err := decimal.NewFromString(record[3])
		if err != nil {
			return nil, fmt.Errorf("invalid expedite_fee %q: %w", record[3], err)
		}
		if fee.IsNegative() {
			return nil, fmt.Errorf("expedite_fee cannot be negative, got %s", fee)
		}
		order.ExpediteFee = fee
	}
	order.Urgent = strings.EqualFold(record[6], "true") || record[6] == "1"

	status, err := parseOrderStatus(record[7])
	if err != nil {
		return nil, err
	}
	order.Status = status
	return order, nil
}

func parseOrderStatus(raw string) (entities.OrderStatus, error) {
	switch strings.ToLower(raw) {
	case "", "pending":
		return entities.OrderPending, nil
	case "eligible":
		return entities.OrderEligible, nil
	case "onhold", "on_hold":
		return entities.OrderOnHold, nil
	case "partiallycomplete", "partially_complete":
		return entities.OrderPartiallyComplete, nil
	case "complete":
		return entities.OrderComplete, nil
	case "cancelled":
		return entities.OrderCancelled, nil
	default:
		return 0, fmt.Errorf("unknown order status %q", raw)
	}
}

// LoadLineItems loads line items and their component usage. The usage file
// has one row per line item and component, BOM style.
func (l *Loader) LoadLineItems(itemsFile, usageFile string) ([]*entities.LineItem, error) {
	usage, err := l.loadUsage(usageFile)
	if err != nil {
		return nil, err
	}

	records, err := readAll(itemsFile, "line items")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"line_item_id", "order_id", "sku", "base_type", "required_qty"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("line items CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var items []*entities.LineItem
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("line items CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}
		required, err := strconv.ParseInt(record[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line items CSV row %d: invalid required_qty %q: %w", i+2, record[4], err)
		}
		components, ok := usage[record[0]]
		if !ok {
			return nil, fmt.Errorf("line items CSV row %d: line item %s has no component usage rows", i+2, record[0])
		}
		item, err := entities.NewLineItem(record[0], record[1], record[2], record[3], components, entities.Quantity(required), i)
		if err != nil {
			return nil, fmt.Errorf("line items CSV row %d: %w", i+2, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// loadUsage reads the per-line-item component usage rows
func (l *Loader) loadUsage(filename string) (map[string]map[entities.ComponentSKU]entities.Quantity, error) {
	records, err := readAll(filename, "component usage")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"line_item_id", "component_sku", "qty_per_unit"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("component usage CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	usage := make(map[string]map[entities.ComponentSKU]entities.Quantity)
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("component usage CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}
		qty, err := strconv.ParseInt(record[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("component usage CSV row %d: invalid qty_per_unit %q: %w", i+2, record[2], err)
		}
		if qty <= 0 {
			return nil, fmt.Errorf("component usage CSV row %d: qty_per_unit must be positive, got %d", i+2, qty)
		}
		sku := entities.ComponentSKU(record[1])
		if usage[record[0]] == nil {
			usage[record[0]] = make(map[entities.ComponentSKU]entities.Quantity)
		}
		if _, dup := usage[record[0]][sku]; dup {
			return nil, fmt.Errorf("component usage CSV row %d: duplicate component %s for line item %s", i+2, sku, record[0])
		}
		usage[record[0]][sku] = entities.Quantity(qty)
	}
	return usage, nil
}

func readAll(filename, kind string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}
	return records, nil
}

func validateHeader(header, expected []string) bool {
	if len(header) != len(expected) {
		return false
	}
	for i, h := range header {
		if strings.TrimSpace(strings.ToLower(h)) != expected[i] {
			return false
		}
	}
	return true
}
