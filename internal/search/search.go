// Package search filters and orders cached catalog records for storefront
// queries. All operations work on in-memory record slices and never touch
// the canonical store.
package search

import (
	"sort"
	"strings"

	"github.com/centremart/catalog-service/internal/mapper"
)

// Stock status levels served to the storefront.
const (
	StatusInStock    = "in_stock"
	StatusLowStock   = "low_stock"
	StatusOutOfStock = "out_of_stock"

	// LowStockThreshold is the stock level at or below which an in-stock
	// product is flagged as running low.
	LowStockThreshold = 2
)

// Filter narrows a record set. Nil range bounds are open ends; zero-value
// text fields match everything.
type Filter struct {
	Query     string
	Category  string
	MinPrice  *float64
	MaxPrice  *float64
	MinStock  *float64
	MaxStock  *float64
	MinMargin *float64
	MaxMargin *float64
	InStock   bool
}

// Match returns the records whose name, item code, category or supplier
// contains the query, case-insensitively. An empty query matches everything.
func Match(records []mapper.Record, query string) []mapper.Record {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return records
	}

	out := []mapper.Record{}
	for _, record := range records {
		if matches(record, query) {
			out = append(out, record)
		}
	}
	return out
}

// Apply returns the records passing every populated filter field.
func Apply(records []mapper.Record, filter Filter) []mapper.Record {
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	out := []mapper.Record{}
	for _, record := range records {
		if query != "" && !matches(record, query) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(record.Category, filter.Category) {
			continue
		}
		if !inRange(record.Price, filter.MinPrice, filter.MaxPrice) {
			continue
		}
		if !inRange(record.Stock, filter.MinStock, filter.MaxStock) {
			continue
		}
		if !inRange(record.Margin, filter.MinMargin, filter.MaxMargin) {
			continue
		}
		if filter.InStock && record.Stock <= 0 {
			continue
		}
		out = append(out, record)
	}
	return out
}

// StockStatus classifies a stock level.
func StockStatus(stock float64) string {
	switch {
	case stock <= 0:
		return StatusOutOfStock
	case stock <= LowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// SortByAvailability orders records in-stock first, then by name. The sort
// is stable so equal records keep their cached order.
func SortByAvailability(records []mapper.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].InStock != records[j].InStock {
			return records[i].InStock
		}
		return strings.ToLower(records[i].Name) < strings.ToLower(records[j].Name)
	})
}

func matches(record mapper.Record, query string) bool {
	for _, field := range []string{record.Name, record.ItemCode, record.Category, record.SupplierName} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func inRange(v float64, min, max *float64) bool {
	if min != nil && v < *min {
		return false
	}
	if max != nil && v > *max {
		return false
	}
	return true
}
