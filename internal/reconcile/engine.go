// Package reconcile synchronizes the canonical product store with a
// spreadsheet export. Incoming rows are matched to existing rows by item code;
// matched rows are updated in place (preserving uploaded image references),
// unmatched rows are inserted, and rows without an item code are skipped.
package reconcile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"github.com/centremart/catalog-service/internal/mapper"
	"github.com/centremart/catalog-service/internal/model"
	"github.com/centremart/catalog-service/internal/repository"
	"github.com/google/uuid"
)

// DefaultBatchSize is the number of rows written per transaction.
const DefaultBatchSize = 500

// keyPageSize is the page size used while building the item-code index.
const keyPageSize = 1000

// Options tune a reconciliation run.
type Options struct {
	// BatchSize caps rows per transaction; DefaultBatchSize when <= 0.
	BatchSize int
	// OnProgress, when set, is called after each committed batch with the
	// number of rows written so far and the total to be written.
	OnProgress func(completed, total int)
}

// Summary reports the outcome of a reconciliation run.
type Summary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// Engine reconciles spreadsheet exports against a product store.
type Engine struct {
	store repository.ProductStore
}

// NewEngine creates a new reconciliation engine.
func NewEngine(store repository.ProductStore) *Engine {
	return &Engine{store: store}
}

// Reconcile parses a CSV export and applies it to the store. Within one run a
// repeated item code is last-wins. Each batch commits or rolls back as a unit;
// batches already committed before a failure stay committed.
func (e *Engine) Reconcile(ctx context.Context, r io.Reader, opts Options) (Summary, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var summary Summary

	rows, err := parseCSV(r)
	if err != nil {
		return summary, fmt.Errorf("failed to parse csv: %w", err)
	}

	// Last-wins de-duplication by item code. Keyless rows cannot be matched
	// or safely re-imported, so they are counted and dropped.
	byCode := make(map[string]*model.Product, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		product := mapper.SanitizeRow(row)
		if product.ItemCode == "" {
			summary.Skipped++
			slog.Warn("skipping row without item code", slog.String("description", product.Description))
			continue
		}
		if _, ok := byCode[product.ItemCode]; !ok {
			order = append(order, product.ItemCode)
		}
		byCode[product.ItemCode] = product
	}

	idByCode, err := e.buildKeyIndex(ctx)
	if err != nil {
		return summary, err
	}

	var inserts, updates []*model.Product
	for _, code := range order {
		product := byCode[code]
		if id, ok := idByCode[code]; ok {
			product.ID = id
			updates = append(updates, product)
		} else {
			inserts = append(inserts, product)
		}
	}

	summary.Total = len(inserts) + len(updates)
	completed := 0
	progress := func(n int) {
		completed += n
		if opts.OnProgress != nil {
			opts.OnProgress(completed, summary.Total)
		}
	}

	for _, batch := range partition(inserts, batchSize) {
		if err := e.store.WithinTransaction(ctx, func(store repository.ProductStore) error {
			return store.BatchInsert(ctx, batch)
		}); err != nil {
			return summary, fmt.Errorf("failed to insert batch: %w", err)
		}
		summary.Inserted += len(batch)
		progress(len(batch))
	}

	for _, batch := range partition(updates, batchSize) {
		if err := e.applyUpdateBatch(ctx, batch); err != nil {
			return summary, err
		}
		summary.Updated += len(batch)
		progress(len(batch))
	}

	slog.Info("reconciliation finished",
		slog.Int("inserted", summary.Inserted),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("total", summary.Total))

	return summary, nil
}

// applyUpdateBatch re-reads the image references for the batch and carries
// them onto the incoming rows before writing, so a spreadsheet import never
// clobbers images uploaded through the API.
func (e *Engine) applyUpdateBatch(ctx context.Context, batch []*model.Product) error {
	ids := make([]uuid.UUID, len(batch))
	for i, product := range batch {
		ids[i] = product.ID
	}

	refs, err := e.store.ProtectedFields(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load protected fields: %w", err)
	}
	for _, product := range batch {
		if ref, ok := refs[product.ID]; ok {
			product.ImageURL = ref.ImageURL
			product.ImageURLs = ref.ImageURLs
		}
	}

	if err := e.store.WithinTransaction(ctx, func(store repository.ProductStore) error {
		return store.BatchUpdate(ctx, batch)
	}); err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	return nil
}

// buildKeyIndex pages the store's (id, item code) pairs into a lookup map.
// Rows with an empty item code are unmatchable and excluded.
func (e *Engine) buildKeyIndex(ctx context.Context) (map[string]uuid.UUID, error) {
	index := make(map[string]uuid.UUID)
	after := uuid.Nil
	for {
		page, err := e.store.KeyPage(ctx, after, keyPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to page product keys: %w", err)
		}
		for _, key := range page {
			if key.ItemCode != "" {
				index[key.ItemCode] = key.ID
			}
		}
		if len(page) < keyPageSize {
			return index, nil
		}
		after = page[len(page)-1].ID
	}
}

// parseCSV reads a header row followed by data rows into header->cell maps.
// Short rows leave trailing columns absent rather than failing the run.
func parseCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			row[header[i]] = cell
		}
		rows = append(rows, row)
	}
}

func partition(products []*model.Product, size int) [][]*model.Product {
	var batches [][]*model.Product
	for start := 0; start < len(products); start += size {
		end := start + size
		if end > len(products) {
			end = len(products)
		}
		batches = append(batches, products[start:end])
	}
	return batches
}
