package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/centremart/catalog-service/internal/mapper"
	"github.com/centremart/catalog-service/internal/model"
	"github.com/google/uuid"
)

// DefaultPageSize is the number of products read per page while building a
// snapshot document.
const DefaultPageSize = 1000

// ProductPager pages product rows by ascending id. A short page ends the scan.
type ProductPager interface {
	PageByID(ctx context.Context, after uuid.UUID, limit int) ([]*model.Product, error)
}

// Result describes a published snapshot.
type Result struct {
	Version  int64  `json:"version"`
	Location string `json:"location"`
	Total    int    `json:"total"`
}

// Publisher builds snapshot documents from the product store and publishes
// them through a snapshot store.
type Publisher struct {
	products ProductPager
	snaps    *Store
	pageSize int
	now      func() time.Time
}

// NewPublisher creates a publisher with the default page size.
func NewPublisher(products ProductPager, snaps *Store) *Publisher {
	return &Publisher{
		products: products,
		snaps:    snaps,
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
}

// Publish reads the full product store, writes a new immutable document, then
// swings the pointer to it. The pointer moves only after the document write
// succeeds, and it records the previously current version.
func (p *Publisher) Publish(ctx context.Context) (*Result, error) {
	products, err := p.collect(ctx)
	if err != nil {
		return nil, err
	}

	createdAt := p.now().UTC()
	doc := &Document{
		Version:   createdAt.UnixMilli(),
		CreatedAt: createdAt,
		Total:     len(products),
		Products:  products,
	}

	if err := p.snaps.WriteDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to publish snapshot %d: %w", doc.Version, err)
	}

	ptr := &Pointer{
		Version:   doc.Version,
		Location:  DocumentKey(doc.Version),
		Total:     doc.Total,
		CreatedAt: doc.CreatedAt,
	}
	if prev, err := p.snaps.Pointer(ctx); err == nil {
		ptr.Previous = &PointerRef{Version: prev.Version, Location: prev.Location}
	} else if !errors.Is(err, ErrNoSnapshot) {
		return nil, fmt.Errorf("failed to read current pointer: %w", err)
	}

	if err := p.snaps.SetPointer(ctx, ptr); err != nil {
		return nil, err
	}

	slog.Info("snapshot published",
		slog.Int64("version", doc.Version),
		slog.Int("total", doc.Total))

	return &Result{Version: doc.Version, Location: ptr.Location, Total: doc.Total}, nil
}

func (p *Publisher) collect(ctx context.Context) ([]mapper.Raw, error) {
	products := []mapper.Raw{}
	after := uuid.Nil
	for {
		page, err := p.products.PageByID(ctx, after, p.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to page products: %w", err)
		}
		for _, product := range page {
			products = append(products, mapper.ToRaw(product))
		}
		if len(page) < p.pageSize {
			return products, nil
		}
		after = page[len(page)-1].ID
	}
}
