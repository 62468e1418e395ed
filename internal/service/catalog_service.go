package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/centremart/catalog-service/internal/metrics"
	"github.com/centremart/catalog-service/internal/model"
	"github.com/centremart/catalog-service/internal/reconcile"
	"github.com/centremart/catalog-service/internal/repository"
	reposql "github.com/centremart/catalog-service/internal/repository/sql"
	"github.com/centremart/catalog-service/internal/snapshot"
	"github.com/centremart/catalog-service/internal/sqs"
	"github.com/google/uuid"
)

// CatalogService coordinates catalog writes: spreadsheet reconciliation,
// snapshot publication and image reference management. Downstream
// notifications go through the outbox, never directly to SQS.
type CatalogService struct {
	products  repository.ProductStore
	events    repository.EventStore
	engine    *reconcile.Engine
	publisher *snapshot.Publisher
	snaps     *snapshot.Store
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	products repository.ProductStore,
	events repository.EventStore,
	publisher *snapshot.Publisher,
	snaps *snapshot.Store,
) *CatalogService {
	return &CatalogService{
		products:  products,
		events:    events,
		engine:    reconcile.NewEngine(products),
		publisher: publisher,
		snaps:     snaps,
	}
}

// ImportCSV reconciles a spreadsheet export against the product store and
// records the outcome in the outbox.
func (cs *CatalogService) ImportCSV(ctx context.Context, r io.Reader, opts reconcile.Options) (reconcile.Summary, error) {
	summary, err := cs.engine.Reconcile(ctx, r, opts)
	if err != nil {
		return summary, err
	}

	metrics.RowsInserted.Add(float64(summary.Inserted))
	metrics.RowsUpdated.Add(float64(summary.Updated))
	metrics.RowsSkipped.Add(float64(summary.Skipped))

	cs.recordEvent(ctx, model.EventTypeCatalogReconciled, sqs.CatalogMessage{
		Action:   sqs.ActionCatalogReconciled,
		Inserted: summary.Inserted,
		Updated:  summary.Updated,
		Skipped:  summary.Skipped,
		Total:    summary.Total,
	})

	return summary, nil
}

// PublishSnapshot publishes a new catalog snapshot and records the outcome
// in the outbox.
func (cs *CatalogService) PublishSnapshot(ctx context.Context) (*snapshot.Result, error) {
	result, err := cs.publisher.Publish(ctx)
	if err != nil {
		return nil, err
	}

	metrics.SnapshotsPublished.Inc()

	cs.recordEvent(ctx, model.EventTypeSnapshotPublished, sqs.CatalogMessage{
		Action:  sqs.ActionSnapshotPublished,
		Version: result.Version,
		Total:   result.Total,
	})

	return result, nil
}

// CurrentSnapshot returns the pointer and document of the current snapshot.
func (cs *CatalogService) CurrentSnapshot(ctx context.Context) (*snapshot.Pointer, *snapshot.Document, error) {
	ptr, err := cs.snaps.Pointer(ctx)
	if err != nil {
		return nil, nil, err
	}
	doc, err := cs.snaps.ReadDocument(ctx, ptr.Version)
	if err != nil {
		return nil, nil, err
	}
	return ptr, doc, nil
}

// ListProducts lists canonical product rows.
func (cs *CatalogService) ListProducts(ctx context.Context, query repository.Query) ([]*model.Product, error) {
	return cs.products.List(ctx, query)
}

// GetProduct fetches one canonical product row.
func (cs *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return cs.products.FindByID(ctx, id)
}

// AddImageReference attaches an image URL to a product. The first reference
// becomes the primary image.
func (cs *CatalogService) AddImageReference(ctx context.Context, id uuid.UUID, url string) error {
	return cs.products.AddImageReference(ctx, id, url)
}

// RemoveImageReference detaches an image URL from a product. It reports
// whether the reference was present.
func (cs *CatalogService) RemoveImageReference(ctx context.Context, id uuid.UUID, url string) (bool, error) {
	return cs.products.RemoveImageReference(ctx, id, url)
}

// recordEvent writes an outbox event. Failures are logged, not returned: the
// catalog change already committed and must not be rolled back by a
// notification problem.
func (cs *CatalogService) recordEvent(ctx context.Context, eventType string, msg sqs.CatalogMessage) {
	if cs.events == nil {
		return
	}
	event, err := reposql.NewEvent(eventType, msg)
	if err != nil {
		slog.Error("Failed to build outbox event", slog.Any("err", err), slog.String("event_type", eventType))
		return
	}
	if _, err := cs.events.Create(ctx, event); err != nil {
		slog.Error("Failed to record outbox event", slog.Any("err", err), slog.String("event_type", eventType))
	}
}
