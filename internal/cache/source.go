package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/centremart/catalog-service/internal/mapper"
	"github.com/centremart/catalog-service/internal/snapshot"
)

// Source fetches the current catalog from wherever it is published.
type Source interface {
	Fetch(ctx context.Context) ([]mapper.Raw, error)
}

// HTTPSource fetches the current snapshot document over HTTP.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates an HTTP source for the given snapshot URL.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{url: url, client: http.DefaultClient}
}

// Fetch downloads and decodes the snapshot. The endpoint may serve either a
// full snapshot document or a bare product array.
func (s *HTTPSource) Fetch(ctx context.Context) ([]mapper.Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot endpoint returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot body: %w", err)
	}
	return decodeProducts(payload)
}

// StoreSource fetches the current snapshot straight from the snapshot store.
type StoreSource struct {
	snaps *snapshot.Store
}

// NewStoreSource creates a source backed by a snapshot store.
func NewStoreSource(snaps *snapshot.Store) *StoreSource {
	return &StoreSource{snaps: snaps}
}

// Fetch resolves the current pointer and returns the document's products.
func (s *StoreSource) Fetch(ctx context.Context) ([]mapper.Raw, error) {
	doc, err := s.snaps.CurrentDocument(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Products, nil
}

func decodeProducts(payload []byte) ([]mapper.Raw, error) {
	var doc struct {
		Products []mapper.Raw `json:"products"`
	}
	if err := json.Unmarshal(payload, &doc); err == nil && doc.Products != nil {
		return doc.Products, nil
	}

	var products []mapper.Raw
	if err := json.Unmarshal(payload, &products); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	return products, nil
}
