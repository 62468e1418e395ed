// Package fallback bundles a last-known catalog copy into the binary so the
// storefront can serve something even when both the snapshot endpoint and the
// persisted cache file are unavailable.
package fallback

import (
	_ "embed"
	"encoding/json"

	"github.com/centremart/catalog-service/internal/mapper"
)

//go:embed products.json
var bundled []byte

// Products returns the bundled catalog copy.
func Products() ([]mapper.Raw, error) {
	var products []mapper.Raw
	if err := json.Unmarshal(bundled, &products); err != nil {
		return nil, err
	}
	return products, nil
}
