package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/centremart/catalog-service/internal/cache"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotPayload = `{"version":1700000000000,"total":3,"products":[
	{"id":"p1","Item Code":"GR-01","Description":"Basmati Rice 5kg","Group Name":"Grocery","SP":1150,"Stock":24},
	{"id":"p2","Item Code":"GR-02","Description":"Sunflower Oil 1L","Group Name":"Grocery","SP":285,"Stock":0},
	{"id":"p3","Item Code":"HW-01","Description":"Claw Hammer","Group Name":"Hardware","SP":650,"Stock":2}
]}`

func newStorefrontRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	snapshotServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(snapshotPayload))
	}))
	t.Cleanup(snapshotServer.Close)

	ctr := NewStorefrontController(cache.New(cache.NewHTTPSource(snapshotServer.URL), ""))

	router := gin.New()
	products := router.Group("/products")
	products.GET("", ctr.ListProducts)
	products.GET("/search", ctr.SearchProducts)
	products.GET("/:id", ctr.GetProduct)
	router.GET("/categories/:category/products", ctr.ListByCategory)
	router.POST("/cache/refresh", ctr.RefreshCache)
	return router
}

func doGET(t *testing.T, router *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestStorefrontController_ListProducts(t *testing.T) {
	router := newStorefrontRouter(t)

	w, body := doGET(t, router, "/products?offset=1&limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, float64(3), body["total"])
	products := body["products"].([]any)
	require.Len(t, products, 1)
	product := products[0].(map[string]any)
	assert.Equal(t, "Sunflower Oil 1L", product["name"])
	assert.Equal(t, "out_of_stock", product["stock_status"])
}

func TestStorefrontController_GetProduct(t *testing.T) {
	router := newStorefrontRouter(t)

	w, body := doGET(t, router, "/products/p3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Claw Hammer", body["name"])
	assert.Equal(t, "low_stock", body["stock_status"])

	w, _ = doGET(t, router, "/products/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStorefrontController_ListByCategory(t *testing.T) {
	router := newStorefrontRouter(t)

	w, body := doGET(t, router, "/categories/Grocery/products")
	require.Equal(t, http.StatusOK, w.Code)

	products := body["products"].([]any)
	require.Len(t, products, 2)
	// In-stock products come first.
	assert.Equal(t, "Basmati Rice 5kg", products[0].(map[string]any)["name"])
	assert.Equal(t, "Sunflower Oil 1L", products[1].(map[string]any)["name"])
}

func TestStorefrontController_SearchProducts(t *testing.T) {
	router := newStorefrontRouter(t)

	t.Run("text query", func(t *testing.T) {
		w, body := doGET(t, router, "/products/search?q=hammer")
		require.Equal(t, http.StatusOK, w.Code)
		products := body["products"].([]any)
		require.Len(t, products, 1)
		assert.Equal(t, "HW-01", products[0].(map[string]any)["item_code"])
	})

	t.Run("price range and stock filter", func(t *testing.T) {
		w, body := doGET(t, router, "/products/search?min_price=200&max_price=1200&in_stock=true")
		require.Equal(t, http.StatusOK, w.Code)
		products := body["products"].([]any)
		require.Len(t, products, 2)
	})

	t.Run("no results", func(t *testing.T) {
		w, body := doGET(t, router, "/products/search?q=plutonium")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), body["total"])
		assert.Len(t, body["products"].([]any), 0)
	})
}

func TestStorefrontController_RefreshCache(t *testing.T) {
	router := newStorefrontRouter(t)

	// Warm the cache, then refresh it.
	w, _ := doGET(t, router, "/products")
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/cache/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["total"])
}
