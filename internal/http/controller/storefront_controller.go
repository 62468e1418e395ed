package controller

import (
	"net/http"

	"github.com/centremart/catalog-service/internal/cache"
	"github.com/centremart/catalog-service/internal/mapper"
	"github.com/centremart/catalog-service/internal/search"
	"github.com/gin-gonic/gin"
)

// defaultChunkSize is the storefront page size when none is requested.
const defaultChunkSize = 50

// StorefrontController serves catalog reads from the storefront cache. All
// endpoints answer from memory and never touch the canonical store.
type StorefrontController struct {
	cache *cache.Cache
}

// NewStorefrontController creates a new StorefrontController over a catalog cache.
func NewStorefrontController(cache *cache.Cache) *StorefrontController {
	return &StorefrontController{cache: cache}
}

// StorefrontProduct is a cached record with its derived stock status.
type StorefrontProduct struct {
	mapper.Record
	StockStatus string `json:"stock_status"`
}

// ListRequest represents the query parameters for listing cached products.
type ListRequest struct {
	Offset int `form:"offset"`
	Limit  int `form:"limit"`
}

// ListProducts handles the HTTP GET request for a page of cached products.
func (sc *StorefrontController) ListProducts(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultChunkSize
	}

	ctx := c.Request.Context()
	records := sc.cache.GetChunk(ctx, req.Offset, req.Limit)

	c.JSON(http.StatusOK, gin.H{
		"products": toStorefrontProducts(records),
		"total":    sc.cache.GetTotalCount(ctx),
		"offset":   req.Offset,
	})
}

// GetProduct handles the HTTP GET request for one cached product by id.
func (sc *StorefrontController) GetProduct(c *gin.Context) {
	record, ok := sc.cache.GetByID(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	c.JSON(http.StatusOK, toStorefrontProduct(record))
}

// ListByCategory handles the HTTP GET request for cached products in a category.
func (sc *StorefrontController) ListByCategory(c *gin.Context) {
	records := sc.cache.GetByCategory(c.Request.Context(), c.Param("category"))
	search.SortByAvailability(records)

	c.JSON(http.StatusOK, gin.H{
		"products": toStorefrontProducts(records),
		"total":    len(records),
	})
}

// SearchRequest represents the query parameters for searching cached products.
type SearchRequest struct {
	Query     string   `form:"q"`
	Category  string   `form:"category"`
	MinPrice  *float64 `form:"min_price"`
	MaxPrice  *float64 `form:"max_price"`
	MinStock  *float64 `form:"min_stock"`
	MaxStock  *float64 `form:"max_stock"`
	MinMargin *float64 `form:"min_margin"`
	MaxMargin *float64 `form:"max_margin"`
	InStock   bool     `form:"in_stock"`
}

// SearchProducts handles the HTTP GET request for searching and filtering
// cached products. Results are ordered in-stock first.
func (sc *StorefrontController) SearchProducts(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records := search.Apply(sc.cache.GetAllCached(c.Request.Context()), search.Filter{
		Query:     req.Query,
		Category:  req.Category,
		MinPrice:  req.MinPrice,
		MaxPrice:  req.MaxPrice,
		MinStock:  req.MinStock,
		MaxStock:  req.MaxStock,
		MinMargin: req.MinMargin,
		MaxMargin: req.MaxMargin,
		InStock:   req.InStock,
	})
	search.SortByAvailability(records)

	c.JSON(http.StatusOK, gin.H{
		"products": toStorefrontProducts(records),
		"total":    len(records),
	})
}

// RefreshCache handles the HTTP POST request for dropping and reloading the cache.
func (sc *StorefrontController) RefreshCache(c *gin.Context) {
	sc.cache.Refresh(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"message": "cache refreshed",
		"total":   sc.cache.GetTotalCount(c.Request.Context()),
	})
}

func toStorefrontProduct(record mapper.Record) StorefrontProduct {
	return StorefrontProduct{
		Record:      record,
		StockStatus: search.StockStatus(record.Stock),
	}
}

func toStorefrontProducts(records []mapper.Record) []StorefrontProduct {
	out := make([]StorefrontProduct, len(records))
	for i, record := range records {
		out[i] = toStorefrontProduct(record)
	}
	return out
}
