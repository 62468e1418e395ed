package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/centremart/catalog-service/internal/model"
	"github.com/centremart/catalog-service/internal/reconcile"
	"github.com/centremart/catalog-service/internal/repository"
	"github.com/centremart/catalog-service/internal/service"
	"github.com/centremart/catalog-service/internal/snapshot"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogController handles HTTP requests for catalog administration.
type CatalogController struct {
	catalogService *service.CatalogService
}

// NewCatalogController creates a new CatalogController with the given catalog service.
func NewCatalogController(catalogService *service.CatalogService) *CatalogController {
	return &CatalogController{
		catalogService: catalogService,
	}
}

// ProductResponse represents the response body for a canonical product row.
type ProductResponse struct {
	ID           string   `json:"id"`
	ItemCode     string   `json:"item_code"`
	Description  string   `json:"description"`
	BaseUnit     string   `json:"base_unit"`
	GroupName    string   `json:"group_name"`
	SupplierName string   `json:"supplier_name"`
	SP           *float64 `json:"sp"`
	MRP          *float64 `json:"mrp"`
	Stock        *float64 `json:"stock"`
	MarginPct    *float64 `json:"margin_percent"`
	ImageURL     *string  `json:"image_url"`
	ImageURLs    []string `json:"image_urls"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// ImportCatalog handles the HTTP POST request for reconciling a CSV export
// against the catalog. The export is read from the "file" form field, or from
// the raw request body when the request is not multipart.
func (cc *CatalogController) ImportCatalog(c *gin.Context) {
	var reader io.Reader = c.Request.Body
	if file, err := c.FormFile("file"); err == nil {
		opened, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
			return
		}
		defer opened.Close()
		reader = opened
	}

	summary, err := cc.catalogService.ImportCSV(c.Request.Context(), reader, reconcile.Options{})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// PublishSnapshot handles the HTTP POST request for publishing a new catalog snapshot.
func (cc *CatalogController) PublishSnapshot(c *gin.Context) {
	result, err := cc.catalogService.PublishSnapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish snapshot"})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetSnapshot handles the HTTP GET request for the current catalog snapshot.
func (cc *CatalogController) GetSnapshot(c *gin.Context) {
	ptr, doc, err := cc.catalogService.CurrentSnapshot(c.Request.Context())
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot published"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snapshot"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version":   doc.Version,
		"createdAt": doc.CreatedAt,
		"total":     doc.Total,
		"previous":  ptr.Previous,
		"products":  doc.Products,
	})
}

// ListProductsRequest represents the query parameters for listing products.
type ListProductsRequest struct {
	Limit    int32  `form:"limit"`
	Token    string `form:"token"`
	Group    string `form:"group"`
	Supplier string `form:"supplier"`
}

// ListProductsResponse represents the response body for listing products.
type ListProductsResponse struct {
	Products      []ProductResponse `json:"products"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

// ListProducts handles the HTTP GET request for listing canonical products
// with cursor pagination and optional group/supplier filters.
func (cc *CatalogController) ListProducts(c *gin.Context) {
	var req ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := repository.NewQuery()
	if req.Group != "" {
		query = query.With(repository.GroupNameField, req.Group)
	}
	if req.Supplier != "" {
		query = query.With(repository.SupplierField, req.Supplier)
	}
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, err := cc.catalogService.ListProducts(c.Request.Context(), *query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}

	var productResponses []ProductResponse
	for _, product := range products {
		productResponses = append(productResponses, toProductResponse(product))
	}

	response := ListProductsResponse{
		Products: productResponses,
	}

	// Generate next page token if we have results
	if len(products) > 0 {
		lastProduct := products[len(products)-1]
		paginator := repository.Paginator{
			LastID:        lastProduct.ID,
			LastCreatedAt: lastProduct.CreatedAt,
		}
		response.NextPageToken = paginator.Encode()
	}

	c.JSON(http.StatusOK, response)
}

// GetProduct handles the HTTP GET request for a single canonical product.
func (cc *CatalogController) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	product, err := cc.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}

	c.JSON(http.StatusOK, toProductResponse(product))
}

// ImageReferenceRequest represents the request body for attaching an image reference.
type ImageReferenceRequest struct {
	URL string `json:"url" binding:"required"`
}

// AddImageReference handles the HTTP POST request for attaching an image URL
// to a product.
func (cc *CatalogController) AddImageReference(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	var req ImageReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := cc.catalogService.AddImageReference(c.Request.Context(), id, req.URL); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add image reference"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "image reference added"})
}

// RemoveImageReference handles the HTTP DELETE request for detaching an image
// URL from a product. The URL is passed as the "url" query parameter.
func (cc *CatalogController) RemoveImageReference(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	removed, err := cc.catalogService.RemoveImageReference(c.Request.Context(), id, url)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove image reference"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "image reference not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "image reference removed"})
}

func toProductResponse(product *model.Product) ProductResponse {
	return ProductResponse{
		ID:           product.ID.String(),
		ItemCode:     product.ItemCode,
		Description:  product.Description,
		BaseUnit:     product.BaseUnit,
		GroupName:    product.GroupName,
		SupplierName: product.SupplierName,
		SP:           product.SP,
		MRP:          product.MRP,
		Stock:        product.Stock,
		MarginPct:    product.MarginPct,
		ImageURL:     product.ImageURL,
		ImageURLs:    product.ImageURLs,
		CreatedAt:    product.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    product.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
