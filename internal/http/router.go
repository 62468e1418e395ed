package http

import (
	"github.com/centremart/catalog-service/internal/config"
	"github.com/centremart/catalog-service/internal/http/controller"
	"github.com/centremart/catalog-service/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

// InitCatalogRouter wires the catalog administration endpoints.
func InitCatalogRouter(_ *config.Config, server *gin.Engine, catalogCtr *controller.CatalogController) *gin.Engine {
	// Apply recovery middleware globally to prevent panics from crashing the server
	server.Use(middleware.Recovery())

	catalog := server.Group("/catalog")
	{
		catalog.POST("/import", catalogCtr.ImportCatalog)
		catalog.POST("/snapshot", catalogCtr.PublishSnapshot)
		catalog.GET("/snapshot", catalogCtr.GetSnapshot)

		products := catalog.Group("/products")
		{
			products.GET("", catalogCtr.ListProducts)
			products.GET("/:id", catalogCtr.GetProduct)
			products.POST("/:id/images", catalogCtr.AddImageReference)
			products.DELETE("/:id/images", catalogCtr.RemoveImageReference)
		}
	}

	return server
}

// InitStorefrontRouter wires the cached storefront read endpoints.
func InitStorefrontRouter(_ *config.Config, server *gin.Engine, storefrontCtr *controller.StorefrontController) *gin.Engine {
	server.Use(middleware.Recovery())
	server.Use(middleware.CORS())
	server.Use(middleware.RequestLogger())

	products := server.Group("/products")
	{
		products.GET("", storefrontCtr.ListProducts)
		products.GET("/search", storefrontCtr.SearchProducts)
		products.GET("/:id", storefrontCtr.GetProduct)
	}
	server.GET("/categories/:category/products", storefrontCtr.ListByCategory)
	server.POST("/cache/refresh", storefrontCtr.RefreshCache)

	return server
}
