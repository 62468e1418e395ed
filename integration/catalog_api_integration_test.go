package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/centremart/catalog-service/internal/config"
	httpAPI "github.com/centremart/catalog-service/internal/http"
	"github.com/centremart/catalog-service/internal/http/controller"
	"github.com/centremart/catalog-service/internal/reconcile"
	reposql "github.com/centremart/catalog-service/internal/repository/sql"
	"github.com/centremart/catalog-service/internal/service"
	"github.com/centremart/catalog-service/internal/snapshot"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalogRouter(t *testing.T, testDB *TestDB) (*gin.Engine, *snapshot.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	productRepo := reposql.NewProductRepository(testDB.DB)
	eventRepo := reposql.NewEventRepository(testDB.DB)
	snapshotStore := snapshot.NewStore(redisClient)
	catalogService := service.NewCatalogService(productRepo, eventRepo, snapshot.NewPublisher(productRepo, snapshotStore), snapshotStore)

	router := gin.New()
	catalogCtr := controller.NewCatalogController(catalogService)
	cfg := &config.Config{}
	httpAPI.InitCatalogRouter(cfg, router, catalogCtr)
	return router, snapshotStore
}

func postCSV(t *testing.T, router *gin.Engine, csv string) reconcile.Summary {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/catalog/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary reconcile.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	return summary
}

func TestCatalogAPI_ImportAndSnapshot_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	testDB.TruncateTables(t)

	router, _ := setupCatalogRouter(t, testDB)

	// First import inserts everything; the duplicated item code is last-wins.
	summary := postCSV(t, router, "Item Code,Description,SP,Stock\n"+
		"A1,Widget,100,5\n"+
		"A1,Widget v2,120,3\n"+
		"B2,Gadget,50,10\n")
	assert.Equal(t, reconcile.Summary{Inserted: 2, Updated: 0, Skipped: 0, Total: 2}, summary)

	// Second import updates the existing rows.
	summary = postCSV(t, router, "Item Code,Description,SP,Stock\n"+
		"A1,Widget v3,130,2\n"+
		"C3,Gizmo,10,1\n")
	assert.Equal(t, reconcile.Summary{Inserted: 1, Updated: 1, Skipped: 0, Total: 2}, summary)

	// No snapshot yet.
	req := httptest.NewRequest(http.MethodGet, "/catalog/snapshot", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Publish and fetch the snapshot.
	req = httptest.NewRequest(http.MethodPost, "/catalog/snapshot", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result snapshot.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 3, result.Total)

	req = httptest.NewRequest(http.MethodGet, "/catalog/snapshot", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Version  int64            `json:"version"`
		Total    int              `json:"total"`
		Products []map[string]any `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, result.Version, doc.Version)
	require.Len(t, doc.Products, 3)

	// Outbox recorded both the imports and the publication.
	eventRepo := reposql.NewEventRepository(testDB.DB)
	pending, err := eventRepo.ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestCatalogAPI_ImagesSurviveReimport_Integration(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	testDB.TruncateTables(t)

	router, _ := setupCatalogRouter(t, testDB)

	postCSV(t, router, "Item Code,Description,SP\nA1,Widget,100\n")

	// Find the created product.
	req := httptest.NewRequest(http.MethodGet, "/catalog/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Products []struct {
			ID string `json:"id"`
		} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Products, 1)
	id := list.Products[0].ID

	// Attach an image.
	req = httptest.NewRequest(http.MethodPost, "/catalog/products/"+id+"/images", strings.NewReader(`{"url":"https://img/widget.jpg"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Re-import the row; the image must survive.
	summary := postCSV(t, router, "Item Code,Description,SP\nA1,Widget v2,120\n")
	assert.Equal(t, 1, summary.Updated)

	req = httptest.NewRequest(http.MethodGet, "/catalog/products/"+id, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var product struct {
		Description string   `json:"description"`
		ImageURL    *string  `json:"image_url"`
		ImageURLs   []string `json:"image_urls"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, "Widget v2", product.Description)
	require.NotNil(t, product.ImageURL)
	assert.Equal(t, "https://img/widget.jpg", *product.ImageURL)
	assert.Equal(t, []string{"https://img/widget.jpg"}, product.ImageURLs)
}
