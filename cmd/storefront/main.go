package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/centremart/catalog-service/internal/cache"
	"github.com/centremart/catalog-service/internal/config"
	httpAPI "github.com/centremart/catalog-service/internal/http"
	"github.com/centremart/catalog-service/internal/http/controller"
	"github.com/centremart/catalog-service/internal/logger"
	"github.com/centremart/catalog-service/internal/metrics"
	"github.com/centremart/catalog-service/internal/snapshot"
	sqspkg "github.com/centremart/catalog-service/internal/sqs"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(conf.DebugMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The cache reads the published snapshot over HTTP when a snapshot URL is
	// configured, otherwise straight from the snapshot store in Redis.
	var source cache.Source
	if conf.Storefront.SnapshotURL != "" {
		source = cache.NewHTTPSource(conf.Storefront.SnapshotURL)
	} else {
		redisClient := redis.NewClient(&redis.Options{Addr: conf.Redis.Addr})
		source = cache.NewStoreSource(snapshot.NewStore(redisClient))
	}
	catalogCache := cache.New(source, conf.Storefront.CachePersistPath)

	// Refresh the cache whenever a new snapshot is announced
	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
	handleErr("creating SQS client", err)
	consumer := sqspkg.NewConsumer(sqsClient, conf.AWS.SQSQueueURL, func(ctx context.Context, msg sqspkg.CatalogMessage) error {
		if msg.Action == sqspkg.ActionSnapshotPublished {
			catalogCache.Refresh(ctx)
		}
		return nil
	})

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Consumer error: %v", err)
		}
	}()

	// Start HTTP server
	storefrontCtr := controller.NewStorefrontController(catalogCache)
	httpServer := gin.Default()
	httpServer = httpAPI.InitStorefrontRouter(conf, httpServer, storefrontCtr)

	go func() {
		if err := httpServer.Run(":" + conf.HTTPServer.Port); err != nil {
			handleErr("listening to HTTP requests", err)
		}
	}()

	// Start metrics server
	metrics.StartMetricsServer(conf)

	log.Println("Storefront started. Serving cached catalog...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down gracefully...")
	cancel()
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
