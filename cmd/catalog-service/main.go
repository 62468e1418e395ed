package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centremart/catalog-service/internal/config"
	httpAPI "github.com/centremart/catalog-service/internal/http"
	"github.com/centremart/catalog-service/internal/http/controller"
	"github.com/centremart/catalog-service/internal/logger"
	"github.com/centremart/catalog-service/internal/metrics"
	"github.com/centremart/catalog-service/internal/repository/sql"
	"github.com/centremart/catalog-service/internal/service"
	"github.com/centremart/catalog-service/internal/snapshot"
	sqspkg "github.com/centremart/catalog-service/internal/sqs"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(conf.DebugMode)

	ctx := context.Background()
	db, err := sql.StartDB(ctx, conf.Database)
	handleErr("starting database", err)

	// Create repositories
	productRepository := sql.NewProductRepository(db)
	eventRepository := sql.NewEventRepository(db)

	// Snapshot store on Redis
	redisClient := redis.NewClient(&redis.Options{Addr: conf.Redis.Addr})
	snapshotStore := snapshot.NewStore(redisClient)
	snapshotPublisher := snapshot.NewPublisher(productRepository, snapshotStore)

	// SQS publisher for the outbox worker
	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
	handleErr("creating SQS client", err)
	sqsPublisher := sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL)

	catalogService := service.NewCatalogService(productRepository, eventRepository, snapshotPublisher, snapshotStore)

	// Start outbox worker to publish pending events every 2 seconds
	outboxWorker := service.NewOutboxWorker(eventRepository, sqsPublisher, 2*time.Second)
	go outboxWorker.Start(ctx)

	// Start HTTP server
	catalogCtr := controller.NewCatalogController(catalogService)
	httpServer := gin.Default()
	httpServer = httpAPI.InitCatalogRouter(conf, httpServer, catalogCtr)

	go func() {
		if err := httpServer.Run(":" + conf.HTTPServer.Port); err != nil {
			handleErr("listening to HTTP requests", err)
		}
	}()

	// Start metrics server
	metrics.StartMetricsServer(conf)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down gracefully...")
	outboxWorker.Stop()
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
