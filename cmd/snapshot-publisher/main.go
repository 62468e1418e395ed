package main

import (
	"context"
	"log"

	"github.com/centremart/catalog-service/internal/config"
	"github.com/centremart/catalog-service/internal/logger"
	"github.com/centremart/catalog-service/internal/repository/sql"
	"github.com/centremart/catalog-service/internal/service"
	"github.com/centremart/catalog-service/internal/snapshot"
	"github.com/redis/go-redis/v9"
)

// Publishes one catalog snapshot and exits. Intended for cron or manual runs
// when a publish outside the API is needed.
func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(conf.DebugMode)

	ctx := context.Background()
	db, err := sql.StartDB(ctx, conf.Database)
	handleErr("starting database", err)

	productRepository := sql.NewProductRepository(db)
	eventRepository := sql.NewEventRepository(db)

	redisClient := redis.NewClient(&redis.Options{Addr: conf.Redis.Addr})
	snapshotStore := snapshot.NewStore(redisClient)
	snapshotPublisher := snapshot.NewPublisher(productRepository, snapshotStore)

	catalogService := service.NewCatalogService(productRepository, eventRepository, snapshotPublisher, snapshotStore)

	result, err := catalogService.PublishSnapshot(ctx)
	handleErr("publishing snapshot", err)

	log.Printf("Published snapshot version %d with %d products", result.Version, result.Total)
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
