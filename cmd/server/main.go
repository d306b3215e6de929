package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/onemedi/onemedi-api/internal/cache"
	"github.com/onemedi/onemedi-api/internal/config"
	"github.com/onemedi/onemedi-api/internal/consumer"
	h "github.com/onemedi/onemedi-api/internal/http"
	"github.com/onemedi/onemedi-api/internal/payment"
	"github.com/onemedi/onemedi-api/internal/publisher"
	"github.com/onemedi/onemedi-api/internal/repository"
	"github.com/onemedi/onemedi-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB holds the regular cart documents.
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			log.Printf("error disconnecting from MongoDB: %v", err)
		}
	}()

	cartRepo := repository.NewMongoCartRepository(mongoDB)
	if indexer, ok := cartRepo.(interface{ CreateIndexes(context.Context) error }); ok {
		if err := indexer.CreateIndexes(ctx); err != nil {
			log.Fatalf("failed to create cart indexes: %v", err)
		}
	}

	// Postgres holds prescriptions, checkout sessions, orders and the outbox.
	creds := &repository.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDBName,
		MigrationsDirPath: cfg.MigrationsDirPath,
	}
	db, err := repository.NewPostgres(creds)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	if err := repository.RunMigrations(db, creds); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	cartCache := cache.NewRedisCache(redisClient)

	rxRepo := repository.NewPrescriptionRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	checkoutRepo := repository.NewCheckoutRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	rxService := service.NewPrescriptionCartService(rxRepo, catalogRepo)
	cartService := service.NewCartService(cartRepo, cartCache, rxService)

	payments := payment.NewRouter(
		payment.NewCODProcessor(),
		payment.NewStripeProcessor(cfg.StripeKey),
	)
	checkoutService := service.NewCheckoutService(checkoutRepo, orderRepo, addressRepo, cartService, payments)

	poller := publisher.NewOutboxPoller(checkoutRepo, cfg.OrdersTopic, cfg.KafkaBrokers...)
	go poller.Run(ctx)

	eventsConsumer := consumer.NewConsumer(notificationRepo, cfg.OrdersTopic, "onemedi-api", cfg.KafkaBrokers...)
	defer eventsConsumer.Close()
	go eventsConsumer.Run(ctx)

	router := h.NewRouter(h.RouterDeps{
		Cart:           h.NewCartHandler(cartService),
		Prescription:   h.NewPrescriptionCartHandler(rxService),
		Checkout:       h.NewCheckoutHandler(checkoutService),
		Orders:         h.NewOrdersHandler(orderRepo),
		Catalog:        h.NewCatalogHandler(catalogRepo),
		Addresses:      h.NewAddressHandler(addressRepo),
		Notifications:  h.NewNotificationsHandler(notificationRepo),
		JWTSecret:      cfg.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      http.MaxBytesHandler(router, cfg.MaxRequestBodySize),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		log.Printf("onemedi-api starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
}
