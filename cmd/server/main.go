package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-rental/internal/application"
	"github.com/Kilat-Pet-Delivery/service-rental/internal/blobstore"
	"github.com/Kilat-Pet-Delivery/service-rental/internal/config"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-rental/internal/domain/booking"
	rentalEvents "github.com/Kilat-Pet-Delivery/service-rental/internal/events"
	"github.com/Kilat-Pet-Delivery/service-rental/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-rental/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/database"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/health"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/kafka"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/logger"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/middleware"
)

const serviceName = "service-rental"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("events", cfg.EventsDriver),
		zap.String("timezone", cfg.Location.String()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the blob store
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open blob store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	// Initialize event publisher
	publisher, closePublisher, err := openPublisher(cfg, log)
	if err != nil {
		log.Fatal("failed to open event publisher", zap.Error(err))
	}
	defer closePublisher()

	// Initialize application service
	bookingRepo := repository.NewBlobBookingRepository(store, cfg.Store.Key)
	bookingService := application.NewBookingService(
		bookingRepo,
		bookingDomain.NewStandardPricingStrategy(),
		bookingDomain.NewSystemClock(cfg.Location),
		publisher,
		cfg.Currency,
		log,
	)

	// Start fleet event consumer in a goroutine
	if cfg.EventsDriver == config.EventsKafka {
		groupID := cfg.KafkaConfig.GroupPrefix + "rental-service"
		fleetConsumer := rentalEvents.NewFleetEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			bookingService,
			log,
		)
		defer func() { _ = fleetConsumer.Close() }()

		go func() {
			log.Info("starting fleet event consumer")
			if err := fleetConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("fleet event consumer error", zap.Error(err))
			}
		}()
	}

	if err := handler.RegisterValidators(); err != nil {
		log.Fatal("failed to register validators", zap.Error(err))
	}

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	deps := map[string]health.Pinger{"store": store}
	if p, ok := publisher.(health.Pinger); ok {
		deps["broker"] = p
	}
	health.NewHandler(serviceName, deps).RegisterRoutes(router)

	// Register routes
	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup)
	handler.NewCarHandler(bookingService).RegisterRoutes(&router.RouterGroup)
	handler.NewCatalogHandler(bookingService).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

func openStore(ctx context.Context, cfg *config.ServiceConfig, log *zap.Logger) (blobstore.Store, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.Connect(cfg.DBConfig, log)
		if err != nil {
			return nil, err
		}
		if cfg.AppEnv == "development" {
			if err := db.AutoMigrate(&blobstore.BlobModel{}); err != nil {
				return nil, fmt.Errorf("auto-migration failed: %w", err)
			}
			log.Info("database migration completed (dev auto-migrate)")
		} else if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), "migrations", log); err != nil {
			return nil, err
		}
		return blobstore.NewGormStore(db), nil

	case config.StoreRedis:
		client, err := database.ConnectRedis(ctx, cfg.RedisConfig, log)
		if err != nil {
			return nil, err
		}
		return blobstore.NewRedisStore(client, "rental:"), nil

	case config.StoreMongo:
		coll, err := database.ConnectMongo(ctx, cfg.MongoConfig, log)
		if err != nil {
			return nil, err
		}
		return blobstore.NewMongoStore(coll), nil

	case config.StoreSQLite:
		log.Info("using sqlite blob store", zap.String("path", cfg.Store.SQLitePath))
		return blobstore.OpenSQLite(ctx, cfg.Store.SQLitePath)

	default:
		log.Warn("using in-memory blob store, bookings are lost on restart")
		return blobstore.NewMemoryStore(), nil
	}
}

func openPublisher(cfg *config.ServiceConfig, log *zap.Logger) (application.EventPublisher, func(), error) {
	switch cfg.EventsDriver {
	case config.EventsKafka:
		producer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		return producer, func() { _ = producer.Close() }, nil

	case config.EventsAMQP:
		publisher, err := rentalEvents.NewAMQPPublisher(cfg.AMQPConfig.URL, log)
		if err != nil {
			return nil, nil, err
		}
		return publisher, func() { _ = publisher.Close() }, nil

	default:
		return application.NopPublisher{}, func() {}, nil
	}
}
