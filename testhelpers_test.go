//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Kilat-Pet-Delivery/service-rental/internal/application"
	"github.com/Kilat-Pet-Delivery/service-rental/internal/blobstore"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-rental/internal/domain/booking"
	rentalEvents "github.com/Kilat-Pet-Delivery/service-rental/internal/events"
	"github.com/Kilat-Pet-Delivery/service-rental/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/config"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/database"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/events"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/kafka"
)

// rentalStack holds wired-up rental service components.
type rentalStack struct {
	Service         *application.BookingService
	Consumer        *rentalEvents.FleetEventConsumer
	CleanupProducer func()
}

// setupPostgres starts a PostgreSQL container, applies the migrations and
// returns a connected GORM DB.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_rental",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_rental sslmode=disable", pgHost, pgPort.Port())

	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	url := fmt.Sprintf("postgres://test:test@%s:%s/test_rental?sslmode=disable", pgHost, pgPort.Port())
	require.NoError(t, database.RunMigrations(url, "migrations", zap.NewNop()))

	return db
}

// setupRedis starts a Redis container and returns a connected client.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(host, port.Port())})
	require.Eventually(t, func() bool {
		return client.Ping(ctx).Err() == nil
	}, 15*time.Second, 500*time.Millisecond, "Redis not ready for connections")
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// setupMongo starts a MongoDB container and returns a blob store over a fresh collection.
func setupMongo(t *testing.T) *blobstore.MongoStore {
	t.Helper()
	ctx := context.Background()

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start MongoDB container")
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate MongoDB container: %v", err)
		}
	})

	host, err := mongoContainer.Host(ctx)
	require.NoError(t, err)
	port, err := mongoContainer.MappedPort(ctx, "27017")
	require.NoError(t, err)

	collection, err := database.ConnectMongo(ctx, config.MongoConfig{
		URI:         fmt.Sprintf("mongodb://%s", net.JoinHostPort(host, port.Port())),
		Database:    "rental_test",
		Collection:  fmt.Sprintf("blobs_%s", uuid.New().String()[:8]),
		ConnTimeout: 15 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err, "failed to connect to MongoDB")

	store := blobstore.NewMongoStore(collection)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// setupRabbitMQ starts a RabbitMQ container and returns its AMQP URL.
func setupRabbitMQ(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": "test",
				"RABBITMQ_DEFAULT_PASS": "test",
			},
			WaitingFor: wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start RabbitMQ container")
	t.Cleanup(func() {
		if err := rabbitContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate RabbitMQ container: %v", err)
		}
	})

	host, err := rabbitContainer.Host(ctx)
	require.NoError(t, err)
	port, err := rabbitContainer.MappedPort(ctx, "5672")
	require.NoError(t, err)

	url := fmt.Sprintf("amqp://test:test@%s/", net.JoinHostPort(host, port.Port()))
	require.Eventually(t, func() bool {
		conn, err := amqp.Dial(url)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 30*time.Second, 500*time.Millisecond, "RabbitMQ not accepting connections")
	return url
}

// getQueuedEvent polls queue until a CloudEvent of the expected type arrives.
func getQueuedEvent(t *testing.T, url, queue, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	var found kafka.CloudEvent
	require.Eventually(t, func() bool {
		msg, ok, err := ch.Get(queue, true)
		if err != nil || !ok {
			return false
		}
		ce, err := kafka.ParseCloudEvent(msg.Body)
		if err != nil || ce.Type != expectedType {
			return false
		}
		found = ce
		return true
	}, timeout, 200*time.Millisecond, "no %s event on queue %q", expectedType, queue)
	return found
}

// setupKafka starts a Kafka container and pre-creates the rental topics.
func setupKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, events.TopicBookingEvents, events.TopicFleetEvents)
	return brokers
}

// setupRentalStack wires the booking service over store, publishing to Kafka.
func setupRentalStack(t *testing.T, store blobstore.Store, brokers []string, clock bookingDomain.Clock) *rentalStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	repo := repository.NewBlobBookingRepository(store, repository.DefaultKey)
	producer := kafka.NewProducer(brokers, logger)
	svc := application.NewBookingService(repo, bookingDomain.NewStandardPricingStrategy(), clock, producer, "USD", logger)

	groupID := fmt.Sprintf("test-rental-%s", uuid.New().String()[:8])
	consumer := rentalEvents.NewFleetEventConsumer(brokers, groupID, svc, logger)

	return &rentalStack{
		Service:         svc,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// newBookingRequest builds a valid booking request for carID over the given dates.
func newBookingRequest(carID, pickup, ret string) application.CreateBookingRequest {
	rate := int64(5000)
	return application.CreateBookingRequest{
		CarID:            carID,
		CarDetails:       bookingDomain.CarDetails{Brand: "Toyota", Model: "Corolla"},
		PickupDate:       pickup,
		ReturnDate:       ret,
		PickupLocation:   string(bookingDomain.LocationAirport),
		Extras:           []string{string(bookingDomain.ExtraInsurance)},
		Customer:         application.CustomerDTO{Name: "Ana Lima", Email: "ana@example.com", Phone: "+1 555 0100"},
		PricePerDayCents: &rate,
	}
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForBookingStatus polls the service until the booking reaches expectedStatus.
func waitForBookingStatus(t *testing.T, svc *application.BookingService, bookingID, expectedStatus string, timeout time.Duration) *application.BookingDTO {
	t.Helper()
	var result *application.BookingDTO
	require.Eventually(t, func() bool {
		dto, err := svc.GetBookingByID(context.Background(), bookingID)
		if err != nil {
			return false
		}
		if dto.Status == expectedStatus {
			result = dto
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking did not transition to %s", expectedStatus)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	time.Sleep(1 * time.Second)
}
