package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Kilat-Pet-Delivery/service-rental/pkg/config"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMongo    = "mongo"
	StoreSQLite   = "sqlite"
)

// Event drivers.
const (
	EventsNone  = "none"
	EventsKafka = "kafka"
	EventsAMQP  = "amqp"
)

// StoreConfig selects and configures the booking blob store.
type StoreConfig struct {
	Driver     string
	Key        string
	SQLitePath string
}

// ServiceConfig holds all configuration for the rental service.
type ServiceConfig struct {
	Port         string
	AppEnv       string
	Location     *time.Location
	Currency     string
	Store        StoreConfig
	EventsDriver string
	DBConfig     config.DatabaseConfig
	RedisConfig  config.RedisConfig
	MongoConfig  config.MongoConfig
	KafkaConfig  config.KafkaConfig
	AMQPConfig   config.AMQPConfig
}

// Load reads configuration from RENTAL_-prefixed environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("RENTAL")
	if err != nil {
		return nil, err
	}

	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("CURRENCY", "USD")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("STORE_KEY", "bookings")
	v.SetDefault("SQLITE_PATH", "rental.db")
	v.SetDefault("EVENTS_DRIVER", EventsNone)
	v.SetDefault("DB_NAME", "rental_db")

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid TIMEZONE: %w", err)
	}

	cfg := &ServiceConfig{
		Port:     config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:   config.GetAppEnv(v),
		Location: loc,
		Currency: strings.ToUpper(v.GetString("CURRENCY")),
		Store: StoreConfig{
			Driver:     strings.ToLower(v.GetString("STORE_DRIVER")),
			Key:        v.GetString("STORE_KEY"),
			SQLitePath: v.GetString("SQLITE_PATH"),
		},
		EventsDriver: strings.ToLower(v.GetString("EVENTS_DRIVER")),
		DBConfig:     config.LoadDatabaseConfig(v, "DB_NAME"),
		RedisConfig:  config.LoadRedisConfig(v),
		MongoConfig:  config.LoadMongoConfig(v),
		KafkaConfig:  config.LoadKafkaConfig(v),
		AMQPConfig:   config.LoadAMQPConfig(v),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	switch c.Store.Driver {
	case StoreMemory, StorePostgres, StoreRedis, StoreMongo, StoreSQLite:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.EventsDriver {
	case EventsNone, EventsKafka, EventsAMQP:
	default:
		return fmt.Errorf("config: unknown EVENTS_DRIVER %q", c.EventsDriver)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("config: CURRENCY must be a 3-letter code, got %q", c.Currency)
	}
	return nil
}
