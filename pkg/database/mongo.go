package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-rental/pkg/config"
)

// ConnectMongo connects to MongoDB and returns the configured collection.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig, log *zap.Logger) (*mongo.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("connected to mongodb",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
	)
	return client.Database(cfg.Database).Collection(cfg.Collection), nil
}
