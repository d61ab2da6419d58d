package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoBlob struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per key in a collection.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a MongoStore over the given collection.
func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

func (s *MongoStore) Get(ctx context.Context, key string) (Blob, error) {
	var doc mongoBlob
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Blob{}, ErrNotFound
		}
		return Blob{}, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return Blob{Data: doc.Data, Version: doc.Version}, nil
}

func (s *MongoStore) Set(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	now := time.Now().UTC()
	next := expectedVersion + 1

	if expectedVersion == 0 {
		// Returns duplicate key error if another writer created it first
		_, err := s.collection.InsertOne(ctx, mongoBlob{Key: key, Data: data, Version: next, UpdatedAt: now})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return 0, ErrVersionConflict
			}
			return 0, fmt.Errorf("failed to create blob %q: %w", key, err)
		}
		return next, nil
	}

	filter := bson.M{"_id": key, "version": expectedVersion}
	update := bson.M{"$set": bson.M{"data": data, "version": next, "updated_at": now}}
	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to update blob %q: %w", key, err)
	}
	if result.MatchedCount == 0 {
		return 0, ErrVersionConflict
	}
	return next, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.collection.Database().Client().Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.collection.Database().Client().Disconnect(ctx)
}
