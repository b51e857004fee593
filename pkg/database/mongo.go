package database

import (
	"context"
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoConfig struct {
	URI      string
	Database string
}

func DefaultMongoConfig() MongoConfig {
	cfg := MongoConfig{URI: "mongodb://localhost:27017", Database: "recipehub"}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.URI = v
	}
	if v := os.Getenv("MONGODB_DATABASE"); v != "" {
		cfg.Database = v
	}
	return cfg
}

// OpenMongo connects and pings the deployment. Callers own Disconnect.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}
