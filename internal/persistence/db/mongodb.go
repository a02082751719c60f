package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/amachi/voicedeck/internal/infrastructure/env"
)

// Collection names. room_states holds the live role documents, rooms the
// durable catalog entries, room_audit_logs the transition history.
const (
	RoomStatesCollection    = "room_states"
	RoomsCollection         = "rooms"
	RoomAuditLogsCollection = "room_audit_logs"

	DefaultDatabase          = "voicedeck"
	DefaultConnectionTimeout = 20 * time.Second
)

type MongoConfig struct {
	URI               string
	Database          string
	ConnectionTimeout time.Duration
}

func NewMongoDefaultConfig() *MongoConfig {
	return &MongoConfig{
		URI:               env.GetString("MONGODB_URI", "mongodb://localhost:27017"),
		Database:          env.GetString("MONGODB_DATABASE", DefaultDatabase),
		ConnectionTimeout: env.GetDuration("MONGODB_CONNECT_TIMEOUT", DefaultConnectionTimeout),
	}
}

func (c *MongoConfig) validate() error {
	if c == nil {
		return fmt.Errorf("mongodb config is required")
	}
	if c.URI == "" {
		return fmt.Errorf("mongodb URI is required")
	}
	if c.Database == "" {
		return fmt.Errorf("mongodb database is required")
	}
	return nil
}

// NewMongoClient connects and verifies the primary is reachable before
// handing the client back.
func NewMongoClient(ctx context.Context, cfg *MongoConfig) (*mongo.Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.ConnectionTimeout).
		SetConnectTimeout(cfg.ConnectionTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Printf("Connected to MongoDB database %s", cfg.Database)
	return client, nil
}

func GetDatabase(client *mongo.Client, cfg *MongoConfig) *mongo.Database {
	if client == nil || cfg == nil {
		return nil
	}
	return client.Database(cfg.Database)
}

func DisconnectMongo(ctx context.Context, client *mongo.Client) error {
	if client == nil {
		return nil
	}

	disconnectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Disconnect(disconnectCtx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}

	log.Println("Disconnected from MongoDB")
	return nil
}
