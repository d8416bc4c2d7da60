package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipsentry/internal/config"
	"ipsentry/internal/retry"
	"ipsentry/internal/types"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoStore keeps the record as a single document
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	key        string
	logger     *zap.Logger
}

// mongoDocument is the stored document
type mongoDocument struct {
	ID    string `bson:"_id"`
	State record `bson:",inline"`
}

// NewMongoStore connects to mongodb
func NewMongoStore(ctx context.Context, cfg *config.MongoDBConfig, logger *zap.Logger) (*MongoStore, error) {
	if cfg.URI == "" || cfg.Collection == "" {
		return nil, retry.Permanent(fmt.Errorf("mongodb uri and collection are required"))
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect error: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping error: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = "state"
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		key:        key,
		logger:     logger,
	}, nil
}

// Load reads the document
func (s *MongoStore) Load(ctx context.Context) (types.MonitoringState, error) {
	var doc mongoDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": s.key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.NewMonitoringState(), nil
	}
	if err != nil {
		return types.NewMonitoringState(), fmt.Errorf("failed to find state: %w", err)
	}
	return doc.State.state()
}

// Save replaces the document, inserting it when missing
func (s *MongoStore) Save(ctx context.Context, state types.MonitoringState) error {
	doc := mongoDocument{ID: s.key, State: newRecord(state, time.Now())}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": s.key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to replace state: %w", err)
	}
	return nil
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
