package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"staybook/pkg/config"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Idempotency_records"

type record struct {
	ID        string    `bson:"_id"`
	Response  string    `bson:"response"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore returns a Store backed by a MongoDB collection, keeping
// replay records durable beside the entities they describe.
func NewMongoStore(cfg *config.Config) Store {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoStore{collection: db.Collection(CollectionName)}
}

func (s *mongoStore) Get(ctx context.Context, key uuid.UUID, into any) (bool, error) {
	var rec record
	err := s.collection.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read idempotency record: %w", err)
	}

	if err := json.Unmarshal([]byte(rec.Response), into); err != nil {
		return false, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return true, nil
}

func (s *mongoStore) Put(ctx context.Context, key uuid.UUID, response any) error {
	raw, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	_, err = s.collection.InsertOne(ctx, record{
		ID:        key.String(),
		Response:  string(raw),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		// A concurrent retry may have stored the same record first; the
		// stored response wins either way.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}
