package repository

import (
	"context"
	"errors"
	"fmt"
	blockserrors "staybook/internal/blocks/errors"
	"staybook/pkg/config"
	"staybook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "Blocks"
)

type BlockRepository interface {
	Insert(ctx context.Context, block *model.Block) error
	FindByID(ctx context.Context, id string) (*model.Block, error)

	// HasOverlapping checks block-vs-block conflicts with strict boundary
	// semantics: back-to-back blocks do not collide.
	HasOverlapping(ctx context.Context, propertyID string, dr model.DateRange, excludeBlockID string) (bool, error)

	// HasIntersecting checks block presence with inclusive boundary
	// semantics, as seen from a prospective booking.
	HasIntersecting(ctx context.Context, propertyID string, dr model.DateRange) (bool, error)

	UpdateFields(ctx context.Context, id string, propertyID string, dr model.DateRange, reason string) error
	DeleteByID(ctx context.Context, id string) (bool, error)
}

type mongoBlockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBlockRepository(cfg *config.Config) BlockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBlockRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBlockRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBlockRepository) Insert(ctx context.Context, block *model.Block) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	block.CreatedAt = now
	block.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, block); err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}
	return nil
}

func (r *mongoBlockRepository) FindByID(ctx context.Context, id string) (*model.Block, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var block model.Block
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&block)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, blockserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find block: %w", err)
	}

	return &block, nil
}

// overlappingFilter matches blocks whose range strictly overlaps dr;
// back-to-back blocks sharing a boundary date do not match.
func overlappingFilter(propertyID string, dr model.DateRange, excludeBlockID string) bson.M {
	filter := bson.M{
		"property_id": propertyID,
		"start_date":  bson.M{"$lt": dr.End},
		"end_date":    bson.M{"$gt": dr.Start},
	}
	if excludeBlockID != "" {
		filter["_id"] = bson.M{"$ne": excludeBlockID}
	}
	return filter
}

// intersectingFilter matches blocks whose range touches dr inclusively,
// boundary dates included.
func intersectingFilter(propertyID string, dr model.DateRange) bson.M {
	return bson.M{
		"property_id": propertyID,
		"start_date":  bson.M{"$lte": dr.End},
		"end_date":    bson.M{"$gte": dr.Start},
	}
}

func (r *mongoBlockRepository) HasOverlapping(ctx context.Context, propertyID string, dr model.DateRange, excludeBlockID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, overlappingFilter(propertyID, dr, excludeBlockID))
	if err != nil {
		return false, fmt.Errorf("failed to check block overlap: %w", err)
	}
	return count > 0, nil
}

func (r *mongoBlockRepository) HasIntersecting(ctx context.Context, propertyID string, dr model.DateRange) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, intersectingFilter(propertyID, dr))
	if err != nil {
		return false, fmt.Errorf("failed to check block intersection: %w", err)
	}
	return count > 0, nil
}

func (r *mongoBlockRepository) UpdateFields(ctx context.Context, id string, propertyID string, dr model.DateRange, reason string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"property_id": propertyID,
			"start_date":  dr.Start,
			"end_date":    dr.End,
			"reason":      reason,
			"updated_at":  time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update block: %w", err)
	}
	if result.MatchedCount == 0 {
		return blockserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBlockRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete block: %w", err)
	}
	return result.DeletedCount > 0, nil
}
