package service

import (
	"context"
	"errors"
	"net/http"
	blockserrors "staybook/internal/blocks/errors"
	"staybook/internal/blocks/repository"
	"staybook/internal/blocks/validator"
	"staybook/internal/events"
	"staybook/internal/idempotency"
	propertieserrors "staybook/internal/properties/errors"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"

	"github.com/google/uuid"
)

// BlockAvailability answers whether a range is free of confirmed bookings so
// an owner can hold it.
type BlockAvailability interface {
	CanBlock(ctx context.Context, propertyID string, r model.DateRange) (bool, error)
}

// PropertyResolver checks that the target property exists.
type PropertyResolver interface {
	Exists(ctx context.Context, propertyID string) (bool, error)
}

type BlockService interface {
	Create(ctx context.Context, req *model.BlockRequest, idempotencyKey uuid.UUID) (*model.Block, error)
	GetByID(ctx context.Context, id string) (*model.Block, error)
	Update(ctx context.Context, id string, req *model.BlockRequest) (*model.Block, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type blockService struct {
	repo         repository.BlockRepository
	availability BlockAvailability
	properties   PropertyResolver
	idem         idempotency.Store
	validator    *validator.BlockValidator
	publisher    events.Publisher
	cfg          *config.Config
	newID        func() string
}

func NewBlockService(
	repo repository.BlockRepository,
	availability BlockAvailability,
	properties PropertyResolver,
	idem idempotency.Store,
	blockValidator *validator.BlockValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BlockService {
	return &blockService{
		repo:         repo,
		availability: availability,
		properties:   properties,
		idem:         idem,
		validator:    blockValidator,
		publisher:    publisher,
		cfg:          cfg,
		newID:        uuid.NewString,
	}
}

// Create places an owner hold on the property. Single-day blocks are legal,
// and back-to-back blocks are not conflicts; any touching confirmed booking
// is.
func (s *blockService) Create(ctx context.Context, req *model.BlockRequest, idempotencyKey uuid.UUID) (*model.Block, error) {
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Block validation failed", "error", err)
		return nil, apperrors.Validation("Invalid block request", map[string]any{"error": err.Error()})
	}

	if replay, err := s.replay(ctx, idempotencyKey); replay != nil || err != nil {
		return replay, err
	}

	dr := model.NewDateRange(req.StartDate, req.EndDate)
	if err := dr.Validate(true); err != nil {
		return nil, invalidRange("The end date cannot be before the start date.")
	}

	if err := s.checkAvailability(ctx, req.PropertyID, dr, ""); err != nil {
		return nil, err
	}

	exists, err := s.properties.Exists(ctx, req.PropertyID)
	if err != nil {
		return nil, apperrors.Internal("Failed to resolve property", err)
	}
	if !exists {
		return nil, apperrors.Wrap(propertieserrors.ErrNotFound, apperrors.CodeNotFound,
			"Property not found", http.StatusNotFound)
	}

	block := &model.Block{
		ID:         s.newID(),
		PropertyID: req.PropertyID,
		Reason:     req.Reason,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}

	if err := s.repo.Insert(ctx, block); err != nil {
		s.cfg.Log.Error("Failed to create block", "property_id", req.PropertyID, "error", err)
		return nil, apperrors.Internal("Unexpected error while creating block", err)
	}

	if err := s.store(ctx, idempotencyKey, block); err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.TypeBlockCreated, block.PropertyID, block))
	s.cfg.Log.Info("Block created",
		"id", block.ID,
		"property_id", block.PropertyID,
		"start_date", block.StartDate,
		"end_date", block.EndDate,
	)
	return block, nil
}

func (s *blockService) GetByID(ctx context.Context, id string) (*model.Block, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Block ID cannot be empty")
	}
	return s.fetch(ctx, id)
}

// Update rewrites the block's property, range, and reason in place; a block
// may be re-homed to a different property. The new range is re-checked
// against the target property's blocks and confirmed bookings, excluding the
// block itself.
func (s *blockService) Update(ctx context.Context, id string, req *model.BlockRequest) (*model.Block, error) {
	if err := s.validator.ValidateUpdate(req); err != nil {
		s.cfg.Log.Warn("Block update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid block request", map[string]any{"error": err.Error()})
	}

	if _, err := s.fetch(ctx, id); err != nil {
		return nil, err
	}

	dr := model.NewDateRange(req.StartDate, req.EndDate)
	if err := dr.Validate(true); err != nil {
		return nil, invalidRange("The end date cannot be before the start date.")
	}

	if err := s.checkAvailability(ctx, req.PropertyID, dr, id); err != nil {
		return nil, err
	}

	exists, err := s.properties.Exists(ctx, req.PropertyID)
	if err != nil {
		return nil, apperrors.Internal("Failed to resolve property", err)
	}
	if !exists {
		return nil, apperrors.Wrap(propertieserrors.ErrNotFound, apperrors.CodeNotFound,
			"Property not found", http.StatusNotFound)
	}

	if err := s.repo.UpdateFields(ctx, id, req.PropertyID, dr, req.Reason); err != nil {
		if errors.Is(err, blockserrors.ErrNotFound) {
			return nil, apperrors.Wrap(blockserrors.ErrNotFound, apperrors.CodeNotFound,
				"Block not found", http.StatusNotFound).WithDetails(map[string]any{"id": id})
		}
		s.cfg.Log.Error("Failed to update block", "id", id, "error", err)
		return nil, apperrors.Internal("Unexpected error while updating block", err)
	}

	block, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.TypeBlockUpdated, block.PropertyID, block))
	s.cfg.Log.Info("Block updated", "id", id, "property_id", block.PropertyID)
	return block, nil
}

// Delete removes the block unconditionally and reports whether anything was
// removed.
func (s *blockService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to delete block", "id", id, "error", err)
		return false, apperrors.Internal("Unexpected error while deleting block", err)
	}

	if deleted {
		s.publish(ctx, events.New(events.TypeBlockDeleted, "", map[string]string{"id": id}))
		s.cfg.Log.Info("Block deleted", "id", id)
	}
	return deleted, nil
}

// --- Helpers ---

// checkAvailability rejects the range when it overlaps another block (strict
// boundaries) or any confirmed booking (inclusive boundaries).
func (s *blockService) checkAvailability(ctx context.Context, propertyID string, dr model.DateRange, excludeBlockID string) error {
	blockConflict, err := s.repo.HasOverlapping(ctx, propertyID, dr, excludeBlockID)
	if err != nil {
		return apperrors.Internal("Failed to check block overlap", err)
	}
	if blockConflict {
		return apperrors.ConflictWrap(blockserrors.ErrOverlap,
			"The requested dates overlap an existing block.")
	}

	ok, err := s.availability.CanBlock(ctx, propertyID, dr)
	if err != nil {
		return apperrors.Internal("Failed to check availability", err)
	}
	if !ok {
		return apperrors.ConflictWrap(blockserrors.ErrOverlap,
			"The requested dates overlap a confirmed booking.")
	}
	return nil
}

func (s *blockService) fetch(ctx context.Context, id string) (*model.Block, error) {
	block, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, blockserrors.ErrNotFound) {
			return nil, apperrors.Wrap(blockserrors.ErrNotFound, apperrors.CodeNotFound,
				"Block not found", http.StatusNotFound).WithDetails(map[string]any{"id": id})
		}
		return nil, apperrors.Internal("Failed to retrieve block", err)
	}
	return block, nil
}

func (s *blockService) replay(ctx context.Context, key uuid.UUID) (*model.Block, error) {
	var cached model.Block
	hit, err := s.idem.Get(ctx, key, &cached)
	if err != nil {
		if errors.Is(err, idempotency.ErrSerialization) {
			return nil, apperrors.SerializationFault("Stored idempotency record is unreadable", err)
		}
		return nil, apperrors.Internal("Failed to look up idempotency record", err)
	}
	if !hit {
		return nil, nil
	}

	s.cfg.Log.Info("Replaying idempotent response", "idempotency_key", key)
	return &cached, nil
}

func (s *blockService) store(ctx context.Context, key uuid.UUID, block *model.Block) error {
	if err := s.idem.Put(ctx, key, block); err != nil {
		if errors.Is(err, idempotency.ErrSerialization) {
			return apperrors.SerializationFault("Failed to serialize idempotency record", err)
		}
		return apperrors.Internal("Failed to store idempotency record", err)
	}
	return nil
}

func (s *blockService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "type", event.Type, "error", err)
	}
}

func invalidRange(message string) error {
	return apperrors.Wrap(model.ErrInvalidDateRange, apperrors.CodeInvalidInput,
		message, http.StatusBadRequest)
}
