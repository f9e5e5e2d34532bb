package service

import (
	"context"
	"errors"
	"net/http"
	propertieserrors "staybook/internal/properties/errors"
	"staybook/internal/properties/repository"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type PropertyService interface {
	Create(ctx context.Context, req *model.PropertyRequest) (*model.Property, error)
	GetByID(ctx context.Context, id string) (*model.Property, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type propertyService struct {
	repo     repository.PropertyRepository
	validate *playgroundvalidator.Validate
	cfg      *config.Config
}

func NewPropertyService(repo repository.PropertyRepository, cfg *config.Config) PropertyService {
	return &propertyService{
		repo:     repo,
		validate: playgroundvalidator.New(),
		cfg:      cfg,
	}
}

func (s *propertyService) Create(ctx context.Context, req *model.PropertyRequest) (*model.Property, error) {
	if err := s.validate.Struct(req); err != nil {
		s.cfg.Log.Warn("Property validation failed", "error", err)
		return nil, apperrors.Validation("Invalid property request", map[string]any{"error": err.Error()})
	}

	property := &model.Property{
		ID:          uuid.NewString(),
		Alias:       req.Alias,
		Description: req.Description,
	}

	if err := s.repo.Insert(ctx, property); err != nil {
		s.cfg.Log.Error("Failed to create property", "alias", req.Alias, "error", err)
		return nil, apperrors.Internal("Unexpected error while creating property", err)
	}

	s.cfg.Log.Info("Property created", "id", property.ID, "alias", property.Alias)
	return property, nil
}

func (s *propertyService) GetByID(ctx context.Context, id string) (*model.Property, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Property ID cannot be empty")
	}

	property, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, propertieserrors.ErrNotFound) {
			return nil, apperrors.Wrap(propertieserrors.ErrNotFound, apperrors.CodeNotFound,
				"Property not found", http.StatusNotFound).WithDetails(map[string]any{"id": id})
		}
		return nil, apperrors.Internal("Failed to retrieve property", err)
	}
	return property, nil
}

func (s *propertyService) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}
