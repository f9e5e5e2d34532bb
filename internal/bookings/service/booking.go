package service

import (
	"context"
	"errors"
	"net/http"
	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/validator"
	"staybook/internal/events"
	"staybook/internal/idempotency"
	propertieserrors "staybook/internal/properties/errors"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/lock"
	"staybook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// AvailabilityOracle answers whether a range can be booked given the latest
// committed bookings and blocks.
type AvailabilityOracle interface {
	CanBook(ctx context.Context, propertyID string, r model.DateRange, excludeBookingID string) (bool, error)
}

// PropertyResolver checks that the target property exists.
type PropertyResolver interface {
	Exists(ctx context.Context, propertyID string) (bool, error)
}

// AdmissionLocks serializes booking-creation critical sections per property.
type AdmissionLocks interface {
	WithLock(resourceID string, fn func() error) error
}

type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest, idempotencyKey uuid.UUID) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Cancel(ctx context.Context, id string, idempotencyKey uuid.UUID) (*model.Booking, error)
	Rebook(ctx context.Context, id string, req *model.RebookRequest, idempotencyKey uuid.UUID) (*model.Booking, error)
	Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type bookingService struct {
	repo         repository.BookingRepository
	locks        AdmissionLocks
	availability AvailabilityOracle
	properties   PropertyResolver
	idem         idempotency.Store
	validator    *validator.BookingValidator
	publisher    events.Publisher
	cfg          *config.Config
	newID        func() string
}

func NewBookingService(
	repo repository.BookingRepository,
	locks AdmissionLocks,
	availability AvailabilityOracle,
	properties PropertyResolver,
	idem idempotency.Store,
	bookingValidator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:         repo,
		locks:        locks,
		availability: availability,
		properties:   properties,
		idem:         idem,
		validator:    bookingValidator,
		publisher:    publisher,
		cfg:          cfg,
		newID:        uuid.NewString,
	}
}

// Create admits at most one in-flight creation per property: the admission
// lock serializes the availability check and the insert, and contention is
// surfaced immediately as a conflict rather than queued.
func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest, idempotencyKey uuid.UUID) (*model.Booking, error) {
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Invalid booking request", map[string]any{"error": err.Error()})
	}

	if replay, err := s.replay(ctx, idempotencyKey); replay != nil || err != nil {
		return replay, err
	}

	var booking *model.Booking
	err := s.locks.WithLock(req.PropertyID, func() error {
		return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			created, err := s.doCreate(sessCtx, req, idempotencyKey)
			if err != nil {
				return err
			}
			booking = created
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			return nil, apperrors.ConflictWrap(lock.ErrBusy,
				"A booking for this property is already in progress. Please try again.")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.Error("Failed to create booking", "property_id", req.PropertyID, "error", err)
		return nil, apperrors.Internal("Unexpected error while creating booking", err)
	}

	s.publish(ctx, events.New(events.TypeBookingCreated, booking.PropertyID, booking))
	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"property_id", booking.PropertyID,
		"start_date", booking.StartDate,
		"end_date", booking.EndDate,
	)
	return booking, nil
}

func (s *bookingService) doCreate(ctx context.Context, req *model.BookingRequest, idempotencyKey uuid.UUID) (*model.Booking, error) {
	dr := model.NewDateRange(req.StartDate, req.EndDate)
	if err := dr.Validate(false); err != nil {
		return nil, invalidRange("The end date must be after the start date; bookings need at least one night.")
	}

	ok, err := s.availability.CanBook(ctx, req.PropertyID, dr, "")
	if err != nil {
		return nil, apperrors.Internal("Failed to check availability", err)
	}
	if !ok {
		return nil, apperrors.ConflictWrap(bookingserrors.ErrOverlap,
			"The property is not available for the requested dates.")
	}

	exists, err := s.properties.Exists(ctx, req.PropertyID)
	if err != nil {
		return nil, apperrors.Internal("Failed to resolve property", err)
	}
	if !exists {
		return nil, apperrors.Wrap(propertieserrors.ErrNotFound, apperrors.CodeNotFound,
			"Property not found", http.StatusNotFound)
	}

	booking := &model.Booking{
		ID:           s.newID(),
		PropertyID:   req.PropertyID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Guest:        req.Guest,
		NumberGuests: req.NumberGuests,
		Status:       model.BookingConfirmed,
	}

	if err := s.repo.Insert(ctx, booking); err != nil {
		return nil, apperrors.Internal("Failed to persist booking", err)
	}

	if err := s.store(ctx, idempotencyKey, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	return s.fetch(ctx, id)
}

// Cancel is an idempotent no-op when the booking is already cancelled: the
// existing state is returned and recorded without a write.
func (s *bookingService) Cancel(ctx context.Context, id string, idempotencyKey uuid.UUID) (*model.Booking, error) {
	if replay, err := s.replay(ctx, idempotencyKey); replay != nil || err != nil {
		return replay, err
	}

	booking, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	cancelled := false
	if !booking.Status.IsCancelled() {
		if err := s.repo.UpdateStatus(ctx, id, model.BookingCancelled); err != nil {
			s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
			return nil, apperrors.Internal("Unexpected error while cancelling booking", err)
		}
		cancelled = true

		booking, err = s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store(ctx, idempotencyKey, booking); err != nil {
		return nil, err
	}

	if cancelled {
		s.publish(ctx, events.New(events.TypeBookingCancelled, booking.PropertyID, booking))
		s.cfg.Log.Info("Booking cancelled", "id", id, "property_id", booking.PropertyID)
	}
	return booking, nil
}

// Rebook moves a cancelled booking back to confirmed with a new range. The
// range is re-checked against current availability, excluding the booking
// itself from the candidate set.
func (s *bookingService) Rebook(ctx context.Context, id string, req *model.RebookRequest, idempotencyKey uuid.UUID) (*model.Booking, error) {
	if err := s.validator.ValidateRebook(req); err != nil {
		return nil, apperrors.Validation("Invalid rebook request", map[string]any{"error": err.Error()})
	}

	if replay, err := s.replay(ctx, idempotencyKey); replay != nil || err != nil {
		return replay, err
	}

	booking, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if !booking.Status.IsCancelled() {
		return nil, apperrors.ConflictWrap(bookingserrors.ErrRebookNotAllowed,
			"Booking cannot be rebooked unless it is cancelled.")
	}

	dr := model.NewDateRange(req.StartDate, req.EndDate)
	if err := dr.Validate(false); err != nil {
		return nil, invalidRange("The end date must be after the start date; bookings need at least one night.")
	}

	ok, err := s.availability.CanBook(ctx, booking.PropertyID, dr, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to check availability", err)
	}
	if !ok {
		return nil, apperrors.ConflictWrap(bookingserrors.ErrOverlap,
			"The property is not available for the requested dates.")
	}

	if err := s.repo.UpdateStatusAndRange(ctx, id, model.BookingConfirmed, dr); err != nil {
		s.cfg.Log.Error("Failed to rebook booking", "id", id, "error", err)
		return nil, apperrors.Internal("Unexpected error while rebooking booking", err)
	}

	booking, err = s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store(ctx, idempotencyKey, booking); err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.TypeBookingRebooked, booking.PropertyID, booking))
	s.cfg.Log.Info("Booking rebooked", "id", id, "property_id", booking.PropertyID)
	return booking, nil
}

// Update merges the provided fields over the stored booking; absent dates,
// blank guest names, and non-positive guest counts keep their current
// values. Cancelled bookings reject updates.
func (s *bookingService) Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	booking, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.Status.IsCancelled() {
		return nil, apperrors.ConflictWrap(bookingserrors.ErrUpdateNotAllowed,
			"Booking updates are allowed only while the booking is active.")
	}

	merged := mergeUpdates(booking, updates)
	dr := merged.Range()
	if err := dr.Validate(false); err != nil {
		return nil, invalidRange("The end date must be after the start date; bookings need at least one night.")
	}

	ok, err := s.availability.CanBook(ctx, booking.PropertyID, dr, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to check availability", err)
	}
	if !ok {
		return nil, apperrors.ConflictWrap(bookingserrors.ErrOverlap,
			"The property is not available for the requested dates.")
	}

	if err := s.repo.UpdateDetails(ctx, id, dr, merged.Guest, merged.NumberGuests); err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return nil, apperrors.Internal("Unexpected error while updating booking", err)
	}

	booking, err = s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.TypeBookingUpdated, booking.PropertyID, booking))
	s.cfg.Log.Info("Booking updated", "id", id, "property_id", booking.PropertyID)
	return booking, nil
}

// Delete removes the booking unconditionally and reports whether a row was
// actually removed; a missing booking is not an error.
func (s *bookingService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to delete booking", "id", id, "error", err)
		return false, apperrors.Internal("Unexpected error while deleting booking", err)
	}

	if deleted {
		s.publish(ctx, events.New(events.TypeBookingDeleted, "", map[string]string{"id": id}))
		s.cfg.Log.Info("Booking deleted", "id", id)
	}
	return deleted, nil
}

// --- Helpers ---

func (s *bookingService) fetch(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.Wrap(bookingserrors.ErrNotFound, apperrors.CodeNotFound,
				"Booking not found", http.StatusNotFound).WithDetails(map[string]any{"id": id})
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

// replay returns the stored response for the key, if any. Corrupt records
// escalate as serialization faults; they are never business errors.
func (s *bookingService) replay(ctx context.Context, key uuid.UUID) (*model.Booking, error) {
	var cached model.Booking
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

func (s *bookingService) store(ctx context.Context, key uuid.UUID, booking *model.Booking) error {
	if err := s.idem.Put(ctx, key, booking); err != nil {
		if errors.Is(err, idempotency.ErrSerialization) {
			return apperrors.SerializationFault("Failed to serialize idempotency record", err)
		}
		return apperrors.Internal("Failed to store idempotency record", err)
	}
	return nil
}

func (s *bookingService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "type", event.Type, "error", err)
	}
}

func mergeUpdates(existing *model.Booking, updates *model.BookingUpdate) *model.Booking {
	merged := *existing

	if updates.StartDate != nil {
		merged.StartDate = *updates.StartDate
	}
	if updates.EndDate != nil {
		merged.EndDate = *updates.EndDate
	}
	if updates.Guest != "" {
		merged.Guest = updates.Guest
	}
	if updates.NumberGuests > 0 {
		merged.NumberGuests = updates.NumberGuests
	}

	return &merged
}

func invalidRange(message string) error {
	return apperrors.Wrap(model.ErrInvalidDateRange, apperrors.CodeInvalidInput,
		message, http.StatusBadRequest)
}
