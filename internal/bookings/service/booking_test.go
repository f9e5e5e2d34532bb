package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/validator"
	"staybook/internal/events"
	"staybook/internal/idempotency"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/lock"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockBookingRepository struct {
	insertFunc               func(ctx context.Context, booking *model.Booking) error
	findByIDFunc             func(ctx context.Context, id string) (*model.Booking, error)
	updateStatusFunc         func(ctx context.Context, id string, status model.BookingStatus) error
	updateStatusAndRangeFunc func(ctx context.Context, id string, status model.BookingStatus, dr model.DateRange) error
	updateDetailsFunc        func(ctx context.Context, id string, dr model.DateRange, guest string, numberGuests int) error
	deleteByIDFunc           func(ctx context.Context, id string) (bool, error)
}

func (m *mockBookingRepository) Insert(ctx context.Context, booking *model.Booking) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, booking)
	}
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) HasConfirmedOverlap(ctx context.Context, propertyID string, dr model.DateRange, excludeBookingID string) (bool, error) {
	return false, nil
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockBookingRepository) UpdateStatusAndRange(ctx context.Context, id string, status model.BookingStatus, dr model.DateRange) error {
	if m.updateStatusAndRangeFunc != nil {
		return m.updateStatusAndRangeFunc(ctx, id, status, dr)
	}
	return nil
}

func (m *mockBookingRepository) UpdateDetails(ctx context.Context, id string, dr model.DateRange, guest string, numberGuests int) error {
	if m.updateDetailsFunc != nil {
		return m.updateDetailsFunc(ctx, id, dr, guest, numberGuests)
	}
	return nil
}

func (m *mockBookingRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	if m.deleteByIDFunc != nil {
		return m.deleteByIDFunc(ctx, id)
	}
	return false, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockOracle struct {
	canBookFunc func(ctx context.Context, propertyID string, r model.DateRange, excludeBookingID string) (bool, error)
}

func (m *mockOracle) CanBook(ctx context.Context, propertyID string, r model.DateRange, excludeBookingID string) (bool, error) {
	if m.canBookFunc != nil {
		return m.canBookFunc(ctx, propertyID, r, excludeBookingID)
	}
	return true, nil
}

type mockProperties struct {
	existsFunc func(ctx context.Context, propertyID string) (bool, error)
}

func (m *mockProperties) Exists(ctx context.Context, propertyID string) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, propertyID)
	}
	return true, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// ────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────

func day(d int) time.Time {
	return time.Date(2026, time.April, d, 0, 0, 0, 0, time.UTC)
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
}

type fixture struct {
	repo       *mockBookingRepository
	oracle     *mockOracle
	properties *mockProperties
	idem       *idempotency.MemoryStore
	registry   *lock.Registry
	publisher  *capturingPublisher
	service    BookingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testConfig()
	f := &fixture{
		repo:       &mockBookingRepository{},
		oracle:     &mockOracle{},
		properties: &mockProperties{},
		idem:       idempotency.NewMemoryStore(),
		registry:   lock.NewRegistry(time.Minute, time.Minute),
		publisher:  &capturingPublisher{},
	}
	t.Cleanup(f.registry.Stop)

	f.service = NewBookingService(
		f.repo,
		f.registry,
		f.oracle,
		f.properties,
		f.idem,
		validator.NewBookingValidator(cfg.Log),
		f.publisher,
		cfg,
	)
	return f
}

func validRequest() *model.BookingRequest {
	return &model.BookingRequest{
		PropertyID:   "prop-1",
		StartDate:    day(10),
		EndDate:      day(14),
		Guest:        "Ada Lovelace",
		NumberGuests: 2,
	}
}

func wantConflict(t *testing.T, err error, sentinel error) {
	t.Helper()
	if !apperrors.IsAppError(err) {
		t.Fatalf("expected AppError, got %v", err)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != http.StatusConflict {
		t.Errorf("status = %d, want %d", appErr.HTTPStatus, http.StatusConflict)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error %v does not wrap %v", err, sentinel)
	}
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate_Success(t *testing.T) {
	f := newFixture(t)

	var inserted *model.Booking
	f.repo.insertFunc = func(_ context.Context, b *model.Booking) error {
		inserted = b
		return nil
	}

	booking, err := f.service.Create(context.Background(), validRequest(), uuid.New())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if booking.ID == "" {
		t.Error("expected a minted booking ID")
	}
	if booking.Status != model.BookingConfirmed {
		t.Errorf("status = %q, want %q", booking.Status, model.BookingConfirmed)
	}
	if inserted == nil || inserted.ID != booking.ID {
		t.Error("booking was not persisted")
	}
	if got := f.publisher.types(); len(got) != 1 || got[0] != events.TypeBookingCreated {
		t.Errorf("published events = %v, want [%s]", got, events.TypeBookingCreated)
	}
}

func TestCreate_Overlap(t *testing.T) {
	f := newFixture(t)
	f.oracle.canBookFunc = func(context.Context, string, model.DateRange, string) (bool, error) {
		return false, nil
	}

	inserts := 0
	f.repo.insertFunc = func(context.Context, *model.Booking) error {
		inserts++
		return nil
	}

	_, err := f.service.Create(context.Background(), validRequest(), uuid.New())
	wantConflict(t, err, bookingserrors.ErrOverlap)
	if inserts != 0 {
		t.Errorf("insert ran %d times despite conflict", inserts)
	}
}

func TestCreate_AdmissionBusy(t *testing.T) {
	f := newFixture(t)

	if err := f.registry.TryAcquire("prop-1"); err != nil {
		t.Fatalf("pre-acquire failed: %v", err)
	}
	defer f.registry.Release("prop-1")

	_, err := f.service.Create(context.Background(), validRequest(), uuid.New())
	wantConflict(t, err, lock.ErrBusy)
}

func TestCreate_ReleasesLockAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.insertFunc = func(context.Context, *model.Booking) error {
		return errors.New("write failed")
	}

	if _, err := f.service.Create(context.Background(), validRequest(), uuid.New()); err == nil {
		t.Fatal("expected error from failed insert")
	}

	// The lock must be free for the next attempt.
	f.repo.insertFunc = nil
	if _, err := f.service.Create(context.Background(), validRequest(), uuid.New()); err != nil {
		t.Fatalf("retry after failure returned error: %v", err)
	}
}

func TestCreate_SingleDayRangeRejected(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.EndDate = req.StartDate

	_, err := f.service.Create(context.Background(), req, uuid.New())
	if !apperrors.IsAppError(err) {
		t.Fatalf("expected AppError, got %v", err)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", appErr.HTTPStatus, http.StatusBadRequest)
	}
	if !errors.Is(err, model.ErrInvalidDateRange) {
		t.Errorf("error %v does not wrap ErrInvalidDateRange", err)
	}
}

func TestCreate_PropertyNotFound(t *testing.T) {
	f := newFixture(t)
	f.properties.existsFunc = func(context.Context, string) (bool, error) {
		return false, nil
	}

	_, err := f.service.Create(context.Background(), validRequest(), uuid.New())
	if !apperrors.IsAppError(err) {
		t.Fatalf("expected AppError, got %v", err)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("status = %d, want %d", appErr.HTTPStatus, http.StatusNotFound)
	}
}

func TestCreate_ValidationFailure(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.Guest = ""

	_, err := f.service.Create(context.Background(), req, uuid.New())
	if !apperrors.IsAppError(err) {
		t.Fatalf("expected AppError, got %v", err)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeValidation {
		t.Errorf("code = %q, want %q", appErr.Code, apperrors.CodeValidation)
	}
}

func TestCreate_IdempotentReplay(t *testing.T) {
	f := newFixture(t)

	inserts := 0
	f.repo.insertFunc = func(context.Context, *model.Booking) error {
		inserts++
		return nil
	}

	key := uuid.New()
	first, err := f.service.Create(context.Background(), validRequest(), key)
	if err != nil {
		t.Fatalf("first Create returned error: %v", err)
	}

	second, err := f.service.Create(context.Background(), validRequest(), key)
	if err != nil {
		t.Fatalf("replayed Create returned error: %v", err)
	}

	if inserts != 1 {
		t.Errorf("insert ran %d times, want 1", inserts)
	}
	if second.ID != first.ID {
		t.Errorf("replay returned ID %q, want %q", second.ID, first.ID)
	}
}

// ────────────────────────────────────────────────
// Cancel
// ────────────────────────────────────────────────

func TestCancel_Success(t *testing.T) {
	f := newFixture(t)

	stored := &model.Booking{ID: "b-1", PropertyID: "prop-1", Status: model.BookingConfirmed}
	f.repo.findByIDFunc = func(context.Context, string) (*model.Booking, error) {
		copied := *stored
		return &copied, nil
	}
	f.repo.updateStatusFunc = func(_ context.Context, _ string, status model.BookingStatus) error {
		stored.Status = status
		return nil
	}

	booking, err := f.service.Cancel(context.Background(), "b-1", uuid.New())
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if booking.Status != model.BookingCancelled {
		t.Errorf("status = %q, want %q", booking.Status, model.BookingCancelled)
	}
	if got := f.publisher.types(); len(got) != 1 || got[0] != events.TypeBookingCancelled {
		t.Errorf("published events = %v, want [%s]", got, events.TypeBookingCancelled)
	}
}

func TestCancel_AlreadyCancelledIsNoop(t *testing.T) {
	f := newFixture(t)

	f.repo.findByIDFunc = func(context.Context, string) (*model.Booking, error) {
		return &model.Booking{ID: "b-1", Status: model.BookingCancelled}, nil
	}

	updates := 0
	f.repo.updateStatusFunc = func(context.Context, string, model.BookingStatus) error {
		updates++
		return nil
	}

	booking, err := f.service.Cancel(context.Background(), "b-1", uuid.New())
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if booking.Status != model.BookingCancelled {
		t.Errorf("status = %q, want %q", booking.Status, model.BookingCancelled)
	}
	if updates != 0 {
		t.Errorf("status update ran %d times for already cancelled booking", updates)
	}
	if got := f.publisher.types(); len(got) != 0 {
		t.Errorf("published events = %v, want none", got)
	}
}

func TestCancel_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Cancel(context.Background(), "missing", uuid.New())
	if !apperrors.IsAppError(err) {
		t.Fatalf("expected AppError, got %v", err)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("status = %d, want %d", appErr.HTTPStatus, http.StatusNotFound)
	}
}

// ────────────────────────────────────────────────
// Rebook
// ────────────────────────────────────────────────

func TestRebook_Success(t *testing.T) {
	f := newFixture(t)

	stored := &model.Booking{
		ID:         "b-1",
		PropertyID: "prop-1",
		StartDate:  day(1),
		EndDate:    day(3),
		Status:     model.BookingCancelled,
	}
	f.repo.findByIDFunc = func(context.Context, string) (*model.Booking, error) {
		copied := *stored
		return &copied, nil
	}
	f.repo.updateStatusAndRangeFunc = func(_ context.Context, _ string, status model.BookingStatus, dr model.DateRange) error {
		stored.Status = status
		stored.StartDate = dr.Start
		stored.EndDate = dr.End
		return nil
	}

	var gotExclude string
	f.oracle.canBookFunc = func(_ context.Context, _ string, _ model.DateRange, excludeBookingID string) (bool, error) {
		gotExclude = excludeBookingID
		return true, nil
	}

	booking, err := f.service.Rebook(context.Background(), "b-1", &model.RebookRequest{StartDate: day(10), EndDate: day(12)}, uuid.New())
	if err != nil {
		t.Fatalf("Rebook returned error: %v", err)
	}
	if booking.Status != model.BookingConfirmed {
		t.Errorf("status = %q, want %q", booking.Status, model.BookingConfirmed)
	}
	if !booking.StartDate.Equal(day(10)) || !booking.EndDate.Equal(day(12)) {
		t.Errorf("range = [%v, %v], want [%v, %v]", booking.StartDate, booking.EndDate, day(10), day(12))
	}
	if gotExclude != "b-1" {
		t.Errorf("availability excluded %q, want the booking itself", gotExclude)
	}
}

func TestRebook_RequiresCancelled(t *testing.T) {
	f := newFixture(t)

	f.repo.findByIDFunc = func(context.Context, string) (*model.Booking, error) {
		return &model.Booking{ID: "b-1", Status: model.BookingConfirmed}, nil
	}

	_, err := f.service.Rebook(context.Background(), "b-1", &model.RebookRequest{StartDate: day(10), EndDate: day(12)}, uuid.New())
	wantConflict(t, err, bookingserrors.ErrRebookNotAllowed)
}

func TestRebook_Overlap(t *testing.T) {
	f := newFixture(t)

	f.repo.findByIDFunc = func(context.Context, string) (*model.Booking, error) {
		return &model.Booking{ID: "b-1", PropertyID: "prop-1", Status: model.BookingCancelled}, nil
	}
	f.oracle.canBookFunc = func(context.Context, string, model.DateRange, string) (bool, error) {
		return false, nil
	}

	_, err := f.service.Rebook(context.Background(), "b-1", &model.RebookRequest{StartDate: day(10), EndDate: day(12)}, uuid.New())
	wantConflict(t, err, bookingserrors.ErrOverlap)
}

func TestRebook_ValidationFailure(t *testing.T) {
	f := newFixture(t)

	fetches := 0
	f.repo.findByIDFunc = func(context.Context, string) (*model.Booking, error) {
		fetches++
		return &model.Booking{ID: "b-1", Status: model.BookingCancelled}, nil
	}

	_, err := f.service.Rebook(context.Background(), "b-1", &model.RebookRequest{StartDate: day(10)}, uuid.New())
	if !apperrors.IsAppError(err) {
		t.Fatalf("expected AppError, got %v", err)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeValidation {
		t.Errorf("code = %q, want %q", appErr.Code, apperrors.CodeValidation)
	}
	if fetches != 0 {
		t.Errorf("fetched %d times before validation", fetches)
	}
}

// ────────────────────────────────────────────────
// Update
// ────────────────────────────────────────────────

func TestUpdate_MergesFields(t *testing.T) {
	f := newFixture(t)

	stored := &model.Booking{
		ID:           "b-1",
		PropertyID:   "prop-1",
		StartDate:    day(1),
		EndDate:      day(5),
		Guest:        "Ada Lovelace",
		NumberGuests: 2,
		Status:       model.BookingConfirmed,
	}
	f.repo.findByIDFunc = func(context.Context, string) (*model.Booking, error) {
		copied := *stored
		return &copied, nil
	}

	var gotGuest string
	var gotGuests int
	var gotRange model.DateRange
	f.repo.updateDetailsFunc = func(_ context.Context, _ string, dr model.DateRange, guest string, numberGuests int) error {
		gotRange, gotGuest, gotGuests = dr, guest, numberGuests
		stored.StartDate, stored.EndDate = dr.Start, dr.End
		stored.Guest, stored.NumberGuests = guest, numberGuests
		return nil
	}

	newEnd := day(7)
	_, err := f.service.Update(context.Background(), "b-1", &model.BookingUpdate{
		EndDate: &newEnd,
		Guest:   "Grace Hopper",
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if !gotRange.Start.Equal(day(1)) || !gotRange.End.Equal(day(7)) {
		t.Errorf("range = [%v, %v], want start kept and end replaced", gotRange.Start, gotRange.End)
	}
	if gotGuest != "Grace Hopper" {
		t.Errorf("guest = %q, want %q", gotGuest, "Grace Hopper")
	}
	if gotGuests != 2 {
		t.Errorf("number of guests = %d, want original value kept", gotGuests)
	}
}

func TestUpdate_CancelledRejected(t *testing.T) {
	f := newFixture(t)

	f.repo.findByIDFunc = func(context.Context, string) (*model.Booking, error) {
		return &model.Booking{ID: "b-1", Status: model.BookingCancelled}, nil
	}

	_, err := f.service.Update(context.Background(), "b-1", &model.BookingUpdate{Guest: "Grace Hopper"})
	wantConflict(t, err, bookingserrors.ErrUpdateNotAllowed)
}

func TestUpdate_Overlap(t *testing.T) {
	f := newFixture(t)

	f.repo.findByIDFunc = func(context.Context, string) (*model.Booking, error) {
		return &model.Booking{
			ID: "b-1", PropertyID: "prop-1",
			StartDate: day(1), EndDate: day(5),
			Guest: "Ada Lovelace", NumberGuests: 2,
			Status: model.BookingConfirmed,
		}, nil
	}
	f.oracle.canBookFunc = func(context.Context, string, model.DateRange, string) (bool, error) {
		return false, nil
	}

	newEnd := day(9)
	_, err := f.service.Update(context.Background(), "b-1", &model.BookingUpdate{EndDate: &newEnd})
	wantConflict(t, err, bookingserrors.ErrOverlap)
}

// ────────────────────────────────────────────────
// Delete
// ────────────────────────────────────────────────

func TestDelete(t *testing.T) {
	f := newFixture(t)

	f.repo.deleteByIDFunc = func(_ context.Context, id string) (bool, error) {
		return id == "b-1", nil
	}

	deleted, err := f.service.Delete(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !deleted {
		t.Error("expected deleted = true for existing booking")
	}

	deleted, err = f.service.Delete(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if deleted {
		t.Error("expected deleted = false for missing booking")
	}
}
