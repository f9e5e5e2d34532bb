package availability

import (
	"context"
	"errors"
	"staybook/pkg/model"
	"testing"
)

type mockBookingReader struct {
	hasConfirmedOverlapFunc func(ctx context.Context, propertyID string, r model.DateRange, excludeBookingID string) (bool, error)
}

func (m *mockBookingReader) HasConfirmedOverlap(ctx context.Context, propertyID string, r model.DateRange, excludeBookingID string) (bool, error) {
	if m.hasConfirmedOverlapFunc != nil {
		return m.hasConfirmedOverlapFunc(ctx, propertyID, r, excludeBookingID)
	}
	return false, nil
}

type mockBlockReader struct {
	hasIntersectingFunc func(ctx context.Context, propertyID string, r model.DateRange) (bool, error)
}

func (m *mockBlockReader) HasIntersecting(ctx context.Context, propertyID string, r model.DateRange) (bool, error) {
	if m.hasIntersectingFunc != nil {
		return m.hasIntersectingFunc(ctx, propertyID, r)
	}
	return false, nil
}

func TestCanBook_Free(t *testing.T) {
	svc := NewService(&mockBookingReader{}, &mockBlockReader{})

	ok, err := svc.CanBook(context.Background(), "prop-1", rng(1, 5), "")
	if err != nil {
		t.Fatalf("CanBook returned error: %v", err)
	}
	if !ok {
		t.Error("expected range to be bookable")
	}
}

func TestCanBook_BookingConflict(t *testing.T) {
	svc := NewService(&mockBookingReader{
		hasConfirmedOverlapFunc: func(context.Context, string, model.DateRange, string) (bool, error) {
			return true, nil
		},
	}, &mockBlockReader{})

	ok, err := svc.CanBook(context.Background(), "prop-1", rng(1, 5), "")
	if err != nil {
		t.Fatalf("CanBook returned error: %v", err)
	}
	if ok {
		t.Error("expected booking conflict to make range unbookable")
	}
}

func TestCanBook_BlockConflict(t *testing.T) {
	svc := NewService(&mockBookingReader{}, &mockBlockReader{
		hasIntersectingFunc: func(context.Context, string, model.DateRange) (bool, error) {
			return true, nil
		},
	})

	ok, err := svc.CanBook(context.Background(), "prop-1", rng(1, 5), "")
	if err != nil {
		t.Fatalf("CanBook returned error: %v", err)
	}
	if ok {
		t.Error("expected block conflict to make range unbookable")
	}
}

func TestCanBook_PassesExcludeID(t *testing.T) {
	var gotExclude string
	svc := NewService(&mockBookingReader{
		hasConfirmedOverlapFunc: func(_ context.Context, _ string, _ model.DateRange, excludeBookingID string) (bool, error) {
			gotExclude = excludeBookingID
			return false, nil
		},
	}, &mockBlockReader{})

	if _, err := svc.CanBook(context.Background(), "prop-1", rng(1, 5), "booking-42"); err != nil {
		t.Fatalf("CanBook returned error: %v", err)
	}
	if gotExclude != "booking-42" {
		t.Errorf("exclude ID = %q, want %q", gotExclude, "booking-42")
	}
}

func TestCanBook_ReaderError(t *testing.T) {
	readerErr := errors.New("connection reset")
	svc := NewService(&mockBookingReader{
		hasConfirmedOverlapFunc: func(context.Context, string, model.DateRange, string) (bool, error) {
			return false, readerErr
		},
	}, &mockBlockReader{})

	ok, err := svc.CanBook(context.Background(), "prop-1", rng(1, 5), "")
	if !errors.Is(err, readerErr) {
		t.Fatalf("expected reader error, got %v", err)
	}
	if ok {
		t.Error("expected ok=false on error")
	}
}

func TestCanBlock_IgnoresBlocks(t *testing.T) {
	// Block presence is irrelevant to CanBlock; block-vs-block conflicts
	// are checked by the block lifecycle with strict boundaries.
	blockReaderCalled := false
	svc := NewService(&mockBookingReader{}, &mockBlockReader{
		hasIntersectingFunc: func(context.Context, string, model.DateRange) (bool, error) {
			blockReaderCalled = true
			return true, nil
		},
	})

	ok, err := svc.CanBlock(context.Background(), "prop-1", rng(1, 5))
	if err != nil {
		t.Fatalf("CanBlock returned error: %v", err)
	}
	if !ok {
		t.Error("expected blocks alone not to prevent blocking")
	}
	if blockReaderCalled {
		t.Error("CanBlock must not consult the block reader")
	}
}

func TestCanBlock_BookingConflict(t *testing.T) {
	svc := NewService(&mockBookingReader{
		hasConfirmedOverlapFunc: func(context.Context, string, model.DateRange, string) (bool, error) {
			return true, nil
		},
	}, &mockBlockReader{})

	ok, err := svc.CanBlock(context.Background(), "prop-1", rng(1, 5))
	if err != nil {
		t.Fatalf("CanBlock returned error: %v", err)
	}
	if ok {
		t.Error("expected confirmed booking to prevent blocking")
	}
}
