package availability

import (
	"staybook/pkg/model"
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func rng(start, end int) model.DateRange {
	return model.DateRange{Start: day(start), End: day(end)}
}

func TestOverlaps_Inclusive(t *testing.T) {
	tests := []struct {
		name string
		a, b model.DateRange
		want bool
	}{
		{"identical ranges", rng(1, 5), rng(1, 5), true},
		{"fully contained", rng(1, 10), rng(3, 5), true},
		{"partial overlap", rng(1, 5), rng(4, 8), true},
		{"touching at end", rng(1, 5), rng(5, 8), true},
		{"touching at start", rng(5, 8), rng(1, 5), true},
		{"single day inside", rng(3, 3), rng(1, 5), true},
		{"disjoint before", rng(1, 3), rng(4, 6), false},
		{"disjoint after", rng(7, 9), rng(2, 6), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b, Inclusive); got != tt.want {
				t.Errorf("Overlaps(%v, %v, Inclusive) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// The predicate must not care about argument order.
			if got := Overlaps(tt.b, tt.a, Inclusive); got != tt.want {
				t.Errorf("Overlaps(%v, %v, Inclusive) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestOverlaps_Strict(t *testing.T) {
	tests := []struct {
		name string
		a, b model.DateRange
		want bool
	}{
		{"identical ranges", rng(1, 5), rng(1, 5), true},
		{"partial overlap", rng(1, 5), rng(4, 8), true},
		{"back to back is allowed", rng(1, 5), rng(5, 8), false},
		{"back to back reversed", rng(5, 8), rng(1, 5), false},
		{"disjoint", rng(1, 3), rng(5, 8), false},
		{"contained", rng(2, 4), rng(1, 10), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b, Strict); got != tt.want {
				t.Errorf("Overlaps(%v, %v, Strict) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a, Strict); got != tt.want {
				t.Errorf("Overlaps(%v, %v, Strict) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}
