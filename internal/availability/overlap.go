package availability

import "staybook/pkg/model"

// Policy selects the boundary rule used to decide whether two date ranges
// conflict.
type Policy int

const (
	// Inclusive counts touching boundaries as a conflict: a stay ending on
	// day N collides with one starting on day N. Used for bookings.
	Inclusive Policy = iota

	// Strict lets ranges share a boundary, permitting back-to-back holds.
	// Used for block-vs-block checks.
	Strict
)

// Overlaps reports whether the two ranges conflict under the policy. It is
// symmetric in its range arguments.
func Overlaps(a, b model.DateRange, p Policy) bool {
	if p == Strict {
		return a.Start.Before(b.End) && a.End.After(b.Start)
	}
	return !a.Start.After(b.End) && !a.End.Before(b.Start)
}
