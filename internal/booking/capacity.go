package booking

import (
	"context"
	"iter"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports half-open overlap. Back-to-back intervals do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Occupies reports whether a booking in status s holds capacity.
func Occupies(s Status) bool {
	return s == StatusPending || s == StatusConfirmed
}

func CountOverlapping(candidate Interval, occupied []Interval) int {
	n := 0
	for _, iv := range occupied {
		if candidate.Overlaps(iv) {
			n++
		}
	}
	return n
}

// CapacityResult is the outcome of a capacity check.
type CapacityResult struct {
	Occupying int
	HasRoom   bool
}

type overlapCounter interface {
	CountOverlapping(ctx context.Context, sessionTypeID int, iv Interval, excludeID int) (int, error)
}

// CheckCapacity counts occupying bookings of the session type over iv,
// ignoring excludeID, and compares against capacity. Run it inside the same
// transaction as the insert or update it guards.
func CheckCapacity(ctx context.Context, tx overlapCounter, sessionTypeID, capacity int, iv Interval, excludeID int) (CapacityResult, error) {
	n, err := tx.CountOverlapping(ctx, sessionTypeID, iv, excludeID)
	if err != nil {
		return CapacityResult{}, err
	}
	return CapacityResult{Occupying: n, HasRoom: n < capacity}, nil
}

// RemainingSlots pairs every start with the room left given the occupied
// intervals of the same session type.
func RemainingSlots(starts iter.Seq[time.Time], duration time.Duration, capacity int, occupied []Interval) []Slot {
	slots := []Slot{}
	for start := range starts {
		iv := Interval{Start: start, End: start.Add(duration)}
		booked := CountOverlapping(iv, occupied)
		slots = append(slots, Slot{
			Start:     iv.Start,
			End:       iv.End,
			Booked:    booked,
			Remaining: max(0, capacity-booked),
		})
	}
	return slots
}
