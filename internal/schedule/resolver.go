package schedule

import (
	"errors"
	"iter"
	"slices"
	"time"
)

var (
	ErrOutsideBookingWindow = errors.New("slot is outside the booking window")
	ErrSlotUnavailable      = errors.New("slot is not an available start time")
)

type window struct {
	start, end Clock
}

// Resolver derives bookable slot starts from the weekly templates and
// date exceptions under one policy snapshot. It holds no connections and
// never mutates its inputs, so one value can be shared across goroutines.
type Resolver struct {
	loc        *time.Location
	earliest   time.Time
	latest     time.Time
	windows    map[time.Weekday][]window
	exceptions map[string]Exception
}

func NewResolver(policy Policy, templates []Template, exceptions []Exception, now time.Time) (*Resolver, error) {
	loc, err := policy.Location()
	if err != nil {
		return nil, err
	}

	windows := make(map[time.Weekday][]window)
	for _, t := range templates {
		if t.EndTime <= t.StartTime {
			continue
		}
		day := time.Weekday(t.DayOfWeek)
		windows[day] = append(windows[day], window{start: t.StartTime, end: t.EndTime})
	}
	for day := range windows {
		slices.SortFunc(windows[day], func(a, b window) int { return int(a.start - b.start) })
	}

	byDate := make(map[string]Exception, len(exceptions))
	for _, e := range exceptions {
		byDate[e.Date] = e
	}

	now = now.In(loc)
	return &Resolver{
		loc:        loc,
		earliest:   now.Add(time.Duration(policy.MinBookingNoticeHours) * time.Hour),
		latest:     now.AddDate(0, 0, policy.BookingWindowDays),
		windows:    windows,
		exceptions: byDate,
	}, nil
}

func (r *Resolver) Location() *time.Location { return r.loc }

// Window returns the inclusive bounds within which a slot may start.
func (r *Resolver) Window() (earliest, latest time.Time) {
	return r.earliest, r.latest
}

// Slots yields slot start instants for every calendar day from `from` to
// `to` inclusive, in policy-timezone days, stepping by duration inside each
// open window. The range is clamped to the booking window. The returned
// sequence can be ranged over any number of times.
func (r *Resolver) Slots(from, to time.Time, duration time.Duration) iter.Seq[time.Time] {
	step := Clock(duration / time.Minute)
	if step <= 0 {
		step = DefaultSlotMinutes
	}

	first := startOfDay(maxTime(from.In(r.loc), r.earliest), r.loc)
	last := startOfDay(minTime(to.In(r.loc), r.latest), r.loc)

	return func(yield func(time.Time) bool) {
		for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
			for _, w := range r.openWindows(day) {
				for m := w.start; m+step <= w.end; m += step {
					start := m.On(day.Year(), day.Month(), day.Day(), r.loc)
					if start.Before(r.earliest) || start.After(r.latest) {
						continue
					}
					if !yield(start) {
						return
					}
				}
			}
		}
	}
}

// Check reports whether start is a bookable slot start for the given duration.
func (r *Resolver) Check(start time.Time, duration time.Duration) error {
	if start.Before(r.earliest) || start.After(r.latest) {
		return ErrOutsideBookingWindow
	}
	for s := range r.Slots(start, start, duration) {
		if s.Equal(start) {
			return nil
		}
	}
	return ErrSlotUnavailable
}

func (r *Resolver) openWindows(day time.Time) []window {
	exc, ok := r.exceptions[day.Format(dateLayout)]
	if ok && !exc.IsAvailable {
		return nil
	}

	windows := r.windows[day.Weekday()]
	if ok && exc.StartTime != nil && exc.EndTime != nil && *exc.EndTime > *exc.StartTime {
		windows = append(slices.Clone(windows), window{start: *exc.StartTime, end: *exc.EndTime})
		slices.SortFunc(windows, func(a, b window) int { return int(a.start - b.start) })
	}
	return windows
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
