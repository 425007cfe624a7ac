// Package conflict decides whether a candidate time range collides with
// existing bookings of the same event type on the same date.
package conflict

import (
	"context"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

// Interval is a half-open range [Start, End) on one date.
type Interval struct {
	Start wallclock.Clock
	End   wallclock.Clock
}

// Overlaps covers every partial and full containment case between two
// half-open intervals.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

type entry struct {
	bookingID string
	Interval
}

// Busy is a snapshot of the non-cancelled bookings for one event type and date.
type Busy struct {
	entries []entry
}

func NewBusy(bookings []model.Booking) Busy {
	var b Busy
	for _, bk := range bookings {
		if bk.Status == model.StatusCancelled {
			continue
		}
		b.entries = append(b.entries, entry{bookingID: bk.ID, Interval: Interval{Start: bk.StartTime, End: bk.EndTime}})
	}
	return b
}

func (b Busy) Len() int { return len(b.entries) }

// Conflicts returns the id of the first booking overlapping candidate,
// ignoring excludeID.
func (b Busy) Conflicts(candidate Interval, excludeID string) (string, bool) {
	for _, e := range b.entries {
		if excludeID != "" && e.bookingID == excludeID {
			continue
		}
		if candidate.Overlaps(e.Interval) {
			return e.bookingID, true
		}
	}
	return "", false
}

// Occupied has the shape the slot generator expects.
func (b Busy) Occupied(start, end wallclock.Clock) bool {
	_, hit := b.Conflicts(Interval{Start: start, End: end}, "")
	return hit
}

// BookingSource lists the bookings held for an event type on a date.
type BookingSource interface {
	ListForDate(ctx context.Context, eventTypeID string, date wallclock.Date) ([]model.Booking, error)
}

type Checker struct {
	src BookingSource
}

func NewChecker(src BookingSource) *Checker {
	return &Checker{src: src}
}

func (c *Checker) Snapshot(ctx context.Context, eventTypeID string, date wallclock.Date) (Busy, error) {
	bookings, err := c.src.ListForDate(ctx, eventTypeID, date)
	if err != nil {
		return Busy{}, err
	}
	return NewBusy(bookings), nil
}

// Check returns model.ErrSlotConflict when candidate overlaps a live booking
// other than excludeID.
func (c *Checker) Check(ctx context.Context, eventTypeID string, date wallclock.Date, candidate Interval, excludeID string) error {
	busy, err := c.Snapshot(ctx, eventTypeID, date)
	if err != nil {
		return err
	}
	if _, hit := busy.Conflicts(candidate, excludeID); hit {
		return model.ErrSlotConflict
	}
	return nil
}
