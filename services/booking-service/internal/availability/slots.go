package availability

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

// Occupied reports whether [start, end) on the target date is already taken.
type Occupied func(start, end wallclock.Clock) bool

// SlotRequest carries everything needed to cut windows into slots for one date.
type SlotRequest struct {
	Date     wallclock.Date
	Location *time.Location
	Duration int // minutes
	Buffer   int // minutes
	Now      time.Time
	Occupied Occupied
}

// AvailableSlots walks each window from its start in steps of duration+buffer
// and returns the free slots whose end is still in the future.
//
// Windows are concatenated in order; overlapping windows are not merged.
func AvailableSlots(windows []Window, req SlotRequest) []model.Slot {
	if req.Duration <= 0 || req.Buffer < 0 {
		return nil
	}
	step := req.Duration + req.Buffer

	var slots []model.Slot
	for _, w := range windows {
		for cursor := w.Start; cursor.Add(req.Duration) <= w.End; cursor = cursor.Add(step) {
			slotEnd := cursor.Add(req.Duration)
			// A slot straddling now is still offered; only its end matters.
			if !req.Date.At(slotEnd, req.Location).After(req.Now) {
				continue
			}
			if req.Occupied != nil && req.Occupied(cursor, slotEnd) {
				continue
			}
			slots = append(slots, model.Slot{Time: cursor, EndTime: slotEnd, Available: true})
		}
	}
	return slots
}
