// Package invite renders bookings as iCalendar (RFC 5545) documents so guests
// can add them to a calendar client.
package invite

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

const productID = "-//slotbook//booking-service//EN"

type Organizer struct {
	Name  string
	Email string
}

// Build returns a REQUEST document for a live booking and a CANCEL document
// for a cancelled one.
func Build(b model.Booking, et model.EventType, org Organizer, stamp time.Time) (string, error) {
	loc, err := wallclock.LoadZone(b.Timezone)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cancelled := b.Status == model.StatusCancelled
	if cancelled {
		cal.SetMethod(ics.MethodCancel)
	} else {
		cal.SetMethod(ics.MethodRequest)
	}

	ev := cal.AddEvent(UID(b.ID))
	ev.SetDtStampTime(stamp)
	if !b.CreatedAt.IsZero() {
		ev.SetCreatedTime(b.CreatedAt)
	}
	if !b.UpdatedAt.IsZero() {
		ev.SetModifiedAt(b.UpdatedAt)
	}
	// SEQUENCE has to grow with every revision of the same UID.
	ev.SetSequence(sequence(b, cancelled))
	ev.SetStartAt(b.Date.At(b.StartTime, loc))
	ev.SetEndAt(b.Date.At(b.EndTime, loc))
	ev.SetSummary(fmt.Sprintf("%s with %s", et.Title, b.Name))
	if et.Description != "" {
		ev.SetDescription(et.Description)
	}
	if org.Email != "" {
		ev.SetOrganizer(org.Email, ics.WithCN(org.Name))
	}
	ev.AddAttendee(b.Email, ics.WithCN(b.Name), ics.WithRSVP(true))
	if cancelled {
		ev.SetStatus(ics.ObjectStatusCancelled)
	} else {
		ev.SetStatus(ics.ObjectStatusConfirmed)
	}
	return cal.Serialize(), nil
}

func UID(bookingID string) string {
	return bookingID + "@slotbook"
}

func sequence(b model.Booking, cancelled bool) int {
	seq := 0
	if !b.CreatedAt.IsZero() && b.UpdatedAt.After(b.CreatedAt) {
		seq = int(b.UpdatedAt.Sub(b.CreatedAt) / time.Second)
	}
	if cancelled {
		seq++
	}
	return seq
}
