package booking

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
)

type bookingEvent struct {
	BookingID     string    `json:"booking_id"`
	EventTypeID   string    `json:"event_type_id"`
	EventTypeSlug string    `json:"event_type_slug"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	Timezone      string    `json:"timezone"`
	Status        string    `json:"status"`
	PreviousDate  string    `json:"previous_date,omitempty"`
	PreviousStart string    `json:"previous_start_time,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newBookingEvent(topic string, b model.Booking, et model.EventType, at time.Time, previous *model.Booking) (outbox.Event, error) {
	payload := bookingEvent{
		BookingID:     b.ID,
		EventTypeID:   b.EventTypeID,
		EventTypeSlug: et.Slug,
		Name:          b.Name,
		Email:         b.Email,
		Date:          b.Date.String(),
		StartTime:     b.StartTime.String(),
		EndTime:       b.EndTime.String(),
		Timezone:      b.Timezone,
		Status:        string(b.Status),
		OccurredAt:    at.UTC(),
	}
	if previous != nil {
		payload.PreviousDate = previous.Date.String()
		payload.PreviousStart = previous.StartTime.String()
	}
	return outbox.NewEvent(outbox.AggregateBooking, b.ID, topic, payload)
}
