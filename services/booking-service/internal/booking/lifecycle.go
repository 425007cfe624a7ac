package booking

import (
	"context"
	"strings"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/slotlock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel/attribute"
)

// Cancel moves a booking to cancelled. Cancelling twice succeeds without a
// second event or notification.
func (m *Manager) Cancel(ctx context.Context, id string) (model.Booking, error) {
	ctx, span := startSpan(ctx, "booking.cancel", attribute.String("booking_id", id))

	var (
		b       model.Booking
		et      model.EventType
		changed bool
	)
	err := m.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		var err error
		if b, err = repos.Bookings.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if et, err = repos.EventTypes.Get(ctx, b.EventTypeID); err != nil {
			return err
		}
		if b.Status == model.StatusCancelled {
			return nil
		}
		if err := repos.Bookings.UpdateStatus(ctx, id, model.StatusCancelled); err != nil {
			return err
		}
		if b, err = repos.Bookings.Get(ctx, id); err != nil {
			return err
		}
		changed = true
		evt, err := newBookingEvent(outbox.TopicBookingCancelled, b, et, m.now(), nil)
		if err != nil {
			return err
		}
		return repos.Outbox.Insert(ctx, evt)
	})
	endSpan(span, err)
	if err != nil {
		return model.Booking{}, err
	}

	b.EventType = &et
	if changed {
		m.logger.Info("booking cancelled", "booking_id", b.ID, "event_type_id", et.ID)
		m.notes.Cancelled(ctx, b, et)
	}
	return b, nil
}

type RescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Reschedule moves a confirmed booking to a new date and start time. The
// booking keeps its id, answers and timezone.
func (m *Manager) Reschedule(ctx context.Context, id string, req RescheduleRequest) (model.Booking, error) {
	ctx, span := startSpan(ctx, "booking.reschedule", attribute.String("booking_id", id))
	b, et, err := m.reschedule(ctx, id, req)
	endSpan(span, err)
	if err != nil {
		return model.Booking{}, err
	}

	m.logger.Info("booking rescheduled",
		"booking_id", b.ID,
		"date", b.Date.String(),
		"start_time", b.StartTime.String(),
	)
	if m.notifyOnReschedule {
		m.notes.Rescheduled(ctx, b, et)
	}
	return b, nil
}

func (m *Manager) reschedule(ctx context.Context, id string, req RescheduleRequest) (model.Booking, model.EventType, error) {
	id = strings.TrimSpace(id)
	current, err := m.store.Repos().Bookings.Get(ctx, id)
	if err != nil {
		return model.Booking{}, model.EventType{}, err
	}
	if current.Status == model.StatusCancelled {
		return model.Booking{}, model.EventType{}, model.Invalid("status", "cancelled bookings cannot be rescheduled")
	}
	et, err := m.store.Repos().EventTypes.Get(ctx, current.EventTypeID)
	if err != nil {
		return model.Booking{}, model.EventType{}, err
	}
	sched, err := m.parseSchedule(et, req.Date, req.StartTime, req.EndTime, current.Timezone)
	if err != nil {
		return model.Booking{}, model.EventType{}, err
	}

	release, err := m.locker.Acquire(ctx, slotlock.Key(et.ID, sched.date))
	if err != nil {
		return model.Booking{}, model.EventType{}, err
	}
	defer release()

	var b model.Booking
	err = m.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		previous, err := repos.Bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// Re-check under the row lock; a cancel may have landed meanwhile.
		if previous.Status == model.StatusCancelled {
			return model.Invalid("status", "cancelled bookings cannot be rescheduled")
		}
		if err := m.ensureBookable(ctx, repos, et.ID, sched.date, sched.start, sched.end, id); err != nil {
			return err
		}
		b = previous
		b.Date, b.StartTime, b.EndTime = sched.date, sched.start, sched.end
		if err := repos.Bookings.UpdateSchedule(ctx, &b); err != nil {
			return err
		}
		evt, err := newBookingEvent(outbox.TopicBookingRescheduled, b, et, m.now(), &previous)
		if err != nil {
			return err
		}
		return repos.Outbox.Insert(ctx, evt)
	})
	if err != nil {
		return model.Booking{}, model.EventType{}, err
	}
	b.EventType = &et
	return b, et, nil
}
