package booking

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
	"go.opentelemetry.io/otel/attribute"
)

type ListType string

const (
	ListAll      ListType = "all"
	ListUpcoming ListType = "upcoming"
	ListPast     ListType = "past"
)

func ParseListType(raw string) (ListType, error) {
	switch t := ListType(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return ListAll, nil
	case ListAll, ListUpcoming, ListPast:
		return t, nil
	default:
		return "", model.Invalid("type", "must be one of upcoming, past, all")
	}
}

// ListQuery narrows List. EventType takes a slug or id and, unlike booking,
// also matches inactive event types. Email matches the guest case-insensitively.
type ListQuery struct {
	Type      ListType
	Status    string
	EventType string
	Email     string
}

// List returns bookings with their event types. Without an explicit status
// cancelled bookings are left out. A booking is upcoming until its end
// instant passes; past bookings come newest first.
func (m *Manager) List(ctx context.Context, q ListQuery) ([]model.Booking, error) {
	if q.Type == "" {
		q.Type = ListAll
	}
	filter := storage.BookingFilter{Statuses: []model.BookingStatus{model.StatusConfirmed}}
	if s := strings.TrimSpace(q.Status); s != "" {
		status := model.BookingStatus(strings.ToLower(s))
		if !status.Valid() {
			return nil, model.Invalid("status", "must be confirmed or cancelled")
		}
		filter.Statuses = []model.BookingStatus{status}
	}
	filter.Email = strings.TrimSpace(q.Email)

	repos := m.store.Repos()
	if ref := strings.TrimSpace(q.EventType); ref != "" {
		et, err := lookupEventType(ctx, repos, ref)
		if storage.IsNotFound(err) {
			return []model.Booking{}, nil
		}
		if err != nil {
			return nil, err
		}
		filter.EventTypeID = et.ID
	}
	all, err := repos.Bookings.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := m.now()
	eventTypes := map[string]*model.EventType{}
	out := make([]model.Booking, 0, len(all))
	for _, b := range all {
		end := bookingEnd(b, m.listZone)
		switch q.Type {
		case ListUpcoming:
			if end.Before(now) {
				continue
			}
		case ListPast:
			if !end.Before(now) {
				continue
			}
		}
		et, ok := eventTypes[b.EventTypeID]
		if !ok {
			loaded, err := repos.EventTypes.Get(ctx, b.EventTypeID)
			if err != nil {
				return nil, err
			}
			et = &loaded
			eventTypes[b.EventTypeID] = et
		}
		b.EventType = et
		out = append(out, b)
	}
	if q.Type == ListPast {
		slices.Reverse(out)
	}
	return out, nil
}

func bookingEnd(b model.Booking, loc *time.Location) time.Time {
	return b.Date.At(b.EndTime, loc)
}

// Slots lists the free slots of an event type on date. timezone decides
// which slots have already ended; blank means the default zone.
func (m *Manager) Slots(ctx context.Context, ref, rawDate, timezone string) ([]model.Slot, error) {
	ctx, span := startSpan(ctx, "booking.slots", attribute.String("event_type", ref), attribute.String("date", rawDate))
	slots, err := m.slots(ctx, ref, rawDate, timezone)
	endSpan(span, err)
	return slots, err
}

func (m *Manager) slots(ctx context.Context, ref, rawDate, timezone string) ([]model.Slot, error) {
	date, err := wallclock.ParseDate(rawDate)
	if err != nil {
		return nil, model.Invalid("date", "%v", err)
	}
	if strings.TrimSpace(timezone) == "" {
		timezone = m.defaultZone
	}
	loc, err := wallclock.LoadZone(timezone)
	if err != nil {
		return nil, model.Invalid("timezone", "%v", err)
	}

	repos := m.store.Repos()
	et, err := m.resolveEventType(ctx, repos, "slug", ref)
	if err != nil {
		return nil, err
	}
	windows, err := m.resolver.Windows(ctx, scheduleSource{repos: repos}, date)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []model.Slot{}, nil
	}
	busy, err := conflict.NewChecker(repos.Bookings).Snapshot(ctx, et.ID, date)
	if err != nil {
		return nil, err
	}

	slots := availability.AvailableSlots(windows, availability.SlotRequest{
		Date:     date,
		Location: loc,
		Duration: et.DurationMinutes,
		Buffer:   et.BufferMinutes,
		Now:      m.now(),
		Occupied: busy.Occupied,
	})
	if slots == nil {
		slots = []model.Slot{}
	}
	return slots, nil
}

// Windows exposes the resolved windows for date, mainly for the admin view.
func (m *Manager) Windows(ctx context.Context, rawDate string) ([]availability.Window, error) {
	date, err := wallclock.ParseDate(rawDate)
	if err != nil {
		return nil, model.Invalid("date", "%v", err)
	}
	return m.resolver.Windows(ctx, scheduleSource{repos: m.store.Repos()}, date)
}
