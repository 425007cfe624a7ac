// Package storage persists the booking catalog and bookings. Every mutation
// runs through Store.WithTx so a booking, its answers and its outbox event
// commit together.
package storage

import (
	"context"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

type EventTypes interface {
	List(ctx context.Context, includeInactive bool) ([]model.EventType, error)
	Get(ctx context.Context, id string) (model.EventType, error)
	GetBySlug(ctx context.Context, slug string) (model.EventType, error)
	Create(ctx context.Context, et *model.EventType) error
	// Update writes scalar fields. Questions are replaced wholesale when
	// replaceQuestions is set and left alone otherwise.
	Update(ctx context.Context, et *model.EventType, replaceQuestions bool) error
	SetActive(ctx context.Context, id string, active bool) error
}

type Availability interface {
	List(ctx context.Context) ([]model.WeeklyAvailability, error)
	Get(ctx context.Context, id string) (model.WeeklyAvailability, error)
	// ActiveWeekly returns active rows for dayOfWeek in insertion order.
	ActiveWeekly(ctx context.Context, dayOfWeek int) ([]model.WeeklyAvailability, error)
	Create(ctx context.Context, wa *model.WeeklyAvailability) error
	Update(ctx context.Context, wa *model.WeeklyAvailability) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

type Overrides interface {
	List(ctx context.Context) ([]model.DateOverride, error)
	Get(ctx context.Context, id string) (model.DateOverride, error)
	// OverrideForDate returns nil, nil when date has no override.
	OverrideForDate(ctx context.Context, date wallclock.Date) (*model.DateOverride, error)
	Create(ctx context.Context, o *model.DateOverride) error
	Update(ctx context.Context, o *model.DateOverride) error
	Delete(ctx context.Context, id string) error
}

// BookingFilter narrows Bookings.List. Empty Statuses matches every status.
type BookingFilter struct {
	Statuses    []model.BookingStatus
	EventTypeID string
	Email       string
}

type Bookings interface {
	// Get returns the booking with its answers.
	Get(ctx context.Context, id string) (model.Booking, error)
	// GetForUpdate is Get plus a row lock for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (model.Booking, error)
	List(ctx context.Context, f BookingFilter) ([]model.Booking, error)
	// ListForDate returns non-cancelled bookings of eventTypeID on date.
	ListForDate(ctx context.Context, eventTypeID string, date wallclock.Date) ([]model.Booking, error)
	// Create inserts the booking and its answers. An overlap with a live
	// booking fails with model.ErrSlotConflict.
	Create(ctx context.Context, b *model.Booking) error
	UpdateSchedule(ctx context.Context, b *model.Booking) error
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error
}

type Outbox interface {
	Insert(ctx context.Context, evt outbox.Event) error
}

// Repositories is one consistent view of storage, bound either to a
// transaction or to the pool.
type Repositories struct {
	EventTypes   EventTypes
	Availability Availability
	Overrides    Overrides
	Bookings     Bookings
	Outbox       Outbox
}

type Store interface {
	Repos() Repositories
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
