// Package booking owns the booking lifecycle: create, cancel, reschedule,
// listing and the slot view that guests pick from.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/invite"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/slotlock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Notifications receives lifecycle events after they commit. Implementations
// must not block the caller; notify.Dispatcher is the production one.
type Notifications interface {
	Created(ctx context.Context, b model.Booking, et model.EventType)
	Cancelled(ctx context.Context, b model.Booking, et model.EventType)
	Rescheduled(ctx context.Context, b model.Booking, et model.EventType)
}

type Options struct {
	BlankOverridePolicy availability.BlankOverridePolicy
	NotifyOnReschedule  bool
	// DefaultZone applies when a create or slot request names no timezone.
	DefaultZone string
	// ListZone decides which bookings are upcoming or past.
	ListZone  *time.Location
	Organizer invite.Organizer
	Now       func() time.Time
}

type Manager struct {
	store    storage.Store
	resolver *availability.Resolver
	locker   slotlock.Locker
	notes    Notifications
	logger   *slog.Logger

	notifyOnReschedule bool
	defaultZone        string
	listZone           *time.Location
	organizer          invite.Organizer
	now                func() time.Time
}

func NewManager(store storage.Store, locker slotlock.Locker, notes Notifications, logger *slog.Logger, opts Options) *Manager {
	if locker == nil {
		locker = slotlock.NewLocal()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ListZone == nil {
		opts.ListZone = time.UTC
	}
	if opts.DefaultZone == "" {
		opts.DefaultZone = "UTC"
	}
	return &Manager{
		store:              store,
		resolver:           availability.NewResolver(opts.BlankOverridePolicy),
		locker:             locker,
		notes:              notes,
		logger:             logger,
		notifyOnReschedule: opts.NotifyOnReschedule,
		defaultZone:        opts.DefaultZone,
		listZone:           opts.ListZone,
		organizer:          opts.Organizer,
		now:                opts.Now,
	}
}

var tracer = otel.Tracer("booking")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, model.ErrValidation) && !errors.Is(err, model.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// scheduleSource adapts a bound set of repositories to the resolver.
type scheduleSource struct {
	repos storage.Repositories
}

func (s scheduleSource) OverrideForDate(ctx context.Context, date wallclock.Date) (*model.DateOverride, error) {
	return s.repos.Overrides.OverrideForDate(ctx, date)
}

func (s scheduleSource) ActiveWeekly(ctx context.Context, dayOfWeek int) ([]model.WeeklyAvailability, error) {
	return s.repos.Availability.ActiveWeekly(ctx, dayOfWeek)
}

// Get returns a booking with its event type and answers.
func (m *Manager) Get(ctx context.Context, id string) (model.Booking, error) {
	repos := m.store.Repos()
	b, err := repos.Bookings.Get(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	et, err := repos.EventTypes.Get(ctx, b.EventTypeID)
	if err != nil {
		return model.Booking{}, err
	}
	b.EventType = &et
	return b, nil
}

// Invite renders the booking as an iCalendar document.
func (m *Manager) Invite(ctx context.Context, id string) (string, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return invite.Build(b, *b.EventType, m.organizer, m.now())
}
