package booking

import (
	"context"
	"net/mail"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/slotlock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
	"go.opentelemetry.io/otel/attribute"
)

type AnswerInput struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// CreateRequest is a guest's booking request. EventType accepts a slug or an
// id. EndTime is optional and must match start+duration when present.
type CreateRequest struct {
	EventType string        `json:"eventTypeId"`
	Date      string        `json:"date"`
	StartTime string        `json:"startTime"`
	EndTime   string        `json:"endTime"`
	Timezone  string        `json:"timezone"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Notes     string        `json:"notes"`
	Answers   []AnswerInput `json:"answers"`
}

func (m *Manager) Create(ctx context.Context, req CreateRequest) (model.Booking, error) {
	ctx, span := startSpan(ctx, "booking.create", attribute.String("event_type", req.EventType))
	b, et, err := m.create(ctx, req)
	endSpan(span, err)
	if err != nil {
		return model.Booking{}, err
	}

	m.logger.Info("booking created",
		"booking_id", b.ID,
		"event_type_id", et.ID,
		"date", b.Date.String(),
		"start_time", b.StartTime.String(),
	)
	m.notes.Created(ctx, b, et)
	return b, nil
}

func (m *Manager) create(ctx context.Context, req CreateRequest) (model.Booking, model.EventType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Booking{}, model.EventType{}, model.Invalid("name", "is required")
	}
	if strings.ContainsFunc(name, unicode.IsControl) {
		return model.Booking{}, model.EventType{}, model.Invalid("name", "must not contain control characters")
	}
	addr, err := parseEmail(req.Email)
	if err != nil {
		return model.Booking{}, model.EventType{}, err
	}

	et, err := m.resolveEventType(ctx, m.store.Repos(), "eventTypeId", req.EventType)
	if err != nil {
		return model.Booking{}, model.EventType{}, err
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = m.defaultZone
	}
	sched, err := m.parseSchedule(et, req.Date, req.StartTime, req.EndTime, tz)
	if err != nil {
		return model.Booking{}, model.EventType{}, err
	}
	answers, err := validateAnswers(et.Questions, req.Answers)
	if err != nil {
		return model.Booking{}, model.EventType{}, err
	}

	b := model.Booking{
		ID:          uuid.NewString(),
		EventTypeID: et.ID,
		Name:        name,
		Email:       addr,
		Date:        sched.date,
		StartTime:   sched.start,
		EndTime:     sched.end,
		Timezone:    tz,
		Status:      model.StatusConfirmed,
		Notes:       strings.TrimSpace(req.Notes),
		Answers:     answers,
	}

	release, err := m.locker.Acquire(ctx, slotlock.Key(et.ID, b.Date))
	if err != nil {
		return model.Booking{}, model.EventType{}, err
	}
	defer release()

	err = m.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		if err := m.ensureBookable(ctx, repos, et.ID, b.Date, b.StartTime, b.EndTime, ""); err != nil {
			return err
		}
		if err := repos.Bookings.Create(ctx, &b); err != nil {
			return err
		}
		evt, err := newBookingEvent(outbox.TopicBookingCreated, b, et, m.now(), nil)
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

// resolveEventType finds a bookable event type. Inactive event types are
// reported as missing; field names the request parameter ref came from.
func (m *Manager) resolveEventType(ctx context.Context, repos storage.Repositories, field, ref string) (model.EventType, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.EventType{}, model.Invalid(field, "is required")
	}
	et, err := lookupEventType(ctx, repos, ref)
	if err != nil {
		return model.EventType{}, err
	}
	if !et.IsActive {
		return model.EventType{}, model.ErrNotFound
	}
	return et, nil
}

// lookupEventType tries ref as a slug first, then as an id.
func lookupEventType(ctx context.Context, repos storage.Repositories, ref string) (model.EventType, error) {
	et, err := repos.EventTypes.GetBySlug(ctx, ref)
	if storage.IsNotFound(err) {
		if _, perr := uuid.Parse(ref); perr != nil {
			return model.EventType{}, model.ErrNotFound
		}
		et, err = repos.EventTypes.Get(ctx, ref)
	}
	return et, err
}

type schedule struct {
	date  wallclock.Date
	start wallclock.Clock
	end   wallclock.Clock
}

func (m *Manager) parseSchedule(et model.EventType, rawDate, rawStart, rawEnd, tz string) (schedule, error) {
	date, err := wallclock.ParseDate(rawDate)
	if err != nil {
		return schedule{}, model.Invalid("date", "%v", err)
	}
	start, err := wallclock.ParseClock(rawStart)
	if err != nil {
		return schedule{}, model.Invalid("startTime", "%v", err)
	}
	end := start.Add(et.DurationMinutes)
	if end > wallclock.EndOfDay {
		return schedule{}, model.Invalid("startTime", "booking must end by 24:00")
	}
	if strings.TrimSpace(rawEnd) != "" {
		given, err := wallclock.ParseClock(rawEnd)
		if err != nil {
			return schedule{}, model.Invalid("endTime", "%v", err)
		}
		if given != end {
			return schedule{}, model.Invalid("endTime", "must be %s for a %d minute event", end, et.DurationMinutes)
		}
	}
	loc, err := wallclock.LoadZone(tz)
	if err != nil {
		return schedule{}, model.Invalid("timezone", "%v", err)
	}
	if !date.At(end, loc).After(m.now()) {
		return schedule{}, model.Invalid("startTime", "time slot is in the past")
	}
	return schedule{date: date, start: start, end: end}, nil
}

// ensureBookable checks the candidate against the effective windows and the
// live bookings of the day. It runs inside the write transaction.
func (m *Manager) ensureBookable(ctx context.Context, repos storage.Repositories, eventTypeID string, date wallclock.Date, start, end wallclock.Clock, excludeID string) error {
	windows, err := m.resolver.Windows(ctx, scheduleSource{repos: repos}, date)
	if err != nil {
		return err
	}
	if !availability.Contains(windows, start, end) {
		return model.Invalid("startTime", "%s-%s is outside availability on %s", start, end, date)
	}
	return conflict.NewChecker(repos.Bookings).Check(ctx, eventTypeID, date, conflict.Interval{Start: start, End: end}, excludeID)
}

func parseEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", model.Invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", model.Invalid("email", "is not a valid address")
	}
	return addr.Address, nil
}

// validateAnswers checks answers against the event type's questions and
// snapshots the question text onto each answer.
func validateAnswers(questions []model.CustomQuestion, in []AnswerInput) ([]model.BookingAnswer, error) {
	byID := make(map[string]model.CustomQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	seen := make(map[string]bool, len(in))
	out := make([]model.BookingAnswer, 0, len(in))
	for _, a := range in {
		q, ok := byID[a.QuestionID]
		if !ok {
			return nil, model.Invalid("answers", "unknown question %q", a.QuestionID)
		}
		if seen[q.ID] {
			return nil, model.Invalid("answers", "question %q answered twice", q.ID)
		}
		seen[q.ID] = true

		value := strings.TrimSpace(a.Answer)
		if value == "" {
			continue
		}
		if q.Type == model.QuestionNumber {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return nil, model.Invalid("answers", "%q must be a number", q.Question)
			}
		}
		if len(q.Options) > 0 && !slices.Contains(q.Options, value) {
			return nil, model.Invalid("answers", "%q must be one of %s", q.Question, strings.Join(q.Options, ", "))
		}
		out = append(out, model.BookingAnswer{
			ID:         uuid.NewString(),
			QuestionID: q.ID,
			Question:   q.Question,
			Answer:     value,
		})
	}

	for _, q := range questions {
		if !q.Required {
			continue
		}
		answered := false
		for _, a := range out {
			if a.QuestionID == q.ID {
				answered = true
				break
			}
		}
		if !answered {
			return nil, model.Invalid("answers", "%q is required", q.Question)
		}
	}
	return out, nil
}
