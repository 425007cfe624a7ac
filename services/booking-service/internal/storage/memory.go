package storage

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

// MemoryStore keeps everything in process. Transactions are serialized and
// roll back by restoring a snapshot. It enforces the same slug, date and
// booking-overlap rules as the Postgres schema.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time

	// claimMu keeps concurrent Claims from delivering the same batch.
	claimMu sync.Mutex
}

type memState struct {
	eventTypes []model.EventType
	weekly     []model.WeeklyAvailability
	overrides  []model.DateOverride
	bookings   []model.Booking
	outbox     []outbox.Record
	published  map[int64]bool
	nextEvent  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{published: map[int64]bool{}},
		now:   time.Now,
	}
}

func (s *MemoryStore) Repos() Repositories {
	return s.bind(s.state, s.mu.RLocker())
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, s.bind(s.state, noopLocker{})); err != nil {
		*s.state = *snapshot
		return err
	}
	return nil
}

// Claim implements outbox.Source. deliver runs without the store lock, so a
// slow broker never blocks bookings.
func (s *MemoryStore) Claim(ctx context.Context, limit int, deliver func(context.Context, []outbox.Record) error) error {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	s.mu.RLock()
	var batch []outbox.Record
	for _, r := range s.state.outbox {
		if len(batch) == limit {
			break
		}
		if !s.state.published[r.ID] {
			batch = append(batch, r)
		}
	}
	s.mu.RUnlock()
	if len(batch) == 0 {
		return nil
	}
	if err := deliver(ctx, batch); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range batch {
		s.state.published[r.ID] = true
	}
	return nil
}

// Pending returns outbox records not yet handed to a publisher.
func (s *MemoryStore) Pending() []outbox.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []outbox.Record
	for _, r := range s.state.outbox {
		if !s.state.published[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func (s *MemoryStore) bind(st *memState, l sync.Locker) Repositories {
	m := &memRepos{st: st, lock: l, now: s.now}
	return Repositories{
		EventTypes:   (*memEventTypes)(m),
		Availability: (*memAvailability)(m),
		Overrides:    (*memOverrides)(m),
		Bookings:     (*memBookings)(m),
		Outbox:       (*memOutbox)(m),
	}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

type memRepos struct {
	st   *memState
	lock sync.Locker
	now  func() time.Time
}

func (m *memRepos) guard() func() {
	m.lock.Lock()
	return m.lock.Unlock
}

func (st *memState) clone() *memState {
	c := &memState{
		eventTypes: slices.Clone(st.eventTypes),
		weekly:     slices.Clone(st.weekly),
		overrides:  slices.Clone(st.overrides),
		bookings:   slices.Clone(st.bookings),
		outbox:     slices.Clone(st.outbox),
		published:  make(map[int64]bool, len(st.published)),
		nextEvent:  st.nextEvent,
	}
	for k, v := range st.published {
		c.published[k] = v
	}
	return c
}

// Stored values are replaced, never mutated in place, so shallow slice
// clones are enough for snapshots. Returned values get fresh slices.
func copyEventType(et model.EventType) model.EventType {
	et.Questions = slices.Clone(et.Questions)
	if et.Questions == nil {
		et.Questions = []model.CustomQuestion{}
	}
	return et
}

func copyBooking(b model.Booking) model.Booking {
	b.Answers = slices.Clone(b.Answers)
	if b.Answers == nil {
		b.Answers = []model.BookingAnswer{}
	}
	return b
}

type memEventTypes memRepos

func (r *memEventTypes) List(_ context.Context, includeInactive bool) ([]model.EventType, error) {
	defer (*memRepos)(r).guard()()
	var out []model.EventType
	for _, et := range r.st.eventTypes {
		if et.IsActive || includeInactive {
			out = append(out, copyEventType(et))
		}
	}
	return out, nil
}

func (r *memEventTypes) Get(_ context.Context, id string) (model.EventType, error) {
	defer (*memRepos)(r).guard()()
	for _, et := range r.st.eventTypes {
		if et.ID == id {
			return copyEventType(et), nil
		}
	}
	return model.EventType{}, model.ErrNotFound
}

func (r *memEventTypes) GetBySlug(_ context.Context, slug string) (model.EventType, error) {
	defer (*memRepos)(r).guard()()
	for _, et := range r.st.eventTypes {
		if et.Slug == slug {
			return copyEventType(et), nil
		}
	}
	return model.EventType{}, model.ErrNotFound
}

func (r *memEventTypes) slugTaken(slug, exceptID string) bool {
	for _, et := range r.st.eventTypes {
		if et.Slug == slug && et.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *memEventTypes) Create(_ context.Context, et *model.EventType) error {
	defer (*memRepos)(r).guard()()
	if r.slugTaken(et.Slug, "") {
		return model.Invalid("slug", "slug already exists")
	}
	now := r.now()
	et.CreatedAt, et.UpdatedAt = now, now
	stampQuestions(et)
	r.st.eventTypes = append(r.st.eventTypes, copyEventType(*et))
	return nil
}

func (r *memEventTypes) Update(_ context.Context, et *model.EventType, replaceQuestions bool) error {
	defer (*memRepos)(r).guard()()
	for i, cur := range r.st.eventTypes {
		if cur.ID != et.ID {
			continue
		}
		if r.slugTaken(et.Slug, et.ID) {
			return model.Invalid("slug", "slug already exists")
		}
		et.CreatedAt = cur.CreatedAt
		et.UpdatedAt = r.now()
		if replaceQuestions {
			stampQuestions(et)
		} else {
			et.Questions = slices.Clone(cur.Questions)
		}
		r.st.eventTypes[i] = copyEventType(*et)
		return nil
	}
	return model.ErrNotFound
}

func (r *memEventTypes) SetActive(_ context.Context, id string, active bool) error {
	defer (*memRepos)(r).guard()()
	for i, cur := range r.st.eventTypes {
		if cur.ID == id {
			cur.IsActive = active
			cur.UpdatedAt = r.now()
			r.st.eventTypes[i] = cur
			return nil
		}
	}
	return model.ErrNotFound
}

func stampQuestions(et *model.EventType) {
	for i := range et.Questions {
		et.Questions[i].EventTypeID = et.ID
		et.Questions[i].Position = i
		if et.Questions[i].ID == "" {
			et.Questions[i].ID = uuid.NewString()
		}
	}
}

type memAvailability memRepos

func (r *memAvailability) List(_ context.Context) ([]model.WeeklyAvailability, error) {
	defer (*memRepos)(r).guard()()
	out := slices.Clone(r.st.weekly)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *memAvailability) Get(_ context.Context, id string) (model.WeeklyAvailability, error) {
	defer (*memRepos)(r).guard()()
	for _, wa := range r.st.weekly {
		if wa.ID == id {
			return wa, nil
		}
	}
	return model.WeeklyAvailability{}, model.ErrNotFound
}

func (r *memAvailability) ActiveWeekly(_ context.Context, dayOfWeek int) ([]model.WeeklyAvailability, error) {
	defer (*memRepos)(r).guard()()
	var out []model.WeeklyAvailability
	for _, wa := range r.st.weekly {
		if wa.DayOfWeek == dayOfWeek && wa.IsActive {
			out = append(out, wa)
		}
	}
	return out, nil
}

func (r *memAvailability) Create(_ context.Context, wa *model.WeeklyAvailability) error {
	defer (*memRepos)(r).guard()()
	wa.CreatedAt = r.now()
	r.st.weekly = append(r.st.weekly, *wa)
	return nil
}

func (r *memAvailability) Update(_ context.Context, wa *model.WeeklyAvailability) error {
	defer (*memRepos)(r).guard()()
	for i, cur := range r.st.weekly {
		if cur.ID == wa.ID {
			wa.CreatedAt = cur.CreatedAt
			r.st.weekly[i] = *wa
			return nil
		}
	}
	return model.ErrNotFound
}

func (r *memAvailability) Delete(_ context.Context, id string) error {
	defer (*memRepos)(r).guard()()
	for i, cur := range r.st.weekly {
		if cur.ID == id {
			r.st.weekly = slices.Delete(slices.Clone(r.st.weekly), i, i+1)
			return nil
		}
	}
	return model.ErrNotFound
}

func (r *memAvailability) DeleteAll(_ context.Context) error {
	defer (*memRepos)(r).guard()()
	r.st.weekly = nil
	return nil
}

type memOverrides memRepos

func (r *memOverrides) List(_ context.Context) ([]model.DateOverride, error) {
	defer (*memRepos)(r).guard()()
	out := slices.Clone(r.st.overrides)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *memOverrides) Get(_ context.Context, id string) (model.DateOverride, error) {
	defer (*memRepos)(r).guard()()
	for _, o := range r.st.overrides {
		if o.ID == id {
			return o, nil
		}
	}
	return model.DateOverride{}, model.ErrNotFound
}

func (r *memOverrides) OverrideForDate(_ context.Context, date wallclock.Date) (*model.DateOverride, error) {
	defer (*memRepos)(r).guard()()
	for _, o := range r.st.overrides {
		if o.Date == date {
			o := o
			return &o, nil
		}
	}
	return nil, nil
}

func (r *memOverrides) dateTaken(date wallclock.Date, exceptID string) bool {
	for _, o := range r.st.overrides {
		if o.Date == date && o.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *memOverrides) Create(_ context.Context, o *model.DateOverride) error {
	defer (*memRepos)(r).guard()()
	if r.dateTaken(o.Date, "") {
		return model.Invalid("date", "an override already exists for this date")
	}
	o.CreatedAt = r.now()
	r.st.overrides = append(r.st.overrides, *o)
	return nil
}

func (r *memOverrides) Update(_ context.Context, o *model.DateOverride) error {
	defer (*memRepos)(r).guard()()
	for i, cur := range r.st.overrides {
		if cur.ID != o.ID {
			continue
		}
		if r.dateTaken(o.Date, o.ID) {
			return model.Invalid("date", "an override already exists for this date")
		}
		o.CreatedAt = cur.CreatedAt
		r.st.overrides[i] = *o
		return nil
	}
	return model.ErrNotFound
}

func (r *memOverrides) Delete(_ context.Context, id string) error {
	defer (*memRepos)(r).guard()()
	for i, cur := range r.st.overrides {
		if cur.ID == id {
			r.st.overrides = slices.Delete(slices.Clone(r.st.overrides), i, i+1)
			return nil
		}
	}
	return model.ErrNotFound
}

type memBookings memRepos

func (r *memBookings) find(id string) (int, bool) {
	for i, b := range r.st.bookings {
		if b.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (r *memBookings) Get(_ context.Context, id string) (model.Booking, error) {
	defer (*memRepos)(r).guard()()
	i, ok := r.find(id)
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	return copyBooking(r.st.bookings[i]), nil
}

func (r *memBookings) GetForUpdate(ctx context.Context, id string) (model.Booking, error) {
	return r.Get(ctx, id)
}

func (r *memBookings) List(_ context.Context, f BookingFilter) ([]model.Booking, error) {
	defer (*memRepos)(r).guard()()
	var out []model.Booking
	for _, b := range r.st.bookings {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
			continue
		}
		if f.EventTypeID != "" && b.EventTypeID != f.EventTypeID {
			continue
		}
		if f.Email != "" && !strings.EqualFold(b.Email, f.Email) {
			continue
		}
		out = append(out, copyBooking(b))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *memBookings) ListForDate(_ context.Context, eventTypeID string, date wallclock.Date) ([]model.Booking, error) {
	defer (*memRepos)(r).guard()()
	var out []model.Booking
	for _, b := range r.st.bookings {
		if b.EventTypeID == eventTypeID && b.Date == date && b.Status != model.StatusCancelled {
			out = append(out, copyBooking(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

// overlaps mirrors the bookings_no_overlap exclusion constraint.
func (r *memBookings) overlaps(b *model.Booking) bool {
	if b.Status == model.StatusCancelled {
		return false
	}
	for _, cur := range r.st.bookings {
		if cur.ID == b.ID || cur.Status == model.StatusCancelled {
			continue
		}
		if cur.EventTypeID == b.EventTypeID && cur.Date == b.Date &&
			b.StartTime < cur.EndTime && cur.StartTime < b.EndTime {
			return true
		}
	}
	return false
}

func (r *memBookings) Create(_ context.Context, b *model.Booking) error {
	defer (*memRepos)(r).guard()()
	if r.overlaps(b) {
		return model.ErrSlotConflict
	}
	now := r.now()
	b.CreatedAt, b.UpdatedAt = now, now
	for i := range b.Answers {
		b.Answers[i].BookingID = b.ID
	}
	r.st.bookings = append(r.st.bookings, copyBooking(*b))
	return nil
}

func (r *memBookings) UpdateSchedule(_ context.Context, b *model.Booking) error {
	defer (*memRepos)(r).guard()()
	i, ok := r.find(b.ID)
	if !ok {
		return model.ErrNotFound
	}
	cur := r.st.bookings[i]
	cur.Date, cur.StartTime, cur.EndTime, cur.Timezone = b.Date, b.StartTime, b.EndTime, b.Timezone
	if r.overlaps(&cur) {
		return model.ErrSlotConflict
	}
	cur.UpdatedAt = r.now()
	b.UpdatedAt = cur.UpdatedAt
	r.st.bookings[i] = cur
	return nil
}

func (r *memBookings) UpdateStatus(_ context.Context, id string, status model.BookingStatus) error {
	defer (*memRepos)(r).guard()()
	i, ok := r.find(id)
	if !ok {
		return model.ErrNotFound
	}
	cur := r.st.bookings[i]
	cur.Status = status
	if r.overlaps(&cur) {
		return model.ErrSlotConflict
	}
	cur.UpdatedAt = r.now()
	r.st.bookings[i] = cur
	return nil
}

type memOutbox memRepos

func (r *memOutbox) Insert(ctx context.Context, evt outbox.Event) error {
	defer (*memRepos)(r).guard()()
	tc := otelx.Capture(ctx)
	r.st.nextEvent++
	r.st.outbox = append(r.st.outbox, outbox.Record{
		ID:            r.st.nextEvent,
		EventID:       uuid.NewString(),
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		EventType:     evt.EventType,
		Payload:       evt.Payload,
		Traceparent:   tc.Traceparent,
		Tracestate:    tc.Tracestate,
		CreatedAt:     r.now(),
	})
	return nil
}
