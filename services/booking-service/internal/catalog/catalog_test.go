package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

func ptr[T any](v T) *T { return &v }

func newService() *Service {
	return NewService(storage.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEventTypeLifecycle(t *testing.T) {
	s := newService()
	ctx := context.Background()

	et, err := s.CreateEventType(ctx, EventTypeInput{
		Slug:            ptr("quick-chat"),
		Title:           ptr("Quick Chat"),
		DurationMinutes: ptr(15),
		BufferMinutes:   ptr(5),
		Questions:       &[]QuestionInput{{Question: "Topic?", Required: true}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if et.Color != model.DefaultColor || !et.IsActive {
		t.Fatalf("defaults not applied: %+v", et)
	}
	if len(et.Questions) != 1 || et.Questions[0].Type != model.QuestionText || et.Questions[0].ID == "" {
		t.Fatalf("unexpected questions %+v", et.Questions)
	}

	got, err := s.EventType(ctx, "quick-chat")
	if err != nil || got.ID != et.ID {
		t.Fatalf("lookup by slug: %+v %v", got, err)
	}
	if got, err = s.EventType(ctx, et.ID); err != nil || got.Slug != "quick-chat" {
		t.Fatalf("lookup by id: %+v %v", got, err)
	}

	updated, err := s.UpdateEventType(ctx, et.ID, EventTypeInput{Title: ptr("Quick Sync")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Quick Sync" || updated.DurationMinutes != 15 || len(updated.Questions) != 1 {
		t.Fatalf("partial update changed too much: %+v", updated)
	}

	if err := s.DeleteEventType(ctx, et.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	active, _ := s.ListEventTypes(ctx, false)
	if len(active) != 0 {
		t.Fatalf("deleted event type still listed: %+v", active)
	}
	all, _ := s.ListEventTypes(ctx, true)
	if len(all) != 1 {
		t.Fatalf("soft delete must keep the row, got %d", len(all))
	}
}

func TestEventTypeValidation(t *testing.T) {
	s := newService()
	ctx := context.Background()
	base := func() EventTypeInput {
		return EventTypeInput{Slug: ptr("intro"), Title: ptr("Intro"), DurationMinutes: ptr(30)}
	}

	tests := []struct {
		name   string
		mutate func(*EventTypeInput)
	}{
		{"missing title", func(in *EventTypeInput) { in.Title = nil }},
		{"bad slug", func(in *EventTypeInput) { in.Slug = ptr("Not A Slug") }},
		{"zero duration", func(in *EventTypeInput) { in.DurationMinutes = ptr(0) }},
		{"negative buffer", func(in *EventTypeInput) { in.BufferMinutes = ptr(-5) }},
		{"bad color", func(in *EventTypeInput) { in.Color = ptr("blue") }},
		{"bad question type", func(in *EventTypeInput) {
			in.Questions = &[]QuestionInput{{Question: "Pick", Type: "dropdown"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			if _, err := s.CreateEventType(ctx, in); !errors.Is(err, model.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := s.CreateEventType(ctx, base()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateEventType(ctx, base()); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("duplicate slug must be rejected, got %v", err)
	}
	if _, err := s.UpdateEventType(ctx, "00000000-0000-0000-0000-000000000000", base()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReplaceAvailability(t *testing.T) {
	s := newService()
	ctx := context.Background()

	if _, err := s.CreateAvailability(ctx, AvailabilityInput{DayOfWeek: ptr(6), StartTime: ptr("10:00"), EndTime: ptr("12:00")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var week []AvailabilityInput
	for day := 1; day <= 5; day++ {
		week = append(week, AvailabilityInput{DayOfWeek: ptr(day), StartTime: ptr("09:00"), EndTime: ptr("17:00")})
	}
	rows, err := s.ReplaceAvailability(ctx, week)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	listed, _ := s.ListAvailability(ctx, true)
	if len(listed) != 5 || listed[0].DayOfWeek != 1 || listed[0].Timezone != "UTC" {
		t.Fatalf("unexpected template %+v", listed)
	}

	bad := append(week, AvailabilityInput{DayOfWeek: ptr(7), StartTime: ptr("09:00"), EndTime: ptr("10:00")})
	if _, err := s.ReplaceAvailability(ctx, bad); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if listed, _ := s.ListAvailability(ctx, true); len(listed) != 5 {
		t.Fatalf("failed replace must not change the template, got %d rows", len(listed))
	}
}

func TestAvailabilityValidationAndUpdate(t *testing.T) {
	s := newService()
	ctx := context.Background()

	if _, err := s.CreateAvailability(ctx, AvailabilityInput{DayOfWeek: ptr(1), StartTime: ptr("17:00"), EndTime: ptr("09:00")}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected start<end validation, got %v", err)
	}
	if _, err := s.CreateAvailability(ctx, AvailabilityInput{DayOfWeek: ptr(1), StartTime: ptr("09:00"), EndTime: ptr("17:00"), Timezone: ptr("Nowhere/Land")}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected timezone validation, got %v", err)
	}

	wa, err := s.CreateAvailability(ctx, AvailabilityInput{DayOfWeek: ptr(1), StartTime: ptr("09:00"), EndTime: ptr("17:00")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := s.UpdateAvailability(ctx, wa.ID, AvailabilityInput{IsActive: ptr(false), EndTime: ptr("12:00")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IsActive || updated.EndTime != wallclock.MustClock("12:00") || updated.StartTime != wallclock.MustClock("09:00") {
		t.Fatalf("unexpected update %+v", updated)
	}
	if active, _ := s.ListAvailability(ctx, false); len(active) != 0 {
		t.Fatalf("inactive rows must be hidden, got %+v", active)
	}
	if err := s.DeleteAvailability(ctx, wa.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteAvailability(ctx, wa.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOverrides(t *testing.T) {
	s := newService()
	ctx := context.Background()

	o, err := s.CreateOverride(ctx, OverrideInput{Date: ptr("2026-12-24"), StartTime: ptr("09:00"), EndTime: ptr("12:00")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !o.HasWindow() || o.IsBlocked {
		t.Fatalf("expected custom window, got %+v", o)
	}

	blocked, err := s.UpdateOverride(ctx, o.ID, OverrideInput{IsBlocked: ptr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !blocked.IsBlocked || blocked.HasWindow() {
		t.Fatalf("blocked override must drop its times, got %+v", blocked)
	}

	for name, in := range map[string]OverrideInput{
		"missing date":  {IsBlocked: ptr(true)},
		"only start":    {Date: ptr("2026-12-26"), StartTime: ptr("09:00")},
		"inverted":      {Date: ptr("2026-12-26"), StartTime: ptr("12:00"), EndTime: ptr("09:00")},
		"bad date":      {Date: ptr("26-12-2026")},
		"duplicate day": {Date: ptr("2026-12-24"), IsBlocked: ptr(true)},
	} {
		if _, err := s.CreateOverride(ctx, in); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}

	list, _ := s.ListOverrides(ctx)
	if len(list) != 1 {
		t.Fatalf("expected 1 override, got %d", len(list))
	}
	if err := s.DeleteOverride(ctx, o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
