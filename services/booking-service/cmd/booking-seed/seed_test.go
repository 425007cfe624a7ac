package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

func TestApplyDefaultFixture(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := catalog.NewService(storage.NewMemoryStore(), logger)
	f, err := parseFixture(defaultFixture)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	res, err := apply(context.Background(), svc, f, logger)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Created != 2 || res.Skipped != 0 || res.Windows != 5 {
		t.Fatalf("unexpected result %+v", res)
	}
	chat, err := svc.EventType(context.Background(), "quick-chat")
	if err != nil {
		t.Fatalf("quick-chat: %v", err)
	}
	if chat.DurationMinutes != 15 || chat.BufferMinutes != 5 || chat.Color != "#10b981" {
		t.Fatalf("unexpected quick chat %+v", chat)
	}

	res, err = apply(context.Background(), svc, f, logger)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if res.Created != 0 || res.Skipped != 2 {
		t.Fatalf("expected second run to skip, got %+v", res)
	}
	all, _ := svc.ListEventTypes(context.Background(), true)
	if len(all) != 2 {
		t.Fatalf("expected 2 event types, got %d", len(all))
	}
	windows, _ := svc.ListAvailability(context.Background(), false)
	if len(windows) != 5 {
		t.Fatalf("expected 5 windows, got %d", len(windows))
	}
}

func TestParseFixtureRejectsBadYAML(t *testing.T) {
	if _, err := parseFixture([]byte("eventTypes: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyReportsInvalidEntry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := catalog.NewService(storage.NewMemoryStore(), logger)
	f, err := parseFixture([]byte("eventTypes:\n  - slug: broken\n    title: Broken\n    durationMinutes: 0\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := apply(context.Background(), svc, f, logger); err == nil {
		t.Fatalf("expected validation error")
	}
}
