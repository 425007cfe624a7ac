package invite

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

func sample() (model.Booking, model.EventType) {
	created := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	b := model.Booking{
		ID:        "b-1",
		Name:      "Grace Hopper",
		Email:     "grace@example.com",
		Date:      wallclock.MustDate("2026-03-02"),
		StartTime: wallclock.MustClock("10:00"),
		EndTime:   wallclock.MustClock("10:30"),
		Timezone:  "UTC",
		Status:    model.StatusConfirmed,
		CreatedAt: created,
		UpdatedAt: created,
	}
	et := model.EventType{Title: "30 Min Interview", Description: "Intro call"}
	return b, et
}

func TestBuild_Request(t *testing.T) {
	b, et := sample()
	doc, err := Build(b, et, Organizer{Name: "Owner", Email: "owner@example.com"}, b.CreatedAt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(doc, "METHOD:REQUEST") {
		t.Fatalf("expected REQUEST method:\n%s", doc)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Id() != "b-1@slotbook" {
		t.Fatalf("unexpected uid %q", ev.Id())
	}
	start, err := ev.GetStartAt()
	if err != nil || !start.Equal(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v err=%v", start, err)
	}
	if s := ev.GetProperty(ics.ComponentPropertySummary); s == nil || s.Value != "30 Min Interview with Grace Hopper" {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s := ev.GetProperty(ics.ComponentPropertyStatus); s == nil || s.Value != string(ics.ObjectStatusConfirmed) {
		t.Fatalf("unexpected status %+v", s)
	}
}

func TestBuild_CancelBumpsSequence(t *testing.T) {
	b, et := sample()
	b.Status = model.StatusCancelled
	b.UpdatedAt = b.CreatedAt.Add(90 * time.Second)

	doc, err := Build(b, et, Organizer{}, b.UpdatedAt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(doc, "METHOD:CANCEL") || !strings.Contains(doc, "STATUS:CANCELLED") {
		t.Fatalf("expected cancel document:\n%s", doc)
	}
	if !strings.Contains(doc, "SEQUENCE:91") {
		t.Fatalf("expected sequence 91:\n%s", doc)
	}
}

func TestBuild_UnknownZone(t *testing.T) {
	b, et := sample()
	b.Timezone = "Nowhere/Land"
	if _, err := Build(b, et, Organizer{}, time.Now()); err == nil {
		t.Fatalf("expected zone error")
	}
}
