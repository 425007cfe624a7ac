package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type discardNotes struct{}

func (discardNotes) Created(context.Context, model.Booking, model.EventType)     {}
func (discardNotes) Cancelled(context.Context, model.Booking, model.EventType)   {}
func (discardNotes) Rescheduled(context.Context, model.Booking, model.EventType) {}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStore()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	mgr := booking.NewManager(store, nil, discardNotes{}, logger, booking.Options{
		Now: func() time.Time { return now },
	})
	h := New(mgr, catalog.NewService(store, logger), logger)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func seed(t *testing.T, srv *httptest.Server) model.EventType {
	t.Helper()
	var et model.EventType
	code := do(t, srv, http.MethodPost, "/api/event-types", map[string]any{
		"title":           "30 Min Interview",
		"slug":            "interview",
		"durationMinutes": 30,
	}, &et)
	if code != http.StatusCreated {
		t.Fatalf("create event type: %d", code)
	}

	var week []map[string]any
	for day := 1; day <= 5; day++ {
		week = append(week, map[string]any{"dayOfWeek": day, "startTime": "09:00", "endTime": "17:00"})
	}
	var bulk struct{ Count int }
	if code := do(t, srv, http.MethodPost, "/api/availability/bulk", map[string]any{"availabilities": week}, &bulk); code != http.StatusOK || bulk.Count != 5 {
		t.Fatalf("bulk availability: %d %+v", code, bulk)
	}
	return et
}

func TestBookingFlow(t *testing.T) {
	srv := newServer(t)
	et := seed(t, srv)

	var slots struct{ Slots []model.Slot }
	if code := do(t, srv, http.MethodGet, "/api/bookings/slots?slug=interview&date=2026-03-02&timezone=UTC", nil, &slots); code != http.StatusOK {
		t.Fatalf("slots: %d", code)
	}
	if len(slots.Slots) != 16 || slots.Slots[0].Time.String() != "09:00" {
		t.Fatalf("unexpected slots %+v", slots.Slots)
	}

	req := map[string]any{
		"eventTypeId": et.ID,
		"name":        "Ada Lovelace",
		"email":       "ada@example.com",
		"date":        "2026-03-02",
		"startTime":   "10:00",
		"endTime":     "10:30",
	}
	var b model.Booking
	if code := do(t, srv, http.MethodPost, "/api/bookings", req, &b); code != http.StatusCreated {
		t.Fatalf("create booking: %d", code)
	}
	if b.EventType == nil || b.EventType.Slug != "interview" || b.Status != model.StatusConfirmed {
		t.Fatalf("unexpected booking %+v", b)
	}

	var errBody struct{ Error string }
	if code := do(t, srv, http.MethodPost, "/api/bookings", req, &errBody); code != http.StatusConflict {
		t.Fatalf("duplicate booking: expected 409, got %d", code)
	}
	if errBody.Error != "This time slot is already booked" {
		t.Fatalf("unexpected error body %q", errBody.Error)
	}

	var got model.Booking
	if code := do(t, srv, http.MethodGet, "/api/bookings/"+b.ID, nil, &got); code != http.StatusOK || got.ID != b.ID {
		t.Fatalf("get booking: %d %+v", code, got)
	}

	var moved model.Booking
	if code := do(t, srv, http.MethodPatch, "/api/bookings/"+b.ID+"/reschedule", map[string]any{"date": "2026-03-03", "startTime": "14:00"}, &moved); code != http.StatusOK {
		t.Fatalf("reschedule: %d", code)
	}
	if moved.Date.String() != "2026-03-03" || moved.EndTime.String() != "14:30" {
		t.Fatalf("unexpected reschedule %+v", moved)
	}

	var list []model.Booking
	if code := do(t, srv, http.MethodGet, "/api/bookings?type=upcoming", nil, &list); code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list upcoming: %d %d", code, len(list))
	}

	var cancelled model.Booking
	if code := do(t, srv, http.MethodPatch, "/api/bookings/"+b.ID+"/cancel", nil, &cancelled); code != http.StatusOK || cancelled.Status != model.StatusCancelled {
		t.Fatalf("cancel: %d %+v", code, cancelled)
	}
	if code := do(t, srv, http.MethodGet, "/api/bookings?status=cancelled", nil, &list); code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list cancelled: %d %d", code, len(list))
	}
	if code := do(t, srv, http.MethodGet, "/api/bookings?status=cancelled&eventTypeId=interview&email=ADA@example.com", nil, &list); code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list filtered: %d %d", code, len(list))
	}
	if code := do(t, srv, http.MethodGet, "/api/bookings?status=cancelled&email=someone@example.com", nil, &list); code != http.StatusOK || len(list) != 0 {
		t.Fatalf("list other guest: %d %d", code, len(list))
	}
}

func TestSlotsRequiresSlug(t *testing.T) {
	srv := newServer(t)
	seed(t, srv)

	var body struct{ Error string }
	if code := do(t, srv, http.MethodGet, "/api/bookings/slots?date=2026-03-02", nil, &body); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if body.Error != "slug: is required" {
		t.Fatalf("unexpected error %q", body.Error)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newServer(t)
	seed(t, srv)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown booking", http.MethodGet, "/api/bookings/00000000-0000-0000-0000-000000000000", nil, http.StatusNotFound},
		{"unknown slug", http.MethodGet, "/api/bookings/slots?slug=nope&date=2026-03-02", nil, http.StatusNotFound},
		{"bad date", http.MethodGet, "/api/bookings/slots?slug=interview&date=tomorrow", nil, http.StatusBadRequest},
		{"bad list type", http.MethodGet, "/api/bookings?type=soon", nil, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/bookings", map[string]any{"eventTypeId": "interview", "email": "a@b.co", "date": "2026-03-02", "startTime": "10:00"}, http.StatusBadRequest},
		{"outside hours", http.MethodPost, "/api/bookings", map[string]any{"eventTypeId": "interview", "name": "A", "email": "a@b.co", "date": "2026-03-02", "startTime": "18:00"}, http.StatusBadRequest},
		{"duplicate slug", http.MethodPost, "/api/event-types", map[string]any{"title": "X", "slug": "interview", "durationMinutes": 15}, http.StatusBadRequest},
		{"bad override", http.MethodPost, "/api/date-overrides", map[string]any{"date": "2026-03-02", "startTime": "12:00"}, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/unknown", nil, http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/bookings", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct{ Error string }
			if code := do(t, srv, tt.method, tt.path, tt.body, &body); code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, code, body.Error)
			}
			if body.Error == "" {
				t.Fatalf("expected an error message")
			}
		})
	}
}

func TestInvalidJSON(t *testing.T) {
	srv := newServer(t)
	resp, err := srv.Client().Post(srv.URL+"/api/bookings", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestOverrideBlocksSlots(t *testing.T) {
	srv := newServer(t)
	seed(t, srv)

	var o model.DateOverride
	if code := do(t, srv, http.MethodPost, "/api/date-overrides", map[string]any{"date": "2026-03-02", "isBlocked": true}, &o); code != http.StatusCreated {
		t.Fatalf("create override: %d", code)
	}
	var slots struct{ Slots []model.Slot }
	if code := do(t, srv, http.MethodGet, "/api/bookings/slots?slug=interview&date=2026-03-02", nil, &slots); code != http.StatusOK || slots.Slots == nil || len(slots.Slots) != 0 {
		t.Fatalf("blocked date: %d %+v", code, slots.Slots)
	}
	var windows struct{ Windows []map[string]string }
	if code := do(t, srv, http.MethodGet, "/api/availability/windows?date=2026-03-03", nil, &windows); code != http.StatusOK || len(windows.Windows) != 1 || windows.Windows[0]["startTime"] != "09:00" {
		t.Fatalf("windows: %d %+v", code, windows)
	}
	var msg map[string]string
	if code := do(t, srv, http.MethodDelete, "/api/date-overrides/"+o.ID, nil, &msg); code != http.StatusOK {
		t.Fatalf("delete override: %d", code)
	}
}

func TestInviteDownload(t *testing.T) {
	srv := newServer(t)
	seed(t, srv)

	var b model.Booking
	req := map[string]any{"eventTypeId": "interview", "name": "Ada", "email": "ada@example.com", "date": "2026-03-02", "startTime": "11:00"}
	if code := do(t, srv, http.MethodPost, "/api/bookings", req, &b); code != http.StatusCreated {
		t.Fatalf("create: %d", code)
	}
	resp, err := srv.Client().Get(srv.URL + "/api/bookings/" + b.ID + "/invite.ics")
	if err != nil {
		t.Fatalf("get invite: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar") {
		t.Fatalf("unexpected invite response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), "BEGIN:VCALENDAR") {
		t.Fatalf("not an iCalendar document: %s", body)
	}
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
