package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/email"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
	fail map[string]error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[msg.To]; err != nil {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func fixture() (model.Booking, model.EventType) {
	et := model.EventType{ID: "et-1", Slug: "intro", Title: "30 Min Interview", DurationMinutes: 30}
	b := model.Booking{
		ID:          "b-1",
		EventTypeID: et.ID,
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		Date:        wallclock.MustDate("2026-03-02"),
		StartTime:   wallclock.MustClock("10:00"),
		EndTime:     wallclock.MustClock("10:30"),
		Timezone:    "UTC",
		Status:      model.StatusConfirmed,
		Answers:     []model.BookingAnswer{{QuestionID: "q1", Question: "Company?", Answer: "Analytical Engines"}},
	}
	return b, et
}

func TestEmailNotifier_Created(t *testing.T) {
	sender := &recordingSender{}
	n := NewEmailNotifier(sender, Owner{Name: "Host", Email: "host@example.com"})
	b, et := fixture()

	if err := n.BookingCreated(context.Background(), b, et); err != nil {
		t.Fatalf("created: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected guest and owner emails, got %d", len(sender.sent))
	}
	guest, owner := sender.sent[0], sender.sent[1]
	if guest.To != "ada@example.com" || guest.Subject != "Booking Confirmed: 30 Min Interview on Monday, March 2, 2026" {
		t.Fatalf("unexpected guest email %q to %q", guest.Subject, guest.To)
	}
	if !strings.Contains(guest.Body, "10:00 AM - 10:30 AM") {
		t.Fatalf("guest body missing times: %q", guest.Body)
	}
	if len(guest.Attachments) != 1 || !strings.Contains(guest.Attachments[0].ContentType, "method=REQUEST") {
		t.Fatalf("expected REQUEST invite, got %+v", guest.Attachments)
	}
	if owner.To != "host@example.com" || owner.Subject != "New Booking: 30 Min Interview - Ada Lovelace" {
		t.Fatalf("unexpected owner email %q to %q", owner.Subject, owner.To)
	}
	if !strings.Contains(owner.Body, "Company?: Analytical Engines") {
		t.Fatalf("owner body missing answers: %q", owner.Body)
	}
}

func TestEmailNotifier_CancelledWithoutOwner(t *testing.T) {
	sender := &recordingSender{}
	n := NewEmailNotifier(sender, Owner{})
	b, et := fixture()
	b.Status = model.StatusCancelled

	if err := n.BookingCancelled(context.Background(), b, et); err != nil {
		t.Fatalf("cancelled: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("owner email must be skipped without OWNER_EMAIL, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Subject != "Booking Cancelled: 30 Min Interview" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Attachments[0].ContentType, "method=CANCEL") {
		t.Fatalf("expected CANCEL invite, got %q", msg.Attachments[0].ContentType)
	}
}

func TestEmailNotifier_FailureWrapped(t *testing.T) {
	smtpDown := errors.New("smtp down")
	sender := &recordingSender{fail: map[string]error{"ada@example.com": smtpDown}}
	n := NewEmailNotifier(sender, Owner{Email: "host@example.com"})
	b, et := fixture()

	err := n.BookingRescheduled(context.Background(), b, et)
	if !errors.Is(err, ErrNotification) || !errors.Is(err, smtpDown) {
		t.Fatalf("expected wrapped notification error, got %v", err)
	}
	// The owner still hears about it.
	if len(sender.sent) != 1 || sender.sent[0].To != "host@example.com" {
		t.Fatalf("owner email should still be sent, got %+v", sender.sent)
	}
}

type blockingNotifier struct {
	Noop
	release chan struct{}
	calls   chan string
}

func (n *blockingNotifier) BookingCreated(ctx context.Context, b model.Booking, _ model.EventType) error {
	n.calls <- b.ID
	select {
	case <-n.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestDispatcher_DetachedFromRequest(t *testing.T) {
	n := &blockingNotifier{release: make(chan struct{}), calls: make(chan string, 1)}
	d := NewDispatcher(n, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second)
	b, et := fixture()

	ctx, cancel := context.WithCancel(context.Background())
	d.Created(ctx, b, et)
	cancel()

	select {
	case id := <-n.calls:
		if id != "b-1" {
			t.Fatalf("unexpected booking %q", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("notification never started")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()
	if err := d.Wait(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Wait to block on in-flight notification, got %v", err)
	}

	close(n.release)
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
