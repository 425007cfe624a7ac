// Package notify tells guests and the calendar owner about booking changes.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/email"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/invite"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

// ErrNotification wraps every delivery failure. It is never fatal to the
// booking operation that triggered it.
var ErrNotification = errors.New("notification failed")

type Notifier interface {
	BookingCreated(ctx context.Context, b model.Booking, et model.EventType) error
	BookingCancelled(ctx context.Context, b model.Booking, et model.EventType) error
	BookingRescheduled(ctx context.Context, b model.Booking, et model.EventType) error
}

// Owner is the calendar owner who receives a copy of every notification.
type Owner = invite.Organizer

// EmailNotifier sends one guest-facing and one owner-facing email per event.
// The guest copy carries an .ics invite.
type EmailNotifier struct {
	sender email.Sender
	owner  Owner
	now    func() time.Time
}

func NewEmailNotifier(sender email.Sender, owner Owner) *EmailNotifier {
	return &EmailNotifier{sender: sender, owner: owner, now: time.Now}
}

func (n *EmailNotifier) BookingCreated(ctx context.Context, b model.Booking, et model.EventType) error {
	when := wallclock.FormatLongDate(b.Date)
	guest := email.Message{
		To:      b.Email,
		Subject: fmt.Sprintf("Booking Confirmed: %s on %s", et.Title, when),
		Body: fmt.Sprintf("Hi %s,\r\n\r\nYour booking is confirmed.\r\n\r\n%s\r\n\r\nA calendar invite is attached.\r\n",
			b.Name, describe(b, et)),
	}
	owner := email.Message{
		Subject: fmt.Sprintf("New Booking: %s - %s", et.Title, b.Name),
		Body:    fmt.Sprintf("You have a new booking.\r\n\r\n%s\r\n%s", describe(b, et), guestDetails(b)),
	}
	return n.deliver(ctx, b, et, guest, owner)
}

func (n *EmailNotifier) BookingCancelled(ctx context.Context, b model.Booking, et model.EventType) error {
	guest := email.Message{
		To:      b.Email,
		Subject: fmt.Sprintf("Booking Cancelled: %s", et.Title),
		Body: fmt.Sprintf("Hi %s,\r\n\r\nYour booking has been cancelled.\r\n\r\n%s\r\n",
			b.Name, describe(b, et)),
	}
	owner := email.Message{
		Subject: fmt.Sprintf("Booking Cancelled: %s - %s", et.Title, b.Name),
		Body:    fmt.Sprintf("A booking was cancelled.\r\n\r\n%s\r\n%s", describe(b, et), guestDetails(b)),
	}
	return n.deliver(ctx, b, et, guest, owner)
}

func (n *EmailNotifier) BookingRescheduled(ctx context.Context, b model.Booking, et model.EventType) error {
	when := wallclock.FormatLongDate(b.Date)
	guest := email.Message{
		To:      b.Email,
		Subject: fmt.Sprintf("Booking Rescheduled: %s on %s", et.Title, when),
		Body: fmt.Sprintf("Hi %s,\r\n\r\nYour booking has moved.\r\n\r\n%s\r\n\r\nAn updated calendar invite is attached.\r\n",
			b.Name, describe(b, et)),
	}
	owner := email.Message{
		Subject: fmt.Sprintf("Booking Rescheduled: %s - %s", et.Title, b.Name),
		Body:    fmt.Sprintf("A booking was rescheduled.\r\n\r\n%s\r\n%s", describe(b, et), guestDetails(b)),
	}
	return n.deliver(ctx, b, et, guest, owner)
}

func (n *EmailNotifier) deliver(ctx context.Context, b model.Booking, et model.EventType, guest, owner email.Message) error {
	var errs []error

	doc, err := invite.Build(b, et, n.owner, n.now())
	if err != nil {
		errs = append(errs, fmt.Errorf("build invite: %w", err))
	} else {
		method := "REQUEST"
		if b.Status == model.StatusCancelled {
			method = "CANCEL"
		}
		guest.Attachments = []email.Attachment{{
			Filename:    "invite.ics",
			ContentType: "text/calendar; charset=utf-8; method=" + method,
			Data:        []byte(doc),
		}}
	}

	if err := n.sender.Send(ctx, guest); err != nil {
		errs = append(errs, fmt.Errorf("guest email: %w", err))
	}
	if n.owner.Email != "" {
		owner.To = n.owner.Email
		if err := n.sender.Send(ctx, owner); err != nil {
			errs = append(errs, fmt.Errorf("owner email: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNotification, errors.Join(errs...))
	}
	return nil
}

func describe(b model.Booking, et model.EventType) string {
	tz := b.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return fmt.Sprintf("Event: %s\r\nDate: %s\r\nTime: %s - %s (%s)",
		et.Title,
		wallclock.FormatLongDate(b.Date),
		wallclock.FormatKitchen(b.StartTime),
		wallclock.FormatKitchen(b.EndTime),
		tz,
	)
}

func guestDetails(b model.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\r\nGuest: %s <%s>\r\n", b.Name, b.Email)
	if b.Notes != "" {
		fmt.Fprintf(&sb, "Notes: %s\r\n", b.Notes)
	}
	for _, a := range b.Answers {
		q := a.Question
		if q == "" {
			q = a.QuestionID
		}
		fmt.Fprintf(&sb, "%s: %s\r\n", q, a.Answer)
	}
	return sb.String()
}

// Noop discards every notification.
type Noop struct{}

func (Noop) BookingCreated(context.Context, model.Booking, model.EventType) error     { return nil }
func (Noop) BookingCancelled(context.Context, model.Booking, model.EventType) error   { return nil }
func (Noop) BookingRescheduled(context.Context, model.Booking, model.EventType) error { return nil }
