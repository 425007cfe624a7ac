package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Dispatcher runs notifications on detached goroutines so delivery never
// blocks or fails the request that triggered it.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{notifier: n, logger: logger, timeout: timeout}
}

func (d *Dispatcher) Created(ctx context.Context, b model.Booking, et model.EventType) {
	d.dispatch(ctx, "booking_created", b, func(ctx context.Context) error {
		return d.notifier.BookingCreated(ctx, b, et)
	})
}

func (d *Dispatcher) Cancelled(ctx context.Context, b model.Booking, et model.EventType) {
	d.dispatch(ctx, "booking_cancelled", b, func(ctx context.Context) error {
		return d.notifier.BookingCancelled(ctx, b, et)
	})
}

func (d *Dispatcher) Rescheduled(ctx context.Context, b model.Booking, et model.EventType) {
	d.dispatch(ctx, "booking_rescheduled", b, func(ctx context.Context) error {
		return d.notifier.BookingRescheduled(ctx, b, et)
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, b model.Booking, fn func(context.Context) error) {
	// Keep request values (trace, request id) but not its cancellation.
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("notification panicked", "kind", kind, "booking_id", b.ID, "panic", r)
			}
		}()
		if err := fn(ctx); err != nil {
			if !errors.Is(err, ErrNotification) {
				err = errors.Join(ErrNotification, err)
			}
			d.logger.Error("notification failed", "kind", kind, "booking_id", b.ID, "err", err)
			return
		}
		d.logger.Info("notification sent", "kind", kind, "booking_id", b.ID)
	}()
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
