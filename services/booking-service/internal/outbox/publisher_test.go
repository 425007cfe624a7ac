package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// sliceSource hands out records in order and drops them once delivered.
type sliceSource struct {
	pending []Record
}

func (s *sliceSource) Claim(ctx context.Context, limit int, deliver func(context.Context, []Record) error) error {
	n := min(limit, len(s.pending))
	if err := deliver(ctx, s.pending[:n]); err != nil {
		return err
	}
	s.pending = s.pending[n:]
	return nil
}

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func newTestPublisher(src Source) *Publisher {
	return NewPublisher(src, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{BatchSize: 2})
}

func TestPublishBatch(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	evt, err := NewEvent(AggregateBooking, "b-1", TopicBookingCreated, map[string]string{"booking_id": "b-1"})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	src := &sliceSource{pending: []Record{
		{ID: 1, EventID: "e-1", AggregateID: evt.AggregateID, EventType: evt.EventType, Payload: evt.Payload,
			Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		{ID: 2, EventID: "e-2", AggregateID: "b-2", EventType: TopicBookingCancelled, Payload: []byte(`{}`)},
		{ID: 3, EventID: "e-3", AggregateID: "b-3", EventType: TopicBookingRescheduled, Payload: []byte(`{}`)},
	}}
	w := &captureWriter{}
	p := newTestPublisher(src)

	if err := p.PublishBatch(context.Background(), w); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 2 || len(src.pending) != 1 {
		t.Fatalf("expected one batch of 2, got %d written and %d pending", len(w.msgs), len(src.pending))
	}

	first := w.msgs[0]
	if first.Topic != TopicBookingCreated || string(first.Key) != "b-1" || string(first.Value) != `{"booking_id":"b-1"}` {
		t.Fatalf("unexpected message %+v", first)
	}
	if kafkax.HeaderValue(first.Headers, kafkax.HeaderEventID) != "e-1" {
		t.Fatalf("missing event id header: %+v", first.Headers)
	}
	if tp := kafkax.HeaderValue(first.Headers, "traceparent"); tp == "" {
		t.Fatalf("stored trace context not forwarded: %+v", first.Headers)
	}
}

func TestPublishBatch_WriterFailureKeepsRecords(t *testing.T) {
	src := &sliceSource{pending: []Record{{ID: 1, EventID: "e-1", EventType: TopicBookingCreated}}}
	broken := errors.New("broker unavailable")

	if err := newTestPublisher(src).PublishBatch(context.Background(), &captureWriter{err: broken}); !errors.Is(err, broken) {
		t.Fatalf("expected writer error, got %v", err)
	}
	if len(src.pending) != 1 {
		t.Fatalf("records must stay pending after a failed write")
	}
}

func TestRunWithoutBrokersReturns(t *testing.T) {
	// No brokers configured: Run logs and returns immediately.
	newTestPublisher(&sliceSource{}).Run(context.Background())
}
