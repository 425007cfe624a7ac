package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Carrier is the W3C trace context stored with an outbox row so the publish
// span links back to the request that wrote it.
type Carrier struct {
	Traceparent string
	Tracestate  string
}

func Capture(ctx context.Context) Carrier {
	m := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, m)
	return Carrier{Traceparent: m["traceparent"], Tracestate: m["tracestate"]}
}

// Restore returns ctx unchanged when c is empty.
func (c Carrier) Restore(ctx context.Context) context.Context {
	if c.Traceparent == "" {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{
		"traceparent": c.Traceparent,
		"tracestate":  c.Tracestate,
	})
}
