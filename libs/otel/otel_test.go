package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	prev := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = prev })
}

func TestConfigFromEnv(t *testing.T) {
	withEnv(t, map[string]string{})
	if cfg := ConfigFromEnv("booking"); cfg.Enabled || cfg.SampleRatio != 1 || cfg.Environment != "local" {
		t.Fatalf("expected disabled default config, got %+v", cfg)
	}

	withEnv(t, map[string]string{
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4317",
		"OTEL_SAMPLING_RATIO":         "0.25",
	})
	cfg := ConfigFromEnv("booking")
	if !cfg.Enabled || cfg.OTLPEndpoint != "collector:4317" || cfg.SampleRatio != 0.25 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	withEnv(t, map[string]string{
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4317",
		"OTEL_ENABLED":                "false",
		"OTEL_SAMPLING_RATIO":         "7",
	})
	cfg = ConfigFromEnv("booking")
	if cfg.Enabled || cfg.SampleRatio != 1 {
		t.Fatalf("expected disabled config with default ratio, got %+v", cfg)
	}
}

func TestCarrierRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	c := Capture(ctx)
	if c.Traceparent == "" {
		t.Fatalf("expected traceparent")
	}
	out := trace.SpanContextFromContext(c.Restore(context.Background()))
	if out.TraceID() != traceID {
		t.Fatalf("expected trace %s, got %s", traceID, out.TraceID())
	}

	if got := (Carrier{}).Restore(context.Background()); got != context.Background() {
		t.Fatalf("empty carrier must not change the context")
	}
}
