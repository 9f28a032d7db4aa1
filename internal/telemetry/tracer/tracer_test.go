package tracer

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestSetup_Disabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"disabled", Config{Enabled: false, Endpoint: "http://localhost:4318"}},
		{"no endpoint", Config{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), tt.cfg, "test")
			if err != nil {
				t.Fatalf("Setup() error = %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Errorf("shutdown() error = %v", err)
			}
		})
	}
}

func TestSetup_Enabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{
		Enabled:  true,
		Endpoint: "http://127.0.0.1:4318",
	}, "test")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	// No spans were recorded, so shutdown has nothing to export.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestNewProvider_Resource(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp, err := newProvider(context.Background(), Config{ServiceName: "registry-test"}, "1.2.3",
		sdktrace.WithSpanProcessor(rec))
	if err != nil {
		t.Fatal(err)
	}
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "registry.mint")
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	attrs := attribute.NewSet(spans[0].Resource().Attributes()...)
	if v, _ := attrs.Value(semconv.ServiceNameKey); v.AsString() != "registry-test" {
		t.Errorf("service.name = %q", v.AsString())
	}
	if v, _ := attrs.Value(semconv.ServiceVersionKey); v.AsString() != "1.2.3" {
		t.Errorf("service.version = %q", v.AsString())
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "ParentBased{root:AlwaysOnSampler"},
		{1, "ParentBased{root:AlwaysOnSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := sampler(tt.ratio).Description()
		if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
			t.Errorf("sampler(%v) = %q, want prefix %q", tt.ratio, got, tt.want)
		}
	}
}
