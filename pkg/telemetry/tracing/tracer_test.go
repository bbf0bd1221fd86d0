package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"odd-hq/decisioning/pkg/config"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
	}{
		{name: "nil config", config: nil, wantErr: true},
		{name: "disabled", config: &config.TracingConfig{Enabled: false}},
		{
			name:    "unknown sampler",
			config:  &config.TracingConfig{Enabled: true, Sampler: "sometimes", Endpoint: "localhost:4317"},
			wantErr: true,
		},
		{
			name:   "enabled",
			config: &config.TracingConfig{Enabled: true, Sampler: SamplerAlways, ServiceName: "test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config, WithExporter(tracetest.NewInMemoryExporter()))
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				defer tracer.Shutdown(context.Background())
				if tracer.Enabled() != tt.config.Enabled {
					t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.config.Enabled)
				}
			}
		})
	}
}

func TestTracer_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	span.End()

	if TraceID(ctx) != "" {
		t.Errorf("TraceID() = %q, want empty for a noop span", TraceID(ctx))
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestTracer_ExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := New(&config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerAlways,
		ServiceName: "test",
	}, WithExporter(exporter), WithServiceVersion("1.2.3"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	ctx, span := tracer.Start(context.Background(), "decisioning.send_event")
	if TraceID(ctx) == "" {
		t.Error("TraceID() is empty inside a sampled span")
	}
	SetStatus(span, errors.New("boom"))
	span.End()

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	if spans[0].Name != "decisioning.send_event" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("SetStatus() did not record the error event")
	}
}

func TestPropagation_RoundTrip(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := New(&config.TracingConfig{Enabled: true, Sampler: SamplerAlways}, WithExporter(exporter))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	ctx, span := tracer.Start(context.Background(), "outgoing")
	defer span.End()

	headers := http.Header{}
	Inject(ctx, headers)
	if headers.Get("traceparent") == "" {
		t.Fatal("Inject() did not set traceparent")
	}

	extracted := Extract(context.Background(), headers)
	if got, want := TraceID(extracted), TraceID(ctx); got != want {
		t.Errorf("TraceID(Extract()) = %q, want %q", got, want)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{name: "always", strategy: SamplerAlways},
		{name: "never", strategy: SamplerNever},
		{name: "ratio 0", strategy: SamplerRatio, ratio: 0},
		{name: "ratio 0.5", strategy: SamplerRatio, ratio: 0.5},
		{name: "ratio 1", strategy: SamplerRatio, ratio: 1},
		{name: "ratio negative", strategy: SamplerRatio, ratio: -0.1, wantErr: true},
		{name: "ratio above 1", strategy: SamplerRatio, ratio: 1.1, wantErr: true},
		{name: "unknown", strategy: "parent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("createSampler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && sampler == nil {
				t.Error("createSampler() returned nil sampler")
			}
		})
	}
}
