package observability

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"personakit/internal/config"
)

func TestGetObservabilityConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.Enabled = true
	cfg.Observability.ServiceName = "personakit"
	cfg.Observability.SampleRate = 1.0
	cfg.Observability.Tracing = config.TracingConfig{Enabled: true, SampleRate: 0.25}
	cfg.Observability.Metrics.Enabled = false
	cfg.Observability.Prometheus = config.PrometheusConfig{Enabled: true, Endpoint: "/metrics", Port: "9090"}
	cfg.Observability.Console.Enabled = true

	got := GetObservabilityConfig(cfg, "1.2.3")

	if got.ServiceVersion != "1.2.3" {
		t.Errorf("Expected app version to fill service version, got %q", got.ServiceVersion)
	}
	if got.SampleRate != 0.25 {
		t.Errorf("Expected tracing sample rate to win, got %v", got.SampleRate)
	}
	if got.Prometheus.Enabled {
		t.Error("Expected Prometheus to be off when metrics are disabled")
	}
	if !got.ConsoleOutput {
		t.Error("Expected console output from console.enabled")
	}

	cfg.Observability.Tracing.Enabled = false
	if got := GetObservabilityConfig(cfg, "1.2.3"); got.SampleRate != 0 {
		t.Errorf("Expected zero sample rate with tracing disabled, got %v", got.SampleRate)
	}
}

func TestDisabledManagerIsPassThrough(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	metrics := om.GetMetrics()
	want := stderrors.New("boom")
	called := false
	err = metrics.TrackAIOperationWithTokens(context.Background(), "generate", func(context.Context) *AIOperationResult {
		called = true
		return &AIOperationResult{Error: want}
	}, om)
	if !called {
		t.Fatal("Expected operation to run")
	}
	if err != want {
		t.Errorf("Expected operation error to pass through, got %v", err)
	}

	// Uninitialised counters are skipped
	metrics.RecordBusinessMetric(context.Background(), MetricPersonaSaved, true, om)
	if err := om.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func TestEnabledManagerRecordsWithoutExporters(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.Metrics.CollectionInterval = time.Second
	cfg.Observability.CustomMetrics.AIOperations = config.AIOperationsMetricsConfig{
		Enabled: true, TrackDuration: true, TrackTokenUsage: true,
	}

	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName:    "personakit-test",
		ServiceVersion: "test",
		Enabled:        true,
		SampleRate:     1.0,
	}, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	metrics := om.GetMetrics()
	if metrics.PersonasGenerated == nil || metrics.CacheLookups == nil {
		t.Fatal("Expected custom metrics to be initialised")
	}

	err = metrics.TrackAIOperationWithTokens(context.Background(), "generate", func(context.Context) *AIOperationResult {
		return &AIOperationResult{TokenUsage: &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
	}, om)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	metrics.RecordBusinessMetric(context.Background(), MetricRangeOverride, true, om)
	metrics.RecordBusinessMetric(context.Background(), "unknown", true, om)
}
