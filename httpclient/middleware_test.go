package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/relay/logger"
	"github.com/kbukum/relay/observability"
	"github.com/kbukum/relay/resilience"
)

func testConfig() *Config {
	cfg := Defaults()
	cfg.Method = "get"
	cfg.URL = "/items"
	cfg.BaseURL = "http://api.local"
	return cfg
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Transport) Transport {
			return TransportFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
				order = append(order, name+":in")
				resp, err := next.RoundTrip(ctx, cfg)
				order = append(order, name+":out")
				return resp, err
			})
		}
	}

	tr := Chain(&recordingTransport{}, mark("a"), mark("b"))
	if _, err := tr.RoundTrip(context.Background(), testConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "a:in,b:in,b:out,a:out"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	tr := Chain(&recordingTransport{status: 503}, WithLogging(log))
	_, err := tr.RoundTrip(context.Background(), testConfig())
	if !IsStatusError(err) {
		t.Fatalf("expected status error, got %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["level"] != "warn" {
		t.Errorf("expected warn level, got %v", entry["level"])
	}
	if entry[logger.FieldStatus] != float64(503) {
		t.Errorf("expected status 503, got %v", entry[logger.FieldStatus])
	}
	if entry[logger.FieldURL] != "http://api.local/items" {
		t.Errorf("expected full url, got %v", entry[logger.FieldURL])
	}
	if entry[logger.FieldCode] != string(ErrCodeBadStatus) {
		t.Errorf("expected code %s, got %v", ErrCodeBadStatus, entry[logger.FieldCode])
	}
}

func TestWithTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ok := Chain(&recordingTransport{status: 200}, WithTracing("relay"))
	failing := Chain(&recordingTransport{status: 500}, WithTracing("relay"))

	if _, err := ok.RoundTrip(context.Background(), testConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := failing.RoundTrip(context.Background(), testConfig()); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status.Code == codes.Error {
		t.Error("expected first span to succeed")
	}
	if spans[1].Status.Code != codes.Error {
		t.Error("expected second span to carry an error status")
	}

	attrs := map[string]string{}
	for _, kv := range spans[1].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[observability.AttrHTTPMethod] != "GET" {
		t.Errorf("expected method GET, got %q", attrs[observability.AttrHTTPMethod])
	}
	if attrs[observability.AttrHTTPStatus] != "500" {
		t.Errorf("expected status 500, got %q", attrs[observability.AttrHTTPStatus])
	}
	if attrs[observability.AttrErrorType] != string(ErrCodeBadStatus) {
		t.Errorf("expected error type %s, got %q", ErrCodeBadStatus, attrs[observability.AttrErrorType])
	}
}

func TestWithMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := observability.NewClientMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	_, _ = Chain(&recordingTransport{}, WithMetrics(m)).RoundTrip(ctx, testConfig())
	_, _ = Chain(&recordingTransport{err: errors.New("dial")}, WithMetrics(m)).RoundTrip(ctx, testConfig())

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if s, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}
	if sums["http.client.request.total"] != 2 {
		t.Errorf("expected 2 requests, got %d", sums["http.client.request.total"])
	}
	if sums["http.client.error.total"] != 1 {
		t.Errorf("expected 1 error, got %d", sums["http.client.error.total"])
	}
}

func TestWithCircuitBreaker(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantOpen bool
	}{
		{"server errors open", 502, true},
		{"client errors do not", 404, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := resilience.NewBreaker(resilience.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Hour})
			inner := &recordingTransport{status: tt.status}
			tr := Chain(inner, WithCircuitBreaker(br))

			for range 3 {
				_, _ = tr.RoundTrip(context.Background(), testConfig())
			}

			if got := br.State() == resilience.StateOpen; got != tt.wantOpen {
				t.Errorf("expected open=%v, got state %s", tt.wantOpen, br.State())
			}
			if tt.wantOpen && inner.calls() != 2 {
				t.Errorf("expected 2 calls before opening, got %d", inner.calls())
			}
		})
	}
}

func TestWithCircuitBreaker_RejectedError(t *testing.T) {
	br := resilience.NewBreaker(resilience.BreakerConfig{MaxFailures: 1, OpenTimeout: time.Hour})
	tr := Chain(&recordingTransport{err: errors.New("reset")}, WithCircuitBreaker(br))

	_, _ = tr.RoundTrip(context.Background(), testConfig())
	_, err := tr.RoundTrip(context.Background(), testConfig())

	if !IsRejected(err) {
		t.Fatalf("expected rejected error, got %v", err)
	}
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected to wrap ErrCircuitOpen, got %v", err)
	}
}

func TestWithRateLimiter(t *testing.T) {
	l := resilience.NewLimiter(resilience.LimiterConfig{Rate: 0.001, Burst: 1})
	inner := &recordingTransport{}
	tr := Chain(inner, WithRateLimiter(l))

	if _, err := tr.RoundTrip(context.Background(), testConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := tr.RoundTrip(ctx, testConfig())
	if !IsRejected(err) {
		t.Errorf("expected rejected error, got %v", err)
	}
	if inner.calls() != 1 {
		t.Errorf("expected 1 call, got %d", inner.calls())
	}
}

func TestWithBulkhead(t *testing.T) {
	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 1})
	entered := make(chan struct{})
	unblock := make(chan struct{})
	slow := TransportFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
		close(entered)
		<-unblock
		return &Response{Status: 200, Config: cfg}, nil
	})
	tr := Chain(slow, WithBulkhead(bh))

	done := make(chan error, 1)
	go func() {
		_, err := tr.RoundTrip(context.Background(), testConfig())
		done <- err
	}()
	<-entered

	if _, err := tr.RoundTrip(context.Background(), testConfig()); !errors.Is(err, resilience.ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}

	close(unblock)
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
