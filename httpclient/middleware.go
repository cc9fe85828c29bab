package httpclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/relay/logger"
	"github.com/kbukum/relay/observability"
	"github.com/kbukum/relay/resilience"
)

// Middleware wraps a Transport with cross-cutting behavior.
type Middleware func(Transport) Transport

// Chain wraps t with mws. The first middleware is outermost.
//
// Chain(t, a, b) is equivalent to a(b(t)).
func Chain(t Transport, mws ...Middleware) Transport {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// WithLogging logs every exchange at debug level and failures at warn.
func WithLogging(log *logger.Logger) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(ctx, cfg)

			fields := logger.MergeWithDuration(logger.Fields(
				logger.FieldMethod, cfg.Method,
				logger.FieldURL, BuildFullPath(cfg.BaseURL, cfg.URL),
			), time.Since(start))
			if r := responseOrAttached(resp, err); r != nil {
				fields[logger.FieldStatus] = r.Status
			}
			if err != nil {
				fields[logger.FieldCode] = string(CodeOf(err))
				fields[logger.FieldError] = err.Error()
				log.Warn("http exchange failed", fields)
			} else {
				log.Debug("http exchange", fields)
			}
			return resp, err
		})
	}
}

// WithTracing records a client span around every exchange.
func WithTracing(serviceName string) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
			ctx, span := observability.StartSpan(ctx, observability.SpanHTTPClient,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("service.name", serviceName),
					attribute.String(observability.AttrHTTPMethod, strings.ToUpper(cfg.Method)),
					attribute.String(observability.AttrURL, BuildFullPath(cfg.BaseURL, cfg.URL)),
				),
			)
			defer span.End()

			resp, err := next.RoundTrip(ctx, cfg)
			if r := responseOrAttached(resp, err); r != nil {
				span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, r.Status))
			}
			if err != nil {
				if code := CodeOf(err); code != "" {
					span.SetAttributes(attribute.String(observability.AttrErrorType, string(code)))
				}
				observability.SetSpanError(ctx, err)
			}
			return resp, err
		})
	}
}

// WithMetrics records request counts, durations and errors.
func WithMetrics(m *observability.ClientMetrics) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
			m.RecordStart(ctx)
			start := time.Now()
			resp, err := next.RoundTrip(ctx, cfg)

			status := 0
			if r := responseOrAttached(resp, err); r != nil {
				status = r.Status
			}
			code := string(CodeOf(err))
			if err != nil && code == "" {
				code = "unknown"
			}
			m.RecordEnd(ctx, cfg.Method, status, code, time.Since(start))
			return resp, err
		})
	}
}

// WithCircuitBreaker fails fast while b is open. Network failures, timeouts
// and 5xx responses count against the breaker; cancellations and other
// status errors do not.
func WithCircuitBreaker(b *resilience.Breaker) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
			done, err := b.Allow()
			if err != nil {
				return nil, rejected(err, cfg)
			}
			resp, err := next.RoundTrip(ctx, cfg)
			if isServerFailure(err) {
				done(err)
			} else {
				done(nil)
			}
			return resp, err
		})
	}
}

// WithRateLimiter waits for a token before every exchange.
func WithRateLimiter(l *resilience.Limiter) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
			if err := l.Wait(ctx); err != nil {
				return nil, rejected(err, cfg)
			}
			return next.RoundTrip(ctx, cfg)
		})
	}
}

// WithBulkhead caps the number of exchanges in flight.
func WithBulkhead(b *resilience.Bulkhead) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
			release, err := b.Acquire(ctx)
			if err != nil {
				return nil, rejected(err, cfg)
			}
			defer release()
			return next.RoundTrip(ctx, cfg)
		})
	}
}

func rejected(err error, cfg *Config) *Error {
	e := NewError(err.Error(), ErrCodeRejected, cfg, nil, nil)
	e.Err = err
	return e
}

// isServerFailure reports whether err means the remote side is unhealthy.
func isServerFailure(err error) bool {
	switch CodeOf(err) {
	case "":
		return err != nil
	case ErrCodeNetwork, ErrCodeTimeout, ErrCodeAborted:
		return true
	case ErrCodeBadStatus:
		r := ResponseOf(err)
		return r != nil && r.Status >= http.StatusInternalServerError
	}
	return false
}

func responseOrAttached(resp *Response, err error) *Response {
	if resp != nil {
		return resp
	}
	return ResponseOf(err)
}
