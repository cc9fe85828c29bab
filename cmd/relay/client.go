package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/relay/config"
	"github.com/kbukum/relay/httpclient"
	"github.com/kbukum/relay/httpclient/interceptors"
	"github.com/kbukum/relay/logger"
	"github.com/kbukum/relay/observability"
	"github.com/kbukum/relay/resilience"
)

type shutdownFunc func(context.Context) error

// buildClient assembles the client s describes: transport, middleware,
// telemetry and interceptors. base replaces the resolved HTTP transport
// when non-nil.
func buildClient(ctx context.Context, s *config.Settings, log *logger.Logger, base httpclient.Transport) (*httpclient.Client, shutdownFunc, error) {
	var shutdowns []shutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}

	if base == nil {
		t, err := httpclient.ResolveTransport(s.Transport.Environment())
		if err != nil {
			return nil, nil, fmt.Errorf("resolve transport: %w", err)
		}
		base = t
	}

	var mws []httpclient.Middleware
	if s.Tracing != nil {
		tp, err := observability.InitTracer(ctx, *s.Tracing)
		if err != nil {
			return nil, nil, fmt.Errorf("init tracer: %w", err)
		}
		shutdowns = append(shutdowns, tp.Shutdown)
		mws = append(mws, httpclient.WithTracing(s.Name))
	}
	if s.Metrics != nil {
		mp, err := observability.InitMeter(ctx, *s.Metrics)
		if err != nil {
			_ = shutdown(ctx)
			return nil, nil, fmt.Errorf("init meter: %w", err)
		}
		shutdowns = append(shutdowns, mp.Shutdown)
		metrics, err := observability.NewClientMetrics(observability.Meter(s.Name))
		if err != nil {
			_ = shutdown(ctx)
			return nil, nil, fmt.Errorf("client metrics: %w", err)
		}
		mws = append(mws, httpclient.WithMetrics(metrics))
	}
	mws = append(mws, httpclient.WithLogging(log.WithComponent("transport")))

	r := s.Resilience
	if r.Breaker != nil {
		cfg := *r.Breaker
		cfg.OnStateChange = func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state changed", logger.Fields("breaker", name, "from", from.String(), "to", to.String()))
		}
		mws = append(mws, httpclient.WithCircuitBreaker(resilience.NewBreaker(cfg)))
	}
	if r.Limiter != nil {
		mws = append(mws, httpclient.WithRateLimiter(resilience.NewLimiter(*r.Limiter)))
	}
	if r.Bulkhead != nil {
		mws = append(mws, httpclient.WithBulkhead(resilience.NewBulkhead(*r.Bulkhead)))
	}

	client := httpclient.New(s.Client.ClientConfig(),
		httpclient.WithTransport(httpclient.Chain(base, mws...)),
		httpclient.WithLogger(log.WithComponent("httpclient")),
	)

	req := client.Interceptors.Request
	req.Use(interceptors.RequestID(""), nil, httpclient.Synchronous())
	switch {
	case s.Auth.Token != "":
		req.Use(interceptors.Bearer(interceptors.StaticToken(s.Auth.Token)), nil, httpclient.Synchronous())
	case s.Auth.JWT != nil:
		signer, err := s.Auth.JWT.Signer()
		if err != nil {
			_ = shutdown(ctx)
			return nil, nil, err
		}
		req.Use(interceptors.JWT(signer), nil, httpclient.Synchronous())
	}
	req.Use(interceptors.LogRequest(log), nil, httpclient.Synchronous())

	res := client.Interceptors.Response
	if r.Retry != nil {
		res.Use(nil, interceptors.Retry(client, interceptors.RetryConfig{
			Backoff: *r.Retry,
			OnRetry: func(attempt int, err error) {
				log.Info("retrying request", logger.Fields("attempt", attempt, logger.FieldError, err.Error()))
			},
		}))
	}
	res.Use(interceptors.LogResponse(log))

	return client, shutdown, nil
}
