// Package httpclient is a promise-style HTTP request pipeline.
//
// A Client merges each call's Config over its defaults, runs the request
// interceptors, dispatches through a Transport and runs the response
// interceptors over the result. Failures are *Error values carrying a stable
// ErrorCode.
//
//	tr, err := httpclient.ResolveTransport(httpclient.HostEnvironment())
//	if err != nil {
//	    return err
//	}
//	defaults := httpclient.Defaults()
//	defaults.BaseURL = "https://api.example.com"
//	defaults.Timeout = 10 * time.Second
//	c := httpclient.New(defaults, httpclient.WithTransport(tr))
//
//	c.Interceptors.Request.Use(func(ctx context.Context, cfg *httpclient.Config) (*httpclient.Config, error) {
//	    cfg.Headers.Set("X-Tenant", tenantFrom(ctx))
//	    return cfg, nil
//	}, nil, httpclient.Synchronous())
//
//	resp, err := c.Get(ctx, "/users/7", nil)
//
// # Interceptors
//
// Request interceptors run most recently registered first; response
// interceptors run in registration order. A failure skips fulfilled
// handlers until a rejection handler recovers it. When every request
// interceptor of a call is Synchronous, they run on the caller's goroutine
// and the first failure aborts the call before dispatch.
//
// # Transports
//
// HTTPTransport sends requests with net/http. Middleware such as
// WithTracing, WithMetrics and WithCircuitBreaker wrap any Transport:
//
//	tr = httpclient.Chain(tr,
//	    httpclient.WithTracing("billing"),
//	    httpclient.WithCircuitBreaker(resilience.NewBreaker(resilience.BreakerConfig{Name: "billing"})),
//	)
//
// Subpackages add typed REST helpers (rest), ready-made interceptors
// (interceptors) and test transports (mock).
package httpclient
