// Package resilience guards outbound calls.
//
// Breaker fails fast once a dependency keeps failing, Limiter paces calls
// with a token bucket, Bulkhead caps concurrency and Backoff computes retry
// delays. Each is safe for concurrent use and knows nothing about HTTP; the
// httpclient package adapts them to transports and interceptors.
//
//	br := resilience.NewBreaker(resilience.BreakerConfig{Name: "billing"})
//	done, err := br.Allow()
//	if err != nil {
//	    return err
//	}
//	resp, err := call()
//	done(err)
package resilience
