package interceptors

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kbukum/relay/httpclient"
	"github.com/kbukum/relay/resilience"
)

// extraRetryAttempt is the Config.Extra key holding the attempt number of a
// re-issued request.
const extraRetryAttempt = "retry_attempt"

// RetryConfig configures Retry.
type RetryConfig struct {
	Backoff resilience.Backoff
	// RetryIf decides whether a failure is retried. Defaults to
	// DefaultRetryIf.
	RetryIf func(err error) bool
	// OnRetry is called before each new attempt.
	OnRetry func(attempt int, err error)
}

// DefaultRetryIf retries network errors, timeouts, 429 and 5xx responses of
// idempotent methods.
func DefaultRetryIf(err error) bool {
	var e *httpclient.Error
	if !errors.As(err, &e) || e.Config == nil || !idempotent(e.Config.Method) {
		return false
	}
	switch {
	case httpclient.IsNetworkError(err), httpclient.IsTimeout(err):
		return true
	case e.Response != nil:
		return e.Response.Status == http.StatusTooManyRequests || e.Response.Status >= 500
	}
	return false
}

func idempotent(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// Retry returns a response rejection handler that re-issues failed requests
// through c, waiting cfg.Backoff between attempts. The re-issued request runs
// the whole pipeline again, including this handler, and carries its attempt
// number in Config.Extra. Cancellations and bodies read from a Reader are
// never retried.
func Retry(c *httpclient.Client, cfg RetryConfig) httpclient.RejectedFunc[*httpclient.Response] {
	cfg.Backoff.ApplyDefaults()
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}

	return func(ctx context.Context, err error) (*httpclient.Response, error) {
		var e *httpclient.Error
		if httpclient.IsCancel(err) || !errors.As(err, &e) || e.Config == nil {
			return nil, err
		}
		if !replayable(e.Config.Data) {
			return nil, err
		}

		attempt := AttemptOf(e.Config)
		if attempt >= cfg.Backoff.MaxAttempts || !cfg.RetryIf(err) {
			return nil, err
		}
		if serr := resilience.Sleep(ctx, cfg.Backoff.Delay(attempt)); serr != nil {
			return nil, err
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err)
		}

		next := e.Config.Clone()
		if next.Extra == nil {
			next.Extra = map[string]any{}
		}
		next.Extra[extraRetryAttempt] = attempt + 1
		// Data is already encoded.
		next.TransformRequest = []httpclient.TransformFunc{}
		return c.Request(ctx, next)
	}
}

// replayable reports whether data can be sent again. Streams and multipart
// files read from a Reader were consumed by the failed attempt.
func replayable(data httpclient.Body) bool {
	switch b := data.(type) {
	case httpclient.StreamBody:
		return false
	case *httpclient.FormBody:
		if b == nil {
			return true
		}
		for _, f := range b.Files {
			if f.Reader != nil {
				return false
			}
		}
	}
	return true
}

// AttemptOf returns the attempt number of the request cfg describes,
// counting from 1.
func AttemptOf(cfg *httpclient.Config) int {
	if cfg == nil {
		return 1
	}
	if n, ok := cfg.Extra[extraRetryAttempt].(int); ok && n > 0 {
		return n
	}
	return 1
}
