// Package mock provides in-memory transports for testing code built on
// httpclient.
package mock

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/kbukum/relay/httpclient"
)

// Handler returns a Transport that serves every request with h in process.
// Requests go through the same URL building, body encoding and settlement
// as the HTTP transport.
func Handler(h http.Handler) httpclient.Transport {
	return httpclient.TransportFunc(func(ctx context.Context, cfg *httpclient.Config) (*httpclient.Response, error) {
		if err := ctx.Err(); err != nil {
			e := httpclient.NewError("Request aborted", httpclient.ErrCodeAborted, cfg, nil, nil)
			e.Err = err
			return nil, e
		}

		target, err := httpclient.BuildURL(httpclient.BuildFullPath(cfg.BaseURL, cfg.URL), cfg.Params, cfg.ParamsSerializer)
		if err != nil {
			return nil, httpclient.NewError(err.Error(), httpclient.ErrCodeBadRequest, cfg, nil, nil)
		}
		if !httpclient.IsAbsoluteURL(target) {
			target = "http://mock.local" + target
		}

		body, _, contentType, err := httpclient.EncodeBody(cfg.Data)
		if err != nil {
			return nil, httpclient.NewError(err.Error(), httpclient.ErrCodeBadRequest, cfg, nil, nil)
		}

		req := httptest.NewRequest(strings.ToUpper(cfg.Method), target, body).WithContext(ctx)
		httpclient.WriteHeaders(req, cfg, contentType)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		res := rec.Result()
		raw, _ := io.ReadAll(res.Body)

		resp := &httpclient.Response{
			Status:     res.StatusCode,
			StatusText: res.Status,
			Headers:    httpclient.HeadersFrom(res.Header),
			Config:     cfg,
			Request:    req,
		}
		if cfg.ResponseType == httpclient.ResponseTypeArrayBuffer {
			resp.Data = raw
		} else {
			resp.Data = string(raw)
		}
		if err := httpclient.Settle(resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
}

// Respond returns a Transport that answers every request with status and data.
func Respond(status int, data any) httpclient.Transport {
	return httpclient.TransportFunc(func(_ context.Context, cfg *httpclient.Config) (*httpclient.Response, error) {
		resp := &httpclient.Response{
			Data:       data,
			Status:     status,
			StatusText: http.StatusText(status),
			Headers:    httpclient.Headers{},
			Config:     cfg,
		}
		if err := httpclient.Settle(resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
}

// Fail returns a Transport that fails every request with a network error.
func Fail(message string) httpclient.Transport {
	return httpclient.TransportFunc(func(_ context.Context, cfg *httpclient.Config) (*httpclient.Response, error) {
		return nil, httpclient.NewError(message, httpclient.ErrCodeNetwork, cfg, nil, nil)
	})
}

// Spy records the configurations passed to a wrapped Transport.
type Spy struct {
	next httpclient.Transport

	mu    sync.Mutex
	calls []*httpclient.Config
}

// NewSpy wraps next. A nil next answers 200 with no data.
func NewSpy(next httpclient.Transport) *Spy {
	if next == nil {
		next = Respond(http.StatusOK, nil)
	}
	return &Spy{next: next}
}

// RoundTrip records cfg and delegates.
func (s *Spy) RoundTrip(ctx context.Context, cfg *httpclient.Config) (*httpclient.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, cfg)
	s.mu.Unlock()
	return s.next.RoundTrip(ctx, cfg)
}

// Count returns the number of recorded calls.
func (s *Spy) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Calls returns the recorded configurations in call order.
func (s *Spy) Calls() []*httpclient.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*httpclient.Config(nil), s.calls...)
}

// Last returns the most recent configuration, or nil.
func (s *Spy) Last() *httpclient.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

// Reset forgets recorded calls.
func (s *Spy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
