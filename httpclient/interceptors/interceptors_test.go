package interceptors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/relay/httpclient"
	"github.com/kbukum/relay/httpclient/mock"
	"github.com/kbukum/relay/logger"
	"github.com/kbukum/relay/resilience"
)

// sequence answers with statuses in order, repeating the last one.
func sequence(statuses ...int) httpclient.Transport {
	var n atomic.Int32
	return httpclient.TransportFunc(func(ctx context.Context, cfg *httpclient.Config) (*httpclient.Response, error) {
		i := int(n.Add(1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		return mock.Respond(statuses[i], "ok").RoundTrip(ctx, cfg)
	})
}

func newClient(t httpclient.Transport) *httpclient.Client {
	return httpclient.New(httpclient.Defaults(), httpclient.WithTransport(t))
}

func fastBackoff() resilience.Backoff {
	return resilience.Backoff{MaxAttempts: 3, Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}
}

func TestRequestID_Generated(t *testing.T) {
	spy := mock.NewSpy(nil)
	c := newClient(spy)
	c.Interceptors.Request.Use(RequestID(""), nil, httpclient.Synchronous())

	if _, err := c.Get(context.Background(), "http://api.local/x", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := spy.Last().Headers.Get(HeaderRequestID)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected uuid request id, got %q", id)
	}
}

func TestRequestID_Sources(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		headers httpclient.Headers
		want    string
	}{
		{"from context", ContextWithRequestID(context.Background(), "ctx-1"), nil, "ctx-1"},
		{"existing header kept", ContextWithRequestID(context.Background(), "ctx-1"), httpclient.Headers{"X-Trace": "hdr-1"}, "hdr-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := mock.NewSpy(nil)
			c := newClient(spy)
			c.Interceptors.Request.Use(RequestID("X-Trace"), nil)

			if _, err := c.Get(tt.ctx, "http://api.local/x", &httpclient.Config{Headers: tt.headers}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := spy.Last().Headers.Get("X-Trace"); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBearer(t *testing.T) {
	tests := []struct {
		name string
		cfg  *httpclient.Config
		want string
	}{
		{"sets header", nil, "Bearer tok"},
		{"existing header kept", &httpclient.Config{Headers: httpclient.Headers{"Authorization": "Token abc"}}, "Token abc"},
		{"basic auth skipped", &httpclient.Config{Auth: &httpclient.BasicAuth{Username: "u"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := mock.NewSpy(nil)
			c := newClient(spy)
			c.Interceptors.Request.Use(Bearer(StaticToken("tok")), nil)

			if _, err := c.Get(context.Background(), "http://api.local/x", tt.cfg); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := spy.Last().Headers.Get("Authorization"); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBearer_SourceError(t *testing.T) {
	spy := mock.NewSpy(nil)
	c := newClient(spy)
	c.Interceptors.Request.Use(Bearer(func(context.Context) (string, error) {
		return "", errors.New("vault down")
	}), nil)

	_, err := c.Get(context.Background(), "http://api.local/x", nil)
	if err == nil || !strings.Contains(err.Error(), "vault down") {
		t.Fatalf("expected token error, got %v", err)
	}
	if spy.Count() != 0 {
		t.Errorf("expected no dispatch, got %d calls", spy.Count())
	}
}

func TestNewJWTSigner_RequiresSecret(t *testing.T) {
	if _, err := NewJWTSigner(JWTConfig{}); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestJWTSigner_Claims(t *testing.T) {
	secret := []byte("s3cret")
	s, err := NewJWTSigner(JWTConfig{Secret: secret, Issuer: "relay", Subject: "svc", Audience: []string{"api"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spy := mock.NewSpy(nil)
	c := newClient(spy)
	c.Interceptors.Request.Use(JWT(s), nil)
	if _, err := c.Get(context.Background(), "http://api.local/x", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := strings.TrimPrefix(spy.Last().Headers.Get("Authorization"), "Bearer ")
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer("relay"), jwt.WithAudience("api"))
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.Subject != "svc" {
		t.Errorf("expected subject svc, got %s", claims.Subject)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 5*time.Minute {
		t.Errorf("expected 5m lifetime, got %v", got)
	}
}

func TestJWTSigner_Caching(t *testing.T) {
	s, err := NewJWTSigner(JWTConfig{Secret: []byte("k"), TTL: 10 * time.Minute})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	first, _ := s.Token(context.Background())
	now = now.Add(8 * time.Minute)
	second, _ := s.Token(context.Background())
	if first != second {
		t.Error("expected cached token while far from expiry")
	}

	now = now.Add(90 * time.Second)
	third, _ := s.Token(context.Background())
	if third == second {
		t.Error("expected a new token near expiry")
	}
}

func TestLogRequestAndResponse(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	c := newClient(mock.Respond(http.StatusNotFound, "missing"))
	c.Interceptors.Request.Use(LogRequest(log), nil)
	c.Interceptors.Response.Use(LogResponse(log))

	if _, err := c.Get(context.Background(), "http://api.local/x", nil); err == nil {
		t.Fatal("expected status error")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	var req, res map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &req); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &res); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if req["message"] != "request" || req[logger.FieldMethod] != "get" {
		t.Errorf("unexpected request entry: %v", req)
	}
	if res["level"] != "error" || res[logger.FieldStatus] != float64(404) {
		t.Errorf("unexpected failure entry: %v", res)
	}
	if res[logger.FieldCode] != string(httpclient.ErrCodeBadStatus) {
		t.Errorf("expected code %s, got %v", httpclient.ErrCodeBadStatus, res[logger.FieldCode])
	}
}

func TestDefaultRetryIf(t *testing.T) {
	get := &httpclient.Config{Method: "get"}
	post := &httpclient.Config{Method: "post"}
	status := func(cfg *httpclient.Config, code int) error {
		return httpclient.NewError("bad", httpclient.ErrCodeBadStatus, cfg, nil, &httpclient.Response{Status: code})
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network get", httpclient.NewError("x", httpclient.ErrCodeNetwork, get, nil, nil), true},
		{"timeout get", httpclient.NewError("x", httpclient.ErrCodeTimeout, get, nil, nil), true},
		{"503 get", status(get, 503), true},
		{"429 get", status(get, 429), true},
		{"404 get", status(get, 404), false},
		{"503 post", status(post, 503), false},
		{"plain error", errors.New("x"), false},
		{"no config", httpclient.NewError("x", httpclient.ErrCodeNetwork, nil, nil, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRetry_RecoversAfterFailures(t *testing.T) {
	spy := mock.NewSpy(sequence(503, 502, 200))
	c := newClient(spy)
	c.Interceptors.Request.Use(RequestID(""), nil)

	var retried []int
	c.Interceptors.Response.Use(nil, Retry(c, RetryConfig{
		Backoff: fastBackoff(),
		OnRetry: func(attempt int, _ error) { retried = append(retried, attempt) },
	}))

	resp, err := c.Get(context.Background(), "http://api.local/x", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != 200 {
		t.Errorf("expected 200, got %d", resp.Status)
	}
	if spy.Count() != 3 {
		t.Fatalf("expected 3 calls, got %d", spy.Count())
	}
	if !reflect.DeepEqual(retried, []int{2, 3}) {
		t.Errorf("expected retries [2 3], got %v", retried)
	}

	calls := spy.Calls()
	if got := AttemptOf(calls[2]); got != 3 {
		t.Errorf("expected attempt 3, got %d", got)
	}
	id := calls[0].Headers.Get(HeaderRequestID)
	for i, cfg := range calls {
		if cfg.Headers.Get(HeaderRequestID) != id {
			t.Errorf("call %d: expected request id %s, got %s", i, id, cfg.Headers.Get(HeaderRequestID))
		}
	}
}

func TestRetry_GivesUp(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		transport httpclient.Transport
		calls     int
	}{
		{"exhausted", "get", sequence(503), 3},
		{"not idempotent", "post", sequence(503), 1},
		{"client error", "get", sequence(400), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := mock.NewSpy(tt.transport)
			c := newClient(spy)
			c.Interceptors.Response.Use(nil, Retry(c, RetryConfig{Backoff: fastBackoff()}))

			_, err := c.Request(context.Background(), &httpclient.Config{Method: tt.method, URL: "http://api.local/x"})
			if !httpclient.IsStatusError(err) {
				t.Fatalf("expected status error, got %v", err)
			}
			if spy.Count() != tt.calls {
				t.Errorf("expected %d calls, got %d", tt.calls, spy.Count())
			}
		})
	}
}

func TestRetry_ReplaysEncodedBody(t *testing.T) {
	spy := mock.NewSpy(sequence(503, 201))
	c := newClient(spy)
	c.Interceptors.Response.Use(nil, Retry(c, RetryConfig{
		Backoff: fastBackoff(),
		RetryIf: func(error) bool { return true },
	}))

	resp, err := c.Post(context.Background(), "http://api.local/items", map[string]any{"a": 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != 201 {
		t.Errorf("expected 201, got %d", resp.Status)
	}

	calls := spy.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if !reflect.DeepEqual(calls[0].Data, calls[1].Data) {
		t.Errorf("expected identical bodies, got %#v and %#v", calls[0].Data, calls[1].Data)
	}
	if calls[1].Headers.Get("Content-Type") != calls[0].Headers.Get("Content-Type") {
		t.Errorf("expected content type %q, got %q", calls[0].Headers.Get("Content-Type"), calls[1].Headers.Get("Content-Type"))
	}
}

func TestRetry_SkipsReaderBodies(t *testing.T) {
	tests := []struct {
		name  string
		data  httpclient.Body
		calls int
	}{
		{"stream", httpclient.StreamBody{Reader: strings.NewReader("hello"), Size: 5}, 1},
		{"multipart reader", &httpclient.FormBody{Files: []httpclient.FileField{
			{FieldName: "file", FileName: "a.txt", Reader: strings.NewReader("hello world")},
		}}, 1},
		{"multipart bytes", &httpclient.FormBody{Files: []httpclient.FileField{
			{FieldName: "file", FileName: "a.txt", Data: []byte("hello world")},
		}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := mock.NewSpy(sequence(503, 200))
			c := newClient(spy)
			c.Interceptors.Response.Use(nil, Retry(c, RetryConfig{Backoff: fastBackoff()}))

			_, err := c.Put(context.Background(), "http://api.local/upload", tt.data, nil)
			if spy.Count() != tt.calls {
				t.Errorf("expected %d calls, got %d", tt.calls, spy.Count())
			}
			if tt.calls == 1 && !httpclient.IsStatusError(err) {
				t.Errorf("expected original status error, got %v", err)
			}
			if tt.calls == 2 && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRetry_StopsOnContext(t *testing.T) {
	spy := mock.NewSpy(sequence(503))
	c := newClient(spy)
	c.Interceptors.Response.Use(nil, Retry(c, RetryConfig{
		Backoff: resilience.Backoff{MaxAttempts: 3, Initial: time.Hour, Max: time.Hour},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, "http://api.local/x", nil)
	if !httpclient.IsStatusError(err) {
		t.Fatalf("expected original status error, got %v", err)
	}
	if spy.Count() != 1 {
		t.Errorf("expected 1 call, got %d", spy.Count())
	}
}

func TestRetry_SkipsCancel(t *testing.T) {
	spy := mock.NewSpy(nil)
	c := newClient(spy)
	c.Interceptors.Response.Use(nil, Retry(c, RetryConfig{Backoff: fastBackoff(), RetryIf: func(error) bool { return true }}))

	src := httpclient.NewCancelSource()
	src.Cancel("stop")
	_, err := c.Get(context.Background(), "http://api.local/x", &httpclient.Config{CancelToken: src.Token})
	if !httpclient.IsCancel(err) {
		t.Fatalf("expected cancel, got %v", err)
	}
	if spy.Count() != 0 {
		t.Errorf("expected no calls, got %d", spy.Count())
	}
}

func TestAttemptOf(t *testing.T) {
	if got := AttemptOf(nil); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := AttemptOf(&httpclient.Config{Extra: map[string]any{extraRetryAttempt: 4}}); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}
