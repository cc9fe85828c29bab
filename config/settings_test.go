package config

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/kbukum/relay/httpclient"
	"github.com/kbukum/relay/observability"
	"github.com/kbukum/relay/resilience"
	"github.com/kbukum/relay/validation"
)

func validSettings() Settings {
	s := Settings{Name: "relay"}
	s.ApplyDefaults()
	return s
}

func TestApplyDefaults(t *testing.T) {
	t.Run("development logs at debug", func(t *testing.T) {
		s := Settings{Name: "relay"}
		s.ApplyDefaults()
		if s.Environment != "development" {
			t.Errorf("expected development, got %q", s.Environment)
		}
		if s.Logging.Level != "debug" {
			t.Errorf("expected debug level, got %q", s.Logging.Level)
		}
	})

	t.Run("production keeps info", func(t *testing.T) {
		s := Settings{Name: "relay", Environment: "production"}
		s.ApplyDefaults()
		if s.Logging.Level != "info" {
			t.Errorf("expected info level, got %q", s.Logging.Level)
		}
	})

	t.Run("observability sections", func(t *testing.T) {
		s := Settings{
			Name:    "relay",
			Tracing: &observability.TracerConfig{},
			Metrics: &observability.MeterConfig{Endpoint: "otel:4318"},
		}
		s.ApplyDefaults()
		if s.Tracing.ServiceName != "relay" || s.Tracing.Endpoint != "localhost:4318" || s.Tracing.SampleRate != 1 {
			t.Errorf("unexpected tracing defaults: %+v", s.Tracing)
		}
		if s.Tracing.Environment != "development" {
			t.Errorf("expected environment propagated, got %q", s.Tracing.Environment)
		}
		if s.Metrics.Endpoint != "otel:4318" || s.Metrics.Interval != 15*time.Second {
			t.Errorf("unexpected metrics defaults: %+v", s.Metrics)
		}
	})

	t.Run("resilience sections", func(t *testing.T) {
		s := Settings{
			Name: "relay",
			Resilience: ResilienceSettings{
				Breaker: &resilience.BreakerConfig{},
				Retry:   &resilience.Backoff{},
			},
		}
		s.ApplyDefaults()
		if s.Resilience.Breaker.Name != "relay" || s.Resilience.Breaker.MaxFailures != 5 {
			t.Errorf("unexpected breaker defaults: %+v", s.Resilience.Breaker)
		}
		if s.Resilience.Retry.MaxAttempts != 3 {
			t.Errorf("expected 3 attempts, got %d", s.Resilience.Retry.MaxAttempts)
		}
		if s.Resilience.Limiter != nil || s.Resilience.Bulkhead != nil {
			t.Error("expected absent sections to stay nil")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Settings)
		field  string
	}{
		{"valid", func(*Settings) {}, ""},
		{"missing name", func(s *Settings) { s.Name = "" }, "name"},
		{"bad environment", func(s *Settings) { s.Environment = "qa" }, "environment"},
		{"bad base url", func(s *Settings) { s.Client.BaseURL = "::" }, "client.base_url"},
		{"negative timeout", func(s *Settings) { s.Client.Timeout = -time.Second }, "client.timeout"},
		{"bad response type", func(s *Settings) { s.Client.ResponseType = "xml" }, "client.response_type"},
		{"unknown transitional", func(s *Settings) { s.Client.Transitional = map[string]bool{"legacy": true} }, "client.transitional.legacy"},
		{"proxy without host", func(s *Settings) { s.Client.Proxy = &httpclient.ProxyConfig{Port: 8080} }, "client.proxy.host"},
		{"tls pair", func(s *Settings) { s.Transport.TLS = &httpclient.TLSConfig{CertFile: "c.pem"} }, "transport.tls"},
		{"token and jwt", func(s *Settings) {
			s.Auth.Token = "t"
			s.Auth.JWT = &JWTSettings{Secret: "k"}
		}, "auth"},
		{"jwt without secret", func(s *Settings) { s.Auth.JWT = &JWTSettings{} }, "auth.jwt.secret"},
		{"token and basic auth", func(s *Settings) {
			s.Auth.Token = "t"
			s.Client.Auth = &httpclient.BasicAuth{Username: "u"}
		}, "auth.token"},
		{"bad sample rate", func(s *Settings) {
			s.Tracing = &observability.TracerConfig{SampleRate: 2}
		}, "tracing.sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.modify(&s)
			err := s.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !validation.HasField(err, tt.field) {
				t.Errorf("expected error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestValidate_TransitionalIgnoresCase(t *testing.T) {
	s := validSettings()
	s.Client.Transitional = map[string]bool{"clarifytimeouterror": true}
	if err := s.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClientConfig(t *testing.T) {
	c := ClientSettings{
		BaseURL:       "https://api.example.com",
		Timeout:       3 * time.Second,
		Headers:       map[string]string{"x-api-key": "k1"},
		MethodHeaders: map[string]map[string]string{"POST": {"x-mode": "write"}},
		Params:        map[string]string{"tenant": "acme"},
		MaxRedirects:  httpclient.Int(0),
		Transitional:  map[string]bool{"clarifytimeouterror": true},
	}

	cfg := c.ClientConfig()

	if cfg.BaseURL != "https://api.example.com" || cfg.Timeout != 3*time.Second {
		t.Errorf("unexpected scalars: %q %v", cfg.BaseURL, cfg.Timeout)
	}
	common := cfg.Headers.Group(httpclient.GroupCommon)
	if common["x-api-key"] != "k1" {
		t.Errorf("expected common header, got %v", common)
	}
	if common[httpclient.HeaderAccept] == nil {
		t.Error("expected default Accept header kept")
	}
	if cfg.Headers.Group("post")["x-mode"] != "write" {
		t.Errorf("expected post group header, got %v", cfg.Headers.Group("post"))
	}
	if cfg.Params["tenant"] != "acme" {
		t.Errorf("expected param, got %v", cfg.Params)
	}
	if cfg.Transitional[httpclient.OptionClarifyTimeoutError] != true {
		t.Errorf("expected canonical transitional key, got %v", cfg.Transitional)
	}
	if cfg.Transitional[httpclient.OptionSilentJSONParsing] != true {
		t.Error("expected default transitional flags kept")
	}
	if cfg.MaxRedirects == nil || *cfg.MaxRedirects != 0 {
		t.Errorf("expected explicit zero redirects, got %v", cfg.MaxRedirects)
	}
	if cfg.MaxContentLength != -1 {
		t.Errorf("expected default max content length, got %d", cfg.MaxContentLength)
	}
}

func TestClientConfig_DrivesRequests(t *testing.T) {
	c := ClientSettings{
		BaseURL: "https://api.example.com",
		Headers: map[string]string{"x-api-key": "k1"},
		Params:  map[string]string{"tenant": "acme"},
	}

	var seen *httpclient.Config
	tr := httpclient.TransportFunc(func(_ context.Context, cfg *httpclient.Config) (*httpclient.Response, error) {
		seen = cfg
		return &httpclient.Response{Status: http.StatusOK, Config: cfg}, nil
	})
	client := httpclient.New(c.ClientConfig(), httpclient.WithTransport(tr))

	if _, err := client.Get(context.Background(), "/users", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.Headers.Get("x-api-key") != "k1" {
		t.Errorf("expected flattened header, got %v", seen.Headers)
	}
	uri, err := httpclient.BuildURL(httpclient.BuildFullPath(seen.BaseURL, seen.URL), seen.Params, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uri != "https://api.example.com/users?tenant=acme" {
		t.Errorf("unexpected url %s", uri)
	}
}

func TestTransportSettings_Environment(t *testing.T) {
	env := TransportSettings{}.Environment()
	if env.Proxy == nil {
		t.Error("expected environment proxy by default")
	}
	env = TransportSettings{ProxyFromEnvironment: httpclient.Bool(false), DisableHTTP2: true}.Environment()
	if env.Proxy != nil || !env.DisableHTTP2 {
		t.Errorf("unexpected environment: %+v", env)
	}
}

func TestJWTSettings_Signer(t *testing.T) {
	j := &JWTSettings{Secret: "k", Issuer: "relay", TTL: time.Minute}
	s, err := j.Signer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, err := s.Token(context.Background())
	if err != nil || tok == "" {
		t.Errorf("expected token, got %q %v", tok, err)
	}
}
