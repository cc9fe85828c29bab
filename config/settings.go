package config

import (
	"strings"
	"time"

	"github.com/kbukum/relay/httpclient/interceptors"
	"github.com/kbukum/relay/logger"
	"github.com/kbukum/relay/observability"
	"github.com/kbukum/relay/resilience"
	"github.com/kbukum/relay/validation"
)

// Settings is the complete relay configuration.
type Settings struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`

	Client    ClientSettings    `yaml:"client" mapstructure:"client"`
	Transport TransportSettings `yaml:"transport" mapstructure:"transport"`
	Auth      AuthSettings      `yaml:"auth" mapstructure:"auth"`

	// Tracing and Metrics are enabled when their sections are present.
	Tracing *observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics *observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`

	Resilience ResilienceSettings `yaml:"resilience" mapstructure:"resilience"`
}

// ResilienceSettings enables transport policies. A nil section is off.
type ResilienceSettings struct {
	Breaker  *resilience.BreakerConfig  `yaml:"breaker" mapstructure:"breaker"`
	Limiter  *resilience.LimiterConfig  `yaml:"limiter" mapstructure:"limiter"`
	Bulkhead *resilience.BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`
	Retry    *resilience.Backoff        `yaml:"retry" mapstructure:"retry"`
}

// AuthSettings selects bearer authentication. Token and JWT are exclusive.
type AuthSettings struct {
	Token string       `yaml:"token" mapstructure:"token"`
	JWT   *JWTSettings `yaml:"jwt" mapstructure:"jwt"`
}

// JWTSettings configures self-signed HS256 bearer tokens.
type JWTSettings struct {
	Secret   string        `yaml:"secret" mapstructure:"secret" validate:"required"`
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	Subject  string        `yaml:"subject" mapstructure:"subject"`
	Audience []string      `yaml:"audience" mapstructure:"audience"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
}

// Signer creates the JWT signer these settings describe.
func (j *JWTSettings) Signer() (*interceptors.JWTSigner, error) {
	return interceptors.NewJWTSigner(interceptors.JWTConfig{
		Secret:   []byte(j.Secret),
		Issuer:   j.Issuer,
		Subject:  j.Subject,
		Audience: j.Audience,
		TTL:      j.TTL,
	})
}

// ApplyDefaults fills unset values. Development environments log at debug
// level unless a level is configured.
func (s *Settings) ApplyDefaults() {
	if s.Environment == "" {
		s.Environment = "development"
	}
	if s.Environment == "development" && s.Logging.Level == "" {
		s.Logging.Level = "debug"
	}
	s.Logging.ApplyDefaults()

	if t := s.Tracing; t != nil {
		d := observability.DefaultTracerConfig(s.Name)
		t.ServiceName = either(t.ServiceName, d.ServiceName)
		t.Environment = either(t.Environment, s.Environment)
		t.Endpoint = either(t.Endpoint, d.Endpoint)
		if t.SampleRate == 0 {
			t.SampleRate = d.SampleRate
		}
	}
	if m := s.Metrics; m != nil {
		d := observability.DefaultMeterConfig(s.Name)
		m.ServiceName = either(m.ServiceName, d.ServiceName)
		m.Environment = either(m.Environment, s.Environment)
		m.Endpoint = either(m.Endpoint, d.Endpoint)
		if m.Interval <= 0 {
			m.Interval = d.Interval
		}
	}

	r := &s.Resilience
	if r.Breaker != nil {
		r.Breaker.Name = either(r.Breaker.Name, s.Name)
		r.Breaker.ApplyDefaults()
	}
	if r.Limiter != nil {
		r.Limiter.Name = either(r.Limiter.Name, s.Name)
		r.Limiter.ApplyDefaults()
	}
	if r.Bulkhead != nil {
		r.Bulkhead.Name = either(r.Bulkhead.Name, s.Name)
		r.Bulkhead.ApplyDefaults()
	}
	if r.Retry != nil {
		r.Retry.ApplyDefaults()
	}
}

// Validate checks struct tags and the rules that span fields.
func (s *Settings) Validate() error {
	v := validation.New()
	v.Merge("settings", validation.Struct(s))
	v.Merge("transport.tls", s.Transport.TLS.Validate())

	for name := range s.Client.Transitional {
		v.OneOf("client.transitional."+name, canonicalOption(name), transitionalOptions)
	}
	if p := s.Client.Proxy; p != nil {
		v.Required("client.proxy.host", p.Host)
	}
	v.Custom(s.Auth.Token == "" || s.Auth.JWT == nil, "auth", "token and jwt are mutually exclusive")
	v.Custom(s.Auth.Token == "" || s.Client.Auth == nil, "auth.token", "conflicts with client.auth")
	return v.Err()
}

func either(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
