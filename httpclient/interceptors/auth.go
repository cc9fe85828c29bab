package interceptors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/relay/httpclient"
)

const headerAuthorization = "Authorization"

// TokenSource returns a bearer token for a request.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// Bearer sets the Authorization header from src unless the request already
// carries one or uses basic auth.
func Bearer(src TokenSource) httpclient.FulfilledFunc[*httpclient.Config] {
	return func(ctx context.Context, cfg *httpclient.Config) (*httpclient.Config, error) {
		if cfg.Auth != nil {
			return cfg, nil
		}
		if cfg.Headers == nil {
			cfg.Headers = httpclient.Headers{}
		}
		if cfg.Headers.Get(headerAuthorization) != "" {
			return cfg, nil
		}
		token, err := src(ctx)
		if err != nil {
			return nil, fmt.Errorf("interceptors: token: %w", err)
		}
		cfg.Headers.Set(headerAuthorization, "Bearer "+token)
		return cfg, nil
	}
}

// JWTConfig configures a JWTSigner.
type JWTConfig struct {
	// Secret is the HMAC key.
	Secret   []byte        `yaml:"-" mapstructure:"secret"`
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	Subject  string        `yaml:"subject" mapstructure:"subject"`
	Audience []string      `yaml:"audience" mapstructure:"audience"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// JWTSigner mints short-lived HS256 tokens and reuses each one until it is
// close to expiry.
type JWTSigner struct {
	cfg JWTConfig
	now func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewJWTSigner creates a signer. TTL defaults to five minutes.
func NewJWTSigner(cfg JWTConfig) (*JWTSigner, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("interceptors: jwt secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &JWTSigner{cfg: cfg, now: time.Now}, nil
}

// Token returns a valid token, minting a new one when the cached token has
// less than a tenth of its lifetime left.
func (s *JWTSigner) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(s.cfg.TTL/10).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.cfg.TTL)
	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   s.cfg.Subject,
		Audience:  s.cfg.Audience,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("interceptors: sign jwt: %w", err)
	}
	s.token, s.expires = token, expires
	return token, nil
}

// JWT sets a bearer token minted by s.
func JWT(s *JWTSigner) httpclient.FulfilledFunc[*httpclient.Config] {
	return Bearer(s.Token)
}
