package httpclient

import (
	"context"
	"net/http"
	"net/url"
)

// Transport performs the network exchange for one request. Implementations
// receive the final configuration (flattened headers, transformed Data) and
// must classify the result with Settle before returning it. Failures should
// be *Error values with one of the transport codes.
type Transport interface {
	RoundTrip(ctx context.Context, cfg *Config) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, cfg *Config) (*Response, error)

// RoundTrip calls f(ctx, cfg).
func (f TransportFunc) RoundTrip(ctx context.Context, cfg *Config) (*Response, error) {
	return f(ctx, cfg)
}

// Environment describes what the host offers the default transport.
type Environment struct {
	// Proxy selects a proxy per request, e.g. http.ProxyFromEnvironment.
	Proxy func(*http.Request) (*url.URL, error)
	// DisableHTTP2 turns off HTTP/2 negotiation.
	DisableHTTP2 bool
	// TLS configures server verification and client certificates.
	TLS *TLSConfig
}

// HostEnvironment describes the current process: proxies come from the
// HTTP_PROXY family of variables and HTTP/2 is enabled.
func HostEnvironment() Environment {
	return Environment{Proxy: http.ProxyFromEnvironment}
}

// ResolveTransport builds the transport for env. Call it once at startup and
// inject the result with WithTransport.
func ResolveTransport(env Environment) (Transport, error) {
	t, err := NewHTTPTransport(HTTPTransportConfig{
		Proxy:        env.Proxy,
		DisableHTTP2: env.DisableHTTP2,
		TLS:          env.TLS,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
