package config

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/relay/httpclient"
)

// ClientSettings holds the request defaults a Client is built with.
//
// Viper lowercases map keys. Header names are case-insensitive on the wire,
// and transitional option names are matched ignoring case.
type ClientSettings struct {
	BaseURL             string        `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout             time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	TimeoutErrorMessage string        `yaml:"timeout_error_message" mapstructure:"timeout_error_message"`

	// Headers are sent with every request. MethodHeaders add headers per
	// lowercase method name and override Headers.
	Headers       map[string]string            `yaml:"headers" mapstructure:"headers"`
	MethodHeaders map[string]map[string]string `yaml:"method_headers" mapstructure:"method_headers"`
	Params        map[string]string            `yaml:"params" mapstructure:"params"`

	Auth  *httpclient.BasicAuth   `yaml:"auth" mapstructure:"auth"`
	Proxy *httpclient.ProxyConfig `yaml:"proxy" mapstructure:"proxy"`

	ResponseType     string `yaml:"response_type" mapstructure:"response_type" validate:"omitempty,oneof=text json arraybuffer"`
	WithCredentials  *bool  `yaml:"with_credentials" mapstructure:"with_credentials"`
	Decompress       *bool  `yaml:"decompress" mapstructure:"decompress"`
	MaxContentLength int64  `yaml:"max_content_length" mapstructure:"max_content_length" validate:"gte=-1"`
	MaxBodyLength    int64  `yaml:"max_body_length" mapstructure:"max_body_length" validate:"gte=-1"`
	MaxRedirects     *int   `yaml:"max_redirects" mapstructure:"max_redirects" validate:"omitempty,gte=0"`
	XSRFCookieName   string `yaml:"xsrf_cookie_name" mapstructure:"xsrf_cookie_name"`
	XSRFHeaderName   string `yaml:"xsrf_header_name" mapstructure:"xsrf_header_name"`
	SocketPath       string `yaml:"socket_path" mapstructure:"socket_path"`

	Transitional map[string]bool `yaml:"transitional" mapstructure:"transitional"`
}

var transitionalOptions = []string{
	httpclient.OptionSilentJSONParsing,
	httpclient.OptionForcedJSONParsing,
	httpclient.OptionClarifyTimeoutError,
}

// canonicalOption restores the spelling of a known transitional option.
func canonicalOption(name string) string {
	for _, opt := range transitionalOptions {
		if strings.EqualFold(opt, name) {
			return opt
		}
	}
	return name
}

// Overrides returns only the values these settings define, as a Config to
// merge over other defaults.
func (c *ClientSettings) Overrides() *httpclient.Config {
	out := &httpclient.Config{
		BaseURL:             c.BaseURL,
		Timeout:             c.Timeout,
		TimeoutErrorMessage: c.TimeoutErrorMessage,
		Auth:                c.Auth,
		Proxy:               c.Proxy,
		ResponseType:        httpclient.ResponseType(c.ResponseType),
		WithCredentials:     c.WithCredentials,
		Decompress:          c.Decompress,
		MaxContentLength:    c.MaxContentLength,
		MaxBodyLength:       c.MaxBodyLength,
		MaxRedirects:        c.MaxRedirects,
		XSRFCookieName:      c.XSRFCookieName,
		XSRFHeaderName:      c.XSRFHeaderName,
		SocketPath:          c.SocketPath,
	}

	if len(c.Headers) > 0 || len(c.MethodHeaders) > 0 {
		out.Headers = httpclient.Headers{}
		if len(c.Headers) > 0 {
			out.Headers[httpclient.GroupCommon] = stringMap(c.Headers)
		}
		for method, h := range c.MethodHeaders {
			out.Headers[strings.ToLower(method)] = stringMap(h)
		}
	}
	if len(c.Params) > 0 {
		out.Params = stringMap(c.Params)
	}
	if len(c.Transitional) > 0 {
		out.Transitional = make(map[string]any, len(c.Transitional))
		for k, v := range c.Transitional {
			out.Transitional[canonicalOption(k)] = v
		}
	}
	return out
}

// ClientConfig returns the library defaults overlaid with these settings.
func (c *ClientSettings) ClientConfig() *httpclient.Config {
	return httpclient.Merge(httpclient.Defaults(), c.Overrides())
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TransportSettings configures the HTTP transport.
type TransportSettings struct {
	DisableHTTP2 bool `yaml:"disable_http2" mapstructure:"disable_http2"`
	// ProxyFromEnvironment honours HTTP_PROXY and friends. Defaults to true.
	ProxyFromEnvironment *bool                 `yaml:"proxy_from_environment" mapstructure:"proxy_from_environment"`
	TLS                  *httpclient.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// Environment returns the transport environment to resolve.
func (t TransportSettings) Environment() httpclient.Environment {
	env := httpclient.Environment{
		DisableHTTP2: t.DisableHTTP2,
		TLS:          t.TLS,
	}
	if t.ProxyFromEnvironment == nil || *t.ProxyFromEnvironment {
		env.Proxy = http.ProxyFromEnvironment
	}
	return env
}
