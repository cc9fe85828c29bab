package httpclient

import (
	"time"

	"github.com/kbukum/relay/version"
)

// ResponseType selects how a transport hands back the response body.
type ResponseType string

const (
	// ResponseTypeText returns the body as a string (the default).
	ResponseTypeText ResponseType = "text"
	// ResponseTypeJSON returns the body as a string and enables strict
	// parsing when silentJSONParsing is off.
	ResponseTypeJSON ResponseType = "json"
	// ResponseTypeArrayBuffer returns the body as []byte.
	ResponseTypeArrayBuffer ResponseType = "arraybuffer"
)

// TransformFunc transforms a request or response payload. It receives the
// request configuration, the current data and the mutable headers, and
// returns the next data value.
type TransformFunc func(cfg *Config, data any, headers Headers) (any, error)

// ParamsSerializer renders query parameters without a leading '?'.
type ParamsSerializer func(params map[string]any) string

// StatusValidator decides whether a response status counts as success.
type StatusValidator func(status int) bool

// ProgressEvent reports transfer progress. Total is -1 when unknown.
type ProgressEvent struct {
	Loaded int64
	Total  int64
}

// ProgressFunc receives progress events.
type ProgressFunc func(ProgressEvent)

// BasicAuth holds HTTP Basic credentials.
type BasicAuth struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// ProxyConfig describes an explicit HTTP proxy.
type ProxyConfig struct {
	Protocol string     `yaml:"protocol" mapstructure:"protocol"`
	Host     string     `yaml:"host" mapstructure:"host"`
	Port     int        `yaml:"port" mapstructure:"port"`
	Auth     *BasicAuth `yaml:"auth" mapstructure:"auth"`
}

// Config is the full set of options governing one request. A Client holds
// a default Config; every call merges the per-call Config over it with Merge.
//
// A field is "defined" when it is non-zero (value fields) or non-nil
// (pointer, func, slice and map fields).
type Config struct {
	// Per-call values; never inherited from defaults.
	URL    string
	Method string
	Data   Body

	// Deep-merged values.
	Headers      Headers
	Auth         *BasicAuth
	Proxy        *ProxyConfig
	Params       map[string]any
	Transitional map[string]any

	// Override-else-default values.
	BaseURL             string
	TransformRequest    []TransformFunc
	TransformResponse   []TransformFunc
	ParamsSerializer    ParamsSerializer
	Timeout             time.Duration
	TimeoutErrorMessage string
	WithCredentials     *bool
	Transport           Transport
	ResponseType        ResponseType
	XSRFCookieName      string
	XSRFHeaderName      string
	OnUploadProgress    ProgressFunc
	OnDownloadProgress  ProgressFunc
	Decompress          *bool
	MaxContentLength    int64
	MaxBodyLength       int64
	MaxRedirects        *int
	CancelToken         *CancelToken
	SocketPath          string

	// ValidateStatus classifies responses; nil accepts every status.
	ValidateStatus StatusValidator

	// Extra carries options this package does not recognize. Every key is
	// deep-merged so extensions survive merging.
	Extra map[string]any
}

// Bool returns a pointer to v, for optional boolean fields.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for optional integer fields.
func Int(v int) *int { return &v }

// DefaultValidateStatus accepts 2xx statuses.
func DefaultValidateStatus(status int) bool {
	return status >= 200 && status < 300
}

const defaultFormContentType = "application/x-www-form-urlencoded"

// Defaults returns the library default configuration. It carries no
// transport; Default and ResolveTransport supply one.
func Defaults() *Config {
	headers := Headers{
		GroupCommon: map[string]any{
			HeaderAccept:    "application/json, text/plain, */*",
			HeaderUserAgent: version.UserAgent(),
		},
	}
	for _, m := range []string{"delete", "get", "head"} {
		headers[m] = map[string]any{}
	}
	for _, m := range []string{"post", "put", "patch"} {
		headers[m] = map[string]any{HeaderContentType: defaultFormContentType}
	}

	return &Config{
		Headers: headers,
		Transitional: map[string]any{
			OptionSilentJSONParsing:   true,
			OptionForcedJSONParsing:   true,
			OptionClarifyTimeoutError: false,
		},
		TransformRequest:  []TransformFunc{DefaultTransformRequest},
		TransformResponse: []TransformFunc{DefaultTransformResponse},
		XSRFCookieName:    "XSRF-TOKEN",
		XSRFHeaderName:    "X-XSRF-TOKEN",
		MaxContentLength:  -1,
		MaxBodyLength:     -1,
		ValidateStatus:    DefaultValidateStatus,
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	return Merge(nil, c)
}

// withCredentials reports the effective WithCredentials flag.
func (c *Config) withCredentials() bool {
	return c.WithCredentials != nil && *c.WithCredentials
}

// decompress reports the effective Decompress flag (default true).
func (c *Config) decompress() bool {
	return c.Decompress == nil || *c.Decompress
}
