package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/relay/httpclient"
)

const contentTypeJSON = "application/json"

// Client is a JSON-focused view of an httpclient.Client.
type Client struct {
	http *httpclient.Client
}

// New derives a client from c whose requests send and accept JSON.
// Interceptors are not inherited; register them on HTTP().
func New(c *httpclient.Client) *Client {
	return &Client{http: c.Create(&httpclient.Config{
		Headers: httpclient.Headers{
			httpclient.HeaderAccept: contentTypeJSON,
		},
		ResponseType: httpclient.ResponseTypeJSON,
	})}
}

// HTTP returns the underlying client.
func (c *Client) HTTP() *httpclient.Client {
	return c.http
}

// RequestOption configures a single request.
type RequestOption func(*httpclient.Config)

// WithQuery sets query parameters.
func WithQuery(params map[string]any) RequestOption {
	return func(cfg *httpclient.Config) {
		cfg.Params = params
	}
}

// WithHeaders sets request headers.
func WithHeaders(headers map[string]string) RequestOption {
	return func(cfg *httpclient.Config) {
		if cfg.Headers == nil {
			cfg.Headers = httpclient.Headers{}
		}
		for k, v := range headers {
			cfg.Headers.Set(k, v)
		}
	}
}

// WithBasicAuth sets basic credentials.
func WithBasicAuth(username, password string) RequestOption {
	return func(cfg *httpclient.Config) {
		cfg.Auth = &httpclient.BasicAuth{Username: username, Password: password}
	}
}

// WithTimeout bounds the request.
func WithTimeout(d time.Duration) RequestOption {
	return func(cfg *httpclient.Config) {
		cfg.Timeout = d
	}
}

// WithCancel attaches a cancel token.
func WithCancel(token *httpclient.CancelToken) RequestOption {
	return func(cfg *httpclient.Config) {
		cfg.CancelToken = token
	}
}

// Response is a decoded REST response.
type Response[T any] struct {
	Status  int
	Headers httpclient.Headers
	Data    T
}

// Get performs a GET request and decodes the response into T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	return do[T](ctx, c, http.MethodGet, path, nil, opts...)
}

// Post sends body as JSON and decodes the response into T.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return do[T](ctx, c, http.MethodPost, path, body, opts...)
}

// Put sends body as JSON and decodes the response into T.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return do[T](ctx, c, http.MethodPut, path, body, opts...)
}

// Patch sends body as JSON and decodes the response into T.
func Patch[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return do[T](ctx, c, http.MethodPatch, path, body, opts...)
}

// Delete performs a DELETE request and decodes the response into T.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	return do[T](ctx, c, http.MethodDelete, path, nil, opts...)
}

func do[T any](ctx context.Context, c *Client, method, path string, body any, opts ...RequestOption) (*Response[T], error) {
	cfg := &httpclient.Config{Method: method, URL: path}
	if body != nil {
		cfg.Data = httpclient.JSON(body)
	}
	for _, opt := range opts {
		opt(cfg)
	}

	resp, err := c.http.Request(ctx, cfg)
	if err != nil {
		// Error bodies are decoded when they fit T.
		if r := httpclient.ResponseOf(err); r != nil {
			if data, derr := decode[T](r.Data); derr == nil {
				return &Response[T]{Status: r.Status, Headers: r.Headers, Data: data}, err
			}
		}
		return nil, err
	}

	data, err := decode[T](resp.Data)
	if err != nil {
		return nil, fmt.Errorf("httpclient/rest: decode response: %w", err)
	}
	return &Response[T]{Status: resp.Status, Headers: resp.Headers, Data: data}, nil
}

// decode converts a parsed JSON value into T.
func decode[T any](data any) (T, error) {
	var out T
	if data == nil {
		return out, nil
	}
	if s, ok := data.(string); ok && s == "" {
		return out, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(data); err != nil {
		return out, err
	}
	return out, nil
}
