package httpclient

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/relay/logger"
)

// Interceptors holds a client's two independent registries.
type Interceptors struct {
	Request  *InterceptorManager[*Config]
	Response *InterceptorManager[*Response]
}

// Client issues requests through the interceptor chain and dispatcher.
// It is safe for concurrent use.
type Client struct {
	// Interceptors may be mutated at any time; a call keeps the chain it
	// captured when it started.
	Interceptors Interceptors

	defaults  *Config
	transport Transport
	log       *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the transport used when a configuration has none.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client with its own copy of defaults.
func New(defaults *Config, opts ...Option) *Client {
	if defaults == nil {
		defaults = &Config{}
	}
	c := &Client{
		Interceptors: Interceptors{
			Request:  &InterceptorManager[*Config]{},
			Response: &InterceptorManager[*Response]{},
		},
		defaults: defaults.Clone(),
		log:      logger.Get("httpclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var hostTransport = sync.OnceValues(func() (Transport, error) {
	return ResolveTransport(HostEnvironment())
})

// Default returns a client with the library defaults and the host transport.
// The host transport is resolved once per process.
func Default() *Client {
	opts := []Option{}
	if t, err := hostTransport(); err == nil {
		opts = append(opts, WithTransport(t))
	} else {
		logger.Get("httpclient").Warn("no default transport", logger.ErrorFields("resolve_transport", err))
	}
	return New(Defaults(), opts...)
}

// Create returns an independent client whose defaults are this client's
// defaults merged with cfg. Interceptors are not inherited.
func (c *Client) Create(cfg *Config) *Client {
	return New(Merge(c.defaults, cfg), WithTransport(c.transport), WithLogger(c.log))
}

// Defaults returns a copy of the client's default configuration.
func (c *Client) Defaults() *Config {
	return c.defaults.Clone()
}

// Request sends cfg and waits for the result.
func (c *Client) Request(ctx context.Context, cfg *Config) (*Response, error) {
	return c.Go(ctx, cfg).Wait()
}

// RequestURL sends a request to url, with the remaining options from cfg.
func (c *Client) RequestURL(ctx context.Context, url string, cfg *Config) (*Response, error) {
	return c.Request(ctx, withCall(cfg, "", url, nil))
}

// Go starts a request and returns its pending result.
//
// When every applicable request interceptor is Synchronous, they run on the
// caller's goroutine before Go returns. Otherwise the whole chain runs on a
// new goroutine.
func (c *Client) Go(ctx context.Context, cfg *Config) *Future {
	f := newFuture()

	merged, err := c.prepare(cfg)
	if err != nil {
		f.resolve(nil, err)
		return f
	}

	reqChain, synchronous := c.requestChain(merged)
	resChain := c.responseChain()

	if synchronous {
		req := walkRequest(ctx, merged, reqChain)
		go func() {
			f.resolve(c.complete(ctx, req, resChain))
		}()
		return f
	}

	go func() {
		req := foldRequest(ctx, merged, reqChain)
		f.resolve(c.complete(ctx, req, resChain))
	}()
	return f
}

// prepare merges cfg over the defaults, resolves the method and validates
// the transitional options.
func (c *Client) prepare(cfg *Config) (*Config, error) {
	merged := Merge(c.defaults, cfg)

	switch {
	case merged.Method != "":
		merged.Method = strings.ToLower(merged.Method)
	case c.defaults.Method != "":
		merged.Method = strings.ToLower(c.defaults.Method)
	default:
		merged.Method = "get"
	}

	if err := validateTransitional(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// GetURI returns the URL a request for cfg would target, with its query
// string and without a leading '?'.
func (c *Client) GetURI(cfg *Config) (string, error) {
	merged := Merge(c.defaults, cfg)
	uri, err := BuildURL(merged.URL, merged.Params, merged.ParamsSerializer)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(uri, "?"), nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, url string, cfg *Config) (*Response, error) {
	return c.Request(ctx, withCall(cfg, http.MethodGet, url, nil))
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, cfg *Config) (*Response, error) {
	return c.Request(ctx, withCall(cfg, http.MethodDelete, url, nil))
}

// Head sends a HEAD request.
func (c *Client) Head(ctx context.Context, url string, cfg *Config) (*Response, error) {
	return c.Request(ctx, withCall(cfg, http.MethodHead, url, nil))
}

// Options sends an OPTIONS request.
func (c *Client) Options(ctx context.Context, url string, cfg *Config) (*Response, error) {
	return c.Request(ctx, withCall(cfg, http.MethodOptions, url, nil))
}

// Post sends a POST request with data as the body.
func (c *Client) Post(ctx context.Context, url string, data any, cfg *Config) (*Response, error) {
	return c.Request(ctx, withCall(cfg, http.MethodPost, url, NewBody(data)))
}

// Put sends a PUT request with data as the body.
func (c *Client) Put(ctx context.Context, url string, data any, cfg *Config) (*Response, error) {
	return c.Request(ctx, withCall(cfg, http.MethodPut, url, NewBody(data)))
}

// Patch sends a PATCH request with data as the body.
func (c *Client) Patch(ctx context.Context, url string, data any, cfg *Config) (*Response, error) {
	return c.Request(ctx, withCall(cfg, http.MethodPatch, url, NewBody(data)))
}

// withCall copies cfg with the call's method, url and body applied. An empty
// method or nil body leaves the one in cfg.
func withCall(cfg *Config, method, url string, data Body) *Config {
	out := &Config{}
	if cfg != nil {
		cp := *cfg
		out = &cp
	}
	out.URL = url
	if method != "" {
		out.Method = method
	}
	if data != nil {
		out.Data = data
	}
	return out
}

// dispatch sends one prepared request: cancellation checkpoint, outbound
// transforms, header flattening, transport call, then inbound transforms.
// cfg itself is not modified; the transport receives a copy.
func (c *Client) dispatch(ctx context.Context, cfg *Config) (*Response, error) {
	if err := cfg.CancelToken.ThrowIfRequested(); err != nil {
		return nil, err
	}

	sent := *cfg
	sent.Headers = Headers{}
	if cfg.Headers != nil {
		sent.Headers = cloneValue(cfg.Headers).(Headers)
	}

	data, err := TransformData(&sent, cfg.Data, sent.Headers, cfg.TransformRequest)
	if err != nil {
		return nil, enhance(err, cfg, ErrCodeBadRequest, nil, nil)
	}
	sent.Data = NewBody(data)
	sent.Headers = flattenHeaders(sent.Headers, sent.Method)

	transport := sent.Transport
	if transport == nil {
		transport = c.transport
	}
	if transport == nil {
		return nil, NewError("no transport configured", ErrCodeNoTransport, cfg, nil, nil)
	}

	start := time.Now()
	resp, err := transport.RoundTrip(ctx, &sent)
	if err == nil && resp == nil {
		err = NewError("transport returned no response", ErrCodeBadResponse, &sent, nil, nil)
	}
	fields := logger.Fields(
		logger.FieldMethod, sent.Method,
		logger.FieldURL, sent.URL,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)

	if err == nil {
		fields[logger.FieldStatus] = resp.Status
		c.log.Debug("request completed", fields)

		if cerr := cfg.CancelToken.ThrowIfRequested(); cerr != nil {
			return nil, cerr
		}
		if err := transformResponse(&sent, resp); err != nil {
			return nil, enhance(err, &sent, ErrCodeBadResponse, resp.Request, resp)
		}
		return resp, nil
	}

	fields[logger.FieldCode] = string(CodeOf(err))
	c.log.Debug("request failed", fields, logger.ErrorFields("dispatch", err))

	if IsCancel(err) {
		return nil, err
	}
	if cerr := cfg.CancelToken.ThrowIfRequested(); cerr != nil {
		return nil, cerr
	}
	if r := ResponseOf(err); r != nil {
		if terr := transformResponse(&sent, r); terr != nil {
			return nil, enhance(terr, &sent, ErrCodeBadResponse, r.Request, r)
		}
	}
	return nil, err
}

func transformResponse(cfg *Config, resp *Response) error {
	if resp.Headers == nil {
		resp.Headers = Headers{}
	}
	data, err := TransformData(cfg, resp.Data, resp.Headers, cfg.TransformResponse)
	if err != nil {
		return err
	}
	resp.Data = data
	return nil
}
