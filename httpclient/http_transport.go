package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"
)

var (
	errRequestTimeout   = errors.New("request timeout")
	errTooManyRedirects = errors.New("maximum number of redirects exceeded")
)

// HTTPTransportConfig configures NewHTTPTransport.
type HTTPTransportConfig struct {
	// Proxy selects a proxy per request. A Config's Proxy overrides it.
	Proxy func(*http.Request) (*url.URL, error)
	// DisableHTTP2 turns off HTTP/2 negotiation over TLS.
	DisableHTTP2 bool
	// TLS configures server verification and client certificates.
	TLS *TLSConfig
}

// HTTPTransport is the Transport backed by net/http.
type HTTPTransport struct {
	base *http.Transport
	jar  http.CookieJar
}

// NewHTTPTransport creates an HTTPTransport with its own connection pool and
// cookie jar.
func NewHTTPTransport(cfg HTTPTransportConfig) (*HTTPTransport, error) {
	base := &http.Transport{
		Proxy: cfg.Proxy,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		base.TLSClientConfig = tlsCfg
	}

	if !cfg.DisableHTTP2 {
		if err := http2.ConfigureTransport(base); err != nil {
			return nil, fmt.Errorf("httpclient: configure http2: %w", err)
		}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("httpclient: cookie jar: %w", err)
	}

	return &HTTPTransport{base: base, jar: jar}, nil
}

// RoundTrip sends cfg over HTTP and settles the response.
func (t *HTTPTransport) RoundTrip(ctx context.Context, cfg *Config) (*Response, error) {
	target, err := BuildURL(BuildFullPath(cfg.BaseURL, cfg.URL), cfg.Params, cfg.ParamsSerializer)
	if err != nil {
		return nil, enhance(err, cfg, ErrCodeBadRequest, nil, nil)
	}

	body, size, contentType, err := EncodeBody(cfg.Data)
	if err != nil {
		return nil, enhance(err, cfg, ErrCodeBadRequest, nil, nil)
	}
	if cfg.MaxBodyLength > 0 && size > cfg.MaxBodyLength {
		return nil, NewError("Request body larger than maxBodyLength limit", ErrCodeBadRequest, cfg, nil, nil)
	}
	if body != nil && cfg.OnUploadProgress != nil {
		body = &progressReader{r: body, total: size, fn: cfg.OnUploadProgress}
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if cfg.Timeout > 0 {
		var stop context.CancelFunc
		reqCtx, stop = context.WithTimeoutCause(reqCtx, cfg.Timeout, errRequestTimeout)
		defer stop()
	}
	if cfg.CancelToken != nil {
		defer cfg.CancelToken.Subscribe(cancel)()
	}

	req, err := http.NewRequestWithContext(reqCtx, strings.ToUpper(cfg.Method), target, body)
	if err != nil {
		return nil, enhance(err, cfg, ErrCodeBadRequest, nil, nil)
	}
	if size >= 0 && body != nil {
		req.ContentLength = size
	}
	t.applyHeaders(req, cfg, contentType)

	rt := t.roundTripperFor(cfg)
	if rt != t.base {
		defer rt.CloseIdleConnections()
	}
	client := &http.Client{Transport: rt, CheckRedirect: checkRedirect(cfg.MaxRedirects)}
	if cfg.withCredentials() {
		client.Jar = t.jar
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(reqCtx, cfg, req, err)
	}
	defer func() { _ = res.Body.Close() }()

	var reader io.Reader = res.Body
	if cfg.OnDownloadProgress != nil {
		reader = &progressReader{r: reader, total: res.ContentLength, fn: cfg.OnDownloadProgress}
	}
	if cfg.MaxContentLength > 0 {
		reader = io.LimitReader(reader, cfg.MaxContentLength+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifyTransportError(reqCtx, cfg, req, err)
	}
	if cfg.MaxContentLength > 0 && int64(len(raw)) > cfg.MaxContentLength {
		msg := fmt.Sprintf("maxContentLength size of %d exceeded", cfg.MaxContentLength)
		return nil, NewError(msg, ErrCodeBadResponse, cfg, req, nil)
	}

	resp := &Response{
		Status:     res.StatusCode,
		StatusText: res.Status,
		Headers:    HeadersFrom(res.Header),
		Config:     cfg,
		Request:    req,
	}
	if cfg.ResponseType == ResponseTypeArrayBuffer {
		resp.Data = raw
	} else {
		resp.Data = string(raw)
	}

	if err := Settle(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// WriteHeaders copies the flattened headers of cfg onto req. contentType is
// the type EncodeBody reported for cfg.Data: it fills an unset Content-Type
// and always wins for multipart bodies, whose boundary it carries. A request
// without data sends no Content-Type. Auth replaces any Authorization header.
func WriteHeaders(req *http.Request, cfg *Config, contentType string) {
	for _, kv := range cfg.Headers.Flat() {
		req.Header.Set(kv[0], kv[1])
	}

	switch cfg.Data.(type) {
	case nil:
		req.Header.Del(HeaderContentType)
	case *FormBody:
		req.Header.Set(HeaderContentType, contentType)
	default:
		if contentType != "" && req.Header.Get(HeaderContentType) == "" {
			req.Header.Set(HeaderContentType, contentType)
		}
	}

	if cfg.Auth != nil {
		req.Header.Del("Authorization")
		req.SetBasicAuth(cfg.Auth.Username, cfg.Auth.Password)
	}
}

func (t *HTTPTransport) applyHeaders(req *http.Request, cfg *Config, contentType string) {
	WriteHeaders(req, cfg, contentType)

	if cfg.withCredentials() && cfg.XSRFCookieName != "" && cfg.XSRFHeaderName != "" {
		for _, c := range t.jar.Cookies(req.URL) {
			if c.Name == cfg.XSRFCookieName {
				req.Header.Set(cfg.XSRFHeaderName, c.Value)
				break
			}
		}
	}
}

// roundTripperFor returns the shared pool, or a private clone when the
// request needs different proxy, dialing or compression settings.
func (t *HTTPTransport) roundTripperFor(cfg *Config) *http.Transport {
	if cfg.decompress() && cfg.Proxy == nil && cfg.SocketPath == "" {
		return t.base
	}

	rt := t.base.Clone()
	if !cfg.decompress() {
		rt.DisableCompression = true
	}
	if p := cfg.Proxy; p != nil {
		scheme := strings.TrimSuffix(p.Protocol, ":")
		if scheme == "" {
			scheme = "http"
		}
		host := p.Host
		if p.Port > 0 {
			host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
		}
		proxyURL := &url.URL{Scheme: scheme, Host: host}
		if p.Auth != nil {
			proxyURL.User = url.UserPassword(p.Auth.Username, p.Auth.Password)
		}
		rt.Proxy = http.ProxyURL(proxyURL)
	}
	if socket := cfg.SocketPath; socket != "" {
		rt.Proxy = nil
		rt.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		}
	}
	return rt
}

// checkRedirect limits redirects. nil keeps the net/http default of 10;
// zero returns the redirect response itself.
func checkRedirect(maxRedirects *int) func(*http.Request, []*http.Request) error {
	if maxRedirects == nil {
		return nil
	}
	limit := *maxRedirects
	return func(_ *http.Request, via []*http.Request) error {
		if limit <= 0 {
			return http.ErrUseLastResponse
		}
		if len(via) > limit {
			return errTooManyRedirects
		}
		return nil
	}
}

// classifyTransportError maps a failed exchange to a pipeline error.
func classifyTransportError(ctx context.Context, cfg *Config, req *http.Request, err error) error {
	cause := context.Cause(ctx)
	switch {
	case IsCancel(cause):
		return cause
	case errors.Is(cause, errRequestTimeout):
		code := ErrCodeAborted
		if cfg.transitional(OptionClarifyTimeoutError) {
			code = ErrCodeTimeout
		}
		msg := cfg.TimeoutErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("timeout of %dms exceeded", cfg.Timeout.Milliseconds())
		}
		e := NewError(msg, code, cfg, req, nil)
		e.Err = err
		return e
	case errors.Is(err, errTooManyRedirects):
		e := NewError("Maximum number of redirects exceeded", ErrCodeBadResponse, cfg, req, nil)
		e.Err = err
		return e
	case cause != nil:
		e := NewError("Request aborted", ErrCodeAborted, cfg, req, nil)
		e.Err = err
		return e
	default:
		e := NewError("Network Error", ErrCodeNetwork, cfg, req, nil)
		e.Err = err
		return e
	}
}

// EncodeBody turns a transformed Body into a reader, its length (-1 when
// unknown) and the content type the encoding implies, if any.
func EncodeBody(data Body) (io.Reader, int64, string, error) {
	switch b := data.(type) {
	case nil:
		return nil, 0, "", nil
	case TextBody:
		return strings.NewReader(string(b)), int64(len(b)), "", nil
	case BinaryBody:
		return bytes.NewReader(b), int64(len(b)), "", nil
	case BufferView:
		v := b.View()
		return bytes.NewReader(v), int64(len(v)), "", nil
	case ParamsBody:
		s := url.Values(b).Encode()
		return strings.NewReader(s), int64(len(s)), contentTypeForm, nil
	case JSONBody:
		raw, err := json.Marshal(b.Value)
		if err != nil {
			return nil, 0, "", err
		}
		return bytes.NewReader(raw), int64(len(raw)), contentTypeJSON, nil
	case StreamBody:
		return b.Reader, b.Size, "", nil
	case *FormBody:
		buf, ct, err := b.encode()
		if err != nil {
			return nil, 0, "", err
		}
		return buf, int64(buf.Len()), ct, nil
	default:
		return nil, 0, "", fmt.Errorf("unsupported body type %T", data)
	}
}

type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	fn     ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.fn(ProgressEvent{Loaded: p.loaded, Total: p.total})
	}
	return n, err
}
