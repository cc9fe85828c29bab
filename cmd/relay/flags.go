package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kbukum/relay/config"
	"github.com/kbukum/relay/httpclient"
	"github.com/kbukum/relay/resilience"
)

// flagKeys binds flags to settings keys.
var flagKeys = map[string]string{
	"base-url":   "client.base_url",
	"timeout":    "client.timeout",
	"log-level":  "logging.level",
	"log-format": "logging.format",
}

type options struct {
	configFile string
	envFile    string

	method       string
	headers      []string
	query        []string
	data         string
	jsonData     bool
	form         []string
	user         string
	token        string
	maxRedirects int
	insecure     bool
	responseType string
	retries      int
	include      bool
	verbose      bool
	version      bool
}

func newFlagSet(out io.Writer) (*pflag.FlagSet, *options) {
	o := &options{}
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: %s [flags] URL\n\nFlags:\n", serviceName)
		fs.PrintDefaults()
	}

	fs.StringVarP(&o.method, "request", "X", "", "request method (default GET, or POST with a body)")
	fs.StringArrayVarP(&o.headers, "header", "H", nil, `request header "Name: value" (repeatable)`)
	fs.StringArrayVarP(&o.query, "query", "q", nil, "query parameter key=value (repeatable)")
	fs.StringVarP(&o.data, "data", "d", "", "request body; @file reads a file, @- reads stdin")
	fs.BoolVar(&o.jsonData, "json", false, "send --data as JSON")
	fs.StringArrayVarP(&o.form, "form", "F", nil, "multipart field key=value or key=@file (repeatable)")
	fs.StringVarP(&o.user, "user", "u", "", "basic auth user:password")
	fs.StringVar(&o.token, "token", "", "bearer token")
	fs.IntVar(&o.maxRedirects, "max-redirects", 10, "maximum redirects to follow; 0 disables")
	fs.BoolVarP(&o.insecure, "insecure", "k", false, "skip TLS certificate verification")
	fs.StringVar(&o.responseType, "response-type", "", "text, json or arraybuffer")
	fs.IntVar(&o.retries, "retries", 0, "retry idempotent requests on failure")
	fs.BoolVarP(&o.include, "include", "i", false, "print status line and response headers")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log at debug level")

	fs.String("base-url", "", "base URL for relative request URLs")
	fs.Duration("timeout", 0, "request timeout, e.g. 5s (0 means none)")
	fs.String("log-level", "", "log level")
	fs.String("log-format", "", "log format: console, json or pretty")

	fs.StringVarP(&o.configFile, "config", "c", "", "config file (default: search relay.yml)")
	fs.StringVar(&o.envFile, "env-file", "", ".env file (default: search .env)")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	return fs, o
}

// applyTo copies flags that need more than a key binding into s.
func (o *options) applyTo(fs *pflag.FlagSet, s *config.Settings) {
	if o.verbose {
		s.Logging.Level = "debug"
	}
	if fs.Changed("max-redirects") {
		s.Client.MaxRedirects = httpclient.Int(o.maxRedirects)
	}
	if o.responseType != "" {
		s.Client.ResponseType = o.responseType
	}
	if o.insecure {
		if s.Transport.TLS == nil {
			s.Transport.TLS = &httpclient.TLSConfig{}
		}
		s.Transport.TLS.InsecureSkipVerify = true
	}
	if o.token != "" {
		s.Auth.Token = o.token
		s.Auth.JWT = nil
	}
	if o.retries > 0 {
		b := resilience.DefaultBackoff()
		if s.Resilience.Retry != nil {
			b = *s.Resilience.Retry
		}
		b.MaxAttempts = o.retries + 1
		s.Resilience.Retry = &b
	}
}

// requestConfig builds the per-call configuration for rawURL.
func (o *options) requestConfig(rawURL string, stdin io.Reader) (*httpclient.Config, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	cfg := &httpclient.Config{URL: rawURL, Method: o.method}

	if len(o.headers) > 0 {
		cfg.Headers = httpclient.Headers{}
		for _, h := range o.headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("invalid header %q, want \"Name: value\"", h)
			}
			cfg.Headers.Set(strings.TrimSpace(name), strings.TrimSpace(value))
		}
	}

	if len(o.query) > 0 {
		cfg.Params = map[string]any{}
		for _, q := range o.query {
			k, v, ok := strings.Cut(q, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid query %q, want key=value", q)
			}
			if prev, exists := cfg.Params[k]; exists {
				switch p := prev.(type) {
				case []string:
					cfg.Params[k] = append(p, v)
				default:
					cfg.Params[k] = []string{p.(string), v}
				}
				continue
			}
			cfg.Params[k] = v
		}
	}

	if o.user != "" {
		user, pass, _ := strings.Cut(o.user, ":")
		cfg.Auth = &httpclient.BasicAuth{Username: user, Password: pass}
	}

	body, err := o.body(stdin)
	if err != nil {
		return nil, err
	}
	cfg.Data = body
	if body != nil && cfg.Method == "" {
		cfg.Method = "post"
	}
	return cfg, nil
}

func (o *options) body(stdin io.Reader) (httpclient.Body, error) {
	if o.data != "" && len(o.form) > 0 {
		return nil, fmt.Errorf("--data and --form are mutually exclusive")
	}

	if len(o.form) > 0 {
		form := &httpclient.FormBody{Fields: map[string]string{}}
		for _, f := range o.form {
			k, v, ok := strings.Cut(f, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid form field %q, want key=value", f)
			}
			path, isFile := strings.CutPrefix(v, "@")
			if !isFile {
				form.Fields[k] = v
				continue
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("form field %s: %w", k, err)
			}
			form.Files = append(form.Files, httpclient.FileField{
				FieldName: k,
				FileName:  filepath.Base(path),
				Data:      raw,
			})
		}
		return form, nil
	}

	if o.data == "" {
		return nil, nil
	}
	raw, err := readData(o.data, stdin)
	if err != nil {
		return nil, err
	}
	if o.jsonData {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("--data is not valid JSON: %w", err)
		}
		return httpclient.JSON(v), nil
	}
	return httpclient.TextBody(raw), nil
}

func readData(data string, stdin io.Reader) ([]byte, error) {
	path, ok := strings.CutPrefix(data, "@")
	switch {
	case !ok:
		return []byte(data), nil
	case path == "-":
		return io.ReadAll(stdin)
	default:
		return os.ReadFile(path)
	}
}
