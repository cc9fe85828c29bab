package httpclient

import (
	"context"
	"sync"
)

// recordingTransport answers every exchange with a fixed status and body and
// records the configurations it receives.
type recordingTransport struct {
	mu      sync.Mutex
	status  int
	data    any
	headers Headers
	err     error
	seen    []*Config
}

func (r *recordingTransport) RoundTrip(_ context.Context, cfg *Config) (*Response, error) {
	r.mu.Lock()
	r.seen = append(r.seen, cfg)
	r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	status := r.status
	if status == 0 {
		status = 200
	}
	headers := Headers{}
	for k, v := range r.headers {
		headers[k] = v
	}
	resp := &Response{Data: r.data, Status: status, StatusText: "status", Headers: headers, Config: cfg, Request: "raw"}
	if err := Settle(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *recordingTransport) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func (r *recordingTransport) last() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return nil
	}
	return r.seen[len(r.seen)-1]
}
