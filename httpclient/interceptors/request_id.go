package interceptors

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbukum/relay/httpclient"
)

// HeaderRequestID is the default request ID header.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// ContextWithRequestID stores id for RequestID to pick up.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the ID stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID sets header (HeaderRequestID when empty) on requests that lack
// it, using the context's ID or a new UUID. It is safe to register as
// Synchronous.
func RequestID(header string) httpclient.FulfilledFunc[*httpclient.Config] {
	if header == "" {
		header = HeaderRequestID
	}
	return func(ctx context.Context, cfg *httpclient.Config) (*httpclient.Config, error) {
		if cfg.Headers == nil {
			cfg.Headers = httpclient.Headers{}
		}
		if cfg.Headers.Get(header) != "" {
			return cfg, nil
		}
		id := RequestIDFromContext(ctx)
		if id == "" {
			id = uuid.NewString()
		}
		cfg.Headers.Set(header, id)
		return cfg, nil
	}
}
