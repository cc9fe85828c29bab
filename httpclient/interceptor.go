package httpclient

import (
	"context"
	"sync"
)

// FulfilledFunc handles a successful value. Returning a nil value with a nil
// error passes the input through unchanged.
type FulfilledFunc[T any] func(ctx context.Context, v T) (T, error)

// RejectedFunc handles a failure. It recovers by returning a value and a nil
// error, or keeps the chain failing by returning an error. Returning a nil
// value with a nil error re-raises the original failure.
type RejectedFunc[T any] func(ctx context.Context, err error) (T, error)

// Interceptor is a registered handler pair.
type Interceptor[T any] struct {
	Fulfilled FulfilledFunc[T]
	Rejected  RejectedFunc[T]
	// Synchronous marks a request interceptor safe to run eagerly on the
	// caller's goroutine.
	Synchronous bool
	// RunWhen, if set, skips a request interceptor for configurations it
	// returns false for.
	RunWhen func(*Config) bool
}

// InterceptorOption configures an interceptor at registration.
type InterceptorOption func(*interceptorOptions)

type interceptorOptions struct {
	synchronous bool
	runWhen     func(*Config) bool
}

// Synchronous declares the interceptor free of ordering-sensitive side
// effects. When every request interceptor of a call is synchronous, the
// request side runs eagerly before dispatch.
func Synchronous() InterceptorOption {
	return func(o *interceptorOptions) { o.synchronous = true }
}

// RunWhen registers a predicate evaluated against the merged configuration.
func RunWhen(fn func(*Config) bool) InterceptorOption {
	return func(o *interceptorOptions) { o.runWhen = fn }
}

// InterceptorManager is an ordered registry of interceptors. Handles are
// slot indices: ejecting leaves an empty slot, so a handle is never reused.
type InterceptorManager[T any] struct {
	mu    sync.RWMutex
	slots []*Interceptor[T]
}

// Use appends a handler pair and returns its handle. Either handler may be nil.
func (m *InterceptorManager[T]) Use(fulfilled FulfilledFunc[T], rejected RejectedFunc[T], opts ...InterceptorOption) int {
	var o interceptorOptions
	for _, opt := range opts {
		opt(&o)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = append(m.slots, &Interceptor[T]{
		Fulfilled:   fulfilled,
		Rejected:    rejected,
		Synchronous: o.synchronous,
		RunWhen:     o.runWhen,
	})
	return len(m.slots) - 1
}

// Eject removes the interceptor with the given handle. Unknown or already
// ejected handles are ignored.
func (m *InterceptorManager[T]) Eject(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id >= 0 && id < len(m.slots) {
		m.slots[id] = nil
	}
}

// Clear ejects every interceptor.
func (m *InterceptorManager[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		m.slots[i] = nil
	}
}

// ForEach calls visit for each live interceptor in registration order.
func (m *InterceptorManager[T]) ForEach(visit func(id int, ic *Interceptor[T])) {
	for id, ic := range m.snapshot() {
		if ic != nil {
			visit(id, ic)
		}
	}
}

// Len returns the number of live interceptors.
func (m *InterceptorManager[T]) Len() int {
	n := 0
	m.ForEach(func(int, *Interceptor[T]) { n++ })
	return n
}

// snapshot copies the slot table so a call keeps the chain it started with.
func (m *InterceptorManager[T]) snapshot() []*Interceptor[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Interceptor[T], len(m.slots))
	copy(out, m.slots)
	return out
}
