package httpclient

import (
	"context"
	"reflect"
	"slices"
)

// outcome is one settled stage of a call: a value or an error.
type outcome[T any] struct {
	value T
	err   error
}

// then routes o through one handler pair: a value goes to fulfilled, an
// error to rejected. A missing handler forwards o unchanged, so a failure
// travels to the nearest following rejection handler.
func (o outcome[T]) then(ctx context.Context, fulfilled FulfilledFunc[T], rejected RejectedFunc[T]) outcome[T] {
	if o.err == nil {
		if fulfilled == nil {
			return o
		}
		v, err := fulfilled(ctx, o.value)
		switch {
		case err != nil:
			return outcome[T]{err: err}
		case isNil(v):
			return o
		}
		return outcome[T]{value: v}
	}

	if rejected == nil {
		return o
	}
	v, err := rejected(ctx, o.err)
	switch {
	case err != nil:
		return outcome[T]{err: err}
	case isNil(v):
		return o
	}
	return outcome[T]{value: v}
}

func isNil[T any](v T) bool {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// requestChain returns the request interceptors that apply to cfg in
// execution order, the most recently registered first, and whether every
// one of them is synchronous.
func (c *Client) requestChain(cfg *Config) ([]*Interceptor[*Config], bool) {
	var chain []*Interceptor[*Config]
	synchronous := true
	c.Interceptors.Request.ForEach(func(_ int, ic *Interceptor[*Config]) {
		if ic.RunWhen != nil && !ic.RunWhen(cfg) {
			return
		}
		synchronous = synchronous && ic.Synchronous
		chain = append(chain, ic)
	})
	slices.Reverse(chain)
	return chain, synchronous
}

// responseChain returns the response interceptors in registration order.
func (c *Client) responseChain() []*Interceptor[*Response] {
	var chain []*Interceptor[*Response]
	c.Interceptors.Response.ForEach(func(_ int, ic *Interceptor[*Response]) {
		chain = append(chain, ic)
	})
	return chain
}

// foldRequest runs the request side with continuation semantics: a failure
// skips fulfilled handlers until a rejection handler recovers it.
func foldRequest(ctx context.Context, cfg *Config, chain []*Interceptor[*Config]) outcome[*Config] {
	o := outcome[*Config]{value: cfg}
	for _, ic := range chain {
		o = o.then(ctx, ic.Fulfilled, ic.Rejected)
	}
	return o
}

// walkRequest runs the request side eagerly. The first failing handler
// aborts the walk: its own rejection handler, or the nearest following one,
// observes the failure and the call never reaches dispatch. The result is
// the error that handler returns, or the original one.
func walkRequest(ctx context.Context, cfg *Config, chain []*Interceptor[*Config]) outcome[*Config] {
	for i, ic := range chain {
		if ic.Fulfilled == nil {
			continue
		}
		next, err := ic.Fulfilled(ctx, cfg)
		if err == nil {
			if next != nil {
				cfg = next
			}
			continue
		}
		for _, r := range chain[i:] {
			if r.Rejected == nil {
				continue
			}
			if _, rerr := r.Rejected(ctx, err); rerr != nil {
				err = rerr
			}
			break
		}
		return outcome[*Config]{err: err}
	}
	return outcome[*Config]{value: cfg}
}

// complete dispatches a prepared request, unless the request side failed,
// then folds the response interceptors over the result.
func (c *Client) complete(ctx context.Context, req outcome[*Config], chain []*Interceptor[*Response]) (*Response, error) {
	var res outcome[*Response]
	if req.err != nil {
		res.err = req.err
	} else {
		res.value, res.err = c.dispatch(ctx, req.value)
	}
	for _, ic := range chain {
		res = res.then(ctx, ic.Fulfilled, ic.Rejected)
	}
	return res.value, res.err
}
