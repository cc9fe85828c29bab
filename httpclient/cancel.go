package httpclient

import (
	"context"
	"sync"
)

const defaultCancelMessage = "canceled"

// CancelToken is a one-shot cancellation signal. Once canceled it keeps its
// reason forever; later cancel calls are ignored.
type CancelToken struct {
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	reason *Error
	nextID int
	subs   map[int]func(error)
}

// CancelFunc cancels the associated token with an optional message.
type CancelFunc func(message string)

// CancelSource pairs a token with the function that cancels it.
type CancelSource struct {
	Token  *CancelToken
	Cancel CancelFunc
}

// NewCancelSource returns a fresh token and its cancel function.
func NewCancelSource() CancelSource {
	t := newCancelToken()
	return CancelSource{Token: t, Cancel: t.cancel}
}

// NewCancelToken creates a token and hands its cancel function to executor.
func NewCancelToken(executor func(cancel CancelFunc)) *CancelToken {
	t := newCancelToken()
	executor(t.cancel)
	return t
}

// CancelTokenFromContext returns a token that is canceled when ctx is done.
// The token stays registered with ctx until ctx ends or stop is called; stop
// reports whether it detached the token before ctx was done.
func CancelTokenFromContext(ctx context.Context) (token *CancelToken, stop func() bool) {
	t := newCancelToken()
	stop = context.AfterFunc(ctx, func() {
		t.cancel(context.Cause(ctx).Error())
	})
	return t, stop
}

func newCancelToken() *CancelToken {
	return &CancelToken{
		done: make(chan struct{}),
		subs: make(map[int]func(error)),
	}
}

func (t *CancelToken) cancel(message string) {
	t.once.Do(func() {
		if message == "" {
			message = defaultCancelMessage
		}
		t.mu.Lock()
		t.reason = &Error{Message: message, Code: ErrCodeCanceled}
		subs := t.subs
		t.subs = nil
		t.mu.Unlock()

		close(t.done)
		for _, fn := range subs {
			fn(t.reason)
		}
	})
}

// Done returns a channel closed when the token is canceled.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// Reason returns the cancellation error, or nil while the token is live.
func (t *CancelToken) Reason() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reason == nil {
		return nil
	}
	return t.reason
}

// ThrowIfRequested returns the cancellation reason if the token has been
// canceled. A nil token is never canceled.
func (t *CancelToken) ThrowIfRequested() error {
	if t == nil {
		return nil
	}
	return t.Reason()
}

// Subscribe registers fn to run once with the reason when the token is
// canceled. If it already is, fn runs immediately. The returned function
// removes the subscription.
func (t *CancelToken) Subscribe(fn func(reason error)) (unsubscribe func()) {
	t.mu.Lock()
	if t.reason != nil {
		reason := t.reason
		t.mu.Unlock()
		fn(reason)
		return func() {}
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}
