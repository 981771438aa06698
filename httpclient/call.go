package httpclient

import (
	"context"
	"sync"
)

// Call is an in-flight suspending exchange. It resolves exactly once, with
// a response whose headers have arrived or with an error.
type Call struct {
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once

	resp *Response
	err  error
}

// NewCall returns an unresolved call. cancel aborts the underlying exchange
// and may be nil.
func NewCall(cancel context.CancelFunc) *Call {
	return &Call{done: make(chan struct{}), cancel: cancel}
}

// ResolvedCall returns a call that has already resolved with resp and err.
func ResolvedCall(resp *Response, err error) *Call {
	c := NewCall(nil)
	c.Resolve(resp, err)
	return c
}

// Resolve records the outcome. Only the first call has an effect; it
// returns false when the call was already resolved, in which case the
// caller still owns resp and should close it.
func (c *Call) Resolve(resp *Response, err error) bool {
	resolved := false
	c.once.Do(func() {
		c.resp, c.err = resp, err
		resolved = true
		close(c.done)
	})
	return resolved
}

// Done is closed when the call resolves.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Await waits for the call to resolve. If ctx ends first the call is
// cancelled and a cancellation or timeout error is returned.
func (c *Call) Await(ctx context.Context) (*Response, error) {
	// an outcome that already arrived wins over a finished ctx
	select {
	case <-c.done:
		return c.resp, c.err
	default:
	}
	select {
	case <-c.done:
		return c.resp, c.err
	case <-ctx.Done():
		c.Cancel()
		<-c.done
		if c.err == nil {
			// the response won the race; nobody will read it
			if c.resp != nil {
				_ = c.resp.Close()
			}
			return nil, NewTransportError(ctx.Err())
		}
		return nil, c.err
	}
}

// Cancel aborts the exchange. It has no effect once the call resolved.
func (c *Call) Cancel() {
	select {
	case <-c.done:
		return
	default:
	}
	if c.cancel != nil {
		c.cancel()
	}
}

// Result returns the outcome without waiting. ok is false while the call is
// still in flight.
func (c *Call) Result() (resp *Response, err error, ok bool) {
	select {
	case <-c.done:
		return c.resp, c.err, true
	default:
		return nil, nil, false
	}
}

// Then returns a call that resolves with fn applied to this call's outcome.
// fn runs on its own goroutine once the call resolves; cancelling the
// returned call cancels this one.
func (c *Call) Then(fn func(*Response, error) (*Response, error)) *Call {
	next := NewCall(c.Cancel)
	go func() {
		<-c.done
		next.Resolve(fn(c.resp, c.err))
	}()
	return next
}
