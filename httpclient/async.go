package httpclient

import (
	"context"
	"io"
	"sync"
	"time"
)

// AsyncClient runs exchanges on a suspending AsyncExecutor with the same
// feature pipeline as Client.
type AsyncClient struct {
	exec AsyncExecutor
	pipe *pipeline
}

// NewAsyncClient wraps exec. It panics if exec is nil.
func NewAsyncClient(exec AsyncExecutor, opts ...Option) *AsyncClient {
	if exec == nil {
		panic("httpclient: NewAsyncClient called with a nil AsyncExecutor")
	}
	return &AsyncClient{exec: exec, pipe: newPipeline("httpclient.async", opts)}
}

// Executor returns the wrapped backend.
func (c *AsyncClient) Executor() AsyncExecutor {
	return c.exec
}

// Send starts req and returns the pending call. Cookies are stored before
// the call resolves, so a request issued after Await sees them.
func (c *AsyncClient) Send(ctx context.Context, req *Request) *Call {
	prepared, err := c.pipe.prepare(req)
	if err != nil {
		return ResolvedCall(nil, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	if prepared.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, prepared.Timeout)
		parent := cancel
		cancel = func() { cancelTimeout(); parent() }
	}
	call := NewCall(cancel)

	go func() {
		if err := c.pipe.wait(ctx); err != nil {
			call.Resolve(nil, err)
			cancel()
			return
		}

		start := time.Now()
		obsCtx := c.pipe.started(ctx, prepared)
		inner := c.exec.Start(ctx, prepared)
		select {
		case <-inner.Done():
		case <-ctx.Done():
			inner.Cancel()
			<-inner.Done()
		}
		resp, err, _ := inner.Result()
		if err != nil && ctx.Err() != nil && IsCanceled(err) {
			// report the caller's cause, which may be the request deadline
			err = NewTransportError(ctx.Err())
		}
		if err == nil && resp == nil {
			err = NewProtocolError(errNoResponse)
		}
		if err != nil {
			resp = nil
		}
		c.pipe.finish(obsCtx, prepared, resp, err, start)

		if err != nil {
			call.Resolve(nil, err)
			cancel()
			return
		}
		// the exchange context must outlive the call so the body can stream
		resp.Body = &releaseOnClose{ReadCloser: resp.Body, release: cancel}
		if !call.Resolve(resp, nil) {
			_ = resp.Close()
		}
	}()
	return call
}

// Request starts a builder bound to c.
func (c *AsyncClient) Request(method, rawURL string) *RequestBuilder {
	b := c.pipe.builder(method, rawURL)
	b.async = c
	return b
}

// Get starts a GET builder.
func (c *AsyncClient) Get(rawURL string) *RequestBuilder { return c.Request("GET", rawURL) }

// Head starts a HEAD builder.
func (c *AsyncClient) Head(rawURL string) *RequestBuilder { return c.Request("HEAD", rawURL) }

// Post starts a POST builder.
func (c *AsyncClient) Post(rawURL string) *RequestBuilder { return c.Request("POST", rawURL) }

// Put starts a PUT builder.
func (c *AsyncClient) Put(rawURL string) *RequestBuilder { return c.Request("PUT", rawURL) }

// Patch starts a PATCH builder.
func (c *AsyncClient) Patch(rawURL string) *RequestBuilder { return c.Request("PATCH", rawURL) }

// Delete starts a DELETE builder.
func (c *AsyncClient) Delete(rawURL string) *RequestBuilder { return c.Request("DELETE", rawURL) }

// releaseOnClose runs release once the body is closed or fully read.
type releaseOnClose struct {
	io.ReadCloser
	release func()
	once    sync.Once
}

func (r *releaseOnClose) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err == io.EOF {
		r.once.Do(r.release)
	}
	return n, err
}

func (r *releaseOnClose) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(r.release)
	return err
}
