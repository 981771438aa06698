package httpclient

import (
	"context"
	"time"
)

// Client runs exchanges on a blocking Executor with the feature pipeline
// (cookies, default headers, auth, request ids, taps, observers) applied
// around each one.
type Client struct {
	exec Executor
	pipe *pipeline
}

// NewClient wraps exec. It panics if exec is nil.
func NewClient(exec Executor, opts ...Option) *Client {
	if exec == nil {
		panic("httpclient: NewClient called with a nil Executor")
	}
	return &Client{exec: exec, pipe: newPipeline("httpclient", opts)}
}

// Executor returns the wrapped backend.
func (c *Client) Executor() Executor {
	return c.exec
}

// Send runs req and returns the response once its headers are available.
// Non-2xx statuses are not errors; use Response.ErrorForStatus.
func (c *Client) Send(req *Request) (*Response, error) {
	prepared, err := c.pipe.prepare(req)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if prepared.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, prepared.Timeout)
		defer cancel()
	}
	if err := c.pipe.wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx = c.pipe.started(ctx, prepared)
	resp, err := c.exec.Execute(prepared)
	if err == nil && resp == nil {
		err = NewProtocolError(errNoResponse)
	}
	c.pipe.finish(ctx, prepared, resp, err, start)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Request starts a builder bound to c.
func (c *Client) Request(method, rawURL string) *RequestBuilder {
	b := c.pipe.builder(method, rawURL)
	b.client = c
	return b
}

// Get starts a GET builder.
func (c *Client) Get(rawURL string) *RequestBuilder { return c.Request("GET", rawURL) }

// Head starts a HEAD builder.
func (c *Client) Head(rawURL string) *RequestBuilder { return c.Request("HEAD", rawURL) }

// Post starts a POST builder.
func (c *Client) Post(rawURL string) *RequestBuilder { return c.Request("POST", rawURL) }

// Put starts a PUT builder.
func (c *Client) Put(rawURL string) *RequestBuilder { return c.Request("PUT", rawURL) }

// Patch starts a PATCH builder.
func (c *Client) Patch(rawURL string) *RequestBuilder { return c.Request("PATCH", rawURL) }

// Delete starts a DELETE builder.
func (c *Client) Delete(rawURL string) *RequestBuilder { return c.Request("DELETE", rawURL) }
