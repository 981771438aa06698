package httpclient

import (
	"context"
	"net/url"
	"time"
)

// Executor is the blocking backend capability. Execute runs one exchange on
// the caller's goroutine and returns once the response headers and status
// are available. It is bounded only by Request.Timeout or the backend's
// default timeout.
type Executor interface {
	Execute(req *Request) (*Response, error)
}

// AsyncExecutor is the suspending backend capability. Start returns
// immediately; the exchange runs until the Call resolves. Cancelling ctx or
// the Call before the headers arrive aborts the exchange.
type AsyncExecutor interface {
	Start(ctx context.Context, req *Request) *Call
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(req *Request) (*Response, error)

// Execute calls f(req).
func (f ExecutorFunc) Execute(req *Request) (*Response, error) { return f(req) }

// CookieJar is the storage the clients consult around every exchange.
type CookieJar interface {
	// CookieHeader returns the Cookie header value for u, or "" when no
	// stored cookie matches.
	CookieHeader(u *url.URL) string
	// StoreResponse records every Set-Cookie line received from u.
	// Malformed lines are dropped by the jar.
	StoreResponse(u *url.URL, setCookies []string)
}

// BodyEncoder turns a payload into body bytes and a media type.
type BodyEncoder interface {
	Encode(v any) ([]byte, string, error)
}

// Observer is notified around each exchange performed by a client.
type Observer interface {
	// ExchangeStarted is called right before the backend runs req. The
	// returned context is passed back to ExchangeFinished.
	ExchangeStarted(ctx context.Context, req *Request) context.Context
	// ExchangeFinished is called with the response or error once headers
	// arrived or the exchange failed.
	ExchangeFinished(ctx context.Context, req *Request, resp *Response, err error, elapsed time.Duration)
}
