package testserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/httpclient/backend"
	"github.com/kbukum/anyhttp/provider"
)

// BackendName is the registered name of the in-process backend.
const BackendName = "testserver-inprocess"

// ErrClosed is returned by the in-process backend after Close.
var ErrClosed = errors.New("in-process backend closed")

func init() {
	factory := func(opts map[string]any) (*InProcess, error) {
		var o struct {
			Script string `mapstructure:"script"`
		}
		if err := backend.DecodeOptions(opts, &o); err != nil {
			return nil, err
		}
		srv := New()
		if o.Script != "" {
			if err := srv.LoadScript(o.Script); err != nil {
				srv.Close()
				return nil, err
			}
		}
		in := srv.Executor()
		in.owned = true
		return in, nil
	}
	backend.RegisterSync(BackendName, func(opts map[string]any) (backend.SyncBackend, error) {
		in, err := factory(opts)
		if err != nil {
			return nil, err
		}
		return in, nil
	})
	backend.RegisterAsync(BackendName, func(opts map[string]any) (backend.AsyncBackend, error) {
		in, err := factory(opts)
		if err != nil {
			return nil, err
		}
		return in, nil
	})
}

// InProcess dispatches model requests straight into the server's engine
// through an httptest.ResponseRecorder. No socket is opened; the request
// URL's host is ignored.
type InProcess struct {
	srv    *Server
	owned  bool
	closed atomic.Bool
}

var (
	_ backend.SyncBackend  = (*InProcess)(nil)
	_ backend.AsyncBackend = (*InProcess)(nil)
)

// Executor returns the in-process backend bound to s.
func (s *Server) Executor() *InProcess {
	return &InProcess{srv: s}
}

// Server returns the server behind the backend.
func (in *InProcess) Server() *Server { return in.srv }

// Name returns the backend name.
func (in *InProcess) Name() string { return BackendName }

// IsAvailable reports whether the backend is open.
func (in *InProcess) IsAvailable(context.Context) bool { return !in.closed.Load() }

// Close marks the backend closed and stops the server when the backend was
// opened through the registry.
func (in *InProcess) Close() error {
	if in.closed.CompareAndSwap(false, true) && in.owned {
		in.srv.Close()
	}
	return nil
}

// Execute serves req and waits for the response.
func (in *InProcess) Execute(req *httpclient.Request) (*httpclient.Response, error) {
	return in.serve(context.Background(), req)
}

// Start serves req on its own goroutine.
func (in *InProcess) Start(ctx context.Context, req *httpclient.Request) *httpclient.Call {
	ctx, cancel := context.WithCancel(ctx)
	call := httpclient.NewCall(cancel)
	go func() {
		defer cancel()
		resp, err := in.serve(ctx, req)
		if !call.Resolve(resp, err) && resp != nil {
			_ = resp.Close()
		}
	}()
	return call
}

func (in *InProcess) serve(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	if in.closed.Load() {
		return nil, httpclient.NewTransportError(ErrClosed)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method.String(), req.URL.String(), bytes.NewReader(req.Body))
	if err != nil {
		return nil, httpclient.NewMalformedRequestError("build request", err)
	}
	hreq.Header = req.Header.ToHTTP()
	if host := req.Header.Get("Host"); host != "" {
		hreq.Host = host
	}
	hreq.RemoteAddr = "127.0.0.1:0"

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		in.srv.engine.ServeHTTP(rec, hreq)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return nil, httpclient.NewTransportError(ctx.Err())
	}
	if err := ctx.Err(); err != nil {
		return nil, httpclient.NewTransportError(err)
	}

	res := rec.Result()
	defer res.Body.Close()
	if err := httpclient.CheckStatus(res.StatusCode); err != nil {
		return nil, err
	}
	body := rec.Body.Bytes()
	if req.Method == httpclient.MethodHead {
		body = nil
	}
	return httpclient.NewResponse(res.StatusCode, httpclient.HeaderFromHTTP(res.Header), req.URL, bytes.Clone(body)), nil
}

// Health reports recorded traffic.
func (in *InProcess) Health(ctx context.Context) provider.HealthStatus {
	if !in.IsAvailable(ctx) {
		return provider.HealthStatus{Status: provider.StatusUnavailable, Message: "closed"}
	}
	return provider.HealthStatus{
		Status:  provider.StatusHealthy,
		Details: map[string]any{"requests": len(in.srv.Requests())},
	}
}
