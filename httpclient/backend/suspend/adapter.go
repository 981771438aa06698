// Package suspend is the suspending HTTP backend built on net/http.
// Importing it registers the "nethttp" backend:
//
//	import _ "github.com/kbukum/anyhttp/httpclient/backend/suspend"
//
// Start returns at once with a Call; the exchange runs on its own
// goroutine and is aborted by cancelling the Call or its context.
package suspend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/httpclient/backend"
	"github.com/kbukum/anyhttp/logger"
	"github.com/kbukum/anyhttp/provider"
	"github.com/kbukum/anyhttp/resilience"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("nethttp backend closed")

func init() {
	backend.RegisterAsync(Name, func(opts map[string]any) (backend.AsyncBackend, error) {
		var cfg Config
		if err := backend.DecodeOptions(opts, &cfg); err != nil {
			return nil, err
		}
		a, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}

// Adapter implements httpclient.AsyncExecutor with net/http.
type Adapter struct {
	cfg       Config
	transport *http.Transport
	client    *http.Client
	slots     *resilience.Bulkhead
	log       *logger.Logger
	closed    atomic.Bool
}

var (
	_ backend.AsyncBackend   = (*Adapter)(nil)
	_ provider.HealthChecker = (*Adapter)(nil)
)

// New creates the adapter.
func New(cfg Config) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("suspend: invalid config: %w", err)
	}
	tlsConf, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("suspend: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: time.Second,
		TLSClientConfig:       tlsConf,
		DisableCompression:    cfg.DisableCompression,
	}

	a := &Adapter{
		cfg:       cfg,
		transport: transport,
		slots: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          cfg.Name,
			MaxConcurrent: cfg.MaxInFlight,
			MaxWait:       cfg.SlotWait,
		}),
		log: logger.Get("httpclient").WithFields(logger.Fields(logger.FieldBackend, cfg.Name)),
	}
	a.client = &http.Client{Transport: transport, CheckRedirect: a.checkRedirect}
	return a, nil
}

func (a *Adapter) checkRedirect(_ *http.Request, via []*http.Request) error {
	if !*a.cfg.FollowRedirects {
		return http.ErrUseLastResponse
	}
	if len(via) >= a.cfg.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", a.cfg.MaxRedirects)
	}
	return nil
}

// Name returns the backend name.
func (a *Adapter) Name() string { return a.cfg.Name }

// IsAvailable reports whether the adapter is open.
func (a *Adapter) IsAvailable(context.Context) bool { return !a.closed.Load() }

// Health reports slot usage. A full adapter is degraded.
func (a *Adapter) Health(ctx context.Context) provider.HealthStatus {
	if !a.IsAvailable(ctx) {
		return provider.HealthStatus{Status: provider.StatusUnavailable, Message: "closed"}
	}
	status := provider.StatusHealthy
	if a.slots.Available() == 0 {
		status = provider.StatusDegraded
	}
	return provider.HealthStatus{
		Status: status,
		Details: map[string]any{
			"in_flight":     a.slots.InUse(),
			"max_in_flight": a.slots.MaxConcurrent(),
		},
	}
}

// Close drops idle connections. Later calls fail; exchanges in flight run
// to completion.
func (a *Adapter) Close() error {
	if a.closed.CompareAndSwap(false, true) {
		a.transport.CloseIdleConnections()
		a.log.Debug("backend closed")
	}
	return nil
}

// Start begins the exchange and returns immediately.
func (a *Adapter) Start(ctx context.Context, r *httpclient.Request) *httpclient.Call {
	if a.closed.Load() {
		return httpclient.ResolvedCall(nil, httpclient.NewTransportError(ErrClosed))
	}
	if err := r.Validate(); err != nil {
		return httpclient.ResolvedCall(nil, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	if r.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, r.Timeout)
		parent := cancel
		cancel = func() { cancelTimeout(); parent() }
	}
	call := httpclient.NewCall(cancel)
	go a.run(ctx, cancel, call, r)
	return call
}

func (a *Adapter) run(ctx context.Context, cancel context.CancelFunc, call *httpclient.Call, r *httpclient.Request) {
	release, err := a.slots.Acquire(ctx)
	if err != nil {
		cancel()
		call.Resolve(nil, translateError(ctx, err))
		return
	}

	resp, res, err := a.roundTrip(ctx, r)
	if err != nil {
		release()
		cancel()
		call.Resolve(nil, err)
		return
	}
	resp.Body = &slotBody{rc: res.Body, ctx: ctx, release: func() {
		release()
		cancel()
	}}
	if !call.Resolve(resp, nil) {
		_ = resp.Close()
	}
}

// roundTrip runs the exchange, retrying safe requests whose connection
// could not be established.
func (a *Adapter) roundTrip(ctx context.Context, r *httpclient.Request) (*httpclient.Response, *http.Response, error) {
	policy := a.cfg.Retry
	if !r.Method.IsSafe() {
		policy.MaxAttempts = 1
	}
	var connected atomic.Bool
	userRetryIf := policy.RetryIf
	policy.RetryIf = func(err error) bool {
		if connected.Load() || ctx.Err() != nil || !httpclient.IsTransport(err) || httpclient.IsCanceled(err) {
			return false
		}
		return userRetryIf == nil || userRetryIf(err)
	}
	userOnRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		a.log.Debug("retrying before connect", logger.Fields(
			logger.FieldMethod, r.Method.String(),
			logger.FieldURL, r.URL.Redacted(),
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"backoff_ms", backoff.Milliseconds(),
		))
		if userOnRetry != nil {
			userOnRetry(attempt, err, backoff)
		}
	}

	var res *http.Response
	resp, err := resilience.Retry(ctx, policy, func(int) (*httpclient.Response, error) {
		connected.Store(false)
		var attemptErr error
		res, attemptErr = a.attempt(ctx, r, func() { connected.Store(true) })
		if attemptErr != nil {
			return nil, attemptErr
		}
		return &httpclient.Response{
			StatusCode: res.StatusCode,
			Header:     httpclient.HeaderFromHTTP(res.Header),
			URL:        res.Request.URL,
		}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return resp, res, nil
}

func (a *Adapter) attempt(ctx context.Context, r *httpclient.Request, gotConn func()) (*http.Response, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	trace := &httptrace.ClientTrace{GotConn: func(httptrace.GotConnInfo) { gotConn() }}
	hreq, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), r.Method.String(), r.URL.String(), body)
	if err != nil {
		return nil, httpclient.NewMalformedRequestError("build request", err)
	}
	hreq.Header = r.Header.ToHTTP()
	if host := hreq.Header.Get("Host"); host != "" {
		hreq.Host = host
		hreq.Header.Del("Host")
	}
	if hreq.Header.Get(httpclient.HeaderUserAgent) == "" {
		hreq.Header.Set(httpclient.HeaderUserAgent, a.cfg.UserAgent)
	}

	res, err := a.client.Do(hreq)
	if err != nil {
		return nil, translateError(ctx, err)
	}
	if err := httpclient.CheckStatus(res.StatusCode); err != nil {
		_ = res.Body.Close()
		return nil, err
	}
	return res, nil
}

func translateError(ctx context.Context, err error) error {
	if he, ok := asError(err); ok {
		return he
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return httpclient.NewTransportError(ctxErr)
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return httpclient.NewTransportError(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return httpclient.NewTransportError(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return httpclient.NewTimeoutError(err)
	}
	if strings.Contains(err.Error(), "malformed HTTP") {
		return httpclient.NewProtocolError(err)
	}
	return httpclient.NewTransportError(err)
}
