// Package blocking is the blocking HTTP backend built on
// github.com/valyala/fasthttp. Importing it registers the "fasthttp"
// backend:
//
//	import _ "github.com/kbukum/anyhttp/httpclient/backend/blocking"
//
// Execute runs on the caller's goroutine and is bounded by the request
// timeout; there is no way to cancel it early.
package blocking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fasthttp"

	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/httpclient/backend"
	"github.com/kbukum/anyhttp/logger"
	"github.com/kbukum/anyhttp/provider"
)

// ErrClosed is returned by Execute after Close.
var ErrClosed = errors.New("fasthttp backend closed")

func init() {
	backend.RegisterSync(Name, func(opts map[string]any) (backend.SyncBackend, error) {
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

// Adapter implements httpclient.Executor with a fasthttp.Client.
type Adapter struct {
	cfg    Config
	client *fasthttp.Client
	log    *logger.Logger
	closed atomic.Bool
}

var (
	_ backend.SyncBackend    = (*Adapter)(nil)
	_ provider.HealthChecker = (*Adapter)(nil)
)

// New creates the adapter.
func New(cfg Config) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("blocking: invalid config: %w", err)
	}
	tlsConf, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("blocking: %w", err)
	}

	client := &fasthttp.Client{
		Name:                cfg.UserAgent,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		MaxResponseBodySize: cfg.MaxResponseBodySize,
		TLSConfig:           tlsConf,

		// a request that may have reached the server is never sent again
		MaxIdemponentCallAttempts: 1,

		DisablePathNormalizing: true,
	}
	return &Adapter{
		cfg:    cfg,
		client: client,
		log:    logger.Get("httpclient").WithFields(logger.Fields(logger.FieldBackend, cfg.Name)),
	}, nil
}

// Name returns the backend name.
func (a *Adapter) Name() string { return a.cfg.Name }

// IsAvailable reports whether the adapter is open.
func (a *Adapter) IsAvailable(context.Context) bool { return !a.closed.Load() }

// Health reports open and idle state.
func (a *Adapter) Health(ctx context.Context) provider.HealthStatus {
	if !a.IsAvailable(ctx) {
		return provider.HealthStatus{Status: provider.StatusUnavailable, Message: "closed"}
	}
	return provider.HealthStatus{
		Status:  provider.StatusHealthy,
		Details: map[string]any{"max_conns_per_host": a.cfg.MaxConnsPerHost},
	}
}

// Close releases idle connections. Later calls to Execute fail.
func (a *Adapter) Close() error {
	if a.closed.CompareAndSwap(false, true) {
		a.client.CloseIdleConnections()
		a.log.Debug("backend closed")
	}
	return nil
}

// Execute performs one exchange.
func (a *Adapter) Execute(r *httpclient.Request) (*httpclient.Response, error) {
	if a.closed.Load() {
		return nil, httpclient.NewTransportError(ErrClosed)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	compress := a.writeRequest(req, r)

	if err := a.client.DoTimeout(req, resp, durationOr(r.Timeout, a.cfg.Timeout)); err != nil {
		return nil, translateError(err)
	}
	return a.readResponse(resp, r, compress)
}

// writeRequest copies r into req. It reports whether the adapter asked for
// gzip on the caller's behalf.
func (a *Adapter) writeRequest(req *fasthttp.Request, r *httpclient.Request) bool {
	req.SetRequestURI(r.URL.String())
	req.Header.SetMethod(r.Method.String())
	r.Header.Each(func(name, value string) {
		req.Header.Add(name, value)
	})
	if len(r.Body) > 0 {
		req.SetBody(r.Body)
	}

	compress := !a.cfg.DisableCompression && !r.Header.Has(httpclient.HeaderAcceptEncoding)
	if compress {
		req.Header.Set(httpclient.HeaderAcceptEncoding, "gzip")
	}
	return compress
}

func (a *Adapter) readResponse(resp *fasthttp.Response, r *httpclient.Request, compress bool) (*httpclient.Response, error) {
	status := resp.StatusCode()
	if err := httpclient.CheckStatus(status); err != nil {
		return nil, err
	}

	inflate := compress && strings.EqualFold(string(resp.Header.ContentEncoding()), "gzip")
	var header httpclient.Header
	resp.Header.VisitAll(func(k, v []byte) {
		name := string(k)
		if inflate && (strings.EqualFold(name, "Content-Encoding") || strings.EqualFold(name, httpclient.HeaderContentLength)) {
			return
		}
		header.Add(name, string(v))
	})

	body := bytes.Clone(resp.Body())
	if inflate && len(body) > 0 {
		var err error
		if body, err = a.gunzip(body); err != nil {
			return nil, httpclient.NewProtocolError(fmt.Errorf("gzip body: %w", err))
		}
	}
	return httpclient.NewResponse(status, header, r.URL, body), nil
}

func (a *Adapter) gunzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	var src io.Reader = zr
	if limit := a.cfg.MaxResponseBodySize; limit > 0 {
		src = io.LimitReader(zr, int64(limit)+1)
	}
	out, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	if limit := a.cfg.MaxResponseBodySize; limit > 0 && len(out) > limit {
		return nil, fasthttp.ErrBodyTooLarge
	}
	return out, nil
}

// framingHints are fragments of fasthttp's errors for responses it could
// not parse.
var framingHints = []string{
	"error when reading response headers",
	"cannot parse response status code",
	"cannot find whitespace in the first line of response",
	"unsupported HTTP version",
	"invalid header",
	"cannot parse chunk",
}

func translateError(err error) error {
	var he *httpclient.Error
	if errors.As(err, &he) {
		return he
	}
	switch {
	case errors.Is(err, fasthttp.ErrTimeout),
		errors.Is(err, fasthttp.ErrDialTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return httpclient.NewTimeoutError(err)
	case errors.Is(err, fasthttp.ErrBodyTooLarge):
		return httpclient.NewProtocolError(err)
	case errors.Is(err, fasthttp.ErrConnectionClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return httpclient.NewTransportError(err)
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return httpclient.NewTimeoutError(err)
		}
		return httpclient.NewTransportError(err)
	}
	msg := err.Error()
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe") {
		return httpclient.NewTransportError(err)
	}
	for _, hint := range framingHints {
		if strings.Contains(msg, hint) {
			return httpclient.NewProtocolError(err)
		}
	}
	return httpclient.NewTransportError(err)
}

// durationOr returns d, or fallback when d is not positive.
func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
