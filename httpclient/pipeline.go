package httpclient

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/anyhttp/logger"
	"github.com/kbukum/anyhttp/resilience"
)

// pipeline holds the features shared by both client flavours. It runs the
// same steps around every exchange, whatever backend is underneath.
type pipeline struct {
	jar       CookieJar
	base      *url.URL
	headers   Header
	auth      *AuthConfig
	requestID bool
	limiter   *resilience.RateLimiter
	breaker   *resilience.CircuitBreaker
	taps      []func(*Response)
	observers []Observer
	timeout   time.Duration
	log       *logger.Logger
	optErr    error
}

func newPipeline(component string, opts []Option) *pipeline {
	p := &pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get(component)
	}
	return p
}

// prepare copies req and applies default headers, auth, request id and the
// jar's cookies. The caller's request is never modified.
func (p *pipeline) prepare(req *Request) (*Request, error) {
	if p.optErr != nil {
		return nil, p.optErr
	}
	if req == nil {
		return nil, NewMalformedRequestError("nil request", nil)
	}
	out := req.Clone()
	if out.URL != nil && !out.URL.IsAbs() && p.base != nil {
		out.URL = p.base.ResolveReference(out.URL)
	}
	out.Header.Merge(p.headers)
	if out.Timeout == 0 {
		out.Timeout = p.timeout
	}
	if p.auth != nil && !out.Header.Has(HeaderAuthorization) {
		if err := p.auth.apply(out); err != nil {
			return nil, err
		}
	}
	if p.requestID && !out.Header.Has(HeaderRequestID) {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	if p.jar != nil && !out.Header.Has(HeaderCookie) {
		if v := p.jar.CookieHeader(out.URL); v != "" {
			out.Header.Set(HeaderCookie, v)
		}
	}
	return out, nil
}

// wait paces the exchange and asks the circuit breaker for admission. An
// admitted exchange must reach finish.
func (p *pipeline) wait(ctx context.Context) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return NewTransportError(err)
		}
	}
	if p.breaker != nil {
		if err := p.breaker.Allow(); err != nil {
			p.log.Debug("exchange rejected", logger.Fields("breaker", p.breaker.Name(), "state", p.breaker.State().String()))
			return NewTransportError(err)
		}
	}
	return nil
}

// record reports the outcome to the circuit breaker. Only failures that say
// something about the peer count; a cancelled exchange gives no verdict.
func (p *pipeline) record(err error) {
	if p.breaker == nil {
		return
	}
	switch {
	case err == nil:
		p.breaker.Success()
	case IsCanceled(err):
		p.breaker.Release()
	case IsTransport(err), IsProtocol(err):
		p.breaker.Failure()
	default:
		p.breaker.Success()
	}
}

func (p *pipeline) started(ctx context.Context, req *Request) context.Context {
	for _, o := range p.observers {
		ctx = o.ExchangeStarted(ctx, req)
	}
	return ctx
}

// finish stores cookies and runs taps for a successful exchange, then
// notifies observers.
func (p *pipeline) finish(ctx context.Context, req *Request, resp *Response, err error, start time.Time) {
	elapsed := time.Since(start)
	p.record(err)
	if err == nil && resp != nil {
		if p.jar != nil {
			if lines := resp.Header.Values(HeaderSetCookie); len(lines) > 0 {
				origin := resp.URL
				if origin == nil {
					origin = req.URL
				}
				p.jar.StoreResponse(origin, lines)
			}
		}
		for _, tap := range p.taps {
			tap(resp)
		}
		p.log.Debug("exchange completed", logger.ExchangeFields(string(req.Method), req.URL.Redacted(), resp.StatusCode, elapsed))
	} else {
		p.log.Debug("exchange failed", logger.MergeWithError(
			logger.ExchangeFields(string(req.Method), req.URL.Redacted(), 0, elapsed), err))
	}
	for _, o := range p.observers {
		o.ExchangeFinished(ctx, req, resp, err, elapsed)
	}
}

func (p *pipeline) builder(method, rawURL string) *RequestBuilder {
	b := NewRequestBuilder(method, rawURL)
	b.base = p.base
	return b
}
