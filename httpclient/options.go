package httpclient

import (
	"net/url"
	"time"

	"github.com/kbukum/anyhttp/logger"
	"github.com/kbukum/anyhttp/resilience"
)

// Option configures a Client or an AsyncClient.
type Option func(*pipeline)

// WithCookieJar enables cookie handling. A nil jar disables it.
func WithCookieJar(jar CookieJar) Option {
	return func(p *pipeline) { p.jar = jar }
}

// WithBaseURL resolves relative request URLs against base.
func WithBaseURL(base string) Option {
	return func(p *pipeline) {
		u, err := url.Parse(base)
		if err != nil || checkURL(u) != nil {
			p.optErr = NewMalformedRequestError("invalid base url "+base, err)
			return
		}
		p.base = u
	}
}

// WithDefaultHeaders adds each field of h to requests that lack it.
func WithDefaultHeaders(h Header) Option {
	return func(p *pipeline) { p.headers.Merge(h) }
}

// WithAuth applies a to requests that carry no Authorization header.
func WithAuth(a *AuthConfig) Option {
	return func(p *pipeline) { p.auth = a }
}

// WithRequestID sets a random X-Request-Id on requests that lack one.
func WithRequestID() Option {
	return func(p *pipeline) { p.requestID = true }
}

// WithRateLimit paces exchanges through rl.
func WithRateLimit(rl *resilience.RateLimiter) Option {
	return func(p *pipeline) { p.limiter = rl }
}

// WithCircuitBreaker fails exchanges fast while cb is open. Transport and
// protocol errors count as failures.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(p *pipeline) { p.breaker = cb }
}

// WithTap registers fn to see every successful response after cookies have
// been stored. fn must not consume the body.
func WithTap(fn func(*Response)) Option {
	return func(p *pipeline) { p.taps = append(p.taps, fn) }
}

// WithObserver registers an exchange observer.
func WithObserver(o Observer) Option {
	return func(p *pipeline) { p.observers = append(p.observers, o) }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *pipeline) { p.log = l }
}

// WithDefaultTimeout sets the timeout of requests that carry none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(p *pipeline) { p.timeout = d }
}
