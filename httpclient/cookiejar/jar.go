// Package cookiejar stores cookies received in Set-Cookie headers and
// replays them on later requests to matching URLs.
//
// A Jar implements httpclient.CookieJar and net/http's http.CookieJar. Jars
// are independent: there is no package-level state.
//
//	jar := cookiejar.New()
//	client := httpclient.NewClient(exec, httpclient.WithCookieJar(jar))
package cookiejar

import (
	"cmp"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/logger"
)

type bucketKey struct {
	domain string
	path   string
}

// Jar is a concurrency-safe in-memory cookie store.
type Jar struct {
	mu      sync.RWMutex
	buckets map[bucketKey]map[string]*Cookie

	now    func() time.Time
	policy Policy
	log    *logger.Logger
}

// Option configures a Jar.
type Option func(*Jar)

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(j *Jar) {
		if now != nil {
			j.now = now
		}
	}
}

// WithPolicy sets the domain acceptance policy.
func WithPolicy(p Policy) Option {
	return func(j *Jar) { j.policy = p }
}

// WithLogger sets the logger used for dropped cookies.
func WithLogger(l *logger.Logger) Option {
	return func(j *Jar) {
		if l != nil {
			j.log = l
		}
	}
}

// New creates an empty jar.
func New(opts ...Option) *Jar {
	j := &Jar{
		buckets: make(map[bucketKey]map[string]*Cookie),
		now:     time.Now,
		policy:  PolicySimple,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.log == nil {
		j.log = logger.Get("cookiejar")
	}
	return j
}

var (
	_ httpclient.CookieJar = (*Jar)(nil)
	_ http.CookieJar       = (*Jar)(nil)
)

// StoreResponse parses every Set-Cookie line received from u and stores the
// accepted cookies. Malformed lines are logged and dropped.
func (j *Jar) StoreResponse(u *url.URL, setCookies []string) {
	if u == nil || len(setCookies) == 0 {
		return
	}
	parsed := make([]*http.Cookie, 0, len(setCookies))
	for _, line := range setCookies {
		c, err := http.ParseSetCookie(line)
		if err != nil {
			perr := httpclient.NewCookieParseError(line, err)
			j.log.Warn("dropping malformed Set-Cookie", logger.Fields(
				logger.FieldDomain, u.Hostname(),
				logger.FieldError, perr.Error(),
			))
			continue
		}
		parsed = append(parsed, c)
	}
	j.SetCookies(u, parsed)
}

// SetCookies stores cookies as if received from u.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if u == nil || !isCookieScheme(u.Scheme) {
		return
	}
	host := canonicalHost(u)
	if host == "" {
		return
	}
	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, hc := range cookies {
		j.setLocked(u, host, hc, now)
	}
	j.purgeLocked(now)
}

func (j *Jar) setLocked(u *url.URL, host string, hc *http.Cookie, now time.Time) {
	if hc == nil || hc.Name == "" {
		return
	}
	domain, hostOnly, err := j.policy.cookieDomain(host, hc.Domain)
	if err != nil {
		j.log.Debug("rejecting cookie domain", logger.Fields(
			logger.FieldCookie, hc.Name,
			logger.FieldDomain, hc.Domain,
			"host", host,
		))
		return
	}
	path := hc.Path
	if path == "" || path[0] != '/' {
		path = defaultPath(u)
	}

	c := &Cookie{
		Name:       hc.Name,
		Value:      hc.Value,
		Domain:     domain,
		Path:       path,
		Secure:     hc.Secure,
		HttpOnly:   hc.HttpOnly,
		HostOnly:   hostOnly,
		SameSite:   sameSiteName(hc.SameSite),
		Created:    now,
		LastAccess: now,
	}
	switch {
	case hc.MaxAge < 0:
		j.deleteLocked(c.key(), c.Name)
		return
	case hc.MaxAge > 0:
		c.Persistent = true
		c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
	case !hc.Expires.IsZero():
		if !hc.Expires.After(now) {
			j.deleteLocked(c.key(), c.Name)
			return
		}
		c.Persistent = true
		c.Expires = hc.Expires
	}
	j.putLocked(c)
}

// putLocked inserts or overwrites c, keeping the creation time of the cookie
// it replaces.
func (j *Jar) putLocked(c *Cookie) {
	k := c.key()
	bucket := j.buckets[k]
	if bucket == nil {
		bucket = make(map[string]*Cookie)
		j.buckets[k] = bucket
	}
	if old, ok := bucket[c.Name]; ok {
		c.Created = old.Created
	}
	bucket[c.Name] = c
}

func (j *Jar) deleteLocked(k bucketKey, name string) bool {
	bucket := j.buckets[k]
	if _, ok := bucket[name]; !ok {
		return false
	}
	delete(bucket, name)
	if len(bucket) == 0 {
		delete(j.buckets, k)
	}
	return true
}

func (j *Jar) purgeLocked(now time.Time) int {
	n := 0
	for k, bucket := range j.buckets {
		for name, c := range bucket {
			if c.Expired(now) {
				delete(bucket, name)
				n++
			}
		}
		if len(bucket) == 0 {
			delete(j.buckets, k)
		}
	}
	return n
}

// matchLocked returns the cookies sent to u in header order.
func (j *Jar) matchLocked(u *url.URL, now time.Time) []*Cookie {
	if u == nil || !isCookieScheme(u.Scheme) {
		return nil
	}
	host := canonicalHost(u)
	if host == "" {
		return nil
	}
	path := requestPath(u)
	secure := isSecureScheme(u.Scheme)

	var out []*Cookie
	for _, bucket := range j.buckets {
		for _, c := range bucket {
			if !c.Expired(now) && c.matches(host, path, secure) {
				out = append(out, c)
			}
		}
	}
	slices.SortFunc(out, func(a, b *Cookie) int {
		if n := cmp.Compare(len(b.Path), len(a.Path)); n != 0 {
			return n
		}
		if n := a.Created.Compare(b.Created); n != 0 {
			return n
		}
		if n := cmp.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return cmp.Compare(a.Domain, b.Domain)
	})
	return out
}

// CookieHeader returns the Cookie header value for u, or "" when nothing
// matches.
func (j *Jar) CookieHeader(u *url.URL) string {
	now := j.now()
	j.mu.RLock()
	matched := j.matchLocked(u, now)
	parts := make([]string, len(matched))
	keys := make([]bucketKey, len(matched))
	for i, c := range matched {
		parts[i] = c.String()
		keys[i] = c.key()
	}
	j.mu.RUnlock()
	if len(parts) == 0 {
		return ""
	}

	j.mu.Lock()
	for i, c := range matched {
		if cur, ok := j.buckets[keys[i]][c.Name]; ok && cur == c {
			cur.LastAccess = now
		}
	}
	j.mu.Unlock()
	return strings.Join(parts, "; ")
}

// Cookies returns the cookies that would be sent to u, in header order.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	matched := j.matchLocked(u, j.now())
	out := make([]*http.Cookie, len(matched))
	for i, c := range matched {
		out[i] = &http.Cookie{Name: c.Name, Value: c.Value}
	}
	return out
}

// All returns a copy of every unexpired cookie ordered by domain, path and
// name.
func (j *Jar) All() []Cookie {
	now := j.now()
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Cookie, 0, len(j.buckets))
	for _, bucket := range j.buckets {
		for _, c := range bucket {
			if !c.Expired(now) {
				out = append(out, *c)
			}
		}
	}
	slices.SortFunc(out, func(a, b Cookie) int {
		return cmp.Or(
			cmp.Compare(a.Domain, b.Domain),
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return out
}

// Len returns the number of unexpired cookies.
func (j *Jar) Len() int {
	now := j.now()
	j.mu.RLock()
	defer j.mu.RUnlock()
	n := 0
	for _, bucket := range j.buckets {
		for _, c := range bucket {
			if !c.Expired(now) {
				n++
			}
		}
	}
	return n
}

// Remove deletes the cookie identified by domain, path and name. It reports
// whether a cookie was removed.
func (j *Jar) Remove(domain, path, name string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	ok := j.deleteLocked(bucketKey{domain: strings.ToLower(domain), path: path}, name)
	j.purgeLocked(j.now())
	return ok
}

// Clear removes every cookie.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	clear(j.buckets)
}

// Purge removes expired cookies and returns how many were removed.
func (j *Jar) Purge() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.purgeLocked(j.now())
}
