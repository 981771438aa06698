package cookiejar

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

var errDomainRejected = errors.New("domain attribute rejected")

// Cookie is one stored cookie.
type Cookie struct {
	Name       string    `json:"name"`
	Value      string    `json:"value"`
	Domain     string    `json:"domain"`
	Path       string    `json:"path"`
	Expires    time.Time `json:"expires,omitzero"`
	Persistent bool      `json:"persistent"`
	Secure     bool      `json:"secure,omitempty"`
	HttpOnly   bool      `json:"http_only,omitempty"`
	HostOnly   bool      `json:"host_only,omitempty"`
	SameSite   string    `json:"same_site,omitempty"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access"`
}

// Expired reports whether the cookie has expired at now. Session cookies
// never expire.
func (c *Cookie) Expired(now time.Time) bool {
	return c.Persistent && !c.Expires.After(now)
}

// String returns the name=value pair sent in a Cookie header.
func (c *Cookie) String() string {
	return c.Name + "=" + c.Value
}

// HTTPCookie converts the record to a net/http cookie.
func (c *Cookie) HTTPCookie() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		Expires:  c.Expires,
	}
	if !c.HostOnly {
		hc.Domain = c.Domain
	}
	return hc
}

func (c *Cookie) key() bucketKey {
	return bucketKey{domain: c.Domain, path: c.Path}
}

// matches reports whether the cookie is sent to host/path over a secure or
// plain channel.
func (c *Cookie) matches(host, path string, secure bool) bool {
	if c.Secure && !secure {
		return false
	}
	if c.HostOnly {
		if host != c.Domain {
			return false
		}
	} else if !domainMatch(host, c.Domain) {
		return false
	}
	return pathMatch(path, c.Path)
}

// canonicalHost returns the lower-case ASCII host of u without port or
// trailing dot.
func canonicalHost(u *url.URL) string {
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" || isIP(host) {
		return host
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

func isIP(host string) bool {
	return net.ParseIP(host) != nil
}

// domainMatch implements RFC 6265 section 5.1.3.
func domainMatch(host, domain string) bool {
	if host == domain {
		return true
	}
	return !isIP(host) && strings.HasSuffix(host, "."+domain)
}

// pathMatch implements RFC 6265 section 5.1.4.
func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

// requestPath returns the path of u used for matching, "/" when empty.
func requestPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" || p[0] != '/' {
		return "/"
	}
	return p
}

// defaultPath implements RFC 6265 section 5.1.4 default-path.
func defaultPath(u *url.URL) string {
	p := requestPath(u)
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

func isSecureScheme(scheme string) bool {
	return scheme == "https" || scheme == "wss"
}

func isCookieScheme(scheme string) bool {
	switch scheme {
	case "http", "https", "ws", "wss":
		return true
	}
	return false
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return ""
	}
}
