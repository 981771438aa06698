package cookiejar

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Policy decides which Domain attributes a response may set.
type Policy int

const (
	// PolicySimple accepts a Domain attribute when the request host
	// domain-matches it and it is not a bare single label.
	PolicySimple Policy = iota
	// PolicyPublicSuffix additionally rejects public suffixes such as
	// "co.uk" using the public suffix list.
	PolicyPublicSuffix
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicySimple:
		return "simple"
	case PolicyPublicSuffix:
		return "public_suffix"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration value to a Policy. Empty means simple.
func ParsePolicy(s string) (Policy, bool) {
	switch strings.ToLower(s) {
	case "", "simple":
		return PolicySimple, true
	case "public_suffix", "publicsuffix", "psl":
		return PolicyPublicSuffix, true
	default:
		return PolicySimple, false
	}
}

// cookieDomain resolves the stored domain and host-only flag for a cookie
// received from host with the given Domain attribute.
func (p Policy) cookieDomain(host, attr string) (domain string, hostOnly bool, err error) {
	attr = strings.TrimSuffix(strings.TrimPrefix(strings.ToLower(attr), "."), ".")
	if attr == "" {
		return host, true, nil
	}
	if attr == host {
		// A Domain equal to the host still widens to subdomains unless the
		// host is an IP or a public suffix.
		if isIP(host) || !strings.Contains(host, ".") {
			return host, true, nil
		}
		if p == PolicyPublicSuffix && isPublicSuffix(attr) {
			return host, true, nil
		}
		return attr, false, nil
	}
	if isIP(host) || !strings.Contains(attr, ".") || !domainMatch(host, attr) {
		return "", false, errDomainRejected
	}
	if p == PolicyPublicSuffix && isPublicSuffix(attr) {
		return "", false, errDomainRejected
	}
	return attr, false, nil
}

func isPublicSuffix(domain string) bool {
	ps, _ := publicsuffix.PublicSuffix(domain)
	return ps == domain
}
