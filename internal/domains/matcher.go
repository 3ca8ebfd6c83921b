package domains

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

// PatternDelimiter separates entries in a widget's stored allow-list string.
const PatternDelimiter = "|||"

// Matcher decides whether a request origin is authorized for a widget's
// allowed-domain patterns.
//
// Rules, per pattern, in priority order:
//  1. "localhost" matches host "localhost".
//  2. "localhost" matches private/loopback IPv4 hosts outside production.
//  3. Globally configured development domains match any pattern list.
//  4. A pattern that is itself a URL is reduced to its hostname.
//  5. "*.domain.com" matches "domain.com" and any subdomain of it.
//  6. "*.domain.*" matches "domain" with any single-label TLD, optionally
//     with one subdomain level. Other wildcard shapes never match.
//  7. Exact and subdomain matches.
//
// An empty or missing allow-list denies everything. Matching is pure: no
// side effects, identical inputs yield identical results.
type Matcher struct {
	// DevDomains are deploy-wide development host patterns ("*.ngrok.io",
	// "vercel.app"). A "*.base" entry matches base and its subdomains;
	// anything else matches by substring containment.
	DevDomains []string

	// Production disables the private-IP localhost convenience.
	Production bool
}

// Authorized reports whether originURL may use a widget configured with
// allowList. Malformed origins deny; this never returns an error.
func (m Matcher) Authorized(originURL, allowList string) bool {
	host := hostnameOf(originURL)
	if host == "" {
		return false
	}

	patterns := ParsePatterns(allowList)
	if len(patterns) == 0 {
		return false
	}

	for _, p := range patterns {
		if m.matchPattern(host, p) {
			return true
		}
	}
	return false
}

// ParsePatterns splits a stored allow-list string into trimmed, non-empty
// domain patterns.
func ParsePatterns(allowList string) []string {
	parts := strings.Split(allowList, PatternDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (m Matcher) matchPattern(host, pattern string) bool {
	if pattern == "localhost" {
		if host == "localhost" {
			return true
		}
		if !m.Production && isPrivateIPv4(host) {
			return true
		}
	}

	if m.matchesDevDomain(host) {
		return true
	}

	// Patterns stored as full URLs are compared by hostname.
	if strings.Contains(pattern, "://") {
		if h := hostnameOf(pattern); h != "" {
			pattern = h
		}
	}

	if strings.Contains(pattern, "*") {
		return matchWildcard(host, pattern)
	}

	if host == pattern {
		return true
	}
	// Subdomain match: app.example.com matches pattern example.com.
	return strings.HasSuffix(host, "."+pattern)
}

func (m Matcher) matchesDevDomain(host string) bool {
	for _, d := range m.DevDomains {
		if d == "" {
			continue
		}
		if base, ok := strings.CutPrefix(d, "*."); ok {
			if host == base || strings.HasSuffix(host, "."+base) {
				return true
			}
			continue
		}
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

func matchWildcard(host, pattern string) bool {
	prefixed := strings.HasPrefix(pattern, "*.")
	suffixed := strings.HasSuffix(pattern, ".*")

	switch {
	case prefixed && suffixed:
		core := pattern[2 : len(pattern)-2]
		if core == "" || strings.Contains(core, "*") {
			return false
		}
		// "domain" with any single-label TLD, optionally one subdomain level.
		re, err := regexp.Compile(`^([^.]+\.)?` + regexp.QuoteMeta(core) + `\.[^.]+$`)
		if err != nil {
			return false
		}
		return re.MatchString(host)
	case prefixed:
		base := pattern[2:]
		if base == "" || strings.Contains(base, "*") {
			return false
		}
		return host == base || strings.HasSuffix(host, "."+base)
	default:
		// Unsupported wildcard shape.
		return false
	}
}

func hostnameOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func isPrivateIPv4(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return false
	}
	// 127.0.0.0/8, 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16
	return ip.IsLoopback() || ip.IsPrivate()
}
