package util

import (
	"net/http"
	"net/url"
	"strings"
)

// Proxy holds explicit proxy endpoints for calls to the generation service
type Proxy struct {
	HTTP    string
	HTTPS   string
	NoProxy string // Comma-separated hosts or .domain suffixes that bypass the proxy
}

// Enabled reports whether any explicit endpoint is set
func (p Proxy) Enabled() bool {
	return p.HTTP != "" || p.HTTPS != ""
}

// Func returns the transport proxy selector.
// With no explicit endpoints the HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment applies.
func (p Proxy) Func() func(*http.Request) (*url.URL, error) {
	if !p.Enabled() {
		return http.ProxyFromEnvironment
	}

	bypass := splitHosts(p.NoProxy)
	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		target := p.HTTP
		if req.URL.Scheme == "https" && p.HTTPS != "" {
			target = p.HTTPS
		}
		if target == "" {
			return http.ProxyFromEnvironment(req)
		}
		return url.Parse(target)
	}
}

func splitHosts(list string) []string {
	var hosts []string
	for _, h := range strings.Split(list, ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func bypassed(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		if b == "*" || host == b || host == strings.TrimPrefix(b, ".") {
			return true
		}
		suffix := b
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
