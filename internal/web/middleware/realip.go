package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// TrustedRealIP rewrites RemoteAddr from X-Real-IP or X-Forwarded-For,
// but only when the connection itself comes from one of the given proxy
// networks. Requests from anywhere else keep their socket address, so a
// client cannot spoof its way past per-IP rate limiting.
//
// Entries may be CIDRs ("10.0.0.0/8") or single addresses ("127.0.0.1").
func TrustedRealIP(trustedProxies []string) func(http.Handler) http.Handler {
	proxies := parseProxyList(trustedProxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if connIP := ipFromAddr(r.RemoteAddr); connIP != nil && proxies.contains(connIP) {
				if ip := forwardedClientIP(r); ip != nil {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// proxyList is the parsed set of trusted proxy networks.
type proxyList []*net.IPNet

func parseProxyList(entries []string) proxyList {
	var proxies proxyList
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			proxies = append(proxies, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			slog.Warn("ignoring invalid trusted proxy entry", "entry", entry)
			continue
		}
		// A bare address counts as a single-host network.
		mask := net.CIDRMask(128, 128)
		if ip.To4() != nil {
			mask = net.CIDRMask(32, 32)
		}
		proxies = append(proxies, &net.IPNet{IP: ip, Mask: mask})
	}
	return proxies
}

func (p proxyList) contains(ip net.IP) bool {
	for _, network := range p {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// forwardedClientIP returns the client address the proxy asserts:
// X-Real-IP when the header is present, otherwise the first hop of
// X-Forwarded-For. An unparseable value yields nil and no rewrite; a
// present but bogus X-Real-IP does not fall through to X-Forwarded-For.
func forwardedClientIP(r *http.Request) net.IP {
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return net.ParseIP(rip)
	}
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return nil
	}
	first := xff
	if idx := strings.IndexByte(xff, ','); idx >= 0 {
		first = xff[:idx]
	}
	return net.ParseIP(strings.TrimSpace(first))
}

// ipFromAddr parses addr as either host:port or a bare address.
func ipFromAddr(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}
