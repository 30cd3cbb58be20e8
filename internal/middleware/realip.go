package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP rewrites RemoteAddr from X-Forwarded-For or X-Real-IP, but only when
// the direct peer is one of the trusted proxies. The rightmost untrusted hop
// in X-Forwarded-For wins; entries further left are caller-controlled.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(trusted) > 0 {
				peer, ok := remoteAddr(r.RemoteAddr)
				if ok && isTrusted(peer, trusted) {
					if client, ok := forwardedClient(r, trusted); ok {
						r.RemoteAddr = client.String()
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	if xf := r.Header.Values("X-Forwarded-For"); len(xf) > 0 {
		hops := strings.Split(strings.Join(xf, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				return netip.Addr{}, false
			}
			addr = addr.Unmap()
			if !isTrusted(addr, trusted) {
				return addr, true
			}
		}
		return netip.Addr{}, false
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func remoteAddr(raw string) (netip.Addr, bool) {
	host := raw
	if h, _, err := net.SplitHostPort(raw); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
