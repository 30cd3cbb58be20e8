package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestRealIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{
			name:       "no trusted proxies leaves remote",
			remoteAddr: "10.0.0.1:4000",
			forwarded:  "203.0.113.9",
			want:       "10.0.0.1:4000",
		},
		{
			name:       "untrusted peer cannot spoof",
			trusted:    trusted,
			remoteAddr: "198.51.100.10:4000",
			forwarded:  "203.0.113.9",
			want:       "198.51.100.10:4000",
		},
		{
			name:       "trusted peer forwards client",
			trusted:    trusted,
			remoteAddr: "10.0.0.1:4000",
			forwarded:  "203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "rightmost untrusted hop wins",
			trusted:    trusted,
			remoteAddr: "10.0.0.1:4000",
			forwarded:  "1.2.3.4, 203.0.113.9, 10.0.0.2",
			want:       "203.0.113.9",
		},
		{
			name:       "garbage hop keeps peer",
			trusted:    trusted,
			remoteAddr: "10.0.0.1:4000",
			forwarded:  "203.0.113.9, nonsense",
			want:       "10.0.0.1:4000",
		},
		{
			name:       "x-real-ip from trusted peer",
			trusted:    trusted,
			remoteAddr: "10.0.0.1:4000",
			realIP:     "203.0.113.5",
			want:       "203.0.113.5",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			handler := RealIP(tc.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("RemoteAddr = %q, want %q", got, tc.want)
			}
		})
	}
}
