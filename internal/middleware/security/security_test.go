package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name  string
		build func() *http.Request
		want  bool
	}{
		{
			name:  "plain api call",
			build: func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/accounts/flat-1/expenses", nil) },
		},
		{
			name:  "path traversal",
			build: func() *http.Request { return httptest.NewRequest(http.MethodGet, "/static/../.env", nil) },
			want:  true,
		},
		{
			name:  "plus-encoded query passes",
			build: func() *http.Request { return httptest.NewRequest(http.MethodGet, "/x?q=1+UNION+SELECT", nil) },
			want:  false,
		},
		{
			name: "scanner user agent",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.Header.Set("User-Agent", "sqlmap/1.7")
				return r
			},
			want: true,
		},
		{
			name:  "trace method",
			build: func() *http.Request { return httptest.NewRequest("TRACE", "/", nil) },
			want:  true,
		},
		{
			name:  "very long url",
			build: func() *http.Request { return httptest.NewRequest(http.MethodGet, "/"+strings.Repeat("a", 2100), nil) },
			want:  true,
		},
	}

	d := NewDetector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.DetectSuspiciousRequest(tt.build()); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectorMiddleware(t *testing.T) {
	d := NewDetector(nil)
	called := 0
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("TRACE", "/", nil))
	if rr.Code != http.StatusMethodNotAllowed || called != 0 {
		t.Errorf("TRACE: status %d, handler called %d times", rr.Code, called)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if called != 1 {
		t.Error("suspicious paths are logged, not blocked")
	}
	if d.SuspiciousRequests() != 2 {
		t.Errorf("SuspiciousRequests() = %d", d.SuspiciousRequests())
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{"direct client", "203.0.113.9:5555", "", "", "203.0.113.9"},
		{"untrusted peer cannot forward", "203.0.113.9:5555", "1.1.1.1", "", "203.0.113.9"},
		{"trusted proxy forwards first hop", "10.0.0.2:80", "198.51.100.7, 10.0.0.1", "", "198.51.100.7"},
		{"trusted proxy real ip", "127.0.0.1:80", "", "198.51.100.8", "198.51.100.8"},
		{"garbage forwarded header", "10.0.0.2:80", "not-an-ip", "", "10.0.0.2"},
	}
	d := NewDetector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing basic headers: %v", rr.Header())
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}
