package security

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.0.2.10"})
	if err != nil {
		t.Fatalf("NewClientIPResolver: %v", err)
	}

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"direct peer", nil, "192.0.2.1:43210", "192.0.2.1"},
		{"untrusted peer cannot forward", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "198.51.100.9:5000", "198.51.100.9"},
		{"untrusted peer cannot set real ip", map[string]string{"X-Real-IP": "203.0.113.7"}, "198.51.100.9:5000", "198.51.100.9"},
		{"trusted proxy", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "10.0.0.2:5000", "203.0.113.7"},
		{"spoofed prefix ignored", map[string]string{"X-Forwarded-For": "1.1.1.1, 203.0.113.7, 10.0.0.5"}, "10.0.0.2:5000", "203.0.113.7"},
		{"single trusted address", map[string]string{"X-Real-IP": "198.51.100.4"}, "192.0.2.10:443", "198.51.100.4"},
		{"garbage hop", map[string]string{"X-Forwarded-For": "not-an-ip, 10.0.0.5"}, "10.0.0.2:5000", "10.0.0.5"},
		{"no port", nil, "192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := resolver.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNilResolverIgnoresForwardingHeaders(t *testing.T) {
	var resolver *ClientIPResolver
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")

	if got := resolver.ClientIP(r); got != "192.0.2.1" {
		t.Errorf("ClientIP() = %q, want 192.0.2.1", got)
	}
}

func TestNewClientIPResolverRejectsBadEntries(t *testing.T) {
	for _, entry := range []string{"10.0.0.0/33", "proxy.local", ""} {
		if _, err := NewClientIPResolver([]string{entry}); err == nil {
			t.Errorf("expected error for %q", entry)
		}
	}
}
