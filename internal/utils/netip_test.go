package utils

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

func TestParseHostNoPort(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"10.0.0.1:1234":   "10.0.0.1",
		"10.0.0.1":        "10.0.0.1",
		"[::1]:8080":      "::1",
		"[2001:db8::1]":   "2001:db8::1",
		"example.com:443": "example.com",
	}
	for in, want := range tests {
		if got := ParseHostNoPort(in); got != want {
			t.Errorf("ParseHostNoPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		trustProxy bool
		expected   string
	}{
		{
			name:     "remote addr only",
			expected: "192.0.2.1",
		},
		{
			name:     "proxy headers ignored when untrusted",
			headers:  map[string]string{"X-Forwarded-For": "203.0.113.9"},
			expected: "192.0.2.1",
		},
		{
			name:       "cloudflare header wins",
			headers:    map[string]string{"CF-Connecting-IP": "198.51.100.7", "X-Forwarded-For": "203.0.113.9"},
			trustProxy: true,
			expected:   "198.51.100.7",
		},
		{
			name:       "left-most forwarded for",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.9 , 10.0.0.1"},
			trustProxy: true,
			expected:   "203.0.113.9",
		},
		{
			name:       "real ip fallback",
			headers:    map[string]string{"X-Real-IP": "203.0.113.10"},
			trustProxy: true,
			expected:   "203.0.113.10",
		},
		{
			name:       "trusted without headers",
			trustProxy: true,
			expected:   "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = "192.0.2.1:5555"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.expected {
				t.Errorf("ClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.0.2.1 ", "2001:db8::/32", "garbage", ""})

	if m.IsEmpty() {
		t.Fatal("matcher should not be empty")
	}

	tests := map[string]bool{
		"10.1.2.3":         true,
		"11.0.0.1":         false,
		"192.0.2.1":        true,
		"192.0.2.2":        false,
		"::ffff:192.0.2.1": true,
		"2001:db8::42":     true,
		"2001:db9::1":      false,
		"not-an-ip":        false,
	}
	for ip, want := range tests {
		if got := m.Allow(ip); got != want {
			t.Errorf("Allow(%q) = %v, want %v", ip, got, want)
		}
	}
}

func TestEmptyIPMatcher(t *testing.T) {
	if !NewIPMatcher([]string{" ", "nope"}).IsEmpty() {
		t.Error("matcher built from invalid entries should be empty")
	}
}

type failingCloser struct{ closed bool }

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("boom")
}

func TestMustCloseClosesEvenOnError(t *testing.T) {
	c := &failingCloser{}
	MustClose(c, logger.New("error", false))
	if !c.closed {
		t.Error("MustClose() did not close")
	}
}
