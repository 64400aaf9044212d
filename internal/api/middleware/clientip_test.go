package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP_UntrustedPeerIgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Real-IP", "198.51.100.7")
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	assert.Equal(t, "192.0.2.1", TrustedProxies(nil).ClientIP(req))
	assert.Equal(t, "192.0.2.1", ByIP(req))
}

func TestClientIP_TrustedProxy(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"first untrusted hop from the right", "10.1.1.1:443", "198.51.100.9, 203.0.113.5, 10.0.0.7", "", "203.0.113.5"},
		{"all hops trusted", "10.1.1.1:443", "10.0.0.8, 10.0.0.7", "", "10.0.0.8"},
		{"real ip header", "192.0.2.1:80", "", "198.51.100.7", "198.51.100.7"},
		{"no headers", "192.0.2.1:80", "", "", "192.0.2.1"},
		{"untrusted peer", "203.0.113.99:80", "198.51.100.1", "", "203.0.113.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, proxies.ClientIP(req))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{" 10.0.0.0/8 ", "", "::1"})
	require.NoError(t, err)
	assert.Len(t, proxies, 2)

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestRateLimit_SpoofedForwardedForSharesBucket(t *testing.T) {
	handler := RateLimit(2, 60, ByIP)(okHandler())

	codes := make([]int, 0, 3)
	for _, spoof := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "203.0.113.50:5555"
		req.Header.Set("X-Forwarded-For", spoof)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
