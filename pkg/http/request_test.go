package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustConfig(t *testing.T, proxies ...string) *pkghttp.IPConfig {
	t.Helper()
	cfg, err := pkghttp.NewIPConfig(proxies)
	require.NoError(t, err)
	return cfg
}

func TestExtractClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	ip := pkghttp.ExtractClientIP(req, mustConfig(t, "10.0.0.0/8", "127.0.0.1"))

	assert.Equal(t, "203.0.113.10", ip)
}

func TestExtractClientIP_TrustedProxy_UsesRightmostUntrustedHop(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	// The client prepended a fake entry; the proxy appended the real peer
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 203.0.113.42, 10.0.0.7")

	ip := pkghttp.ExtractClientIP(req, mustConfig(t, "10.0.0.0/8"))

	assert.Equal(t, "203.0.113.42", ip)
}

func TestExtractClientIP_TrustedProxy_FallsBackToXRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Real-IP", "198.51.100.7")

	ip := pkghttp.ExtractClientIP(req, mustConfig(t, "10.0.0.0/8"))

	assert.Equal(t, "198.51.100.7", ip)
}

func TestExtractClientIP_IPv6_TrustedProxy(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	req.Header.Set("X-Forwarded-For", "2001:db8:ffff::42")

	ip := pkghttp.ExtractClientIP(req, mustConfig(t, "2001:db8::/64"))

	assert.Equal(t, "2001:db8:ffff::42", ip)
}

func TestExtractClientIP_NilConfig(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "10.0.0.5", pkghttp.ExtractClientIP(req, nil))
}

func TestExtractClientIP_UnparseableRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = ""
	assert.Equal(t, "unknown", pkghttp.ExtractClientIP(req, nil))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", pkghttp.ExtractClientIP(req, nil))
}

func TestNewIPConfig_RejectsGarbage(t *testing.T) {
	_, err := pkghttp.NewIPConfig([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	_, err = pkghttp.NewIPConfig([]string{"proxy.internal"})
	assert.Error(t, err)
}
