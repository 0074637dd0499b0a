package ipchecker

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	checker, err := New("")
	require.NoError(t, err)
	assert.True(t, checker.IsTrustedSubnetEmpty())
	assert.False(t, checker.Check(net.ParseIP("127.0.0.1")))

	_, err = New("not-a-cidr")
	assert.Error(t, err)
}

func TestGetClientIP(t *testing.T) {
	checker, err := New("10.0.0.0/8", WithProxyHeaders(true))
	require.NoError(t, err)

	testCases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"real_ip", map[string]string{"X-Real-IP": "10.1.2.3"}, "192.0.2.1:1234", "10.1.2.3"},
		{"forwarded_for", map[string]string{"X-Forwarded-For": "10.9.9.9, 192.0.2.7"}, "192.0.2.1:1234", "10.9.9.9"},
		{"garbage_forwarded_for", map[string]string{"X-Forwarded-For": "unknown"}, "192.0.2.1:1234", "192.0.2.1"},
		{"remote_addr", nil, "192.0.2.1:1234", "192.0.2.1"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = testCase.remote
			for name, value := range testCase.headers {
				req.Header.Set(name, value)
			}

			ip, err := checker.GetClientIP(req)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, ip.String())
		})
	}
}

func TestGetClientIPIgnoresHeadersByDefault(t *testing.T) {
	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Real-IP", "10.1.2.3")
	req.Header.Set("X-Forwarded-For", "10.9.9.9")

	ip, err := checker.GetClientIP(req)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", ip.String())
}

func TestTrustedSubnetOnly(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	behindProxy, err := New("10.0.0.0/8", WithProxyHeaders(true))
	require.NoError(t, err)
	direct, err := New("10.0.0.0/8")
	require.NoError(t, err)
	disabled, err := New("", WithProxyHeaders(true))
	require.NoError(t, err)

	testCases := []struct {
		name    string
		checker *IPChecker
		remote  string
		realIP  string
		want    int
	}{
		{"inside_subnet", behindProxy, "192.0.2.1:1234", "10.0.0.5", http.StatusOK},
		{"outside_subnet", behindProxy, "192.0.2.1:1234", "192.0.2.5", http.StatusForbidden},
		{"no_subnet_configured", disabled, "192.0.2.1:1234", "10.0.0.5", http.StatusForbidden},
		{"direct_inside_subnet", direct, "10.0.0.5:1234", "", http.StatusOK},
		{"spoofed_header_without_proxy", direct, "192.0.2.1:1234", "10.0.0.5", http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
			req.RemoteAddr = testCase.remote
			if testCase.realIP != "" {
				req.Header.Set("X-Real-IP", testCase.realIP)
			}
			rec := httptest.NewRecorder()

			testCase.checker.TrustedSubnetOnly(next).ServeHTTP(rec, req)

			assert.Equal(t, testCase.want, rec.Code)
			if testCase.want == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"Access denied"}`, rec.Body.String())
			}
		})
	}
}
