// Package ipchecker provides utilities for extracting and validating
// client IP addresses from HTTP requests. It guards the internal endpoints
// with a trusted subnet and gives the inbound throttle its client key.
package ipchecker

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/ytsummarizer/internal/apperrors"
	"github.com/patric-chuzhbe/ytsummarizer/internal/logger"
	"github.com/patric-chuzhbe/ytsummarizer/internal/models"
)

// IPChecker is responsible for extracting a client's IP address from
// an HTTP request and validating whether it belongs to a trusted subnet.
type IPChecker struct {
	trustedSubnet     *net.IPNet
	trustProxyHeaders bool
}

// Option configures an IPChecker.
type Option func(*IPChecker)

// WithProxyHeaders makes GetClientIP honor the X-Real-IP and X-Forwarded-For
// headers. Enable it only when the service sits behind a proxy that
// overwrites them, otherwise any client can pick its own address.
func WithProxyHeaders(trust bool) Option {
	return func(checker *IPChecker) {
		checker.trustProxyHeaders = trust
	}
}

// New creates a new IPChecker instance configured with a trusted subnet.
// If the input trustedSubnet is an empty string, the IPChecker will be
// initialized in a disabled state - so the IsTrustedSubnetEmpty will return true
//
// The trustedSubnet must be in CIDR notation (e.g., "192.168.1.0/24").
// Returns an error if the CIDR string cannot be parsed.
func New(trustedSubnet string, options ...Option) (*IPChecker, error) {
	checker := &IPChecker{}
	for _, option := range options {
		option(checker)
	}

	if trustedSubnet == "" {
		return checker, nil
	}
	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
	}
	checker.trustedSubnet = allowedNet

	return checker, nil
}

// Check verifies whether the given IP address belongs to the configured
// trusted subnet. If no trusted subnet is configured, it returns false.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP extracts the client's IP address from an HTTP request.
// With proxy headers trusted it checks, in order, the "X-Real-IP" header,
// the "X-Forwarded-For" header and the request's RemoteAddr field.
// Otherwise only RemoteAddr is used.
//
// Returns the parsed IP address or an error if extraction fails.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if checker.trustProxyHeaders {
		if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
			return ip, nil
		}
		if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(ips[0])); ip != nil {
				return ip, nil
			}
		}
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/GetClientIP(): error while `net.SplitHostPort()` calling: %w", err)
	}
	return net.ParseIP(host), nil
}

// IsTrustedSubnetEmpty returns true if the IPChecker was initialized
// without a trusted subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// TrustedSubnetOnly is an HTTP middleware that answers 403 unless the client
// IP belongs to the trusted subnet. With no subnet configured every request
// is refused.
func (checker *IPChecker) TrustedSubnetOnly(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if checker.IsTrustedSubnetEmpty() {
			writeForbidden(response)
			return
		}

		clientIP, err := checker.GetClientIP(request)
		if err != nil {
			logger.Log.Debugln("Error calling the `checker.GetClientIP()`: ", zap.Error(err))
			writeForbidden(response)
			return
		}

		if !checker.Check(clientIP) {
			writeForbidden(response)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

func writeForbidden(response http.ResponseWriter) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(apperrors.KindForbidden.Status())
	err := json.NewEncoder(response).Encode(models.ErrorResponse{Error: apperrors.KindForbidden.DefaultMessage()})
	if err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}
