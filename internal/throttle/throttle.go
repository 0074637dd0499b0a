// Package throttle limits how often one client may call an endpoint. Each
// client IP gets its own token bucket; buckets idle for longer than the
// eviction window are dropped.
package throttle

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/patric-chuzhbe/ytsummarizer/internal/apperrors"
	"github.com/patric-chuzhbe/ytsummarizer/internal/logger"
	"github.com/patric-chuzhbe/ytsummarizer/internal/models"
)

const idleEviction = 10 * time.Minute

type clientIPResolver interface {
	GetClientIP(request *http.Request) (net.IP, error)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle keeps one limiter per client.
type Throttle struct {
	resolver clientIPResolver
	limit    rate.Limit
	burst    int

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

// New creates a Throttle allowing requestsPerMinute with the given burst.
// A non-positive rate disables throttling.
func New(resolver clientIPResolver, requestsPerMinute, burst int) *Throttle {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60)
	}

	return &Throttle{
		resolver:  resolver,
		limit:     limit,
		burst:     burst,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow takes a token from the bucket of key.
func (t *Throttle) Allow(key string) bool {
	if t.limit == rate.Inf {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[key] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1)
}

// Middleware answers 429 once the client has used up its bucket.
func (t *Throttle) Middleware(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		key := request.RemoteAddr
		if ip, err := t.resolver.GetClientIP(request); err == nil && ip != nil {
			key = ip.String()
		}

		if !t.Allow(key) {
			logger.Log.Infow("Request throttled", "client", key, "uri", request.RequestURI)
			writeThrottled(response)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

func (t *Throttle) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < idleEviction {
		return
	}
	for key, b := range t.buckets {
		if now.Sub(b.lastSeen) >= idleEviction {
			delete(t.buckets, key)
		}
	}
	t.lastSweep = now
}

func writeThrottled(response http.ResponseWriter) {
	response.Header().Set("Content-Type", "application/json")
	response.Header().Set("Retry-After", "60")
	response.WriteHeader(apperrors.KindThrottled.Status())
	err := json.NewEncoder(response).Encode(models.ErrorResponse{Error: apperrors.KindThrottled.DefaultMessage()})
	if err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}
