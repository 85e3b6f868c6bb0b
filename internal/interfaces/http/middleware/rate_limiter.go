package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter хранит limiter на каждый IP клиента
type IPRateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

// NewIPRateLimiter создает limiter на perMinute запросов в минуту с IP.
// burst по умолчанию равен perMinute.
func NewIPRateLimiter(perMinute int, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idleTTL:  5 * time.Minute,
		now:      time.Now,
	}
}

// Allow расходует один токен лимита для ip
func (i *IPRateLimiter) Allow(ip string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	v, exists := i.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(i.rps, i.burst)}
		i.visitors[ip] = v
	}
	v.lastSeen = i.now()

	return v.limiter.Allow()
}

// Run периодически удаляет limiters неактивных клиентов до отмены ctx
func (i *IPRateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(i.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			i.cleanup()
		}
	}
}

func (i *IPRateLimiter) cleanup() {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-i.idleTTL)
	for ip, v := range i.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(i.visitors, ip)
		}
	}
}

func (i *IPRateLimiter) size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.visitors)
}

// RateLimit ограничивает запросы по IP клиента.
// IP берется из RemoteAddr, который уже переписан chi RealIP.
func RateLimit(limiter *IPRateLimiter, dropped prometheus.Counter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				if dropped != nil {
					dropped.Inc()
				}
				w.Header().Set("Retry-After", "60")
				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error": "Rate limit exceeded. Please try again later.",
					"type":  "rate_limited",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
