package worker

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ClientIdleTTL is how long a client's bucket is kept after its last request
const ClientIdleTTL = 10 * time.Minute

// Limiter rate limits requests per client key (typically the client IP).
// Buckets of idle clients expire, so the set of tracked clients stays bounded
// by recent traffic.
type Limiter struct {
	clients      *gocache.Cache
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	return newLimiter(requestsPerSecond, burst, ClientIdleTTL)
}

func newLimiter(requestsPerSecond float64, burst int, idle time.Duration) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		clients:      gocache.New(idle, 2*idle),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(client string) bool {
	return l.getLimiter(client).Allow()
}

// getLimiter returns the rate limiter for a client and extends its idle expiry
func (l *Limiter) getLimiter(client string) *rate.Limiter {
	if v, ok := l.clients.Get(client); ok {
		limiter := v.(*rate.Limiter)
		l.clients.SetDefault(client, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	if err := l.clients.Add(client, limiter, gocache.DefaultExpiration); err != nil {
		// registered concurrently
		if v, ok := l.clients.Get(client); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}
