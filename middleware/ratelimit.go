package middleware

import (
	"sync"

	"golang.org/x/time/rate"
)

// IPRateLimiter manages per-IP rate limiting
type IPRateLimiter struct {
	ips   map[string]*rate.Limiter
	mu    *sync.RWMutex
	rate  rate.Limit
	burst int
}

// NewIPRateLimiter creates a new per-IP rate limiter
func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:   make(map[string]*rate.Limiter),
		mu:    &sync.RWMutex{},
		rate:  r,
		burst: burst,
	}
}

// Burst returns the configured burst limit
func (i *IPRateLimiter) Burst() int {
	return i.burst
}

// AddIP creates a limiter for a new IP
func (i *IPRateLimiter) AddIP(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter := rate.NewLimiter(i.rate, i.burst)
	i.ips[ip] = limiter
	return limiter
}

// GetLimiter returns the limiter for an IP, creating one if needed
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	limiter, exists := i.ips[ip]

	if !exists {
		i.mu.Unlock()
		return i.AddIP(ip)
	}

	i.mu.Unlock()
	return limiter
}
