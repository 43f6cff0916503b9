package middleware

import (
	"sync"
	"testing"

	"golang.org/x/time/rate"
)

func TestGetLimiter_SameIPSharesLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(5), 10)

	first := limiter.GetLimiter("192.0.2.1")
	second := limiter.GetLimiter("192.0.2.1")
	if first != second {
		t.Error("Expected the same limiter instance for one IP")
	}
}

func TestGetLimiter_DistinctIPs(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(5), 10)

	if limiter.GetLimiter("192.0.2.1") == limiter.GetLimiter("192.0.2.2") {
		t.Error("Expected independent limiters per IP")
	}
}

func TestBurstExhaustion(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 3)
	l := limiter.GetLimiter("192.0.2.1")

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("Expected request %d within burst to be allowed", i+1)
		}
	}
	if l.Allow() {
		t.Error("Expected request beyond burst to be rejected")
	}

	// A different IP still has its full burst
	if !limiter.GetLimiter("192.0.2.2").Allow() {
		t.Error("Expected a fresh IP to be allowed")
	}
}

func TestGetLimiter_Concurrent(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(5), 10)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.GetLimiter("192.0.2.1").Allow()
		}()
	}
	wg.Wait()

	if limiter.Burst() != 10 {
		t.Errorf("Expected burst 10, got %d", limiter.Burst())
	}
}
