package stats

import (
	"sync/atomic"
	"time"
)

// Stats holds all server statistics with atomic counters
type Stats struct {
	// Server info
	StartTime time.Time

	// Request counters
	TotalRequests   atomic.Int64
	SearchRequests  atomic.Int64
	SongRequests    atomic.Int64
	StreamRequests  atomic.Int64
	OtherRequests   atomic.Int64

	// Cache performance
	CacheHits   atomic.Int64
	CacheMisses atomic.Int64

	// Stream resolution
	ResolverSuccesses atomic.Int64
	ResolverExhausted atomic.Int64

	// Execution bridge
	BackpressureRejected atomic.Int64

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64
}

// Global stats instance
var global = newStats()

func newStats() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(int64(^uint64(0) >> 1)) // Max int64
	return s
}

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// Reset replaces the global instance. Test isolation only.
func Reset() {
	global = newStats()
}

// RecordRequest records a request to a specific endpoint family
func (s *Stats) RecordRequest(path string) {
	s.TotalRequests.Add(1)
	switch {
	case path == "/api/search" || path == "/api/search/suggestions":
		s.SearchRequests.Add(1)
	case path == "/api/streams" || path == "/api/audio":
		s.StreamRequests.Add(1)
	case len(path) > 5 && path[:5] == "/api/":
		s.SongRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordCacheHit records a cache hit
func (s *Stats) RecordCacheHit() {
	s.CacheHits.Add(1)
}

// RecordCacheMiss records a cache miss
func (s *Stats) RecordCacheMiss() {
	s.CacheMisses.Add(1)
}

// RecordResolverSuccess records a resolution cycle that produced a descriptor
func (s *Stats) RecordResolverSuccess() {
	s.ResolverSuccesses.Add(1)
}

// RecordResolverExhausted records a resolution cycle where every backend failed
func (s *Stats) RecordResolverExhausted() {
	s.ResolverExhausted.Add(1)
}

// RecordBackpressure records a request rejected because the worker pool was saturated
func (s *Stats) RecordBackpressure() {
	s.BackpressureRejected.Add(1)
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records how long a request took
func (s *Stats) RecordResponseTime(d time.Duration) {
	micros := d.Microseconds()
	s.totalResponseTime.Add(micros)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if micros >= current || s.minResponseTime.CompareAndSwap(current, micros) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if micros <= current || s.maxResponseTime.CompareAndSwap(current, micros) {
			break
		}
	}
}

// HitRate returns the cache hit percentage across all categories
func (s *Stats) HitRate() float64 {
	hits := s.CacheHits.Load()
	total := hits + s.CacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) * 100 / float64(total)
}

// ResponseTimes returns avg/min/max response times in milliseconds
func (s *Stats) ResponseTimes() (avg, min, max float64) {
	count := s.responseCount.Load()
	if count == 0 {
		return 0, 0, 0
	}
	avg = float64(s.totalResponseTime.Load()) / float64(count) / 1000
	min = float64(s.minResponseTime.Load()) / 1000
	max = float64(s.maxResponseTime.Load()) / 1000
	return avg, min, max
}

// Uptime returns how long the server has been running
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}
