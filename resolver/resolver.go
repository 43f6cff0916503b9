// Package resolver turns a content identifier into a playable stream
// descriptor by querying a pool of interchangeable backend instances,
// tolerating partial failures up to an overall cycle deadline.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"music-api-go/logcolors"
	"music-api-go/services/piped"

	log "github.com/sirupsen/logrus"
)

// ErrExhausted is returned when every endpoint failed or timed out
// within the cycle deadline.
var ErrExhausted = errors.New("resolver: all stream backends failed")

// StreamsFetcher queries one backend instance for a stream descriptor.
// *piped.Client implements it.
type StreamsFetcher interface {
	Streams(ctx context.Context, instance, videoID string) (*piped.Streams, error)
}

// Result is a resolved descriptor plus the instance that produced it.
type Result struct {
	Streams  *piped.Streams `json:"streams"`
	Instance string         `json:"instance"`
}

// Options tunes one resolver. Zero fields fall back to defaults.
type Options struct {
	// AttemptTimeout bounds a single endpoint query.
	AttemptTimeout time.Duration
	// CycleDeadline bounds the whole resolution cycle regardless of
	// endpoint count.
	CycleDeadline time.Duration
	// Fanout is the bounded attempt concurrency within one cycle.
	Fanout int
}

// Resolver fans attempts out against the pool's endpoint sequence and
// returns the first acceptable descriptor.
type Resolver struct {
	pool    *Pool
	fetcher StreamsFetcher
	opts    Options
}

func New(pool *Pool, fetcher StreamsFetcher, opts Options) *Resolver {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 5 * time.Second
	}
	if opts.CycleDeadline <= 0 {
		opts.CycleDeadline = 10 * time.Second
	}
	if opts.Fanout <= 0 {
		opts.Fanout = 4
	}
	return &Resolver{pool: pool, fetcher: fetcher, opts: opts}
}

// attempt is the outcome of one endpoint query. Bookkeeping lives only
// for the duration of a single Resolve call.
type attempt struct {
	endpoint Endpoint
	result   *piped.Streams
	err      error
	latency  time.Duration
}

// Resolve queries the pool for videoID. Attempts run concurrently up to
// the configured fan-out, in the pool's priority order. The first
// successful descriptor wins; when several successes are available in
// the same receive window the lowest rank is chosen. When the cycle
// deadline expires or every endpoint has failed, ErrExhausted is
// returned with the last attempt error attached.
//
// Two calls for the same identifier may return different descriptors:
// stream URLs are ephemeral, and freshness is the caller's cache
// concern, not the resolver's.
func (r *Resolver) Resolve(ctx context.Context, videoID string) (*Result, error) {
	endpoints := r.pool.Endpoints()
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: no endpoints configured", ErrExhausted)
	}

	cycleCtx, cancel := context.WithTimeout(ctx, r.opts.CycleDeadline)
	defer cancel()

	attempts := make(chan attempt, len(endpoints))
	sem := make(chan struct{}, r.opts.Fanout)
	var wg sync.WaitGroup
	launched := make(chan struct{})

	go func() {
		defer close(launched)
		for _, endpoint := range endpoints {
			// Deadline hit with endpoints still untried: the cycle is
			// exhausted once in-flight attempts drain.
			select {
			case sem <- struct{}{}:
			case <-cycleCtx.Done():
				return
			}

			wg.Add(1)
			go func(endpoint Endpoint) {
				defer wg.Done()
				a := r.attempt(cycleCtx, endpoint, videoID)
				if a.err != nil {
					// Free the slot so the next endpoint can start. A
					// success keeps its slot: the cycle is over and no
					// further endpoints may be attempted.
					<-sem
				}
				attempts <- a
			}(endpoint)
		}
	}()

	go func() {
		<-launched
		wg.Wait()
		close(attempts)
	}()

	var lastErr error
	for a := range attempts {
		if a.err != nil {
			if lastErr == nil || !errors.Is(a.err, context.Canceled) {
				lastErr = a.err
			}
			continue
		}

		// Tie-break: prefer the lowest rank among successes that are
		// already waiting in the channel.
		best := a
		for more := true; more; {
			select {
			case other, ok := <-attempts:
				if !ok {
					more = false
					break
				}
				if other.err == nil && other.endpoint.Rank < best.endpoint.Rank {
					best = other
				}
			default:
				more = false
			}
		}

		cancel()
		log.Infof("%s Resolved %s via %s in %v", logcolors.LogResolver, videoID, hostOf(best.endpoint.BaseURL), best.latency)
		return &Result{Streams: best.result, Instance: best.endpoint.BaseURL}, nil
	}

	if lastErr == nil {
		lastErr = cycleCtx.Err()
	}
	log.Warnf("%s Exhausted %d endpoints for %s: %v", logcolors.LogResolver, len(endpoints), videoID, lastErr)
	return nil, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

// attempt issues one bounded query and reports the outcome to the pool.
// Attempts cancelled because another endpoint already won are not
// reported as failures.
func (r *Resolver) attempt(ctx context.Context, endpoint Endpoint, videoID string) attempt {
	attemptCtx, cancel := context.WithTimeout(ctx, r.opts.AttemptTimeout)
	defer cancel()

	start := time.Now()
	streams, err := r.fetcher.Streams(attemptCtx, endpoint.BaseURL, videoID)
	latency := time.Since(start)

	if err != nil {
		if ctx.Err() == nil || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			r.pool.Report(endpoint.BaseURL, false)
			log.Debugf("%s Attempt failed after %v: %v", logcolors.EndpointPrefix(hostOf(endpoint.BaseURL)), latency, err)
		}
		return attempt{endpoint: endpoint, err: err, latency: latency}
	}

	r.pool.Report(endpoint.BaseURL, true)
	return attempt{endpoint: endpoint, result: streams, latency: latency}
}
