package resolver

import (
	"net/url"
	"sort"
	"sync"
	"time"

	"music-api-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// Endpoint is one interchangeable stream backend instance. Rank is the
// configured priority (position in the instance list, lower is better).
type Endpoint struct {
	BaseURL string
	Rank    int
}

// EndpointHealth is a point-in-time view of one endpoint's transient
// state, exposed through the stats endpoint.
type EndpointHealth struct {
	BaseURL             string    `json:"base_url"`
	Rank                int       `json:"rank"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
}

type endpointState struct {
	endpoint            Endpoint
	consecutiveFailures int
	lastFailure         time.Time
	lastSuccess         time.Time
}

// Pool holds the fixed endpoint set and the transient priority state
// used to order each resolution cycle's attempt sequence. Endpoints are
// never removed: failures only deprioritize, on the assumption that the
// instances have independent, uncorrelated failure modes.
type Pool struct {
	mu            sync.Mutex
	endpoints     []*endpointState
	recencyWindow time.Duration
}

// NewPool builds a pool from the configured instance list. Order in the
// list defines rank. recencyWindow bounds how long a failure keeps an
// endpoint deprioritized; zero uses a one-minute default.
func NewPool(instances []string, recencyWindow time.Duration) *Pool {
	if recencyWindow <= 0 {
		recencyWindow = time.Minute
	}

	states := make([]*endpointState, 0, len(instances))
	for i, instance := range instances {
		states = append(states, &endpointState{
			endpoint: Endpoint{BaseURL: instance, Rank: i},
		})
	}
	log.Infof("%s Initialized with %d endpoints", logcolors.LogPool, len(states))
	return &Pool{endpoints: states, recencyWindow: recencyWindow}
}

// Endpoints returns this cycle's attempt sequence: endpoints that have
// not failed recently first, each group ordered by configured rank.
func (p *Pool) Endpoints() []Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	ordered := make([]*endpointState, len(p.endpoints))
	copy(ordered, p.endpoints)

	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := p.degraded(ordered[i], now), p.degraded(ordered[j], now)
		if di != dj {
			return !di
		}
		return ordered[i].endpoint.Rank < ordered[j].endpoint.Rank
	})

	result := make([]Endpoint, len(ordered))
	for i, s := range ordered {
		result[i] = s.endpoint
	}
	return result
}

// degraded reports whether an endpoint failed within the recency
// window. Callers must hold p.mu.
func (p *Pool) degraded(s *endpointState, now time.Time) bool {
	return s.consecutiveFailures > 0 && now.Sub(s.lastFailure) < p.recencyWindow
}

// Report records one attempt outcome. It only mutates in-memory state
// used to order the next cycle; there is no persistent ban list.
func (p *Pool) Report(baseURL string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.endpoints {
		if s.endpoint.BaseURL != baseURL {
			continue
		}
		if ok {
			s.consecutiveFailures = 0
			s.lastSuccess = time.Now()
		} else {
			s.consecutiveFailures++
			s.lastFailure = time.Now()
			log.Debugf("%s Recorded failure #%d", logcolors.EndpointPrefix(hostOf(baseURL)), s.consecutiveFailures)
		}
		return
	}
}

// Size returns the number of configured endpoints.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Health returns a snapshot of every endpoint's transient state.
func (p *Pool) Health() []EndpointHealth {
	p.mu.Lock()
	defer p.mu.Unlock()

	health := make([]EndpointHealth, len(p.endpoints))
	for i, s := range p.endpoints {
		health[i] = EndpointHealth{
			BaseURL:             s.endpoint.BaseURL,
			Rank:                s.endpoint.Rank,
			ConsecutiveFailures: s.consecutiveFailures,
			LastFailure:         s.lastFailure,
			LastSuccess:         s.lastSuccess,
		}
	}
	return health
}

func hostOf(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return baseURL
}
