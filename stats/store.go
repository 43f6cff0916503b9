package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"music-api-go/logcolors"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	statsBucketName = "stats"
	statsKey        = "server_stats"
)

// Store handles persistent storage for stats. Only counters are
// persisted; cache contents never touch disk.
type Store struct {
	db       *bolt.DB
	dbPath   string
	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// PersistedStats represents the stats data that gets persisted to disk
type PersistedStats struct {
	// Cumulative counters (these accumulate across restarts)
	TotalRequests        int64 `json:"total_requests"`
	SearchRequests       int64 `json:"search_requests"`
	SongRequests         int64 `json:"song_requests"`
	StreamRequests       int64 `json:"stream_requests"`
	OtherRequests        int64 `json:"other_requests"`
	CacheHits            int64 `json:"cache_hits"`
	CacheMisses          int64 `json:"cache_misses"`
	ResolverSuccesses    int64 `json:"resolver_successes"`
	ResolverExhausted    int64 `json:"resolver_exhausted"`
	BackpressureRejected int64 `json:"backpressure_rejected"`
	Status2xx            int64 `json:"status_2xx"`
	Status4xx            int64 `json:"status_4xx"`
	Status5xx            int64 `json:"status_5xx"`

	// Metadata
	LastSaved    time.Time `json:"last_saved"`
	FirstStarted time.Time `json:"first_started"`
}

// NewStore creates a new stats store with a dedicated BoltDB file
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %v", err)
	}

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %v", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(statsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats bucket: %v", err)
	}

	store := &Store{
		db:       db,
		dbPath:   dbPath,
		stopChan: make(chan struct{}),
	}

	log.Infof("%s Stats store initialized at %s", logcolors.LogStats, dbPath)
	return store, nil
}

// Load reads persisted stats from disk and applies them to the global stats
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var persisted PersistedStats
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statsBucketName))
		if b == nil {
			return nil
		}

		data := b.Get([]byte(statsKey))
		if data == nil {
			return nil // No persisted stats yet
		}

		return json.Unmarshal(data, &persisted)
	})
	if err != nil {
		return fmt.Errorf("failed to load stats: %v", err)
	}

	if persisted.LastSaved.IsZero() {
		log.Infof("%s No persisted stats found, starting fresh", logcolors.LogStats)
		return nil
	}

	g := Get()
	g.TotalRequests.Store(persisted.TotalRequests)
	g.SearchRequests.Store(persisted.SearchRequests)
	g.SongRequests.Store(persisted.SongRequests)
	g.StreamRequests.Store(persisted.StreamRequests)
	g.OtherRequests.Store(persisted.OtherRequests)
	g.CacheHits.Store(persisted.CacheHits)
	g.CacheMisses.Store(persisted.CacheMisses)
	g.ResolverSuccesses.Store(persisted.ResolverSuccesses)
	g.ResolverExhausted.Store(persisted.ResolverExhausted)
	g.BackpressureRejected.Store(persisted.BackpressureRejected)
	g.Status2xx.Store(persisted.Status2xx)
	g.Status4xx.Store(persisted.Status4xx)
	g.Status5xx.Store(persisted.Status5xx)

	log.Infof("%s Restored stats (last saved %s, %d total requests)",
		logcolors.LogStats, persisted.LastSaved.Format(time.RFC3339), persisted.TotalRequests)
	return nil
}

// Save writes the current global stats to disk
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := Get()
	persisted := PersistedStats{
		TotalRequests:        g.TotalRequests.Load(),
		SearchRequests:       g.SearchRequests.Load(),
		SongRequests:         g.SongRequests.Load(),
		StreamRequests:       g.StreamRequests.Load(),
		OtherRequests:        g.OtherRequests.Load(),
		CacheHits:            g.CacheHits.Load(),
		CacheMisses:          g.CacheMisses.Load(),
		ResolverSuccesses:    g.ResolverSuccesses.Load(),
		ResolverExhausted:    g.ResolverExhausted.Load(),
		BackpressureRejected: g.BackpressureRejected.Load(),
		Status2xx:            g.Status2xx.Load(),
		Status4xx:            g.Status4xx.Load(),
		Status5xx:            g.Status5xx.Load(),
		LastSaved:            time.Now(),
		FirstStarted:         g.StartTime,
	}

	data, err := json.Marshal(persisted)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %v", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statsBucketName))
		if b == nil {
			return fmt.Errorf("stats bucket not found")
		}
		return b.Put([]byte(statsKey), data)
	})
}

// StartPeriodicSave saves stats on the given interval until Close
func (s *Store) StartPeriodicSave(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Save(); err != nil {
					log.Errorf("%s Periodic save failed: %v", logcolors.LogStats, err)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
	log.Infof("%s Periodic save every %v", logcolors.LogStats, interval)
}

// Close performs a final save and closes the database
func (s *Store) Close() error {
	close(s.stopChan)
	s.wg.Wait()

	if err := s.Save(); err != nil {
		log.Errorf("%s Final save failed: %v", logcolors.LogStats, err)
	}
	return s.db.Close()
}
