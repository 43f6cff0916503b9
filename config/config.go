package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Server struct {
		Port             string   `envconfig:"PORT" default:"8080"`
		AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
		CacheAccessToken string   `envconfig:"CACHE_ACCESS_TOKEN" default:""`
	}

	RateLimit struct {
		PerSecond  int `envconfig:"RATE_LIMIT_PER_SECOND" default:"5"`
		BurstLimit int `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"10"`
	}

	Cache struct {
		SongTTLInSeconds     int `envconfig:"SONG_CACHE_TTL_IN_SECONDS" default:"3600"`
		SongCapacity         int `envconfig:"SONG_CACHE_CAPACITY" default:"100"`
		ArtistTTLInSeconds   int `envconfig:"ARTIST_CACHE_TTL_IN_SECONDS" default:"3600"`
		ArtistCapacity       int `envconfig:"ARTIST_CACHE_CAPACITY" default:"100"`
		SearchTTLInSeconds   int `envconfig:"SEARCH_CACHE_TTL_IN_SECONDS" default:"1800"`
		SearchCapacity       int `envconfig:"SEARCH_CACHE_CAPACITY" default:"100"`
		StreamsTTLInSeconds  int `envconfig:"STREAMS_CACHE_TTL_IN_SECONDS" default:"300"`
		StreamsCapacity      int `envconfig:"STREAMS_CACHE_CAPACITY" default:"100"`
		PlaylistTTLInSeconds int `envconfig:"PLAYLIST_CACHE_TTL_IN_SECONDS" default:"1800"`
		PlaylistCapacity     int `envconfig:"PLAYLIST_CACHE_CAPACITY" default:"50"`
		LyricsTTLInSeconds   int `envconfig:"LYRICS_CACHE_TTL_IN_SECONDS" default:"7200"`
		LyricsCapacity       int `envconfig:"LYRICS_CACHE_CAPACITY" default:"50"`
		MoodTTLInSeconds     int `envconfig:"MOOD_CACHE_TTL_IN_SECONDS" default:"86400"`
		MoodCapacity         int `envconfig:"MOOD_CACHE_CAPACITY" default:"20"`
	}

	Resolver struct {
		Instances             []string `envconfig:"STREAM_INSTANCES" default:"https://pipedapi.nosebs.ru,https://piped-api.privacy.com.de,https://pipedapi.adminforge.de,https://api.piped.yt"`
		AttemptTimeoutMs      int      `envconfig:"RESOLVER_ATTEMPT_TIMEOUT_MS" default:"5000"`
		CycleDeadlineMs       int      `envconfig:"RESOLVER_CYCLE_DEADLINE_MS" default:"10000"`
		Fanout                int      `envconfig:"RESOLVER_FANOUT" default:"4"`
		FailureRecencySeconds int      `envconfig:"RESOLVER_FAILURE_RECENCY_SECONDS" default:"60"`
	}

	Executor struct {
		Workers   int `envconfig:"EXECUTOR_WORKERS" default:"4"`
		QueueSize int `envconfig:"EXECUTOR_QUEUE_SIZE" default:"16"`
	}

	Catalog struct {
		BaseURL         string `envconfig:"CATALOG_BASE_URL" default:"https://ytmusic-api.internal.svc:9090"`
		AuthHeadersFile string `envconfig:"CATALOG_AUTH_HEADERS_FILE" default:"oauth.json"`
		TimeoutSeconds  int    `envconfig:"CATALOG_TIMEOUT_SECONDS" default:"15"`
	}

	Stats struct {
		DBPath              string `envconfig:"STATS_DB_PATH" default:"./data/stats.db"`
		SaveIntervalSeconds int    `envconfig:"STATS_SAVE_INTERVAL_SECONDS" default:"300"`
	}
}

// AttemptTimeout returns the per-attempt resolution timeout as a duration.
func (c Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Resolver.AttemptTimeoutMs) * time.Millisecond
}

// CycleDeadline returns the overall resolution-cycle deadline as a duration.
func (c Config) CycleDeadline() time.Duration {
	return time.Duration(c.Resolver.CycleDeadlineMs) * time.Millisecond
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}
