package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"music-api-go/cache"
	"music-api-go/config"
	"music-api-go/executor"
	"music-api-go/logcolors"
	"music-api-go/middleware"
	"music-api-go/resolver"
	"music-api-go/services/piped"
	"music-api-go/services/ytmusic"
	"music-api-go/stats"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel) // Set to InfoLevel (change to DebugLevel for detailed logs)

	err := godotenv.Load()
	if err != nil {
		log.Warn("Error loading .env file, using environment variables")
	}
}

// categoryConfigs maps the configured TTLs and capacities onto the
// fixed category set.
func categoryConfigs(conf config.Config) map[cache.Category]cache.CategoryConfig {
	seconds := func(s int) time.Duration { return time.Duration(s) * time.Second }
	return map[cache.Category]cache.CategoryConfig{
		cache.Song:     {Capacity: conf.Cache.SongCapacity, TTL: seconds(conf.Cache.SongTTLInSeconds)},
		cache.Artist:   {Capacity: conf.Cache.ArtistCapacity, TTL: seconds(conf.Cache.ArtistTTLInSeconds)},
		cache.Search:   {Capacity: conf.Cache.SearchCapacity, TTL: seconds(conf.Cache.SearchTTLInSeconds)},
		cache.Streams:  {Capacity: conf.Cache.StreamsCapacity, TTL: seconds(conf.Cache.StreamsTTLInSeconds)},
		cache.Playlist: {Capacity: conf.Cache.PlaylistCapacity, TTL: seconds(conf.Cache.PlaylistTTLInSeconds)},
		cache.Lyrics:   {Capacity: conf.Cache.LyricsCapacity, TTL: seconds(conf.Cache.LyricsTTLInSeconds)},
		cache.Mood:     {Capacity: conf.Cache.MoodCapacity, TTL: seconds(conf.Cache.MoodTTLInSeconds)},
	}
}

func main() {
	conf := config.Get()

	// Stats persistence (counters only, never cache contents)
	statsStore, err := stats.NewStore(conf.Stats.DBPath)
	if err != nil {
		log.Warnf("%s Stats persistence disabled: %v", logcolors.LogStats, err)
	} else {
		if err := statsStore.Load(); err != nil {
			log.Warnf("%s Failed to restore stats: %v", logcolors.LogStats, err)
		}
		statsStore.StartPeriodicSave(time.Duration(conf.Stats.SaveIntervalSeconds) * time.Second)
	}

	registry := cache.NewRegistry(categoryConfigs(conf))

	pool := resolver.NewPool(conf.Resolver.Instances, time.Duration(conf.Resolver.FailureRecencySeconds)*time.Second)
	pipedClient := piped.NewClient(conf.AttemptTimeout())
	streamResolver := resolver.New(pool, pipedClient, resolver.Options{
		AttemptTimeout: conf.AttemptTimeout(),
		CycleDeadline:  conf.CycleDeadline(),
		Fanout:         conf.Resolver.Fanout,
	})

	exec := executor.New(conf.Executor.Workers, conf.Executor.QueueSize)

	catalog := ytmusic.NewClient(
		conf.Catalog.BaseURL,
		time.Duration(conf.Catalog.TimeoutSeconds)*time.Second,
		conf.Catalog.AuthHeadersFile,
	)

	server := NewServer(conf, registry, pool, streamResolver, exec, catalog)

	router := mux.NewRouter()
	setupRoutes(server, router)

	c := cors.New(cors.Options{
		AllowedOrigins:   conf.Server.AllowedOrigins,
		AllowCredentials: true,
	})

	limiter := middleware.NewIPRateLimiter(rate.Limit(conf.RateLimit.PerSecond), conf.RateLimit.BurstLimit)

	// logging middleware
	loggedRouter := middleware.LoggingMiddleware(router)
	// chain cors middleware
	corsHandler := c.Handler(loggedRouter)
	// chain rate limiter
	handler := limitMiddleware(corsHandler, limiter)

	log.Infof("%s Listening on port %s", logcolors.LogServer, conf.Server.Port)
	log.Fatal(http.ListenAndServe(":"+conf.Server.Port, handler))
}

func limitMiddleware(next http.Handler, limiter *middleware.IPRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.GetLimiter(r.RemoteAddr).Allow() {
			log.Debugf("%s IP %s exceeded rate limit", logcolors.LogRateLimit, r.RemoteAddr)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
