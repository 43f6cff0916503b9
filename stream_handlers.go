package main

import (
	"context"
	"errors"
	"net/http"

	"music-api-go/cache"
	"music-api-go/resolver"
	"music-api-go/stats"
)

// resolveStreams is the shared producer for the streams category. Audio
// and full-descriptor requests for the same video share one entry, so a
// single resolution cycle serves both endpoints within the TTL window.
func (s *Server) resolveStreams(w http.ResponseWriter, r *http.Request, videoID string) (*resolver.Result, bool, bool) {
	value, hit, err := s.registry.Fetch(cache.Streams, "streams:"+videoID, func() (any, error) {
		return s.exec.Do(r.Context(), func(ctx context.Context) (any, error) {
			result, err := s.resolver.Resolve(ctx, videoID)
			if err != nil {
				if errors.Is(err, resolver.ErrExhausted) {
					stats.Get().RecordResolverExhausted()
				}
				return nil, err
			}
			stats.Get().RecordResolverSuccess()
			return result, nil
		})
	})

	if err == nil && hit {
		stats.Get().RecordCacheHit()
	} else {
		stats.Get().RecordCacheMiss()
	}

	if err != nil {
		Respond(w, r).writeError(err)
		return nil, false, false
	}

	result, ok := value.(*resolver.Result)
	if !ok {
		Respond(w, r).Error(http.StatusInternalServerError, map[string]interface{}{
			"error": "Unexpected cache entry for streams",
		})
		return nil, false, false
	}
	return result, hit, true
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("videoId")
	if videoID == "" {
		Respond(w, r).badRequest("Missing videoId parameter")
		return
	}

	result, hit, ok := s.resolveStreams(w, r, videoID)
	if !ok {
		return
	}

	status := "MISS"
	if hit {
		status = "HIT"
	}
	Respond(w, r).SetCacheStatus(status).SetInstance(result.Instance).JSON(map[string]interface{}{
		"videoStreams": result.Streams.VideoStreams,
		"audioStreams": result.Streams.AudioStreams,
		"instance":     result.Instance,
		"title":        result.Streams.Title,
		"description":  result.Streams.Description,
		"uploader":     result.Streams.Uploader,
		"uploaderUrl":  result.Streams.UploaderURL,
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("videoId")
	if videoID == "" {
		Respond(w, r).badRequest("Missing videoId parameter")
		return
	}

	result, hit, ok := s.resolveStreams(w, r, videoID)
	if !ok {
		return
	}

	if len(result.Streams.AudioStreams) == 0 {
		Respond(w, r).Error(http.StatusServiceUnavailable, map[string]interface{}{
			"error": "Failed to fetch audio URL",
		})
		return
	}

	status := "MISS"
	if hit {
		status = "HIT"
	}
	audio := result.Streams.AudioStreams[0]
	Respond(w, r).SetCacheStatus(status).SetInstance(result.Instance).JSON(map[string]interface{}{
		"audioUrl": audio.URL,
		"mimeType": audio.MimeType,
		"quality":  audio.Quality,
		"instance": result.Instance,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	g := stats.Get()
	avg, min, max := g.ResponseTimes()

	Respond(w, r).JSON(map[string]interface{}{
		"uptime_seconds": int(g.Uptime().Seconds()),
		"authenticated":  s.catalog.Authenticated(),
		"requests": map[string]int64{
			"total":   g.TotalRequests.Load(),
			"search":  g.SearchRequests.Load(),
			"catalog": g.SongRequests.Load(),
			"streams": g.StreamRequests.Load(),
			"other":   g.OtherRequests.Load(),
		},
		"cache": map[string]interface{}{
			"hits":             g.CacheHits.Load(),
			"misses":           g.CacheMisses.Load(),
			"hit_rate_percent": g.HitRate(),
			"categories":       s.registry.Stats(),
		},
		"resolver": map[string]interface{}{
			"successes": g.ResolverSuccesses.Load(),
			"exhausted": g.ResolverExhausted.Load(),
			"endpoints": s.pool.Health(),
		},
		"executor": map[string]interface{}{
			"workers":     s.exec.Workers(),
			"in_flight":   s.exec.InFlight(),
			"queue_depth": s.exec.QueueDepth(),
			"rejected":    g.BackpressureRejected.Load(),
		},
		"responses": map[string]interface{}{
			"status_2xx":  g.Status2xx.Load(),
			"status_4xx":  g.Status4xx.Load(),
			"status_5xx":  g.Status5xx.Load(),
			"avg_ms":      avg,
			"min_ms":      min,
			"max_ms":      max,
		},
	})
}

// handleCacheDump reports per-category cache counters. Guarded by the
// access token; entry values are never exposed.
func (s *Server) handleCacheDump(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != s.conf.Server.CacheAccessToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"categories": s.registry.Stats(),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != s.conf.Server.CacheAccessToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	s.registry.Purge()
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Cache cleared",
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).Error(http.StatusNotFound, map[string]interface{}{
		"error": "Not found",
	})
}
