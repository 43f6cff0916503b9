package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"music-api-go/cache"
	"music-api-go/executor"
	"music-api-go/services/ytmusic"
	"music-api-go/stats"
)

// fetchAndRespond runs the cache-aside path: check the category, on a
// miss bridge the producer onto the worker pool, store and answer.
func (s *Server) fetchAndRespond(w http.ResponseWriter, r *http.Request, category cache.Category, key string, fn executor.Task) {
	value, hit, err := s.registry.Fetch(category, key, func() (any, error) {
		return s.exec.Do(r.Context(), fn)
	})

	if err == nil && hit {
		stats.Get().RecordCacheHit()
	} else {
		stats.Get().RecordCacheMiss()
	}

	resp := Respond(w, r)
	if err != nil {
		resp.writeError(err)
		return
	}

	status := "MISS"
	if hit {
		status = "HIT"
	}
	resp.SetCacheStatus(status).JSON(value)
}

// respondDirect answers an uncached request through the worker pool.
func (s *Server) respondDirect(w http.ResponseWriter, r *http.Request, fn executor.Task) {
	value, err := s.exec.Do(r.Context(), fn)
	resp := Respond(w, r)
	if err != nil {
		resp.writeError(err)
		return
	}
	resp.JSON(value)
}

// normalizeKey lowercases and trims a key component so equivalent
// queries share a cache entry.
func normalizeKey(part string) string {
	return strings.ToLower(strings.TrimSpace(part))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"status":    "ok",
		"message":   "Music catalog API is running",
		"timestamp": time.Now().UTC().Format("2006-01-02 15:04:05"),
		"version":   version,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		Respond(w, r).badRequest("Missing query parameter")
		return
	}
	filter := r.URL.Query().Get("filter")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			Respond(w, r).badRequest("Invalid limit parameter")
			return
		}
		limit = parsed
	}

	key := fmt.Sprintf("search:%s|%s|%d", normalizeKey(query), normalizeKey(filter), limit)
	s.fetchAndRespond(w, r, cache.Search, key, func(ctx context.Context) (any, error) {
		return s.catalog.Search(ctx, ytmusic.SearchParams{Query: query, Filter: filter, Limit: limit})
	})
}

func (s *Server) handleSearchSuggestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		Respond(w, r).badRequest("Missing query parameter")
		return
	}

	s.respondDirect(w, r, func(ctx context.Context) (any, error) {
		return s.catalog.SearchSuggestions(ctx, query)
	})
}

func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["videoId"]
	s.fetchAndRespond(w, r, cache.Song, "song:"+videoID, func(ctx context.Context) (any, error) {
		return s.catalog.Song(ctx, videoID)
	})
}

func (s *Server) handleArtist(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelId"]
	s.fetchAndRespond(w, r, cache.Artist, "artist:"+channelID, func(ctx context.Context) (any, error) {
		return s.catalog.Artist(ctx, channelID)
	})
}

// Albums share the song category: both are song-page metadata with the
// same freshness profile.
func (s *Server) handleAlbum(w http.ResponseWriter, r *http.Request) {
	browseID := mux.Vars(r)["browseId"]
	s.fetchAndRespond(w, r, cache.Song, "album:"+browseID, func(ctx context.Context) (any, error) {
		return s.catalog.Album(ctx, browseID)
	})
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	playlistID := mux.Vars(r)["playlistId"]

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			Respond(w, r).badRequest("Invalid limit parameter")
			return
		}
		limit = parsed
	}

	key := fmt.Sprintf("playlist:%s|%d", playlistID, limit)
	s.fetchAndRespond(w, r, cache.Playlist, key, func(ctx context.Context) (any, error) {
		return s.catalog.Playlist(ctx, playlistID, limit)
	})
}

func (s *Server) handleLyrics(w http.ResponseWriter, r *http.Request) {
	browseID := mux.Vars(r)["browseId"]
	s.fetchAndRespond(w, r, cache.Lyrics, "lyrics:"+browseID, func(ctx context.Context) (any, error) {
		return s.catalog.Lyrics(ctx, browseID)
	})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	browseID := mux.Vars(r)["browseId"]
	s.fetchAndRespond(w, r, cache.Song, "related:"+browseID, func(ctx context.Context) (any, error) {
		return s.catalog.Related(ctx, browseID)
	})
}

func (s *Server) handleMoods(w http.ResponseWriter, r *http.Request) {
	s.fetchAndRespond(w, r, cache.Mood, "moods", func(ctx context.Context) (any, error) {
		return s.catalog.MoodCategories(ctx)
	})
}

func (s *Server) handleMoodPlaylists(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)["params"]
	s.fetchAndRespond(w, r, cache.Mood, "mood_playlists:"+params, func(ctx context.Context) (any, error) {
		return s.catalog.MoodPlaylists(ctx, params)
	})
}

func (s *Server) handleWatchPlaylist(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("video_id")
	playlistID := r.URL.Query().Get("playlist_id")
	if videoID == "" && playlistID == "" {
		Respond(w, r).badRequest("video_id or playlist_id required")
		return
	}

	limit := 25
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			Respond(w, r).badRequest("Invalid limit parameter")
			return
		}
		limit = parsed
	}
	radio := strings.EqualFold(r.URL.Query().Get("radio"), "true")
	shuffle := strings.EqualFold(r.URL.Query().Get("shuffle"), "true")

	s.respondDirect(w, r, func(ctx context.Context) (any, error) {
		return s.catalog.WatchPlaylist(ctx, ytmusic.WatchParams{
			VideoID:    videoID,
			PlaylistID: playlistID,
			Limit:      limit,
			Radio:      radio,
			Shuffle:    shuffle,
		})
	})
}
