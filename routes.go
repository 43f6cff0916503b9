package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(s *Server, router *mux.Router) {
	// Health check
	router.HandleFunc("/", s.handleHome)

	// Catalog metadata endpoints
	router.HandleFunc("/api/search", s.handleSearch)
	router.HandleFunc("/api/search/suggestions", s.handleSearchSuggestions)
	router.HandleFunc("/api/song/{videoId}", s.handleSong)
	router.HandleFunc("/api/artist/{channelId}", s.handleArtist)
	router.HandleFunc("/api/album/{browseId}", s.handleAlbum)
	router.HandleFunc("/api/playlist/{playlistId}", s.handlePlaylist)
	router.HandleFunc("/api/lyrics/{browseId}", s.handleLyrics)
	router.HandleFunc("/api/related/{browseId}", s.handleRelated)
	router.HandleFunc("/api/moods", s.handleMoods)
	router.HandleFunc("/api/moods/playlists/{params}", s.handleMoodPlaylists)
	router.HandleFunc("/api/watch/playlist", s.handleWatchPlaylist)

	// Stream resolution endpoints
	router.HandleFunc("/api/streams", s.handleStreams)
	router.HandleFunc("/api/audio", s.handleAudio)

	// Operational endpoints
	router.HandleFunc("/stats", s.handleStats)
	router.HandleFunc("/cache", s.handleCacheDump)
	router.HandleFunc("/cache/clear", s.handleCacheClear)

	router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}
