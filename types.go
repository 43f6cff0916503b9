package main

import (
	"context"
	"encoding/json"

	"music-api-go/cache"
	"music-api-go/config"
	"music-api-go/executor"
	"music-api-go/resolver"
	"music-api-go/services/ytmusic"
)

const version = "2.0.0"

// Catalog is the boundary to the remote music-catalog provider. The
// ytmusic client implements it; tests substitute fakes.
type Catalog interface {
	Search(ctx context.Context, params ytmusic.SearchParams) (json.RawMessage, error)
	SearchSuggestions(ctx context.Context, query string) (json.RawMessage, error)
	Song(ctx context.Context, videoID string) (json.RawMessage, error)
	Artist(ctx context.Context, channelID string) (json.RawMessage, error)
	Album(ctx context.Context, browseID string) (json.RawMessage, error)
	Playlist(ctx context.Context, playlistID string, limit int) (json.RawMessage, error)
	Lyrics(ctx context.Context, browseID string) (json.RawMessage, error)
	Related(ctx context.Context, browseID string) (json.RawMessage, error)
	MoodCategories(ctx context.Context) (json.RawMessage, error)
	MoodPlaylists(ctx context.Context, params string) (json.RawMessage, error)
	WatchPlaylist(ctx context.Context, params ytmusic.WatchParams) (json.RawMessage, error)
	Authenticated() bool
}

// Server owns the request-handling dependencies. A fresh instance per
// test keeps cache and pool state isolated.
type Server struct {
	conf     config.Config
	registry *cache.Registry
	pool     *resolver.Pool
	resolver *resolver.Resolver
	exec     *executor.Executor
	catalog  Catalog
}

// NewServer wires the handling core together.
func NewServer(conf config.Config, registry *cache.Registry, pool *resolver.Pool, res *resolver.Resolver, exec *executor.Executor, catalog Catalog) *Server {
	return &Server{
		conf:     conf,
		registry: registry,
		pool:     pool,
		resolver: res,
		exec:     exec,
		catalog:  catalog,
	}
}
