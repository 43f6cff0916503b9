// Package ytmusic is the client for the remote music-catalog provider.
// The provider is treated as a black box: every call returns the
// provider's JSON document unmodified, or fails with a ProviderError.
//
// Authentication is optional. If the configured headers file exists its
// headers are attached to every request; if it is missing or unreadable
// the client operates unauthenticated, which the provider accepts for
// all read operations.
package ytmusic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"music-api-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// Client queries the catalog provider. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	authHeaders map[string]string
}

// NewClient creates a catalog client. headersFile may name a JSON file
// of header name to value pairs; a missing file is not an error.
func NewClient(baseURL string, timeout time.Duration, headersFile string) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}

	if headersFile != "" {
		headers, err := loadAuthHeaders(headersFile)
		if err != nil {
			log.Warnf("%s Using unauthenticated client due to: %v", logcolors.LogCatalog, err)
		} else {
			c.authHeaders = headers
			log.Infof("%s Loaded %d auth headers from %s", logcolors.LogCatalog, len(headers), headersFile)
		}
	}
	return c
}

func loadAuthHeaders(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{}
	if err := json.Unmarshal(data, &headers); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return headers, nil
}

// Authenticated reports whether auth headers were loaded.
func (c *Client) Authenticated() bool {
	return len(c.authHeaders) > 0
}

// get performs one provider call and returns the raw JSON document.
func (c *Client) get(ctx context.Context, op, path string, query url.Values) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &ProviderError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for name, value := range c.authHeaders {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Op: op, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Op: op, StatusCode: resp.StatusCode, Message: providerMessage(body, resp.StatusCode)}
	}
	if !json.Valid(body) {
		return nil, &ProviderError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response body"}
	}
	return json.RawMessage(body), nil
}

// providerMessage extracts the provider's error message when it sent a
// structured error, falling back to the status text.
func providerMessage(body []byte, status int) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return fmt.Sprintf("provider returned status %d", status)
}

// Search queries the catalog. Filter narrows result types (songs,
// albums, artists, playlists, ...) and may be empty.
func (c *Client) Search(ctx context.Context, params SearchParams) (json.RawMessage, error) {
	q := url.Values{"query": {params.Query}}
	if params.Filter != "" {
		q.Set("filter", params.Filter)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	return c.get(ctx, "search", "/search", q)
}

// SearchSuggestions returns typeahead suggestions for a partial query.
func (c *Client) SearchSuggestions(ctx context.Context, query string) (json.RawMessage, error) {
	return c.get(ctx, "search_suggestions", "/search/suggestions", url.Values{"query": {query}})
}

// Song returns full metadata for one video identifier.
func (c *Client) Song(ctx context.Context, videoID string) (json.RawMessage, error) {
	return c.get(ctx, "song", "/songs/"+url.PathEscape(videoID), nil)
}

// Artist returns an artist page by channel identifier.
func (c *Client) Artist(ctx context.Context, channelID string) (json.RawMessage, error) {
	return c.get(ctx, "artist", "/artists/"+url.PathEscape(channelID), nil)
}

// Album returns an album by browse identifier.
func (c *Client) Album(ctx context.Context, browseID string) (json.RawMessage, error) {
	return c.get(ctx, "album", "/albums/"+url.PathEscape(browseID), nil)
}

// Playlist returns a playlist limited to the given track count.
func (c *Client) Playlist(ctx context.Context, playlistID string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.get(ctx, "playlist", "/playlists/"+url.PathEscape(playlistID), q)
}

// Lyrics returns lyrics for a browse identifier.
func (c *Client) Lyrics(ctx context.Context, browseID string) (json.RawMessage, error) {
	return c.get(ctx, "lyrics", "/lyrics/"+url.PathEscape(browseID), nil)
}

// Related returns songs related to a browse identifier.
func (c *Client) Related(ctx context.Context, browseID string) (json.RawMessage, error) {
	return c.get(ctx, "related", "/related/"+url.PathEscape(browseID), nil)
}

// MoodCategories returns the catalog's mood and genre categories.
func (c *Client) MoodCategories(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "moods", "/moods", nil)
}

// MoodPlaylists returns the playlists for one mood category params
// blob, as returned by MoodCategories.
func (c *Client) MoodPlaylists(ctx context.Context, params string) (json.RawMessage, error) {
	return c.get(ctx, "mood_playlists", "/moods/"+url.PathEscape(params), nil)
}

// WatchPlaylist builds a watch queue from a video and/or playlist.
func (c *Client) WatchPlaylist(ctx context.Context, params WatchParams) (json.RawMessage, error) {
	q := url.Values{}
	if params.VideoID != "" {
		q.Set("videoId", params.VideoID)
	}
	if params.PlaylistID != "" {
		q.Set("playlistId", params.PlaylistID)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Radio {
		q.Set("radio", "true")
	}
	if params.Shuffle {
		q.Set("shuffle", "true")
	}
	return c.get(ctx, "watch_playlist", "/watch", q)
}
