package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"music-api-go/cache"
	"music-api-go/config"
	"music-api-go/executor"
	"music-api-go/resolver"
	"music-api-go/services/piped"
	"music-api-go/services/ytmusic"
	"music-api-go/stats"
)

// fakeCatalog scripts provider responses and counts calls
type fakeCatalog struct {
	calls    atomic.Int64
	delay    time.Duration
	err      error
	document json.RawMessage
}

func (f *fakeCatalog) respond(ctx context.Context) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.document != nil {
		return f.document, nil
	}
	return json.RawMessage(`{"ok": true}`), nil
}

func (f *fakeCatalog) Search(ctx context.Context, params ytmusic.SearchParams) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) SearchSuggestions(ctx context.Context, query string) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) Song(ctx context.Context, videoID string) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) Artist(ctx context.Context, channelID string) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) Album(ctx context.Context, browseID string) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) Playlist(ctx context.Context, playlistID string, limit int) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) Lyrics(ctx context.Context, browseID string) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) Related(ctx context.Context, browseID string) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) MoodCategories(ctx context.Context) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) MoodPlaylists(ctx context.Context, params string) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) WatchPlaylist(ctx context.Context, params ytmusic.WatchParams) (json.RawMessage, error) {
	return f.respond(ctx)
}
func (f *fakeCatalog) Authenticated() bool { return false }

// scriptedFetcher serves one canned descriptor (or error) for every instance
type scriptedFetcher struct {
	streams *piped.Streams
	err     error
}

func (f scriptedFetcher) Streams(ctx context.Context, instance, videoID string) (*piped.Streams, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.streams, nil
}

type serverOptions struct {
	catalog  Catalog
	fetcher  resolver.StreamsFetcher
	workers  int
	queue    int
	registry *cache.Registry
}

func newTestHandler(t *testing.T, opts serverOptions) http.Handler {
	t.Helper()
	stats.Reset()

	if opts.catalog == nil {
		opts.catalog = &fakeCatalog{}
	}
	if opts.fetcher == nil {
		opts.fetcher = scriptedFetcher{streams: &piped.Streams{
			Title:        "Test Song",
			AudioStreams: []piped.AudioStream{{URL: "https://cdn.example.com/a", MimeType: "audio/mp4", Quality: "128 kbps"}},
		}}
	}
	if opts.workers == 0 {
		opts.workers = 2
	}
	if opts.queue == 0 {
		opts.queue = 4
	}
	if opts.registry == nil {
		opts.registry = cache.NewRegistry(map[cache.Category]cache.CategoryConfig{
			cache.Song:     {Capacity: 10, TTL: time.Minute},
			cache.Artist:   {Capacity: 10, TTL: time.Minute},
			cache.Search:   {Capacity: 10, TTL: time.Minute},
			cache.Streams:  {Capacity: 10, TTL: time.Minute},
			cache.Playlist: {Capacity: 10, TTL: time.Minute},
			cache.Lyrics:   {Capacity: 10, TTL: time.Minute},
			cache.Mood:     {Capacity: 10, TTL: time.Minute},
		})
	}

	pool := resolver.NewPool([]string{"https://one.example.com", "https://two.example.com"}, time.Minute)
	res := resolver.New(pool, opts.fetcher, resolver.Options{
		AttemptTimeout: 200 * time.Millisecond,
		CycleDeadline:  500 * time.Millisecond,
		Fanout:         2,
	})
	exec := executor.New(opts.workers, opts.queue)
	t.Cleanup(exec.Close)

	server := NewServer(config.Get(), opts.registry, pool, res, exec, opts.catalog)
	router := mux.NewRouter()
	setupRoutes(server, router)
	return router
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON body, got %q: %v", recorder.Body.String(), err)
	}
	return body
}

func TestHandleHome(t *testing.T) {
	handler := newTestHandler(t, serverOptions{})

	recorder := doRequest(t, handler, http.MethodGet, "/")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
	if body["version"] != version {
		t.Errorf("Expected version %s, got %v", version, body["version"])
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	catalog := &fakeCatalog{}
	handler := newTestHandler(t, serverOptions{catalog: catalog})

	recorder := doRequest(t, handler, http.MethodGet, "/api/search")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["error"] == "" {
		t.Error("Expected error envelope")
	}
	if catalog.calls.Load() != 0 {
		t.Error("Expected validation to reject before any provider call")
	}
}

func TestHandleSearch_InvalidLimit(t *testing.T) {
	handler := newTestHandler(t, serverOptions{})

	recorder := doRequest(t, handler, http.MethodGet, "/api/search?query=test&limit=banana")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", recorder.Code)
	}
}

func TestHandleSearch_CacheHitOnSecondRequest(t *testing.T) {
	catalog := &fakeCatalog{document: json.RawMessage(`[{"title": "Result"}]`)}
	handler := newTestHandler(t, serverOptions{catalog: catalog})

	first := doRequest(t, handler, http.MethodGet, "/api/search?query=test")
	if first.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", first.Code, first.Body.String())
	}
	if got := first.Header().Get("X-Cache-Status"); got != "MISS" {
		t.Errorf("Expected X-Cache-Status MISS, got %q", got)
	}

	second := doRequest(t, handler, http.MethodGet, "/api/search?query=test")
	if second.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", second.Code)
	}
	if got := second.Header().Get("X-Cache-Status"); got != "HIT" {
		t.Errorf("Expected X-Cache-Status HIT, got %q", got)
	}
	if catalog.calls.Load() != 1 {
		t.Errorf("Expected exactly one provider call, got %d", catalog.calls.Load())
	}
	if first.Body.String() != second.Body.String() {
		t.Error("Expected identical cached response")
	}
}

func TestHandleSearch_CaseInsensitiveCacheKey(t *testing.T) {
	catalog := &fakeCatalog{}
	handler := newTestHandler(t, serverOptions{catalog: catalog})

	doRequest(t, handler, http.MethodGet, "/api/search?query=Test")
	doRequest(t, handler, http.MethodGet, "/api/search?query=test")

	if catalog.calls.Load() != 1 {
		t.Errorf("Expected normalized keys to share one entry, got %d provider calls", catalog.calls.Load())
	}
}

func TestHandleSong_ProviderBadRequest(t *testing.T) {
	catalog := &fakeCatalog{err: &ytmusic.ProviderError{Op: "song", StatusCode: 404, Message: "Invalid video ID"}}
	handler := newTestHandler(t, serverOptions{catalog: catalog})

	recorder := doRequest(t, handler, http.MethodGet, "/api/song/bogus")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for a provider-rejected identifier, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["error"] == nil {
		t.Error("Expected error envelope")
	}
}

func TestHandleSong_ProviderFailureNotCached(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("upstream down")}
	handler := newTestHandler(t, serverOptions{catalog: catalog})

	recorder := doRequest(t, handler, http.MethodGet, "/api/song/abc123")
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", recorder.Code)
	}

	// Recovery: clear the scripted error and retry the same key
	catalog.err = nil
	recorder = doRequest(t, handler, http.MethodGet, "/api/song/abc123")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected retry to reach the provider, got %d", recorder.Code)
	}
	if catalog.calls.Load() != 2 {
		t.Errorf("Expected 2 provider calls (failure not cached), got %d", catalog.calls.Load())
	}
}

func TestHandleWatchPlaylist_RequiresIdentifier(t *testing.T) {
	handler := newTestHandler(t, serverOptions{})

	recorder := doRequest(t, handler, http.MethodGet, "/api/watch/playlist")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", recorder.Code)
	}
}

func TestHandleStreams_MissingVideoID(t *testing.T) {
	handler := newTestHandler(t, serverOptions{})

	recorder := doRequest(t, handler, http.MethodGet, "/api/streams")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["error"] != "Missing videoId parameter" {
		t.Errorf("Unexpected error message: %v", body["error"])
	}
}

func TestHandleStreams_Success(t *testing.T) {
	handler := newTestHandler(t, serverOptions{})

	recorder := doRequest(t, handler, http.MethodGet, "/api/streams?videoId=abc123")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["title"] != "Test Song" {
		t.Errorf("Expected resolved title, got %v", body["title"])
	}
	if body["instance"] == "" {
		t.Error("Expected winning instance in response")
	}
}

func TestHandleStreams_AllBackendsFail(t *testing.T) {
	handler := newTestHandler(t, serverOptions{
		fetcher: scriptedFetcher{err: errors.New("connection refused")},
	})

	recorder := doRequest(t, handler, http.MethodGet, "/api/streams?videoId=abc123")
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 when all backends fail, got %d", recorder.Code)
	}
	if stats.Get().ResolverExhausted.Load() != 1 {
		t.Errorf("Expected one exhausted cycle recorded, got %d", stats.Get().ResolverExhausted.Load())
	}
}

func TestHandleAudio_ReturnsFirstAudioStream(t *testing.T) {
	handler := newTestHandler(t, serverOptions{})

	recorder := doRequest(t, handler, http.MethodGet, "/api/audio?videoId=abc123")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["audioUrl"] != "https://cdn.example.com/a" {
		t.Errorf("Expected first audio stream URL, got %v", body["audioUrl"])
	}
	if body["mimeType"] != "audio/mp4" {
		t.Errorf("Expected mime type, got %v", body["mimeType"])
	}
}

func TestHandleAudio_SharesStreamsCacheEntry(t *testing.T) {
	handler := newTestHandler(t, serverOptions{})

	doRequest(t, handler, http.MethodGet, "/api/streams?videoId=abc123")
	recorder := doRequest(t, handler, http.MethodGet, "/api/audio?videoId=abc123")

	if got := recorder.Header().Get("X-Cache-Status"); got != "HIT" {
		t.Errorf("Expected audio to reuse the streams entry, got X-Cache-Status %q", got)
	}
}

func TestBackpressure_RejectsWith503(t *testing.T) {
	catalog := &fakeCatalog{delay: 300 * time.Millisecond}
	handler := newTestHandler(t, serverOptions{catalog: catalog, workers: 1, queue: 1})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Distinct keys so each occupies a worker or queue slot
			doRequest(t, handler, http.MethodGet, "/api/song/busy"+string(rune('a'+i)))
		}(i)
	}
	// Let the slow requests claim the worker and the queue slot
	time.Sleep(100 * time.Millisecond)

	recorder := doRequest(t, handler, http.MethodGet, "/api/song/rejected")
	wg.Wait()

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 under saturation, got %d", recorder.Code)
	}
	if stats.Get().BackpressureRejected.Load() != 1 {
		t.Errorf("Expected one backpressure rejection recorded, got %d", stats.Get().BackpressureRejected.Load())
	}
}

func TestHandleCacheDump_Unauthorized(t *testing.T) {
	handler := newTestHandler(t, serverOptions{})

	// Default config has an empty token, so an empty Authorization
	// header matches; send a wrong one explicitly
	req := httptest.NewRequest(http.MethodGet, "/cache", nil)
	req.Header.Set("Authorization", "wrong")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", recorder.Code)
	}
}

func TestHandleStats(t *testing.T) {
	handler := newTestHandler(t, serverOptions{})

	doRequest(t, handler, http.MethodGet, "/api/streams?videoId=abc123")

	recorder := doRequest(t, handler, http.MethodGet, "/stats")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["cache"] == nil || body["resolver"] == nil || body["executor"] == nil {
		t.Errorf("Expected cache, resolver and executor sections, got %v", body)
	}
}

func TestHandleNotFound(t *testing.T) {
	handler := newTestHandler(t, serverOptions{})

	recorder := doRequest(t, handler, http.MethodGet, "/nope")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["error"] != "Not found" {
		t.Errorf("Expected error envelope, got %v", body)
	}
}
