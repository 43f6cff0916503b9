package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"music-api-go/stats"
)

func TestLoggingMiddleware_RecordsStats(t *testing.T) {
	stats.Reset()
	defer stats.Reset()

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/song/abc", nil))

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("Expected wrapped handler status to pass through, got %d", recorder.Code)
	}

	g := stats.Get()
	if g.TotalRequests.Load() != 1 {
		t.Errorf("Expected 1 request recorded, got %d", g.TotalRequests.Load())
	}
	if g.SongRequests.Load() != 1 {
		t.Errorf("Expected catalog request classification, got %d", g.SongRequests.Load())
	}
	if g.Status4xx.Load() != 1 {
		t.Errorf("Expected 4xx recorded, got %d", g.Status4xx.Load())
	}
}

func TestLoggingMiddleware_DefaultsTo200(t *testing.T) {
	stats.Reset()
	defer stats.Reset()

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if stats.Get().Status2xx.Load() != 1 {
		t.Errorf("Expected implicit 200 recorded as 2xx, got %d", stats.Get().Status2xx.Load())
	}
}
