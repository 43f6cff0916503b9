package piped

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestStreams_Success(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/streams/abc123" {
			t.Errorf("Expected path /streams/abc123, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"title": "Test Song",
			"uploader": "Test Artist",
			"audioStreams": [{"url": "https://cdn.example.com/audio", "mimeType": "audio/mp4", "quality": "128 kbps"}],
			"videoStreams": []
		}`))
	})

	client := NewClient(time.Second)
	streams, err := client.Streams(context.Background(), server.URL, "abc123")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if streams.Title != "Test Song" {
		t.Errorf("Expected title %q, got %q", "Test Song", streams.Title)
	}
	if len(streams.AudioStreams) != 1 {
		t.Fatalf("Expected 1 audio stream, got %d", len(streams.AudioStreams))
	}
	if streams.AudioStreams[0].Quality != "128 kbps" {
		t.Errorf("Expected quality %q, got %q", "128 kbps", streams.AudioStreams[0].Quality)
	}
}

func TestStreams_NonOKStatus(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client := NewClient(time.Second)
	_, err := client.Streams(context.Background(), server.URL, "abc123")
	if err == nil {
		t.Fatal("Expected error for non-200 status")
	}
}

func TestStreams_MalformedBody(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	client := NewClient(time.Second)
	_, err := client.Streams(context.Background(), server.URL, "abc123")
	if err == nil {
		t.Fatal("Expected error for malformed response")
	}
}

func TestStreams_EmptyDescriptorNotPlayable(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title": "Empty", "audioStreams": [], "videoStreams": []}`))
	})

	client := NewClient(time.Second)
	_, err := client.Streams(context.Background(), server.URL, "abc123")
	if !errors.Is(err, ErrNotPlayable) {
		t.Errorf("Expected ErrNotPlayable, got %v", err)
	}
}

func TestStreams_ContextTimeout(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	client := NewClient(time.Second)
	_, err := client.Streams(ctx, server.URL, "abc123")
	if err == nil {
		t.Fatal("Expected error when the context deadline expires")
	}
}

func TestHealthcheck(t *testing.T) {
	healthy := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("Expected path /healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	unhealthy := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := NewClient(time.Second)
	if err := client.Healthcheck(context.Background(), healthy.URL); err != nil {
		t.Errorf("Expected healthy instance, got %v", err)
	}
	if err := client.Healthcheck(context.Background(), unhealthy.URL); err == nil {
		t.Error("Expected error for unhealthy instance")
	}
}

func TestPlayable(t *testing.T) {
	tests := []struct {
		name    string
		streams *Streams
		want    bool
	}{
		{"nil descriptor", nil, false},
		{"empty descriptor", &Streams{}, false},
		{"audio only", &Streams{AudioStreams: []AudioStream{{URL: "u"}}}, true},
		{"video only", &Streams{VideoStreams: []VideoStream{{URL: "u"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.streams.Playable(); got != tt.want {
				t.Errorf("Playable() = %v, want %v", got, tt.want)
			}
		})
	}
}
