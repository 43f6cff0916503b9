// Package piped implements the HTTP client for piped-compatible stream
// backend instances. Every instance exposes the same contract, so one
// client serves the whole pool.
package piped

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNotPlayable is returned when an instance answers successfully but
// the descriptor contains no usable streams.
var ErrNotPlayable = errors.New("piped: descriptor has no playable streams")

// Client queries piped instances. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client. The timeout is a transport-level upper
// bound; per-attempt deadlines are applied by the caller's context.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Streams fetches the stream descriptor for videoID from one instance.
func (c *Client) Streams(ctx context.Context, instance, videoID string) (*Streams, error) {
	url := fmt.Sprintf("%s/streams/%s", strings.TrimRight(instance, "/"), videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("piped: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("piped: request %s: %w", instance, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("piped: %s returned status %d", instance, resp.StatusCode)
	}

	var streams Streams
	if err := json.NewDecoder(resp.Body).Decode(&streams); err != nil {
		return nil, fmt.Errorf("piped: decode response from %s: %w", instance, err)
	}
	if !streams.Playable() {
		return nil, fmt.Errorf("%w (instance %s)", ErrNotPlayable, instance)
	}
	return &streams, nil
}

// Healthcheck probes an instance's healthcheck route.
func (c *Client) Healthcheck(ctx context.Context, instance string) error {
	url := strings.TrimRight(instance, "/") + "/healthcheck"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("piped: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("piped: healthcheck %s: %w", instance, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("piped: healthcheck %s returned status %d", instance, resp.StatusCode)
	}
	return nil
}
