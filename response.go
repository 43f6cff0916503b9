package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"music-api-go/executor"
	"music-api-go/resolver"
	"music-api-go/services/ytmusic"
	"music-api-go/stats"
)

// APIResponse handles consistent header setting and JSON responses.
type APIResponse struct {
	w           http.ResponseWriter
	r           *http.Request
	cacheStatus string
	instance    string
}

// Respond creates a response helper for the request
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetCacheStatus sets the X-Cache-Status header value
func (a *APIResponse) SetCacheStatus(status string) *APIResponse {
	a.cacheStatus = status
	return a
}

// SetInstance sets the X-Stream-Instance header value
func (a *APIResponse) SetInstance(instance string) *APIResponse {
	a.instance = instance
	return a
}

func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")
	if a.cacheStatus != "" {
		a.w.Header().Set("X-Cache-Status", a.cacheStatus)
	}
	if a.instance != "" {
		a.w.Header().Set("X-Stream-Instance", a.instance)
	}
}

// JSON writes headers and encodes data as JSON (200 OK)
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes headers, sets status code, and encodes error response
func (a *APIResponse) Error(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}

// writeError maps a core failure onto an HTTP status and the standard
// {"error": ...} envelope. Saturation and exhaustion both surface as
// 503 but stay distinguishable by message for observability.
func (a *APIResponse) writeError(err error) {
	switch {
	case errors.Is(err, executor.ErrSaturated):
		stats.Get().RecordBackpressure()
		a.Error(http.StatusServiceUnavailable, map[string]interface{}{
			"error": "Server is busy, please retry shortly",
		})
	case errors.Is(err, resolver.ErrExhausted):
		a.Error(http.StatusServiceUnavailable, map[string]interface{}{
			"error": "Failed to fetch streams from all backend instances",
		})
	default:
		status := http.StatusInternalServerError
		var providerErr *ytmusic.ProviderError
		if errors.As(err, &providerErr) && providerErr.BadRequest() {
			status = http.StatusBadRequest
		}
		a.Error(status, map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// badRequest writes a 400 for a request rejected before any cache or
// backend interaction.
func (a *APIResponse) badRequest(message string) {
	a.Error(http.StatusBadRequest, map[string]interface{}{
		"error": message,
	})
}
