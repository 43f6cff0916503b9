package ytmusic

import "fmt"

// ProviderError carries enough context for the request layer to pick an
// HTTP status: a 4xx from the provider means the identifier was bad, a
// 5xx or transport failure is an upstream error.
type ProviderError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ytmusic: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("ytmusic: %s: %s", e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// BadRequest reports whether the provider rejected the request itself
// (malformed or unknown identifier) rather than failing to serve it.
func (e *ProviderError) BadRequest() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// SearchParams are the arguments for a catalog search.
type SearchParams struct {
	Query  string
	Filter string
	Limit  int
}

// WatchParams identify a watch playlist request. At least one of
// VideoID or PlaylistID must be set.
type WatchParams struct {
	VideoID    string
	PlaylistID string
	Limit      int
	Radio      bool
	Shuffle    bool
}
