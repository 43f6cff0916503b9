package piped

// AudioStream is a single playable audio rendition.
type AudioStream struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Quality  string `json:"quality"`
	Bitrate  int    `json:"bitrate,omitempty"`
	Codec    string `json:"codec,omitempty"`
}

// VideoStream is a single playable video rendition.
type VideoStream struct {
	URL       string `json:"url"`
	MimeType  string `json:"mimeType"`
	Quality   string `json:"quality"`
	VideoOnly bool   `json:"videoOnly,omitempty"`
}

// Streams is the stream descriptor one backend instance returns for a
// video identifier. Stream URLs are ephemeral and typically signed, so
// a descriptor is only as fresh as the moment it was resolved.
type Streams struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Uploader     string        `json:"uploader"`
	UploaderURL  string        `json:"uploaderUrl"`
	AudioStreams []AudioStream `json:"audioStreams"`
	VideoStreams []VideoStream `json:"videoStreams"`
}

// Playable reports whether the descriptor carries at least one usable
// stream. Backends occasionally answer 200 with an empty descriptor;
// those count as failed attempts.
func (s *Streams) Playable() bool {
	return s != nil && (len(s.AudioStreams) > 0 || len(s.VideoStreams) > 0)
}
