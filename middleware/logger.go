package middleware

import (
	"net/http"
	"time"

	"music-api-go/stats"

	log "github.com/sirupsen/logrus"
)

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs each request and records request stats
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		s := stats.Get()
		s.RecordRequest(r.URL.Path)
		s.RecordStatusCode(recorder.status)
		s.RecordResponseTime(duration)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   recorder.status,
			"duration": duration.String(),
			"remote":   r.RemoteAddr,
		}).Info("request")
	})
}
