package store

import (
	"log/slog"
	"net/http"
	"time"
)

// WithLogger sets a custom slog.Logger instance for the Controller.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Controller) {
		s.logger = logger
	}
}

// WithHTTPClient overrides the HTTP client used for persistence calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Controller) {
		s.client = client
	}
}

// WithTimeout bounds a single persistence call.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Controller) {
		s.client = &http.Client{Timeout: timeout}
	}
}
