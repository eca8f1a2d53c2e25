package agent

import (
	"log/slog"
	"net/http"
	"time"
)

// WithLogger sets a custom slog.Logger instance for the Controller.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Controller) {
		a.logger = logger
	}
}

// WithHTTPClient overrides the HTTP client used for agent invocations.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Controller) {
		a.client = client
	}
}

// WithTimeout bounds a single agent invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(a *Controller) {
		a.client = &http.Client{Timeout: timeout}
	}
}
