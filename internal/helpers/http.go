package helpers

import (
	"encoding/json"
	"net/http"

	"github.com/meridianstays/booking-webhook-app/internal/models"
)

// RespondHTTP writes a WebhookResponse to rw exactly once, defaulting the
// status code to 200 when unset.
func RespondHTTP(response models.WebhookResponse, statusCode int, rw http.ResponseWriter) {
	respBody, _ := json.Marshal(response)
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	_, _ = rw.Write(respBody)
}
