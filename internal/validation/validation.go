// Package validation provides functionality for validating webhook signatures to verify request authenticity.
package validation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// SignatureHeader is the lowercase name of the header carrying the
// hex-encoded HMAC-SHA256 of the raw request body.
const SignatureHeader = "x-webhook-signature"

// WebhookSecret represents a secret used to validate webhook signatures for verifying request authenticity.
// It must never be logged.
type WebhookSecret string

// NewWebhookSecret creates a new WebhookSecret instance from the provided secret string and returns its address.
func NewWebhookSecret(secret string) *WebhookSecret {
	s := WebhookSecret(secret)
	return &s
}

// Sign computes the lowercase-hex HMAC-SHA256 signature of body. It is the
// signature a well-behaved client is expected to supply.
func (s *WebhookSecret) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(*s))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateSignature validates the HMAC-SHA256 signature of a webhook request
// using the provided raw body and lowercase header map. The comparison is
// constant-time with respect to the computed digest. The raw bytes must be
// the exact bytes received on the wire; re-serialized payloads do not
// round-trip stably.
func (s *WebhookSecret) ValidateSignature(body []byte, headers map[string]string) error {
	if s == nil || *s == "" {
		return errors.New("missing webhook secret")
	}
	signature, found := headers[SignatureHeader]
	if !found || signature == "" {
		return errors.New("missing webhook signature")
	}

	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return errors.New("malformed webhook signature")
	}

	mac := hmac.New(sha256.New, []byte(*s))
	mac.Write(body)
	if !hmac.Equal(supplied, mac.Sum(nil)) {
		return errors.New("signature mismatch")
	}
	return nil
}
