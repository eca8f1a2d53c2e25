package validation_test

import (
	"strings"
	"testing"

	"github.com/meridianstays/booking-webhook-app/internal/validation"
)

func TestWebhookSecret_ValidateSignature(t *testing.T) {
	testCases := []struct {
		Name        string
		Headers     map[string]string
		Body        string
		ExpectError bool
	}{
		{
			Name:        "missing_headers",
			Headers:     map[string]string{},
			ExpectError: true,
		},
		{
			Name: "empty_signature",
			Headers: map[string]string{
				validation.SignatureHeader: "",
			},
			ExpectError: true,
		},
		{
			Name: "malformed_signature",
			Headers: map[string]string{
				validation.SignatureHeader: "not-hex",
			},
			ExpectError: true,
		},
		{
			Name: "truncated_signature",
			Headers: map[string]string{
				validation.SignatureHeader: "bc7daef0d3e3b227",
			},
			Body:        `{"key": "value"}`,
			ExpectError: true,
		},
		{
			Name: "wrong_signature",
			Headers: map[string]string{
				validation.SignatureHeader: "844d7743b13e1bdd66b003c29ebe5184dcf985434dde9f125952595cd533213e",
			},
			Body:        `{"key": "value"}`,
			ExpectError: true,
		},
		{
			Name: "valid_signature",
			Headers: map[string]string{
				validation.SignatureHeader: "bc7daef0d3e3b227f6f1dd1b6e8ee0711a94bfd6a61ca28ec3c4aa22a33d27d8",
			},
			Body: `{"key": "value"}`,
		},
	}

	_inst := validation.WebhookSecret("key")
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			if err := _inst.ValidateSignature([]byte(tc.Body), tc.Headers); (err != nil) != tc.ExpectError {
				t.Errorf("WebhookSecret.ValidateSignature() error = %v, expectError %v", err, tc.ExpectError)
			}
		})
	}
}

func TestWebhookSecret_SignRoundTrip(t *testing.T) {
	secret := validation.NewWebhookSecret("another-key")
	body := []byte(`{"type":"user_info","content":"profile updated"}`)
	signature := secret.Sign(body)

	headers := map[string]string{validation.SignatureHeader: signature}
	if err := secret.ValidateSignature(body, headers); err != nil {
		t.Fatalf("expected self-signed payload to validate, got %v", err)
	}

	// A single flipped bit in the body must invalidate the signature.
	tampered := append([]byte(nil), body...)
	tampered[0] ^= 0x01
	if err := secret.ValidateSignature(tampered, headers); err == nil {
		t.Fatal("expected tampered payload to fail validation")
	}

	// A single flipped bit in the signature must also fail.
	flipped := []byte(signature)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	headers[validation.SignatureHeader] = string(flipped)
	if err := secret.ValidateSignature(body, headers); err == nil {
		t.Fatal("expected mutated signature to fail validation")
	}
}

func TestWebhookSecret_MissingSecret(t *testing.T) {
	var nilSecret *validation.WebhookSecret
	if err := nilSecret.ValidateSignature([]byte("{}"), map[string]string{
		validation.SignatureHeader: strings.Repeat("ab", 32),
	}); err == nil {
		t.Fatal("expected nil secret to fail validation")
	}
}
