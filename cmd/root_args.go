package cmd

import (
	"time"

	"github.com/meridianstays/booking-webhook-app/internal/config"
	"github.com/meridianstays/booking-webhook-app/internal/helpers"
)

var envMapString = map[*string]boundEnvVar[string]{
	&config.Global.Mode: {
		Name:        "mode",
		Description: "The application runtime mode. Possible values are 'service' and 'lambda'",
		Short:       helpers.Ptr("m"),
	},
	&config.Webhook.AuthMode: {
		Name:        "webhook-auth-mode",
		Description: "Shared-secret provider. Supported values are 'env' and 'ssm'",
		Short:       helpers.Ptr("A"),
	},
	&config.Webhook.Secret: {
		Name:        "webhook-secret",
		Description: "The shared secret used to validate inbound payload signatures",
		Env:         helpers.Ptr("WEBHOOK_SECRET"),
	},
	&config.Webhook.SecretSSMKey: {
		Name:        "webhook-secret-ssm-key",
		Description: "The SSM parameter key to fetch the shared secret from when auth mode is 'ssm'",
	},
	&config.Agent.URL: {
		Name:        "agent-url",
		Description: "The base URL of the conversational-agent collaborator",
		Env:         helpers.Ptr("AGENT_URL"),
	},
	&config.Store.URL: {
		Name:        "store-url",
		Description: "The base URL of the persistence collaborator",
		Env:         helpers.Ptr("STORE_URL"),
	},
	&config.Store.APIKey: {
		Name:        "store-api-key",
		Description: "The API key used to authenticate persistence calls",
		Env:         helpers.Ptr("STORE_API_KEY"),
	},
	&config.Global.S3.Archive.BucketName: {
		Name:        "payload-archive-s3-bucket",
		Description: "The S3 bucket to archive accepted raw payloads to",
		Env:         helpers.Ptr("PAYLOAD_ARCHIVE_S3_BUCKET"),
	},
}

var envMapBool = map[*bool]boundEnvVar[bool]{
	&config.Global.Logging.CallerTrace: {
		Name:        "verbosity-caller-trace",
		Description: "Enable caller trace in logs",
		Short:       helpers.Ptr("V"),
	},
	&config.Webhook.TrustProxy: {
		Name:        "webhook-trust-proxy",
		Description: "Derive the client identity from the X-Forwarded-For header set by a trusted proxy",
	},
	&config.Webhook.AcceptUnknownTypes: {
		Name:        "webhook-accept-unknown-types",
		Description: "Accept-and-ignore messages of unregistered types instead of rejecting them",
	},
	&config.Global.S3.Archive.Enabled: {
		Name:        "payload-archive-s3",
		Description: "Enable S3 archiving of accepted raw payloads",
		Env:         helpers.Ptr("PAYLOAD_ARCHIVE_S3"),
	},
}

var envMapCount = map[*int]boundEnvVar[int]{
	&config.Global.Logging.Verbosity: {
		Name:        "verbosity",
		Description: "Increase logger verbosity (default WarnLevel)",
		Short:       helpers.Ptr("v"),
	},
}

var envMapInt64 = map[*int64]boundEnvVar[int64]{
	&config.Webhook.MaxPayloadSize: {
		Name:        "webhook-max-payload-size",
		Description: "The maximum accepted request body size in bytes",
	},
	&config.Webhook.RateLimit: {
		Name:        "webhook-rate-limit",
		Description: "The maximum number of requests accepted per client identity within the rate window",
	},
}

var envMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.Webhook.RateWindow: {
		Name:        "webhook-rate-window",
		Description: "The trailing window the rate limit is counted over",
	},
	&config.Agent.Timeout: {
		Name:        "agent-timeout",
		Description: "The timeout for a single agent invocation",
	},
	&config.Store.Timeout: {
		Name:        "store-timeout",
		Description: "The timeout for a single persistence call",
	},
}
