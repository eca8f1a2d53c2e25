// Package config provides a centralized entrypoint for the application parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

var (
	// Global is a struct that contains the global configuration.
	Global global
	// Webhook is a struct that contains the webhook ingestion configuration.
	Webhook webhook
	// Agent is a struct that contains the configuration for the conversational agent collaborator.
	Agent agent
	// Store is a struct that contains the configuration for the persistence collaborator.
	Store store
	// Service is a struct that contains the configuration for the service mode.
	Service service
	// Lambda is a struct that contains the configuration for the lambda mode.
	Lambda lambda
)

// ModeService and ModeLambda are the supported runtime modes.
const (
	ModeService = "service"
	ModeLambda  = "lambda"
)

type global struct {
	// Mode is the runtime mode of the application.
	Mode string `yaml:"mode,omitempty" default:"service"`
	// Logging is a struct that contains the logging configuration.
	Logging struct {
		// Verbosity is the verbosity level of the application. It represents slog levels.
		Verbosity int `yaml:"verbosity,omitempty"`
		// CallerTrace is a flag that enables the caller trace in the logger.
		CallerTrace bool `yaml:"callerTrace,omitempty"`
	} `yaml:"logging,omitempty"`
	// S3 is a struct that contains the configuration for the payload archive.
	S3 struct {
		Archive struct {
			BucketName string `yaml:"bucketName,omitempty"`
			Enabled    bool   `yaml:"enabled,omitempty"`
		} `yaml:"archive,omitempty"`
	} `yaml:"s3,omitempty"`
}

type webhook struct {
	// AuthMode selects where the shared secret is read from. Supported values are 'env' and 'ssm'.
	AuthMode string `yaml:"authMode,omitempty" default:"env"`
	// Secret is the shared secret used to validate inbound payload signatures.
	Secret string `yaml:"secret,omitempty"`
	// SecretSSMKey is the SSM parameter key holding the shared secret when authMode is 'ssm'.
	SecretSSMKey string `yaml:"secretSSMKey,omitempty"`
	// MaxPayloadSize is the maximum accepted request body size in bytes.
	MaxPayloadSize int64 `yaml:"maxPayloadSize,omitempty" default:"1048576"`
	// RateLimit is the maximum number of requests accepted per identity within RateWindow.
	RateLimit int64 `yaml:"rateLimit,omitempty" default:"50"`
	// RateWindow is the trailing window the rate limit is counted over.
	RateWindow time.Duration `yaml:"rateWindow,omitempty" default:"60s"`
	// TrustProxy enables deriving the client identity from the X-Forwarded-For header.
	TrustProxy bool `yaml:"trustProxy,omitempty"`
	// AcceptUnknownTypes routes messages with an unregistered type to a discard
	// processor instead of rejecting them.
	AcceptUnknownTypes bool `yaml:"acceptUnknownTypes,omitempty"`
}

type agent struct {
	// URL is the base URL of the agent collaborator.
	URL string `yaml:"url,omitempty"`
	// Timeout bounds a single agent invocation.
	Timeout time.Duration `yaml:"timeout,omitempty" default:"30s"`
}

type store struct {
	// URL is the base URL of the persistence collaborator.
	URL string `yaml:"url,omitempty"`
	// APIKey authenticates persistence calls.
	APIKey string `yaml:"apiKey,omitempty"`
	// Timeout bounds a single persistence call.
	Timeout time.Duration `yaml:"timeout,omitempty" default:"10s"`
}

type service struct {
	// Prefix is an optional URL path prefix the webhook surface is mounted under.
	Prefix  string        `yaml:"prefix,omitempty"`
	Addr    string        `yaml:"addr,omitempty"`
	Port    string        `yaml:"port,omitempty" default:"8080"`
	Timeout time.Duration `yaml:"timeout,omitempty" default:"10s"`
}

type lambda struct {
	PayloadType string `yaml:"payloadType,omitempty" default:"api-gateway-v2"`
}

// SetDefaults sets the default values for the configuration.
func SetDefaults() error {
	return errors.Join(
		defaults.Set(&Global),
		defaults.Set(&Webhook),
		defaults.Set(&Agent),
		defaults.Set(&Store),
		defaults.Set(&Service),
		defaults.Set(&Lambda),
	)
}

// LoadFromFile loads the configuration from a file.
func LoadFromFile(path string) error {
	if len(path) == 0 {
		return nil
	}
	fstat, err := os.Stat(path)
	if err != nil {
		return nil //nolint:nilerr // If the file does not exist, we ignore it.
	}
	if fstat.IsDir() {
		return fmt.Errorf("configuration file %s is a directory", path)
	}
	if !fstat.Mode().IsRegular() {
		return fmt.Errorf("configuration file %s is not a regular file", path)
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	type all struct {
		Global  global  `yaml:"global,omitempty"`
		Webhook webhook `yaml:"webhook,omitempty"`
		Agent   agent   `yaml:"agent,omitempty"`
		Store   store   `yaml:"store,omitempty"`
		Service service `yaml:"service,omitempty"`
		Lambda  lambda  `yaml:"lambda,omitempty"`
	}
	var a all
	if err = yaml.Unmarshal(content, &a); err != nil {
		return fmt.Errorf("failed to unmarshal configuration file %s: %w", path, err)
	}
	Global = a.Global
	Webhook = a.Webhook
	Agent = a.Agent
	Store = a.Store
	Service = a.Service
	Lambda = a.Lambda

	return nil
}
