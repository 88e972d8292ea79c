// Package config loads environment-derived configuration. Operational knobs
// (port, data directory) come from CLI flags; everything secret or
// deployment-specific comes from the environment, with a .env file honoured
// for local development.
package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the process environment. JWTSecret is always required; the
// Twilio block is required only when the twilio broker is selected and the
// S3 block only for the s3 storage backend, both validated at startup.
type Config struct {
	JWTSecret string `envconfig:"JWT_SECRET"`

	TwilioAccountSID       string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken        string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioVerifyServiceSID string `envconfig:"TWILIO_VERIFY_SERVICE_SID"`

	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3KeyPrefix string `envconfig:"S3_KEY_PREFIX" default:"uploads"`

	// StaticCode is the one-time code accepted by the static broker.
	StaticCode string `envconfig:"STATIC_VERIFY_CODE" default:"000000"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// Missing .env is fine; variables may come from the real environment.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &cfg, nil
}

// ValidateTwilio checks the variables the twilio broker needs.
func (c *Config) ValidateTwilio() error {
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioVerifyServiceSID == "" {
		return errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_VERIFY_SERVICE_SID are required for the twilio broker")
	}
	return nil
}

// ValidateS3 checks the variables the s3 storage backend needs.
func (c *Config) ValidateS3() error {
	if c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required for the s3 storage backend")
	}
	return nil
}
