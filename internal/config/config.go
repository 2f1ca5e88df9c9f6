// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty until DB is wired.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// TokenSecret is the server-held secret keying the HMAC over rotating check-in tokens. Required.
	TokenSecret string `mapstructure:"TOKEN_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; signs instructor access tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; verifies instructor access tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim; required when instructor auth is enabled.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim; required when instructor auth is enabled.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the instructor access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// RotationIntervalMS is the default token rotation cadence for new sessions, in milliseconds.
	RotationIntervalMS int `mapstructure:"ROTATION_INTERVAL_MS"`
	// SessionDurationMin is the default session length computed at start, in minutes.
	SessionDurationMin int `mapstructure:"SESSION_DURATION_MIN"`
	// LateAfterMin is the default late threshold measured from session start, in minutes.
	LateAfterMin int `mapstructure:"LATE_AFTER_MIN"`

	// TrustPenalty is the trust-score decrement applied per device mismatch event.
	TrustPenalty int `mapstructure:"TRUST_PENALTY"`
	// TrustRecovery is the bounded trust-score increment per clean owner check-in.
	TrustRecovery int `mapstructure:"TRUST_RECOVERY"`
	// TrustFloor marks a binding suspicious when its score falls below this value.
	TrustFloor int `mapstructure:"TRUST_FLOOR"`
	// MultiDeviceWindowMin is the rolling window, in minutes, for the multipleDevices signal.
	MultiDeviceWindowMin int `mapstructure:"MULTI_DEVICE_WINDOW_MIN"`

	// RateLimitRPS is the sustained per-client check-in rate; RateLimitBurst the burst allowance.
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317); empty disables telemetry.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("TOKEN_SECRET", "")
	v.SetDefault("JWT_ISSUER", "attendance-auth")
	v.SetDefault("JWT_AUDIENCE", "attendance-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ROTATION_INTERVAL_MS", 30000)
	v.SetDefault("SESSION_DURATION_MIN", 60)
	v.SetDefault("LATE_AFTER_MIN", 15)
	v.SetDefault("TRUST_PENALTY", 15)
	v.SetDefault("TRUST_RECOVERY", 2)
	v.SetDefault("TRUST_FLOOR", 50)
	v.SetDefault("MULTI_DEVICE_WINDOW_MIN", 10)
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.TokenSecret == "" {
		return nil, errors.New("config: TOKEN_SECRET must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.RotationIntervalMS <= 0 {
		return nil, errors.New("config: ROTATION_INTERVAL_MS must be positive")
	}
	if cfg.TrustFloor < 0 || cfg.TrustFloor > 100 {
		return nil, errors.New("config: TRUST_FLOOR must be between 0 and 100")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RotationInterval returns the default rotation cadence as a duration.
func (c *Config) RotationInterval() time.Duration {
	return time.Duration(c.RotationIntervalMS) * time.Millisecond
}

// SessionDuration returns the default session length as a duration.
func (c *Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionDurationMin) * time.Minute
}

// LateAfter returns the default late threshold as a duration from session start.
func (c *Config) LateAfter() time.Duration {
	return time.Duration(c.LateAfterMin) * time.Minute
}

// MultiDeviceWindow returns the rolling window for the multipleDevices signal.
func (c *Config) MultiDeviceWindow() time.Duration {
	return time.Duration(c.MultiDeviceWindowMin) * time.Minute
}
