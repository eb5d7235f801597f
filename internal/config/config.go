// Package config loads the process configuration from DEPOSITWATCH_*
// environment variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/gabapcia/depositwatch/internal/pkg/validator"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix of every environment variable read by Load.
const Prefix = "DEPOSITWATCH"

const (
	ModeNative = "native"
	ModeToken  = "token"
)

const (
	WalletSourceFile  = "file"
	WalletSourceRedis = "redis"
)

const (
	StateStoreMemory = "memory"
	StateStoreRedis  = "redis"
)

type (
	// NodeConfig configures the JSON-RPC connection to the node.
	NodeConfig struct {
		URL       string        `default:"http://127.0.0.1:8545/" validate:"required,http_url"`
		Timeout   time.Duration `default:"10s"`
		RetryMax  int           `split_words:"true" default:"2" validate:"gte=0"`
		RateLimit float64       `split_words:"true" default:"0" validate:"gte=0"`
		RateBurst int           `split_words:"true" default:"1" validate:"gte=0"`
	}

	// WebhookConfig holds the notification endpoint and its credentials.
	WebhookConfig struct {
		CallbackURL string        `split_words:"true" validate:"required,http_url"`
		APIKey      string        `envconfig:"API_KEY" validate:"required"`
		APISecret   string        `envconfig:"API_SECRET" validate:"required"`
		Timeout     time.Duration `default:"10s"`
		RetryMax    int           `split_words:"true" default:"0" validate:"gte=0"`
	}

	// RedisConfig locates the Redis server used by the redis wallet source
	// and state store.
	RedisConfig struct {
		Addr     string `default:"localhost:6379"`
		Username string
		Password string
		DB       int `default:"0" validate:"gte=0"`
	}

	// TelemetryConfig toggles the OTLP exporters.
	TelemetryConfig struct {
		Enabled     bool   `default:"false"`
		ServiceName string `split_words:"true" default:"depositwatch" validate:"required"`
	}

	// Config is the whole process configuration, read from DEPOSITWATCH_*
	// variables.
	Config struct {
		Mode          string `default:"native" validate:"oneof=native token"`
		Currency      string
		Decimals      uint8  `default:"18"`
		TokenContract string `split_words:"true" validate:"required_if=Mode token"`
		WalletSource  string `split_words:"true" default:"file" validate:"oneof=file redis"`
		WalletsFile   string `split_words:"true" default:"wallets.txt"`
		StateStore    string `split_words:"true" default:"memory" validate:"oneof=memory redis"`
		LogLevel      string `split_words:"true" default:"info" validate:"oneof=debug info warn error"`

		SuccessDelay time.Duration `split_words:"true" default:"1s"`
		FailureDelay time.Duration `split_words:"true" default:"30s"`

		Node      NodeConfig
		Webhook   WebhookConfig
		Redis     RedisConfig
		Telemetry TelemetryConfig
	}
)

// UsesRedis reports whether any store is configured on Redis.
func (c Config) UsesRedis() bool {
	return c.WalletSource == WalletSourceRedis || c.StateStore == StateStoreRedis
}

// Namespace identifies the watcher in durable state, so native and token
// watchers sharing a Redis never read each other's ledgers.
func (c Config) Namespace() string {
	if c.Mode == ModeToken {
		return ModeToken + ":" + strings.ToLower(c.TokenContract)
	}
	return ModeNative
}

// applyDefaults fills the values that depend on other fields.
func (c *Config) applyDefaults() {
	if c.Currency == "" && c.Mode == ModeNative {
		c.Currency = "ETH"
	}
}

func (c Config) validate() error {
	if err := validator.Validate(c); err != nil {
		return err
	}

	if c.Mode == ModeToken {
		if err := validator.Var(c.TokenContract, "eth_addr"); err != nil {
			return fmt.Errorf("token contract: %w", err)
		}
		if c.Currency == "" {
			return fmt.Errorf("%w: currency is required in token mode", validator.ErrValidationFailed)
		}
	}

	return nil
}

// Load reads .env from the working directory when present, then the
// environment, and validates the result. Variables already set in the
// environment win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	return FromEnv()
}

// FromEnv is Load without the .env file.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, err
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
