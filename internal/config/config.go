package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes the environment variables read by Load. Nested keys use a
// double underscore, e.g. MOBVIBE_AI__API_KEY sets ai.api_key.
const EnvPrefix = "MOBVIBE_"

type Config struct {
	ServerAddr       string          `koanf:"server_addr"`
	DatabaseDSN      string          `koanf:"database_dsn"`
	SigningSecret    string          `koanf:"signing_key"`
	AllowedOrigins   []string        `koanf:"allowed_origins"`
	PresenceInterval time.Duration   `koanf:"presence_interval"`
	LastSeenInterval time.Duration   `koanf:"last_seen_interval"`
	LogLevel         string          `koanf:"log_level"`
	LogFormat        string          `koanf:"log_format"`
	AI               AIConfig        `koanf:"ai"`
	RateLimit        RateLimitConfig `koanf:"rate_limit"`

	// SigningKey is the decoded SigningSecret.
	SigningKey []byte `koanf:"-"`
}

type AIConfig struct {
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"`
	Model     string        `koanf:"model"`
	MaxTokens int           `koanf:"max_tokens"`
	Timeout   time.Duration `koanf:"timeout"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

func defaultConfig() *Config {
	return &Config{
		ServerAddr:       "localhost:8000",
		DatabaseDSN:      "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable",
		PresenceInterval: time.Second,
		LastSeenInterval: 30 * time.Second,
		LogLevel:         "info",
		LogFormat:        "json",
		AI: AIConfig{
			BaseURL:   "https://api.anthropic.com",
			Model:     "claude-3-7-sonnet-latest",
			MaxTokens: 1024,
			Timeout:   2 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
		},
	}
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("signing secret is empty")
	}

	return key, nil
}

// NewConfig builds a validated config from explicit values on top of the
// defaults.
func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	cfg := defaultConfig()
	cfg.ServerAddr = serverAddr
	cfg.DatabaseDSN = databaseDSN
	cfg.SigningSecret = base64Secret
	cfg.AllowedOrigins = allowedOrigins

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load layers defaults, the optional YAML file at path and MOBVIBE_
// environment variables, applies overrides in order and validates the result.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks required values and decodes the signing key.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.SigningSecret == "" {
		return fmt.Errorf("signing secret cannot be empty")
	}
	if c.PresenceInterval <= 0 {
		return fmt.Errorf("presence interval must be positive")
	}
	if c.LastSeenInterval <= 0 {
		return fmt.Errorf("last seen interval must be positive")
	}

	signingKey, err := decodeSigningSecret(c.SigningSecret)
	if err != nil {
		return fmt.Errorf("decode signing secret: %w", err)
	}
	c.SigningKey = signingKey

	return nil
}
