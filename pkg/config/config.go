package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrMissingToken = errors.New("telegram token is required")
	ErrMissingOwner = errors.New("telegram owner_id is required")
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Relay    RelayConfig    `json:"relay"`
	Gateway  GatewayConfig  `json:"gateway"`
	Digest   DigestConfig   `json:"digest"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	Token   string `env:"PICORELAY_TELEGRAM_TOKEN"    json:"token"`
	Proxy   string `env:"PICORELAY_TELEGRAM_PROXY"    json:"proxy"`
	OwnerID int64  `env:"PICORELAY_TELEGRAM_OWNER_ID" json:"owner_id"`
	// AllowFrom lists extra operators besides the owner.
	AllowFrom FlexibleStringSlice `env:"PICORELAY_TELEGRAM_ALLOW_FROM" json:"allow_from"`
}

type RelayConfig struct {
	ThreadsFile      string `env:"PICORELAY_RELAY_THREADS_FILE"       json:"threads_file"`
	SendIntervalMS   int    `env:"PICORELAY_RELAY_SEND_INTERVAL_MS"   json:"send_interval_ms"`
	SendBurst        int    `env:"PICORELAY_RELAY_SEND_BURST"         json:"send_burst"`
	FallbackToSender bool   `env:"PICORELAY_RELAY_FALLBACK_TO_SENDER" json:"fallback_to_sender"`
	MediaDir         string `env:"PICORELAY_RELAY_MEDIA_DIR"          json:"media_dir"`
	PhotoLimit       int    `env:"PICORELAY_RELAY_PHOTO_LIMIT"        json:"photo_limit"`
}

// SendInterval is the minimum spacing between outbound sends.
func (r RelayConfig) SendInterval() time.Duration {
	return time.Duration(r.SendIntervalMS) * time.Millisecond
}

type GatewayConfig struct {
	Host string `env:"PICORELAY_GATEWAY_HOST" json:"host"`
	// Port 0 disables the health server.
	Port int `env:"PICORELAY_GATEWAY_PORT" json:"port"`
}

// Addr is the listen address of the health server.
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

type DigestConfig struct {
	Enabled bool   `env:"PICORELAY_DIGEST_ENABLED" json:"enabled"`
	Cron    string `env:"PICORELAY_DIGEST_CRON"    json:"cron"`
}

type LoggingConfig struct {
	Level  string `env:"PICORELAY_LOGGING_LEVEL"  json:"level"`
	Format string `env:"PICORELAY_LOGGING_FORMAT" json:"format"`
}

// LoadDotEnv loads a .env file into the process environment. Variables
// already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadConfig applies, in order: defaults, the JSON file at path (if it
// exists), then PICORELAY_* environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Relay.ThreadsFile = expandHome(cfg.Relay.ThreadsFile)
	cfg.Relay.MediaDir = expandHome(cfg.Relay.MediaDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks settings every command relies on. Telegram credentials
// are checked separately by ValidateForRun.
func (c *Config) Validate() error {
	if c.Relay.ThreadsFile == "" {
		return errors.New("relay.threads_file is required")
	}
	if c.Relay.SendIntervalMS < 0 {
		return fmt.Errorf("relay.send_interval_ms must be >= 0, got %d", c.Relay.SendIntervalMS)
	}
	if c.Relay.PhotoLimit < 0 {
		return fmt.Errorf("relay.photo_limit must be >= 0, got %d", c.Relay.PhotoLimit)
	}
	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port out of range: %d", c.Gateway.Port)
	}
	if c.Digest.Enabled && !gronx.IsValid(c.Digest.Cron) {
		return fmt.Errorf("digest.cron is not a valid cron expression: %q", c.Digest.Cron)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// ValidateForRun checks what the live bot needs on top of Validate.
func (c *Config) ValidateForRun() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrMissingToken
	}
	if c.Telegram.OwnerID == 0 {
		return ErrMissingOwner
	}
	return nil
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
