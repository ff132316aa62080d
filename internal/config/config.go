package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	API      APIConfig
	Session  SessionConfig
	RedisURL string

	// DatabaseURL enables the postgres audit archive when set.
	DatabaseURL string

	Events EventsConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	TTL                time.Duration
	RevalidateInterval time.Duration
	CookieSecure       bool
}

type EventsConfig struct {
	KafkaBrokers []string
	Topic        string
}

// IsProduction reports whether the portal runs with production settings.
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// IsDevelopment reports whether the portal runs with development settings.
func (c *Config) IsDevelopment() bool { return c.Environment == EnvDevelopment }

// source resolves a key from the runtime override file first, then the
// process environment.
type source struct {
	overrides map[string]string
}

func (s source) get(key, def string) string {
	if v, ok := s.overrides[key]; ok && v != "" {
		return v
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (s source) duration(key string, def time.Duration) (time.Duration, error) {
	raw := s.get(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}

// LoadConfig reads .env (when present), the runtime override file named by
// RUNTIME_ENV_FILE and the environment, in that order of precedence:
// override file, environment, defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	overrides, err := loadOverrides(envOr("RUNTIME_ENV_FILE", "env.json"))
	if err != nil {
		return nil, err
	}
	return fromSource(source{overrides: overrides})
}

func fromSource(src source) (*Config, error) {
	cfg := &Config{
		Port:        src.get("PORT", "8080"),
		Environment: src.get("ENVIRONMENT", EnvDevelopment),
		RedisURL:    src.get("REDIS_URL", ""),
		DatabaseURL: src.get("DATABASE_URL", ""),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(src.get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg.API.BaseURL = strings.TrimRight(src.get("API_BASE_URL", ""), "/")
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}

	var err error
	if cfg.API.Timeout, err = src.duration("API_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Session.TTL, err = src.duration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Session.RevalidateInterval, err = src.duration("SESSION_REVALIDATE_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	secure := src.get("SESSION_COOKIE_SECURE", "")
	if secure == "" {
		cfg.Session.CookieSecure = cfg.IsProduction()
	} else if cfg.Session.CookieSecure, err = strconv.ParseBool(secure); err != nil {
		return nil, fmt.Errorf("SESSION_COOKIE_SECURE must be a boolean, got %q", secure)
	}

	if brokers := src.get("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Events.KafkaBrokers = append(cfg.Events.KafkaBrokers, b)
			}
		}
	}
	cfg.Events.Topic = src.get("EVENTS_TOPIC", "portal.events")

	return cfg, nil
}

// loadOverrides reads a flat JSON object of string values injected at deploy
// time. A missing file is not an error.
func loadOverrides(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read runtime env %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse runtime env %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
