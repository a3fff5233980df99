package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "PESTICIDE_CONFIG"

// ErrNoDatabase is returned by Load when no database URL is configured.
var ErrNoDatabase = errors.New("DATABASE_URL not set")

type Config struct {
	Env              string        `yaml:"env"`
	ListenAddr       string        `yaml:"listenAddr"`
	DatabaseURL      string        `yaml:"databaseUrl"`
	ExtractorURL     string        `yaml:"extractorUrl"`
	ExtractorTimeout time.Duration `yaml:"extractorTimeout"`
	LogLevel         string        `yaml:"logLevel"`
	AutoMigrate      bool          `yaml:"autoMigrate"`
	MaxUploadBytes   int64         `yaml:"maxUploadBytes"`
	MaxConnections   int           `yaml:"maxConnections"`
	CORSOrigins      []string      `yaml:"corsOrigins"`
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func defaults() Config {
	return Config{
		Env:              "development",
		ListenAddr:       ":8080",
		ExtractorURL:     "http://localhost:8000",
		ExtractorTimeout: 60 * time.Second,
		LogLevel:         "info",
		MaxUploadBytes:   20 << 20,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// PESTICIDE_CONFIG, a .env file and the environment, in that order. A missing
// DATABASE_URL is reported as ErrNoDatabase along with the rest of the config
// so callers can decide.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = merge(cfg, fileCfg)
	}
	cfg.applyEnvOverrides()

	if cfg.DatabaseURL == "" {
		return cfg, ErrNoDatabase
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Env = getenv("APP_ENV", c.Env)
	c.ListenAddr = getenv("LISTEN_ADDR", c.ListenAddr)
	c.DatabaseURL = getenv("DATABASE_URL", c.DatabaseURL)
	c.ExtractorURL = getenv("EXTRACTOR_URL", c.ExtractorURL)
	c.ExtractorTimeout = getenvDuration("EXTRACTOR_TIMEOUT", c.ExtractorTimeout)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.AutoMigrate = getenvBool("AUTO_MIGRATE", c.AutoMigrate)
	c.MaxUploadBytes = int64(getenvInt("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))
	c.MaxConnections = getenvInt("MAX_CONNECTIONS", c.MaxConnections)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
}

func merge(base, override Config) Config {
	if override.Env != "" {
		base.Env = override.Env
	}
	if override.ListenAddr != "" {
		base.ListenAddr = override.ListenAddr
	}
	if override.DatabaseURL != "" {
		base.DatabaseURL = override.DatabaseURL
	}
	if override.ExtractorURL != "" {
		base.ExtractorURL = override.ExtractorURL
	}
	if override.ExtractorTimeout > 0 {
		base.ExtractorTimeout = override.ExtractorTimeout
	}
	if override.LogLevel != "" {
		base.LogLevel = override.LogLevel
	}
	if override.AutoMigrate {
		base.AutoMigrate = true
	}
	if override.MaxUploadBytes > 0 {
		base.MaxUploadBytes = override.MaxUploadBytes
	}
	if override.MaxConnections > 0 {
		base.MaxConnections = override.MaxConnections
	}
	if len(override.CORSOrigins) > 0 {
		base.CORSOrigins = override.CORSOrigins
	}
	return base
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return out
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if out, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return out
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
