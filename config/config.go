package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tautils/internal/errs"
)

// FileEnv names the optional YAML file layered under the environment.
const FileEnv = "TAUTILS_CONFIG"

// Config holds all application configuration. Precedence is environment,
// then the YAML file named by TAUTILS_CONFIG, then the defaults below.
type Config struct {
	ServiceName string `yaml:"service_name" default:"tautils-evaluate" validate:"required"`
	LogLevel    string `yaml:"log_level" default:"info" validate:"oneof=trace debug info warn error"`

	// Inputs
	StrategyPath string `yaml:"strategy_path" default:"strategies.yaml" validate:"required"`
	SQLitePath   string `yaml:"sqlite_path" default:"data/candles.db" validate:"required"`

	// Symbols to replay, comma-separated. Empty means every symbol in the
	// bars table.
	Symbols string `yaml:"symbols"`

	// Infrastructure. An empty RedisAddr disables the latest-output cache.
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
	LatestTTL     time.Duration `yaml:"latest_ttl" default:"10m" validate:"gt=0"`
	MetricsAddr   string        `yaml:"metrics_addr" default:":9090"`

	// Engine
	SignalBuffer int `yaml:"signal_buffer" default:"256" validate:"gte=1"`
	BatchSize    int `yaml:"batch_size" default:"500" validate:"gte=1,lte=10000"`
}

var validate = validator.New()

// Load builds the configuration from defaults, the optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path := os.Getenv(FileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, errs.InvalidParameter("config: %v", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.ServiceName = getEnv("SERVICE_NAME", c.ServiceName)
	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
	c.StrategyPath = getEnv("STRATEGY_PATH", c.StrategyPath)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.Symbols = getEnv("SYMBOLS", c.Symbols)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)

	var err error
	if c.RedisDB, err = getEnvInt("REDIS_DB", c.RedisDB); err != nil {
		return err
	}
	if c.SignalBuffer, err = getEnvInt("SIGNAL_BUFFER", c.SignalBuffer); err != nil {
		return err
	}
	if c.BatchSize, err = getEnvInt("BATCH_SIZE", c.BatchSize); err != nil {
		return err
	}
	if v := os.Getenv("LATEST_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errs.InvalidParameter("LATEST_TTL=%s", v)
		}
		c.LatestTTL = d
	}
	return nil
}

// ParseSymbols splits Symbols into a list, skipping blanks.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errs.InvalidParameter("%s=%s", key, v)
	}
	return n, nil
}
