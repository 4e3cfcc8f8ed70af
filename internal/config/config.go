package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/binpack3d/internal/events"
	"github.com/eugenenazirov/binpack3d/internal/packing"
	"github.com/eugenenazirov/binpack3d/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultPackTimeout    = 10 * time.Second
	defaultCacheSize      = 256
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	Packing              PackingConfig
	CacheSize            int
	NATS                 NATSConfig
	// Containers are presets added to, or replacing, the built-in ones.
	Containers []storage.Profile
}

// PackingConfig holds the engine defaults applied to every request.
type PackingConfig struct {
	Method       string
	Lookahead    int
	WorkingRange float64
	AnchorCap    int
	Order        string
	Timeout      time.Duration
}

// NATSConfig enables result events when URL is set.
type NATSConfig struct {
	URL     string
	Subject string
}

// yamlConfig represents the YAML configuration file structure. Pointer
// fields distinguish "absent" from an explicit zero.
type yamlConfig struct {
	Port                 string            `yaml:"port"`
	LogLevel             string            `yaml:"log_level"`
	ShutdownGracePeriod  string            `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string            `yaml:"read_header_timeout"`
	WriteTimeout         string            `yaml:"write_timeout"`
	IdleTimeout          string            `yaml:"idle_timeout"`
	EnableRequestLogging *bool             `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit     `yaml:"rate_limit"`
	Packing              yamlPacking       `yaml:"packing"`
	Cache                yamlCache         `yaml:"cache"`
	NATS                 yamlNATS          `yaml:"nats"`
	Containers           []storage.Profile `yaml:"containers"`
}

type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlPacking struct {
	Method       string   `yaml:"method"`
	Lookahead    *int     `yaml:"lookahead"`
	WorkingRange *float64 `yaml:"working_range"`
	AnchorCap    *int     `yaml:"anchor_cap"`
	Order        string   `yaml:"order"`
	Timeout      string   `yaml:"timeout"`
}

type yamlCache struct {
	Size *int `yaml:"size"`
}

type yamlNATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	PackMethod     *string
	Lookahead      *int
	WorkingRange   *float64
	NATSURL        *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	applyEnvConfig(&cfg)

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		Packing: PackingConfig{
			Method:    packing.BestLookahead.String(),
			Lookahead: packing.DefaultLookahead,
			AnchorCap: packing.DefaultAnchorCap,
			Order:     packing.OrderInput.String(),
			Timeout:   defaultPackTimeout,
		},
		CacheSize: defaultCacheSize,
		NATS:      NATSConfig{Subject: events.DefaultSubject},
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{"packing.timeout", yamlCfg.Packing.Timeout, &cfg.Packing.Timeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Packing.Method != "" {
		cfg.Packing.Method = yamlCfg.Packing.Method
	}
	if yamlCfg.Packing.Lookahead != nil {
		cfg.Packing.Lookahead = *yamlCfg.Packing.Lookahead
	}
	if yamlCfg.Packing.WorkingRange != nil {
		cfg.Packing.WorkingRange = *yamlCfg.Packing.WorkingRange
	}
	if yamlCfg.Packing.AnchorCap != nil {
		cfg.Packing.AnchorCap = *yamlCfg.Packing.AnchorCap
	}
	if yamlCfg.Packing.Order != "" {
		cfg.Packing.Order = yamlCfg.Packing.Order
	}
	if yamlCfg.Cache.Size != nil {
		cfg.CacheSize = *yamlCfg.Cache.Size
	}

	if yamlCfg.NATS.URL != "" {
		cfg.NATS.URL = yamlCfg.NATS.URL
	}
	if yamlCfg.NATS.Subject != "" {
		cfg.NATS.Subject = yamlCfg.NATS.Subject
	}

	if len(yamlCfg.Containers) > 0 {
		cfg.Containers = yamlCfg.Containers
	}
	return nil
}

// applyEnvConfig applies environment variable configuration. Malformed
// values are ignored and the previous value is kept.
func applyEnvConfig(cfg *Config) {
	if port := env("PORT"); port != "" {
		cfg.Port = port
	}
	if level := env("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}
	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if method := env("PACK_METHOD"); method != "" {
		cfg.Packing.Method = method
	}
	if k := env("PACK_LOOKAHEAD"); k != "" {
		if value, err := strconv.Atoi(k); err == nil {
			cfg.Packing.Lookahead = value
		}
	}
	if wr := env("PACK_WORKING_RANGE"); wr != "" {
		if value, err := strconv.ParseFloat(wr, 64); err == nil && value >= 0 {
			cfg.Packing.WorkingRange = value
		}
	}
	if order := env("PACK_ORDER"); order != "" {
		cfg.Packing.Order = order
	}
	if timeout := env("PACK_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Packing.Timeout = d
		}
	}
	if size := env("CACHE_SIZE"); size != "" {
		if value, err := strconv.Atoi(size); err == nil && value >= 0 {
			cfg.CacheSize = value
		}
	}

	if url := env("NATS_URL"); url != "" {
		cfg.NATS.URL = url
	}
	if subject := env("NATS_SUBJECT"); subject != "" {
		cfg.NATS.Subject = subject
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
	if overrides.PackMethod != nil && *overrides.PackMethod != "" {
		cfg.Packing.Method = *overrides.PackMethod
	}
	if overrides.Lookahead != nil && *overrides.Lookahead > 0 {
		cfg.Packing.Lookahead = *overrides.Lookahead
	}
	if overrides.WorkingRange != nil && *overrides.WorkingRange >= 0 {
		cfg.Packing.WorkingRange = *overrides.WorkingRange
	}
	if overrides.NATSURL != nil && *overrides.NATSURL != "" {
		cfg.NATS.URL = *overrides.NATSURL
	}
}

// validateConfig validates the final configuration and reports every problem.
func validateConfig(cfg Config) error {
	var errs error
	if cfg.RateLimitRPS < 0 {
		errs = multierr.Append(errs, fmt.Errorf("RATE_LIMIT_RPS must be >= 0"))
	}
	if cfg.RateLimitBurst < 0 {
		errs = multierr.Append(errs, fmt.Errorf("RATE_LIMIT_BURST must be >= 0"))
	}
	if _, err := packing.ParseMethod(cfg.Packing.Method); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.Packing.Lookahead < 1 || cfg.Packing.Lookahead > packing.MaxLookahead {
		errs = multierr.Append(errs, fmt.Errorf("packing lookahead must be in 1..%d, got %d", packing.MaxLookahead, cfg.Packing.Lookahead))
	}
	if cfg.Packing.WorkingRange < 0 {
		errs = multierr.Append(errs, fmt.Errorf("packing working range must be >= 0"))
	}
	if cfg.Packing.AnchorCap < 1 {
		errs = multierr.Append(errs, fmt.Errorf("packing anchor cap must be >= 1"))
	}
	if _, err := packing.ParseOrder(cfg.Packing.Order); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.Packing.Timeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("packing timeout must be positive"))
	}
	if cfg.CacheSize < 0 {
		errs = multierr.Append(errs, fmt.Errorf("cache size must be >= 0"))
	}
	return errs
}
