package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/lsx/pkg/observability"
	"github.com/platinummonkey/lsx/pkg/plugins"
)

// Config holds all lsx configuration
type Config struct {
	// PluginsDir is scanned (non-recursively) for plugin libraries
	PluginsDir string `yaml:"plugins_dir"`

	// EnabledPlugins is the persisted enabled set
	EnabledPlugins []string `yaml:"enabled_plugins"`

	Plugins    PluginsConfig    `yaml:"plugins"`
	Listing    ListingConfig    `yaml:"listing"`
	FieldCache FieldCacheConfig `yaml:"field_cache"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`

	path string
	mu   sync.Mutex
}

// PluginsConfig holds plugin host settings
type PluginsConfig struct {
	ProbeTimeout  time.Duration       `yaml:"probe_timeout"`
	Compatibility CompatibilityConfig `yaml:"compatibility"`
	RemoveOnClean bool                `yaml:"remove_on_clean"`
}

// CompatibilityConfig selects the plugin version policy.
// Mode is one of any, exact, major or range.
type CompatibilityConfig struct {
	Mode    string `yaml:"mode"`
	Version string `yaml:"version"`
}

// ListingConfig holds decoration concurrency settings
type ListingConfig struct {
	ParallelThreshold int `yaml:"parallel_threshold"`
	Workers           int `yaml:"workers"` // 0 means GOMAXPROCS
}

// FieldCacheConfig configures the formatted field cache.
// A zero size disables it.
type FieldCacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Textfile receives the metrics in the node_exporter textfile format
	// when the command exits.
	Textfile string `yaml:"textfile"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		PluginsDir: defaultPluginsDir(),
		Plugins: PluginsConfig{
			ProbeTimeout: plugins.DefaultProbeTimeout,
			Compatibility: CompatibilityConfig{
				Mode:    "major",
				Version: plugins.HostAPIVersion,
			},
		},
		Listing: ListingConfig{
			ParallelThreshold: plugins.DefaultParallelThreshold,
		},
		FieldCache: FieldCacheConfig{
			Size: plugins.DefaultFieldCacheSize,
			TTL:  plugins.DefaultFieldCacheTTL,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

func defaultPluginsDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "lsx", "plugins")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".lsx", "plugins")
	}
	return filepath.Join(home, ".local", "share", "lsx", "plugins")
}

// DefaultPath returns $LSX_CONFIG, or ~/.config/lsx/config.yaml
func DefaultPath() string {
	if path := getEnv("LSX_CONFIG", ""); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "lsx.yaml"
	}
	return filepath.Join(home, ".config", "lsx", "config.yaml")
}

// LoadConfig loads configuration from DefaultPath
func LoadConfig() (*Config, error) {
	return Load(DefaultPath())
}

// Load reads the YAML file at path over the defaults, then applies LSX_*
// environment overrides. A missing file is not an error; Save creates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv() {
	c.PluginsDir = getEnv("LSX_PLUGINS_DIR", c.PluginsDir)
	if enabled, ok := os.LookupEnv("LSX_ENABLED_PLUGINS"); ok {
		c.EnabledPlugins = splitList(enabled)
	}

	c.Plugins.ProbeTimeout = getEnvDuration("LSX_PROBE_TIMEOUT", c.Plugins.ProbeTimeout)
	c.Plugins.Compatibility.Mode = getEnv("LSX_COMPAT_MODE", c.Plugins.Compatibility.Mode)
	c.Plugins.Compatibility.Version = getEnv("LSX_COMPAT_VERSION", c.Plugins.Compatibility.Version)
	c.Plugins.RemoveOnClean = getEnvBool("LSX_REMOVE_ON_CLEAN", c.Plugins.RemoveOnClean)

	c.Listing.ParallelThreshold = getEnvInt("LSX_PARALLEL_THRESHOLD", c.Listing.ParallelThreshold)
	c.Listing.Workers = getEnvInt("LSX_WORKERS", c.Listing.Workers)

	c.FieldCache.Size = getEnvInt("LSX_FIELD_CACHE_SIZE", c.FieldCache.Size)
	c.FieldCache.TTL = getEnvDuration("LSX_FIELD_CACHE_TTL", c.FieldCache.TTL)

	c.Log.Level = getEnv("LSX_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LSX_LOG_FORMAT", c.Log.Format)

	c.Metrics.Enabled = getEnvBool("LSX_METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Textfile = getEnv("LSX_METRICS_TEXTFILE", c.Metrics.Textfile)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PluginsDir == "" {
		return fmt.Errorf("plugins_dir is required")
	}
	if c.Plugins.ProbeTimeout <= 0 {
		return fmt.Errorf("plugins.probe_timeout must be positive")
	}
	if _, err := c.CompatibilityPolicy(); err != nil {
		return fmt.Errorf("plugins.compatibility: %w", err)
	}
	if c.Listing.ParallelThreshold < 0 {
		return fmt.Errorf("listing.parallel_threshold must not be negative")
	}
	if c.Listing.Workers < 0 {
		return fmt.Errorf("listing.workers must not be negative")
	}
	if c.FieldCache.Size < 0 {
		return fmt.Errorf("field_cache.size must not be negative")
	}
	if c.FieldCache.Size > 0 && c.FieldCache.TTL <= 0 {
		return fmt.Errorf("field_cache.ttl must be positive when the cache is enabled")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format: %s (must be text or json)", c.Log.Format)
	}
	return nil
}

// CompatibilityPolicy builds the plugin version policy
func (c *Config) CompatibilityPolicy() (plugins.CompatibilityPolicy, error) {
	return plugins.ParsePolicy(c.Plugins.Compatibility.Mode, c.Plugins.Compatibility.Version)
}

// NewLogger builds the logger described by the log section
func (c *Config) NewLogger() *logrus.Logger {
	return observability.NewLogger(
		observability.ParseLevel(c.Log.Level),
		observability.ParseFormat(c.Log.Format),
		os.Stderr,
	)
}

// Path returns the file the configuration was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration back to its file, creating parent
// directories as needed. The file is replaced atomically.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Config) saveLocked() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// EnabledStore persists the registry's enabled set in a Config file.
type EnabledStore struct {
	cfg *Config
}

// NewEnabledStore returns a plugins.EnabledStore backed by cfg
func NewEnabledStore(cfg *Config) *EnabledStore {
	return &EnabledStore{cfg: cfg}
}

func (s *EnabledStore) EnabledPlugins() []string {
	s.cfg.mu.Lock()
	defer s.cfg.mu.Unlock()
	return slices.Clone(s.cfg.EnabledPlugins)
}

// SaveEnabledPlugins replaces the enabled set and saves the file. The
// in-memory set is restored if the save fails.
func (s *EnabledStore) SaveEnabledPlugins(names []string) error {
	s.cfg.mu.Lock()
	defer s.cfg.mu.Unlock()

	prev := s.cfg.EnabledPlugins
	s.cfg.EnabledPlugins = slices.Clone(names)
	if err := s.cfg.saveLocked(); err != nil {
		s.cfg.EnabledPlugins = prev
		return err
	}
	return nil
}

var _ plugins.EnabledStore = (*EnabledStore)(nil)

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
