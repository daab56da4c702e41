// Package config loads and watches the server's YAML configuration file.
// It provides structured access to the HTTP surface, session ledger, query
// cache and retrieval backend settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the interface the HTTP server binds. Empty means all.
	Host string `yaml:"host" json:"host"`

	// Port is the TCP port the HTTP server listens on.
	Port int `yaml:"port" json:"port"`

	// APIKeys is a list of keys for authenticating clients to this server.
	// An empty list disables authentication.
	APIKeys []string `yaml:"api-keys" json:"api-keys"`

	// LoggingLevel selects the log verbosity: debug, info, warn, error, quiet.
	LoggingLevel string `yaml:"logging-level" json:"logging-level"`

	// LogFile mirrors logs into a rotated file when set.
	LogFile string `yaml:"log-file" json:"log-file"`

	// Metrics enables the Prometheus endpoint and collectors.
	Metrics bool `yaml:"metrics" json:"metrics"`

	// Redis configures the session cache. An empty address falls back to the
	// in-process cache.
	Redis RedisConfig `yaml:"redis" json:"redis"`

	// SQLitePath is the durable session log location. ":memory:" keeps it
	// in process, for tests and ephemeral runs.
	SQLitePath string `yaml:"sqlite-path" json:"sqlite-path"`

	// Ledger tunes the session ledger.
	Ledger LedgerConfig `yaml:"ledger" json:"ledger"`

	// Retrieval configures the search backend client.
	Retrieval RetrievalConfig `yaml:"retrieval" json:"retrieval"`

	// QueryCache tunes the cache in front of identical backend searches.
	QueryCache QueryCacheConfig `yaml:"query-cache" json:"query-cache"`

	// SearchLimit caps fresh searches when the utterance names no limit.
	SearchLimit int `yaml:"search-limit" json:"search-limit"`
}

// RedisConfig holds the session cache connection settings.
type RedisConfig struct {
	// Addr is the host:port of the Redis server. Empty disables Redis.
	Addr string `yaml:"addr" json:"addr"`

	// Password authenticates the connection when set.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// DB selects the Redis logical database.
	DB int `yaml:"db,omitempty" json:"db,omitempty"`
}

// LedgerConfig tunes the session ledger.
type LedgerConfig struct {
	// CacheCapacity bounds the per-session cached message list.
	CacheCapacity int `yaml:"cache-capacity" json:"cache-capacity"`

	// CacheTTLHours expires idle session lists from the cache.
	CacheTTLHours int `yaml:"cache-ttl-hours" json:"cache-ttl-hours"`

	// Lookback is how many recent messages the result-set scan covers.
	Lookback int `yaml:"lookback" json:"lookback"`
}

// RetrievalConfig configures the search backend client.
type RetrievalConfig struct {
	// BaseURL is the backend's base URL, e.g. "http://localhost:6333".
	BaseURL string `yaml:"base-url" json:"base-url"`

	// APIKey authenticates to the backend when set.
	APIKey string `yaml:"api-key,omitempty" json:"api-key,omitempty"`

	// TimeoutSeconds bounds one search round trip. <= 0 uses the default.
	TimeoutSeconds int `yaml:"timeout-seconds,omitempty" json:"timeout-seconds,omitempty"`
}

// QueryCacheConfig tunes the search query cache.
type QueryCacheConfig struct {
	// Enabled controls whether query caching is active.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// MaxSize is the maximum number of cached responses.
	MaxSize int `yaml:"max-size" json:"max-size"`

	// TTLSeconds is how long responses stay cached.
	TTLSeconds int `yaml:"ttl-seconds" json:"ttl-seconds"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Port:         8317,
		LoggingLevel: "info",
		Metrics:      true,
		SQLitePath:   "chessmate.db",
		Ledger: LedgerConfig{
			CacheCapacity: 50,
			CacheTTLHours: 24,
			Lookback:      10,
		},
		Retrieval: RetrievalConfig{
			TimeoutSeconds: 15,
		},
		QueryCache: QueryCacheConfig{
			Enabled:    true,
			MaxSize:    512,
			TTLSeconds: 60,
		},
		SearchLimit: 50,
	}
}

// Load reads and parses the configuration file at path. A missing file is
// not an error: defaults apply, so a bare binary still starts.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Port <= 0 {
		c.Port = d.Port
	}
	if c.LoggingLevel == "" {
		c.LoggingLevel = d.LoggingLevel
	}
	if c.SQLitePath == "" {
		c.SQLitePath = d.SQLitePath
	}
	if c.Ledger.CacheCapacity <= 0 {
		c.Ledger.CacheCapacity = d.Ledger.CacheCapacity
	}
	if c.Ledger.CacheTTLHours <= 0 {
		c.Ledger.CacheTTLHours = d.Ledger.CacheTTLHours
	}
	if c.Ledger.Lookback <= 0 {
		c.Ledger.Lookback = d.Ledger.Lookback
	}
	if c.Retrieval.TimeoutSeconds <= 0 {
		c.Retrieval.TimeoutSeconds = d.Retrieval.TimeoutSeconds
	}
	if c.QueryCache.MaxSize <= 0 {
		c.QueryCache.MaxSize = d.QueryCache.MaxSize
	}
	if c.QueryCache.TTLSeconds <= 0 {
		c.QueryCache.TTLSeconds = d.QueryCache.TTLSeconds
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = d.SearchLimit
	}
}

// CacheTTL returns the ledger cache TTL as a duration.
func (c *LedgerConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// Timeout returns the retrieval timeout as a duration.
func (c *RetrievalConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTL returns the query cache TTL as a duration.
func (c *QueryCacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
