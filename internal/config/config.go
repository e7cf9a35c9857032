// Package config reads the dashboard binary's settings from the environment, with
// an optional .env file underneath. Real environment variables always win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	CORSOrigins []string

	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	// Provider is memory, gocache, bigcache, ristretto, redis or sqlite.
	Provider       string
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisPrefix    string
	MaxCacheSizeMB int

	Codec          string
	MaxEntryBytes  int
	SchemaVersion  string
	FoldFilters    bool
	MaxConcurrency int
	DisableCache   bool
	TTLs           map[string]time.Duration

	// LogBackend is zap, logrus or slog.
	LogBackend string
	LogLevel   string
}

// env resolves keys from the process environment first, then from .env values.
type env struct {
	file map[string]string
}

func (e env) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, true
	}
	v, ok := e.file[key]
	return v, ok && v != ""
}

// getEnvString reads environment variable with string fallback
func (e env) getEnvString(key, defaultValue string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return defaultValue
}

// getEnvInt reads environment variable with fallback to default
func (e env) getEnvInt(key string, defaultValue int) int {
	if v, ok := e.lookup(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (e env) getEnvBool(key string, defaultValue bool) bool {
	if v, ok := e.lookup(key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration reads environment variable as duration with fallback; bare integers are seconds.
func (e env) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, ok := e.lookup(key); ok {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func (e env) getEnvList(key string, defaultValue []string) []string {
	v, ok := e.lookup(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Load reads settings. With no files, ".env" is tried; missing files are ignored.
// ttlSources lists the sources whose TTL may be overridden by TTL_<SOURCE> variables.
func Load(ttlSources []string, files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	e := env{file: map[string]string{}}
	for _, f := range files {
		m, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", f, err)
		}
		for k, v := range m {
			if _, seen := e.file[k]; !seen {
				e.file[k] = v
			}
		}
	}

	cfg := Config{
		Port:        e.getEnvString("PORT", "8080"),
		CORSOrigins: e.getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),

		APIBaseURL: e.getEnvString("ANALYTICS_API_URL", ""),
		APIToken:   e.getEnvString("ANALYTICS_API_TOKEN", ""),
		APITimeout: e.getEnvDuration("ANALYTICS_API_TIMEOUT", 30*time.Second),

		Provider:       strings.ToLower(e.getEnvString("CACHE_PROVIDER", "memory")),
		SQLitePath:     e.getEnvString("CACHE_SQLITE_PATH", "data/analytics-cache.db"),
		RedisAddr:      e.getEnvString("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:  e.getEnvString("REDIS_PASSWORD", ""),
		RedisDB:        e.getEnvInt("REDIS_DB", 0),
		RedisPrefix:    e.getEnvString("REDIS_PREFIX", "crm:"),
		MaxCacheSizeMB: e.getEnvInt("CACHE_MAX_SIZE_MB", 64),

		Codec:          strings.ToLower(e.getEnvString("CACHE_CODEC", "json")),
		MaxEntryBytes:  e.getEnvInt("CACHE_MAX_ENTRY_BYTES", 0),
		SchemaVersion:  e.getEnvString("CACHE_SCHEMA_VERSION", ""),
		FoldFilters:    e.getEnvBool("CACHE_FOLD_FILTERS", false),
		MaxConcurrency: e.getEnvInt("LOAD_MAX_CONCURRENCY", 0),
		DisableCache:   e.getEnvBool("CACHE_DISABLED", false),
		TTLs:           make(map[string]time.Duration),

		LogBackend: strings.ToLower(e.getEnvString("LOG_BACKEND", "zap")),
		LogLevel:   strings.ToLower(e.getEnvString("LOG_LEVEL", "info")),
	}
	for _, s := range ttlSources {
		if d := e.getEnvDuration("TTL_"+strings.ToUpper(s), 0); d > 0 {
			cfg.TTLs[s] = d
		}
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.APIBaseURL == "" {
		return errors.New("config: ANALYTICS_API_URL is required")
	}
	switch c.Provider {
	case "memory", "gocache", "bigcache", "ristretto", "redis", "sqlite":
	default:
		return fmt.Errorf("config: unknown CACHE_PROVIDER %q", c.Provider)
	}
	switch c.LogBackend {
	case "zap", "logrus", "slog":
	default:
		return fmt.Errorf("config: unknown LOG_BACKEND %q", c.LogBackend)
	}
	return nil
}
