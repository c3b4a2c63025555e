package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "ROUTINE"

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Completion CompletionConfig `mapstructure:"completion"`
	Selection  SelectionConfig  `mapstructure:"selection"`
	Redis      RedisConfig      `mapstructure:"redis"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	Session    SessionConfig    `mapstructure:"session"`
	I18n       I18nConfig       `mapstructure:"i18n"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig configures the HTTP server and the on-disk web assets.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TemplatesDir    string        `mapstructure:"templates_dir"`
	PublicDir       string        `mapstructure:"public_dir"`
	Dev             bool          `mapstructure:"dev"`
}

// CatalogConfig points at the product catalog.
type CatalogConfig struct {
	// Source is a file path or an http(s) URL.
	Source  string        `mapstructure:"source"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CompletionConfig configures the chat completions endpoint used by both advisor flows.
type CompletionConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SelectionConfig selects the persistence backend for visitor selections.
type SelectionConfig struct {
	Backend    string        `mapstructure:"backend"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	MaxBytes   int           `mapstructure:"max_bytes"`
	IdleTTL    time.Duration `mapstructure:"idle_ttl"`
	PruneStale bool          `mapstructure:"prune_stale"`

	// SnapshotTTL expires idle snapshots of the memory backend.
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// RedisConfig holds Redis connection details for the redis selection backend.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// SQLiteConfig holds the database path for the sqlite selection backend.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// SessionConfig configures the visitor session cookie.
type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	HashKey    string        `mapstructure:"hash_key"`
	BlockKey   string        `mapstructure:"block_key"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	Secure     bool          `mapstructure:"secure"`
}

// I18nConfig lists translation files and supported languages.
type I18nConfig struct {
	Dir       string   `mapstructure:"dir"`
	Fallback  string   `mapstructure:"fallback"`
	Supported []string `mapstructure:"supported"`
}

// LogConfig configures the zap logger and optional rotating file sink.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

type loaderOptions struct {
	file      string
	overrides map[string]any
}

// Option customises Load.
type Option func(*loaderOptions)

// WithFile reads a YAML config file before applying environment overrides. A missing file is an error.
func WithFile(path string) Option {
	return func(o *loaderOptions) { o.file = strings.TrimSpace(path) }
}

// WithOverride sets a key after every other source, as command-line flags do.
func WithOverride(key string, value any) Option {
	return func(o *loaderOptions) {
		if o.overrides == nil {
			o.overrides = map[string]any{}
		}
		o.overrides[key] = value
	}
}

// Load builds a Config from defaults, an optional YAML file and ROUTINE_* environment variables.
// OPENAI_API_KEY is honoured as an alias for completion.api_key.
func Load(opts ...Option) (Config, error) {
	var lo loaderOptions
	for _, opt := range opts {
		opt(&lo)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("completion.api_key", envPrefix+"_COMPLETION_API_KEY", "OPENAI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if lo.file != "" {
		v.SetConfigFile(lo.file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", lo.file, err)
		}
	}
	for k, val := range lo.overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.templates_dir", "templates")
	v.SetDefault("server.public_dir", "public")
	v.SetDefault("server.dev", false)

	v.SetDefault("catalog.source", "data/products.json")
	v.SetDefault("catalog.timeout", 10*time.Second)

	v.SetDefault("completion.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("completion.api_key", "")
	v.SetDefault("completion.model", "gpt-4o")
	v.SetDefault("completion.max_tokens", 1000)
	v.SetDefault("completion.timeout", 0)

	v.SetDefault("selection.backend", "memory")
	v.SetDefault("selection.key_prefix", "selectedProducts")
	v.SetDefault("selection.max_bytes", 5<<20)
	v.SetDefault("selection.idle_ttl", 24*time.Hour)
	v.SetDefault("selection.prune_stale", false)
	v.SetDefault("selection.snapshot_ttl", 30*24*time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "routine:")
	v.SetDefault("redis.ttl", 30*24*time.Hour)

	v.SetDefault("sqlite.path", "routine.db")

	v.SetDefault("session.cookie_name", "routine_session")
	v.SetDefault("session.hash_key", "")
	v.SetDefault("session.block_key", "")
	v.SetDefault("session.max_age", 30*24*time.Hour)
	v.SetDefault("session.secure", false)

	v.SetDefault("i18n.dir", "locales")
	v.SetDefault("i18n.fallback", "en")
	v.SetDefault("i18n.supported", []string{"en", "fr", "ar"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

func (c *Config) normalise() {
	c.Selection.Backend = strings.ToLower(strings.TrimSpace(c.Selection.Backend))
	c.Completion.APIKey = strings.TrimSpace(c.Completion.APIKey)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.I18n.Fallback = strings.ToLower(strings.TrimSpace(c.I18n.Fallback))
	langs := make([]string, 0, len(c.I18n.Supported))
	for _, l := range c.I18n.Supported {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			langs = append(langs, l)
		}
	}
	c.I18n.Supported = langs
}

// Validate reports every missing or invalid field at once.
func (c Config) Validate() error {
	var bad []string
	if strings.TrimSpace(c.Server.Addr) == "" {
		bad = append(bad, "server.addr")
	}
	if strings.TrimSpace(c.Catalog.Source) == "" {
		bad = append(bad, "catalog.source")
	}
	if c.Catalog.Timeout < 0 {
		bad = append(bad, "catalog.timeout")
	}
	if strings.TrimSpace(c.Completion.Endpoint) == "" {
		bad = append(bad, "completion.endpoint")
	}
	if c.Completion.MaxTokens <= 0 {
		bad = append(bad, "completion.max_tokens")
	}
	if c.Completion.Timeout < 0 {
		bad = append(bad, "completion.timeout")
	}
	switch c.Selection.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Redis.Addr) == "" {
			bad = append(bad, "redis.addr")
		}
	case "sqlite":
		if strings.TrimSpace(c.SQLite.Path) == "" {
			bad = append(bad, "sqlite.path")
		}
	default:
		bad = append(bad, "selection.backend")
	}
	if c.Selection.MaxBytes < 0 {
		bad = append(bad, "selection.max_bytes")
	}
	if c.Selection.SnapshotTTL < 0 {
		bad = append(bad, "selection.snapshot_ttl")
	}
	if n := len(c.Session.HashKey); n != 0 && n < 32 {
		bad = append(bad, "session.hash_key")
	}
	if n := len(c.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		bad = append(bad, "session.block_key")
	}
	if !contains(c.I18n.Supported, c.I18n.Fallback) {
		bad = append(bad, "i18n.fallback")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		bad = append(bad, "log.level")
	}
	if len(bad) > 0 {
		return &ValidationError{fields: bad}
	}
	return nil
}

// HasCredential reports whether a completion API key is configured.
func (c Config) HasCredential() bool { return c.Completion.APIKey != "" }

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
