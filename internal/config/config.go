package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultCounterEndpoint = "http://localhost:8000/books/count"
	defaultCounterInterval = 10 * time.Minute
	defaultCounterTimeout  = 8 * time.Second
	defaultLocaleFallback  = "es"
	defaultEnvironment     = "local"
	defaultLogLevel        = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Counter CounterConfig
	Locale  LocaleConfig
	Session SessionConfig
	App     AppConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string { return ":" + s.Port }

// CounterConfig controls the header's live book counter.
type CounterConfig struct {
	Endpoint       string
	Interval       time.Duration
	RequestTimeout time.Duration
}

// LocaleConfig lists the catalogs served and the fallback language.
type LocaleConfig struct {
	Fallback  string
	Supported []string
}

// SessionConfig holds cookie signing parameters.
type SessionConfig struct {
	SigningKey []byte
	Ephemeral  bool
	Secure     bool
}

// AppConfig groups process-level switches.
type AppConfig struct {
	Environment  string
	DevMode      bool
	TemplatesDir string
	LogLevel     string
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

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

type lookupFunc func(key string) (string, bool)

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and explicit maps.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	var invalid []string
	port := stringWithDefault(lookup, "LIBRARY_WEB_PORT", "")
	if port == "" {
		// Cloud Run injects PORT
		port = stringWithDefault(lookup, "PORT", defaultPort)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		invalid = append(invalid, "Server.Port")
	}

	environment := strings.ToLower(stringWithDefault(lookup, "LIBRARY_WEB_ENV", defaultEnvironment))

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     durationWithDefault(lookup, "LIBRARY_WEB_READ_TIMEOUT", defaultReadTimeout, &invalid, "Server.ReadTimeout"),
			WriteTimeout:    durationWithDefault(lookup, "LIBRARY_WEB_WRITE_TIMEOUT", defaultWriteTimeout, &invalid, "Server.WriteTimeout"),
			IdleTimeout:     durationWithDefault(lookup, "LIBRARY_WEB_IDLE_TIMEOUT", defaultIdleTimeout, &invalid, "Server.IdleTimeout"),
			ShutdownTimeout: durationWithDefault(lookup, "LIBRARY_WEB_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &invalid, "Server.ShutdownTimeout"),
		},
		Counter: CounterConfig{
			Endpoint:       stringWithDefault(lookup, "LIBRARY_WEB_COUNTER_ENDPOINT", defaultCounterEndpoint),
			Interval:       durationWithDefault(lookup, "LIBRARY_WEB_COUNTER_INTERVAL", defaultCounterInterval, &invalid, "Counter.Interval"),
			RequestTimeout: durationWithDefault(lookup, "LIBRARY_WEB_COUNTER_TIMEOUT", defaultCounterTimeout, &invalid, "Counter.RequestTimeout"),
		},
		Locale: LocaleConfig{
			Fallback:  strings.ToLower(stringWithDefault(lookup, "LIBRARY_WEB_LOCALE_FALLBACK", defaultLocaleFallback)),
			Supported: csvWithDefault(lookup, "LIBRARY_WEB_LOCALES"),
		},
		Session: SessionConfig{
			Secure: environment == "prod",
		},
		App: AppConfig{
			Environment:  environment,
			DevMode:      boolWithDefault(lookup, "LIBRARY_WEB_DEV", false),
			TemplatesDir: stringWithDefault(lookup, "LIBRARY_WEB_TEMPLATES_DIR", "templates"),
			LogLevel:     strings.ToLower(stringWithDefault(lookup, "LIBRARY_WEB_LOG_LEVEL", defaultLogLevel)),
		},
	}

	if len(cfg.Locale.Supported) == 0 {
		cfg.Locale.Supported = []string{"es", "en"}
	}

	if u, err := url.Parse(cfg.Counter.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		invalid = append(invalid, "Counter.Endpoint")
	}
	if cfg.Counter.Interval <= 0 {
		invalid = append(invalid, "Counter.Interval")
	}
	if cfg.Counter.RequestTimeout <= 0 {
		invalid = append(invalid, "Counter.RequestTimeout")
	}

	if key := stringWithDefault(lookup, "LIBRARY_WEB_SESSION_SIGNING_KEY", ""); key != "" {
		cfg.Session.SigningKey = []byte(key)
	} else {
		if cfg.Session.Secure {
			invalid = append(invalid, "Session.SigningKey")
		}
		cfg.Session.SigningKey = make([]byte, 32)
		if _, err := rand.Read(cfg.Session.SigningKey); err != nil {
			return Config{}, fmt.Errorf("generate session signing key: %w", err)
		}
		cfg.Session.Ephemeral = true
	}

	if len(invalid) > 0 {
		return Config{}, &ValidationError{fields: dedupe(invalid)}
	}
	return cfg, nil
}

func loadDotEnv(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup lookupFunc, key, fallback string) string {
	if v, ok := lookup(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return fallback
}

func durationWithDefault(lookup lookupFunc, key string, fallback time.Duration, invalid *[]string, field string) time.Duration {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		*invalid = append(*invalid, field)
		return fallback
	}
	return d
}

func boolWithDefault(lookup lookupFunc, key string, fallback bool) bool {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		// any non-empty value switches a flag on, matching the DEV=1 convention
		return true
	}
	return b
}

func csvWithDefault(lookup lookupFunc, key string) []string {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
