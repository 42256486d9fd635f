package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const maxQuantityPrefix = "MAX_QUANTITY_"

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	LogFormat         string
	LogLevel          string
	MetricsEnabled    bool
	MetricsBuckets    string
	TracingEnabled    bool
	TracingExporter   string
	OTLPEndpoint      string
	TracingSampling   float64
	PprofEnabled      bool
	PprofUser         string
	PprofPassword     string
	ShutdownTimeout   time.Duration
	ReadyRedisTimeout time.Duration

	// RedisURL is optional. Without it the places cache is disabled and the
	// limiters keep their counters in process memory.
	RedisURL string

	AuthPassword     string
	AuthPasswordHash string
	AuthSecret       string
	SessionTTL       time.Duration
	LoginRate        string
	CookieSecure     bool
	CookieSameSite   http.SameSite

	PlacesProvider    string
	PlacesAPIKey      string
	PlacesLanguage    string
	PlacesCacheTTL    time.Duration
	PlacesRateWindow  time.Duration
	PlacesRateMax     int
	PlacesTimeout     time.Duration
	PlacesMaxAttempts int

	TemplatesFile string
	// MaxQuantity holds per-category quantity caps keyed by lower-case
	// category name, read from MAX_QUANTITY_<CATEGORY>.
	MaxQuantity map[string]int

	CORSAllowedOrigins []string
	BodyLimitBytes     int64
	APIRateWindow      time.Duration
	APIRateMax         int
	// TrustProxyHeaders lets X-Forwarded-For and X-Real-IP set the client
	// address used for rate limits. Enable it only behind a proxy that sets them.
	TrustProxyHeaders  bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv: valueOrDefault(k.String("APP_ENV"), "development"),
		Port:   valueOrDefault(k.String("PORT"), "8080"),

		LogFormat:         valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:          valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsEnabled:    parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsBuckets:    k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:    parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:   valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:      strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:   parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		PprofEnabled:      parseBoolDefault(k.String("OBS_ENABLE_PPROF"), false),
		PprofUser:         strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPassword:     strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		ShutdownTimeout:   parseDuration(k.String("SHUTDOWN_TIMEOUT"), "10s"),
		ReadyRedisTimeout: parseDuration(k.String("HEALTH_READY_REDIS_TIMEOUT"), "300ms"),

		RedisURL: strings.TrimSpace(k.String("REDIS_URL")),

		AuthPassword:     k.String("AUTH_PASSWORD"),
		AuthPasswordHash: strings.TrimSpace(k.String("AUTH_PASSWORD_HASH")),
		AuthSecret:       strings.TrimSpace(k.String("AUTH_SECRET")),
		SessionTTL:       parseDuration(k.String("SESSION_TTL"), "12h"),
		LoginRate:        valueOrDefault(k.String("AUTH_LOGIN_RATE"), "5-M"),
		CookieSecure:     parseBool(k.String("COOKIE_SECURE")),
		CookieSameSite:   parseSameSite(k.String("COOKIE_SAMESITE")),

		PlacesProvider:    strings.ToLower(valueOrDefault(k.String("PLACES_PROVIDER"), "google")),
		PlacesAPIKey:      strings.TrimSpace(k.String("GOOGLE_PLACES_API_KEY")),
		PlacesLanguage:    valueOrDefault(k.String("PLACES_LANGUAGE"), "en"),
		PlacesCacheTTL:    parseDuration(k.String("PLACES_CACHE_TTL"), "1h"),
		PlacesRateWindow:  parseDuration(k.String("PLACES_RATE_WINDOW"), "1m"),
		PlacesRateMax:     parseInt(k.String("PLACES_RATE_MAX"), 30),
		PlacesTimeout:     parseDuration(k.String("PLACES_TIMEOUT"), "5s"),
		PlacesMaxAttempts: parseInt(k.String("PLACES_MAX_ATTEMPTS"), 3),

		TemplatesFile: strings.TrimSpace(k.String("TEMPLATES_FILE")),
		MaxQuantity:   map[string]int{},

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 64<<10)),
		APIRateWindow:      parseDuration(k.String("API_RATE_WINDOW"), "1m"),
		APIRateMax:         parseInt(k.String("API_RATE_MAX"), 120),
		TrustProxyHeaders:  parseBool(k.String("TRUST_PROXY_HEADERS")),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	for _, key := range k.Keys() {
		if !strings.HasPrefix(key, maxQuantityPrefix) {
			continue
		}
		category := strings.ToLower(strings.TrimPrefix(key, maxQuantityPrefix))
		if q := parseInt(k.String(key), 0); category != "" && q > 0 {
			cfg.MaxQuantity[category] = q
		}
	}

	if cfg.AuthPassword == "" && cfg.AuthPasswordHash == "" {
		return nil, errors.New("AUTH_PASSWORD or AUTH_PASSWORD_HASH is required")
	}
	if cfg.AuthSecret == "" {
		return nil, errors.New("AUTH_SECRET is required")
	}
	switch cfg.PlacesProvider {
	case "google":
		if cfg.PlacesAPIKey == "" {
			// The search endpoint reports the missing key to callers.
			cfg.PlacesProvider = ""
		}
	case "mock":
	default:
		return nil, fmt.Errorf("PLACES_PROVIDER %q is not supported", cfg.PlacesProvider)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
