package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Tuning holds the engine's timing and windowing knobs. Values come from
// defaults, then an optional tracking.yml, then environment overrides.
type Tuning struct {
	HeartbeatSeconds    int `yaml:"heartbeat_seconds" validate:"gte=1"`
	LocationTTLSeconds  int `yaml:"location_ttl_seconds" validate:"gte=1"`
	RerouteSeconds      int `yaml:"reroute_seconds" validate:"gte=10"`
	RouteHistorySize    int `yaml:"route_history_size" validate:"gte=1,lte=100"`
	ReconnectDelayMs    int `yaml:"reconnect_delay_ms" validate:"gte=100"`
	ReconnectAttempts   int `yaml:"reconnect_attempts" validate:"gte=1"`
	SessionIdleMinutes  int `yaml:"session_idle_minutes" validate:"gte=1"`
	SendBuffer          int `yaml:"send_buffer" validate:"gte=1"`
	ChatHistoryLimit    int `yaml:"chat_history_limit" validate:"gte=1"`
	ProviderTimeoutSecs int `yaml:"provider_timeout_seconds" validate:"gte=1"`
}

// Config holds all configuration for the tracking service.
type Config struct {
	Port string
	Env  string

	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	DirectionsURL string
	DirectionsKey string

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting

	Tuning Tuning
}

func defaultTuning() Tuning {
	return Tuning{
		HeartbeatSeconds:    30,
		LocationTTLSeconds:  300,
		RerouteSeconds:      120,
		RouteHistorySize:    10,
		ReconnectDelayMs:    500,
		ReconnectAttempts:   10,
		SessionIdleMinutes:  60,
		SendBuffer:          32,
		ChatHistoryLimit:    200,
		ProviderTimeoutSecs: 10,
	}
}

// Load reads configuration from environment variables and an optional
// tracking.yml for tunables. In development it loads .env if present.
// In production it panics on missing required variables.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    os.Getenv("SQLITE_PATH"),
		RedisURL:      os.Getenv("REDIS_URL"),
		DirectionsURL: os.Getenv("DIRECTIONS_URL"),
		DirectionsKey: os.Getenv("DIRECTIONS_API_KEY"),
		Tuning:        defaultTuning(),
	}

	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	if err := loadTuningFile(&cfg.Tuning, getEnv("TRACKING_CONFIG", "tracking.yml")); err != nil {
		panic("invalid tracking config: " + err.Error())
	}
	applyTuningEnv(&cfg.Tuning)

	if err := validator.New().Struct(cfg.Tuning); err != nil {
		panic("invalid tracking tuning: " + err.Error())
	}

	// In production, require a durable store and a directions provider
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.DirectionsURL == "" {
			panic("DIRECTIONS_URL is required in production")
		}
	}

	return cfg
}

// loadTuningFile merges tracking.yml over the defaults. A missing file is
// not an error; a malformed one is.
func loadTuningFile(t *Tuning, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, t)
}

func applyTuningEnv(t *Tuning) {
	overrideInt(&t.HeartbeatSeconds, "HEARTBEAT_SECONDS")
	overrideInt(&t.LocationTTLSeconds, "LOCATION_TTL_SECONDS")
	overrideInt(&t.RerouteSeconds, "REROUTE_SECONDS")
	overrideInt(&t.RouteHistorySize, "ROUTE_HISTORY_SIZE")
	overrideInt(&t.SessionIdleMinutes, "SESSION_IDLE_MINUTES")
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Heartbeat returns the heartbeat interval as a duration.
func (t Tuning) Heartbeat() time.Duration {
	return time.Duration(t.HeartbeatSeconds) * time.Second
}

// LocationTTL returns the sampler cache window as a duration.
func (t Tuning) LocationTTL() time.Duration {
	return time.Duration(t.LocationTTLSeconds) * time.Second
}

// RerouteInterval returns the periodic re-routing interval as a duration.
func (t Tuning) RerouteInterval() time.Duration {
	return time.Duration(t.RerouteSeconds) * time.Second
}

// SessionIdle returns the janitor's idle deadline as a duration.
func (t Tuning) SessionIdle() time.Duration {
	return time.Duration(t.SessionIdleMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
