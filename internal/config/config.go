// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Queue backends accepted by QUEUE_BACKEND.
const (
	BackendRiver = "river"
	BackendRedis = "redis"
)

// Config is the full process configuration.
type Config struct {
	Port         string
	DatabasePath string
	LogLevel     slog.Level

	Queue     Queue
	Auth      Auth
	RateLimit RateLimit
}

// Queue configures the enrollment queue and its consumer.
type Queue struct {
	Backend       string
	RedisURL      string
	Stream        string
	Group         string
	Consumer      string
	BatchSize     int
	ReclaimIdle   time.Duration
	MaxDeliveries int
}

// Auth holds the basic-auth credentials of the age group API.
type Auth struct {
	Username string
	Password string
}

// RateLimit bounds requests per client on the enrollment API.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Default returns built-in defaults. Credentials have no default.
func Default() Config {
	consumer, err := os.Hostname()
	if err != nil || consumer == "" {
		consumer = "agegate"
	}
	return Config{
		Port:         "8080",
		DatabasePath: "agegate.db",
		LogLevel:     slog.LevelInfo,
		Queue: Queue{
			Backend:       BackendRiver,
			Stream:        "enrollments",
			Group:         "finalizers",
			Consumer:      consumer,
			BatchSize:     10,
			ReclaimIdle:   30 * time.Second,
			MaxDeliveries: 5,
		},
		RateLimit: RateLimit{
			RPS:   5,
			Burst: 10,
		},
	}
}

// Load returns the defaults overlaid with the environment, validated.
func Load() (Config, error) {
	cfg := Default()
	if err := FromEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv overlays environment variables onto cfg. Unset variables leave
// the current value; malformed numbers are reported.
func FromEnv(cfg *Config) error {
	var errs []error

	setString(&cfg.Port, "PORT")
	setString(&cfg.DatabasePath, "DATABASE_PATH")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}

	if v := os.Getenv("QUEUE_BACKEND"); v != "" {
		cfg.Queue.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	setString(&cfg.Queue.RedisURL, "REDIS_URL")
	setString(&cfg.Queue.Stream, "QUEUE_STREAM")
	setString(&cfg.Queue.Group, "QUEUE_GROUP")
	setString(&cfg.Queue.Consumer, "QUEUE_CONSUMER")
	errs = append(errs,
		setInt(&cfg.Queue.BatchSize, "FINALIZE_BATCH_SIZE"),
		setDuration(&cfg.Queue.ReclaimIdle, "QUEUE_RECLAIM_IDLE"),
		setInt(&cfg.Queue.MaxDeliveries, "QUEUE_MAX_DELIVERIES"),
	)

	setString(&cfg.Auth.Username, "BASIC_AUTH_USERNAME")
	setString(&cfg.Auth.Password, "BASIC_AUTH_PASSWORD")

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: %w", err))
		} else {
			cfg.RateLimit.RPS = f
		}
	}
	errs = append(errs, setInt(&cfg.RateLimit.Burst, "RATE_LIMIT_BURST"))

	return errors.Join(errs...)
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.Auth.Username == "" || c.Auth.Password == "" {
		errs = append(errs, errors.New("BASIC_AUTH_USERNAME and BASIC_AUTH_PASSWORD are required"))
	}

	switch c.Queue.Backend {
	case BackendRiver:
	case BackendRedis:
		if c.Queue.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when QUEUE_BACKEND=redis"))
		}
		if c.Queue.Stream == "" || c.Queue.Group == "" {
			errs = append(errs, errors.New("QUEUE_STREAM and QUEUE_GROUP must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported QUEUE_BACKEND %q (use %q or %q)", c.Queue.Backend, BackendRiver, BackendRedis))
	}

	if c.Queue.BatchSize <= 0 {
		errs = append(errs, errors.New("FINALIZE_BATCH_SIZE must be positive"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
