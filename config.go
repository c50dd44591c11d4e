package depot

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/avosk/go-depot/request"
	"github.com/avosk/go-depot/retry"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvBaseURL        = "DEPOT_BASE_URL"
	EnvAPIKey         = "DEPOT_API_KEY"
	EnvProxy          = "DEPOT_PROXY"
	EnvTimeout        = "DEPOT_TIMEOUT"
	EnvConnectTimeout = "DEPOT_CONNECT_TIMEOUT"
	EnvReadTimeout    = "DEPOT_READ_TIMEOUT"
	EnvMaxRetries     = "DEPOT_MAX_RETRIES"
	EnvBaseDelay      = "DEPOT_BASE_DELAY"
	EnvMaxDelay       = "DEPOT_MAX_DELAY"
	EnvParallel       = "DEPOT_PARALLEL"
)

// DefaultParallel is the default concurrency for bulk downloads.
const DefaultParallel = 4

// ErrInvalidConfig reports configuration that cannot produce a working
// client.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the immutable client configuration. Build one by hand or
// with ConfigFromEnv, then hand it to New; the client reads it and
// never mutates it.
type Config struct {
	// BaseURL is the root of the Depot API,
	// e.g. "https://depot.example.com". Required.
	BaseURL string

	// APIKey is sent as the X-API-Key header when non-empty.
	APIKey string

	// ProxyURL routes requests through a proxy when non-empty.
	// Empty means honor the standard proxy environment variables.
	ProxyURL string

	// Timeouts is the per-attempt deadline triple.
	Timeouts request.Timeouts

	// MaxRetries caps retries after the initial attempt.
	MaxRetries int

	// BaseDelay and MaxDelay bound the exponential backoff.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Parallel is the default concurrency for DownloadMany.
	Parallel int
}

// DefaultConfig returns a Config with every tunable at its default.
// BaseURL and APIKey are left empty and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Timeouts:   request.DefaultTimeouts(),
		MaxRetries: retry.DefaultMaxRetries,
		BaseDelay:  retry.DefaultBaseDelay,
		MaxDelay:   retry.DefaultMaxDelay,
		Parallel:   DefaultParallel,
	}
}

// ConfigFromEnv builds a Config from the DEPOT_* environment variables
// read through getenv (typically os.Getenv), starting from
// DefaultConfig. Unset variables keep their defaults; malformed values
// are errors rather than silent fallbacks.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = getenv(EnvBaseURL)
	cfg.APIKey = getenv(EnvAPIKey)
	cfg.ProxyURL = getenv(EnvProxy)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{EnvTimeout, &cfg.Timeouts.Overall},
		{EnvConnectTimeout, &cfg.Timeouts.Connect},
		{EnvReadTimeout, &cfg.Timeouts.Read},
		{EnvBaseDelay, &cfg.BaseDelay},
		{EnvMaxDelay, &cfg.MaxDelay},
	}
	for _, d := range durations {
		if err := envDuration(getenv, d.key, d.dst); err != nil {
			return Config{}, err
		}
	}

	if err := envInt(getenv, EnvMaxRetries, &cfg.MaxRetries); err != nil {
		return Config{}, err
	}
	if err := envInt(getenv, EnvParallel, &cfg.Parallel); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration up front. New calls it, so most
// callers never need to.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required (set %s)", ErrInvalidConfig, EnvBaseURL)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base URL: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base URL %q must be absolute http(s)", ErrInvalidConfig, c.BaseURL)
	}
	if err := c.Timeouts.Validate(); err != nil {
		return err
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	if c.BaseDelay <= 0 {
		return fmt.Errorf("%w: base delay must be positive, got %v", ErrInvalidConfig, c.BaseDelay)
	}
	if c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("%w: max delay %v is below base delay %v", ErrInvalidConfig, c.MaxDelay, c.BaseDelay)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("%w: parallel must be at least 1, got %d", ErrInvalidConfig, c.Parallel)
	}
	return nil
}

// envDuration overwrites dst when key is set to a valid duration.
func envDuration(getenv func(string) string, key string, dst *time.Duration) error {
	raw := getenv(key)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfig, key, raw)
	}
	*dst = d
	return nil
}

// envInt overwrites dst when key is set to a valid integer.
func envInt(getenv func(string) string, key string, dst *int) error {
	raw := getenv(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, raw)
	}
	*dst = n
	return nil
}
