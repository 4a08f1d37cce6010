package jwtrevoke

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

// Defaults applied when an option is not given
const (
	DefaultBaseURL             = "https://api.jwtrevoke.com"
	DefaultTimeout             = 10 * time.Second
	DefaultMaxRetries          = 3
	DefaultRateLimitRetryDelay = time.Second
	DefaultRetryWaitMin        = 100 * time.Millisecond
	DefaultRetryWaitMax        = 30 * time.Second
	DefaultUserAgent           = "jwtrevoke-go/1.0"
)

// Config holds the settings a Client is bound to.
// The client keeps its own copy; changing a Config after construction has no effect.
type Config struct {
	APIKey              string        `env:"JWT_REVOKE_API_KEY"`
	BaseURL             string        `env:"JWT_REVOKE_BASE_URL" envDefault:"https://api.jwtrevoke.com"`
	Timeout             time.Duration `env:"JWT_REVOKE_TIMEOUT" envDefault:"10s"`
	MaxRetries          int           `env:"JWT_REVOKE_MAX_RETRIES" envDefault:"3"`
	RateLimitRetryDelay time.Duration `env:"JWT_REVOKE_RATE_LIMIT_RETRY_DELAY" envDefault:"1s"`
	RetryWaitMin        time.Duration `env:"JWT_REVOKE_RETRY_WAIT_MIN" envDefault:"100ms"`
	RetryWaitMax        time.Duration `env:"JWT_REVOKE_RETRY_WAIT_MAX" envDefault:"30s"`
	UserAgent           string        `env:"JWT_REVOKE_USER_AGENT" envDefault:"jwtrevoke-go/1.0"`
}

// DefaultConfig returns the configuration used by NewClient before options are applied
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:              apiKey,
		BaseURL:             DefaultBaseURL,
		Timeout:             DefaultTimeout,
		MaxRetries:          DefaultMaxRetries,
		RateLimitRetryDelay: DefaultRateLimitRetryDelay,
		RetryWaitMin:        DefaultRetryWaitMin,
		RetryWaitMax:        DefaultRetryWaitMax,
		UserAgent:           DefaultUserAgent,
	}
}

// LoadConfig reads the configuration from environment variables.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win over the file.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// validate checks the configuration and normalizes the base URL
func (c *Config) validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return NewClientError(ErrMissingAPIKey.Code, ErrMissingAPIKey.Message)
	}

	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return NewClientErrorWithDetails(ErrCodeConfigurationError, "invalid base URL", c.BaseURL)
	}

	if c.Timeout <= 0 {
		return NewClientErrorWithDetails(ErrCodeConfigurationError, "timeout must be positive", c.Timeout.String())
	}
	if c.MaxRetries < 0 {
		return NewClientErrorWithDetails(ErrCodeConfigurationError, "maxRetries must not be negative", fmt.Sprint(c.MaxRetries))
	}
	if c.RateLimitRetryDelay < 0 {
		return NewClientErrorWithDetails(ErrCodeConfigurationError, "rateLimitRetryDelay must not be negative", c.RateLimitRetryDelay.String())
	}
	if c.RetryWaitMin < 0 || c.RetryWaitMax < c.RetryWaitMin {
		return NewClientErrorWithDetails(ErrCodeConfigurationError, "invalid retry wait bounds",
			fmt.Sprintf("min=%s max=%s", c.RetryWaitMin, c.RetryWaitMax))
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return nil
}

// settings is everything an Option may touch
type settings struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// Option configures a Client at construction time
type Option func(*settings)

// WithMaxRetries sets how many times a failed request is retried after the first attempt
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.cfg.MaxRetries = n }
}

// WithTimeout sets the timeout of a single attempt
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.cfg.Timeout = d }
}

// WithBaseURL points the client at another API host
func WithBaseURL(u string) Option {
	return func(s *settings) { s.cfg.BaseURL = u }
}

// WithRateLimitRetryDelay sets the fixed wait before retrying a 429 response
func WithRateLimitRetryDelay(d time.Duration) Option {
	return func(s *settings) { s.cfg.RateLimitRetryDelay = d }
}

// WithRetryWait bounds the exponential backoff used for every retry except rate limits
func WithRetryWait(min, max time.Duration) Option {
	return func(s *settings) {
		s.cfg.RetryWaitMin = min
		s.cfg.RetryWaitMax = max
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(s *settings) { s.cfg.UserAgent = ua }
}

// WithHTTPClient replaces the underlying transport client.
// Its Timeout is overwritten by the configured per-attempt timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// WithLogger enables logging of attempts and retries
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMetrics registers the client's Prometheus collectors with reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *settings) { s.registerer = reg }
}
