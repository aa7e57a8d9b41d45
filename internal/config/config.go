package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAnalysisEndpoint is where a fresh dashboard session points.
const DefaultAnalysisEndpoint = "http://127.0.0.1:8000/analyze"

type Config struct {
	// Server config
	Server ServerConfig

	// database config
	Database DatabaseConfig

	// CSRF and credential sealing
	Security SecurityConfig

	// remote analysis service defaults
	Analysis AnalysisConfig

	// GitHub repository preview
	GitHub GitHubConfig

	// dashboard limits
	Limits LimitsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	Environment  string // development, staging, production
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	CSRFSecret        string
	CredentialSecret  string
	SessionCookieName string
	SessionDuration   time.Duration
	SecureCookies     bool // true in production
}

// AnalysisConfig holds the defaults handed to the analysis client.
type AnalysisConfig struct {
	DefaultEndpoint string
	Timeout         time.Duration
	DemoDelay       time.Duration
}

// GitHubConfig holds the optional repository preview settings.
type GitHubConfig struct {
	Token      string
	APIBaseURL string
}

// LimitsConfig holds dashboard limits.
type LimitsConfig struct {
	HistoryLimit int
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from the environment, loading .env first when
// it exists.
func Load() (*Config, error) {
	// A missing .env is fine; production sets real env vars.
	_ = godotenv.Load()
	return load()
}

func load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	readTimeout, err := getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	errs = appendErr(errs, err)
	writeTimeout, err := getDurationOrDefault("SERVER_WRITE_TIMEOUT", 0)
	errs = appendErr(errs, err)
	idleTimeout, err := getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)
	errs = appendErr(errs, err)

	cfg.Server = ServerConfig{
		Port:         getEnvOrDefault("SERVER_PORT", "8080"),
		Environment:  getEnvOrDefault("APP_ENV", "development"),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	cfg.Database = DatabaseConfig{
		URL: os.Getenv("DATABASE_URL"),
	}

	sessionHours, err := strconv.Atoi(getEnvOrDefault("SESSION_DURATION_HOURS", "720"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid SESSION_DURATION_HOURS: %w", err))
	}
	cfg.Security = SecurityConfig{
		CSRFSecret:        os.Getenv("CSRF_SECRET"),
		CredentialSecret:  os.Getenv("CREDENTIAL_SECRET"),
		SessionCookieName: getEnvOrDefault("SESSION_COOKIE_NAME", "gitgrade_session"),
		SessionDuration:   time.Duration(sessionHours) * time.Hour,
		SecureCookies:     cfg.Server.Environment == "production",
	}

	timeout, err := getDurationOrDefault("ANALYSIS_TIMEOUT", 0)
	errs = appendErr(errs, err)
	demoDelay, err := getDurationOrDefault("ANALYSIS_DEMO_DELAY", 2*time.Second)
	errs = appendErr(errs, err)
	cfg.Analysis = AnalysisConfig{
		DefaultEndpoint: getEnvOrDefault("ANALYSIS_ENDPOINT", DefaultAnalysisEndpoint),
		Timeout:         timeout,
		DemoDelay:       demoDelay,
	}

	cfg.GitHub = GitHubConfig{
		Token:      os.Getenv("GITHUB_TOKEN"),
		APIBaseURL: getEnvOrDefault("GITHUB_API_BASE_URL", "https://api.github.com/"),
	}

	historyLimit, err := strconv.Atoi(getEnvOrDefault("HISTORY_LIMIT", "20"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid HISTORY_LIMIT: %w", err))
	}
	cfg.Limits = LimitsConfig{HistoryLimit: historyLimit}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}
	return cfg, nil
}

// validate checks that all required configuration is present and valid.
func (c *Config) validate() []error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	if c.Security.CSRFSecret == "" {
		errs = append(errs, errors.New("CSRF_SECRET is required"))
	} else if len(c.Security.CSRFSecret) < 32 {
		errs = append(errs, errors.New("CSRF_SECRET must be at least 32 characters"))
	}

	if c.Security.CredentialSecret == "" {
		errs = append(errs, errors.New("CREDENTIAL_SECRET is required"))
	} else if len(c.Security.CredentialSecret) < 32 {
		errs = append(errs, errors.New("CREDENTIAL_SECRET must be at least 32 characters"))
	}

	if err := ValidateEndpoint(c.Analysis.DefaultEndpoint); err != nil {
		errs = append(errs, fmt.Errorf("ANALYSIS_ENDPOINT: %w", err))
	}
	if c.Analysis.Timeout < 0 {
		errs = append(errs, errors.New("ANALYSIS_TIMEOUT must not be negative"))
	}

	if c.Limits.HistoryLimit < 1 || c.Limits.HistoryLimit > 200 {
		errs = append(errs, errors.New("HISTORY_LIMIT must be between 1 and 200"))
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	return errs
}

// ValidateEndpoint checks that s is an absolute http(s) URL.
func ValidateEndpoint(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// getEnvOrDefault returns the .env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}

// MustLoad is like Load but panics on error.
// Used in main() where its required to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
