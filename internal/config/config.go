package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all intake wizard configuration.
type Config struct {
	// Remote endpoints (upload, completion, error report)
	Endpoints EndpointsConfig `yaml:"endpoints"`

	// Submission pipeline behavior
	Submission SubmissionConfig `yaml:"submission"`

	// Interactive wizard timing and presentation
	Wizard WizardConfig `yaml:"wizard"`

	// Analytics collector
	Analytics AnalyticsConfig `yaml:"analytics"`

	// Local journal of submission attempts
	Journal JournalConfig `yaml:"journal"`

	// Local stand-in for the remote endpoints
	DevServer DevServerConfig `yaml:"devserver"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EndpointsConfig configures the remote intake endpoints.
type EndpointsConfig struct {
	BaseURL      string `yaml:"base_url"`
	UploadPath   string `yaml:"upload_path"`
	CompletePath string `yaml:"complete_path"`
	ErrorPath    string `yaml:"error_path"`
	Timeout      string `yaml:"timeout"` // "0" keeps the transport default
}

// Upload failure policies.
const (
	UploadFailureAbort    = "abort"
	UploadFailureContinue = "continue"
)

// SubmissionConfig configures the submission pipeline.
type SubmissionConfig struct {
	From           string `yaml:"from"`
	UploadFailure  string `yaml:"upload_failure"` // abort, continue
	PrepareWorkers int    `yaml:"prepare_workers"`
}

// WizardConfig configures the interactive wizard.
type WizardConfig struct {
	ScrollDelay string `yaml:"scroll_delay"`
	FocusDelay  string `yaml:"focus_delay"`
	NoticeTTL   string `yaml:"notice_ttl"`
	Catalog     string `yaml:"catalog"` // empty uses the embedded catalog
	Theme       string `yaml:"theme"`   // light, dark
}

// AnalyticsConfig configures the analytics collector.
type AnalyticsConfig struct {
	MeasurementID string `yaml:"measurement_id"`
	APISecret     string `yaml:"api_secret"`
	Endpoint      string `yaml:"endpoint"`
	Page          string `yaml:"page"`
}

// JournalConfig configures the submission journal.
type JournalConfig struct {
	Path string `yaml:"path"` // empty disables the journal
}

// DevServerConfig configures the local endpoint stand-in.
type DevServerConfig struct {
	Addr           string   `yaml:"addr"`
	UploadDir      string   `yaml:"upload_dir"`
	PublicURL      string   `yaml:"public_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			BaseURL:      "https://caswellorthodontics.com",
			UploadPath:   "/wp-json/dqp/v1/upload-photo",
			CompletePath: "/wp-json/hqa/v1/complete-assessment",
			ErrorPath:    "/wp-json/hqa/v1/assessment-error",
			Timeout:      "0",
		},

		Submission: SubmissionConfig{
			From:           "Virtual Care App",
			UploadFailure:  UploadFailureAbort,
			PrepareWorkers: 2,
		},

		Wizard: WizardConfig{
			ScrollDelay: "500ms",
			FocusDelay:  "700ms",
			NoticeTTL:   "5s",
			Theme:       "light",
		},

		Analytics: AnalyticsConfig{
			MeasurementID: "G-09WKL0L1E5",
			Endpoint:      "https://www.google-analytics.com/mp/collect",
			Page:          "/apps/assessment",
		},

		Journal: JournalConfig{
			Path: "intake-journal.db",
		},

		DevServer: DevServerConfig{
			Addr:           ":8088",
			UploadDir:      "devserver-uploads",
			PublicURL:      "http://localhost:8088",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "intake.log",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Variables from a .env file next to the working directory are
// loaded before environment overrides are applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INTAKE_BASE_URL"); v != "" {
		c.Endpoints.BaseURL = v
	}
	if v := os.Getenv("INTAKE_GA_MEASUREMENT_ID"); v != "" {
		c.Analytics.MeasurementID = v
	}
	if v := os.Getenv("INTAKE_GA_API_SECRET"); v != "" {
		c.Analytics.APISecret = v
	}
	if v := os.Getenv("INTAKE_CATALOG"); v != "" {
		c.Wizard.Catalog = v
	}
	if v, ok := os.LookupEnv("INTAKE_JOURNAL"); ok {
		// Set but empty disables the journal.
		c.Journal.Path = v
	}
	if v := os.Getenv("INTAKE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("INTAKE_UPLOAD_FAILURE"); v != "" {
		c.Submission.UploadFailure = strings.ToLower(v)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Endpoints.BaseURL == "" {
		return fmt.Errorf("endpoints.base_url is required")
	}
	if !strings.HasPrefix(c.Endpoints.BaseURL, "http://") && !strings.HasPrefix(c.Endpoints.BaseURL, "https://") {
		return fmt.Errorf("endpoints.base_url must be an http(s) URL: %q", c.Endpoints.BaseURL)
	}

	switch c.Submission.UploadFailure {
	case UploadFailureAbort, UploadFailureContinue:
	default:
		return fmt.Errorf("invalid submission.upload_failure: %s (valid: %s, %s)",
			c.Submission.UploadFailure, UploadFailureAbort, UploadFailureContinue)
	}

	if c.Submission.PrepareWorkers < 1 {
		return fmt.Errorf("submission.prepare_workers must be at least 1")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// UploadURL returns the absolute photo upload endpoint.
func (c *Config) UploadURL() string { return c.join(c.Endpoints.UploadPath) }

// CompleteURL returns the absolute assessment completion endpoint.
func (c *Config) CompleteURL() string { return c.join(c.Endpoints.CompletePath) }

// ErrorURL returns the absolute error report endpoint.
func (c *Config) ErrorURL() string { return c.join(c.Endpoints.ErrorPath) }

func (c *Config) join(path string) string {
	return strings.TrimSuffix(c.Endpoints.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// GetEndpointTimeout returns the outbound request timeout. Zero means the
// transport default applies.
func (c *Config) GetEndpointTimeout() time.Duration {
	return parseDuration(c.Endpoints.Timeout, 0)
}

// GetScrollDelay returns the delay before scrolling to the next step.
func (c *Config) GetScrollDelay() time.Duration {
	return parseDuration(c.Wizard.ScrollDelay, 500*time.Millisecond)
}

// GetFocusDelay returns the delay between scrolling and focusing.
func (c *Config) GetFocusDelay() time.Duration {
	return parseDuration(c.Wizard.FocusDelay, 700*time.Millisecond)
}

// GetNoticeTTL returns how long a notice stays visible.
func (c *Config) GetNoticeTTL() time.Duration {
	return parseDuration(c.Wizard.NoticeTTL, 5*time.Second)
}

// ContinueOnUploadFailure reports whether a failed photo upload should let
// the completion request go ahead.
func (c *Config) ContinueOnUploadFailure() bool {
	return c.Submission.UploadFailure == UploadFailureContinue
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
