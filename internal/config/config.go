// Package config provides configuration management for the integrations worker.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LLM provider identifiers.
const (
	// ProviderOpenAI selects the OpenAI chat completion API.
	ProviderOpenAI = "openai"
	// ProviderAnthropic selects the Anthropic messages API.
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for the integrations worker and API server.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Temporal contains Temporal workflow orchestration settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Browserbase contains remote browser session provider settings.
	Browserbase BrowserbaseConfig `mapstructure:"browserbase"`
	// Browser contains local and remote browser driver settings.
	Browser BrowserConfig `mapstructure:"browser"`
	// Search contains the resilient search workflow settings.
	Search SearchConfig `mapstructure:"search"`
	// Faults contains simulated network fault settings.
	Faults FaultsConfig `mapstructure:"faults"`
	// LLM contains LLM client settings for summarization and extraction.
	LLM LLMConfig `mapstructure:"llm"`
	// Storage contains S3-compatible object storage settings.
	Storage StorageConfig `mapstructure:"storage"`
	// Mail contains email delivery settings.
	Mail MailConfig `mapstructure:"mail"`
	// Digest contains the scheduled Hacker News digest settings.
	Digest DigestConfig `mapstructure:"digest"`
	// PDF contains PDF download and conversion settings.
	PDF PDFConfig `mapstructure:"pdf"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// WaitTimeout bounds synchronous endpoints that wait for a workflow result.
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue polled by the worker.
	TaskQueue string `mapstructure:"task_queue"`
	// MaxConcurrentActivities caps concurrent activity executions on one worker.
	MaxConcurrentActivities int `mapstructure:"max_concurrent_activities"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables the Prometheus metrics endpoint.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
	// WorkerPort is the port the worker serves metrics on. The API server
	// serves them on its own router.
	WorkerPort int `mapstructure:"worker_port"`
}

// BrowserbaseConfig holds remote browser provider configuration.
type BrowserbaseConfig struct {
	// APIKey authenticates against the provider. Loaded from env only.
	APIKey string `mapstructure:"-"`
	// ProjectID is the provider project sessions are created in.
	ProjectID string `mapstructure:"project_id"`
	// BaseURL is the REST API base URL.
	BaseURL string `mapstructure:"base_url"`
	// ConnectURL is the websocket endpoint used for direct connections.
	ConnectURL string `mapstructure:"connect_url"`
	// Timeout is the REST request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum REST requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// ViewportWidth is the remote browser viewport width.
	ViewportWidth int `mapstructure:"viewport_width"`
	// ViewportHeight is the remote browser viewport height.
	ViewportHeight int `mapstructure:"viewport_height"`
}

// BrowserConfig holds browser driver configuration.
type BrowserConfig struct {
	// Headless runs locally launched browsers without a window.
	Headless bool `mapstructure:"headless"`
	// ExecPath overrides the local Chrome executable.
	ExecPath string `mapstructure:"exec_path"`
	// ActionTimeout bounds a single page operation.
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
}

// SearchConfig holds the resilient search workflow configuration.
type SearchConfig struct {
	// PageURL is the search engine home page.
	PageURL string `mapstructure:"page_url"`
	// InputSelector locates the search box.
	InputSelector string `mapstructure:"input_selector"`
	// SettleDelay is how long to wait for results after submitting.
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	// ResultLimit is the number of organic results to extract.
	ResultLimit int `mapstructure:"result_limit"`
}

// FaultsConfig holds simulated network failure configuration.
type FaultsConfig struct {
	// Enabled turns fault injection on.
	Enabled bool `mapstructure:"enabled"`
	// Rate is the failure probability in [0, 1].
	Rate float64 `mapstructure:"rate"`
}

// LLMConfig holds LLM client configuration.
type LLMConfig struct {
	// Provider is the LLM provider (openai, anthropic).
	Provider string `mapstructure:"provider"`
	// Timeout is the timeout for a single LLM call.
	Timeout time.Duration `mapstructure:"timeout"`
	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI LLMProviderConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic LLMProviderConfig `mapstructure:"anthropic"`
}

// LLMProviderConfig holds per-provider settings.
type LLMProviderConfig struct {
	// APIKey is the provider API key. Loaded from env only.
	APIKey string `mapstructure:"-"`
	// Model is the model identifier.
	Model string `mapstructure:"model"`
	// BaseURL overrides the provider API base URL.
	BaseURL string `mapstructure:"base_url"`
}

// StorageConfig holds S3-compatible object storage configuration.
type StorageConfig struct {
	// Endpoint is the S3-compatible endpoint (e.g. an R2 account URL).
	Endpoint string `mapstructure:"endpoint"`
	// Region is the signing region ("auto" for R2).
	Region string `mapstructure:"region"`
	// Bucket is the destination bucket.
	Bucket string `mapstructure:"bucket"`
	// PublicBaseURL is the URL prefix returned for uploaded objects.
	// Empty means https://<bucket>.s3.amazonaws.com.
	PublicBaseURL string `mapstructure:"public_base_url"`
	// AccessKeyID is the access key. Loaded from env only.
	AccessKeyID string `mapstructure:"-"`
	// SecretAccessKey is the secret key. Loaded from env only.
	SecretAccessKey string `mapstructure:"-"`
}

// MailConfig holds email delivery configuration.
type MailConfig struct {
	// CredentialsFile is the OAuth client secret JSON for the Gmail API.
	CredentialsFile string `mapstructure:"credentials_file"`
	// TokenFile is the stored OAuth token for the sending account.
	TokenFile string `mapstructure:"token_file"`
	// From is the sender address.
	From string `mapstructure:"from"`
	// To lists the digest recipients.
	To []string `mapstructure:"to"`
}

// DigestConfig holds the scheduled Hacker News digest configuration.
type DigestConfig struct {
	// Enabled registers the digest schedule at server start.
	Enabled bool `mapstructure:"enabled"`
	// ScheduleID is the Temporal schedule identifier.
	ScheduleID string `mapstructure:"schedule_id"`
	// Cron is the 5-field cron expression.
	Cron string `mapstructure:"cron"`
	// Timezone is the IANA zone the cron expression is evaluated in.
	Timezone string `mapstructure:"timezone"`
	// SourceURL is the front page scraped for articles.
	SourceURL string `mapstructure:"source_url"`
	// ArticleCount is the number of top articles summarized.
	ArticleCount int `mapstructure:"article_count"`
	// ContentLimit truncates extracted article text before summarization.
	ContentLimit int `mapstructure:"content_limit"`
	// Subject is the email subject.
	Subject string `mapstructure:"subject"`
}

// PDFConfig holds PDF handling configuration.
type PDFConfig struct {
	// MutoolPath is the mutool binary used for page rasterization.
	MutoolPath string `mapstructure:"mutool_path"`
	// TempDir is the working directory for conversions.
	TempDir string `mapstructure:"temp_dir"`
	// DownloadTimeout bounds PDF downloads.
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	// MaxSize is the maximum downloaded PDF size in bytes.
	MaxSize int64 `mapstructure:"max_size"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("INTEGRATIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/integrations-worker")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma-separated recipients are accepted from the environment.
	if raw := os.Getenv("INTEGRATIONS_MAIL_TO"); raw != "" {
		cfg.Mail.To = splitList(raw)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Browserbase.APIKey = os.Getenv("INTEGRATIONS_BROWSERBASE_API_KEY")
	cfg.LLM.OpenAI.APIKey = os.Getenv("INTEGRATIONS_LLM_OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = os.Getenv("INTEGRATIONS_LLM_ANTHROPIC_API_KEY")
	cfg.Storage.AccessKeyID = os.Getenv("INTEGRATIONS_STORAGE_ACCESS_KEY_ID")
	cfg.Storage.SecretAccessKey = os.Getenv("INTEGRATIONS_STORAGE_SECRET_ACCESS_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.wait_timeout", "3m")

	// Temporal defaults
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "browser-automation")
	v.SetDefault("temporal.max_concurrent_activities", 2)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.worker_port", 9090)

	// Browserbase defaults
	v.SetDefault("browserbase.project_id", "")
	v.SetDefault("browserbase.base_url", "https://api.browserbase.com/v1")
	v.SetDefault("browserbase.connect_url", "wss://connect.browserbase.com")
	v.SetDefault("browserbase.timeout", "30s")
	v.SetDefault("browserbase.rate_limit", 5.0)
	v.SetDefault("browserbase.viewport_width", 1024)
	v.SetDefault("browserbase.viewport_height", 768)

	// Browser driver defaults
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.action_timeout", "60s")

	// Search workflow defaults
	v.SetDefault("search.page_url", "https://search.brave.com/")
	v.SetDefault("search.input_selector", `input[name="q"]`)
	v.SetDefault("search.settle_delay", "4s")
	v.SetDefault("search.result_limit", 3)

	// Fault injection defaults
	v.SetDefault("faults.enabled", true)
	v.SetDefault("faults.rate", 0.15)

	// LLM defaults
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.anthropic.model", "claude-3-5-sonnet-latest")
	v.SetDefault("llm.anthropic.base_url", "")

	// Storage defaults
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.public_base_url", "")

	// Mail defaults
	v.SetDefault("mail.credentials_file", "credentials.json")
	v.SetDefault("mail.token_file", "token.json")
	v.SetDefault("mail.from", "Hacker News Summary <hi@demo.tgr.dev>")
	v.SetDefault("mail.to", []string{})

	// Digest defaults
	v.SetDefault("digest.enabled", false)
	v.SetDefault("digest.schedule_id", "summarize-hacker-news")
	v.SetDefault("digest.cron", "0 9 * * 1-5")
	v.SetDefault("digest.timezone", "Europe/London")
	v.SetDefault("digest.source_url", "https://news.ycombinator.com/news")
	v.SetDefault("digest.article_count", 3)
	v.SetDefault("digest.content_limit", 1500)
	v.SetDefault("digest.subject", "Your morning HN summary")

	// PDF defaults
	v.SetDefault("pdf.mutool_path", "mutool")
	v.SetDefault("pdf.temp_dir", os.TempDir())
	v.SetDefault("pdf.download_timeout", "60s")
	v.SetDefault("pdf.max_size", 100*1024*1024)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	if c.Temporal.HostPort == "" {
		return fmt.Errorf("temporal host_port is required")
	}
	if c.Temporal.TaskQueue == "" {
		return fmt.Errorf("temporal task_queue is required")
	}
	if c.Temporal.MaxConcurrentActivities < 0 {
		return fmt.Errorf("temporal max_concurrent_activities must be non-negative, got %d", c.Temporal.MaxConcurrentActivities)
	}

	if c.Metrics.Enabled && (c.Metrics.WorkerPort <= 0 || c.Metrics.WorkerPort > 65535) {
		return fmt.Errorf("invalid metrics worker port: %d", c.Metrics.WorkerPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Faults.Rate < 0 || c.Faults.Rate > 1 {
		return fmt.Errorf("faults rate must be between 0 and 1, got %f", c.Faults.Rate)
	}

	if c.Search.ResultLimit <= 0 {
		return fmt.Errorf("search result_limit must be positive, got %d", c.Search.ResultLimit)
	}
	if _, err := url.ParseRequestURI(c.Search.PageURL); err != nil {
		return fmt.Errorf("invalid search page_url %q: %w", c.Search.PageURL, err)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.LLM.Provider)
	}

	if c.Digest.Enabled {
		if c.Digest.Cron == "" {
			return fmt.Errorf("digest cron is required when digest is enabled")
		}
		if _, err := time.LoadLocation(c.Digest.Timezone); err != nil {
			return fmt.Errorf("invalid digest timezone %q: %w", c.Digest.Timezone, err)
		}
		if len(c.Mail.To) == 0 {
			return fmt.Errorf("mail recipients are required when digest is enabled")
		}
	}
	if c.Digest.ArticleCount <= 0 {
		return fmt.Errorf("digest article_count must be positive, got %d", c.Digest.ArticleCount)
	}

	if c.PDF.MaxSize <= 0 {
		return fmt.Errorf("pdf max_size must be positive, got %d", c.PDF.MaxSize)
	}

	return nil
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
