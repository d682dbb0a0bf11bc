package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 3*time.Minute, cfg.Server.WaitTimeout)

	// Temporal defaults
	assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "default", cfg.Temporal.Namespace)
	assert.Equal(t, "browser-automation", cfg.Temporal.TaskQueue)
	assert.Equal(t, 2, cfg.Temporal.MaxConcurrentActivities)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 9090, cfg.Metrics.WorkerPort)

	// Browserbase defaults
	assert.Equal(t, "https://api.browserbase.com/v1", cfg.Browserbase.BaseURL)
	assert.Equal(t, 1024, cfg.Browserbase.ViewportWidth)
	assert.Equal(t, 768, cfg.Browserbase.ViewportHeight)

	// Search defaults
	assert.Equal(t, "https://search.brave.com/", cfg.Search.PageURL)
	assert.Equal(t, 4*time.Second, cfg.Search.SettleDelay)
	assert.Equal(t, 3, cfg.Search.ResultLimit)

	// Fault defaults
	assert.True(t, cfg.Faults.Enabled)
	assert.InDelta(t, 0.15, cfg.Faults.Rate, 1e-9)

	// LLM defaults
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.OpenAI.Model)

	// Storage defaults
	assert.Equal(t, "auto", cfg.Storage.Region)

	// Digest defaults
	assert.False(t, cfg.Digest.Enabled)
	assert.Equal(t, "0 9 * * 1-5", cfg.Digest.Cron)
	assert.Equal(t, "Europe/London", cfg.Digest.Timezone)
	assert.Equal(t, 3, cfg.Digest.ArticleCount)
	assert.Equal(t, 1500, cfg.Digest.ContentLimit)

	// PDF defaults
	assert.Equal(t, "mutool", cfg.PDF.MutoolPath)
	assert.Equal(t, int64(100*1024*1024), cfg.PDF.MaxSize)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("INTEGRATIONS_SERVER_HTTP_PORT", "9000")
	t.Setenv("INTEGRATIONS_TEMPORAL_TASK_QUEUE", "custom-queue")
	t.Setenv("INTEGRATIONS_FAULTS_RATE", "0.5")
	t.Setenv("INTEGRATIONS_LLM_PROVIDER", "anthropic")
	t.Setenv("INTEGRATIONS_MAIL_TO", "a@example.com, b@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "custom-queue", cfg.Temporal.TaskQueue)
	assert.InDelta(t, 0.5, cfg.Faults.Rate, 1e-9)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Mail.To)
}

func TestLoad_SecretsFromEnvOnly(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("INTEGRATIONS_BROWSERBASE_API_KEY", "bb-key")
	t.Setenv("INTEGRATIONS_LLM_OPENAI_API_KEY", "sk-test")
	t.Setenv("INTEGRATIONS_STORAGE_ACCESS_KEY_ID", "AKIA")
	t.Setenv("INTEGRATIONS_STORAGE_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bb-key", cfg.Browserbase.APIKey)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Empty(t, cfg.LLM.Anthropic.APIKey)
	assert.Equal(t, "AKIA", cfg.Storage.AccessKeyID)
	assert.Equal(t, "secret", cfg.Storage.SecretAccessKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(_ *Config) {},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 70000 },
			wantErr: "invalid HTTP port",
		},
		{
			name:    "missing task queue",
			mutate:  func(c *Config) { c.Temporal.TaskQueue = "" },
			wantErr: "task_queue is required",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "fault rate above one",
			mutate:  func(c *Config) { c.Faults.Rate = 1.5 },
			wantErr: "faults rate",
		},
		{
			name:    "unsupported provider",
			mutate:  func(c *Config) { c.LLM.Provider = "bard" },
			wantErr: "unsupported LLM provider",
		},
		{
			name: "digest without recipients",
			mutate: func(c *Config) {
				c.Digest.Enabled = true
				c.Mail.To = nil
			},
			wantErr: "mail recipients are required",
		},
		{
			name: "digest with bad timezone",
			mutate: func(c *Config) {
				c.Digest.Enabled = true
				c.Digest.Timezone = "Mars/Olympus"
			},
			wantErr: "invalid digest timezone",
		},
		{
			name:    "relative search url",
			mutate:  func(c *Config) { c.Search.PageURL = "search" },
			wantErr: "invalid search page_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerConfig_HTTPAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", HTTPPort: 8081}
	assert.Equal(t, "127.0.0.1:8081", cfg.HTTPAddress())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a,,b ,"))
	assert.Empty(t, splitList(","))
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "INTEGRATIONS_") {
			key, _, _ := strings.Cut(env, "=")
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 8080,
		},
		Temporal: TemporalConfig{
			HostPort:                "localhost:7233",
			Namespace:               "default",
			TaskQueue:               "browser-automation",
			MaxConcurrentActivities: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Search: SearchConfig{
			PageURL:     "https://search.brave.com/",
			ResultLimit: 3,
		},
		Faults: FaultsConfig{
			Enabled: true,
			Rate:    0.15,
		},
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
		},
		Mail: MailConfig{
			To: []string{"digest@example.com"},
		},
		Digest: DigestConfig{
			Cron:         "0 9 * * 1-5",
			Timezone:     "Europe/London",
			ArticleCount: 3,
		},
		PDF: PDFConfig{
			MaxSize: 1024,
		},
	}
}
