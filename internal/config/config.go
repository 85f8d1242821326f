// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/advisor-api/internal/llm"
	"github.com/sells-group/advisor-api/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Auth   AuthConfig   `yaml:"auth" mapstructure:"auth"`
	LLM    LLMConfig    `yaml:"llm" mapstructure:"llm"`
	Prompt PromptConfig `yaml:"prompt" mapstructure:"prompt"`
	PDF    PDFConfig    `yaml:"pdf" mapstructure:"pdf"`
	Retry  RetryConfig  `yaml:"retry" mapstructure:"retry"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

// LLMConfig selects the model provider and its tier mapping.
type LLMConfig struct {
	// Provider is "anthropic" or "gemini".
	Provider string `yaml:"provider" mapstructure:"provider"`

	AnthropicKey string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	GeminiKey    string `yaml:"gemini_key" mapstructure:"gemini_key"`

	Anthropic llm.ModelMap `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    llm.ModelMap `yaml:"gemini" mapstructure:"gemini"`

	MaxTokens int64 `yaml:"max_tokens" mapstructure:"max_tokens"`

	// RequestTimeoutSecs bounds one model call on top of the request
	// context. Zero disables the extra deadline.
	RequestTimeoutSecs int `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// Models returns the tier map for the configured provider.
func (c LLMConfig) Models() llm.ModelMap {
	if c.Provider == "gemini" {
		return c.Gemini
	}
	return c.Anthropic
}

// PromptConfig configures template loading.
type PromptConfig struct {
	// TemplatesDir optionally overrides the embedded prompt templates.
	TemplatesDir string `yaml:"templates_dir" mapstructure:"templates_dir"`
}

// PDFConfig configures PDF text extraction.
type PDFConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
}

// RetryConfig tunes the model-call retry wrapper.
type RetryConfig struct {
	MaxAttempts   int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialMS     int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxMS         int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	JitterPercent int `yaml:"jitter_percent" mapstructure:"jitter_percent"`
}

// Resilience converts the tuning knobs into a retry configuration.
func (r RetryConfig) Resilience() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    r.MaxAttempts,
		InitialBackoff: time.Duration(r.InitialMS) * time.Millisecond,
		MaxBackoff:     time.Duration(r.MaxMS) * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: float64(r.JitterPercent) / 100,
	}
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "advisor.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("llm.anthropic_key", "")
	v.SetDefault("llm.gemini_key", "")
	v.SetDefault("pdf.mistral_api_key", "")
	v.SetDefault("prompt.templates_dir", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.anthropic.fast", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.anthropic.quality", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.gemini.fast", "gemini-2.5-flash")
	v.SetDefault("llm.gemini.quality", "gemini-2.5-pro")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.request_timeout_secs", 0)
	v.SetDefault("pdf.provider", "local")
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("pdf.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.jitter_percent", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
