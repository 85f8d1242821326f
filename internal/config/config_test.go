package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/advisor-api/internal/llm"
)

func llmMap(fast, quality string) llm.ModelMap {
	return llm.ModelMap{Fast: fast, Quality: quality}
}

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "advisor.db", cfg.Store.SQLitePath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.MaxUploadMB)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.LLM.Anthropic.Fast)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.LLM.Anthropic.Quality)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Gemini.Fast)
	assert.Equal(t, int64(4096), cfg.LLM.MaxTokens)
	assert.Equal(t, 0, cfg.LLM.RequestTimeoutSecs)
	assert.Equal(t, "local", cfg.PDF.Provider)
	assert.Equal(t, "pdftotext", cfg.PDF.PdfToTextPath)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1000, cfg.Retry.InitialMS)
	assert.Equal(t, 30000, cfg.Retry.MaxMS)
	assert.Equal(t, 10, cfg.Retry.JitterPercent)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/advisor
log:
  level: debug
  format: console
server:
  port: 9090
  allowed_origins:
    - https://app.example.com
llm:
  provider: gemini
  gemini:
    fast: gemini-2.5-flash-lite
auth:
  jwt_secret: sekrit
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/advisor", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.LLM.Gemini.Fast)
	// Untouched defaults survive a partial file.
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Gemini.Quality)
	assert.Equal(t, "sekrit", cfg.Auth.JWTSecret)
}

func TestLoadEnvOverride(t *testing.T) {
	chTempDir(t)

	t.Setenv("ADVISOR_STORE_DRIVER", "postgres")
	t.Setenv("ADVISOR_LLM_ANTHROPIC_KEY", "sk-test")
	t.Setenv("ADVISOR_AUTH_JWT_SECRET", "env-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "sk-test", cfg.LLM.AnthropicKey)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
}

func TestLLMConfigModels(t *testing.T) {
	cfg := LLMConfig{
		Provider:  "gemini",
		Anthropic: llmMap("a-fast", "a-quality"),
		Gemini:    llmMap("g-fast", "g-quality"),
	}
	assert.Equal(t, "g-fast", cfg.Models().Fast)

	cfg.Provider = "anthropic"
	assert.Equal(t, "a-fast", cfg.Models().Fast)
}

func TestRetryConfigResilience(t *testing.T) {
	rc := RetryConfig{MaxAttempts: 5, InitialMS: 1000, MaxMS: 30000, JitterPercent: 10}.Resilience()

	assert.Equal(t, 5, rc.MaxAttempts)
	assert.Equal(t, time.Second, rc.InitialBackoff)
	assert.Equal(t, 30*time.Second, rc.MaxBackoff)
	assert.InDelta(t, 0.10, rc.JitterFraction, 0.001)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}
