package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	Defaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "off", cfg.AI.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(25*1024*1024), cfg.Server.MaxUploadBytes)
	assert.True(t, cfg.Render.Compress)
	assert.False(t, cfg.AIEnabled())
	assert.True(t, cfg.Extract.OCR)
	assert.Equal(t, "eng", cfg.Extract.OCRLang)
	assert.Equal(t, 300, cfg.Extract.OCRDPI)
	assert.Equal(t, 20, cfg.Extract.OCRMaxPages)
}

func TestLoad_GeminiRequiresKey(t *testing.T) {
	v := viper.New()
	Defaults(v)
	v.Set("ai.provider", "Gemini")

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")

	v.Set("ai.api_key", "secret")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.True(t, cfg.AIEnabled())
}

func TestLoad_UnknownProvider(t *testing.T) {
	v := viper.New()
	Defaults(v)
	v.Set("ai.provider", "llama")

	_, err := Load(v)
	require.Error(t, err)
}

func TestLoad_DebugForcesDebugLevel(t *testing.T) {
	v := viper.New()
	Defaults(v)
	v.Set("debug", true)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNew_ReadsEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sitediary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai:\n  model: gemini-test\nserver:\n  addr: \":9999\"\n"), 0o644))

	t.Setenv("GOOGLE_API_KEY", "from-env")
	t.Setenv("SITEDIARY_AI_PROVIDER", "gemini")

	v, err := New(path)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "gemini-test", cfg.AI.Model)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestNew_MissingExplicitFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestBindFlags_FlagWins(t *testing.T) {
	v := viper.New()
	Defaults(v)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("addr", ":8080", "")
	require.NoError(t, fs.Parse([]string{"--addr", ":7000"}))
	require.NoError(t, BindFlags(v, fs, map[string]string{"server.addr": "addr", "ai.model": "missing"}))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}
