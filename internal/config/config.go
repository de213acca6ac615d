// Package config loads process configuration from flags, environment,
// .env files and an optional YAML file. It is only used at the process
// boundary; business packages receive the resulting values explicitly.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SITEDIARY"

// Config is the fully resolved configuration for one process.
type Config struct {
	LogLevel string
	Debug    bool

	AI      AIConfig
	Server  ServerConfig
	Render  RenderConfig
	Extract ExtractConfig
}

// AIConfig configures the enhancement gateway.
type AIConfig struct {
	Provider    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float32
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string
}

// ServerConfig configures the review HTTP API.
type ServerConfig struct {
	Addr            string
	MaxUploadBytes  int64
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	// SessionTTL is how long an untouched review session is kept.
	SessionTTL time.Duration
}

// ExtractConfig configures the OCR fallback for scanned reports.
type ExtractConfig struct {
	OCR       bool
	Pdftoppm  string
	Tesseract string
	OCRLang   string
	OCRDPI    int
	// OCRMaxPages caps how many pages are rasterized; 0 means all.
	OCRMaxPages int
}

// RenderConfig configures the diary template.
type RenderConfig struct {
	CompanyName  string
	CompanyLines []string
	Compress     bool
}

// Defaults applies the built-in defaults to v.
func Defaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("debug", false)
	v.SetDefault("ai.provider", "off")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.temperature", 0.0)
	v.SetDefault("ai.base_url", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_mb", 25)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.session_ttl", 24*time.Hour)
	v.SetDefault("render.company_name", "Site Supervision")
	v.SetDefault("render.company_lines", []string{})
	v.SetDefault("render.compress", true)
	v.SetDefault("extract.ocr", true)
	v.SetDefault("extract.pdftoppm", "pdftoppm")
	v.SetDefault("extract.tesseract", "tesseract")
	v.SetDefault("extract.ocr_lang", "eng")
	v.SetDefault("extract.ocr_dpi", 300)
	v.SetDefault("extract.ocr_max_pages", 20)
}

// New returns a viper instance wired for .env, env vars and an optional
// config file. cfgFile may be empty.
func New(cfgFile string) (*viper.Viper, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	Defaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The credential keeps the name the rest of the Gemini tooling uses.
	if err := v.BindEnv("ai.api_key", envPrefix+"_AI_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key env: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("sitediary")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// BindFlags maps command-line flags onto config keys. Keys are given as
// config-key -> flag-name.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load resolves a Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		LogLevel: v.GetString("log_level"),
		Debug:    v.GetBool("debug"),
		AI: AIConfig{
			Provider:    strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
			APIKey:      strings.TrimSpace(v.GetString("ai.api_key")),
			Model:       v.GetString("ai.model"),
			Timeout:     v.GetDuration("ai.timeout"),
			Temperature: float32(v.GetFloat64("ai.temperature")),
			BaseURL:     strings.TrimSpace(v.GetString("ai.base_url")),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			MaxUploadBytes:  v.GetInt64("server.max_upload_mb") * 1024 * 1024,
			AllowedOrigins:  v.GetStringSlice("server.allowed_origins"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			SessionTTL:      v.GetDuration("server.session_ttl"),
		},
		Render: RenderConfig{
			CompanyName:  v.GetString("render.company_name"),
			CompanyLines: v.GetStringSlice("render.company_lines"),
			Compress:     v.GetBool("render.compress"),
		},
		Extract: ExtractConfig{
			OCR:         v.GetBool("extract.ocr"),
			Pdftoppm:    v.GetString("extract.pdftoppm"),
			Tesseract:   v.GetString("extract.tesseract"),
			OCRLang:     v.GetString("extract.ocr_lang"),
			OCRDPI:      v.GetInt("extract.ocr_dpi"),
			OCRMaxPages: v.GetInt("extract.ocr_max_pages"),
		},
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// Validate checks combinations viper cannot express.
func (c Config) Validate() error {
	switch c.AI.Provider {
	case "", "off":
	case "gemini":
		if c.AI.APIKey == "" {
			return errors.New("ai provider gemini requires GOOGLE_API_KEY")
		}
	default:
		return fmt.Errorf("unknown ai provider %q (want off|gemini)", c.AI.Provider)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai timeout must be positive, got %s", c.AI.Timeout)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server max upload size must be positive")
	}
	return nil
}

// AIEnabled reports whether an AI provider is configured.
func (c Config) AIEnabled() bool {
	return c.AI.Provider != "" && c.AI.Provider != "off"
}
