package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Default model identifiers. Both calls are pinned server-side; clients cannot choose a model.
const (
	DefaultExpansionModel  = "gemini-2.5-flash"
	DefaultCompletionModel = "gemini-2.5-flash"
	DefaultBaseURL         = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	AppPort         int    `mapstructure:"APP_PORT"`
	APIKey          string `mapstructure:"GEMINI_API_KEY"`
	BaseURL         string `mapstructure:"GEMINI_BASE_URL"`
	ExpansionModel  string `mapstructure:"EXPANSION_MODEL"`
	CompletionModel string `mapstructure:"COMPLETION_MODEL"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogFile         string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB    int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups   int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays   int    `mapstructure:"LOG_MAX_AGE_DAYS"`
	MetricsEnabled  bool   `mapstructure:"METRICS_ENABLED"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("APP_PORT", 8000)
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_BASE_URL", DefaultBaseURL)
	viper.SetDefault("EXPANSION_MODEL", DefaultExpansionModel)
	viper.SetDefault("COMPLETION_MODEL", DefaultCompletionModel)
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("LOG_MAX_SIZE_MB", 100)
	viper.SetDefault("LOG_MAX_BACKUPS", 3)
	viper.SetDefault("LOG_MAX_AGE_DAYS", 28)
	viper.SetDefault("METRICS_ENABLED", true)

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the proxy cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("config: GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("config: GEMINI_BASE_URL must not be empty")
	}
	if c.ExpansionModel == "" || c.CompletionModel == "" {
		return errors.New("config: EXPANSION_MODEL and COMPLETION_MODEL must not be empty")
	}
	return nil
}
