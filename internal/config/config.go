// Package config provides configuration loading and validation for the
// welcome bot. Values come from defaults, an optional YAML file, an optional
// .env file and BOT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingToken is returned when no Telegram bot token was supplied.
	ErrMissingToken = errors.New("telegram bot token is not set (set BOT_TOKEN)")
	// ErrValidation wraps any struct validation failure.
	ErrValidation = errors.New("invalid configuration")
)

// Config defines the application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Welcome  WelcomeConfig  `mapstructure:"welcome"`
}

// LoggerConfig controls log verbosity and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds Telegram client settings.
type TelegramConfig struct {
	Token              string        `mapstructure:"token"                validate:"required"`
	PollTimeout        time.Duration `mapstructure:"poll_timeout"         validate:"min=1s,max=10m"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"      validate:"gtfield=PollTimeout"`
	DropPendingUpdates bool          `mapstructure:"drop_pending_updates"`
	RateLimit          float64       `mapstructure:"rate_limit"           validate:"gt=0"`
	RateBurst          int           `mapstructure:"rate_burst"           validate:"min=1"`

	// BotInfo is filled at runtime from getMe.
	BotInfo *models.User `mapstructure:"-" validate:"-"`
}

// HTTPConfig configures the liveness endpoint.
type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"             validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// Addr returns the listen address for the liveness server.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WelcomeConfig describes the greeting posted for every new member.
type WelcomeConfig struct {
	Template    string        `mapstructure:"template"     validate:"required"`
	ButtonText  string        `mapstructure:"button_text"  validate:"required"`
	ButtonURL   string        `mapstructure:"button_url"   validate:"required,url"`
	DeleteAfter time.Duration `mapstructure:"delete_after" validate:"min=1s"`
}

// LoadConfig reads configuration from:
//  1. Default values
//  2. the YAML file at configPath, if it exists
//  3. a .env file in the working directory, if it exists
//  4. BOT_* environment variables (plus BOT_TOKEN and PORT)
//
// A missing token yields ErrMissingToken so callers can fail fast before
// touching the network.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Hosting platforms inject these unprefixed.
	if err := v.BindEnv("telegram.token", "BOT_TOKEN", "BOT_TELEGRAM_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind token env: %w", err)
	}
	if err := v.BindEnv("http.port", "PORT", "BOT_HTTP_PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind port env: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
			slog.Debug("Configuration file loaded", "path", configPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return nil, ErrMissingToken
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("telegram.poll_timeout", DefaultPollTimeout)
	v.SetDefault("telegram.request_timeout", DefaultRequestTimeout)
	v.SetDefault("telegram.drop_pending_updates", DefaultDropPendingUpdates)
	v.SetDefault("telegram.rate_limit", DefaultRateLimit)
	v.SetDefault("telegram.rate_burst", DefaultRateBurst)

	v.SetDefault("http.host", DefaultHTTPHost)
	v.SetDefault("http.port", DefaultHTTPPort)
	v.SetDefault("http.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("welcome.template", DefaultWelcomeTemplate)
	v.SetDefault("welcome.button_text", DefaultButtonText)
	v.SetDefault("welcome.button_url", DefaultButtonURL)
	v.SetDefault("welcome.delete_after", DefaultDeleteAfter)
}
