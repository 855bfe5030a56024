package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Backend names accepted by gateway.backend.
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// Default model per backend, used when gateway.model is not set.
const (
	DefaultOpenAIModel = "openrouter/anthropic/claude-sonnet-4"
	DefaultGeminiModel = "gemini-2.0-flash"
)

type Config struct {
	Server  ServerConfig
	Gateway GatewayConfig
	Order   OrderConfig
	Limits  LimitsConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port           int `validate:"min=1,max=65535"`
	MaxConnections int `validate:"min=1"`
}

type GatewayConfig struct {
	Backend      string `validate:"oneof=openai gemini"`
	Endpoint     string `validate:"omitempty,url"`
	Model        string
	APIKey       string
	CustomerID   string
	Timeout      time.Duration `validate:"gt=0"`
	RetryBackoff time.Duration `validate:"gte=0"`
	Temperature  float64       `validate:"gte=0,lte=2"`
	MaxTokens    int           `validate:"min=1"`
}

type OrderConfig struct {
	BasePrice      float64 `validate:"gt=0"`
	PaymentBaseURL string  `validate:"required,url"`
}

type LimitsConfig struct {
	MaxConcurrentGenerations int `validate:"min=1"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           3000,
			MaxConnections: 256,
		},
		Gateway: GatewayConfig{
			Backend:      BackendOpenAI,
			Timeout:      30 * time.Second,
			RetryBackoff: 500 * time.Millisecond,
			Temperature:  0.7,
			MaxTokens:    2000,
		},
		Order: OrderConfig{
			BasePrice:      900,
			PaymentBaseURL: "https://payment.tmvbd.com/bkash",
		},
		Limits: LimitsConfig{
			MaxConcurrentGenerations: 16,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/tmvbd/config.json, then applies TMVBD_* environment
// variables on top. A .env file in the working directory, if present, is
// loaded into the environment first; variables already set win.
//
// The gateway API key is a secret and is only read from TMVBD_GATEWAY_API_KEY.
// Load does not require it: commands that never reach the gateway work
// without one. Use RequireAPIKey before starting the server.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(newPlatformBackend())
}

var validate = validator.New()

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	cfg.Gateway.Backend = strings.ToLower(cfg.Gateway.Backend)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if cfg.Gateway.Model == "" {
		cfg.Gateway.Model = DefaultOpenAIModel
		if cfg.Gateway.Backend == BackendGemini {
			cfg.Gateway.Model = DefaultGeminiModel
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, describe(err)
	}
	return cfg, nil
}

// RequireAPIKey reports a descriptive error when no gateway key is set.
func (c Config) RequireAPIKey() error {
	if c.Gateway.APIKey != "" {
		return nil
	}
	return fmt.Errorf("missing required config: gateway API key. " +
		"Set it via environment variable TMVBD_GATEWAY_API_KEY or in a .env file")
}

// describe maps validator field errors back to config key names.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := keyForNamespace(fe.Namespace())
		msgs = append(msgs, fmt.Sprintf("%s: invalid value %v (%s %s)", key, fe.Value(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
