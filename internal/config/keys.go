package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	field   string // struct path as reported by the validator
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", field: "Server.Port", typ: kInt, env: "TMVBD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_connections", field: "Server.MaxConnections", typ: kInt, env: "TMVBD_SERVER_MAX_CONNECTIONS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConnections = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConnections },
	},
	{
		key: "gateway.backend", field: "Gateway.Backend", typ: kString, env: "TMVBD_GATEWAY_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Gateway.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.Backend },
	},
	{
		key: "gateway.endpoint", field: "Gateway.Endpoint", typ: kString, env: "TMVBD_GATEWAY_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Gateway.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.Endpoint },
	},
	{
		key: "gateway.model", field: "Gateway.Model", typ: kString, env: "TMVBD_GATEWAY_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gateway.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.Model },
	},
	{
		key: "gateway.api_key", field: "Gateway.APIKey", typ: kString, env: "TMVBD_GATEWAY_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gateway.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.APIKey },
	},
	{
		key: "gateway.customer_id", field: "Gateway.CustomerID", typ: kString, env: "TMVBD_GATEWAY_CUSTOMER_ID",
		apply:   func(cfg *Config, v any) { cfg.Gateway.CustomerID = v.(string) },
		extract: func(cfg Config) any { return cfg.Gateway.CustomerID },
	},
	{
		key: "gateway.timeout", field: "Gateway.Timeout", typ: kDuration, env: "TMVBD_GATEWAY_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Gateway.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Gateway.Timeout },
	},
	{
		key: "gateway.retry_backoff", field: "Gateway.RetryBackoff", typ: kDuration, env: "TMVBD_GATEWAY_RETRY_BACKOFF",
		apply:   func(cfg *Config, v any) { cfg.Gateway.RetryBackoff = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Gateway.RetryBackoff },
	},
	{
		key: "gateway.temperature", field: "Gateway.Temperature", typ: kFloat, env: "TMVBD_GATEWAY_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Gateway.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Gateway.Temperature },
	},
	{
		key: "gateway.max_tokens", field: "Gateway.MaxTokens", typ: kInt, env: "TMVBD_GATEWAY_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Gateway.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Gateway.MaxTokens },
	},
	{
		key: "order.base_price", field: "Order.BasePrice", typ: kFloat, env: "TMVBD_ORDER_BASE_PRICE",
		apply:   func(cfg *Config, v any) { cfg.Order.BasePrice = v.(float64) },
		extract: func(cfg Config) any { return cfg.Order.BasePrice },
	},
	{
		key: "order.payment_base_url", field: "Order.PaymentBaseURL", typ: kString, env: "TMVBD_ORDER_PAYMENT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Order.PaymentBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Order.PaymentBaseURL },
	},
	{
		key: "limits.max_concurrent_generations", field: "Limits.MaxConcurrentGenerations", typ: kInt, env: "TMVBD_LIMITS_MAX_CONCURRENT_GENERATIONS",
		apply:   func(cfg *Config, v any) { cfg.Limits.MaxConcurrentGenerations = v.(int) },
		extract: func(cfg Config) any { return cfg.Limits.MaxConcurrentGenerations },
	},
	{
		key: "log.level", field: "Log.Level", typ: kString, env: "TMVBD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func keyForNamespace(ns string) string {
	field := strings.TrimPrefix(ns, "Config.")
	for _, s := range specs {
		if s.field == field {
			return s.key
		}
	}
	return ns
}

// parseValue converts raw text to the Go type of a key.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	}
	return raw, nil
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
