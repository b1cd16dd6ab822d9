package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Config holds application configuration.
type Config struct {
	// Bind is the interface the HTTP server listens on.
	Bind string `json:"bind"`

	// Port is the HTTP server port.
	Port int `json:"port"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `json:"log_level"`

	// ModelName is the Gemini model used by the chat gateway.
	ModelName string `json:"model_name"`

	// GatewayTimeoutSeconds bounds each call to the model gateway.
	GatewayTimeoutSeconds int `json:"gateway_timeout_seconds"`

	// TitleMaxChars is the maximum character count for a task title.
	TitleMaxChars int `json:"title_max_chars"`

	// DescriptionMaxChars is the maximum character count for a task description.
	DescriptionMaxChars int `json:"description_max_chars"`

	// TokenTTLMinutes is the lifetime of issued access tokens.
	TokenTTLMinutes int `json:"token_ttl_minutes"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// GeminiAPIKey enables the Gemini gateway. Environment only.
	GeminiAPIKey string `json:"-"`

	// SecretKey signs access tokens. Environment only.
	SecretKey string `json:"-"`
}

// envOverrides are read from the process environment and win over config.json.
type envOverrides struct {
	Bind                  string `env:"TASKFLOW_BIND"`
	Port                  int    `env:"TASKFLOW_PORT"`
	LogLevel              string `env:"TASKFLOW_LOG_LEVEL"`
	ModelName             string `env:"TASKFLOW_MODEL"`
	GatewayTimeoutSeconds int    `env:"TASKFLOW_GATEWAY_TIMEOUT_SECONDS"`
	TokenTTLMinutes       int    `env:"TASKFLOW_TOKEN_TTL_MINUTES"`
	GeminiAPIKey          string `env:"GEMINI_API_KEY"`
	SecretKey             string `env:"SECRET_KEY"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bind:                  "127.0.0.1",
		Port:                  8000,
		LogLevel:              "info",
		ModelName:             "gemini-2.0-flash",
		GatewayTimeoutSeconds: 30,
		TitleMaxChars:         200,
		DescriptionMaxChars:   1000,
		TokenTTLMinutes:       30,
	}
}

// Load loads configuration from baseDir/config.json and applies environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.taskflow.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays non-empty environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env config: %w", err)
	}

	overlay := &Config{
		Bind:                  strings.TrimSpace(o.Bind),
		Port:                  o.Port,
		LogLevel:              strings.TrimSpace(o.LogLevel),
		ModelName:             strings.TrimSpace(o.ModelName),
		GatewayTimeoutSeconds: o.GatewayTimeoutSeconds,
		TokenTTLMinutes:       o.TokenTTLMinutes,
		GeminiAPIKey:          strings.TrimSpace(o.GeminiAPIKey),
		SecretKey:             strings.TrimSpace(o.SecretKey),
	}
	*cfg = *Merge(cfg, overlay)
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Bind:                  pickString(overlay.Bind, base.Bind),
		Port:                  pickInt(overlay.Port, base.Port),
		LogLevel:              pickString(overlay.LogLevel, base.LogLevel),
		ModelName:             pickString(overlay.ModelName, base.ModelName),
		GatewayTimeoutSeconds: pickInt(overlay.GatewayTimeoutSeconds, base.GatewayTimeoutSeconds),
		TitleMaxChars:         pickInt(overlay.TitleMaxChars, base.TitleMaxChars),
		DescriptionMaxChars:   pickInt(overlay.DescriptionMaxChars, base.DescriptionMaxChars),
		TokenTTLMinutes:       pickInt(overlay.TokenTTLMinutes, base.TokenTTLMinutes),
		DBMaxOpenConns:        pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:        pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		GeminiAPIKey:          pickString(overlay.GeminiAPIKey, base.GeminiAPIKey),
		SecretKey:             pickString(overlay.SecretKey, base.SecretKey),
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
