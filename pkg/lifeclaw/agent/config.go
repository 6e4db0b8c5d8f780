// Package agent implements the conversation orchestrator: user sessions,
// the message-processing pipeline, and configuration.
package agent

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/brain"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/channels/discord"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/channels/telegram"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/scheduler"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

// Config holds all assistant configuration.
type Config struct {
	// Name is the assistant name shown in responses.
	Name string `yaml:"name"`

	// Timezone is the user's timezone (e.g. "America/Sao_Paulo").
	Timezone string `yaml:"timezone"`

	// MaxContextMessages bounds the session window: at most this many
	// turns in each direction are kept in memory per user.
	MaxContextMessages int `yaml:"max_context_messages"`

	// HistoryTurns is how many recent turns are sent to the LLM for
	// free-form generation.
	HistoryTurns int `yaml:"history_turns"`

	// API configures the LLM provider endpoint.
	API brain.Config `yaml:"api"`

	// Database configures the SQLite store.
	Database store.Config `yaml:"database"`

	// Plugins configures plugin enablement and settings.
	Plugins plugin.RegistryConfig `yaml:"plugins"`

	// Channels configures messaging transports.
	Channels ChannelsConfig `yaml:"channels"`

	// Scheduler configures the reminder dispatcher.
	Scheduler scheduler.Config `yaml:"scheduler"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// ChannelsConfig configures the messaging transports.
type ChannelsConfig struct {
	// Telegram configures the Telegram bot channel.
	Telegram telegram.Config `yaml:"telegram"`

	// Discord configures the Discord bot channel.
	Discord discord.Config `yaml:"discord"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level"`

	// Format selects the handler: "text" or "json".
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:               "LifeClaw",
		Timezone:           "UTC",
		MaxContextMessages: 100,
		HistoryTurns:       10,
		API: brain.Config{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			MaxTokens:      4096,
			TimeoutSeconds: 60,
		},
		Database: store.Config{
			Path:        "lifeclaw.db",
			JournalMode: "WAL",
			BusyTimeout: 5000,
		},
		Plugins: plugin.RegistryConfig{
			Settings: map[string]map[string]any{},
		},
		Channels: ChannelsConfig{
			Telegram: telegram.DefaultConfig(),
			Discord:  discord.DefaultConfig(),
		},
		Scheduler: scheduler.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfigFromFile reads and parses a YAML configuration file.
// .env files are loaded first so ${VAR} references in the YAML resolve.
func LoadConfigFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(os.Expand(string(data), envValue)), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if cfg.MaxContextMessages <= 0 {
		cfg.MaxContextMessages = 100
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 10
	}

	resolveSecrets(cfg)
	return cfg, nil
}

// SaveConfigToFile writes a Config as YAML. Secrets that match an
// environment variable are replaced with a ${VAR} reference so the file
// stays free of plaintext keys. Written with owner-only permissions.
func SaveConfigToFile(cfg *Config, path string) error {
	sanitized := *cfg
	sanitized.API.APIKey = sanitizeSecret(cfg.API.APIKey, "LIFECLAW_API_KEY", "OPENAI_API_KEY")
	sanitized.Channels.Telegram.Token = sanitizeSecret(cfg.Channels.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	sanitized.Channels.Discord.Token = sanitizeSecret(cfg.Channels.Discord.Token, "DISCORD_BOT_TOKEN")

	data, err := yaml.Marshal(&sanitized)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// FindConfigFile searches for config files in standard locations.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"lifeclaw.yaml",
		"lifeclaw.yml",
		"configs/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadEnvFiles loads .env files from standard locations. godotenv does
// not overwrite variables already set in the environment.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// envValue resolves a ${VAR} reference; unset variables keep the
// placeholder so resolveSecrets and the keyring chain can still act.
func envValue(name string) string {
	if val, ok := os.LookupEnv(name); ok {
		return val
	}
	return "${" + name + "}"
}

// resolveSecrets fills in secrets from environment variables when the
// config value is empty or an unresolved placeholder.
func resolveSecrets(cfg *Config) {
	if cfg.API.APIKey == "" || isEnvReference(cfg.API.APIKey) {
		if key := os.Getenv("LIFECLAW_API_KEY"); key != "" {
			cfg.API.APIKey = key
		} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.API.APIKey = key
		}
	}
	if cfg.Channels.Telegram.Token == "" || isEnvReference(cfg.Channels.Telegram.Token) {
		if tok := os.Getenv("TELEGRAM_BOT_TOKEN"); tok != "" {
			cfg.Channels.Telegram.Token = tok
		}
	}
	if cfg.Channels.Discord.Token == "" || isEnvReference(cfg.Channels.Discord.Token) {
		if tok := os.Getenv("DISCORD_BOT_TOKEN"); tok != "" {
			cfg.Channels.Discord.Token = tok
		}
	}
}

// sanitizeSecret replaces a real secret with an env var reference when
// one of the given variables carries the same value.
func sanitizeSecret(value string, envVars ...string) string {
	if value == "" || isEnvReference(value) {
		return value
	}
	for _, envVar := range envVars {
		if os.Getenv(envVar) == value {
			return "${" + envVar + "}"
		}
	}
	return value
}

func isEnvReference(s string) bool {
	return strings.HasPrefix(s, "${") || strings.HasPrefix(s, "$")
}
