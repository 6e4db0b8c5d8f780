// Package agent – keyring.go stores secrets in the operating system's
// native keyring (Linux: Secret Service, macOS: Keychain, Windows:
// Credential Manager).
//
// Priority for resolving the API key:
//  1. OS keyring (encrypted by the OS, requires user session)
//  2. Environment variable (LIFECLAW_API_KEY, OPENAI_API_KEY) or .env file
//  3. config.yaml value (least secure, plaintext on disk)
package agent

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "lifeclaw"

	// KeyringAPIKey is the keyring entry name for the LLM API key.
	KeyringAPIKey = "api_key"

	// KeyringTelegramToken is the keyring entry name for the Telegram token.
	KeyringTelegramToken = "telegram_token"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring. Returns empty string
// if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	testKey := "__lifeclaw_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// ResolveSecrets resolves the API key and channel tokens using the
// keyring → env → config chain, updating the config in place.
func ResolveSecrets(cfg *Config, logger *slog.Logger) {
	if val := GetKeyring(KeyringAPIKey); val != "" {
		cfg.API.APIKey = val
		logger.Debug("API key loaded from OS keyring")
	}
	if val := GetKeyring(KeyringTelegramToken); val != "" {
		cfg.Channels.Telegram.Token = val
		logger.Debug("Telegram token loaded from OS keyring")
	}

	if cfg.API.APIKey == "" || isEnvReference(cfg.API.APIKey) {
		logger.Warn("no API key found. Run 'lifeclaw setup' to configure one")
	}
}

// ReadPassword prompts for a secret without echoing it. Falls back to a
// plain read when stdin is not a terminal.
func ReadPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		var line string
		if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
