package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
name: TestBot
max_context_messages: 50
api:
  model: gpt-4o
plugins:
  enabled: [financial, conversation]
`)

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}

	if cfg.Name != "TestBot" {
		t.Errorf("expected name TestBot, got %q", cfg.Name)
	}
	if cfg.MaxContextMessages != 50 {
		t.Errorf("expected 50 context messages, got %d", cfg.MaxContextMessages)
	}
	if cfg.API.Model != "gpt-4o" {
		t.Errorf("expected model override, got %q", cfg.API.Model)
	}
	// Defaults survive partial configs.
	if cfg.API.BaseURL == "" || cfg.Database.Path == "" {
		t.Error("defaults were not applied")
	}
	if len(cfg.Plugins.Enabled) != 2 {
		t.Errorf("expected 2 enabled plugins, got %v", cfg.Plugins.Enabled)
	}
}

func TestLoadConfigFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_LIFECLAW_KEY", "sk-from-env")
	path := writeConfig(t, `
api:
  api_key: ${TEST_LIFECLAW_KEY}
`)

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	if cfg.API.APIKey != "sk-from-env" {
		t.Errorf("env reference not expanded: %q", cfg.API.APIKey)
	}
}

func TestLoadConfigFromFile_UnsetEnvKeepsPlaceholder(t *testing.T) {
	path := writeConfig(t, `
api:
  api_key: ${DEFINITELY_NOT_SET_ANYWHERE}
`)

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	if !strings.HasPrefix(cfg.API.APIKey, "${") {
		t.Errorf("unset variable should keep its placeholder, got %q", cfg.API.APIKey)
	}
}

func TestLoadConfigFromFile_ClampsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
max_context_messages: -5
history_turns: 0
`)

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	if cfg.MaxContextMessages <= 0 || cfg.HistoryTurns <= 0 {
		t.Errorf("invalid values not clamped: %d, %d", cfg.MaxContextMessages, cfg.HistoryTurns)
	}
}

func TestSaveConfigToFile_SanitizesSecrets(t *testing.T) {
	t.Setenv("LIFECLAW_API_KEY", "sk-real-secret")

	cfg := DefaultConfig()
	cfg.API.APIKey = "sk-real-secret"

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := SaveConfigToFile(cfg, path); err != nil {
		t.Fatalf("SaveConfigToFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if strings.Contains(string(data), "sk-real-secret") {
		t.Error("plaintext secret written to config file")
	}
	if !strings.Contains(string(data), "${LIFECLAW_API_KEY}") {
		t.Error("expected env reference in saved config")
	}
}

func TestSessionWindowHelpers(t *testing.T) {
	sess := &session{}
	for i := 0; i < 5; i++ {
		sess.appendTurn("q", "a", 3)
	}
	if len(sess.history) > 6 {
		t.Errorf("window exceeds 2x max: %d", len(sess.history))
	}

	recent := sess.recent(2)
	if len(recent) != 4 {
		t.Errorf("expected 4 recent entries (2 turns), got %d", len(recent))
	}
}
