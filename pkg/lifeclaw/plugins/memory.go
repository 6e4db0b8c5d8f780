package plugins

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

// BackgroundMemory is the core memory plugin. It never handles messages
// directly; the orchestrator and other plugins use it to store notable
// exchanges and recall context.
type BackgroundMemory struct {
	plugin.Base
}

// NewBackgroundMemory constructs the background memory plugin.
func NewBackgroundMemory(host plugin.Host, settings map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	m := &BackgroundMemory{}
	m.Base = plugin.NewBase(plugin.Info{
		Name:        "memory",
		Description: "Core memory system for context and recall",
		Version:     "1.0.0",
		Enabled:     true,
		Priority:    1,
	}, host, settings, logger)
	return m, nil
}

// CanHandle always declines; this plugin works in the background.
func (m *BackgroundMemory) CanHandle(string, *plugin.Context) bool {
	return false
}

func (m *BackgroundMemory) Handle(context.Context, string, *plugin.Context) (string, error) {
	return "", nil
}

// StoreContext persists a notable exchange as a conversation memory when
// its importance crosses the long-term threshold.
func (m *BackgroundMemory) StoreContext(userID int64, message, response string, importance float64) {
	if importance <= 0.6 {
		return
	}
	content := fmt.Sprintf("User: %s\nAssistant: %s", message, response)
	if _, err := m.Store().SaveMemory(userID, "conversation", content, importance); err != nil {
		m.Logger().Error("failed to store context", "error", err)
	}
}

// RecallRelevant returns up to limit memories ranked by importance and
// recency. Failures degrade to an empty slice.
func (m *BackgroundMemory) RecallRelevant(userID int64, limit int) []store.Memory {
	memories, err := m.Store().RecallMemories(userID, limit)
	if err != nil {
		m.Logger().Error("failed to recall memories", "error", err)
		return nil
	}
	return memories
}
