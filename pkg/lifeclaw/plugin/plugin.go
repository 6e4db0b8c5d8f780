// Package plugin defines the LifeClaw plugin contract and the registry
// that dispatches messages to plugins. A plugin encapsulates one
// life-management domain (finance, reminders, calendar, contacts, health,
// memory) and is routed to by trigger keywords and priority.
package plugin

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/brain"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

// Brain is the subset of the LLM client plugins are allowed to use.
type Brain interface {
	Think(ctx context.Context, message string, history []brain.Turn, pluginNames []string) (string, error)
	AnalyzeIntent(ctx context.Context, message string) (brain.Intent, error)
	ExtractStructured(ctx context.Context, text string, schema map[string]string) (map[string]any, error)
	Summarize(ctx context.Context, turns []brain.Turn) (string, error)
}

// Host gives plugins access to the orchestrator's resources.
type Host interface {
	// Brain returns the LLM client.
	Brain() Brain

	// Store returns the persistence layer.
	Store() *store.Store

	// CurrentUserID returns the active user, or false if none is set.
	CurrentUserID() (int64, bool)
}

// Context carries per-message state into CanHandle/Handle.
type Context struct {
	// User is the active user's profile snapshot.
	User *store.User

	// History is the sliding window of recent turns, oldest first.
	History []brain.Turn

	// Intent is the classification of the current message.
	Intent brain.Intent

	// PluginNames lists the currently loaded plugins.
	PluginNames []string
}

// Info is static plugin metadata.
type Info struct {
	// Name is the unique plugin identifier (e.g. "financial").
	Name string

	// Description is a short human-readable summary.
	Description string

	// Version is the plugin version string.
	Version string

	// Enabled indicates whether the plugin is active.
	Enabled bool

	// Priority orders dispatch; lower sorts first.
	Priority int

	// Keywords trigger the default CanHandle when any is a
	// case-insensitive substring of the message.
	Keywords []string
}

// Command is one help entry: an example phrase and what it does.
type Command struct {
	Example     string
	Description string
}

// Plugin is the contract every LifeClaw plugin implements.
type Plugin interface {
	// Info returns the plugin's static metadata.
	Info() Info

	// CanHandle reports whether the plugin wants this message.
	CanHandle(message string, pctx *Context) bool

	// Handle processes the message. Returning ("", nil) declines so
	// dispatch continues to the next plugin.
	Handle(ctx context.Context, message string, pctx *Context) (string, error)

	// Commands returns static help entries. No side effects.
	Commands() []Command

	// Initialize runs once at registry load time.
	Initialize(ctx context.Context) error

	// Shutdown runs once at registry unload time.
	Shutdown() error
}

// Factory constructs a plugin bound to the host with its settings injected.
type Factory func(host Host, settings map[string]any, logger *slog.Logger) (Plugin, error)

// Base provides the default plugin behavior: keyword matching, scoped
// key/value storage, and config accessors. Embed it and override what
// the plugin needs.
type Base struct {
	host     Host
	info     Info
	settings map[string]any
	logger   *slog.Logger
}

// NewBase creates the embedded base for a plugin.
func NewBase(info Info, host Host, settings map[string]any, logger *slog.Logger) Base {
	if logger == nil {
		logger = slog.Default()
	}
	if settings == nil {
		settings = map[string]any{}
	}
	return Base{
		host:     host,
		info:     info,
		settings: settings,
		logger:   logger.With("plugin", info.Name),
	}
}

// Info returns the plugin metadata.
func (b *Base) Info() Info {
	return b.info
}

// CanHandle implements the default keyword policy: true iff any trigger
// keyword is a case-insensitive substring of the message. Plugins with no
// keywords never match by default.
func (b *Base) CanHandle(message string, _ *Context) bool {
	if len(b.info.Keywords) == 0 {
		return false
	}
	lower := strings.ToLower(message)
	for _, kw := range b.info.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Commands returns no help entries by default.
func (b *Base) Commands() []Command {
	return nil
}

// Initialize is a no-op by default.
func (b *Base) Initialize(ctx context.Context) error {
	return nil
}

// Shutdown is a no-op by default.
func (b *Base) Shutdown() error {
	return nil
}

// Brain returns the host's LLM client.
func (b *Base) Brain() Brain {
	return b.host.Brain()
}

// Store returns the host's persistence layer.
func (b *Base) Store() *store.Store {
	return b.host.Store()
}

// Logger returns the plugin-scoped logger.
func (b *Base) Logger() *slog.Logger {
	return b.logger
}

// StoreData upserts a value scoped to (plugin name, current user, key).
func (b *Base) StoreData(key string, value any) error {
	userID, ok := b.host.CurrentUserID()
	if !ok {
		return ErrNoUser
	}
	return b.host.Store().SetPluginData(b.info.Name, userID, key, value)
}

// LoadData loads the value under (plugin name, current user, key) into out.
// Returns false when absent.
func (b *Base) LoadData(key string, out any) (bool, error) {
	userID, ok := b.host.CurrentUserID()
	if !ok {
		return false, ErrNoUser
	}
	return b.host.Store().GetPluginData(b.info.Name, userID, key, out)
}

// GetConfig returns a setting value, or def when unset.
func (b *Base) GetConfig(key string, def any) any {
	if v, ok := b.settings[key]; ok {
		return v
	}
	return def
}

// SetConfig sets a setting value in the injected settings map.
func (b *Base) SetConfig(key string, value any) {
	b.settings[key] = value
}
