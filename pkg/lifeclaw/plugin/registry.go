package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrNoUser is returned by scoped storage when no user context is active.
var ErrNoUser = errors.New("no active user context")

// RegistryConfig controls which plugins load and with what settings.
type RegistryConfig struct {
	// Enabled lists plugin names to load, in discovery order.
	// Registration order breaks priority ties.
	Enabled []string `yaml:"enabled"`

	// Settings maps plugin name to its settings map.
	Settings map[string]map[string]any `yaml:"settings"`
}

// Registry owns the ordered set of loaded plugins and performs
// first-match dispatch.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger.With("component", "registry"),
	}
}

// Load instantiates and initializes every enabled plugin from the catalog,
// then sorts the set ascending by priority (stable, so ties keep the
// enablement-list order). A plugin that fails to construct or initialize
// is skipped and logged; it does not abort the rest.
func (r *Registry) Load(ctx context.Context, catalog map[string]Factory, cfg RegistryConfig, host Host) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range cfg.Enabled {
		factory, ok := catalog[name]
		if !ok {
			r.logger.Warn("unknown plugin in enabled list, skipping", "plugin", name)
			continue
		}

		p, err := factory(host, cfg.Settings[name], r.logger)
		if err != nil {
			r.logger.Error("failed to construct plugin", "plugin", name, "error", err)
			continue
		}
		if err := p.Initialize(ctx); err != nil {
			r.logger.Error("failed to initialize plugin", "plugin", name, "error", err)
			continue
		}

		r.plugins = append(r.plugins, p)
		info := p.Info()
		r.logger.Info("plugin loaded", "plugin", info.Name, "version", info.Version, "priority", info.Priority)
	}

	sort.SliceStable(r.plugins, func(i, j int) bool {
		return r.plugins[i].Info().Priority < r.plugins[j].Info().Priority
	})

	r.logger.Info("plugins loaded", "count", len(r.plugins))
}

// Dispatch tries plugins in priority order and returns the first
// non-empty response. A plugin whose CanHandle matches but whose Handle
// declines or fails does not stop the scan. Returns "" when no plugin
// produces a response.
func (r *Registry) Dispatch(ctx context.Context, message string, pctx *Context) string {
	r.mu.RLock()
	plugins := append([]Plugin(nil), r.plugins...)
	r.mu.RUnlock()

	for _, p := range plugins {
		name := p.Info().Name

		if !r.safeCanHandle(p, message, pctx) {
			continue
		}

		r.logger.Debug("routing to plugin", "plugin", name)
		response, err := r.safeHandle(ctx, p, message, pctx)
		if err != nil {
			r.logger.Error("plugin handle failed", "plugin", name, "error", err)
			continue
		}
		if response != "" {
			return response
		}
	}
	return ""
}

// safeCanHandle calls CanHandle with panic isolation; a panicking plugin
// is treated as not matching.
func (r *Registry) safeCanHandle(p Plugin, message string, pctx *Context) (matched bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("plugin CanHandle panicked", "plugin", p.Info().Name, "panic", rec)
			matched = false
		}
	}()
	return p.CanHandle(message, pctx)
}

// safeHandle calls Handle with panic isolation; a panicking plugin is
// treated as producing no response.
func (r *Registry) safeHandle(ctx context.Context, p Plugin, message string, pctx *Context) (response string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			response = ""
			err = fmt.Errorf("plugin panicked: %v", rec)
		}
	}()
	return p.Handle(ctx, message, pctx)
}

// ShutdownAll shuts down every plugin. One plugin's failure is logged and
// does not block the rest.
func (r *Registry) ShutdownAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if err := p.Shutdown(); err != nil {
			r.logger.Error("plugin shutdown failed", "plugin", p.Info().Name, "error", err)
			continue
		}
		r.logger.Debug("plugin shut down", "plugin", p.Info().Name)
	}
}

// List returns metadata for all loaded plugins in dispatch order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.plugins))
	for _, p := range r.plugins {
		infos = append(infos, p.Info())
	}
	return infos
}

// Names returns the loaded plugin names in dispatch order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for _, p := range r.plugins {
		names = append(names, p.Info().Name)
	}
	return names
}

// PluginCommands groups one plugin's help entries.
type PluginCommands struct {
	Plugin   string
	Commands []Command
}

// AllCommands returns help entries for every plugin that declares any,
// in dispatch order.
func (r *Registry) AllCommands() []PluginCommands {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []PluginCommands
	for _, p := range r.plugins {
		cmds := p.Commands()
		if len(cmds) == 0 {
			continue
		}
		out = append(out, PluginCommands{Plugin: p.Info().Name, Commands: cmds})
	}
	return out
}
