package agent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/brain"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

const (
	// noUserGuidance is sent to the transport when no user is active.
	noUserGuidance = "I don't know who I'm talking to yet. Please say hi first so I can set up your profile."

	// errorResponse is the only error text a user ever sees.
	errorResponse = "Sorry, something went wrong on my end. Please try again."

	// memorySummaryMinLength gates automatic memory extraction: shorter
	// summaries are noise.
	memorySummaryMinLength = 20
)

// Agent is the conversation orchestrator. It owns the store, the LLM
// client, and the plugin registry, and implements plugin.Host.
type Agent struct {
	cfg      *Config
	logger   *slog.Logger
	store    *store.Store
	brain    *brain.Client
	registry *plugin.Registry

	mu       sync.RWMutex
	sessions map[int64]*session
	current  *session
}

// New creates the agent: opens the store, builds the LLM client, and
// loads the enabled plugins from the catalog.
func New(ctx context.Context, cfg *Config, catalog map[string]plugin.Factory, logger *slog.Logger) (*Agent, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a := &Agent{
		cfg:      cfg,
		logger:   logger.With("component", "agent"),
		store:    st,
		brain:    brain.New(cfg.API, logger),
		registry: plugin.NewRegistry(logger),
		sessions: map[int64]*session{},
	}
	a.registry.Load(ctx, catalog, cfg.Plugins, a)
	return a, nil
}

// Brain implements plugin.Host.
func (a *Agent) Brain() plugin.Brain {
	return a.brain
}

// Store implements plugin.Host.
func (a *Agent) Store() *store.Store {
	return a.store
}

// CurrentUserID implements plugin.Host.
func (a *Agent) CurrentUserID() (int64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return 0, false
	}
	return a.current.user.ID, true
}

// Registry exposes the plugin registry for introspection surfaces.
func (a *Agent) Registry() *plugin.Registry {
	return a.registry
}

// SetUser makes the user with the given transport identity current,
// creating the profile on first contact. Idempotent: calling it again
// with the same external ID reuses the same session and does not
// duplicate the user record.
func (a *Agent) SetUser(externalID, username, firstName, lastName string) (*store.User, error) {
	user, err := a.store.GetOrCreateUser(externalID, username, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("resolving user %q: %w", externalID, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	sess, ok := a.sessions[user.ID]
	if !ok {
		sess = &session{user: user}
		if err := sess.rebuild(a.store, a.cfg.MaxContextMessages); err != nil {
			return nil, fmt.Errorf("rebuilding context for user %d: %w", user.ID, err)
		}
		a.sessions[user.ID] = sess
		a.logger.Info("session created", "user_id", user.ID, "history", len(sess.history))
	} else {
		sess.user = user
	}
	a.current = sess
	return user, nil
}

// ProcessMessage runs the full pipeline for one inbound message and
// returns the response text. It never returns an error to the transport:
// internal failures degrade to defaults or to a fixed apology. Turns for
// the same user are serialized; different users run concurrently.
func (a *Agent) ProcessMessage(ctx context.Context, message string) (response string) {
	a.mu.RLock()
	sess := a.current
	a.mu.RUnlock()
	if sess == nil {
		return noUserGuidance
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("panic in message pipeline",
				"user_id", sess.user.ID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			response = errorResponse
		}
	}()

	// 1. Classify intent; degrade to the neutral default on failure.
	intent, err := a.brain.AnalyzeIntent(ctx, message)
	if err != nil {
		a.logger.Warn("intent analysis failed, using default", "error", err)
		intent = brain.DefaultIntent()
	}
	a.logger.Debug("intent classified",
		"primary", intent.Primary,
		"action", intent.ActionType,
		"urgency", intent.Urgency,
	)

	pctx := &plugin.Context{
		User:        sess.user,
		History:     sess.recent(a.cfg.HistoryTurns),
		Intent:      intent,
		PluginNames: a.registry.Names(),
	}

	// 2. First-match plugin dispatch.
	response = a.registry.Dispatch(ctx, message, pctx)

	// 3. Fall back to free-form generation.
	if response == "" {
		response, err = a.brain.Think(ctx, message, pctx.History, pctx.PluginNames)
		if err != nil {
			a.logger.Error("fallback generation failed", "error", err)
			response = errorResponse
		}
	}

	// 4. Persist the turn unconditionally.
	if err := a.store.SaveTurn(sess.user.ID, message, response); err != nil {
		a.logger.Error("failed to persist turn", "user_id", sess.user.ID, "error", err)
	}

	// 5. Extract a long-term memory when the exchange needs context.
	if intent.RequiresContext {
		a.extractMemory(ctx, sess.user.ID, message, response)
	}

	// 6. Update the sliding window.
	sess.appendTurn(message, response, a.cfg.MaxContextMessages)

	return response
}

// extractMemory summarizes the exchange and stores it when the summary is
// substantial. Failures are logged and swallowed.
func (a *Agent) extractMemory(ctx context.Context, userID int64, message, response string) {
	summary, err := a.brain.Summarize(ctx, []brain.Turn{
		{Role: "user", Content: message},
		{Role: "assistant", Content: response},
	})
	if err != nil {
		a.logger.Warn("memory summarization failed", "error", err)
		return
	}
	if len(summary) <= memorySummaryMinLength {
		return
	}
	if _, err := a.store.SaveMemory(userID, "conversation", summary, 0.5); err != nil {
		a.logger.Warn("failed to persist extracted memory", "error", err)
	}
}

// Help composes the help text from every plugin's command table.
func (a *Agent) Help() string {
	var sb strings.Builder
	sb.WriteString("Here's what I can do:\n")
	for _, pc := range a.registry.AllCommands() {
		fmt.Fprintf(&sb, "\n%s:\n", pc.Plugin)
		for _, cmd := range pc.Commands {
			fmt.Fprintf(&sb, "  %s - %s\n", cmd.Example, cmd.Description)
		}
	}
	return sb.String()
}

// ListPlugins returns the loaded plugins in dispatch order.
func (a *Agent) ListPlugins() []plugin.Info {
	return a.registry.List()
}

// Close shuts down the plugins and releases the store.
func (a *Agent) Close() {
	a.registry.ShutdownAll()
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close store", "error", err)
	}
}
