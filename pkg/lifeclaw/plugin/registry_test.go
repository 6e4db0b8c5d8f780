package plugin

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

// fakePlugin is a minimal plugin for dispatch tests.
type fakePlugin struct {
	name     string
	priority int
	matches  bool
	response string
	err      error
	panics   bool

	handled     bool
	initialized bool
	shutdown    bool
}

func (f *fakePlugin) Info() Info {
	return Info{Name: f.name, Priority: f.priority, Version: "1.0"}
}

func (f *fakePlugin) CanHandle(string, *Context) bool { return f.matches }

func (f *fakePlugin) Handle(context.Context, string, *Context) (string, error) {
	f.handled = true
	if f.panics {
		panic("boom")
	}
	return f.response, f.err
}

func (f *fakePlugin) Commands() []Command              { return nil }
func (f *fakePlugin) Initialize(context.Context) error { f.initialized = true; return nil }
func (f *fakePlugin) Shutdown() error                  { f.shutdown = true; return nil }

func factoryFor(p Plugin) Factory {
	return func(Host, map[string]any, *slog.Logger) (Plugin, error) {
		return p, nil
	}
}

func loadRegistry(t *testing.T, enabled []string, catalog map[string]Factory) *Registry {
	t.Helper()
	r := NewRegistry(slog.Default())
	r.Load(context.Background(), catalog, RegistryConfig{Enabled: enabled}, nil)
	return r
}

func TestDispatch_PriorityOrder(t *testing.T) {
	low := &fakePlugin{name: "low", priority: 10, matches: true, response: "from-low"}
	high := &fakePlugin{name: "high", priority: 99, matches: true, response: "from-high"}

	// Enabled in reverse priority order; dispatch must still prefer lower.
	r := loadRegistry(t, []string{"high", "low"}, map[string]Factory{
		"low": factoryFor(low), "high": factoryFor(high),
	})

	got := r.Dispatch(context.Background(), "msg", &Context{})
	if got != "from-low" {
		t.Errorf("expected lowest priority plugin to win, got %q", got)
	}
	if high.handled {
		t.Error("higher priority plugin should not run after a match")
	}
}

func TestDispatch_ContinuesOnEmptyResponse(t *testing.T) {
	decliner := &fakePlugin{name: "decliner", priority: 10, matches: true, response: ""}
	responder := &fakePlugin{name: "responder", priority: 50, matches: true, response: "handled"}

	r := loadRegistry(t, []string{"decliner", "responder"}, map[string]Factory{
		"decliner": factoryFor(decliner), "responder": factoryFor(responder),
	})

	got := r.Dispatch(context.Background(), "msg", &Context{})
	if got != "handled" {
		t.Errorf("expected dispatch to continue past empty response, got %q", got)
	}
	if !decliner.handled {
		t.Error("declining plugin should have been offered the message")
	}
}

func TestDispatch_ContinuesOnError(t *testing.T) {
	failing := &fakePlugin{name: "failing", priority: 10, matches: true, err: errors.New("db down")}
	responder := &fakePlugin{name: "responder", priority: 50, matches: true, response: "handled"}

	r := loadRegistry(t, []string{"failing", "responder"}, map[string]Factory{
		"failing": factoryFor(failing), "responder": factoryFor(responder),
	})

	if got := r.Dispatch(context.Background(), "msg", &Context{}); got != "handled" {
		t.Errorf("expected dispatch to survive a plugin error, got %q", got)
	}
}

func TestDispatch_SurvivesPanic(t *testing.T) {
	panicky := &fakePlugin{name: "panicky", priority: 10, matches: true, panics: true}
	responder := &fakePlugin{name: "responder", priority: 50, matches: true, response: "handled"}

	r := loadRegistry(t, []string{"panicky", "responder"}, map[string]Factory{
		"panicky": factoryFor(panicky), "responder": factoryFor(responder),
	})

	if got := r.Dispatch(context.Background(), "msg", &Context{}); got != "handled" {
		t.Errorf("expected dispatch to survive a panic, got %q", got)
	}
}

func TestDispatch_NoMatchReturnsEmpty(t *testing.T) {
	p := &fakePlugin{name: "p", priority: 10, matches: false}
	r := loadRegistry(t, []string{"p"}, map[string]Factory{"p": factoryFor(p)})

	if got := r.Dispatch(context.Background(), "msg", &Context{}); got != "" {
		t.Errorf("expected empty response when nothing matches, got %q", got)
	}
	if p.handled {
		t.Error("plugin without a match should not be handled")
	}
}

func TestLoad_SkipsUnknownPlugins(t *testing.T) {
	p := &fakePlugin{name: "real", priority: 10}
	r := loadRegistry(t, []string{"real", "ghost"}, map[string]Factory{"real": factoryFor(p)})

	names := r.Names()
	if len(names) != 1 || names[0] != "real" {
		t.Errorf("expected only the known plugin to load, got %v", names)
	}
	if !p.initialized {
		t.Error("loaded plugin was not initialized")
	}
}

func TestShutdownAll(t *testing.T) {
	p := &fakePlugin{name: "p", priority: 10}
	r := loadRegistry(t, []string{"p"}, map[string]Factory{"p": factoryFor(p)})

	r.ShutdownAll()
	if !p.shutdown {
		t.Error("expected plugin shutdown to be called")
	}
}

func TestBase_KeywordMatching(t *testing.T) {
	b := NewBase(Info{Name: "x", Keywords: []string{"spent", "budget"}}, nil, nil, nil)

	if !b.CanHandle("I SPENT $5", nil) {
		t.Error("keyword match should be case-insensitive")
	}
	if b.CanHandle("hello there", nil) {
		t.Error("message without keywords should not match")
	}

	empty := NewBase(Info{Name: "y"}, nil, nil, nil)
	if empty.CanHandle("anything", nil) {
		t.Error("plugin without keywords should never match by default")
	}
}
