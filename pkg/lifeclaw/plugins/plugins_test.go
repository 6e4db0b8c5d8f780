package plugins

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/brain"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

// fakeBrain returns canned values so plugin logic is tested without an
// LLM endpoint.
type fakeBrain struct {
	extracted map[string]any
	thought   string
	err       error
}

func (f *fakeBrain) Think(context.Context, string, []brain.Turn, []string) (string, error) {
	return f.thought, f.err
}

func (f *fakeBrain) AnalyzeIntent(context.Context, string) (brain.Intent, error) {
	return brain.DefaultIntent(), f.err
}

func (f *fakeBrain) ExtractStructured(context.Context, string, map[string]string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.extracted, nil
}

func (f *fakeBrain) Summarize(context.Context, []brain.Turn) (string, error) {
	return f.thought, f.err
}

// fakeHost wires a real temp-dir store with the fake brain.
type fakeHost struct {
	brain  plugin.Brain
	store  *store.Store
	userID int64
}

func (h *fakeHost) Brain() plugin.Brain          { return h.brain }
func (h *fakeHost) Store() *store.Store          { return h.store }
func (h *fakeHost) CurrentUserID() (int64, bool) { return h.userID, h.userID != 0 }

func newTestHost(t *testing.T, b plugin.Brain) (*fakeHost, *plugin.Context) {
	t.Helper()
	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	user, err := st.GetOrCreateUser("u1", "ana", "Ana", "")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	host := &fakeHost{brain: b, store: st, userID: user.ID}
	pctx := &plugin.Context{User: user, Intent: brain.DefaultIntent()}
	return host, pctx
}

func TestFinancial_LogsExpense(t *testing.T) {
	b := &fakeBrain{extracted: map[string]any{
		"amount": 25.0, "category": "food", "description": "groceries",
	}}
	host, pctx := newTestHost(t, b)
	f, _ := NewFinancial(host, nil, slog.Default())

	got, err := f.Handle(context.Background(), "I spent $25 on groceries", pctx)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(got, "25.00") {
		t.Errorf("confirmation should include the amount, got %q", got)
	}

	txs, err := host.store.TransactionsBetween(pctx.User.ID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("TransactionsBetween failed: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if txs[0].Amount != -25 {
		t.Errorf("expense should be stored negative, got %v", txs[0].Amount)
	}
	if txs[0].Category != "food" {
		t.Errorf("expected category food, got %q", txs[0].Category)
	}
}

func TestFinancial_FallbackAmountFromText(t *testing.T) {
	// Extraction fails entirely; the regex fallback still finds $12.50.
	host, pctx := newTestHost(t, &fakeBrain{err: errors.New("llm down")})
	f, _ := NewFinancial(host, nil, slog.Default())

	got, _ := f.Handle(context.Background(), "I paid $12.50 for parking", pctx)
	if !strings.Contains(got, "12.50") {
		t.Errorf("fallback amount not used: %q", got)
	}
}

func TestFinancial_NoAmount(t *testing.T) {
	host, pctx := newTestHost(t, &fakeBrain{extracted: map[string]any{}})
	f, _ := NewFinancial(host, nil, slog.Default())

	got, _ := f.Handle(context.Background(), "I spent money on stuff", pctx)
	if !strings.Contains(got, "couldn't determine the amount") {
		t.Errorf("expected amount guidance, got %q", got)
	}
}

func TestFinancial_BudgetWarning(t *testing.T) {
	b := &fakeBrain{extracted: map[string]any{"amount": 90.0, "category": "food"}}
	host, pctx := newTestHost(t, b)
	f, _ := NewFinancial(host, nil, slog.Default())

	if err := host.store.SetPluginData("financial", pctx.User.ID, "budgets", map[string]float64{"food": 100}); err != nil {
		t.Fatalf("SetPluginData failed: %v", err)
	}

	got, _ := f.Handle(context.Background(), "I spent $90 on food", pctx)
	if !strings.Contains(got, "Heads up") {
		t.Errorf("expected 80%% budget warning, got %q", got)
	}
}

func TestFinancial_DeclinesWithoutAction(t *testing.T) {
	host, pctx := newTestHost(t, &fakeBrain{})
	f, _ := NewFinancial(host, nil, slog.Default())

	got, err := f.Handle(context.Background(), "money is a strange thing", pctx)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected decline so dispatch continues, got %q", got)
	}
}

func TestPersonalMemory_RemembersAndClassifies(t *testing.T) {
	host, pctx := newTestHost(t, &fakeBrain{})
	p, _ := NewPersonalMemory(host, nil, slog.Default())

	got, err := p.Handle(context.Background(), "remember that I work at the hospital", pctx)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(got, "remember") {
		t.Errorf("expected confirmation, got %q", got)
	}

	memories, _ := host.store.RecallMemories(pctx.User.ID, 10)
	if len(memories) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(memories))
	}
	if memories[0].Category != "work" {
		t.Errorf("expected work category, got %q", memories[0].Category)
	}
}

func TestPersonalMemory_RecallEmpty(t *testing.T) {
	// Dispatched through the full default catalog: a recall query with
	// zero stored memories must route to the memory plugin, not fall
	// through to the conversation fallback.
	host, pctx := newTestHost(t, &fakeBrain{thought: "llm answer"})

	reg := plugin.NewRegistry(slog.Default())
	reg.Load(context.Background(), Builtin(), plugin.RegistryConfig{Enabled: DefaultEnabled()}, host)

	got := reg.Dispatch(context.Background(), "what do you know about me", pctx)
	if !strings.Contains(got, "don't have any memories") {
		t.Errorf("expected empty-memory message, got %q", got)
	}
}

func TestPersonalMemory_MatchesFactPhrases(t *testing.T) {
	host, pctx := newTestHost(t, &fakeBrain{})
	p, _ := NewPersonalMemory(host, nil, slog.Default())

	if !p.CanHandle("my name is Ana", pctx) {
		t.Error("fact-stating phrase should match without keywords")
	}
	if p.CanHandle("how is the weather", pctx) {
		t.Error("unrelated message should not match")
	}
}

func TestReminders_CreateTimeBased(t *testing.T) {
	b := &fakeBrain{extracted: map[string]any{
		"title": "call mom",
		"time":  "2026-09-01T14:00:00",
	}}
	host, pctx := newTestHost(t, b)
	r, _ := NewReminders(host, nil, slog.Default())

	got, err := r.Handle(context.Background(), "remind me to call mom tomorrow at 2pm", pctx)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(got, "Reminder set for") {
		t.Errorf("expected confirmation, got %q", got)
	}

	active, _ := host.store.ActiveReminders(pctx.User.ID)
	if len(active) != 1 || active[0].Title != "call mom" {
		t.Fatalf("reminder not stored: %+v", active)
	}
}

func TestReminders_NeedsTimeOrTrigger(t *testing.T) {
	host, pctx := newTestHost(t, &fakeBrain{extracted: map[string]any{"title": "vague"}})
	r, _ := NewReminders(host, nil, slog.Default())

	got, _ := r.Handle(context.Background(), "remind me about the thing", pctx)
	if !strings.Contains(got, "when to remind you") {
		t.Errorf("expected guidance, got %q", got)
	}
}

func TestConversation_AlwaysMatches(t *testing.T) {
	host, pctx := newTestHost(t, &fakeBrain{thought: "sure thing"})
	c, _ := NewConversation(host, nil, slog.Default())

	if !c.CanHandle("literally anything", pctx) {
		t.Error("conversation plugin must claim every message")
	}
	got, err := c.Handle(context.Background(), "hi", pctx)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if got != "sure thing" {
		t.Errorf("expected LLM response, got %q", got)
	}
}

func TestConversation_FriendlyOnError(t *testing.T) {
	host, pctx := newTestHost(t, &fakeBrain{err: errors.New("llm down")})
	c, _ := NewConversation(host, nil, slog.Default())

	got, err := c.Handle(context.Background(), "hi", pctx)
	if err != nil {
		t.Fatalf("Handle should swallow LLM errors, got %v", err)
	}
	if !strings.Contains(got, "trouble processing") {
		t.Errorf("expected friendly degradation, got %q", got)
	}
}

func TestBackgroundMemory_NeverHandles(t *testing.T) {
	host, pctx := newTestHost(t, &fakeBrain{})
	m, _ := NewBackgroundMemory(host, nil, slog.Default())

	if m.CanHandle("remember everything", pctx) {
		t.Error("background memory must not claim messages")
	}
}

func TestBackgroundMemory_ImportanceThreshold(t *testing.T) {
	host, pctx := newTestHost(t, &fakeBrain{})
	p, _ := NewBackgroundMemory(host, nil, slog.Default())
	m := p.(*BackgroundMemory)

	m.StoreContext(pctx.User.ID, "trivial", "ok", 0.3)
	m.StoreContext(pctx.User.ID, "important", "noted", 0.9)

	count, _ := host.store.CountMemories(pctx.User.ID)
	if count != 1 {
		t.Errorf("only the important exchange should be stored, got %d memories", count)
	}
}

func TestCatalog(t *testing.T) {
	catalog := Builtin()
	for _, name := range DefaultEnabled() {
		if _, ok := catalog[name]; !ok {
			t.Errorf("default plugin %q missing from catalog", name)
		}
	}
	if _, ok := catalog["health"]; !ok {
		t.Error("health plugin missing from catalog")
	}
	for _, name := range DefaultEnabled() {
		if name == "health" {
			t.Error("health should be opt-in, not enabled by default")
		}
	}
}

func TestAmountFromText(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"I spent $25 on groceries", 25, true},
		{"paid 12.50 for parking", 12.50, true},
		{"nothing numeric here", 0, false},
	}
	for _, c := range cases {
		got, ok := amountFromText(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("amountFromText(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestAsFloat_CoercesStrings(t *testing.T) {
	m := map[string]any{"a": "$25.50", "b": 10.0, "c": "not a number"}

	if v, ok := asFloat(m, "a"); !ok || v != 25.50 {
		t.Errorf("expected 25.50 from dollar string, got %v, %v", v, ok)
	}
	if v, ok := asFloat(m, "b"); !ok || v != 10 {
		t.Errorf("expected 10, got %v, %v", v, ok)
	}
	if _, ok := asFloat(m, "c"); ok {
		t.Error("non-numeric string should not coerce")
	}
}

func TestAsTime_Layouts(t *testing.T) {
	for _, s := range []string{
		"2026-09-01T14:00:00Z",
		"2026-09-01T14:00:00",
		"2026-09-01 14:00:00",
		"2026-09-01",
	} {
		if asTime(map[string]any{"t": s}, "t") == nil {
			t.Errorf("asTime failed to parse %q", s)
		}
	}
	if asTime(map[string]any{"t": "soon"}, "t") != nil {
		t.Error("asTime should reject non-datetime text")
	}
}
