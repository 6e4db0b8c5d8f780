package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestGetOrCreateUser_Idempotent(t *testing.T) {
	st := newTestStore(t)

	first, err := st.GetOrCreateUser("tg:123", "ana", "Ana", "")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	second, err := st.GetOrCreateUser("tg:123", "ana", "Ana", "")
	if err != nil {
		t.Fatalf("second GetOrCreateUser failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected same user ID, got %d and %d", first.ID, second.ID)
	}
}

func TestGetOrCreateUser_RefreshesProfile(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.GetOrCreateUser("tg:123", "", "", ""); err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	user, err := st.GetOrCreateUser("tg:123", "ana", "Ana", "Silva")
	if err != nil {
		t.Fatalf("second GetOrCreateUser failed: %v", err)
	}

	if user.Username != "ana" || user.FirstName != "Ana" {
		t.Errorf("profile not refreshed: %+v", user)
	}
}

func TestUserByID(t *testing.T) {
	st := newTestStore(t)

	created, _ := st.GetOrCreateUser("tg:42", "bob", "Bob", "")
	got, err := st.UserByID(created.ID)
	if err != nil {
		t.Fatalf("UserByID failed: %v", err)
	}
	if got.ExternalID != "tg:42" {
		t.Errorf("expected external ID tg:42, got %q", got.ExternalID)
	}
}

func TestPluginData_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	in := map[string]float64{"food": 300, "transport": 100}
	if err := st.SetPluginData("financial", user.ID, "budgets", in); err != nil {
		t.Fatalf("SetPluginData failed: %v", err)
	}

	var out map[string]float64
	found, err := st.GetPluginData("financial", user.ID, "budgets", &out)
	if err != nil {
		t.Fatalf("GetPluginData failed: %v", err)
	}
	if !found {
		t.Fatal("expected data to be found")
	}
	if out["food"] != 300 {
		t.Errorf("expected food budget 300, got %v", out["food"])
	}
}

func TestPluginData_Isolation(t *testing.T) {
	st := newTestStore(t)
	alice, _ := st.GetOrCreateUser("u1", "", "", "")
	bob, _ := st.GetOrCreateUser("u2", "", "", "")

	if err := st.SetPluginData("financial", alice.ID, "budgets", "alice-data"); err != nil {
		t.Fatalf("SetPluginData failed: %v", err)
	}

	var out string

	// Different user: miss.
	found, err := st.GetPluginData("financial", bob.ID, "budgets", &out)
	if err != nil {
		t.Fatalf("GetPluginData failed: %v", err)
	}
	if found {
		t.Error("data leaked across users")
	}

	// Same user, different plugin: miss.
	found, err = st.GetPluginData("health", alice.ID, "budgets", &out)
	if err != nil {
		t.Fatalf("GetPluginData failed: %v", err)
	}
	if found {
		t.Error("data leaked across plugins")
	}
}

func TestPluginData_Upsert(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	if err := st.SetPluginData("p", user.ID, "k", "first"); err != nil {
		t.Fatalf("SetPluginData failed: %v", err)
	}
	if err := st.SetPluginData("p", user.ID, "k", "second"); err != nil {
		t.Fatalf("second SetPluginData failed: %v", err)
	}

	var out string
	if _, err := st.GetPluginData("p", user.ID, "k", &out); err != nil {
		t.Fatalf("GetPluginData failed: %v", err)
	}
	if out != "second" {
		t.Errorf("expected last write to win, got %q", out)
	}
}

func TestSaveTurn_And_RecentTurns(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	for i := 0; i < 5; i++ {
		if err := st.SaveTurn(user.ID, "hi", "hello"); err != nil {
			t.Fatalf("SaveTurn failed: %v", err)
		}
	}

	turns, err := st.RecentTurns(user.ID, 3)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 3 {
		t.Errorf("expected 3 turns, got %d", len(turns))
	}
}

func TestDueReminders(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	overdue, err := st.CreateReminder(&Reminder{UserID: user.ID, Title: "overdue", RemindAt: &past})
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	if _, err := st.CreateReminder(&Reminder{UserID: user.ID, Title: "later", RemindAt: &future}); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	// Context-triggered reminders have no due time and never sweep.
	if _, err := st.CreateReminder(&Reminder{UserID: user.ID, Title: "ctx", TriggerCtx: "talking to mom"}); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	due, err := st.DueReminders(time.Now().UTC())
	if err != nil {
		t.Fatalf("DueReminders failed: %v", err)
	}
	if len(due) != 1 || due[0].Title != "overdue" {
		t.Fatalf("expected only the overdue reminder, got %+v", due)
	}

	if err := st.CompleteReminder(overdue.ID); err != nil {
		t.Fatalf("CompleteReminder failed: %v", err)
	}
	due, _ = st.DueReminders(time.Now().UTC())
	if len(due) != 0 {
		t.Errorf("completed reminder still due: %+v", due)
	}
}

func TestDueReminders_SubsecondQueryTime(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	// A reminder on a whole-second boundary must be due when the sweep
	// runs a fraction of a second later.
	at := time.Now().UTC().Truncate(time.Second)
	if _, err := st.CreateReminder(&Reminder{UserID: user.ID, Title: "on the second", RemindAt: &at}); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	due, err := st.DueReminders(at.Add(500 * time.Millisecond))
	if err != nil {
		t.Fatalf("DueReminders failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected the reminder to be due, got %d", len(due))
	}
}

func TestRescheduleReminder(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	past := time.Now().UTC().Add(-time.Minute)
	r, err := st.CreateReminder(&Reminder{
		UserID: user.ID, Title: "standup", RemindAt: &past, Recurring: true, Pattern: "daily",
	})
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	next := time.Now().UTC().Add(24 * time.Hour)
	if err := st.RescheduleReminder(r.ID, next); err != nil {
		t.Fatalf("RescheduleReminder failed: %v", err)
	}

	due, _ := st.DueReminders(time.Now().UTC())
	if len(due) != 0 {
		t.Errorf("rescheduled reminder still due: %+v", due)
	}

	active, err := st.ActiveReminders(user.ID)
	if err != nil {
		t.Fatalf("ActiveReminders failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active reminder, got %d", len(active))
	}
}

func TestSpentInCategory(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	now := time.Now().UTC()
	txs := []Transaction{
		{UserID: user.ID, Amount: -25, Category: "food", OccurredAt: now},
		{UserID: user.ID, Amount: -10, Category: "food", OccurredAt: now},
		{UserID: user.ID, Amount: -99, Category: "transport", OccurredAt: now},
		{UserID: user.ID, Amount: 500, Category: "salary", OccurredAt: now},
	}
	for i := range txs {
		if err := st.SaveTransaction(&txs[i]); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}
	}

	spent, err := st.SpentInCategory(user.ID, "food", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("SpentInCategory failed: %v", err)
	}
	if spent != 35 {
		t.Errorf("expected 35 spent on food, got %v", spent)
	}
}

func TestMemories_RecallBumpsAccess(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	if _, err := st.SaveMemory(user.ID, "personal", "prefers short answers", 0.8); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}

	memories, err := st.RecallMemories(user.ID, 10)
	if err != nil {
		t.Fatalf("RecallMemories failed: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(memories))
	}

	memories, _ = st.RecallMemories(user.ID, 10)
	if memories[0].AccessCount < 1 {
		t.Errorf("expected access count bumped, got %d", memories[0].AccessCount)
	}
}

func TestContacts_CaseInsensitiveLookup(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	if err := st.AddContact(&Contact{UserID: user.ID, Name: "Maria", Relation: "friend"}); err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}

	c, err := st.ContactByName(user.ID, "maria")
	if err != nil {
		t.Fatalf("ContactByName failed: %v", err)
	}
	if c == nil {
		t.Fatal("expected contact, got nil")
	}

	missing, err := st.ContactByName(user.ID, "nobody")
	if err != nil {
		t.Fatalf("ContactByName failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown contact, got %+v", missing)
	}
}
