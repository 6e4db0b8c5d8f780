package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

func newTestScheduler(t *testing.T) (*Scheduler, *store.Store) {
	t.Helper()
	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s := New(DefaultConfig(), st, nil, nil)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	t.Cleanup(s.cancel)
	return s, st
}

func TestSweep_CompletesOneShot(t *testing.T) {
	s, st := newTestScheduler(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	past := time.Now().UTC().Add(-time.Minute)
	if _, err := st.CreateReminder(&store.Reminder{UserID: user.ID, Title: "dentist", RemindAt: &past}); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	s.sweep()

	due, err := st.DueReminders(time.Now().UTC())
	if err != nil {
		t.Fatalf("DueReminders failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("one-shot reminder should be completed after delivery, got %+v", due)
	}

	active, _ := st.ActiveReminders(user.ID)
	if len(active) != 0 {
		t.Errorf("completed reminder should not stay active: %+v", active)
	}
}

func TestSweep_ReschedulesRecurring(t *testing.T) {
	s, st := newTestScheduler(t)
	user, _ := st.GetOrCreateUser("u1", "", "", "")

	past := time.Now().UTC().Add(-time.Minute)
	if _, err := st.CreateReminder(&store.Reminder{
		UserID: user.ID, Title: "standup", RemindAt: &past, Recurring: true, Pattern: "daily",
	}); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	s.sweep()

	due, _ := st.DueReminders(time.Now().UTC())
	if len(due) != 0 {
		t.Errorf("recurring reminder should be pushed to the future: %+v", due)
	}

	active, err := st.ActiveReminders(user.ID)
	if err != nil {
		t.Fatalf("ActiveReminders failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("recurring reminder must stay active, got %d", len(active))
	}
	if active[0].RemindAt == nil || !active[0].RemindAt.After(time.Now().UTC()) {
		t.Errorf("next occurrence should be in the future, got %v", active[0].RemindAt)
	}
}

func TestNextOccurrence_AnchorsOnOriginalTime(t *testing.T) {
	// A daily 9am reminder fired late at 9:30 stays anchored to 9am.
	remindAt := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)

	next := nextOccurrence(store.Reminder{RemindAt: &remindAt, Pattern: "daily"}, now)
	want := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextOccurrence_SkipsMissedWindows(t *testing.T) {
	// Three days of downtime: one future occurrence, not a backlog.
	remindAt := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	next := nextOccurrence(store.Reminder{RemindAt: &remindAt, Pattern: "daily"}, now)
	want := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextOccurrence_Patterns(t *testing.T) {
	remindAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	cases := map[string]time.Time{
		"daily":   time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
		"weekly":  time.Date(2026, 8, 8, 9, 0, 0, 0, time.UTC),
		"monthly": time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
	}
	for pattern, want := range cases {
		next := nextOccurrence(store.Reminder{RemindAt: &remindAt, Pattern: pattern}, now)
		if !next.Equal(want) {
			t.Errorf("pattern %s: expected %v, got %v", pattern, want, next)
		}
	}
}

func TestStart_DisabledIsNoOp(t *testing.T) {
	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	s := New(Config{Enabled: false}, st, nil, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("disabled Start should not error: %v", err)
	}
	s.Stop()
}

func TestStart_InvalidSweepSpec(t *testing.T) {
	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Close()

	s := New(Config{Enabled: true, Sweep: "not a cron spec"}, st, nil, nil)
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error for invalid sweep schedule")
	}
}
