// Package scheduler delivers due reminders. It sweeps the reminder table
// on a cron schedule and announces hits through the channel manager,
// rescheduling recurring reminders to their next occurrence.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/channels"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

// Config holds scheduler configuration.
type Config struct {
	// Enabled turns the reminder sweep on.
	Enabled bool `yaml:"enabled"`

	// Sweep is the cron expression or shorthand for the sweep cadence.
	// Supports standard 5-field cron, @hourly, @every 30s, etc.
	Sweep string `yaml:"sweep"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Sweep:   "@every 1m",
	}
}

// Scheduler sweeps for due reminders and announces them.
type Scheduler struct {
	cfg     Config
	store   *store.Store
	manager *channels.Manager
	cron    *cron.Cron
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler over the given store and channel manager.
func New(cfg Config, st *store.Store, manager *channels.Manager, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		store:   st,
		manager: manager,
		logger:  logger.With("component", "scheduler"),
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("scheduler disabled")
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	spec := s.cfg.Sweep
	if spec == "" {
		spec = DefaultConfig().Sweep
	}

	s.cron = cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "sweep", spec)
	return nil
}

// Stop halts the cron loop, waiting for a running sweep to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.logger.Info("scheduler stopped")
}

// sweep delivers every reminder due right now. A reminder is only
// completed or rescheduled after its announcement was attempted, so a
// crash mid-sweep redelivers instead of dropping.
func (s *Scheduler) sweep() {
	now := time.Now().UTC()
	due, err := s.store.DueReminders(now)
	if err != nil {
		s.logger.Error("due reminder query failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Debug("sweep found due reminders", "count", len(due))

	for _, r := range due {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		s.deliver(r, now)
	}
}

// deliver announces one reminder and advances its state.
func (s *Scheduler) deliver(r store.Reminder, now time.Time) {
	s.announce(r)

	if r.Recurring {
		next := nextOccurrence(r, now)
		if err := s.store.RescheduleReminder(r.ID, next); err != nil {
			s.logger.Error("failed to reschedule reminder", "id", r.ID, "error", err)
		}
		s.logger.Info("reminder rescheduled",
			"id", r.ID, "title", r.Title, "pattern", r.Pattern, "next", next)
		return
	}

	if err := s.store.CompleteReminder(r.ID); err != nil {
		s.logger.Error("failed to complete reminder", "id", r.ID, "error", err)
	}
	s.logger.Info("reminder delivered", "id", r.ID, "title", r.Title)
}

// announce sends the reminder text to the user's chat. The scheduler does
// not know which transport the user is on, so the manager broadcasts to
// every connected channel using the user's external ID as the chat ID.
func (s *Scheduler) announce(r store.Reminder) {
	if s.manager == nil || !s.manager.HasChannels() {
		s.logger.Info("reminder due (no channels connected)", "id", r.ID, "title", r.Title)
		return
	}

	user, err := s.store.UserByID(r.UserID)
	if err != nil {
		s.logger.Error("reminder user lookup failed", "user_id", r.UserID, "error", err)
		return
	}

	text := "⏰ Reminder: " + r.Title
	if r.Description != "" {
		text += "\n" + r.Description
	}
	s.manager.Broadcast(s.ctx, user.ExternalID, &channels.OutgoingMessage{Content: text})
}

// nextOccurrence computes the next fire time for a recurring reminder.
// The step is anchored on the original remind time so a daily 9am
// reminder stays at 9am, and advanced past now so a long downtime does
// not cause a burst of stale deliveries.
func nextOccurrence(r store.Reminder, now time.Time) time.Time {
	base := now
	if r.RemindAt != nil {
		base = *r.RemindAt
	}

	var step func(time.Time) time.Time
	switch r.Pattern {
	case "weekly":
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case "monthly":
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	default: // daily
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	}

	next := step(base)
	for !next.After(now) {
		next = step(next)
	}
	return next
}
