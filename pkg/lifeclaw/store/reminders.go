package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reminder is a time- or context-triggered reminder.
type Reminder struct {
	ID          int64
	UID         string
	UserID      int64
	Title       string
	Description string
	RemindAt    *time.Time
	Recurring   bool
	Pattern     string // daily, weekly, monthly
	TriggerCtx  string // context trigger (person, location) when not time-based
	Completed   bool
	CreatedAt   time.Time
}

// CreateReminder stores a new reminder and returns it.
func (s *Store) CreateReminder(r *Reminder) (*Reminder, error) {
	if r.Title == "" {
		r.Title = "Reminder"
	}
	r.UID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()

	var remindAt any
	if r.RemindAt != nil {
		remindAt = r.RemindAt.UTC().Format(timeLayout)
	}
	res, err := s.db.Exec(`
		INSERT INTO reminders (uid, user_id, title, description, remind_at, recurring, pattern, trigger_ctx, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		r.UID, r.UserID, r.Title, r.Description, remindAt,
		boolToInt(r.Recurring), r.Pattern, r.TriggerCtx, r.CreatedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("create reminder for user %d: %w", r.UserID, err)
	}
	r.ID, _ = res.LastInsertId()
	return r, nil
}

// ActiveReminders returns the user's incomplete reminders ordered by due time.
func (s *Store) ActiveReminders(userID int64) ([]Reminder, error) {
	rows, err := s.db.Query(`
		SELECT id, uid, user_id, title, description, remind_at, recurring, pattern, trigger_ctx, completed, created_at
		FROM reminders WHERE user_id = ? AND completed = 0
		ORDER BY remind_at IS NULL, remind_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// DueReminders returns all incomplete time-based reminders due at or before
// the given instant, across all users.
func (s *Store) DueReminders(now time.Time) ([]Reminder, error) {
	rows, err := s.db.Query(`
		SELECT id, uid, user_id, title, description, remind_at, recurring, pattern, trigger_ctx, completed, created_at
		FROM reminders
		WHERE completed = 0 AND remind_at IS NOT NULL AND remind_at <= ?
		ORDER BY remind_at`, now.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// CompleteReminder marks a reminder as done.
func (s *Store) CompleteReminder(id int64) error {
	_, err := s.db.Exec(`UPDATE reminders SET completed = 1 WHERE id = ?`, id)
	return err
}

// RescheduleReminder moves a recurring reminder to its next occurrence.
func (s *Store) RescheduleReminder(id int64, next time.Time) error {
	_, err := s.db.Exec(`UPDATE reminders SET remind_at = ? WHERE id = ?`,
		next.UTC().Format(timeLayout), id)
	return err
}

func scanReminders(rows *sql.Rows) ([]Reminder, error) {
	var reminders []Reminder
	for rows.Next() {
		var r Reminder
		var remindAt sql.NullString
		var recurring, completed int
		var createdAt string
		if err := rows.Scan(&r.ID, &r.UID, &r.UserID, &r.Title, &r.Description,
			&remindAt, &recurring, &r.Pattern, &r.TriggerCtx, &completed, &createdAt); err != nil {
			return nil, err
		}
		if remindAt.Valid {
			if t, err := time.Parse(timeLayout, remindAt.String); err == nil {
				r.RemindAt = &t
			}
		}
		r.Recurring = recurring != 0
		r.Completed = completed != 0
		r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
