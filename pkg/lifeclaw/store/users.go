package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// timeLayout is how timestamps are stored in TEXT columns. The layout is
// fixed-width (no fractional seconds, always UTC on write) so SQL string
// comparisons on these columns order chronologically.
const timeLayout = time.RFC3339

// User is a profile row keyed by the transport's external ID.
type User struct {
	ID          int64
	ExternalID  string
	Username    string
	FirstName   string
	LastName    string
	Timezone    string
	Preferences map[string]string
	CreatedAt   time.Time
}

// DisplayName returns the best available name for the user.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return u.ExternalID
}

// GetOrCreateUser returns the user with the given external ID, creating it
// on first contact. Repeated calls with the same external ID return the
// same row; profile fields are refreshed when non-empty values are given.
func (s *Store) GetOrCreateUser(externalID, username, firstName, lastName string) (*User, error) {
	user, err := s.userByExternalID(externalID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("lookup user %q: %w", externalID, err)
	}

	if err == sql.ErrNoRows {
		now := time.Now().UTC()
		res, err := s.db.Exec(`
			INSERT INTO users (external_id, username, first_name, last_name, timezone, preferences, created_at)
			VALUES (?, ?, ?, ?, 'UTC', '{}', ?)`,
			externalID, username, firstName, lastName, now.Format(timeLayout))
		if err != nil {
			return nil, fmt.Errorf("create user %q: %w", externalID, err)
		}
		id, _ := res.LastInsertId()
		s.logger.Info("user created", "user_id", id, "external_id", externalID)
		return &User{
			ID:          id,
			ExternalID:  externalID,
			Username:    username,
			FirstName:   firstName,
			LastName:    lastName,
			Timezone:    "UTC",
			Preferences: map[string]string{},
			CreatedAt:   now,
		}, nil
	}

	// Refresh profile fields from the transport when they changed.
	if (username != "" && username != user.Username) ||
		(firstName != "" && firstName != user.FirstName) ||
		(lastName != "" && lastName != user.LastName) {
		if username != "" {
			user.Username = username
		}
		if firstName != "" {
			user.FirstName = firstName
		}
		if lastName != "" {
			user.LastName = lastName
		}
		_, err := s.db.Exec(`UPDATE users SET username = ?, first_name = ?, last_name = ? WHERE id = ?`,
			user.Username, user.FirstName, user.LastName, user.ID)
		if err != nil {
			return nil, fmt.Errorf("update user %d: %w", user.ID, err)
		}
	}

	return user, nil
}

// SetTimezone updates the user's timezone.
func (s *Store) SetTimezone(userID int64, tz string) error {
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	_, err := s.db.Exec(`UPDATE users SET timezone = ? WHERE id = ?`, tz, userID)
	return err
}

// UserByID returns the user row with the given internal ID.
func (s *Store) UserByID(id int64) (*User, error) {
	row := s.db.QueryRow(`
		SELECT id, external_id, username, first_name, last_name, timezone, preferences, created_at
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) userByExternalID(externalID string) (*User, error) {
	row := s.db.QueryRow(`
		SELECT id, external_id, username, first_name, last_name, timezone, preferences, created_at
		FROM users WHERE external_id = ?`, externalID)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var prefs, createdAt string
	err := row.Scan(&u.ID, &u.ExternalID, &u.Username, &u.FirstName, &u.LastName,
		&u.Timezone, &prefs, &createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	u.Preferences = map[string]string{}
	_ = json.Unmarshal([]byte(prefs), &u.Preferences)
	return &u, nil
}
