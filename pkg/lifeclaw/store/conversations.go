package store

import (
	"fmt"
	"time"
)

// Turn is one persisted conversation exchange. Rows are append-only.
type Turn struct {
	ID        int64
	UserID    int64
	Message   string
	Response  string
	CreatedAt time.Time
}

// SaveTurn appends a conversation turn for the user.
func (s *Store) SaveTurn(userID int64, message, response string) error {
	_, err := s.db.Exec(`
		INSERT INTO conversations (user_id, message, response, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, message, response, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save turn for user %d: %w", userID, err)
	}
	return nil
}

// RecentTurns returns the user's most recent turns in chronological order
// (oldest first), limited to the given count.
func (s *Store) RecentTurns(userID int64, limit int) ([]Turn, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, message, response, created_at
		FROM conversations WHERE user_id = ?
		ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load turns for user %d: %w", userID, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var createdAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Message, &t.Response, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query was newest-first; reverse to chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
