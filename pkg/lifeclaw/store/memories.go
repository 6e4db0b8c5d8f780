package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Memory is a persisted long-term fact extracted from conversation.
type Memory struct {
	ID           int64
	UID          string
	UserID       int64
	Category     string
	Content      string
	Importance   float64
	AccessCount  int
	CreatedAt    time.Time
	LastAccessed time.Time
}

// SaveMemory stores a new memory entry and returns it.
func (s *Store) SaveMemory(userID int64, category, content string, importance float64) (*Memory, error) {
	if category == "" {
		category = "general"
	}
	now := time.Now().UTC()
	m := &Memory{
		UID:          uuid.NewString(),
		UserID:       userID,
		Category:     category,
		Content:      content,
		Importance:   importance,
		CreatedAt:    now,
		LastAccessed: now,
	}
	res, err := s.db.Exec(`
		INSERT INTO memories (uid, user_id, category, content, importance, access_count, created_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		m.UID, userID, category, content, importance,
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("save memory for user %d: %w", userID, err)
	}
	m.ID, _ = res.LastInsertId()
	return m, nil
}

// RecallMemories returns the user's memories ordered by importance then
// recency of access, and bumps access bookkeeping for the returned rows.
func (s *Store) RecallMemories(userID int64, limit int) ([]Memory, error) {
	rows, err := s.db.Query(`
		SELECT id, uid, user_id, category, content, importance, access_count, created_at, last_accessed
		FROM memories WHERE user_id = ?
		ORDER BY importance DESC, last_accessed DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recall memories for user %d: %w", userID, err)
	}
	defer rows.Close()

	var memories []Memory
	for rows.Next() {
		var m Memory
		var createdAt, lastAccessed string
		if err := rows.Scan(&m.ID, &m.UID, &m.UserID, &m.Category, &m.Content,
			&m.Importance, &m.AccessCount, &createdAt, &lastAccessed); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		m.LastAccessed, _ = time.Parse(timeLayout, lastAccessed)
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Access bookkeeping: each recall counts as one access.
	now := time.Now().UTC().Format(timeLayout)
	for i := range memories {
		if _, err := s.db.Exec(`
			UPDATE memories SET access_count = access_count + 1, last_accessed = ? WHERE id = ?`,
			now, memories[i].ID); err != nil {
			s.logger.Warn("failed to update memory access", "memory_id", memories[i].ID, "error", err)
			continue
		}
		memories[i].AccessCount++
	}
	return memories, nil
}

// CountMemories returns how many memories the user has stored.
func (s *Store) CountMemories(userID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// DeleteMemory removes a memory by its UID. Not reachable from chat yet;
// the "forget" flow only points users here.
func (s *Store) DeleteMemory(userID int64, uid string) error {
	_, err := s.db.Exec(`DELETE FROM memories WHERE user_id = ? AND uid = ?`, userID, uid)
	return err
}
