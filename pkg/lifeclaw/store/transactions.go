package store

import (
	"fmt"
	"time"
)

// Transaction is a financial transaction. Expenses are negative amounts,
// income positive.
type Transaction struct {
	ID          int64
	UserID      int64
	Amount      float64
	Category    string
	Description string
	OccurredAt  time.Time
	Source      string
	CreatedAt   time.Time
}

// SaveTransaction stores a financial transaction.
func (s *Store) SaveTransaction(t *Transaction) error {
	if t.Category == "" {
		t.Category = "other"
	}
	if t.Source == "" {
		t.Source = "manual"
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO transactions (user_id, amount, category, description, occurred_at, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Amount, t.Category, t.Description,
		t.OccurredAt.UTC().Format(timeLayout), t.Source,
		time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save transaction for user %d: %w", t.UserID, err)
	}
	t.ID, _ = res.LastInsertId()
	return nil
}

// TransactionsBetween returns the user's transactions within [start, end].
func (s *Store) TransactionsBetween(userID int64, start, end time.Time) ([]Transaction, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, amount, category, description, occurred_at, source, created_at
		FROM transactions
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?
		ORDER BY occurred_at`,
		userID, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		var occurredAt, createdAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Category,
			&t.Description, &occurredAt, &t.Source, &createdAt); err != nil {
			return nil, err
		}
		t.OccurredAt, _ = time.Parse(timeLayout, occurredAt)
		t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// SpentInCategory returns the total spent (positive number) in a category
// since the given instant. Only expense rows (amount < 0) count.
func (s *Store) SpentInCategory(userID int64, category string, since time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = ? AND category = ? AND occurred_at >= ? AND amount < 0`,
		userID, category, since.UTC().Format(timeLayout)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum category %q for user %d: %w", category, userID, err)
	}
	if total < 0 {
		total = -total
	}
	return total, nil
}
