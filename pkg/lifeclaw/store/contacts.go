package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Contact is a person the user wants to keep track of.
type Contact struct {
	ID          int64
	UserID      int64
	Name        string
	Relation    string // friend, family, colleague, acquaintance, other
	Phone       string
	Email       string
	Birthday    *time.Time
	LastContact *time.Time
	Notes       string
	CreatedAt   time.Time
}

// AddContact stores a new contact. Returns an error if a contact with the
// same name already exists for the user.
func (s *Store) AddContact(c *Contact) error {
	if c.Relation == "" {
		c.Relation = "other"
	}
	c.CreatedAt = time.Now().UTC()

	var birthday, lastContact any
	if c.Birthday != nil {
		birthday = c.Birthday.UTC().Format(timeLayout)
	}
	if c.LastContact != nil {
		lastContact = c.LastContact.UTC().Format(timeLayout)
	}
	res, err := s.db.Exec(`
		INSERT INTO contacts (user_id, name, relation, phone, email, birthday, last_contact, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Relation, c.Phone, c.Email, birthday, lastContact,
		c.Notes, c.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("add contact %q for user %d: %w", c.Name, c.UserID, err)
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

// ContactByName returns the user's contact with the given name, or nil.
func (s *Store) ContactByName(userID int64, name string) (*Contact, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, name, relation, phone, email, birthday, last_contact, notes, created_at
		FROM contacts WHERE user_id = ? AND name = ? COLLATE NOCASE`, userID, name)
	if err != nil {
		return nil, fmt.Errorf("lookup contact %q: %w", name, err)
	}
	defer rows.Close()
	contacts, err := scanContacts(rows)
	if err != nil || len(contacts) == 0 {
		return nil, err
	}
	return &contacts[0], nil
}

// ListContacts returns all of the user's contacts ordered by name.
func (s *Store) ListContacts(userID int64) ([]Contact, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, name, relation, phone, email, birthday, last_contact, notes, created_at
		FROM contacts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

// TouchContact records an interaction with the contact now.
func (s *Store) TouchContact(contactID int64) error {
	_, err := s.db.Exec(`UPDATE contacts SET last_contact = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), contactID)
	return err
}

func scanContacts(rows *sql.Rows) ([]Contact, error) {
	var contacts []Contact
	for rows.Next() {
		var c Contact
		var birthday, lastContact sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Relation, &c.Phone,
			&c.Email, &birthday, &lastContact, &c.Notes, &createdAt); err != nil {
			return nil, err
		}
		if birthday.Valid {
			if t, err := time.Parse(timeLayout, birthday.String); err == nil {
				c.Birthday = &t
			}
		}
		if lastContact.Valid {
			if t, err := time.Parse(timeLayout, lastContact.String); err == nil {
				c.LastContact = &t
			}
		}
		c.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
