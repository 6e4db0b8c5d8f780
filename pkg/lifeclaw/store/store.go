// Package store implements SQLite persistence for LifeClaw: users,
// conversation history, long-term memories, reminders, financial
// transactions, contacts, and per-plugin key/value data.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Config holds SQLite-specific configuration.
type Config struct {
	// Path is the database file path (default: "./data/lifeclaw.db").
	Path string `yaml:"path"`

	// JournalMode is the SQLite journal mode (default: "WAL").
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout is the SQLite busy timeout in milliseconds (default: 5000).
	BusyTimeout int `yaml:"busy_timeout"`
}

// Store wraps the SQLite database connection.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database and applies the schema.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = "./data/lifeclaw.db"
	}
	if cfg.JournalMode == "" {
		cfg.JournalMode = "WAL"
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5000
	}

	// Ensure parent directory exists.
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory %q: %w", dir, err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d&_foreign_keys=ON",
		cfg.Path, cfg.JournalMode, cfg.BusyTimeout)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", cfg.Path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("database opened", "path", cfg.Path, "journal_mode", cfg.JournalMode)

	return &Store{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
-- Users
CREATE TABLE IF NOT EXISTS users (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    external_id TEXT NOT NULL UNIQUE,
    username    TEXT DEFAULT '',
    first_name  TEXT DEFAULT '',
    last_name   TEXT DEFAULT '',
    timezone    TEXT DEFAULT 'UTC',
    preferences TEXT DEFAULT '{}',
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_external ON users(external_id);

-- Conversation turns (append-only)
CREATE TABLE IF NOT EXISTS conversations (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    INTEGER NOT NULL,
    message    TEXT NOT NULL,
    response   TEXT NOT NULL,
    context    TEXT DEFAULT '{}',
    created_at TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, created_at);

-- Long-term memories
CREATE TABLE IF NOT EXISTS memories (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    uid           TEXT NOT NULL UNIQUE,
    user_id       INTEGER NOT NULL,
    category      TEXT DEFAULT 'general',
    content       TEXT NOT NULL,
    importance    REAL DEFAULT 0.5,
    access_count  INTEGER DEFAULT 0,
    created_at    TEXT NOT NULL,
    last_accessed TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);

-- Reminders
CREATE TABLE IF NOT EXISTS reminders (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    uid         TEXT NOT NULL UNIQUE,
    user_id     INTEGER NOT NULL,
    title       TEXT NOT NULL,
    description TEXT DEFAULT '',
    remind_at   TEXT,
    recurring   INTEGER DEFAULT 0,
    pattern     TEXT DEFAULT '',
    trigger_ctx TEXT DEFAULT '',
    completed   INTEGER DEFAULT 0,
    created_at  TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(completed, remind_at);

-- Financial transactions
CREATE TABLE IF NOT EXISTS transactions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     INTEGER NOT NULL,
    amount      REAL NOT NULL,
    category    TEXT DEFAULT 'other',
    description TEXT DEFAULT '',
    occurred_at TEXT NOT NULL,
    source      TEXT DEFAULT 'manual',
    created_at  TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, occurred_at);

-- Contacts
CREATE TABLE IF NOT EXISTS contacts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id      INTEGER NOT NULL,
    name         TEXT NOT NULL,
    relation     TEXT DEFAULT 'other',
    phone        TEXT DEFAULT '',
    email        TEXT DEFAULT '',
    birthday     TEXT,
    last_contact TEXT,
    notes        TEXT DEFAULT '',
    created_at   TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id),
    UNIQUE(user_id, name)
);
CREATE INDEX IF NOT EXISTS idx_contacts_user ON contacts(user_id);

-- Per-plugin key/value data (JSON values, last-write-wins)
CREATE TABLE IF NOT EXISTS plugin_data (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    plugin_name TEXT NOT NULL,
    user_id     INTEGER NOT NULL,
    data_key    TEXT NOT NULL,
    data_value  TEXT NOT NULL,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    UNIQUE(plugin_name, user_id, data_key)
);
`
