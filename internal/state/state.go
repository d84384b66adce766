package state

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct{ *sql.DB }

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_role ON messages(role);`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			text TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Message is one role-tagged transcript entry.
type Message struct {
	Role    string
	Content string
}

// Reminder is one persisted reminder line.
type Reminder struct {
	ID        int64
	CreatedAt string
	Text      string
}

// LoadTranscript returns the full chat transcript in insertion order.
func (db *DB) LoadTranscript() ([]Message, error) {
	rows, err := db.Query(`SELECT role, content FROM messages ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AppendTranscript appends messages to the transcript. The transcript is
// append-only: existing rows are never rewritten.
func (db *DB) AppendTranscript(msgs ...Message) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	now := time.Now().Format(time.RFC3339)
	for _, m := range msgs {
		if _, err := tx.Exec(
			`INSERT INTO messages(created_at, role, content) VALUES(?,?,?)`,
			now, m.Role, m.Content,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// AppendReminder stores one reminder line.
func (db *DB) AppendReminder(text string) error {
	_, err := db.Exec(
		`INSERT INTO reminders(created_at, text) VALUES(?,?)`,
		time.Now().Format(time.RFC3339), text,
	)
	return err
}

// ListReminders returns all reminders, oldest first.
func (db *DB) ListReminders() ([]Reminder, error) {
	rows, err := db.Query(`SELECT id, created_at, text FROM reminders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Text); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
