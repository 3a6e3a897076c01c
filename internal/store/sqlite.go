package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	"mailsweep/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements history.Backend backed by a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sqlx.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS unsubscribe_history (
	email        TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	attempted    INTEGER NOT NULL DEFAULT 0,
	success      INTEGER NOT NULL DEFAULT 0,
	attempted_at TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT ''
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns every stored record keyed by email.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]model.HistoryRecord, error) {
	var rows []model.HistoryRecord
	err := s.db.SelectContext(ctx, &rows,
		"SELECT email, name, attempted, success, attempted_at, url FROM unsubscribe_history")
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make(map[string]model.HistoryRecord, len(rows))
	for _, r := range rows {
		out[r.Email] = r
	}
	return out, nil
}

// Save replaces the table contents with records in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, records map[string]model.HistoryRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM unsubscribe_history"); err != nil {
		return err
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO unsubscribe_history (email, name, attempted, success, attempted_at, url)
		VALUES (:email, :name, :attempted, :success, :attempted_at, :url)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key, r := range records {
		r.Email = key
		if _, err := stmt.ExecContext(ctx, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Count returns the number of stored senders.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM unsubscribe_history")
	return count, err
}
