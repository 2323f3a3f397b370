package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS kv_backup (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	key      TEXT NOT NULL,
	value    BLOB NOT NULL,
	saved_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS kv_backup_key ON kv_backup(key, id);
`

// SQLiteKV stores values in a single SQLite database file.
// Overwritten values are kept in kv_backup, capped per key.
type SQLiteKV struct {
	db *sql.DB
}

var _ Recoverer = (*SQLiteKV)(nil)

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteKV, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteKV{db: db}, nil
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

func (s *SQLiteKV) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteKV) Set(key string, value []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(
		`INSERT INTO kv_backup (key, value, saved_at) SELECT key, value, ? FROM kv WHERE key = ?`,
		now, key,
	); err != nil {
		return fmt.Errorf("sqlite backup %s: %w", key, err)
	}
	if _, err := tx.Exec(
		`DELETE FROM kv_backup WHERE key = ? AND id NOT IN (
			SELECT id FROM kv_backup WHERE key = ? ORDER BY id DESC LIMIT ?
		)`,
		key, key, maxRotatingBackups,
	); err != nil {
		return fmt.Errorf("sqlite prune %s: %w", key, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	); err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return tx.Commit()
}

func (s *SQLiteKV) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteKV) Backups(key string) ([]Backup, error) {
	rows, err := s.db.Query(`SELECT id, value FROM kv_backup WHERE key = ? ORDER BY id DESC`, key)
	if err != nil {
		return nil, fmt.Errorf("sqlite backups %s: %w", key, err)
	}
	defer rows.Close()

	var out []Backup
	for rows.Next() {
		var id int64
		var value []byte
		if err := rows.Scan(&id, &value); err != nil {
			return nil, err
		}
		out = append(out, Backup{Name: fmt.Sprintf("%s#%d", key, id), Data: value})
	}
	return out, rows.Err()
}

// Quarantine renames the row to <key>.corrupt-<timestamp>.
func (s *SQLiteKV) Quarantine(key string) (string, error) {
	name := fmt.Sprintf("%s.corrupt-%s", key, time.Now().UTC().Format("20060102-150405"))
	res, err := s.db.Exec(`UPDATE OR REPLACE kv SET key = ? WHERE key = ?`, name, key)
	if err != nil {
		return "", fmt.Errorf("sqlite quarantine %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", nil
	}
	return name, nil
}
