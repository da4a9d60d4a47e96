package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"gptodo/internal/models"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value.
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// RecordMutation appends a record to the mutation log.
func (s *SQLiteStore) RecordMutation(ctx context.Context, record *models.MutationRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mutations (id, prompt, status, raw_output, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.Prompt, string(record.Status), record.RawOutput, record.Duration.Milliseconds(), record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record mutation: %w", err)
	}
	return nil
}

// ListMutations returns the newest records first. An empty status matches
// all records; if limit is 0, all matching records are returned.
func (s *SQLiteStore) ListMutations(ctx context.Context, status models.MutationStatus, limit int) ([]models.MutationRecord, error) {
	query := `
		SELECT id, prompt, status, raw_output, duration_ms, created_at
		FROM mutations WHERE (? = '' OR status = ?) ORDER BY created_at DESC, id DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list mutations: %w", err)
	}
	defer rows.Close()

	var records []models.MutationRecord
	for rows.Next() {
		var (
			record     models.MutationRecord
			statusText string
			durationMS int64
		)
		if err := rows.Scan(
			&record.ID,
			&record.Prompt,
			&statusText,
			&record.RawOutput,
			&durationMS,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}
		record.Status = models.MutationStatus(statusText)
		record.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, record)
	}

	return records, rows.Err()
}
