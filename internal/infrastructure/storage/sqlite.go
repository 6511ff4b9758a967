// Package storage persists saved user selections in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"label-checker/internal/pkg/common"
)

// Profile is a saved set of allergy and preference ids.
type Profile struct {
	ID          string    `json:"id"`
	Allergies   []string  `json:"allergies"`
	Preferences []string  `json:"preferences"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ":memory:" databases exist per connection
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db, now: time.Now}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS profiles (
        id TEXT PRIMARY KEY,
        allergies TEXT NOT NULL,
        preferences TEXT NOT NULL,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveProfile inserts or replaces the profile, keeping the original
// creation time on update. A profile without an id gets a new UUID.
func (s *SQLiteStorage) SaveProfile(ctx context.Context, p *Profile) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = common.GenerateUUID()
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.Preferences == nil {
		p.Preferences = []string{}
	}

	allergies, err := json.Marshal(p.Allergies)
	if err != nil {
		return fmt.Errorf("failed to encode allergies: %w", err)
	}
	preferences, err := json.Marshal(p.Preferences)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	now := s.now().UTC()
	query := `
        INSERT INTO profiles (id, allergies, preferences, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            allergies = excluded.allergies,
            preferences = excluded.preferences,
            updated_at = excluded.updated_at
    `
	stamp := now.Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, query, p.ID, string(allergies), string(preferences), stamp, stamp); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	saved, err := s.GetProfile(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *saved
	return nil
}

// GetProfile returns ErrProfileNotFound for an unknown id.
func (s *SQLiteStorage) GetProfile(ctx context.Context, id string) (*Profile, error) {
	query := `
        SELECT id, allergies, preferences, created_at, updated_at
        FROM profiles
        WHERE id = ?
    `
	var (
		p                      Profile
		allergies, preferences string
		createdAt, updatedAt   string
	)
	err := s.db.QueryRowContext(ctx, query, strings.TrimSpace(id)).
		Scan(&p.ID, &allergies, &preferences, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if err := json.Unmarshal([]byte(allergies), &p.Allergies); err != nil {
		return nil, fmt.Errorf("failed to decode allergies: %w", err)
	}
	if err := json.Unmarshal([]byte(preferences), &p.Preferences); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &p, nil
}

// DeleteProfile returns ErrProfileNotFound when nothing was deleted.
func (s *SQLiteStorage) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if n == 0 {
		return common.ErrProfileNotFound
	}
	return nil
}
