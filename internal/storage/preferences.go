package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// DefaultSearchHistory is how many recent searches are kept.
const DefaultSearchHistory = 10

// PreferencesDB stores console preferences and the recent search history in SQLite.
type PreferencesDB struct {
	db          *sql.DB
	maxSearches int
}

// Preference is one stored key/value pair.
type Preference struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPreferencesDB opens (and creates if needed) the database at dbPath.
func NewPreferencesDB(dbPath string, maxSearches int) (*PreferencesDB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS searches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL UNIQUE,
		searched_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if maxSearches <= 0 {
		maxSearches = DefaultSearchHistory
	}
	return &PreferencesDB{db: db, maxSearches: maxSearches}, nil
}

// Get returns the value stored for key and whether it exists.
func (p *PreferencesDB) Get(ctx context.Context, key string) (Preference, bool, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM preferences WHERE key = ?`, key)

	var (
		pref    Preference
		updated int64
	)
	err := row.Scan(&pref.Key, &pref.Value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Preference{}, false, nil
	}
	if err != nil {
		return Preference{}, false, fmt.Errorf("failed to get preference %q: %w", key, err)
	}
	pref.UpdatedAt = time.Unix(0, updated)
	return pref, true, nil
}

// Set stores value under key, replacing any previous value.
func (p *PreferencesDB) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &types.ValidationError{Field: "key", Message: "must not be empty"}
	}
	query := `
	INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := p.db.ExecContext(ctx, query, key, value, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to save preference %q: %w", key, err)
	}
	return nil
}

// AddSearch records query as the most recent search. Repeating a search moves
// it to the front; the history is trimmed to its cap.
func (p *PreferencesDB) AddSearch(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return &types.ValidationError{Field: "query", Message: "must not be empty"}
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM searches WHERE query = ?`, query); err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO searches (query, searched_at) VALUES (?, ?)`,
		query, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
	DELETE FROM searches WHERE id NOT IN (
		SELECT id FROM searches ORDER BY id DESC LIMIT ?
	)`, p.maxSearches); err != nil {
		return fmt.Errorf("failed to trim search history: %w", err)
	}
	return tx.Commit()
}

// RecentSearches returns the search history, newest first.
func (p *PreferencesDB) RecentSearches(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT query FROM searches ORDER BY id DESC LIMIT ?`, p.maxSearches)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	searches := []string{}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to read search: %w", err)
		}
		searches = append(searches, q)
	}
	return searches, rows.Err()
}

// Close closes the database connection
func (p *PreferencesDB) Close() error {
	return p.db.Close()
}
