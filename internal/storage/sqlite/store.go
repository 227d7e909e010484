// Package sqlite is a SQLite implementation of the storage interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pagelens/pagelens/internal/domain"
	"github.com/pagelens/pagelens/internal/storage"
)

// Store implements storage.SettingsStore and storage.AnalysisStore.
type Store struct {
	db *sql.DB
}

var (
	_ storage.SettingsStore = (*Store)(nil)
	_ storage.AnalysisStore = (*Store)(nil)
)

// New opens (creating if necessary) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			status TEXT NOT NULL,
			http_status INTEGER,
			message TEXT,
			analysis_text TEXT,
			prompt_chars INTEGER NOT NULL DEFAULT 0,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			rule_count INTEGER NOT NULL DEFAULT 0,
			truncated INTEGER NOT NULL DEFAULT 0,
			duration_ns INTEGER,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

const (
	settingProjectID   = "project_id"
	settingPlaybookURL = "playbook_url"
)

// Load reads the current settings. Returns storage.ErrSettingsNotFound when
// nothing has been saved yet.
func (s *Store) Load(ctx context.Context) (domain.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var settings domain.Settings
	found := false
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.Settings{}, fmt.Errorf("failed to scan setting: %w", err)
		}
		switch key {
		case settingProjectID:
			settings.ProjectID = value
			found = true
		case settingPlaybookURL:
			settings.PlaybookURL = value
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Settings{}, err
	}
	if !found {
		return domain.Settings{}, storage.ErrSettingsNotFound
	}

	return settings, nil
}

// Save upserts both settings atomically.
func (s *Store) Save(ctx context.Context, settings domain.Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	query := `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	          ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	for key, value := range map[string]string{
		settingProjectID:   settings.ProjectID,
		settingPlaybookURL: settings.PlaybookURL,
	} {
		if _, err := tx.ExecContext(ctx, query, key, value, now); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Record stores one pipeline invocation.
func (s *Store) Record(ctx context.Context, rec *storage.AnalysisRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `INSERT INTO analyses
	          (id, operation, status, http_status, message, analysis_text,
	           prompt_chars, prompt_tokens, rule_count, truncated, duration_ns, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, string(rec.Operation), rec.Status, rec.HTTPStatus, rec.Message,
		rec.AnalysisText, rec.PromptChars, rec.PromptTokens, rec.RuleCount,
		boolToInt(rec.Truncated), rec.Duration.Nanoseconds(), rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record analysis: %w", err)
	}

	return nil
}

// List returns recorded invocations, newest first.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.AnalysisRecord, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 50
	}

	query := `SELECT id, operation, status, http_status, message, analysis_text,
	                 prompt_chars, prompt_tokens, rule_count, truncated, duration_ns, created_at
	          FROM analyses ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var records []*storage.AnalysisRecord
	for rows.Next() {
		var rec storage.AnalysisRecord
		var operation string
		var truncated int
		var durationNS int64

		if err := rows.Scan(&rec.ID, &operation, &rec.Status, &rec.HTTPStatus,
			&rec.Message, &rec.AnalysisText, &rec.PromptChars, &rec.PromptTokens,
			&rec.RuleCount, &truncated, &durationNS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}

		rec.Operation = domain.Operation(operation)
		rec.Truncated = truncated != 0
		rec.Duration = time.Duration(durationNS)
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
