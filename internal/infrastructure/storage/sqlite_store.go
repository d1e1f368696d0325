package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsOrchestrator/internal/domain"
	"NewsOrchestrator/internal/ports"
)

// Store is one handle to the embedded source database. Handles must not be
// shared across goroutines; open one per worker loop and close it when the
// loop ends.
type Store struct {
	db *sql.DB
}

var _ ports.HealthStore = (*Store)(nil)

// Open creates the database file if needed, applies pragmas and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Several per-worker handles write the same file during a status round;
	// without a busy timeout concurrent health updates fail with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			url TEXT,
			category TEXT,
			enabled INTEGER NOT NULL DEFAULT 1,
			custom_config TEXT,
			status TEXT NOT NULL DEFAULT 'unchecked',
			last_error TEXT,
			last_checked_at TIMESTAMP,
			consecutive_errors INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_sources_enabled ON sources(enabled);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// AddSource inserts a new source and assigns its ID.
func (s *Store) AddSource(ctx context.Context, src *domain.Source) error {
	cfg, err := marshalConfig(src.CustomConfig)
	if err != nil {
		return err
	}

	query, args, err := sq.Insert("sources").
		Columns("name", "type", "url", "category", "enabled", "custom_config", "status", "consecutive_errors").
		Values(src.Name, src.Type, src.URL, src.Category, src.Enabled, cfg, string(statusOrDefault(src.Status)), src.ConsecutiveErrors).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	src.ID = &id
	return nil
}

// UpdateSource rewrites the configuration fields of an existing source.
// Health fields go through UpdateSourceHealth instead.
func (s *Store) UpdateSource(ctx context.Context, src domain.Source) error {
	if src.ID == nil {
		return fmt.Errorf("source %q has no id", src.Name)
	}

	cfg, err := marshalConfig(src.CustomConfig)
	if err != nil {
		return err
	}

	query, args, err := sq.Update("sources").
		Set("name", src.Name).
		Set("type", src.Type).
		Set("url", src.URL).
		Set("category", src.Category).
		Set("enabled", src.Enabled).
		Set("custom_config", cfg).
		Where(sq.Eq{"id": *src.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

// UpdateSourceHealth persists the outcome of one health probe.
func (s *Store) UpdateSourceHealth(ctx context.Context, sourceID int64, status domain.SourceStatus, lastError *string, checkedAt time.Time, consecutiveErrors int) error {
	query, args, err := sq.Update("sources").
		Set("status", string(status)).
		Set("last_error", lastError).
		Set("last_checked_at", checkedAt.UTC()).
		Set("consecutive_errors", consecutiveErrors).
		Where(sq.Eq{"id": sourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build health update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update source health: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("source %d not found", sourceID)
	}
	return nil
}

// GetSource loads one source by ID; nil when absent.
func (s *Store) GetSource(ctx context.Context, id int64) (*domain.Source, error) {
	query, args, err := selectSources().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	src, err := scanSource(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query source: %w", err)
	}
	return &src, nil
}

// ListSources returns every stored source in insertion order.
func (s *Store) ListSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := selectSources().OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

func selectSources() sq.SelectBuilder {
	return sq.Select(
		"id", "name", "type", "url", "category", "enabled",
		"custom_config", "status", "last_error", "last_checked_at", "consecutive_errors",
	).From("sources")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.Source, error) {
	var (
		src       domain.Source
		id        int64
		url       sql.NullString
		category  sql.NullString
		cfg       sql.NullString
		status    string
		lastErr   sql.NullString
		checkedAt sql.NullTime
	)

	err := row.Scan(&id, &src.Name, &src.Type, &url, &category, &src.Enabled,
		&cfg, &status, &lastErr, &checkedAt, &src.ConsecutiveErrors)
	if err != nil {
		return domain.Source{}, err
	}

	src.ID = &id
	src.URL = url.String
	src.Category = category.String
	src.Status = domain.SourceStatus(status)
	if lastErr.Valid {
		msg := lastErr.String
		src.LastError = &msg
	}
	if checkedAt.Valid {
		at := checkedAt.Time
		src.LastCheckedAt = &at
	}
	if cfg.Valid && cfg.String != "" {
		if err := json.Unmarshal([]byte(cfg.String), &src.CustomConfig); err != nil {
			return domain.Source{}, fmt.Errorf("decode custom config: %w", err)
		}
	}

	return src, nil
}

func marshalConfig(cfg map[string]string) (*string, error) {
	if len(cfg) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode custom config: %w", err)
	}
	encoded := string(raw)
	return &encoded, nil
}

func statusOrDefault(status domain.SourceStatus) domain.SourceStatus {
	if status == "" {
		return domain.StatusUnchecked
	}
	return status
}

// Opener hands out fresh per-worker handles to the same database file.
type Opener struct {
	path string
}

var _ ports.StoreOpener = (*Opener)(nil)

// NewOpener remembers the database path for later Open calls.
func NewOpener(path string) *Opener {
	return &Opener{path: path}
}

// Open creates a new independent handle.
func (o *Opener) Open(ctx context.Context) (ports.HealthStore, error) {
	return Open(o.path)
}
