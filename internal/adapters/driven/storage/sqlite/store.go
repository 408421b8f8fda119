package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/linkcheck/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
)

// DatabaseFile is the name of the history database inside the data directory.
const DatabaseFile = "history.db"

// Ensure Store implements the interface.
var _ driven.ReportStore = (*Store)(nil)

// Store is a SQLite-backed driven.ReportStore.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.RWMutex
	closed bool
}

// NewStore opens (creating if needed) the history database in dataDir.
// If dataDir is empty, defaults to ~/.linkcheck/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".linkcheck", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every .up.sql migration newer than the recorded version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return nil
}

// SaveRun stores a run summary and its link results in one transaction.
// Saving an existing run replaces its summary and links.
func (s *Store) SaveRun(ctx context.Context, run domain.ScanRun, links []domain.LinkRecord) error {
	if run.ID == "" {
		return fmt.Errorf("%w: run id is required", domain.ErrInvalidInput)
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, root, started_at, finished_at, documents, diagnostics,
			documents_with_diagnostics, external_links, broken_external, exit_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			root = excluded.root,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			documents = excluded.documents,
			diagnostics = excluded.diagnostics,
			documents_with_diagnostics = excluded.documents_with_diagnostics,
			external_links = excluded.external_links,
			broken_external = excluded.broken_external,
			exit_code = excluded.exit_code
	`, run.ID, run.Root, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Documents,
		run.Diagnostics, run.DocumentsWithDiagnostics, run.ExternalLinks,
		run.BrokenExternal, run.ExitCode)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM link_results WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("clearing link results: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO link_results (run_id, url, status_code, status, error, broken, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, url) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing link insert: %w", err)
	}
	defer stmt.Close()

	for _, link := range links {
		if _, err := stmt.ExecContext(ctx, run.ID, link.URL, link.StatusCode, link.Status,
			link.Error, boolToInt(link.Broken), nullTime(link)); err != nil {
			return fmt.Errorf("saving link result %s: %w", link.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// GetRun retrieves a run summary by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*domain.ScanRun, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, root, started_at, finished_at, documents, diagnostics,
			documents_with_diagnostics, external_links, broken_external, exit_code
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first. A limit of zero or less returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.ScanRun, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, root, started_at, finished_at, documents, diagnostics,
			documents_with_diagnostics, external_links, broken_external, exit_code
		FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ScanRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// ListLinks returns the link results recorded for a run, ordered by URL.
func (s *Store) ListLinks(ctx context.Context, runID string) ([]domain.LinkRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, url, status_code, status, error, broken, checked_at
		FROM link_results WHERE run_id = ? ORDER BY url
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying link results: %w", err)
	}
	defer rows.Close()

	var links []domain.LinkRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var link domain.LinkRecord
		var broken int
		var checkedAt sql.NullTime
		if err := rows.Scan(&link.RunID, &link.URL, &link.StatusCode, &link.Status,
			&link.Error, &broken, &checkedAt); err != nil {
			return nil, fmt.Errorf("scanning link result: %w", err)
		}
		link.Broken = broken != 0
		if checkedAt.Valid {
			link.CheckedAt = checkedAt.Time
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating link results: %w", err)
	}
	return links, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.ScanRun, error) {
	var run domain.ScanRun
	var startedAt, finishedAt sql.NullTime
	if err := row.Scan(&run.ID, &run.Root, &startedAt, &finishedAt, &run.Documents,
		&run.Diagnostics, &run.DocumentsWithDiagnostics, &run.ExternalLinks,
		&run.BrokenExternal, &run.ExitCode); err != nil {
		return nil, err
	}
	if startedAt.Valid {
		run.StartedAt = startedAt.Time
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(link domain.LinkRecord) sql.NullTime {
	if link.CheckedAt.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: link.CheckedAt.UTC(), Valid: true}
}
