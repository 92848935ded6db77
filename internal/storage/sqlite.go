// Package storage keeps the local build history in SQLite.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding build history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "rombot.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Builds ---

// StartBuild records a new build in "running" state.
func (s *Store) StartBuild(b BuildRecord) error {
	status := b.Status
	if status == "" {
		status = StatusRunning
	}
	startedAt := b.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO builds (id, device, variant, rom_type, rom_name, android_version, official, status, progress, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Device, b.Variant, b.ROMType, b.ROMName, b.AndroidVersion,
		boolToInt(b.Official), status, b.Progress, startedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// UpdateProgress stores the latest progress string for a running build.
func (s *Store) UpdateProgress(id, progress string) error {
	res, err := s.db.Exec(`UPDATE builds SET progress = ? WHERE id = ?`, progress, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FinishBuild records the final state of a build.
func (s *Store) FinishBuild(b BuildRecord) error {
	res, err := s.db.Exec(`
		UPDATE builds SET status = ?, progress = ?, artifact_name = ?, artifact_size = ?,
			artifact_sha256 = ?, download_url = ?, error_summary = ?, duration_seconds = ?
		WHERE id = ?`,
		b.Status, b.Progress, b.ArtifactName, b.ArtifactSize,
		b.ArtifactSHA256, b.DownloadURL, b.ErrorSummary, int64(b.Duration.Seconds()),
		b.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const buildColumns = `id, device, variant, rom_type, rom_name, android_version, official, status,
	progress, artifact_name, artifact_size, artifact_sha256, download_url, error_summary,
	started_at, duration_seconds`

func scanBuild(row interface{ Scan(...any) error }) (BuildRecord, error) {
	var b BuildRecord
	var official int
	var startedAt string
	var durationSeconds int64
	err := row.Scan(
		&b.ID, &b.Device, &b.Variant, &b.ROMType, &b.ROMName, &b.AndroidVersion, &official, &b.Status,
		&b.Progress, &b.ArtifactName, &b.ArtifactSize, &b.ArtifactSHA256, &b.DownloadURL, &b.ErrorSummary,
		&startedAt, &durationSeconds,
	)
	if err != nil {
		return BuildRecord{}, err
	}
	b.Official = official != 0
	b.Duration = time.Duration(durationSeconds) * time.Second
	if b.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return BuildRecord{}, fmt.Errorf("parsing started_at: %w", err)
	}
	return b, nil
}

// GetBuild returns one build by id.
func (s *Store) GetBuild(id string) (BuildRecord, error) {
	row := s.db.QueryRow(`SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if err == sql.ErrNoRows {
		return BuildRecord{}, ErrNotFound
	}
	return b, err
}

// ListRecent returns the newest builds first.
func (s *Store) ListRecent(limit int) ([]BuildRecord, error) {
	rows, err := s.db.Query(`SELECT `+buildColumns+` FROM builds ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []BuildRecord
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
