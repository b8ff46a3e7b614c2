// Package history persists recent tree generations to a small SQLite
// database in the XDG state directory, so a later session can re-run a
// selection without retyping it. The core generation flow never reads
// this store; it is a convenience layer only.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/config"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// DefaultLimit is how many entries Recent returns when asked for 0.
const DefaultLimit = 20

// Entry is one recorded generation.
type Entry struct {
	ID              int64
	CreatedAt       time.Time
	CommonNames     []string
	ScientificNames []string
	LegendType      string
	Coverage        string
}

// Selection rebuilds a model.Selection from the recorded names. Species
// metadata that never got persisted (datelife coverage) is lost, which is
// fine: generation resolves it again server-side.
func (e Entry) Selection() model.Selection {
	sel := make(model.Selection, 0, len(e.CommonNames))
	for i, common := range e.CommonNames {
		sp := model.Species{Common: common, Scientific: common}
		if i < len(e.ScientificNames) && e.ScientificNames[i] != "" {
			sp.Scientific = e.ScientificNames[i]
		}
		sel = append(sel, sp)
	}
	return sel
}

// Summary returns a short comma-joined label for pickers.
func (e Entry) Summary() string {
	return strings.Join(e.CommonNames, ", ")
}

// Store wraps the history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the history database at the default XDG state
// location.
func Open() (*Store, error) {
	dir := config.StateDir()
	if dir == "" {
		return nil, fmt.Errorf("cannot determine state directory")
	}
	return OpenAt(filepath.Join(dir, "history.db"))
}

// OpenAt opens (or creates) a history database at the given path.
func OpenAt(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open history database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS generations (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at       TEXT NOT NULL,
			common_names     TEXT NOT NULL,
			scientific_names TEXT NOT NULL,
			legend_type      TEXT NOT NULL DEFAULT '',
			coverage         TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_generations_created_at
			ON generations(created_at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Names are stored newline-joined; species names never contain newlines.
const nameSep = "\n"

// Record appends one generation to the history.
func (s *Store) Record(sel model.Selection, legendType, coverage string) error {
	if len(sel) == 0 {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO generations (created_at, common_names, scientific_names, legend_type, coverage)
		VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		strings.Join(sel.CommonNames(), nameSep),
		strings.Join(sel.ScientificNames(), nameSep),
		legendType,
		coverage,
	)
	if err != nil {
		return fmt.Errorf("recording generation: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, common_names, scientific_names, legend_type, coverage
		FROM generations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt string
			commons   string
			scis      string
		)
		if err := rows.Scan(&e.ID, &createdAt, &commons, &scis, &e.LegendType, &e.Coverage); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
			e.CreatedAt = t
		}
		e.CommonNames = splitNames(commons)
		e.ScientificNames = splitNames(scis)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune keeps only the newest keep entries.
func (s *Store) Prune(keep int) error {
	if keep <= 0 {
		keep = 100
	}
	_, err := s.db.Exec(`
		DELETE FROM generations
		WHERE id NOT IN (SELECT id FROM generations ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}
	return nil
}

func splitNames(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, nameSep)
}
