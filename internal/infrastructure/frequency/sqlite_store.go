// Package frequency persists how often list items were activated.
package frequency

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// SQLiteStore persists activation counts in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath is <data_dir>/frequency.db.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "frequency.db")
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create frequency dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open frequency db: %w", err)
	}
	// database/sql pools connections; sqlite writes are serialized anyway.
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init frequency db: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS activations (
		plugin TEXT NOT NULL,
		title TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		last_used TEXT,
		PRIMARY KEY (plugin, title)
	);`)
	return err
}

// Record increments the counter for (plugin, title).
func (s *SQLiteStore) Record(plugin, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO activations (plugin, title, count, last_used)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(plugin, title) DO UPDATE SET count = count + 1, last_used = excluded.last_used`,
		plugin, title, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Counts returns the counters for the given titles. Titles never activated
// are absent from the map.
func (s *SQLiteStore) Counts(plugin string, titles []string) (map[string]int, error) {
	out := make(map[string]int)
	if len(titles) == 0 {
		return out, nil
	}
	builder := strings.Builder{}
	builder.WriteString("SELECT title, count FROM activations WHERE plugin = ? AND title IN (")
	args := make([]interface{}, 0, len(titles)+1)
	args = append(args, plugin)
	for i, t := range titles {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("?")
		args = append(args, t)
	}
	builder.WriteString(")")

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var title string
		var count int
		if err := rows.Scan(&title, &count); err != nil {
			return nil, err
		}
		out[title] = count
	}
	return out, rows.Err()
}

// Clear deletes all counters.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM activations")
	return err
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ports.FrequencyStore = (*SQLiteStore)(nil)
