package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

// AppName names the state directory under the XDG state home.
const AppName = "hitbeacon"

// DefaultSQLitePath returns the session database path under the XDG state home.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.StateHome, AppName, "session.db")
}

// SQLite keeps session values in a SQLite table so a session survives process restarts.
// Each scope is an isolated key space, standing in for one browser tab.
type SQLite struct {
	db    *sql.DB
	scope string
}

// OpenSQLite opens or creates the database at path.
// Params: path database file (empty selects DefaultSQLitePath); scope tab key space.
// Returns: store or open/schema error.
func OpenSQLite(path, scope string) (*SQLite, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db, scope: scope}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS session_items(
	  scope TEXT NOT NULL,
	  key   TEXT NOT NULL,
	  value TEXT NOT NULL,
	  PRIMARY KEY (scope, key)
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create session tables: %w", err)
	}
	return nil
}

// Get returns the value stored under key in this scope.
func (s *SQLite) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM session_items WHERE scope = ? AND key = ?`, s.scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key in this scope.
func (s *SQLite) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO session_items(scope, key, value) VALUES(?,?,?)
		 ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value`,
		s.scope, key, value,
	)
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
