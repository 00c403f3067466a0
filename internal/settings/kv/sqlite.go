package kv

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/dshills/italics/internal/settings"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collections (
	path TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS properties (
	path  TEXT NOT NULL,
	name  TEXT NOT NULL,
	kind  TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (path, name)
);`

// Property kinds stored in the properties table.
const (
	kindString = "string"
	kindBool   = "bool"
)

// SQLite is a settings.Backend stored in a SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ settings.Backend = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at dsn. Use ":memory:" for a
// throwaway store.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening settings database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating settings schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CollectionExists(path string) (bool, error) {
	p, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM collections WHERE path = ?`, p).Scan(&n); err != nil {
		return false, fmt.Errorf("querying collection %s: %w", p, err)
	}
	return n > 0, nil
}

func (s *SQLite) CreateCollection(path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	return s.withTx(func(tx *sql.Tx) error {
		for _, a := range ancestors(p) {
			if _, err := tx.Exec(`INSERT OR IGNORE INTO collections (path) VALUES (?)`, a); err != nil {
				return fmt.Errorf("creating collection %s: %w", a, err)
			}
		}
		return nil
	})
}

func (s *SQLite) DeleteCollection(path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	prefix := p + settings.PathSeparator
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`DELETE FROM properties WHERE path = ? OR substr(path, 1, length(?)) = ?`,
			p, prefix, prefix); err != nil {
			return fmt.Errorf("deleting properties of %s: %w", p, err)
		}
		if _, err := tx.Exec(
			`DELETE FROM collections WHERE path = ? OR substr(path, 1, length(?)) = ?`,
			p, prefix, prefix); err != nil {
			return fmt.Errorf("deleting collection %s: %w", p, err)
		}
		return nil
	})
}

func (s *SQLite) GetString(path, key string) (string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	var value string
	err = s.db.QueryRow(`SELECT value FROM properties WHERE path = ? AND name = ?`, p, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s in %s", settings.ErrPropertyNotFound, key, p)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s in %s: %w", key, p, err)
	}
	return value, nil
}

func (s *SQLite) SetString(path, key, value string) error {
	return s.setProperty(path, key, kindString, value)
}

func (s *SQLite) SetBoolean(path, key string, value bool) error {
	return s.setProperty(path, key, kindBool, strconv.FormatBool(value))
}

func (s *SQLite) PropertyNamesAndValues(path string) (map[string]any, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	exists, err := s.CollectionExists(p)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", settings.ErrCollectionNotFound, p)
	}

	rows, err := s.db.Query(`SELECT name, kind, value FROM properties WHERE path = ?`, p)
	if err != nil {
		return nil, fmt.Errorf("listing properties of %s: %w", p, err)
	}
	defer rows.Close()

	props := make(map[string]any)
	for rows.Next() {
		var name, kind, value string
		if err := rows.Scan(&name, &kind, &value); err != nil {
			return nil, fmt.Errorf("scanning property of %s: %w", p, err)
		}
		if kind == kindBool {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("property %s in %s: %w", name, p, err)
			}
			props[name] = b
			continue
		}
		props[name] = value
	}
	return props, rows.Err()
}

func (s *SQLite) setProperty(path, key, kind, value string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("kv: empty property name in %s", p)
	}
	exists, err := s.CollectionExists(p)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", settings.ErrCollectionNotFound, p)
	}
	_, err = s.db.Exec(
		`INSERT INTO properties (path, name, kind, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path, name) DO UPDATE SET kind = excluded.kind, value = excluded.value`,
		p, key, kind, value)
	if err != nil {
		return fmt.Errorf("writing %s in %s: %w", key, p, err)
	}
	return nil
}

func (s *SQLite) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
