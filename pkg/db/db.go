// Package db keeps the state zwcore carries across restarts: the attached
// controller endpoints and the node name cache.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	_ "modernc.org/sqlite"
)

// memoryPath selects a private in-memory database.
const memoryPath = ":memory:"

// pragmas applied to file databases.
var pragmas = []string{"foreign_keys(1)", "journal_mode(WAL)", "busy_timeout(5000)"}

// DB is a SQLite handle with the zwcore tables.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates the database at path. An empty path selects
// ~/.config/zwcore/zwcore.db.
func Open(path string) (*DB, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	dsn := path
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// One writer at a time; name saves arrive from every session.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("connect database %s: %w", path, err), conn.Close())
	}
	return &DB{DB: conn, path: path}, nil
}

// Path returns the resolved database location.
func (db *DB) Path() string { return db.path }

func (db *DB) Close() error { return db.DB.Close() }

// Tx runs fn in a transaction, committing when it returns nil.
func (db *DB) Tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	switch {
	case path == memoryPath:
		return path, nil
	case path == "":
		return defaultPath()
	case strings.HasPrefix(path, "~"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// defaultPath honours XDG_CONFIG_HOME on Linux.
func defaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if runtime.GOOS != "linux" || base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("determine database path: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "zwcore", "zwcore.db"), nil
}
