package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Bootstrap seeds the endpoint table with the configured endpoints on first
// run. Later runs keep whatever the API attached or detached since.
func (db *DB) Bootstrap(ctx context.Context, endpoints []string) error {
	fresh, err := db.NeedsBootstrap(ctx)
	if err != nil || !fresh {
		return err
	}
	return db.Tx(ctx, func(tx *sql.Tx) error {
		for _, e := range endpoints {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO endpoints (endpoint) VALUES (?)`, e); err != nil {
				return fmt.Errorf("seed endpoint %s: %w", e, err)
			}
		}
		return nil
	})
}

// NeedsBootstrap reports whether no endpoint was ever recorded.
func (db *DB) NeedsBootstrap(ctx context.Context) (bool, error) {
	var seeded bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM endpoints)`).Scan(&seeded); err != nil {
		return false, fmt.Errorf("check endpoints: %w", err)
	}
	return !seeded, nil
}
