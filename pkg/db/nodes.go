package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// NodeName is a cached node name and location.
type NodeName struct {
	HomeID    zwave.HomeID
	NodeID    zwave.NodeID
	Name      string
	Location  string
	UpdatedAt time.Time
}

// NodeStore caches node names for nodes that cannot store their own. It
// satisfies driver.NameStore.
type NodeStore struct {
	db *DB
}

// Nodes returns the NodeStore for this database.
func (db *DB) Nodes() *NodeStore {
	return &NodeStore{db: db}
}

// LookupNode returns the cached name of a node. ok is false for a node
// never seen before.
func (s *NodeStore) LookupNode(ctx context.Context, home zwave.HomeID, node zwave.NodeID) (name, location string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT name, location FROM nodes WHERE home_id = ? AND node_id = ?
	`, uint32(home), uint8(node)).Scan(&name, &location)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("lookup node %s/%d: %w", home, node, err)
	}
	return name, location, true, nil
}

// SaveNode records the name and location of a node.
func (s *NodeStore) SaveNode(ctx context.Context, home zwave.HomeID, node zwave.NodeID, name, location string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (home_id, node_id, name, location)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (home_id, node_id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			updated_at = datetime('now')
	`, uint32(home), uint8(node), name, location)
	if err != nil {
		return fmt.Errorf("save node %s/%d: %w", home, node, err)
	}
	return nil
}

// List returns the cached names of one home ordered by node id.
func (s *NodeStore) List(ctx context.Context, home zwave.HomeID) ([]NodeName, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, name, location, updated_at
		FROM nodes WHERE home_id = ? ORDER BY node_id
	`, uint32(home))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []NodeName
	for rows.Next() {
		n := NodeName{HomeID: home}
		var id uint8
		var updatedAt string
		if err := rows.Scan(&id, &n.Name, &n.Location, &updatedAt); err != nil {
			return nil, err
		}
		n.NodeID = zwave.NodeID(id)
		n.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// Forget drops the cached name of a node.
func (s *NodeStore) Forget(ctx context.Context, home zwave.HomeID, node zwave.NodeID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE home_id = ? AND node_id = ?`, uint32(home), uint8(node))
	return err
}
