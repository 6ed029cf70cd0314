package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrEndpointNotFound = errors.New("endpoint not found")

// Endpoint is a controller endpoint reattached at startup.
type Endpoint struct {
	Endpoint  string
	Enabled   bool
	CreatedAt time.Time
}

// EndpointStore provides endpoint CRUD operations.
type EndpointStore interface {
	List(ctx context.Context) ([]*Endpoint, error)
	Enabled(ctx context.Context) ([]string, error)
	Add(ctx context.Context, endpoint string) error
	SetEnabled(ctx context.Context, endpoint string, enabled bool) error
	Remove(ctx context.Context, endpoint string) error
}

// Endpoints returns an EndpointStore for this database.
func (db *DB) Endpoints() EndpointStore {
	return &endpointStore{db: db}
}

type endpointStore struct {
	db *DB
}

func (s *endpointStore) List(ctx context.Context) ([]*Endpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT endpoint, enabled, created_at FROM endpoints ORDER BY endpoint
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var endpoints []*Endpoint
	for rows.Next() {
		e := &Endpoint{}
		var createdAt string
		if err := rows.Scan(&e.Endpoint, &e.Enabled, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

func (s *endpointStore) Enabled(ctx context.Context) ([]string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range all {
		if e.Enabled {
			out = append(out, e.Endpoint)
		}
	}
	return out, nil
}

// Add records an endpoint, re-enabling it if it was disabled.
func (s *endpointStore) Add(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO endpoints (endpoint) VALUES (?)
		ON CONFLICT (endpoint) DO UPDATE SET enabled = 1
	`, endpoint)
	if err != nil {
		return fmt.Errorf("failed to add endpoint: %w", err)
	}
	return nil
}

func (s *endpointStore) SetEnabled(ctx context.Context, endpoint string, enabled bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE endpoints SET enabled = ? WHERE endpoint = ?`, enabled, endpoint)
	if err != nil {
		return err
	}
	return requireRow(result.RowsAffected())
}

func (s *endpointStore) Remove(ctx context.Context, endpoint string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM endpoints WHERE endpoint = ?`, endpoint)
	if err != nil {
		return err
	}
	return requireRow(result.RowsAffected())
}

func requireRow(rows int64, err error) error {
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrEndpointNotFound
	}
	return nil
}
