package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stevdb/stevdb/internal/run"
)

// StatusCompleted marks a manifest entry whose run has been ingested.
const StatusCompleted = "completed"

// GetID returns the manifest id of modelName, or run.NoID when the
// manifest has no entry for it.
func (s *Store) GetID(ctx context.Context, manifest, modelName string) (int64, error) {
	query := fmt.Sprintf("SELECT id FROM %s WHERE model_name = ? ORDER BY id LIMIT 1", quoteIdent(manifest))

	var id int64
	err := s.db.QueryRowContext(ctx, query, modelName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return run.NoID, nil
	}
	if err != nil {
		return run.NoID, fmt.Errorf("get id of %s: %w", modelName, err)
	}
	return id, nil
}

// ModelPresent reports whether table holds a row for id. A table that
// does not exist yet holds nothing.
func (s *Store) ModelPresent(ctx context.Context, table string, id int64) (bool, error) {
	return modelPresent(ctx, s.db, table, id)
}

func modelPresent(ctx context.Context, q querier, table string, id int64) (bool, error) {
	exists, err := tableExists(ctx, q, table)
	if err != nil || !exists {
		return false, err
	}

	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", quoteIdent(table), quoteIdent(run.ModelIDColumn))
	var present bool
	if err := q.QueryRowContext(ctx, query, id).Scan(&present); err != nil {
		return false, fmt.Errorf("model present in %s: %w", table, err)
	}
	return present, nil
}

// CompletedRuns returns the names of manifest entries marked completed,
// sorted by name.
func (s *Store) CompletedRuns(ctx context.Context, manifest string) ([]string, error) {
	query := fmt.Sprintf("SELECT model_name FROM %s WHERE status = ? ORDER BY model_name", quoteIdent(manifest))
	return s.queryStrings(ctx, query, StatusCompleted)
}

// CountRows returns the number of rows in table.
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Tables returns the names of all tables, sorted.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}
