package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stevdb/stevdb/internal/run"
)

// ErrSeriesLength is returned when the series of one record differ in
// length.
var ErrSeriesLength = errors.New("series columns differ in length")

// Tx is a write transaction. Every write for one run goes through a single
// Tx so a failure leaves no partial run behind.
type Tx struct {
	q querier
}

// WithTx runs fn in a transaction, committing if fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CreateTable creates the table described by schema inside the transaction.
func (t *Tx) CreateTable(ctx context.Context, schema *Schema) error {
	return createTable(ctx, t.q, schema)
}

// TableExists reports whether a table is present.
func (t *Tx) TableExists(ctx context.Context, table string) (bool, error) {
	return tableExists(ctx, t.q, table)
}

// ModelPresent reports whether table holds a row for id.
func (t *Tx) ModelPresent(ctx context.Context, table string, id int64) (bool, error) {
	return modelPresent(ctx, t.q, table, id)
}

// InsertRecord writes row into table and returns the number of rows
// written. A row holding Series values is written once per element, with
// scalar columns repeated; an empty Series writes nothing.
func (t *Tx) InsertRecord(ctx context.Context, table string, row run.Row) (int, error) {
	n, err := seriesLength(row)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}

	names := make([]string, len(row))
	marks := make([]string, len(row))
	for i, c := range row {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(names, ", "), strings.Join(marks, ", "))

	args := make([]any, len(row))
	for i := 0; i < n; i++ {
		for j, c := range row {
			if s, ok := c.Value.(run.Series); ok {
				args[j] = s[i]
			} else {
				args[j] = run.Native(c.Value)
			}
		}
		if _, err := t.q.ExecContext(ctx, query, args...); err != nil {
			return i, fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return n, nil
}

// UpdateRecord replaces the rows of modelID in table with row.
func (t *Tx) UpdateRecord(ctx context.Context, table string, modelID int64, row run.Row) (int, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(table), quoteIdent(run.ModelIDColumn))
	if _, err := t.q.ExecContext(ctx, query, modelID); err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return t.InsertRecord(ctx, table, row)
}

// UpdateModelStatus sets the status of a run in the manifest table.
func (t *Tx) UpdateModelStatus(ctx context.Context, manifest, modelName, status string) error {
	query := fmt.Sprintf("UPDATE %s SET status = ? WHERE model_name = ?", quoteIdent(manifest))
	if _, err := t.q.ExecContext(ctx, query, status, modelName); err != nil {
		return fmt.Errorf("update status of %s: %w", modelName, err)
	}
	return nil
}

// seriesLength returns the number of rows a record expands to: 1 without
// series, else the shared series length.
func seriesLength(row run.Row) (int, error) {
	n := -1
	for _, c := range row {
		s, ok := c.Value.(run.Series)
		if !ok {
			continue
		}
		if n >= 0 && len(s) != n {
			return 0, fmt.Errorf("%s has %d values, expected %d: %w", c.Name, len(s), n, ErrSeriesLength)
		}
		n = len(s)
	}
	if n < 0 {
		return 1, nil
	}
	return n, nil
}
