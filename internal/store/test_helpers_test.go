package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stevdb/stevdb/internal/run"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRow builds a finals-like row for modelID.
func createTestRow(modelID int64, mass float64) run.Row {
	row := run.Row{}
	row.Set(run.ModelIDColumn, run.Int(modelID))
	row.Set("star_mass_1", run.Real(mass))
	row.Set("termination_code", run.Text("mesa default (max_age)"))
	return row
}

// insertRow creates the table from row if needed and inserts it.
func insertRow(t *testing.T, s *Store, table string, row run.Row) int {
	t.Helper()
	ctx := context.Background()
	schema, err := InferSchema(table, row)
	if err != nil {
		t.Fatalf("InferSchema() failed: %v", err)
	}
	var n int
	err = s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.CreateTable(ctx, schema); err != nil {
			return err
		}
		n, err = tx.InsertRecord(ctx, table, row)
		return err
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return n
}
