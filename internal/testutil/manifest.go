package testutil

import (
	"database/sql"
	"fmt"
	"testing"
)

// ManifestTable is the manifest table name used by fixtures.
const ManifestTable = "manifest"

// SeedManifest creates a manifest table and inserts names with ids 1..n
// in order, all with status "pending".
func SeedManifest(t testing.TB, db *sql.DB, table string, names ...string) {
	t.Helper()
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (
		id INTEGER PRIMARY KEY,
		model_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	)`, table)
	if _, err := db.Exec(create); err != nil {
		t.Fatalf("create manifest: %v", err)
	}
	insert := fmt.Sprintf(`INSERT INTO "%s" (id, model_name) VALUES (?, ?)`, table)
	for i, name := range names {
		if _, err := db.Exec(insert, i+1, name); err != nil {
			t.Fatalf("seed manifest %s: %v", name, err)
		}
	}
}

// ManifestStatus returns the status column for name.
func ManifestStatus(t testing.TB, db *sql.DB, table, name string) string {
	t.Helper()
	var status string
	query := fmt.Sprintf(`SELECT status FROM "%s" WHERE model_name = ?`, table)
	if err := db.QueryRow(query, name).Scan(&status); err != nil {
		t.Fatalf("manifest status of %s: %v", name, err)
	}
	return status
}
