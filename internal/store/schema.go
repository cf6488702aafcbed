package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stevdb/stevdb/internal/run"
)

// SQLite storage classes used for stage columns.
const (
	TypeInteger = "INTEGER"
	TypeReal    = "REAL"
	TypeText    = "TEXT"
	TypeBlob    = "BLOB"
)

// ErrUninferableSchema is returned when no column of a row carries a typed
// value.
var ErrUninferableSchema = errors.New("cannot infer table schema")

// Column is one column of a stage table.
type Column struct {
	Name string
	Type string
}

// Schema is the layout of a stage table, inferred from the first record
// written to it.
type Schema struct {
	Table   string
	Columns []Column
}

// SQLType maps a value to its SQLite storage class. Booleans are stored as
// integers. A Series is typed by its elements. Null carries no type and is
// stored in a nullable REAL column.
func SQLType(v run.Value) string {
	switch v.(type) {
	case run.Int, run.Bool:
		return TypeInteger
	case run.Text:
		return TypeText
	case run.Real, run.Series, run.Null:
		return TypeReal
	default:
		return TypeBlob
	}
}

// InferSchema derives a table layout from a row, keeping column order.
// A row whose every value is Null has no usable types.
func InferSchema(table string, row run.Row) (*Schema, error) {
	if len(row) == 0 || len(row.NullColumns()) == len(row) {
		return nil, fmt.Errorf("%s: %w", table, ErrUninferableSchema)
	}
	s := &Schema{Table: table, Columns: make([]Column, len(row))}
	for i, c := range row {
		s.Columns[i] = Column{Name: c.Name, Type: SQLType(c.Value)}
	}
	return s, nil
}

// DDL returns the CREATE TABLE statement for the schema.
func (s *Schema) DDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quoteIdent(s.Table))
	for i, c := range s.Columns {
		fmt.Fprintf(&b, "\t%s %s", quoteIdent(c.Name), c.Type)
		if i < len(s.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// Has reports whether the schema defines a column.
func (s *Schema) Has(name string) bool {
	for _, c := range s.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// createTable creates the table if needed and adds any column of the
// schema the existing table lacks.
func createTable(ctx context.Context, q querier, s *Schema) error {
	if _, err := q.ExecContext(ctx, s.DDL()); err != nil {
		return fmt.Errorf("create table %s: %w", s.Table, err)
	}

	existing, err := tableColumns(ctx, q, s.Table)
	if err != nil {
		return err
	}
	for _, c := range s.Columns {
		if _, ok := existing[c.Name]; ok {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(s.Table), quoteIdent(c.Name), c.Type)
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", s.Table, c.Name, err)
		}
	}
	return nil
}

func tableColumns(ctx context.Context, q querier, table string) (map[string]struct{}, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		out[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	return out, nil
}

func tableExists(ctx context.Context, q querier, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", table, err)
	}
	return n > 0, nil
}

// CreateTable creates the table described by s. Safe to call repeatedly.
func (s *Store) CreateTable(ctx context.Context, schema *Schema) error {
	return createTable(ctx, s.db, schema)
}

// TableExists reports whether a table is present in the database.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	return tableExists(ctx, s.db, table)
}
