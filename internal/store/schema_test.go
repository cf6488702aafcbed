package store

import (
	"context"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevdb/stevdb/internal/run"
)

func TestSQLType(t *testing.T) {
	tests := []struct {
		name  string
		value run.Value
		want  string
	}{
		{"int", run.Int(1), TypeInteger},
		{"real", run.Real(3.5), TypeReal},
		{"text", run.Text("x"), TypeText},
		{"bool", run.Bool(true), TypeInteger},
		{"null", run.Null{}, TypeReal},
		{"series", run.Series{1, 2}, TypeReal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SQLType(tt.value))
		})
	}
}

func TestInferSchema(t *testing.T) {
	row := run.Row{}
	row.Set("a", run.Int(1))
	row.Set("b", run.Real(3.5))
	row.Set("c", run.Text("x"))
	row.Set("d", run.Bool(true))

	schema, err := InferSchema("t", row)
	require.NoError(t, err)

	assert.Equal(t, "t", schema.Table)
	assert.Equal(t, []Column{
		{Name: "a", Type: TypeInteger},
		{Name: "b", Type: TypeReal},
		{Name: "c", Type: TypeText},
		{Name: "d", Type: TypeInteger},
	}, schema.Columns)
	assert.True(t, schema.Has("c"))
	assert.False(t, schema.Has("e"))
}

func TestInferSchema_Uninferable(t *testing.T) {
	_, err := InferSchema("empty", run.Row{})
	assert.True(t, errors.Is(err, ErrUninferableSchema))

	nulls := run.Row{}
	nulls.Set("a", run.Null{})
	nulls.Set("b", run.Null{})
	_, err = InferSchema("nulls", nulls)
	assert.True(t, errors.Is(err, ErrUninferableSchema))
}

func TestSchema_DDL(t *testing.T) {
	row := run.Row{}
	row.Set(run.ModelIDColumn, run.Int(1))
	row.Set("star_mass_1", run.Real(30))
	row.Set("log_L_1", run.Real(5.1))
	row.Set("termination_code", run.Text("mesa default (max_age)"))
	row.Set("is_binary_evolution", run.Bool(true))
	row.Set("he_core_mass_1", run.Null{})

	schema, err := InferSchema("finals", row)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "finals_ddl", []byte(schema.DDL()))
}

func TestCreateTable_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	schema, err := InferSchema("finals", createTestRow(1, 20))
	require.NoError(t, err)

	require.NoError(t, s.CreateTable(ctx, schema))
	require.NoError(t, s.CreateTable(ctx, schema))

	exists, err := s.TableExists(ctx, "finals")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateTable_AddsNewColumns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	insertRow(t, s, "finals", createTestRow(1, 20))

	wider := createTestRow(2, 25)
	wider.Set("period_days", run.Real(3.1))
	insertRow(t, s, "finals", wider)

	cols, err := tableColumns(ctx, s.db, "finals")
	require.NoError(t, err)
	assert.Contains(t, cols, "period_days")

	n, err := s.CountRows(ctx, "finals")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestTableExists_Missing(t *testing.T) {
	s := createTestStore(t)

	exists, err := s.TableExists(context.Background(), "xrb")
	require.NoError(t, err)
	assert.False(t, exists)
}
