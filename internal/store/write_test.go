package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevdb/stevdb/internal/run"
	"github.com/stevdb/stevdb/internal/testutil"
)

func xrbRow(modelID int64, steps ...float64) run.Row {
	rates := make(run.Series, len(steps))
	for i := range steps {
		rates[i] = -6 + float64(i)
	}
	row := run.Row{}
	row.Set(run.ModelIDColumn, run.Int(modelID))
	row.Set("model_number", run.Series(steps))
	row.Set("lg_mtransfer_rate", rates)
	return row
}

func TestInsertRecord_Scalar(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n := insertRow(t, s, "finals", createTestRow(1, 18))
	assert.Equal(t, 1, n)

	var mass float64
	var code string
	err := s.db.QueryRowContext(ctx,
		`SELECT star_mass_1, termination_code FROM finals WHERE model_id = ?`, 1).Scan(&mass, &code)
	require.NoError(t, err)
	assert.Equal(t, 18.0, mass)
	assert.Equal(t, "mesa default (max_age)", code)
}

func TestInsertRecord_NullAndBool(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	row := createTestRow(1, 18)
	row.Set("is_binary_evolution", run.Bool(true))
	row.Set("co_core_mass_1", run.Null{})
	insertRow(t, s, "core_collapse", row)

	var flag int64
	var core *float64
	err := s.db.QueryRowContext(ctx,
		`SELECT is_binary_evolution, co_core_mass_1 FROM core_collapse`).Scan(&flag, &core)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flag)
	assert.Nil(t, core)
}

func TestInsertRecord_SeriesFanOut(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n := insertRow(t, s, "xrb", xrbRow(3, 10, 11, 12))
	assert.Equal(t, 3, n)

	rows, err := s.db.QueryContext(ctx,
		`SELECT model_id, model_number, lg_mtransfer_rate FROM xrb ORDER BY model_number`)
	require.NoError(t, err)
	defer rows.Close()

	var got [][3]float64
	for rows.Next() {
		var id int64
		var step, rate float64
		require.NoError(t, rows.Scan(&id, &step, &rate))
		got = append(got, [3]float64{float64(id), step, rate})
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, [][3]float64{{3, 10, -6}, {3, 11, -5}, {3, 12, -4}}, got)
}

func TestInsertRecord_EmptySeries(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n := insertRow(t, s, "xrb", xrbRow(3))
	assert.Equal(t, 0, n)

	count, err := s.CountRows(ctx, "xrb")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestInsertRecord_SeriesLengthMismatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	row := xrbRow(3, 10, 11)
	row.Set("period_days", run.Series{1, 2, 3})
	schema, err := InferSchema("xrb", row)
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.CreateTable(ctx, schema); err != nil {
			return err
		}
		_, err := tx.InsertRecord(ctx, "xrb", row)
		return err
	})
	assert.True(t, errors.Is(err, ErrSeriesLength))

	// the failed transaction left nothing behind
	exists, err := s.TableExists(ctx, "xrb")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateRecord_ReplacesRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	insertRow(t, s, "xrb", xrbRow(3, 10, 11, 12))
	insertRow(t, s, "xrb", xrbRow(4, 20))

	err := s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.UpdateRecord(ctx, "xrb", 3, xrbRow(3, 15))
		return err
	})
	require.NoError(t, err)

	count, err := s.CountRows(ctx, "xrb")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var step float64
	err = s.db.QueryRowContext(ctx, `SELECT model_number FROM xrb WHERE model_id = 3`).Scan(&step)
	require.NoError(t, err)
	assert.Equal(t, 15.0, step)
}

func TestUpdateModelStatus(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	testutil.SeedManifest(t, s.DB(), testutil.ManifestTable, "run_a", "run_b")

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.UpdateModelStatus(ctx, testutil.ManifestTable, "run_b", StatusCompleted)
	})
	require.NoError(t, err)

	assert.Equal(t, "pending", testutil.ManifestStatus(t, s.DB(), testutil.ManifestTable, "run_a"))
	assert.Equal(t, StatusCompleted, testutil.ManifestStatus(t, s.DB(), testutil.ManifestTable, "run_b"))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	testutil.SeedManifest(t, s.DB(), testutil.ManifestTable, "run_a")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpdateModelStatus(ctx, testutil.ManifestTable, "run_a", StatusCompleted); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, "pending", testutil.ManifestStatus(t, s.DB(), testutil.ManifestTable, "run_a"))
}
