package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stevdb/stevdb/internal/config"
	"github.com/stevdb/stevdb/internal/mesa"
	"github.com/stevdb/stevdb/internal/run"
	"github.com/stevdb/stevdb/internal/store"
	"github.com/stevdb/stevdb/internal/testutil"
)

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t       *testing.T
	runs    string
	cfg     *config.Config
	columns *config.HistoryColumns
	store   *store.Store
	clock   *testutil.ManualClock
}

// newFixture creates a runs directory, a database holding an empty
// manifest, and a config tracking initials and finals.
func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Stevdb.DatabaseName = filepath.Join(dir, "grid.db")
	cfg.Stevdb.RunsDirectory = filepath.Join(dir, "runs")
	cfg.Stevdb.TemplateDirectory = filepath.Join(dir, "template")
	cfg.Stevdb.ManifestTable = testutil.ManifestTable
	cfg.Stevdb.WaitingTimeInSec = 30
	for _, fn := range mutate {
		fn(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	st, err := store.Open(cfg.Stevdb.DatabaseName)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	testutil.SeedManifest(t, st.DB(), testutil.ManifestTable)

	testutil.WriteFile(t, filepath.Join(cfg.Stevdb.RunsDirectory, ".keep"), "")

	return &fixture{
		t:     t,
		runs:  cfg.Stevdb.RunsDirectory,
		cfg:   cfg,
		store: st,
		clock: testutil.NewManualClock(testStart),
		columns: &config.HistoryColumns{
			Initials: run.StageColumns{
				Star:   []string{"star_mass"},
				Binary: []string{"period_days"},
				Misc:   []string{"model_name"},
			},
			Finals: run.StageColumns{
				Star:   []string{"star_mass", "center_h1"},
				Binary: []string{"period_days"},
				Misc:   []string{"termination_code"},
			},
			CoreCollapse: run.StageColumns{Star: []string{"fe_core_mass"}},
			XRB:          run.StageColumns{Binary: []string{"period_days", "lg_mtransfer_rate"}},
			CE:           run.StageColumns{Binary: []string{"period_days"}},
		},
	}
}

func (f *fixture) manager(opts ...Option) *Manager {
	f.t.Helper()
	opts = append([]Option{
		WithClock(f.clock),
		WithIDGenerator(testutil.NewFixedSessionID("")),
	}, opts...)
	m, err := New(context.Background(), f.cfg, f.columns, f.store, mesa.NewClassifier([]string{"max_age"}), opts...)
	if err != nil {
		f.t.Fatalf("New() failed: %v", err)
	}
	return m
}

// register adds names to the manifest after the ones already there.
func (f *fixture) register(names ...string) {
	f.t.Helper()
	for _, name := range names {
		if _, err := f.store.DB().Exec(
			`INSERT INTO manifest (model_name) VALUES (?)`, name); err != nil {
			f.t.Fatalf("register %s: %v", name, err)
		}
	}
}

// finishedRun writes a terminated binary run.
func (f *fixture) finishedRun(name string, mass float64) string {
	f.t.Helper()
	return testutil.WriteRun(f.t, f.runs, testutil.RunFixture{
		Name:        name,
		Binary:      testutil.BinaryHistoryFixture(),
		Star1:       testutil.StarHistoryFixture(mass),
		Termination: testutil.Code("max_age"),
	})
}

func (f *fixture) count(table string) int64 {
	f.t.Helper()
	exists, err := f.store.TableExists(context.Background(), table)
	if err != nil {
		f.t.Fatalf("TableExists() failed: %v", err)
	}
	if !exists {
		return 0
	}
	n, err := f.store.CountRows(context.Background(), table)
	if err != nil {
		f.t.Fatalf("CountRows() failed: %v", err)
	}
	return n
}

func (f *fixture) status(name string) string {
	f.t.Helper()
	return testutil.ManifestStatus(f.t, f.store.DB(), testutil.ManifestTable, name)
}
