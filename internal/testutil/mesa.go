package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Default run layout used by fixtures. Mirrors the defaults in
// internal/config so tests can build a config with no overrides.
const (
	BinaryLogDir      = "."
	BinaryHistory     = "binary_history.data"
	Star1LogDir       = "LOGS1"
	Star2LogDir       = "LOGS2"
	StarHistory       = "history.data"
	TerminationDir    = "."
	TerminationName   = "termination_code"
	CoreCollapseDir   = "cc_data"
	CoreCollapseBin   = "binary_at_cc.data"
	CoreCollapseStar1 = "star1_at_cc.data"
	CoreCollapseStar2 = "star2_at_cc.data"
)

// TableFixture describes a MESA table to write.
type TableFixture struct {
	HeaderNames  []string
	HeaderValues []string
	Columns      []string
	Rows         [][]float64
	Gzip         bool
}

// RunFixture describes a run directory. Nil tables and nil strings are
// not written.
type RunFixture struct {
	Name         string
	Binary       *TableFixture
	Star1        *TableFixture
	Star2        *TableFixture
	Termination  *string
	CoreCollapse map[string]string // file name -> contents
	Inlist       bool              // write an inlist_project file
}

// Code returns a pointer to a termination code, for RunFixture literals.
func Code(s string) *string { return &s }

// FormatTable renders a table in MESA layout.
func FormatTable(tf TableFixture) string {
	var b strings.Builder
	b.WriteString("                                         1                                         2\n")

	names := tf.HeaderNames
	values := tf.HeaderValues
	if names == nil {
		names = []string{"version_number", "compiler", "initial_mass"}
		values = []string{"15140", `"gfortran"`, "1.0D+01"}
	}
	b.WriteString(strings.Join(names, " "))
	b.WriteString("\n")
	b.WriteString(strings.Join(values, " "))
	b.WriteString("\n\n")

	idx := make([]string, len(tf.Columns))
	for i := range tf.Columns {
		idx[i] = strconv.Itoa(i + 1)
	}
	b.WriteString(strings.Join(idx, " "))
	b.WriteString("\n")
	b.WriteString(strings.Join(tf.Columns, " "))
	b.WriteString("\n")

	for _, row := range tf.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		b.WriteString("   ")
		b.WriteString(strings.Join(cells, "   "))
		b.WriteString("\n")
	}
	return b.String()
}

// WriteTable writes a table to path (path+".gz" when tf.Gzip is set),
// creating parent directories.
func WriteTable(t testing.TB, path string, tf TableFixture) string {
	t.Helper()
	content := []byte(FormatTable(tf))
	if tf.Gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(content); err != nil {
			t.Fatalf("gzip %s: %v", path, err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("gzip %s: %v", path, err)
		}
		content = buf.Bytes()
		path += ".gz"
	}
	WriteFile(t, path, string(content))
	return path
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteRun materializes a run under root using the default layout and
// returns the run directory.
func WriteRun(t testing.TB, root string, rf RunFixture) string {
	t.Helper()
	dir := filepath.Join(root, rf.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if rf.Binary != nil {
		WriteTable(t, filepath.Join(dir, BinaryLogDir, BinaryHistory), *rf.Binary)
	}
	if rf.Star1 != nil {
		WriteTable(t, filepath.Join(dir, Star1LogDir, StarHistory), *rf.Star1)
	}
	if rf.Star2 != nil {
		WriteTable(t, filepath.Join(dir, Star2LogDir, StarHistory), *rf.Star2)
	}
	if rf.Termination != nil {
		WriteFile(t, filepath.Join(dir, TerminationDir, TerminationName), *rf.Termination+"\n")
	}
	for name, content := range rf.CoreCollapse {
		WriteFile(t, filepath.Join(dir, CoreCollapseDir, name), content)
	}
	if rf.Inlist {
		WriteFile(t, filepath.Join(dir, "inlist_project"), "&star_job\n/\n")
	}
	return dir
}

// BinaryHistoryFixture returns a small binary history with a mass-transfer
// episode on rows 2-3 (rl_relative_overflow_1 >= 0).
func BinaryHistoryFixture() *TableFixture {
	return &TableFixture{
		Columns: []string{"model_number", "age", "period_days", "star_1_mass", "star_2_mass",
			"star_1_radius", "rl_1", "eccentricity", "lg_mtransfer_rate"},
		Rows: [][]float64{
			{1, 0, 2.5, 30, 10, 5, 10, 0, -99},
			{2, 1e5, 2.6, 29, 10, 8, 10, 0, -99},
			{3, 2e5, 2.8, 25, 10, 10.5, 10, 0, -6},
			{4, 3e5, 3.1, 20, 10, 11, 10, 0, -5},
			{5, 4e5, 3.5, 18, 10, 9, 10, 0, -99},
		},
	}
}

// StarHistoryFixture returns a small single-star history.
func StarHistoryFixture(mass float64) *TableFixture {
	return &TableFixture{
		Columns: []string{"model_number", "star_age", "star_mass", "log_L", "log_Teff", "center_h1"},
		Rows: [][]float64{
			{1, 0, mass, 5.1, 4.6, 0.7},
			{2, 1e5, mass - 1, 5.2, 4.6, 0.5},
			{3, 2e5, mass - 5, 5.3, 4.5, 0.3},
			{4, 3e5, mass - 10, 5.4, 4.4, 0.1},
			{5, 4e5, mass - 12, 5.5, 4.3, 0.0},
		},
	}
}
