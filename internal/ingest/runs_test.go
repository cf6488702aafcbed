package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevdb/stevdb/internal/testutil"
)

func TestListRuns(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"m1_30_m2_10", "m1_20_m2_10", "m1_25_m2_10"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}
	testutil.WriteFile(t, filepath.Join(root, "grid.log"), "not a run\n")

	names, err := ListRuns(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1_20_m2_10", "m1_25_m2_10", "m1_30_m2_10"}, names)
}

func TestListRuns_Empty(t *testing.T) {
	names, err := ListRuns(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListRuns_MissingRoot(t *testing.T) {
	_, err := ListRuns(filepath.Join(t.TempDir(), "nope"))
	assert.True(t, errors.Is(err, ErrRunsRootMissing))
}

func TestScan_SingleRun(t *testing.T) {
	parent := t.TempDir()
	root := testutil.WriteRun(t, parent, testutil.RunFixture{Name: "only_run", Inlist: true})
	require.NoError(t, os.Mkdir(filepath.Join(root, "LOGS1"), 0o755))

	l, err := Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"only_run"}, l.Names)
	assert.Equal(t, parent, l.Dir)
}

func TestScan_SingleRunFromWorkDir(t *testing.T) {
	parent := t.TempDir()
	root := testutil.WriteRun(t, parent, testutil.RunFixture{Name: "m1_30", Inlist: true})
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	l, err := Scan(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1_30"}, l.Names)
	assert.Equal(t, filepath.Base(parent), filepath.Base(l.Dir))
	assert.Equal(t, "m1_30", filepath.Base(l.DirOf("m1_30")))
}

func TestScan_NFC(t *testing.T) {
	root := t.TempDir()
	decomposed := "run_e\u0301"
	composed := "run_\u00e9"
	require.NoError(t, os.Mkdir(filepath.Join(root, decomposed), 0o755))

	l, err := Scan(root)
	require.NoError(t, err)
	require.Equal(t, []string{composed}, l.Names)
	assert.True(t, l.Has(composed))
	assert.Equal(t, decomposed, l.DirOf(composed))
}

func TestScan_FollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := t.TempDir()
	if err := os.Symlink(target, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	names, err := ListRuns(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"linked"}, names)
}

func TestLedger(t *testing.T) {
	l := NewLedger("b", "a")
	l.Add("c")
	l.Add("a")

	assert.Equal(t, 3, l.Len())
	assert.True(t, l.Has("c"))
	assert.False(t, l.Has("d"))
	assert.Equal(t, []string{"a", "b", "c"}, l.Names())
}
