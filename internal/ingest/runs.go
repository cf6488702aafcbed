package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrRunsRootMissing is returned when the runs directory does not exist.
	ErrRunsRootMissing = errors.New("runs directory not found")

	// ErrRunsDisappeared is returned when a run seen earlier is no longer
	// listed. Runs are never removed during normal operation, so this stops
	// the watch loop.
	ErrRunsDisappeared = errors.New("runs disappeared from runs directory")
)

// inlistPrefix marks a MESA work directory: a root holding inlist files
// is itself a single run.
const inlistPrefix = "inlist"

// Listing is one scan of the runs root.
type Listing struct {
	// Dir holds the run directories. It is the parent of the root when the
	// root is a single run.
	Dir string
	// Names are NFC-normalized run names, sorted.
	Names []string

	dirs map[string]string
}

// DirOf returns the on-disk directory name of a listed run.
func (l *Listing) DirOf(name string) string {
	if d, ok := l.dirs[name]; ok {
		return d
	}
	return name
}

// Has reports whether name is listed.
func (l *Listing) Has(name string) bool {
	_, ok := l.dirs[name]
	return ok
}

// Scan lists the runs under root.
func Scan(root string) (*Listing, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", root, ErrRunsRootMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	l := &Listing{Dir: root, dirs: make(map[string]string)}
	if hasInlist(entries) {
		// "." or "runs/.." must still name the run directory itself.
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve runs directory: %w", err)
		}
		l.Dir = filepath.Dir(abs)
		l.add(filepath.Base(abs))
		return l, nil
	}

	for _, e := range entries {
		if isDir(root, e) {
			l.add(e.Name())
		}
	}
	sort.Strings(l.Names)
	return l, nil
}

// ListRuns returns the sorted names of the runs under root.
func ListRuns(root string) ([]string, error) {
	l, err := Scan(root)
	if err != nil {
		return nil, err
	}
	return l.Names, nil
}

func (l *Listing) add(dir string) {
	name := norm.NFC.String(dir)
	l.Names = append(l.Names, name)
	l.dirs[name] = dir
}

func hasInlist(entries []fs.DirEntry) bool {
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), inlistPrefix) {
			return true
		}
	}
	return false
}

// isDir follows symlinks so linked run directories are listed.
func isDir(root string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, e.Name()))
	return err == nil && info.IsDir()
}
