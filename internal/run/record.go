package run

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/stevdb/stevdb/internal/mesa"
)

var (
	// ErrNoOutput is returned when none of the three tables was loaded.
	ErrNoOutput = errors.New("no MESA output loaded")

	// ErrNoCoreCollapse is returned when the run wrote no core-collapse
	// snapshot for any component.
	ErrNoCoreCollapse = errors.New("run did not reach core collapse")

	// ErrNotImplemented marks stages that cannot be extracted yet.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNoColumns is returned when a stage requests neither star nor
	// binary columns.
	ErrNoColumns = errors.New("history columns must list `star` or `binary` names")
)

// NoID is the model id of a run unknown to the manifest.
const NoID int64 = -1

// Identity names a run and its manifest id. Dir is the directory name on
// disk when it differs from Name (e.g. not NFC-normalized).
type Identity struct {
	Name string
	ID   int64
	Dir  string
}

// Layout locates artifacts inside a run directory. Every path is
// relative to <runs>/<name>.
type Layout struct {
	LogDirBinary  string
	HistoryBinary string
	LogDirStar1   string
	HistoryStar1  string
	LogDirStar2   string
	HistoryStar2  string

	TerminationDir  string
	TerminationName string

	CoreCollapseDir    string
	CoreCollapseBinary string
	CoreCollapseStar1  string
	CoreCollapseStar2  string
}

// Options describe how runs were evolved and where they live.
type Options struct {
	RunsDir     string
	TemplateDir string

	// IsBinaryEvolution runs produce a binary history.
	IsBinaryEvolution bool
	// EvolveBothStars runs produce a second star history.
	EvolveBothStars bool

	Layout Layout
}

// Record is one run directory with its loaded output. It is built fresh
// for every inspection and never cached across polls.
type Record struct {
	Identity

	opts Options

	ShouldHaveBinary bool
	ShouldHaveStar1  bool
	ShouldHaveStar2  bool

	binary *mesa.Table
	star1  *mesa.Table
	star2  *mesa.Table

	ccBinary *mesa.Snapshot
	ccStar1  *mesa.Snapshot
	ccStar2  *mesa.Snapshot

	status mesa.Status
}

// Load builds a Record, loading every artifact the run should have.
// Missing files leave the matching Has* flag false and are not an error;
// unreadable or malformed files are.
func Load(id Identity, opts Options, classifier *mesa.Classifier) (*Record, error) {
	r := &Record{
		Identity:         id,
		opts:             opts,
		ShouldHaveBinary: opts.IsBinaryEvolution,
		ShouldHaveStar1:  true,
		ShouldHaveStar2:  opts.EvolveBothStars,
	}

	l := opts.Layout
	var err error
	if r.ShouldHaveBinary {
		if r.binary, err = loadTable(r.path(l.LogDirBinary, l.HistoryBinary)); err != nil {
			return nil, err
		}
		if r.ccBinary, err = loadSnapshot(r.path(l.CoreCollapseDir, l.CoreCollapseBinary)); err != nil {
			return nil, err
		}
	}
	if r.ShouldHaveStar1 {
		if r.star1, err = loadTable(r.path(l.LogDirStar1, l.HistoryStar1)); err != nil {
			return nil, err
		}
		if r.ccStar1, err = loadSnapshot(r.path(l.CoreCollapseDir, l.CoreCollapseStar1)); err != nil {
			return nil, err
		}
	}
	if r.ShouldHaveStar2 {
		if r.star2, err = loadTable(r.path(l.LogDirStar2, l.HistoryStar2)); err != nil {
			return nil, err
		}
		if r.ccStar2, err = loadSnapshot(r.path(l.CoreCollapseDir, l.CoreCollapseStar2)); err != nil {
			return nil, err
		}
	}

	r.status, err = mesa.ReadStatus(r.path(l.TerminationDir, l.TerminationName), classifier)
	if err != nil {
		return nil, err
	}

	slog.Debug("run loaded",
		"model", r.Name,
		"id", r.ID,
		"binary", r.HasBinary(),
		"star1", r.HasStar1(),
		"star2", r.HasStar2(),
		"status", r.status.String(),
	)
	return r, nil
}

// Path returns the run directory.
func (r *Record) Path() string {
	dir := r.Identity.Dir
	if dir == "" {
		dir = r.Name
	}
	return filepath.Join(r.opts.RunsDir, dir)
}

func (r *Record) path(dir, name string) string {
	return filepath.Join(r.Path(), dir, name)
}

// loadTable returns nil, nil when the file does not exist.
func loadTable(path string) (*mesa.Table, error) {
	t, err := mesa.Load(path)
	if errors.Is(err, mesa.ErrNotFound) {
		slog.Debug("MESA output does not exist", "file", path)
		return nil, nil
	}
	return t, err
}

func loadSnapshot(path string) (*mesa.Snapshot, error) {
	s, err := mesa.LoadSnapshot(path)
	if errors.Is(err, mesa.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

func (r *Record) HasBinary() bool { return r.binary != nil }
func (r *Record) HasStar1() bool  { return r.star1 != nil }
func (r *Record) HasStar2() bool  { return r.star2 != nil }

// ReachedCoreCollapse reports whether any component wrote a snapshot.
func (r *Record) ReachedCoreCollapse() bool {
	return r.ccBinary != nil || r.ccStar1 != nil || r.ccStar2 != nil
}

// Missing returns nil when every expected output was loaded, or an error
// listing each output that is missing.
func (r *Record) Missing() error {
	var result *multierror.Error
	if r.ShouldHaveBinary && !r.HasBinary() {
		result = multierror.Append(result, fmt.Errorf("no MESAbinary output"))
	}
	if r.ShouldHaveStar1 && !r.HasStar1() {
		result = multierror.Append(result, fmt.Errorf("no MESAstar1 output"))
	}
	if r.ShouldHaveStar2 && !r.HasStar2() {
		result = multierror.Append(result, fmt.Errorf("no MESAstar2 output"))
	}
	return result.ErrorOrNil()
}

// TerminationCode returns the run's termination status. The status is
// taken from the binary output when loaded, else star 1, else star 2.
func (r *Record) TerminationCode() (mesa.Status, error) {
	if !r.HasBinary() && !r.HasStar1() && !r.HasStar2() {
		return mesa.Status{}, fmt.Errorf("termination code of %s: %w", r.Name, ErrNoOutput)
	}
	return r.status, nil
}
