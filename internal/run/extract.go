package run

import (
	"fmt"
	"log/slog"

	"github.com/stevdb/stevdb/internal/mesa"
)

// component pairs a loaded table with the suffix its columns take.
type component struct {
	label  string
	suffix string
	table  *mesa.Table
	cc     *mesa.Snapshot
}

// stars returns loaded star components in order.
func (r *Record) stars() []component {
	var out []component
	if r.star1 != nil {
		out = append(out, component{label: "star1", suffix: "_1", table: r.star1, cc: r.ccStar1})
	}
	if r.star2 != nil {
		out = append(out, component{label: "star2", suffix: "_2", table: r.star2, cc: r.ccStar2})
	}
	return out
}

// Initials extracts the first value of each requested column. Columns
// missing from the output are left out of the row.
func (r *Record) Initials(cols StageColumns) (Initials, error) {
	if cols.Empty() {
		return Initials{}, fmt.Errorf("initials: %w", ErrNoColumns)
	}

	row := Row{}
	row.Set(ModelIDColumn, Int(r.ID))
	row.Set("template_directory", Text(r.opts.TemplateDir))
	row.Set("run_root_directory", Text(r.opts.RunsDir))
	row.Set("is_binary_evolution", Bool(r.opts.IsBinaryEvolution))

	first := func(c component, name, key string) {
		v, err := c.table.First(name)
		if err != nil {
			slog.Debug("initial value not found", "model", r.Name, "column", name, "source", c.label)
			return
		}
		row.Set(key, Real(v))
	}

	for _, c := range r.stars() {
		for _, name := range cols.Star {
			first(c, name, name+c.suffix)
		}
	}
	if r.binary != nil {
		b := component{label: "binary", table: r.binary}
		for _, name := range cols.Binary {
			first(b, name, name)
		}
	}
	r.misc(&row, cols.Misc)

	return Initials{ModelID: r.ID, Columns: row}, nil
}

// Finals extracts the last value of each requested column. Columns
// missing from the output are kept as Null so callers can reject an
// incomplete row.
func (r *Record) Finals(cols StageColumns) (Finals, error) {
	if cols.Empty() {
		return Finals{}, fmt.Errorf("finals: %w", ErrNoColumns)
	}

	row := Row{}
	row.Set(ModelIDColumn, Int(r.ID))

	last := func(c component, name, key string) {
		v, err := c.table.Last(name)
		if err != nil {
			slog.Debug("final value not found", "model", r.Name, "column", name, "source", c.label)
			row.Set(key, Null{})
			return
		}
		row.Set(key, Real(v))
	}

	for _, c := range r.stars() {
		for _, name := range cols.Star {
			last(c, name, name+c.suffix)
		}
	}
	if r.binary != nil {
		b := component{label: "binary", table: r.binary}
		for _, name := range cols.Binary {
			last(b, name, name)
		}
	}
	r.misc(&row, cols.Misc)

	return Finals{ModelID: r.ID, Columns: row}, nil
}

// CoreCollapse extracts values from the core-collapse snapshots. A
// component without a snapshot yields Null for its columns. Returns
// ErrNoCoreCollapse if no component reached core collapse.
func (r *Record) CoreCollapse(cols StageColumns) (CoreCollapse, error) {
	if cols.Empty() {
		return CoreCollapse{}, fmt.Errorf("core collapse: %w", ErrNoColumns)
	}
	if !r.ReachedCoreCollapse() {
		return CoreCollapse{}, fmt.Errorf("core collapse of %s: %w", r.Name, ErrNoCoreCollapse)
	}

	row := Row{}
	row.Set(ModelIDColumn, Int(r.ID))

	put := func(s *mesa.Snapshot, name, key string) {
		if s == nil {
			row.Set(key, Null{})
			return
		}
		e, err := s.Get(name)
		if err != nil {
			slog.Debug("core-collapse value not found", "model", r.Name, "column", name)
			row.Set(key, Null{})
			return
		}
		if e.IsText {
			row.Set(key, Text(e.Text))
		} else {
			row.Set(key, Real(e.Number))
		}
	}

	for _, c := range r.stars() {
		for _, name := range cols.Star {
			put(c.cc, name, name+c.suffix)
		}
	}
	if r.binary != nil {
		for _, name := range cols.Binary {
			put(r.ccBinary, name, name)
		}
	}
	r.misc(&row, cols.Misc)

	return CoreCollapse{ModelID: r.ID, Columns: row}, nil
}

// CommonEnvelope is not available: MESAbinary output carries no reliable
// marker for the start and end of a common-envelope episode.
func (r *Record) CommonEnvelope(cols StageColumns) (Row, error) {
	return nil, fmt.Errorf("common-envelope phase: %w", ErrNotImplemented)
}

// misc fills bookkeeping columns that do not come from a table.
func (r *Record) misc(row *Row, names []string) {
	for _, name := range names {
		switch name {
		case "status":
			row.Set(name, Text("finished"))
		case "condition", "termination_code":
			row.Set(name, Text(r.status.String()))
		case "model_name":
			row.Set(name, Text(r.Name))
		case "reached_core_collapse":
			row.Set(name, Bool(r.ReachedCoreCollapse()))
		default:
			slog.Debug("unknown misc column", "model", r.Name, "column", name)
			row.Set(name, Null{})
		}
	}
}
