package run

// Stage is a point or interval of a run's timeline whose columns are
// persisted to their own table.
type Stage string

const (
	StageInitials     Stage = "initials"
	StageFinals       Stage = "finals"
	StageCoreCollapse Stage = "core_collapse"
	StageXRB          Stage = "xrb"
	StageCE           Stage = "ce"
)

// ModelIDColumn keys every stage row to the manifest id.
const ModelIDColumn = "model_id"

// StageColumns lists the columns to extract for one stage, per source.
// Star columns are read from each evolved star and suffixed _1 / _2;
// binary columns keep their name.
type StageColumns struct {
	Star   []string `yaml:"star"`
	Binary []string `yaml:"binary"`
	Misc   []string `yaml:"misc"`
}

// Empty reports whether no star or binary column is requested.
func (c StageColumns) Empty() bool {
	return len(c.Star) == 0 && len(c.Binary) == 0
}

// StageRecord is the extracted row for one stage of one run.
type StageRecord interface {
	Stage() Stage
	ID() int64
	Row() Row
}

// Initials holds values at the first row of each history.
type Initials struct {
	ModelID int64
	Columns Row
}

func (r Initials) Stage() Stage { return StageInitials }
func (r Initials) ID() int64    { return r.ModelID }
func (r Initials) Row() Row     { return r.Columns }

// Finals holds values at the last row of each history. Columns that
// could not be extracted are present as Null.
type Finals struct {
	ModelID int64
	Columns Row
}

func (r Finals) Stage() Stage { return StageFinals }
func (r Finals) ID() int64    { return r.ModelID }
func (r Finals) Row() Row     { return r.Columns }

// CoreCollapse holds values from the core-collapse snapshots.
type CoreCollapse struct {
	ModelID int64
	Columns Row
}

func (r CoreCollapse) Stage() Stage { return StageCoreCollapse }
func (r CoreCollapse) ID() int64    { return r.ModelID }
func (r CoreCollapse) Row() Row     { return r.Columns }

// XRBPhase holds series over the rows where star 1 overflows its Roche
// lobe. Rows is the number of history rows in the phase.
type XRBPhase struct {
	ModelID int64
	Columns Row
	Rows    int
}

func (r XRBPhase) Stage() Stage { return StageXRB }
func (r XRBPhase) ID() int64    { return r.ModelID }
func (r XRBPhase) Row() Row     { return r.Columns }
