// Package config loads the stevdb configuration file.
//
// The file is YAML with two sections: `stevdb` (database, tables, polling,
// stages to track) and `mesabinary` (how runs were evolved and where their
// output lives). Defaults are applied before decoding, then the result is
// validated against an embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/stevdb/stevdb/internal/run"
)

//go:embed schema.cue
var schemaCUE string

// MESADirEnv is consulted when mesa_dir is not set.
const MESADirEnv = "MESA_DIR"

var (
	// ErrNoMESADir is returned when neither mesa_dir nor $MESA_DIR is set.
	ErrNoMESADir = errors.New("MESA installation not found: set mesa_dir or $MESA_DIR")

	// ErrInvalid wraps schema validation failures.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the whole configuration file.
type Config struct {
	Stevdb     Stevdb     `yaml:"stevdb" json:"stevdb"`
	MESAbinary MESAbinary `yaml:"mesabinary" json:"mesabinary"`
}

// Stevdb configures the database and the polling loop.
type Stevdb struct {
	DatabaseName      string  `yaml:"database_name" json:"database_name"`
	ManifestTable     string  `yaml:"manifest_table" json:"manifest_table"`
	RunsDirectory     string  `yaml:"runs_directory" json:"runs_directory"`
	TemplateDirectory string  `yaml:"template_directory" json:"template_directory"`
	ReplaceModels     bool    `yaml:"replace_models" json:"replace_models"`
	WaitingTimeInSec  float64 `yaml:"waiting_time_in_sec" json:"waiting_time_in_sec"`

	TrackInitials     bool `yaml:"track_initials" json:"track_initials"`
	TrackFinals       bool `yaml:"track_finals" json:"track_finals"`
	TrackCoreCollapse bool `yaml:"track_core_collapse" json:"track_core_collapse"`
	TrackXRBPhase     bool `yaml:"track_xrb_phase" json:"track_xrb_phase"`
	TrackCEPhase      bool `yaml:"track_ce_phase" json:"track_ce_phase"`

	InitialsTable     string `yaml:"id_for_initials_in_database" json:"id_for_initials_in_database"`
	FinalsTable       string `yaml:"id_for_finals_in_database" json:"id_for_finals_in_database"`
	CoreCollapseTable string `yaml:"id_for_core_collapse_in_database" json:"id_for_core_collapse_in_database"`
	XRBPhaseTable     string `yaml:"id_for_xrb_phase_in_database" json:"id_for_xrb_phase_in_database"`

	HistoryColumnsList string `yaml:"history_columns_list" json:"history_columns_list"`
	MESADir            string `yaml:"mesa_dir" json:"mesa_dir"`
}

// MESAbinary describes how runs were evolved and their output layout.
type MESAbinary struct {
	IsBinaryEvolution bool `yaml:"is_binary_evolution" json:"is_binary_evolution"`
	EvolveBothStars   bool `yaml:"evolve_both_stars" json:"evolve_both_stars"`

	LogDirectoryBinary string `yaml:"log_directory_binary" json:"log_directory_binary"`
	LogDirectoryStar1  string `yaml:"log_directory_star1" json:"log_directory_star1"`
	LogDirectoryStar2  string `yaml:"log_directory_star2" json:"log_directory_star2"`
	HistoryNameBinary  string `yaml:"history_name_binary" json:"history_name_binary"`
	HistoryNameStar1   string `yaml:"history_name_star1" json:"history_name_star1"`
	HistoryNameStar2   string `yaml:"history_name_star2" json:"history_name_star2"`

	TerminationDirectory string `yaml:"termination_directory" json:"termination_directory"`
	TerminationName      string `yaml:"termination_name" json:"termination_name"`

	CoreCollapseDirectory  string `yaml:"core_collapse_directory" json:"core_collapse_directory"`
	CoreCollapseNameBinary string `yaml:"core_collapse_name_binary" json:"core_collapse_name_binary"`
	CoreCollapseNameStar1  string `yaml:"core_collapse_name_star1" json:"core_collapse_name_star1"`
	CoreCollapseNameStar2  string `yaml:"core_collapse_name_star2" json:"core_collapse_name_star2"`
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		Stevdb: Stevdb{
			DatabaseName:       "stevdb.db",
			ManifestTable:      "stevma",
			RunsDirectory:      "runs",
			WaitingTimeInSec:   60,
			TrackInitials:      true,
			TrackFinals:        true,
			InitialsTable:      string(run.StageInitials),
			FinalsTable:        string(run.StageFinals),
			CoreCollapseTable:  string(run.StageCoreCollapse),
			XRBPhaseTable:      string(run.StageXRB),
			HistoryColumnsList: "history_columns.yaml",
		},
		MESAbinary: MESAbinary{
			IsBinaryEvolution:      true,
			LogDirectoryBinary:     ".",
			LogDirectoryStar1:      "LOGS1",
			LogDirectoryStar2:      "LOGS2",
			HistoryNameBinary:      "binary_history.data",
			HistoryNameStar1:       "history.data",
			HistoryNameStar2:       "history.data",
			TerminationDirectory:   ".",
			TerminationName:        "termination_code",
			CoreCollapseDirectory:  "cc_data",
			CoreCollapseNameBinary: "binary_at_cc.data",
			CoreCollapseNameStar1:  "star1_at_cc.data",
			CoreCollapseNameStar2:  "star2_at_cc.data",
		},
	}
}

// Load reads the configuration file at path. Relative paths in the file
// are resolved against the directory holding it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against the embedded schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.Encode(c)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{
		&c.Stevdb.DatabaseName,
		&c.Stevdb.RunsDirectory,
		&c.Stevdb.TemplateDirectory,
		&c.Stevdb.HistoryColumnsList,
		&c.Stevdb.MESADir,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// MESADir returns the MESA installation directory, falling back to
// $MESA_DIR.
func (c *Config) MESADir() (string, error) {
	if c.Stevdb.MESADir != "" {
		return c.Stevdb.MESADir, nil
	}
	if dir := os.Getenv(MESADirEnv); dir != "" {
		return dir, nil
	}
	return "", ErrNoMESADir
}

// PollInterval is the sleep between two polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Stevdb.WaitingTimeInSec * float64(time.Second))
}

// TrackedStages returns the stages to extract, in insertion order.
// The common-envelope phase is reported separately by TrackCEPhase.
func (c *Config) TrackedStages() []run.Stage {
	var out []run.Stage
	if c.Stevdb.TrackInitials {
		out = append(out, run.StageInitials)
	}
	if c.Stevdb.TrackFinals {
		out = append(out, run.StageFinals)
	}
	if c.Stevdb.TrackCoreCollapse {
		out = append(out, run.StageCoreCollapse)
	}
	if c.Stevdb.TrackXRBPhase {
		out = append(out, run.StageXRB)
	}
	return out
}

// Table returns the table name a stage is written to.
func (c *Config) Table(stage run.Stage) string {
	switch stage {
	case run.StageInitials:
		return c.Stevdb.InitialsTable
	case run.StageFinals:
		return c.Stevdb.FinalsTable
	case run.StageCoreCollapse:
		return c.Stevdb.CoreCollapseTable
	case run.StageXRB:
		return c.Stevdb.XRBPhaseTable
	default:
		return string(stage)
	}
}

// RunOptions converts the configuration to run loading options.
func (c *Config) RunOptions() run.Options {
	m := c.MESAbinary
	return run.Options{
		RunsDir:           c.Stevdb.RunsDirectory,
		TemplateDir:       c.Stevdb.TemplateDirectory,
		IsBinaryEvolution: m.IsBinaryEvolution,
		EvolveBothStars:   m.EvolveBothStars,
		Layout: run.Layout{
			LogDirBinary:       m.LogDirectoryBinary,
			HistoryBinary:      m.HistoryNameBinary,
			LogDirStar1:        m.LogDirectoryStar1,
			HistoryStar1:       m.HistoryNameStar1,
			LogDirStar2:        m.LogDirectoryStar2,
			HistoryStar2:       m.HistoryNameStar2,
			TerminationDir:     m.TerminationDirectory,
			TerminationName:    m.TerminationName,
			CoreCollapseDir:    m.CoreCollapseDirectory,
			CoreCollapseBinary: m.CoreCollapseNameBinary,
			CoreCollapseStar1:  m.CoreCollapseNameStar1,
			CoreCollapseStar2:  m.CoreCollapseNameStar2,
		},
	}
}

// String renders the configuration as YAML.
func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return string(out)
}
