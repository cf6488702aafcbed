package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/stevdb/stevdb/internal/run"
)

// HistoryColumns lists the columns to extract per stage.
type HistoryColumns struct {
	Initials     run.StageColumns `yaml:"initials"`
	Finals       run.StageColumns `yaml:"finals"`
	CoreCollapse run.StageColumns `yaml:"core_collapse"`
	XRB          run.StageColumns `yaml:"xrb"`
	CE           run.StageColumns `yaml:"ce"`
}

// LoadHistoryColumns reads the history-columns file.
func LoadHistoryColumns(path string) (*HistoryColumns, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history columns: %w", err)
	}
	var h HistoryColumns
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse history columns %s: %w", path, err)
	}
	return &h, nil
}

// For returns the columns of a stage.
func (h *HistoryColumns) For(stage run.Stage) run.StageColumns {
	switch stage {
	case run.StageInitials:
		return h.Initials
	case run.StageFinals:
		return h.Finals
	case run.StageCoreCollapse:
		return h.CoreCollapse
	case run.StageXRB:
		return h.XRB
	case run.StageCE:
		return h.CE
	default:
		return run.StageColumns{}
	}
}

// CheckColumns reports every tracked stage whose column list names neither
// star nor binary columns.
func (c *Config) CheckColumns(h *HistoryColumns) error {
	var result *multierror.Error
	for _, stage := range c.TrackedStages() {
		if h.For(stage).Empty() {
			result = multierror.Append(result, fmt.Errorf("stage %s: %w", stage, run.ErrNoColumns))
		}
	}
	return result.ErrorOrNil()
}
