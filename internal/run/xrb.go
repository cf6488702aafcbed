package run

import (
	"fmt"
	"log/slog"

	"github.com/stevdb/stevdb/internal/mesa"
)

// Columns of the binary history needed to locate the XRB phase.
const (
	donorRadiusColumn  = "star_1_radius"
	rocheLobeColumn    = "rl_1"
	eccentricityColumn = "eccentricity"
)

// RelativeOverflow returns (R - RL(1-e)) / (RL(1-e)), the Roche-lobe
// overflow of a star relative to its periastron lobe. ok is false when
// the lobe radius is not positive.
func RelativeOverflow(radius, rocheLobe, ecc float64) (float64, bool) {
	rl := rocheLobe * (1 - ecc)
	if rl <= 0 {
		return 0, false
	}
	return (radius - rl) / rl, true
}

// XRBPhase extracts the rows of the binary history where star 1 fills its
// Roche lobe and feeds the companion. Each requested column becomes a
// Series over those rows, keyed by model_number.
//
// Star columns are read from the star 1 history at the same model
// numbers; a column not available at every phase row is left out.
func (r *Record) XRBPhase(cols StageColumns) (XRBPhase, error) {
	if cols.Empty() {
		return XRBPhase{}, fmt.Errorf("xrb phase: %w", ErrNoColumns)
	}
	if r.binary == nil {
		return XRBPhase{}, fmt.Errorf("xrb phase of %s: %w", r.Name, ErrNoOutput)
	}

	radius, err := r.binary.Get(donorRadiusColumn)
	if err != nil {
		return XRBPhase{}, fmt.Errorf("xrb phase: %w", err)
	}
	lobe, err := r.binary.Get(rocheLobeColumn)
	if err != nil {
		return XRBPhase{}, fmt.Errorf("xrb phase: %w", err)
	}
	ecc, err := r.binary.Get(eccentricityColumn)
	if err != nil {
		return XRBPhase{}, fmt.Errorf("xrb phase: %w", err)
	}
	steps, err := r.binary.Get(mesa.StepColumn)
	if err != nil {
		return XRBPhase{}, fmt.Errorf("xrb phase: %w", err)
	}

	var idx []int
	for i := range radius {
		if rel, ok := RelativeOverflow(radius[i], lobe[i], ecc[i]); ok && rel >= 0 {
			idx = append(idx, i)
		}
	}

	row := Row{}
	row.Set(ModelIDColumn, Int(r.ID))
	row.Set(mesa.StepColumn, pick(steps, idx))

	for _, name := range cols.Binary {
		values, err := r.binary.Get(name)
		if err != nil {
			slog.Debug("xrb column not found", "model", r.Name, "column", name, "source", "binary")
			continue
		}
		row.Set(name, pick(values, idx))
	}

	if r.star1 != nil && len(cols.Star) > 0 {
		starIdx, ok := alignSteps(r.star1, steps, idx)
		if !ok {
			slog.Debug("star1 history does not cover xrb phase", "model", r.Name)
		} else {
			for _, name := range cols.Star {
				values, err := r.star1.Get(name)
				if err != nil {
					slog.Debug("xrb column not found", "model", r.Name, "column", name, "source", "star1")
					continue
				}
				row.Set(name+"_1", pick(values, starIdx))
			}
		}
	}

	return XRBPhase{ModelID: r.ID, Columns: row, Rows: len(idx)}, nil
}

// alignSteps maps binary rows to star rows with equal model_number.
func alignSteps(star *mesa.Table, binarySteps []float64, idx []int) ([]int, bool) {
	starSteps, err := star.Get(mesa.StepColumn)
	if err != nil {
		return nil, false
	}
	pos := make(map[float64]int, len(starSteps))
	for i, s := range starSteps {
		pos[s] = i
	}
	out := make([]int, len(idx))
	for k, i := range idx {
		j, ok := pos[binarySteps[i]]
		if !ok {
			return nil, false
		}
		out[k] = j
	}
	return out, true
}

func pick(values []float64, idx []int) Series {
	out := make(Series, len(idx))
	for k, i := range idx {
		out[k] = values[i]
	}
	return out
}
