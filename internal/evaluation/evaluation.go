// Package evaluation rates a build from its composition alone: how deep and
// broad its talent picks are, how many characters it covers and how much
// equipment it carries. It never looks at simulated scores.
package evaluation

import (
	"fmt"
	"math"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/score"
)

// Reference sizes of a full build.
const (
	FullTalentPicks    = 12
	FullTeam           = 3
	FullEquipmentSlots = 6
)

// Build is the composition being rated.
type Build struct {
	Picks     []score.Selection
	Equipment []string
}

// Weights of the sub-scores in the total. They need not sum to 1; the total
// is normalized by their sum.
type Weights struct {
	TalentDepth   float64 `yaml:"talent_depth" json:"talentDepth"`
	MaxLevel      float64 `yaml:"max_level" json:"maxLevel"`
	TalentBreadth float64 `yaml:"talent_breadth" json:"talentBreadth"`
	TeamCoverage  float64 `yaml:"team_coverage" json:"teamCoverage"`
	Equipment     float64 `yaml:"equipment" json:"equipment"`
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{TalentDepth: 0.30, MaxLevel: 0.15, TalentBreadth: 0.20, TeamCoverage: 0.15, Equipment: 0.20}
}

func (w Weights) sum() float64 {
	return w.TalentDepth + w.MaxLevel + w.TalentBreadth + w.TeamCoverage + w.Equipment
}

// Validate rejects negative weights and an all-zero weighting.
func (w Weights) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"talent_depth", w.TalentDepth}, {"max_level", w.MaxLevel}, {"talent_breadth", w.TalentBreadth},
		{"team_coverage", w.TeamCoverage}, {"equipment", w.Equipment},
	}
	for _, f := range fields {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("evaluation weight %s must be a non-negative number, got %v", f.name, f.v)
		}
	}
	if w.sum() == 0 {
		return fmt.Errorf("evaluation weights must not all be zero")
	}
	return nil
}

// Grade is a letter band over Result.Total.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// GradeOf maps a 0..100 total to its band.
func GradeOf(total float64) Grade {
	switch {
	case total >= 90:
		return GradeS
	case total >= 75:
		return GradeA
	case total >= 60:
		return GradeB
	case total >= 40:
		return GradeC
	default:
		return GradeD
	}
}

// Result holds the sub-scores, each in 0..100, and their weighted total.
type Result struct {
	TalentDepth   float64 `json:"talentDepth"`
	MaxLevel      float64 `json:"maxLevel"`
	TalentBreadth float64 `json:"talentBreadth"`
	TeamCoverage  float64 `json:"teamCoverage"`
	Equipment     float64 `json:"equipment"`
	Total         float64 `json:"total"`
	Grade         Grade   `json:"grade"`
}

// Evaluate rates b. Zero weights fall back to DefaultWeights.
func Evaluate(b Build, w Weights) Result {
	if w.sum() <= 0 {
		w = DefaultWeights()
	}

	type pick struct {
		subject string
		slot    int
	}
	var (
		levels   int
		maxed    int
		distinct = make(map[pick]struct{})
		subjects = make(map[string]struct{})
	)
	for _, p := range b.Picks {
		lvl := min(max(p.Level, 0), effect.MaxLevel)
		levels += lvl
		if lvl == effect.MaxLevel {
			maxed++
		}
		distinct[pick{p.SubjectID, p.Slot}] = struct{}{}
		subjects[p.SubjectID] = struct{}{}
	}

	var r Result
	if n := len(b.Picks); n > 0 {
		r.TalentDepth = percent(float64(levels) / float64(n*effect.MaxLevel))
		r.MaxLevel = percent(float64(maxed) / float64(n))
	}
	r.TalentBreadth = percent(float64(len(distinct)) / FullTalentPicks)
	r.TeamCoverage = percent(float64(len(subjects)) / FullTeam)
	r.Equipment = percent(float64(len(b.Equipment)) / FullEquipmentSlots)

	r.Total = (r.TalentDepth*w.TalentDepth +
		r.MaxLevel*w.MaxLevel +
		r.TalentBreadth*w.TalentBreadth +
		r.TeamCoverage*w.TeamCoverage +
		r.Equipment*w.Equipment) / w.sum()
	r.Grade = GradeOf(r.Total)
	return r
}

func percent(ratio float64) float64 {
	return math.Min(ratio, 1) * 100
}
