package score

import (
	"context"
	"fmt"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/cache"
)

// Selection is one talent pick of a build.
type Selection struct {
	SubjectID string `json:"subjectId" yaml:"subject"`
	Slot      int    `json:"slot" yaml:"slot"`
	Level     int    `json:"level" yaml:"level"`
}

func (s Selection) key() cache.Key {
	return cache.Key{Namespace: cache.NamespaceScore, SubjectID: s.SubjectID, Slot: s.Slot, Level: s.Level}
}

// Contribution is a selection together with its cached score.
type Contribution struct {
	Selection
	Percent float64 `json:"percent"`
}

// BuildScore is the sum of the cached scores of a build.
// Unscored selections had no cached score and count as 0 in Total.
type BuildScore struct {
	Total    float64        `json:"total"`
	Scored   []Contribution `json:"scored"`
	Unscored []Selection    `json:"unscored"`
}

// Complete reports whether every selection had a score.
func (b BuildScore) Complete() bool { return len(b.Unscored) == 0 }

// BuildScore sums cached scores for selections. It never extracts; call
// Prefetch first to populate the slots of a build.
func (s *Service) BuildScore(ctx context.Context, selections []Selection) (BuildScore, error) {
	out := BuildScore{Scored: []Contribution{}, Unscored: []Selection{}}
	for _, sel := range selections {
		pct, ok, err := s.scores.Get(ctx, sel.key())
		if err != nil {
			return BuildScore{}, fmt.Errorf("reading score %s: %w", sel.key(), err)
		}
		if !ok {
			out.Unscored = append(out.Unscored, sel)
			continue
		}
		out.Scored = append(out.Scored, Contribution{Selection: sel, Percent: pct})
		out.Total += pct
	}
	return out, nil
}

// Keys returns the slot keys to prefetch for selections.
func Keys(selections []Selection) []cache.Key {
	keys := make([]cache.Key, 0, len(selections))
	for _, sel := range selections {
		keys = append(keys, cache.TalentKey(sel.SubjectID, sel.Slot))
	}
	return keys
}
