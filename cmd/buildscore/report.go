package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/evaluation"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/score"
)

type slotReport struct {
	SubjectID string          `json:"subjectId"`
	Slot      int             `json:"slot"`
	Levels    map[int]float64 `json:"levels,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type report struct {
	Slots      []slotReport      `json:"slots"`
	Build      score.BuildScore  `json:"build"`
	Evaluation evaluation.Result `json:"evaluation"`
}

func (r report) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)

	fmt.Fprint(tw, "subject\tslot\t")
	for lvl := 1; lvl <= effect.MaxLevel; lvl++ {
		fmt.Fprintf(tw, "Lv%d\t", lvl)
	}
	fmt.Fprintln(tw)
	for _, s := range r.Slots {
		fmt.Fprintf(tw, "%s\t%d\t", s.SubjectID, s.Slot)
		if s.Error != "" {
			fmt.Fprintf(tw, "error: %s\t\n", s.Error)
			continue
		}
		for lvl := 1; lvl <= effect.MaxLevel; lvl++ {
			fmt.Fprintf(tw, "%.2f%%\t", s.Levels[lvl])
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nbuild score: %.2f%% (%d scored", r.Build.Total, len(r.Build.Scored))
	if n := len(r.Build.Unscored); n > 0 {
		fmt.Fprintf(w, ", %d unscored", n)
	}
	fmt.Fprintln(w, ")")
	for _, u := range r.Build.Unscored {
		fmt.Fprintf(w, "  unscored: %s slot %d Lv%d\n", u.SubjectID, u.Slot, u.Level)
	}

	e := r.Evaluation
	_, err := fmt.Fprintf(w,
		"evaluation: %.1f [%s] depth %.1f, max level %.1f, breadth %.1f, coverage %.1f, equipment %.1f\n",
		e.Total, e.Grade, e.TalentDepth, e.MaxLevel, e.TalentBreadth, e.TeamCoverage, e.Equipment)
	return err
}
