// Command effectsim runs descriptors from a YAML file through the simulator
// and prints the increase rate of each one alone and of all of them together.
//
// Usage:
//
//	effectsim [-config scorer.yaml] [-full-stacks] [-json] descriptors.yaml
//
// The file holds a list of descriptors, either at the top level or under
// "effects":
//
//	effects:
//	  - {name: Rally, kind: atk_increase, magnitude: 15}
//	  - {name: Surge, kind: damage_increase, magnitude: 30, duration_seconds: 10}
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/config"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/logger"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/sim"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

type effectResult struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Single   sim.Result `json:"single"`
	OneShot  sim.Result `json:"oneShot"`
	Level    int        `json:"level,omitempty"`
	Duration float64    `json:"durationSeconds"`
}

type simReport struct {
	Effects  []effectResult     `json:"effects"`
	Combined sim.Result         `json:"combined"`
	ByLevel  map[int]sim.Result `json:"byLevel,omitempty"`
}

func run(_ context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("effectsim", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file for the simulation section (default $"+config.PathEnv+")")
	fullStacks := fs.Bool("full-stacks", false, "start stackable effects at max stacks")
	asJSON := fs.Bool("json", false, "print results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: effectsim [-config file] [-full-stacks] [-json] descriptors.yaml")
	}

	cfg, err := config.Load(config.Path(*cfgPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	simCfg := cfg.Simulation.Sim()
	simCfg.FullStacks = simCfg.FullStacks || *fullStacks
	simulator, err := sim.New(simCfg)
	if err != nil {
		return err
	}

	descs, err := readDescriptors(fs.Arg(0))
	if err != nil {
		return err
	}
	rep := simulate(simulator, descs)

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return rep.writeText(stdout)
}

func readDescriptors(path string) ([]effect.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptors %s: %w", path, err)
	}

	var doc struct {
		Effects []effect.Descriptor `yaml:"effects"`
	}
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Effects) > 0 {
		return doc.Effects, nil
	}
	var list []effect.Descriptor
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing descriptors %s: %w", path, err)
	}
	return list, nil
}

func simulate(s *sim.Simulator, descs []effect.Descriptor) simReport {
	rep := simReport{Combined: s.SimulateMultiple(descs)}
	leveled := false
	for _, d := range descs {
		r := effectResult{
			Name:     d.Name(),
			Kind:     d.Kind().String(),
			Single:   s.SimulateSingle(d),
			OneShot:  s.SimulateMultiple([]effect.Descriptor{d}),
			Duration: d.DurationSeconds(),
		}
		if lvl, ok := d.Level(); ok {
			r.Level = lvl
			leveled = true
		}
		rep.Effects = append(rep.Effects, r)
	}
	if leveled {
		rep.ByLevel = make(map[int]sim.Result, effect.MaxLevel)
		for lvl, group := range effect.ByLevel(descs) {
			rep.ByLevel[lvl] = s.SimulateLevel(group)
		}
	}
	return rep
}

func (r simReport) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "effect\tkind\tlevel\tduration\trepeating\tone-shot")
	for _, e := range r.Effects {
		dur := "permanent"
		if e.Duration != effect.Permanent {
			dur = fmt.Sprintf("%gs", e.Duration)
		}
		lvl := "all"
		if e.Level > 0 {
			lvl = fmt.Sprint(e.Level)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%+.2f%%\t%+.2f%%\n",
			e.Name, e.Kind, lvl, dur, e.Single.IncreaseRatePercent, e.OneShot.IncreaseRatePercent)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for lvl := 1; lvl <= effect.MaxLevel; lvl++ {
		if res, ok := r.ByLevel[lvl]; ok {
			fmt.Fprintf(w, "Lv%d: %+.2f%%\n", lvl, res.IncreaseRatePercent)
		}
	}
	_, err := fmt.Fprintf(w, "combined: %+.2f%% (%.0f -> %.0f damage)\n",
		r.Combined.IncreaseRatePercent, r.Combined.BaseDamage, r.Combined.ActualDamage)
	return err
}
