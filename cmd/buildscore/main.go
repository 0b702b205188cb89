// Command buildscore scores a build: it extracts and simulates every selected
// talent slot (served from cache when possible), sums the selected levels and
// prints a simplified composition rating next to it.
//
// Usage:
//
//	buildscore -config scorer.yaml build.yaml
//	buildscore -json build.yaml
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
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/config"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/evaluation"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/logger"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/score"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/sim"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// buildFile is the YAML document describing a build.
type buildFile struct {
	Picks     []score.Selection `yaml:"picks"`
	Equipment []string          `yaml:"equipment"`
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("buildscore", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file (default $"+config.PathEnv+")")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: buildscore [-config file] [-json] build.yaml")
	}

	cfg, err := config.Load(config.Path(*cfgPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logCloser, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	defer logCloser.Close()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("configuring telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown failed", "err", err)
		}
	}()

	build, err := readBuild(fs.Arg(0))
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	src, err := openCatalog(cfg, store)
	if err != nil {
		return err
	}
	ex, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	simulator, err := sim.New(cfg.Simulation.Sim())
	if err != nil {
		return err
	}

	svc := score.NewService(store, src, ex, simulator, score.Config{
		TalentTTL:       cfg.Cache.TalentTTL,
		MaxParallel:     cfg.Extraction.MaxParallel,
		PopulateTimeout: 2 * cfg.Extraction.Timeout, // catalog fetch plus one extraction
	})

	rep, err := buildReport(ctx, svc, build, cfg.Evaluation)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return rep.writeText(stdout)
}

func readBuild(path string) (buildFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return buildFile{}, fmt.Errorf("reading build %s: %w", path, err)
	}
	var b buildFile
	if err := yaml.Unmarshal(data, &b); err != nil {
		return buildFile{}, fmt.Errorf("parsing build %s: %w", path, err)
	}
	if len(b.Picks) == 0 {
		return buildFile{}, fmt.Errorf("build %s selects no talents", path)
	}
	return b, nil
}

func buildReport(ctx context.Context, svc *score.Service, b buildFile, weights evaluation.Weights) (report, error) {
	keys := score.Keys(b.Picks)
	failed := svc.Prefetch(ctx, keys)
	if len(failed) > 0 {
		slog.Warn("some talent slots could not be scored", "failed", len(failed), "total", len(keys))
	}

	rep := report{}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k.String()] {
			continue
		}
		seen[k.String()] = true

		sr := slotReport{SubjectID: k.SubjectID, Slot: k.Slot}
		if err, bad := failed[k]; bad {
			sr.Error = err.Error()
		} else if levels, err := svc.ScoresForSlot(ctx, k.SubjectID, k.Slot); err != nil {
			sr.Error = err.Error()
		} else {
			sr.Levels = levels
		}
		rep.Slots = append(rep.Slots, sr)
	}

	bs, err := svc.BuildScore(ctx, b.Picks)
	if err != nil {
		return report{}, err
	}
	rep.Build = bs
	rep.Evaluation = evaluation.Evaluate(evaluation.Build{Picks: b.Picks, Equipment: b.Equipment}, weights)
	return rep, nil
}
