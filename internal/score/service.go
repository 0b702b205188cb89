// Package score turns talent text into cached per-level scores and sums the
// scores of a build.
//
// Extraction runs at most once per (subject, slot) within the talent TTL.
// Each level's descriptors then go through the simulator and the resulting
// increase rate is cached under (subject, slot, level).
package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/cache"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/catalog"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/extract"
	"github.com/WakuwakuP/stellasora-tools-sub001/internal/sim"
)

// Defaults for Config.
const (
	DefaultTalentTTL       = 30 * 24 * time.Hour
	DefaultMaxParallel     = 4
	DefaultPopulateTimeout = 2 * time.Minute
)

var tracer = otel.Tracer("github.com/WakuwakuP/stellasora-tools-sub001/internal/score")

// Config tunes a Service.
type Config struct {
	TalentTTL   time.Duration // lifetime of extraction results and derived scores
	MaxParallel int           // concurrent extractions in Prefetch

	// PopulateTimeout bounds one shared population. It outlives the caller
	// that started it, so canceling that caller does not fail the others.
	PopulateTimeout time.Duration
}

// talentEntry is the cached extraction result for one slot.
type talentEntry struct {
	Fingerprint string              `json:"fingerprint"`
	Descriptors []effect.Descriptor `json:"descriptors"`
}

// Service is safe for concurrent use.
type Service struct {
	talents   cache.Typed[talentEntry]
	scores    cache.Typed[float64]
	catalog   catalog.Source
	extractor extract.Extractor
	sim       *sim.Simulator
	cfg       Config

	flight singleflight.Group
}

// NewService wires a Service. Zero Config fields take the package defaults.
func NewService(store cache.Store, src catalog.Source, ex extract.Extractor, simulator *sim.Simulator, cfg Config) *Service {
	if cfg.TalentTTL <= 0 {
		cfg.TalentTTL = DefaultTalentTTL
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}
	if cfg.PopulateTimeout <= 0 {
		cfg.PopulateTimeout = DefaultPopulateTimeout
	}
	return &Service{
		talents:   cache.NewTyped[talentEntry](store, cfg.TalentTTL),
		scores:    cache.NewTyped[float64](store, cfg.TalentTTL),
		catalog:   src,
		extractor: ex,
		sim:       simulator,
		cfg:       cfg,
	}
}

// ScoresForSlot returns the increase rate of each level 1..6 of a talent slot.
// The first call extracts and simulates; later calls are served from cache
// until the entry expires or the talent text changes.
func (s *Service) ScoresForSlot(ctx context.Context, subjectID string, slot int) (map[int]float64, error) {
	key := cache.TalentKey(subjectID, slot)
	ctx, span := tracer.Start(ctx, "score.ScoresForSlot", trace.WithAttributes(
		attribute.String("score.key", key.String()),
	))
	defer span.End()

	// The shared work keeps ctx values and the span but not its cancellation.
	// Each caller stops waiting when its own ctx is done.
	ch := s.flight.DoChan(key.String(), func() (any, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PopulateTimeout)
		defer cancel()
		return s.populate(pctx, key)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		span.SetStatus(codes.Error, "caller canceled")
		return nil, ctx.Err()
	}
	span.SetAttributes(attribute.Bool("score.shared", res.Shared))
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "populate failed")
		return nil, res.Err
	}

	// Each caller gets its own copy of the shared result.
	src := res.Val.(map[int]float64)
	out := make(map[int]float64, len(src))
	for lvl, pct := range src {
		out[lvl] = pct
	}
	return out, nil
}

func (s *Service) populate(ctx context.Context, key cache.Key) (map[int]float64, error) {
	req, err := s.request(ctx, key)
	if err != nil {
		return nil, err
	}
	fp := req.Fingerprint()

	entry, ok := s.cachedEntry(ctx, key, fp)
	if ok {
		if scores, ok := s.cachedScores(ctx, key); ok {
			slog.Debug("slot scores served from cache", "key", key.String())
			return scores, nil
		}
	} else {
		descs, err := s.extractor.Extract(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", key, err)
		}
		entry = talentEntry{Fingerprint: fp, Descriptors: descs}
		if err := s.talents.Set(ctx, key, entry); err != nil {
			slog.Warn("talent cache write failed", "key", key.String(), "err", err)
		}
		slog.Debug("talent extracted", "key", key.String(), "effects", len(descs))
	}

	scores := s.simulateLevels(entry.Descriptors)
	for lvl, pct := range scores {
		if err := s.scores.Set(ctx, scoreKey(key, lvl), pct); err != nil {
			slog.Warn("score cache write failed", "key", scoreKey(key, lvl).String(), "err", err)
		}
	}
	return scores, nil
}

func (s *Service) request(ctx context.Context, key cache.Key) (extract.Request, error) {
	subject, talent, err := catalog.TalentOf(ctx, s.catalog, key.SubjectID, key.Slot)
	if err != nil {
		return extract.Request{}, fmt.Errorf("looking up %s: %w", key, err)
	}
	return extract.Request{
		DescriptionText: talent.Description,
		Params:          talent.Params,
		Subject:         &extract.SubjectContext{Name: subject.Name, ElementTag: subject.Element},
	}, nil
}

// cachedEntry returns the cached extraction for key if its fingerprint matches
// fp. A stale entry is dropped together with its scores.
func (s *Service) cachedEntry(ctx context.Context, key cache.Key, fp string) (talentEntry, bool) {
	entry, ok, err := s.talents.Get(ctx, key)
	if err != nil {
		slog.Warn("talent cache read failed", "key", key.String(), "err", err)
		return talentEntry{}, false
	}
	if !ok {
		return talentEntry{}, false
	}
	if entry.Fingerprint != fp {
		slog.Info("talent text changed, dropping cached extraction", "key", key.String())
		if err := s.invalidate(ctx, key); err != nil {
			slog.Warn("talent cache invalidate failed", "key", key.String(), "err", err)
		}
		return talentEntry{}, false
	}
	return entry, true
}

func (s *Service) cachedScores(ctx context.Context, key cache.Key) (map[int]float64, bool) {
	scores := make(map[int]float64, effect.MaxLevel)
	for lvl := 1; lvl <= effect.MaxLevel; lvl++ {
		pct, ok, err := s.scores.Get(ctx, scoreKey(key, lvl))
		if err != nil || !ok {
			return nil, false
		}
		scores[lvl] = pct
	}
	return scores, true
}

func (s *Service) simulateLevels(descs []effect.Descriptor) map[int]float64 {
	byLevel := effect.ByLevel(descs)
	scores := make(map[int]float64, effect.MaxLevel)
	for lvl := 1; lvl <= effect.MaxLevel; lvl++ {
		scores[lvl] = s.sim.SimulateLevel(byLevel[lvl]).IncreaseRatePercent
	}
	return scores
}

// Prefetch populates every key concurrently, at most MaxParallel at a time.
// A failing key does not stop the others. The returned map holds the error of
// each failed key and is empty when all succeeded.
func (s *Service) Prefetch(ctx context.Context, keys []cache.Key) map[cache.Key]error {
	var (
		mu     sync.Mutex
		failed = make(map[cache.Key]error)
		g      errgroup.Group
	)
	g.SetLimit(s.cfg.MaxParallel)

	seen := make(map[cache.Key]struct{}, len(keys))
	for _, k := range keys {
		k = cache.TalentKey(k.SubjectID, k.Slot)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		g.Go(func() error {
			if _, err := s.ScoresForSlot(ctx, k.SubjectID, k.Slot); err != nil {
				slog.Warn("prefetch failed", "key", k.String(), "err", err)
				mu.Lock()
				failed[k] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

// Invalidate drops the cached extraction and scores of a slot.
func (s *Service) Invalidate(ctx context.Context, subjectID string, slot int) error {
	return s.invalidate(ctx, cache.TalentKey(subjectID, slot))
}

func (s *Service) invalidate(ctx context.Context, key cache.Key) error {
	errs := []error{s.talents.Invalidate(ctx, key)}
	for lvl := 1; lvl <= effect.MaxLevel; lvl++ {
		errs = append(errs, s.scores.Invalidate(ctx, scoreKey(key, lvl)))
	}
	return errors.Join(errs...)
}

func scoreKey(key cache.Key, level int) cache.Key {
	k := key.In(cache.NamespaceScore)
	k.Level = level
	return k
}
