package match

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/blockassign/internal/geometry"
	"github.com/sells-group/blockassign/internal/shapes"
)

// Options configures a Matcher.
type Options struct {
	Workers       int      // concurrent source scorers; <= 0 means 1
	DerivePrefix  int      // see ResolveOptions.DerivePrefix
	ProgressEvery int      // log progress every N sources
	Fallback      Fallback // nil means NoFallback
}

// Result is the outcome of a run.
type Result struct {
	Assignments *Assignments
	Overlaps    *OverlapMap
	Seen        SeenSet
	Stats       Stats
	Fallback    string
}

// Matcher runs both passes over a source and a target set.
type Matcher struct {
	engine geometry.Engine
	opts   Options
	log    *zap.Logger
}

// New returns a Matcher.
func New(engine geometry.Engine, opts Options) *Matcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Fallback == nil {
		opts.Fallback = NoFallback{}
	}
	return &Matcher{
		engine: engine,
		opts:   opts,
		log:    zap.L().With(zap.String("component", "match.matcher")),
	}
}

// Run scores every source against its candidates from index, resolves each
// target and runs the fallback. index must cover exactly the targets set.
// Only context cancellation makes Run fail midway; geometry failures are
// counted in Stats.Dropped.
func (m *Matcher) Run(ctx context.Context, sources, targets *shapes.Set, index geometry.Index) (*Result, error) {
	start := time.Now()
	m.log.Info("matching started",
		zap.Int("sources", sources.Len()),
		zap.Int("targets", targets.Len()),
		zap.Int("workers", m.opts.Workers),
		zap.String("fallback", m.opts.Fallback.Name()),
	)

	slots, candidates, err := m.score(ctx, sources, targets, index)
	if err != nil {
		return nil, err
	}

	overlaps := NewOverlapMap(targets.IDs())
	seen := make(SeenSet)
	var dropped int
	for i, slot := range slots {
		dropped += slot.Dropped
		for _, p := range slot.Pairs {
			if overlaps.Append(p.TargetID, p.Record) {
				seen[sources.At(i).ID] = struct{}{}
			}
		}
	}

	assignments, stats := Resolve(overlaps, ResolveOptions{DerivePrefix: m.opts.DerivePrefix, Seen: seen})
	stats.Sources = sources.Len()
	stats.Candidates = candidates
	stats.Dropped = dropped

	if stats.Unresolved > 0 {
		filled, err := m.opts.Fallback.Resolve(ctx, assignments, targets)
		if err != nil {
			return nil, eris.Wrapf(err, "match: fallback %s", m.opts.Fallback.Name())
		}
		stats.Phase2 = filled
		stats.Unresolved -= filled
	}

	m.log.Info("matching complete",
		zap.Int("total", stats.Total),
		zap.Int("candidates", stats.Candidates),
		zap.Int("split", stats.Split),
		zap.Int("bbox_only", stats.BBoxOnly),
		zap.Int("derived", stats.Derived),
		zap.Int("phase2", stats.Phase2),
		zap.Int("dropped", stats.Dropped),
		zap.Int("unresolved", stats.Unresolved),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		Assignments: assignments,
		Overlaps:    overlaps,
		Seen:        seen,
		Stats:       stats,
		Fallback:    m.opts.Fallback.Name(),
	}, nil
}

// score fills one slot per source. Workers write only their own slot, so the
// merge in Run sees the same order however many workers ran.
func (m *Matcher) score(ctx context.Context, sources, targets *shapes.Set, index geometry.Index) ([]Scored, int, error) {
	finder := NewFinder(index)
	scorer := NewScorer(m.engine)
	prog := newProgress(sources.Len(), m.opts.ProgressEvery, m.log)

	slots := make([]Scored, sources.Len())
	counts := make([]int, sources.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)

	for i, src := range sources.Features() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cands := finder.Candidates(src.Shape)
			counts[i] = len(cands)
			slots[i] = scorer.Score(src, cands, targets)
			prog.increment()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, eris.Wrap(err, "match: scoring canceled")
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, eris.Wrap(err, "match: scoring canceled")
	}

	var total int
	for _, c := range counts {
		total += c
	}
	return slots, total, nil
}
