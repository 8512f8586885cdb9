package match

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/blockassign/internal/geometry"
	"github.com/sells-group/blockassign/internal/shapes"
)

// Fallback fills targets left unassigned by pass one. Implementations must
// only write empty entries (Assignments.Fill enforces this) and return the
// number of entries written.
type Fallback interface {
	Name() string
	Resolve(ctx context.Context, a *Assignments, targets *shapes.Set) (int, error)
}

// NoFallback leaves unassigned targets empty.
type NoFallback struct{}

// Name implements Fallback.
func (NoFallback) Name() string { return "none" }

// Resolve implements Fallback.
func (NoFallback) Resolve(context.Context, *Assignments, *shapes.Set) (int, error) { return 0, nil }

// RegionLookup translates a region code cut from a target id (a state FIPS
// code) into the region tag carried by sources (a USPS abbreviation).
type RegionLookup interface {
	Lookup(code string) (string, bool)
}

// NearestScore is recorded for fallback assignments.
const NearestScore = 0.5

// NearestInRegion assigns an unassigned target to the nearest source in its
// region. The region code is targetID[CodeOffset : CodeOffset+CodeLength].
type NearestInRegion struct {
	Sources    *shapes.Set
	Engine     geometry.Engine
	Regions    RegionLookup
	CodeOffset int
	CodeLength int
}

// Name implements Fallback.
func (f *NearestInRegion) Name() string { return "nearest-in-region" }

// Resolve implements Fallback.
func (f *NearestInRegion) Resolve(ctx context.Context, a *Assignments, targets *shapes.Set) (int, error) {
	if f.CodeLength <= 0 || f.CodeOffset < 0 {
		return 0, eris.Errorf("match: invalid region code window [%d:+%d]", f.CodeOffset, f.CodeLength)
	}

	log := zap.L().With(zap.String("component", "match.fallback"))
	byRegion := make(map[string][]shapes.Feature)

	var filled int
	for _, id := range a.Unassigned() {
		if err := ctx.Err(); err != nil {
			return filled, eris.Wrap(err, "match: fallback canceled")
		}

		end := f.CodeOffset + f.CodeLength
		if len(id) < end {
			continue
		}
		tag, ok := f.Regions.Lookup(id[f.CodeOffset:end])
		if !ok {
			continue
		}
		target, ok := targets.Get(id)
		if !ok {
			continue
		}

		candidates, cached := byRegion[tag]
		if !cached {
			candidates = f.Sources.InRegion(tag)
			byRegion[tag] = candidates
		}

		best, bestDist := "", math.Inf(1)
		for _, src := range candidates {
			d, err := f.Engine.Distance(target.Shape, src.Shape)
			if err != nil {
				log.Debug("distance failed", zap.String("target", id), zap.String("source", src.ID), zap.Error(err))
				continue
			}
			if d < bestDist {
				best, bestDist = src.ID, d
			}
		}
		if best != "" && a.Fill(id, best, NearestScore, MethodNearest) {
			filled++
		}
	}

	return filled, nil
}
