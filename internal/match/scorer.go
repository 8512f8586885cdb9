package match

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/blockassign/internal/geometry"
	"github.com/sells-group/blockassign/internal/shapes"
)

const (
	// SliverThreshold separates real overlaps from edge slivers.
	SliverThreshold = 0.001
	// DegenerateScore marks a candidate whose intersection area is zero.
	DegenerateScore = -1.0
	// SingleScore is recorded for a source with exactly one candidate.
	SingleScore = 1.0
	// ContainsScore and OverlapsScore are recorded when area computation
	// fails and a predicate succeeds instead.
	ContainsScore = 1.0
	OverlapsScore = 0.5
)

var errBadTargetArea = eris.New("target area is zero or not finite")

// Validator is implemented by engines that can explain why a shape is not a
// valid polygon. The scorer uses it to annotate dropped pairs.
type Validator interface {
	Valid(s geometry.Shape) (bool, string)
}

// Pair is a scored (target, record) candidate.
type Pair struct {
	TargetID string
	Record   Record
}

// Scored is the outcome of scoring one source against its candidates.
type Scored struct {
	Pairs   []Pair
	Dropped int
}

// Scorer turns candidate pairs into Records.
type Scorer struct {
	engine geometry.Engine
	log    *zap.Logger
}

// NewScorer returns a Scorer using engine for area and predicates.
func NewScorer(engine geometry.Engine) *Scorer {
	return &Scorer{
		engine: engine,
		log:    zap.L().With(zap.String("component", "match.scorer")),
	}
}

// Score records one Pair per candidate, in candidate order, except pairs
// where every geometry operation failed; those are counted in Dropped.
// Candidate ids missing from targets are dropped too.
func (s *Scorer) Score(source shapes.Feature, candidates []string, targets *shapes.Set) Scored {
	var out Scored
	if len(candidates) == 1 {
		out.Pairs = []Pair{{
			TargetID: candidates[0],
			Record:   Record{SourceID: source.ID, Score: SingleScore, Basis: BasisSingle},
		}}
		return out
	}

	out.Pairs = make([]Pair, 0, len(candidates))
	for _, id := range candidates {
		target, ok := targets.Get(id)
		if !ok {
			out.Dropped++
			continue
		}
		rec, ok := s.scorePair(source, target)
		if !ok {
			out.Dropped++
			continue
		}
		out.Pairs = append(out.Pairs, Pair{TargetID: id, Record: rec})
	}
	return out
}

func (s *Scorer) scorePair(source, target shapes.Feature) (Record, bool) {
	score, err := s.areaFraction(source.Shape, target.Shape)
	if err == nil {
		return classify(source.ID, score), true
	}

	s.log.Debug("area scoring failed, trying predicates",
		zap.String("source", source.ID),
		zap.String("target", target.ID),
		zap.Error(err),
	)

	if contains, cerr := s.engine.Contains(source.Shape, target.Shape); cerr == nil && contains {
		return Record{SourceID: source.ID, Score: ContainsScore, Basis: BasisContains}, true
	}
	if overlaps, oerr := s.engine.Overlaps(source.Shape, target.Shape); oerr == nil && overlaps {
		return Record{SourceID: source.ID, Score: OverlapsScore, Basis: BasisOverlaps}, true
	}

	fields := append([]zap.Field{
		zap.String("source", source.ID),
		zap.String("target", target.ID),
		zap.Error(err),
	}, s.invalidity(source, target)...)
	s.log.Warn("dropping candidate pair", fields...)
	return Record{}, false
}

// invalidity reports the validity reason of each invalid shape in the pair,
// when the engine can tell.
func (s *Scorer) invalidity(source, target shapes.Feature) []zap.Field {
	v, ok := s.engine.(Validator)
	if !ok {
		return nil
	}
	var fields []zap.Field
	if valid, reason := v.Valid(source.Shape); !valid {
		fields = append(fields, zap.String("source_invalid", reason))
	}
	if valid, reason := v.Valid(target.Shape); !valid {
		fields = append(fields, zap.String("target_invalid", reason))
	}
	return fields
}

// areaFraction is area(source intersect target) / area(target), clamped to 1.
func (s *Scorer) areaFraction(source, target geometry.Shape) (float64, error) {
	targetArea, err := s.engine.Area(target)
	if err != nil {
		return 0, err
	}
	if targetArea <= 0 || math.IsNaN(targetArea) || math.IsInf(targetArea, 0) {
		return 0, &geometry.OpError{Op: "area", Err: errBadTargetArea}
	}
	inter, err := s.engine.IntersectionArea(source, target)
	if err != nil {
		return 0, err
	}
	score := inter / targetArea
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0, &geometry.OpError{Op: "intersection", Err: eris.New("intersection area not finite")}
	}
	return min(score, 1), nil
}

func classify(sourceID string, score float64) Record {
	switch {
	case score > SliverThreshold:
		return Record{SourceID: sourceID, Score: score, Basis: BasisArea}
	case score > 0:
		return Record{SourceID: sourceID, Score: score, Basis: BasisSliver}
	default:
		return Record{SourceID: sourceID, Score: DegenerateScore, Basis: BasisDegenerate}
	}
}
