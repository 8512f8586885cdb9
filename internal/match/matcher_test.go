package match

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/blockassign/internal/shapes"
)

func run(t *testing.T, sources, targets *shapes.Set, opts Options) *Result {
	t.Helper()
	res, err := New(rectEngine{}, opts).Run(context.Background(), sources, targets, newScanIndex(targets))
	require.NoError(t, err)
	return res
}

func TestMatcher_SliverLosesToOverlap(t *testing.T) {
	sources := newSet(t,
		feat{id: "S1", shape: box(99, 99, 101, 100)},
		feat{id: "S2", shape: box(0, 10, 100, 100)},
	)
	targets := newSet(t,
		feat{id: "T", shape: box(0, 0, 100, 100)},
		feat{id: "U", shape: box(100, 0, 200, 100)},
	)

	res := run(t, sources, targets, Options{})

	recs := res.Overlaps.Records("T")
	require.Len(t, recs, 2)
	assert.Equal(t, BasisSliver, recs[0].Basis)
	assert.InDelta(t, 0.0001, recs[0].Score, 1e-12)
	assert.InDelta(t, 0.9, recs[1].Score, 1e-12)

	got, _ := res.Assignments.Get("T")
	assert.Equal(t, "S2", got.SourceID)

	got, _ = res.Assignments.Get("U")
	assert.Equal(t, "S1", got.SourceID, "positive sliver beats degenerate")

	assert.Equal(t, 2, res.Stats.Split)
	assert.Equal(t, 2, res.Stats.Sources)
	assert.Equal(t, 4, res.Stats.Candidates)
}

func TestMatcher_SingleCandidate(t *testing.T) {
	sources := newSet(t, feat{id: "S1", shape: box(0, 0, 10, 10)})
	targets := newSet(t,
		feat{id: "T1", shape: box(2, 2, 3, 3)},
		feat{id: "T2", shape: box(50, 50, 51, 51)},
	)

	res := run(t, sources, targets, Options{})

	assert.Equal(t, []Record{{SourceID: "S1", Score: 1, Basis: BasisSingle}}, res.Overlaps.Records("T1"))
	got, _ := res.Assignments.Get("T1")
	assert.Equal(t, Assignment{TargetID: "T1", SourceID: "S1", Score: 1, Method: MethodSingle}, got)

	got, _ = res.Assignments.Get("T2")
	assert.Empty(t, got.SourceID)
	assert.Equal(t, 1, res.Stats.Unresolved)
}

func TestMatcher_LoneDegenerateAssigned(t *testing.T) {
	sources := newSet(t, feat{id: "S1", shape: box(0, 0, 10, 10)})
	targets := newSet(t,
		feat{id: "inside", shape: box(1, 1, 2, 2)},
		feat{id: "edge", shape: box(10, 0, 20, 10)},
	)

	res := run(t, sources, targets, Options{})

	assert.Equal(t, []Record{{SourceID: "S1", Score: DegenerateScore, Basis: BasisDegenerate}}, res.Overlaps.Records("edge"))
	got, _ := res.Assignments.Get("edge")
	assert.Equal(t, "S1", got.SourceID)
	assert.Equal(t, MethodBBox, got.Method)
	assert.Equal(t, 1, res.Stats.BBoxOnly)
}

func TestMatcher_FallbackNearestInRegion(t *testing.T) {
	sources := newSet(t,
		feat{id: "S1", region: "MD", shape: box(0, 0, 10, 10)},
		feat{id: "S3", region: "AZ", shape: box(30, 0, 40, 10)},
		feat{id: "S4", region: "AZ", shape: box(90, 0, 100, 10)},
	)
	targets := newSet(t,
		feat{id: "240010001001000", shape: box(1, 1, 2, 2)},
		feat{id: "040010001001000", shape: box(50, 0, 51, 1)},
	)

	fb := &NearestInRegion{Sources: sources, Engine: rectEngine{}, Regions: states, CodeLength: 2}
	res := run(t, sources, targets, Options{Fallback: fb})

	got, _ := res.Assignments.Get("040010001001000")
	assert.Equal(t, Assignment{TargetID: "040010001001000", SourceID: "S3", Score: 0.5, Method: MethodNearest}, got)

	got, _ = res.Assignments.Get("240010001001000")
	assert.Equal(t, MethodSingle, got.Method, "pass one result untouched")

	assert.Equal(t, 1, res.Stats.Phase2)
	assert.Zero(t, res.Stats.Unresolved)
	assert.Equal(t, "nearest-in-region", res.Fallback)
}

func TestMatcher_NoFallbackLeavesEmpty(t *testing.T) {
	sources := newSet(t, feat{id: "S3", region: "AZ", shape: box(30, 0, 40, 10)})
	targets := newSet(t, feat{id: "040010001001000", shape: box(50, 0, 51, 1)})

	res := run(t, sources, targets, Options{})

	got, _ := res.Assignments.Get("040010001001000")
	assert.Empty(t, got.SourceID)
	assert.Equal(t, MethodUnassigned, got.Method)
	assert.Equal(t, "none", res.Fallback)
	assert.Equal(t, 1, res.Stats.Unresolved)
}

func TestMatcher_DerivePrefixUsesSeenSources(t *testing.T) {
	sources := newSet(t,
		feat{id: "2401", shape: box(0, 0, 10, 10)},
		feat{id: "2402", shape: box(100, 100, 110, 110)},
	)
	targets := newSet(t,
		feat{id: "2401001", shape: box(1, 1, 2, 2)},
		feat{id: "2401002", shape: box(50, 50, 51, 51)},
		feat{id: "2402001", shape: box(60, 60, 61, 61)},
	)

	res := run(t, sources, targets, Options{DerivePrefix: 4})

	assert.True(t, res.Seen.Has("2401"))
	assert.False(t, res.Seen.Has("2402"), "no candidates, not seen")

	got, _ := res.Assignments.Get("2401002")
	assert.Equal(t, "2401", got.SourceID)
	assert.Equal(t, MethodDerived, got.Method)

	got, _ = res.Assignments.Get("2402001")
	assert.Empty(t, got.SourceID)
	assert.Equal(t, 1, res.Stats.Derived)
}

func TestMatcher_DroppedPairsCounted(t *testing.T) {
	broken := box(20, 20, 21, 21)
	broken.failArea = true
	broken.failPred = true
	sources := newSet(t, feat{id: "S1", shape: box(0, 0, 30, 30)})
	targets := newSet(t,
		feat{id: "ok", shape: box(1, 1, 2, 2)},
		feat{id: "broken", shape: broken},
	)

	res := run(t, sources, targets, Options{})
	assert.Equal(t, 1, res.Stats.Dropped)
	assert.Empty(t, res.Overlaps.Records("broken"))
	got, _ := res.Assignments.Get("ok")
	assert.Equal(t, "S1", got.SourceID)
}

// grid builds n*n unit targets and overlapping 3x3 sources on a diagonal
// offset so most targets are split between sources.
func grid(t *testing.T, n int) (*shapes.Set, *shapes.Set) {
	t.Helper()
	targets := shapes.NewSet(n * n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			id := fmt.Sprintf("24%03d%03d", y, x)
			require.NoError(t, targets.Add(shapes.Feature{ID: id, Shape: box(float64(x), float64(y), float64(x+1), float64(y+1))}))
		}
	}
	sources := shapes.NewSet(0)
	for y := 0; y < n; y += 2 {
		for x := 0; x < n; x += 2 {
			id := fmt.Sprintf("D%02d%02d", y, x)
			s := box(float64(x)+0.25, float64(y)+0.25, float64(x)+3.25, float64(y)+3.25)
			require.NoError(t, sources.Add(shapes.Feature{ID: id, Region: "MD", Shape: s}))
		}
	}
	return sources, targets
}

func TestMatcher_DeterministicAcrossWorkers(t *testing.T) {
	sources, targets := grid(t, 12)

	base := run(t, sources, targets, Options{Workers: 1})
	for _, workers := range []int{1, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got := run(t, sources, targets, Options{Workers: workers})
			assert.Equal(t, base.Assignments.Entries(), got.Assignments.Entries())
			assert.Equal(t, base.Stats, got.Stats)
			for _, id := range targets.IDs() {
				assert.Equal(t, base.Overlaps.Records(id), got.Overlaps.Records(id))
			}
		})
	}
}

func TestMatcher_OneEntryPerTarget(t *testing.T) {
	sources, targets := grid(t, 9)
	res := run(t, sources, targets, Options{Workers: 3})

	require.Equal(t, targets.Len(), res.Assignments.Len())
	for i, e := range res.Assignments.Entries() {
		assert.Equal(t, targets.At(i).ID, e.TargetID)
		if e.SourceID == "" {
			continue
		}
		found := false
		for _, r := range res.Overlaps.Records(e.TargetID) {
			if r.SourceID == e.SourceID {
				found = true
			}
			assert.True(t, r.Score == DegenerateScore || (r.Score >= 0 && r.Score <= 1))
		}
		assert.True(t, found, "target %s assigned to a source it has no record for", e.TargetID)
	}
}

func TestMatcher_Canceled(t *testing.T) {
	sources, targets := grid(t, 6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(rectEngine{}, Options{Workers: 2}).Run(ctx, sources, targets, newScanIndex(targets))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatcher_EmptySets(t *testing.T) {
	res := run(t, shapes.NewSet(0), shapes.NewSet(0), Options{})
	assert.Zero(t, res.Assignments.Len())
	assert.Equal(t, Stats{}, res.Stats)
}
