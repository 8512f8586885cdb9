package match

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/blockassign/internal/geometry"
	"github.com/sells-group/blockassign/internal/shapes"
)

var errFake = errors.New("fake topology exception")

// rect is an axis-aligned rectangle. The fail flags make the matching
// engine operations return an error.
type rect struct {
	b        geometry.Bounds
	failArea bool
	failPred bool
	failDist bool
}

func (r *rect) Bounds() geometry.Bounds { return r.b }

func box(minX, minY, maxX, maxY float64) *rect {
	return &rect{b: geometry.Bounds{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}}
}

// rectEngine computes exact results for rectangles.
type rectEngine struct{}

func (rectEngine) Area(s geometry.Shape) (float64, error) {
	r := s.(*rect)
	if r.failArea {
		return 0, &geometry.OpError{Op: "area", Err: errFake}
	}
	return (r.b.MaxX - r.b.MinX) * (r.b.MaxY - r.b.MinY), nil
}

func (rectEngine) IntersectionArea(a, b geometry.Shape) (float64, error) {
	ra, rb := a.(*rect), b.(*rect)
	if ra.failArea || rb.failArea {
		return 0, &geometry.OpError{Op: "intersection", Err: errFake}
	}
	w := math.Min(ra.b.MaxX, rb.b.MaxX) - math.Max(ra.b.MinX, rb.b.MinX)
	h := math.Min(ra.b.MaxY, rb.b.MaxY) - math.Max(ra.b.MinY, rb.b.MinY)
	if w <= 0 || h <= 0 {
		return 0, nil
	}
	return w * h, nil
}

func (rectEngine) Distance(a, b geometry.Shape) (float64, error) {
	ra, rb := a.(*rect), b.(*rect)
	if ra.failDist || rb.failDist {
		return 0, &geometry.OpError{Op: "distance", Err: errFake}
	}
	dx := math.Max(0, math.Max(ra.b.MinX-rb.b.MaxX, rb.b.MinX-ra.b.MaxX))
	dy := math.Max(0, math.Max(ra.b.MinY-rb.b.MaxY, rb.b.MinY-ra.b.MaxY))
	return math.Hypot(dx, dy), nil
}

func (rectEngine) Contains(a, b geometry.Shape) (bool, error) {
	ra, rb := a.(*rect), b.(*rect)
	if ra.failPred || rb.failPred {
		return false, &geometry.OpError{Op: "contains", Err: errFake}
	}
	return ra.b.MinX <= rb.b.MinX && ra.b.MinY <= rb.b.MinY &&
		ra.b.MaxX >= rb.b.MaxX && ra.b.MaxY >= rb.b.MaxY, nil
}

func (rectEngine) Overlaps(a, b geometry.Shape) (bool, error) {
	ra, rb := a.(*rect), b.(*rect)
	if ra.failPred || rb.failPred {
		return false, &geometry.OpError{Op: "overlaps", Err: errFake}
	}
	inter, _ := rectEngine{}.IntersectionArea(&rect{b: ra.b}, &rect{b: rb.b})
	contains, _ := rectEngine{}.Contains(&rect{b: ra.b}, &rect{b: rb.b})
	within, _ := rectEngine{}.Contains(&rect{b: rb.b}, &rect{b: ra.b})
	return inter > 0 && !contains && !within, nil
}

// scanIndex is a linear bounding-box index.
type scanIndex struct {
	ids    []string
	bounds []geometry.Bounds
}

func newScanIndex(set *shapes.Set) *scanIndex {
	x := &scanIndex{}
	for _, f := range set.Features() {
		x.ids = append(x.ids, f.ID)
		x.bounds = append(x.bounds, f.Shape.Bounds())
	}
	return x
}

func (x *scanIndex) Query(b geometry.Bounds) []string {
	var out []string
	for i, bb := range x.bounds {
		if bb.Intersects(b) {
			out = append(out, x.ids[i])
		}
	}
	return out
}

func (x *scanIndex) Len() int { return len(x.ids) }

type feat struct {
	id     string
	region string
	shape  *rect
}

func newSet(t *testing.T, feats ...feat) *shapes.Set {
	t.Helper()
	s := shapes.NewSet(len(feats))
	for _, f := range feats {
		require.NoError(t, s.Add(shapes.Feature{ID: f.id, Region: f.region, Shape: f.shape}))
	}
	return s
}

// regionTable is a map-backed RegionLookup.
type regionTable map[string]string

func (r regionTable) Lookup(code string) (string, bool) {
	v, ok := r[code]
	return v, ok
}

// validatingEngine reports every shape with failPred set as invalid.
type validatingEngine struct{ rectEngine }

func (validatingEngine) Valid(s geometry.Shape) (bool, string) {
	if s.(*rect).failPred {
		return false, "Self-intersection[3 3]"
	}
	return true, ""
}
