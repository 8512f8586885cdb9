package geometry

import (
	"slices"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geos"
)

// DefaultNodeCapacity is the STRtree node capacity used when none is given.
const DefaultNodeCapacity = 10

// STRIndex is a read-only GEOS STRtree over shape bounding boxes. Build it
// once with NewIndex; Query is safe for concurrent use.
type STRIndex struct {
	engine *GEOS
	tree   *geos.STRtree
	ids    []string
	bounds []Bounds
}

// NewIndex inserts every shape into a new STRtree. ids and shapes are
// parallel slices; both must have been produced by this engine.
func (e *GEOS) NewIndex(ids []string, shapes []Shape, nodeCapacity int) (*STRIndex, error) {
	if len(ids) != len(shapes) {
		return nil, eris.Errorf("geometry: index: %d ids for %d shapes", len(ids), len(shapes))
	}
	if nodeCapacity < 2 {
		nodeCapacity = DefaultNodeCapacity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := &STRIndex{
		engine: e,
		tree:   e.ctx.NewSTRtree(nodeCapacity),
		ids:    ids,
		bounds: make([]Bounds, len(shapes)),
	}
	for i, s := range shapes {
		gs, ok := s.(*geosShape)
		if !ok || gs == nil {
			return nil, eris.Errorf("geometry: index: shape %q was not built by this engine", ids[i])
		}
		idx.bounds[i] = gs.bounds
		if err := idx.tree.Insert(gs.g, i); err != nil {
			return nil, eris.Wrapf(err, "geometry: index: insert %q", ids[i])
		}
	}
	return idx, nil
}

// Len returns the number of indexed shapes.
func (x *STRIndex) Len() int { return len(x.ids) }

// Query returns the ids whose bounding box intersects b, in insertion order.
func (x *STRIndex) Query(b Bounds) []string {
	if !b.Valid() || len(x.ids) == 0 {
		return nil
	}

	e := x.engine
	e.mu.Lock()
	box := e.ctx.NewPolygon([][][]float64{{
		{b.MinX, b.MinY}, {b.MaxX, b.MinY}, {b.MaxX, b.MaxY}, {b.MinX, b.MaxY}, {b.MinX, b.MinY},
	}})
	var hits []int
	x.tree.Query(box, func(v any) {
		if i, ok := v.(int); ok {
			hits = append(hits, i)
		}
	})
	box.Destroy()
	e.mu.Unlock()

	// The tree may report envelope matches in any order; re-check the box and
	// restore insertion order so callers see a deterministic list.
	slices.Sort(hits)
	hits = slices.Compact(hits)
	out := make([]string, 0, len(hits))
	for _, i := range hits {
		if x.bounds[i].Intersects(b) {
			out = append(out, x.ids[i])
		}
	}
	return out
}

// Close releases the underlying tree.
func (x *STRIndex) Close() {
	x.engine.mu.Lock()
	defer x.engine.mu.Unlock()
	x.tree.Destroy()
}
