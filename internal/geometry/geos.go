package geometry

import (
	"fmt"
	"math"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// GEOS is an Engine and Builder backed by libgeos. Calls are serialized on a
// single GEOS context.
type GEOS struct {
	mu  sync.Mutex
	ctx *geos.Context
}

// NewGEOS creates a GEOS engine with its own context.
func NewGEOS() *GEOS {
	return &GEOS{ctx: geos.NewContext()}
}

type geosShape struct {
	g      *geos.Geom
	bounds Bounds
}

func (s *geosShape) Bounds() Bounds { return s.bounds }

func (e *GEOS) newShape(g *geos.Geom) (Shape, error) {
	if g == nil {
		return nil, eris.New("geometry: nil geometry")
	}
	if g.IsEmpty() {
		return nil, eris.New("geometry: empty geometry")
	}
	switch g.TypeID() {
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
	default:
		return nil, eris.Errorf("geometry: unsupported geometry type %s", g.Type())
	}
	box := g.Bounds()
	return &geosShape{
		g:      g,
		bounds: Bounds{MinX: box.MinX, MinY: box.MinY, MaxX: box.MaxX, MaxY: box.MaxY},
	}, nil
}

// FromGeom converts a go-geom Polygon or MultiPolygon via WKB.
func (e *GEOS) FromGeom(g geom.T) (Shape, error) {
	if g == nil {
		return nil, eris.New("geometry: nil geometry")
	}
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: encode WKB")
	}
	return e.FromWKB(data)
}

// FromWKB parses (E)WKB bytes, as produced by ST_AsBinary or go-geom.
func (e *GEOS) FromWKB(data []byte) (Shape, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.ctx.NewGeomFromWKB(data)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: parse WKB")
	}
	return e.newShape(g)
}

// FromWKT parses well-known text.
func (e *GEOS) FromWKT(wkt string) (Shape, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.ctx.NewGeomFromWKT(wkt)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: parse WKT")
	}
	return e.newShape(g)
}

// Area returns the planar area of s in squared coordinate units.
func (e *GEOS) Area(s Shape) (area float64, err error) {
	g, err := e.unwrap("area", s)
	if err != nil {
		return 0, err
	}
	err = e.guard("area", func() {
		area = g.Area()
	})
	if err == nil && (math.IsNaN(area) || math.IsInf(area, 0)) {
		err = &OpError{Op: "area", Err: eris.Errorf("non-finite area %v", area)}
	}
	return area, err
}

// IntersectionArea returns the area shared by a and b.
func (e *GEOS) IntersectionArea(a, b Shape) (area float64, err error) {
	ga, err := e.unwrap("intersection", a)
	if err != nil {
		return 0, err
	}
	gb, err := e.unwrap("intersection", b)
	if err != nil {
		return 0, err
	}
	err = e.guard("intersection", func() {
		inter := ga.Intersection(gb)
		defer inter.Destroy()
		area = inter.Area()
	})
	return area, err
}

// Distance returns the minimum planar distance between a and b; zero when
// they touch or overlap.
func (e *GEOS) Distance(a, b Shape) (dist float64, err error) {
	ga, err := e.unwrap("distance", a)
	if err != nil {
		return 0, err
	}
	gb, err := e.unwrap("distance", b)
	if err != nil {
		return 0, err
	}
	err = e.guard("distance", func() {
		dist = ga.Distance(gb)
	})
	return dist, err
}

// Contains reports whether a contains b.
func (e *GEOS) Contains(a, b Shape) (ok bool, err error) {
	ga, err := e.unwrap("contains", a)
	if err != nil {
		return false, err
	}
	gb, err := e.unwrap("contains", b)
	if err != nil {
		return false, err
	}
	err = e.guard("contains", func() {
		ok = ga.Contains(gb)
	})
	return ok, err
}

// Overlaps reports whether a and b overlap in the DE-9IM sense.
func (e *GEOS) Overlaps(a, b Shape) (ok bool, err error) {
	ga, err := e.unwrap("overlaps", a)
	if err != nil {
		return false, err
	}
	gb, err := e.unwrap("overlaps", b)
	if err != nil {
		return false, err
	}
	err = e.guard("overlaps", func() {
		ok = ga.Overlaps(gb)
	})
	return ok, err
}

// Valid reports whether s is a valid polygon and, if not, the GEOS reason.
func (e *GEOS) Valid(s Shape) (bool, string) {
	g, err := e.unwrap("valid", s)
	if err != nil {
		return false, err.Error()
	}
	var (
		valid  bool
		reason string
	)
	if err := e.guard("valid", func() {
		valid = g.IsValid()
		if !valid {
			reason = g.IsValidReason()
		}
	}); err != nil {
		return false, err.Error()
	}
	return valid, reason
}

func (e *GEOS) unwrap(op string, s Shape) (*geos.Geom, error) {
	gs, ok := s.(*geosShape)
	if !ok || gs == nil {
		return nil, &OpError{Op: op, Err: eris.Errorf("shape %T was not built by this engine", s)}
	}
	return gs.g, nil
}

// guard runs fn under the context lock, converting GEOS panics (raised by
// go-geos on library errors) into an *OpError.
func (e *GEOS) guard(op string, fn func()) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = &OpError{Op: op, Err: cause}
		}
	}()
	fn()
	return nil
}
