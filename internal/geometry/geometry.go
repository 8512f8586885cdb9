// Package geometry is the capability layer the matcher talks to: bounding
// boxes, opaque shapes, and the five polygon operations, each returning an
// explicit error outcome instead of panicking.
package geometry

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Intersects reports whether the two boxes share at least one point.
// Touching edges count as intersecting.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX &&
		b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Valid reports whether the box has finite, ordered corners.
func (b Bounds) Valid() bool {
	for _, v := range []float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g %g, %g %g]", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Shape is an immutable polygon known to an Engine.
type Shape interface {
	Bounds() Bounds
}

// Engine exposes the polygon operations used for scoring and fallback.
// Every operation reports failure through its error; callers branch on it.
type Engine interface {
	Area(s Shape) (float64, error)
	IntersectionArea(a, b Shape) (float64, error)
	Distance(a, b Shape) (float64, error)
	Contains(a, b Shape) (bool, error)
	Overlaps(a, b Shape) (bool, error)
}

// Builder turns decoded go-geom geometries into engine shapes.
type Builder interface {
	FromGeom(g geom.T) (Shape, error)
	FromWKB(wkb []byte) (Shape, error)
}

// Index answers bounding-box range queries over one polygon set.
type Index interface {
	// Query returns the ids whose bounding box intersects b, in the order
	// the ids were inserted.
	Query(b Bounds) []string
	Len() int
}

// OpError is returned when a geometry operation fails on its inputs, for
// example a topology exception on an invalid polygon.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return "geometry: " + e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}
