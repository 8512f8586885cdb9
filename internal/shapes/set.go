// Package shapes holds the immutable polygon sets matched against each other
// and the readers that load them from GeoJSON and PostGIS.
package shapes

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/blockassign/internal/geometry"
)

// Feature is one polygon with its id and optional region attribute
// (e.g. the state abbreviation of a district).
type Feature struct {
	ID     string
	Region string
	Shape  geometry.Shape
}

// Set is an ordered id -> Feature mapping. Iteration order is insertion
// order. A Set must not be modified once handed to the matcher.
type Set struct {
	features []Feature
	pos      map[string]int
}

// NewSet returns an empty set with room for n features.
func NewSet(n int) *Set {
	return &Set{
		features: make([]Feature, 0, n),
		pos:      make(map[string]int, n),
	}
}

// Add appends f. Empty and duplicate ids are rejected.
func (s *Set) Add(f Feature) error {
	f.ID = strings.TrimSpace(f.ID)
	if f.ID == "" {
		return eris.New("shapes: feature has empty id")
	}
	if f.Shape == nil {
		return eris.Errorf("shapes: feature %q has no geometry", f.ID)
	}
	if _, dup := s.pos[f.ID]; dup {
		return eris.Errorf("shapes: duplicate feature id %q", f.ID)
	}
	s.pos[f.ID] = len(s.features)
	s.features = append(s.features, f)
	return nil
}

// Len returns the number of features.
func (s *Set) Len() int { return len(s.features) }

// At returns the i-th feature in insertion order.
func (s *Set) At(i int) Feature { return s.features[i] }

// Get looks a feature up by id.
func (s *Set) Get(id string) (Feature, bool) {
	i, ok := s.pos[id]
	if !ok {
		return Feature{}, false
	}
	return s.features[i], true
}

// Features returns the features in insertion order. Callers must not modify
// the returned slice.
func (s *Set) Features() []Feature { return s.features }

// IDs returns the feature ids in insertion order.
func (s *Set) IDs() []string {
	ids := make([]string, len(s.features))
	for i, f := range s.features {
		ids[i] = f.ID
	}
	return ids
}

// Shapes returns the shapes in insertion order, parallel to IDs.
func (s *Set) Shapes() []geometry.Shape {
	out := make([]geometry.Shape, len(s.features))
	for i, f := range s.features {
		out[i] = f.Shape
	}
	return out
}

// InRegion returns the features whose region equals region, ignoring case,
// in insertion order.
func (s *Set) InRegion(region string) []Feature {
	var out []Feature
	for _, f := range s.features {
		if f.Region != "" && strings.EqualFold(f.Region, region) {
			out = append(out, f)
		}
	}
	return out
}
