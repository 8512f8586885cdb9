package match

import "github.com/sells-group/blockassign/internal/geometry"

// Finder returns the targets whose bounding box meets a source's.
type Finder struct {
	index geometry.Index
}

// NewFinder wraps a read-only index over the target set.
func NewFinder(index geometry.Index) *Finder {
	return &Finder{index: index}
}

// Candidates returns target ids in target-set order. An empty result is valid.
func (f *Finder) Candidates(source geometry.Shape) []string {
	return f.index.Query(source.Bounds())
}
