// Package match assigns each target polygon (a census block) to the single
// source polygon (a district) it overlaps most.
//
// A run has two passes. Pass one finds candidate targets per source through
// a bounding-box index, scores each pair by area overlap and reduces every
// target's candidates to one winner. Pass two is an optional Fallback that
// fills targets geometry left unassigned.
package match

// Basis tags how a Record's score was obtained.
type Basis string

const (
	BasisSingle     Basis = "single"     // lone candidate, area not computed
	BasisArea       Basis = "area"       // intersection / target area
	BasisSliver     Basis = "sliver"     // positive area at or below SliverThreshold
	BasisDegenerate Basis = "degenerate" // boxes overlap, intersection area zero
	BasisContains   Basis = "contains"   // area failed, source contains target
	BasisOverlaps   Basis = "overlaps"   // area failed, shapes overlap
)

// Record is one piece of evidence that a target belongs to a source.
// Score is in [0, 1] or exactly DegenerateScore.
type Record struct {
	SourceID string
	Score    float64
	Basis    Basis
}

// OverlapMap accumulates Records per target in source iteration order.
// Every target id is present, possibly with no records, from construction.
type OverlapMap struct {
	ids     []string
	records map[string][]Record
}

// NewOverlapMap returns a map holding an empty record list per target id.
func NewOverlapMap(targetIDs []string) *OverlapMap {
	m := &OverlapMap{
		ids:     append([]string(nil), targetIDs...),
		records: make(map[string][]Record, len(targetIDs)),
	}
	for _, id := range targetIDs {
		m.records[id] = nil
	}
	return m
}

// Append adds r to targetID's list. Unknown targets are ignored and
// reported as false.
func (m *OverlapMap) Append(targetID string, r Record) bool {
	recs, ok := m.records[targetID]
	if !ok {
		return false
	}
	m.records[targetID] = append(recs, r)
	return true
}

// Records returns targetID's records in insertion order.
func (m *OverlapMap) Records(targetID string) []Record { return m.records[targetID] }

// IDs returns the target ids in target-set order.
func (m *OverlapMap) IDs() []string { return m.ids }

// Len is the number of targets.
func (m *OverlapMap) Len() int { return len(m.ids) }

// SeenSet holds the source ids that produced at least one Record.
type SeenSet map[string]struct{}

// Has reports whether id was seen.
func (s SeenSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}
