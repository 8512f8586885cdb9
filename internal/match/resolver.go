package match

// Method tags how an Assignment was decided.
type Method string

const (
	MethodUnassigned Method = "unassigned"
	MethodSingle     Method = "single"  // one record
	MethodOverlap    Method = "overlap" // best of several records
	MethodBBox       Method = "bbox"    // winner had only bounding-box evidence
	MethodDerived    Method = "derived" // id prefix names a seen source
	MethodNearest    Method = "nearest" // fallback pass
)

// Assignment is the resolved source of one target. SourceID is empty when
// the target is unassigned.
type Assignment struct {
	TargetID string
	SourceID string
	Score    float64
	Method   Method
}

// Assignments is the ordered target -> source table.
type Assignments struct {
	entries []Assignment
	pos     map[string]int
}

func newAssignments(ids []string) *Assignments {
	a := &Assignments{
		entries: make([]Assignment, len(ids)),
		pos:     make(map[string]int, len(ids)),
	}
	for i, id := range ids {
		a.entries[i] = Assignment{TargetID: id, Method: MethodUnassigned}
		a.pos[id] = i
	}
	return a
}

// Len is the number of targets.
func (a *Assignments) Len() int { return len(a.entries) }

// At returns the i-th entry in target-set order.
func (a *Assignments) At(i int) Assignment { return a.entries[i] }

// Entries returns all entries in target-set order. Callers must not modify
// the returned slice.
func (a *Assignments) Entries() []Assignment { return a.entries }

// Get returns the entry for targetID.
func (a *Assignments) Get(targetID string) (Assignment, bool) {
	i, ok := a.pos[targetID]
	if !ok {
		return Assignment{}, false
	}
	return a.entries[i], true
}

// Unassigned returns the ids of entries with no source, in target-set order.
func (a *Assignments) Unassigned() []string {
	var out []string
	for _, e := range a.entries {
		if e.SourceID == "" {
			out = append(out, e.TargetID)
		}
	}
	return out
}

// Fill assigns targetID only when its entry is still empty. It reports
// whether the entry was written.
func (a *Assignments) Fill(targetID, sourceID string, score float64, method Method) bool {
	i, ok := a.pos[targetID]
	if !ok || a.entries[i].SourceID != "" || sourceID == "" {
		return false
	}
	a.entries[i].SourceID = sourceID
	a.entries[i].Score = score
	a.entries[i].Method = method
	return true
}

// Stats are the counters of one run.
type Stats struct {
	Sources    int // source polygons processed
	Total      int // targets
	Candidates int // candidate pairs returned by the index
	Dropped    int // pairs where every geometry operation failed
	Split      int // targets with more than one record
	BBoxOnly   int // targets won by a DegenerateScore record
	Derived    int // targets assigned by id prefix
	Phase2     int // targets assigned by the fallback
	Unresolved int // targets left unassigned after all passes
}

// ResolveOptions configures reduction.
type ResolveOptions struct {
	// DerivePrefix, when positive, assigns an empty target whose first
	// DerivePrefix characters name a seen source to that source.
	DerivePrefix int
	Seen         SeenSet
}

// Resolve reduces every target's records to a single winner: the highest
// score, ties to the earliest record. A lone record wins even at
// DegenerateScore.
func Resolve(m *OverlapMap, opts ResolveOptions) (*Assignments, Stats) {
	a := newAssignments(m.IDs())
	stats := Stats{Total: m.Len()}

	for i, id := range m.IDs() {
		recs := m.Records(id)
		e := &a.entries[i]

		switch len(recs) {
		case 0:
			if src, ok := derive(id, opts); ok {
				e.SourceID, e.Method = src, MethodDerived
				stats.Derived++
			}
		case 1:
			r := recs[0]
			e.SourceID, e.Score, e.Method = r.SourceID, r.Score, MethodSingle
			if r.Score == DegenerateScore {
				e.Method = MethodBBox
				stats.BBoxOnly++
			}
		default:
			stats.Split++
			best := recs[0]
			for _, r := range recs[1:] {
				if r.Score > best.Score {
					best = r
				}
			}
			e.SourceID, e.Score, e.Method = best.SourceID, best.Score, MethodOverlap
			if best.Score == DegenerateScore {
				e.Method = MethodBBox
				stats.BBoxOnly++
			}
		}

		if e.SourceID == "" {
			stats.Unresolved++
		}
	}

	return a, stats
}

func derive(targetID string, opts ResolveOptions) (string, bool) {
	if opts.DerivePrefix <= 0 || len(targetID) < opts.DerivePrefix {
		return "", false
	}
	prefix := targetID[:opts.DerivePrefix]
	if !opts.Seen.Has(prefix) {
		return "", false
	}
	return prefix, true
}
