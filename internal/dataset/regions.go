package dataset

import (
	"strings"

	"github.com/sells-group/blockassign/internal/tiger"
)

// RegionTable maps fixed-width region codes cut from target ids to the
// region tags carried by sources.
type RegionTable map[string]string

// Lookup implements match.RegionLookup.
func (t RegionTable) Lookup(code string) (string, bool) {
	tag, ok := t[code]
	return tag, ok
}

// CensusStates maps 2-digit state FIPS codes to USPS abbreviations.
func CensusStates() RegionTable {
	t := make(RegionTable, len(tiger.FIPSCodes))
	for abbr, fips := range tiger.FIPSCodes {
		t[fips] = abbr
	}
	return t
}

// Merge returns a copy of t with overrides applied on top.
func (t RegionTable) Merge(overrides map[string]string) RegionTable {
	out := make(RegionTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
