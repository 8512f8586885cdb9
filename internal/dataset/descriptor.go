// Package dataset describes a block-assignment run: which jurisdiction it
// covers, whether ids derive from a group prefix and which fallback applies
// to targets geometry leaves unassigned.
package dataset

import (
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/blockassign/internal/geometry"
	"github.com/sells-group/blockassign/internal/match"
	"github.com/sells-group/blockassign/internal/shapes"
)

// Fallback strategies.
const (
	StrategyNone            = "none"
	StrategyNearestInRegion = "nearest-in-region"
)

// Descriptor is the YAML document naming a dataset.
type Descriptor struct {
	Name         string            `yaml:"name"`
	Jurisdiction string            `yaml:"jurisdiction"`
	Aggregate    bool              `yaml:"aggregate"`
	DerivePrefix int               `yaml:"derive_prefix"`
	Fallback     FallbackConfig    `yaml:"fallback"`
	Regions      map[string]string `yaml:"regions"`
}

// FallbackConfig selects and parameterises the second pass.
type FallbackConfig struct {
	Strategy      string   `yaml:"strategy"`
	Jurisdictions []string `yaml:"jurisdictions"`
	CodeOffset    int      `yaml:"code_offset"`
	CodeLength    int      `yaml:"code_length"`
}

// Default is used when no descriptor file is given: census state codes,
// nearest-in-region fallback for every jurisdiction.
func Default() *Descriptor {
	return &Descriptor{
		Name: "default",
		Fallback: FallbackConfig{
			Strategy:   StrategyNearestInRegion,
			CodeLength: 2,
		},
	}
}

// Load reads and validates a descriptor file.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a descriptor document. An unset strategy means
// nearest-in-region and an unset code length means 2.
func Parse(data []byte) (*Descriptor, error) {
	d := &Descriptor{}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, eris.Wrap(err, "dataset: decode descriptor")
	}
	if d.Fallback.Strategy == "" {
		d.Fallback.Strategy = StrategyNearestInRegion
	}
	if d.Fallback.Strategy == StrategyNearestInRegion && d.Fallback.CodeLength == 0 {
		d.Fallback.CodeLength = 2
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks field ranges.
func (d *Descriptor) Validate() error {
	if d.DerivePrefix < 0 {
		return eris.Errorf("dataset: derive_prefix must be >= 0, got %d", d.DerivePrefix)
	}
	switch d.Fallback.Strategy {
	case "", StrategyNone:
	case StrategyNearestInRegion:
		if d.Fallback.CodeOffset < 0 || d.Fallback.CodeLength <= 0 {
			return eris.Errorf("dataset: fallback code window [%d:+%d] is invalid",
				d.Fallback.CodeOffset, d.Fallback.CodeLength)
		}
	default:
		return eris.Errorf("dataset: unknown fallback strategy %q", d.Fallback.Strategy)
	}
	return nil
}

// Qualifies reports whether the region fallback applies: the strategy is
// nearest-in-region, the run is not an aggregate-demographic run, and the
// jurisdiction is listed (an empty list admits every jurisdiction).
func (d *Descriptor) Qualifies() bool {
	if d.Fallback.Strategy != StrategyNearestInRegion || d.Aggregate {
		return false
	}
	if len(d.Fallback.Jurisdictions) == 0 {
		return true
	}
	return slices.ContainsFunc(d.Fallback.Jurisdictions, func(j string) bool {
		return strings.EqualFold(strings.TrimSpace(j), strings.TrimSpace(d.Jurisdiction))
	})
}

// RegionTable is the census state table with the descriptor's overrides.
func (d *Descriptor) RegionTable() RegionTable {
	return CensusStates().Merge(d.Regions)
}

// FallbackFor builds the second-pass strategy for a run over sources.
func (d *Descriptor) FallbackFor(sources *shapes.Set, engine geometry.Engine) match.Fallback {
	if !d.Qualifies() {
		return match.NoFallback{}
	}
	return &match.NearestInRegion{
		Sources:    sources,
		Engine:     engine,
		Regions:    d.RegionTable(),
		CodeOffset: d.Fallback.CodeOffset,
		CodeLength: d.Fallback.CodeLength,
	}
}
