// Package tiger downloads Census TIGER/Line shapefiles and reads block
// polygons out of them.
package tiger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Product describes a per-state TIGER/Line polygon product usable as a
// target set.
type Product struct {
	Name      string // directory on the Census server, e.g. "TABBLOCK20"
	Layer     string // file suffix, e.g. "tabblock20"
	IDField   string // attribute carrying the GEOID
	FirstYear int    // earliest vintage published under this layout
}

// Products lists the target products the downloader knows.
var Products = []Product{
	{Name: "TABBLOCK20", Layer: "tabblock20", IDField: "GEOID20", FirstYear: 2020},
	{Name: "BG", Layer: "bg", IDField: "GEOID", FirstYear: 2011},
	{Name: "TRACT", Layer: "tract", IDField: "GEOID", FirstYear: 2011},
}

// Blocks is the 2020 census tabulation block product.
var Blocks = Products[0]

// FIPSCodes maps USPS abbreviation to 2-digit state FIPS code for the 50
// states, DC and the inhabited territories.
var FIPSCodes = map[string]string{
	"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06",
	"CO": "08", "CT": "09", "DE": "10", "DC": "11", "FL": "12",
	"GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18",
	"IA": "19", "KS": "20", "KY": "21", "LA": "22", "ME": "23",
	"MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
	"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33",
	"NJ": "34", "NM": "35", "NY": "36", "NC": "37", "ND": "38",
	"OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44",
	"SC": "45", "SD": "46", "TN": "47", "TX": "48", "UT": "49",
	"VT": "50", "VA": "51", "WA": "53", "WV": "54", "WI": "55",
	"WY": "56", "AS": "60", "GU": "66", "MP": "69", "PR": "72",
	"VI": "78",
}

var abbrByFIPS map[string]string

func init() {
	abbrByFIPS = make(map[string]string, len(FIPSCodes))
	for abbr, fips := range FIPSCodes {
		abbrByFIPS[fips] = abbr
	}
}

// AbbrFromFIPS returns the USPS abbreviation for a state FIPS code.
func AbbrFromFIPS(fips string) (string, bool) {
	abbr, ok := abbrByFIPS[fips]
	return abbr, ok
}

// StateFIPS resolves either a USPS abbreviation ("az") or a FIPS code ("04").
func StateFIPS(state string) (string, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if fips, ok := FIPSCodes[state]; ok {
		return fips, nil
	}
	if _, ok := abbrByFIPS[state]; ok {
		return state, nil
	}
	return "", eris.Errorf("tiger: unknown state %q", state)
}

// AllStateFIPS returns a sorted list of all state FIPS codes.
func AllStateFIPS() []string {
	codes := make([]string, 0, len(FIPSCodes))
	for _, fips := range FIPSCodes {
		codes = append(codes, fips)
	}
	sort.Strings(codes)
	return codes
}

// ProductByName looks up a product by its name, ignoring case.
func ProductByName(name string) (Product, bool) {
	for _, p := range Products {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Product{}, false
}

// DownloadURL builds the Census Bureau URL of a per-state archive, e.g.
// https://www2.census.gov/geo/tiger/TIGER2020/TABBLOCK20/tl_2020_04_tabblock20.zip.
func DownloadURL(product Product, year int, stateFIPS string) (string, error) {
	if year < product.FirstYear {
		return "", eris.Errorf("tiger: %s is not published before %d (got %d)", product.Name, product.FirstYear, year)
	}
	if _, ok := abbrByFIPS[stateFIPS]; !ok {
		return "", eris.Errorf("tiger: unknown state FIPS %q", stateFIPS)
	}
	return fmt.Sprintf(
		"https://www2.census.gov/geo/tiger/TIGER%d/%s/tl_%d_%s_%s.zip",
		year, product.Name, year, stateFIPS, product.Layer,
	), nil
}
