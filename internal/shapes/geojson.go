package shapes

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/blockassign/internal/geometry"
)

// GeoJSONOptions names the feature properties holding the id and region.
type GeoJSONOptions struct {
	IDProperty     string // default "id"; falls back to the feature's own id
	RegionProperty string // optional
}

// LoadGeoJSON reads a FeatureCollection file.
func LoadGeoJSON(path string, b geometry.Builder, opts GeoJSONOptions) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapes: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return ReadGeoJSON(f, b, opts)
}

// ReadGeoJSON decodes a FeatureCollection. Features without polygonal
// geometry are skipped with a warning; features without an id are an error.
func ReadGeoJSON(r io.Reader, b geometry.Builder, opts GeoJSONOptions) (*Set, error) {
	if opts.IDProperty == "" {
		opts.IDProperty = "id"
	}

	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "shapes: decode geojson")
	}

	log := zap.L().With(zap.String("component", "shapes.geojson"))

	set := NewSet(len(fc.Features))
	var skipped int
	for i, feat := range fc.Features {
		id := propertyString(feat.Properties, opts.IDProperty)
		if id == "" {
			id = strings.TrimSpace(feat.ID)
		}
		if id == "" {
			return nil, eris.Errorf("shapes: feature %d has no %q property or id", i, opts.IDProperty)
		}

		switch feat.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			log.Warn("skipping non-polygonal feature", zap.String("id", id), zap.String("type", geometryType(feat.Geometry)))
			skipped++
			continue
		}

		shape, err := b.FromGeom(feat.Geometry)
		if err != nil {
			log.Warn("skipping unreadable feature", zap.String("id", id), zap.Error(err))
			skipped++
			continue
		}

		if err := set.Add(Feature{
			ID:     id,
			Region: propertyString(feat.Properties, opts.RegionProperty),
			Shape:  shape,
		}); err != nil {
			return nil, err
		}
	}

	log.Debug("geojson loaded", zap.Int("features", set.Len()), zap.Int("skipped", skipped))
	return set, nil
}

// propertyString renders a scalar property as a string. Integral numbers
// lose their decimal point so district 3 reads "3", not "3.000000".
func propertyString(props map[string]any, key string) string {
	if key == "" || props == nil {
		return ""
	}
	switch v := props[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func geometryType(g geom.T) string {
	if g == nil {
		return "null"
	}
	switch g.(type) {
	case *geom.Point:
		return "Point"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.LineString:
		return "LineString"
	case *geom.MultiLineString:
		return "MultiLineString"
	case *geom.GeometryCollection:
		return "GeometryCollection"
	default:
		return "unknown"
	}
}
