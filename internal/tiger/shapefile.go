package tiger

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/blockassign/internal/geometry"
	"github.com/sells-group/blockassign/internal/shapes"
)

// idFallbacks are tried, in order, when the requested id field is absent.
var idFallbacks = []string{"GEOID20", "GEOID", "GEOID10", "BLOCKID10"}

// ReadBlocks reads target polygons from a shapefile, keyed by idField. Records
// without polygon geometry or without an id are skipped; duplicate ids fail.
func ReadBlocks(shpPath string, b geometry.Builder, idField string) (*shapes.Set, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	idIdx, ok := -1, false
	for _, name := range append([]string{idField}, idFallbacks...) {
		if name == "" {
			continue
		}
		if idIdx, ok = fieldIdx[strings.ToLower(name)]; ok {
			break
		}
	}
	if !ok {
		return nil, eris.Errorf("tiger: %s has no %q field", shpPath, idField)
	}

	log := zap.L().With(zap.String("component", "tiger.shapefile"), zap.String("path", shpPath))

	set := shapes.NewSet(0)
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		poly, isPoly := shape.(*shp.Polygon)
		if id == "" || !isPoly {
			skipped++
			continue
		}

		mp := PolygonGeom(poly)
		if mp == nil {
			skipped++
			continue
		}
		s, err := b.FromGeom(mp)
		if err != nil {
			log.Debug("skipping unreadable block", zap.Int("record", n), zap.String("geoid", id), zap.Error(err))
			skipped++
			continue
		}
		if err := set.Add(shapes.Feature{ID: id, Shape: s}); err != nil {
			return nil, eris.Wrapf(err, "tiger: record %d", n)
		}
	}

	log.Info("blocks loaded", zap.Int("blocks", set.Len()), zap.Int("skipped", skipped))
	return set, nil
}

// OpenBlocks extracts a block archive into a scratch directory under tempDir,
// reads it and removes the scratch directory.
func OpenBlocks(zipPath, tempDir string, b geometry.Builder, idField string) (*shapes.Set, error) {
	dir, err := os.MkdirTemp(tempDir, "blocks-*")
	if err != nil {
		return nil, eris.Wrap(err, "tiger: create scratch dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	shpPath, err := ExtractShapefile(zipPath, dir)
	if err != nil {
		return nil, err
	}
	return ReadBlocks(shpPath, b, idField)
}
