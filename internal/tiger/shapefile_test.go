package tiger

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/blockassign/internal/geometry"
)

type bboxShape geometry.Bounds

func (b bboxShape) Bounds() geometry.Bounds { return geometry.Bounds(b) }

// bboxBuilder reduces every geometry to its bounding box.
type bboxBuilder struct{}

func (bboxBuilder) FromGeom(g geom.T) (geometry.Shape, error) {
	b := g.Bounds()
	return bboxShape{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}, nil
}

func (bboxBuilder) FromWKB([]byte) (geometry.Shape, error) { return nil, assert.AnError }

type testBlock struct {
	geoid string
	shape shp.Shape
}

// writeShapefile writes a polygon shapefile with a single GEOID20 field.
func writeShapefile(t *testing.T, dir, field string, blocks []testBlock) string {
	t.Helper()

	path := filepath.Join(dir, "tl_2020_24_tabblock20.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField(field, 15)}))
	for _, b := range blocks {
		row := w.Write(b.shape)
		require.NoError(t, w.WriteAttribute(int(row), 0, b.geoid))
	}
	w.Close()
	return path
}

func TestReadBlocks(t *testing.T) {
	path := writeShapefile(t, t.TempDir(), "GEOID20", []testBlock{
		{"240010001001000", shpPolygon(cwSquare(0, 0, 1))},
		{"240010001001001", shpPolygon(cwSquare(1, 0, 1))},
		{"", shpPolygon(cwSquare(2, 0, 1))},
	})

	set, err := ReadBlocks(path, bboxBuilder{}, "GEOID20")
	require.NoError(t, err)
	assert.Equal(t, []string{"240010001001000", "240010001001001"}, set.IDs())
	assert.Equal(t, geometry.Bounds{MinX: 1, MinY: 0, MaxX: 2, MaxY: 1}, set.At(1).Shape.Bounds())
}

func TestReadBlocks_FieldFallback(t *testing.T) {
	path := writeShapefile(t, t.TempDir(), "GEOID", []testBlock{
		{"2401", shpPolygon(cwSquare(0, 0, 1))},
	})

	set, err := ReadBlocks(path, bboxBuilder{}, "BLOCKCE")
	require.NoError(t, err)
	assert.Equal(t, []string{"2401"}, set.IDs())
}

func TestReadBlocks_NoIDField(t *testing.T) {
	path := writeShapefile(t, t.TempDir(), "NAME", []testBlock{
		{"x", shpPolygon(cwSquare(0, 0, 1))},
	})

	_, err := ReadBlocks(path, bboxBuilder{}, "GEOID20")
	assert.Error(t, err)
}

func TestReadBlocks_Duplicate(t *testing.T) {
	path := writeShapefile(t, t.TempDir(), "GEOID20", []testBlock{
		{"1", shpPolygon(cwSquare(0, 0, 1))},
		{"1", shpPolygon(cwSquare(1, 0, 1))},
	})

	_, err := ReadBlocks(path, bboxBuilder{}, "GEOID20")
	assert.Error(t, err)
}

func TestReadBlocks_MissingFile(t *testing.T) {
	_, err := ReadBlocks(filepath.Join(t.TempDir(), "none.shp"), bboxBuilder{}, "GEOID20")
	assert.Error(t, err)
}

func TestOpenBlocks(t *testing.T) {
	src := t.TempDir()
	shpPath := writeShapefile(t, src, "GEOID20", []testBlock{
		{"040010001001000", shpPolygon(cwSquare(0, 0, 1))},
	})

	zipPath := filepath.Join(t.TempDir(), "tl_2020_04_tabblock20.zip")
	zipDir(t, filepath.Dir(shpPath), zipPath)

	tmp := t.TempDir()
	set, err := OpenBlocks(zipPath, tmp, bboxBuilder{}, "GEOID20")
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch dir should be removed")
}

// zipDir archives every regular file of dir into zipPath.
func zipDir(t *testing.T, dir, zipPath string) {
	t.Helper()

	out, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		in, err := os.Open(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		w, err := zw.Create(e.Name())
		require.NoError(t, err)
		_, err = io.Copy(w, in)
		require.NoError(t, err)
		require.NoError(t, in.Close())
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
}
