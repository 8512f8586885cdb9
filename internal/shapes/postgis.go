package shapes

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/blockassign/internal/db"
	"github.com/sells-group/blockassign/internal/geometry"
)

// PostGISQuery describes a polygon table, e.g. geo.congressional_districts.
type PostGISQuery struct {
	Table        string // schema-qualified table name
	IDColumn     string // default "geoid"
	RegionColumn string // optional, e.g. "state_abbr"
	GeomColumn   string // default "geom"
}

func (q PostGISQuery) sql() (string, error) {
	table, err := db.ParseIdentifier(q.Table)
	if err != nil {
		return "", eris.Wrap(err, "shapes: postgis table")
	}
	idCol := q.IDColumn
	if idCol == "" {
		idCol = "geoid"
	}
	geomCol := q.GeomColumn
	if geomCol == "" {
		geomCol = "geom"
	}
	region := "''"
	if q.RegionColumn != "" {
		region = fmt.Sprintf("COALESCE(%s::text, '')", pgx.Identifier{q.RegionColumn}.Sanitize())
	}
	id := pgx.Identifier{idCol}.Sanitize()
	return fmt.Sprintf(
		"SELECT %s::text, %s, ST_AsBinary(%s) FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		id, region, pgx.Identifier{geomCol}.Sanitize(), table.Sanitize(), pgx.Identifier{geomCol}.Sanitize(), id,
	), nil
}

// ReadPostGIS loads polygons from a PostGIS table ordered by id, so repeated
// runs iterate sources identically.
func ReadPostGIS(ctx context.Context, pool db.Pool, b geometry.Builder, q PostGISQuery) (*Set, error) {
	sql, err := q.sql()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "shapes: query %s", q.Table)
	}
	defer rows.Close()

	log := zap.L().With(zap.String("component", "shapes.postgis"), zap.String("table", q.Table))

	set := NewSet(0)
	var skipped int
	for rows.Next() {
		var (
			id, region string
			wkb        []byte
		)
		if err := rows.Scan(&id, &region, &wkb); err != nil {
			return nil, eris.Wrap(err, "shapes: scan polygon row")
		}
		shape, err := b.FromWKB(wkb)
		if err != nil {
			log.Warn("skipping unreadable polygon", zap.String("id", id), zap.Error(err))
			skipped++
			continue
		}
		if err := set.Add(Feature{ID: id, Region: region, Shape: shape}); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "shapes: iterate polygon rows")
	}

	log.Info("postgis polygons loaded", zap.Int("features", set.Len()), zap.Int("skipped", skipped))
	return set, nil
}
