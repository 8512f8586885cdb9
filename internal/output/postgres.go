package output

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/blockassign/internal/db"
	"github.com/sells-group/blockassign/internal/match"
)

// DefaultTable receives assignments when no table is configured.
const DefaultTable = "block_assignments"

var pgColumns = []string{"geoid", "district"}

// PostgresSink COPYs assignments into Table(geoid, district). Unassigned
// targets get a NULL district. With Truncate the table is emptied in the
// same transaction.
type PostgresSink struct {
	Pool     db.Pool
	Table    string
	Truncate bool
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

// Write implements Sink.
func (s *PostgresSink) Write(ctx context.Context, res *match.Result) error {
	name := s.Table
	if name == "" {
		name = DefaultTable
	}
	table, err := db.ParseIdentifier(name)
	if err != nil {
		return eris.Wrap(err, "output: postgres table")
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (geoid TEXT NOT NULL, district TEXT)", table.Sanitize())
	if _, err := s.Pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "output: create %s", name)
	}

	data := make([][]any, 0, res.Assignments.Len())
	for _, e := range res.Assignments.Entries() {
		var district any
		if e.SourceID != "" {
			district = e.SourceID
		}
		data = append(data, []any{e.TargetID, district})
	}

	if s.Truncate {
		_, err = db.ReplaceRows(ctx, s.Pool, table, pgColumns, data)
	} else {
		_, err = db.CopyFrom(ctx, s.Pool, table, pgColumns, data, 0)
	}
	return eris.Wrapf(err, "output: copy into %s", name)
}
