package output

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/blockassign/internal/match"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	fallback    TEXT NOT NULL,
	sources     INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	candidates  INTEGER NOT NULL,
	split       INTEGER NOT NULL,
	bbox_only   INTEGER NOT NULL,
	derived     INTEGER NOT NULL,
	phase2      INTEGER NOT NULL,
	dropped     INTEGER NOT NULL,
	unresolved  INTEGER NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS block_assignments (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	geoid    TEXT NOT NULL,
	district TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, geoid)
);
`

// SQLiteSink appends each run to a SQLite file: a runs row with the
// counters and that run's assignments keyed by a fresh run id.
type SQLiteSink struct {
	Path string

	// RunID is set by Write.
	RunID string
}

// Name implements Sink.
func (s *SQLiteSink) Name() string { return "sqlite" }

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, res *match.Result) error {
	conn, err := openSQLite(s.Path)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck

	if _, err := conn.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "output: sqlite migrate")
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "output: sqlite begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	runID := uuid.New().String()
	st := res.Stats
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, fallback, sources, total, candidates, split, bbox_only, derived, phase2, dropped, unresolved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Fallback, st.Sources, st.Total, st.Candidates, st.Split, st.BBoxOnly,
		st.Derived, st.Phase2, st.Dropped, st.Unresolved, time.Now().UTC(),
	); err != nil {
		return eris.Wrap(err, "output: sqlite insert run")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO block_assignments (run_id, geoid, district) VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "output: sqlite prepare")
	}
	defer stmt.Close() //nolint:errcheck

	for _, e := range res.Assignments.Entries() {
		if _, err := stmt.ExecContext(ctx, runID, e.TargetID, e.SourceID); err != nil {
			return eris.Wrapf(err, "output: sqlite insert %s", e.TargetID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "output: sqlite commit")
	}
	s.RunID = runID
	return nil
}

func openSQLite(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "output: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "output: sqlite exec %s", pragma)
		}
	}
	return conn, nil
}
