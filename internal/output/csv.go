package output

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/blockassign/internal/match"
)

// CSVSink writes a UTF-8 CSV file. The file is written next to Path and
// renamed into place, so a failed run leaves any previous file intact.
type CSVSink struct {
	Path string
}

// Name implements Sink.
func (s *CSVSink) Name() string { return "csv" }

// Write implements Sink.
func (s *CSVSink) Write(_ context.Context, res *match.Result) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return eris.Wrap(err, "output: create csv temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := WriteCSV(tmp, res.Assignments); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "output: close csv")
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return eris.Wrapf(err, "output: rename csv to %s", s.Path)
	}
	return nil
}

// WriteCSV encodes the header and one row per assignment.
func WriteCSV(w io.Writer, a *match.Assignments) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(row{}); err != nil {
		return eris.Wrap(err, "output: encode csv header")
	}
	enc.AutoHeader = false
	for _, r := range rows(a) {
		if err := enc.Encode(r); err != nil {
			return eris.Wrapf(err, "output: encode csv row %s", r.GEOID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "output: flush csv")
}
