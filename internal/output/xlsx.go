package output

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/blockassign/internal/match"
)

// XLSXSink writes a single-sheet workbook with the same header and rows as
// the CSV sink. Cells are text so leading zeros in GEOIDs survive.
type XLSXSink struct {
	Path  string
	Sheet string // default "assignments"
}

// Name implements Sink.
func (s *XLSXSink) Name() string { return "xlsx" }

// Write implements Sink.
func (s *XLSXSink) Write(_ context.Context, res *match.Result) error {
	name := s.Sheet
	if name == "" {
		name = "assignments"
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "output: add sheet %q", name)
	}

	addRow(sheet, HeaderTarget, HeaderSource)
	for _, r := range rows(res.Assignments) {
		addRow(sheet, r.GEOID, r.District)
	}

	if err := f.Save(s.Path); err != nil {
		return eris.Wrapf(err, "output: save %s", s.Path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
