// Package sheet reads input records from and persists the merged output
// table to xlsx workbooks.
package sheet

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/postal-enrich/internal/model"
	"github.com/sells-group/postal-enrich/pkg/textnorm"
)

const sheetName = "Sheet1"

// Positions in the input sheet. CITY and DIST are ignored.
const (
	colFirstName = 0
	colLastName  = 1
	colStreet    = 2
	colZIP       = 5
)

// ReadInput reads the first sheet of path as input records. A first row
// whose first cell is FIRST_NAME is treated as a header and skipped. Blank
// rows are dropped.
func ReadInput(path string) ([]model.InputRecord, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	var out []model.InputRecord
	for i, cells := range rows {
		if i == 0 && isHeader(cells) {
			continue
		}
		rec := model.InputRecord{
			FirstName: cell(cells, colFirstName),
			LastName:  cell(cells, colLastName),
			Street:    cell(cells, colStreet),
			ZIP:       model.NormalizeZIP(cell(cells, colZIP)),
		}
		if rec == (model.InputRecord{}) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadTable loads the output table at path. A missing file is an empty
// table. A leading header row is skipped.
func ReadTable(path string) ([]model.TableRow, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return []model.TableRow{}, nil
	}

	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	out := make([]model.TableRow, 0, len(rows))
	for i, cells := range rows {
		if i == 0 && isHeader(cells) {
			continue
		}
		for j := range cells {
			cells[j] = textnorm.Clean(cells[j])
		}
		out = append(out, model.TableRowFromCells(cells))
	}
	return out, nil
}

// WriteTable writes rows under the fixed output header. The workbook is
// replaced atomically: on failure the previous table at path is left as it
// was, and an existing file keeps its permissions.
func WriteTable(path string, rows []model.TableRow) error {
	f := xlsx.NewFile()
	sh, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "sheet: add sheet")
	}
	writeRow(sh, model.OutputColumns)
	for _, r := range rows {
		writeRow(sh, r.Cells())
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return eris.Wrap(err, "sheet: write workbook")
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return eris.Wrapf(err, "sheet: replace %s", path)
	}
	return nil
}

func readRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("sheet: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = strings.TrimSpace(c.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func writeRow(sh *xlsx.Sheet, cells []string) {
	row := sh.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}

func isHeader(cells []string) bool {
	return len(cells) > 0 && strings.EqualFold(cells[0], model.InputColumns[0])
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return textnorm.Clean(cells[i])
	}
	return ""
}
