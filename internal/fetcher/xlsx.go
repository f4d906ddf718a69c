package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/leadgrid/prospect-cli/internal/model"
)

// ReadXLSX parses company rows from the first sheet of an XLSX file.
// Row 0 must be a header; rows without a company name are skipped.
func ReadXLSX(path string) ([]model.JobItem, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: file has no sheets")
	}
	sheet := f.Sheets[0]

	if len(sheet.Rows) == 0 {
		return nil, eris.New("xlsx: sheet is empty")
	}

	cm, err := mapHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var items []model.JobItem
	for _, row := range sheet.Rows[1:] {
		if item, ok := itemFromRow(cm, rowToStrings(row)); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}
