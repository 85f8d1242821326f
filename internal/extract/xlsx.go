package extract

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ParseXLSX reads the first sheet of an XLSX upload into row maps keyed by
// the first row. The shape matches ParseCSV so both feed the same prompt
// placeholder.
func ParseXLSX(data []byte) ([]map[string]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("xlsx: sheet is empty")
	}

	header := rowToStrings(sheet.Rows[0])
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for _, r := range sheet.Rows[1:] {
		cells := rowToStrings(r)
		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(cells) {
				row[key] = strings.TrimSpace(cells[i])
			} else {
				row[key] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
