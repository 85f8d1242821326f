package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseCSV reads a CSV upload into row maps keyed by the header row. Rows
// shorter than the header leave the missing keys empty; extra cells are
// dropped. An unparseable file is a fatal error for the request.
func ParseCSV(data []byte) ([]map[string]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // allow ragged rows

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: file is empty")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(record) {
				row[key] = strings.TrimSpace(record[i])
			} else {
				row[key] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// RowsToJSON serializes parsed rows for the {{dataString}} placeholder. It
// accepts the (rows, err) pair from a parser so call sites stay one-liners.
func RowsToJSON(rows []map[string]string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "[]", nil
	}
	out, err := json.Marshal(rows)
	if err != nil {
		return "", eris.Wrap(err, "extract: marshal rows")
	}
	return string(out), nil
}
