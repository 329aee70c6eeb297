package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV parses a delimited table. Docking tools prepend free-text
// status lines to their result files, so any line without a delimiter
// is skipped before CSV parsing, the same filter the upstream Vina
// post-processing applies.
func ReadCSV(r io.Reader, name string) (*Table, error) {
	var kept []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, ",") {
			kept = append(kept, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(kept) == 0 {
		return &Table{Name: name}, nil
	}

	cr := csv.NewReader(strings.NewReader(strings.Join(kept, "\n")))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{Name: name, Columns: header}
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s row %d: %w", name, t.Len()+1, err)
		}
		row := make(Record, len(header))
		for i, col := range header {
			if i < len(fields) {
				row[col] = fields[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV serializes the table back out, header first, columns in
// header order. Cells absent from a row are written empty.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write %s header: %w", t.Name, err)
	}
	fields := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			fields[i] = row[col]
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("write %s row: %w", t.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
