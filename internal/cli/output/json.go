package output

import (
	"bytes"
	"encoding/json"
	"io"
)

// JSONFormatter formats data as indented JSON. Tables become an array of
// objects keyed like the YAML output.
type JSONFormatter struct{}

// Format writes data as JSON. Characters such as & and < in content
// references are written as is.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	switch t := data.(type) {
	case *Table:
		data = tableRows(t)
	case Table:
		data = tableRows(&t)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// jsonRow is one table row as an object whose keys keep column order.
type jsonRow struct {
	keys, values []string
}

func tableRows(t *Table) []jsonRow {
	rows := make([]jsonRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := jsonRow{keys: make([]string, len(row)), values: row}
		for i := range row {
			r.keys[i] = columnKey(t, i)
		}
		rows = append(rows, r)
	}
	return rows
}

func (r jsonRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := enc.Encode(r.values[i]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
