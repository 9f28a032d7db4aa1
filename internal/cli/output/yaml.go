package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v2"
)

// YAMLFormatter formats data as YAML.
//
// Values go through their JSON encoding first so YAML keys match the API
// field names and keep struct field order.
type YAMLFormatter struct{}

// Format formats data as YAML.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	var doc any
	switch t := data.(type) {
	case *Table:
		doc = tableDoc(t)
	case Table:
		doc = tableDoc(&t)
	default:
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		if doc, err = orderedDoc(raw); err != nil {
			return fmt.Errorf("convert to yaml: %w", err)
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// orderedDoc decodes JSON into yaml.MapSlice values so mapping order
// survives the round trip.
func orderedDoc(raw []byte) (any, error) {
	var m yaml.MapSlice
	if err := yaml.Unmarshal(raw, &m); err == nil {
		return m, nil
	}
	var s []yaml.MapSlice
	if err := yaml.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var v any
	err := yaml.Unmarshal(raw, &v)
	return v, err
}

// tableDoc turns table rows into mappings keyed by lower-cased header.
func tableDoc(t *Table) []yaml.MapSlice {
	doc := make([]yaml.MapSlice, 0, len(t.Rows))
	for _, row := range t.Rows {
		item := make(yaml.MapSlice, 0, len(row))
		for i, cell := range row {
			item = append(item, yaml.MapItem{Key: columnKey(t, i), Value: cell})
		}
		doc = append(doc, item)
	}
	return doc
}

// columnKey names column i of t in structured output.
func columnKey(t *Table, i int) string {
	if i < len(t.Headers) {
		return strings.ToLower(t.Headers[i])
	}
	return fmt.Sprintf("col%d", i)
}
