// Package export writes table rows as CSV, HTML or JSON using each column's
// display value.
package export

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/rebeliceyang/lazytable/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

// ParseFormat accepts csv, html or json in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatHTML, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// exportable drops action columns
func exportable(columns []models.Column) []models.Column {
	return models.SearchableColumns(columns)
}

func header(col models.Column) string {
	if col.Header != "" {
		return col.Header
	}
	return col.Key
}

// WriteCSV writes a header line and one line per row. Fields containing
// quotes, commas or newlines are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, columns []models.Column, rows []models.Record) error {
	cols := exportable(columns)
	writer := csv.NewWriter(w)

	// Write header
	head := make([]string, len(cols))
	for i, col := range cols {
		head[i] = header(col)
	}
	if err := writer.Write(head); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range rows {
		line := make([]string, len(cols))
		for i, col := range cols {
			line[i] = col.Display(rec)
		}
		if err := writer.Write(line); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

var htmlTable = template.Must(template.New("table").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<table>
<thead>
<tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

// WriteHTML writes a standalone HTML document holding one table
func WriteHTML(w io.Writer, title string, columns []models.Column, rows []models.Record) error {
	cols := exportable(columns)
	data := struct {
		Title   string
		Headers []string
		Rows    [][]string
	}{Title: title}

	for _, col := range cols {
		data.Headers = append(data.Headers, header(col))
	}
	for _, rec := range rows {
		line := make([]string, len(cols))
		for i, col := range cols {
			line[i] = col.Display(rec)
		}
		data.Rows = append(data.Rows, line)
	}

	if err := htmlTable.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render HTML table: %w", err)
	}
	return nil
}

// WriteJSON writes an array of objects keyed by column key
func WriteJSON(w io.Writer, columns []models.Column, rows []models.Record) error {
	cols := exportable(columns)
	out := make([]map[string]string, len(rows))
	for i, rec := range rows {
		obj := make(map[string]string, len(cols))
		for _, col := range cols {
			obj[col.Key] = col.Display(rec)
		}
		out[i] = obj
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// Write dispatches on format
func Write(w io.Writer, format Format, title string, columns []models.Column, rows []models.Record) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, columns, rows)
	case FormatHTML:
		return WriteHTML(w, title, columns, rows)
	case FormatJSON:
		return WriteJSON(w, columns, rows)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// ToFile writes the export to path
func ToFile(path string, format Format, title string, columns []models.Column, rows []models.Record) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := Write(file, format, title, columns, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
