package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazytable/internal/models"
)

func testColumns() []models.Column {
	return []models.Column{
		{Key: "name", Header: "Name", Type: models.ColumnText},
		{Key: "note", Header: "Note", Type: models.ColumnText},
		{Key: "price", Header: "Price", Type: models.ColumnCurrency},
		{Key: "edit", Header: "", Type: models.ColumnAction},
	}
}

func testRows() []models.Record {
	return []models.Record{
		{"id": "1", "name": "Widget", "note": `says "hi", twice`, "price": 12.5},
		{"id": "2", "name": "<b>Gadget</b>", "note": "line1\nline2", "price": 3.0},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testColumns(), testRows()))

	assert.Contains(t, buf.String(), `"says ""hi"", twice"`)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 rows

	assert.Equal(t, []string{"Name", "Note", "Price"}, records[0])
	assert.Equal(t, []string{"Widget", `says "hi", twice`, "12.50"}, records[1])
	assert.Equal(t, "line1\nline2", records[2][1])
}

func TestWriteCSVUsesFormatter(t *testing.T) {
	cols := []models.Column{{
		Key:  "status",
		Type: models.ColumnBadge,
		Format: func(v any, _ models.Record) string {
			return strings.ToUpper(models.Stringify(v))
		},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, cols, []models.Record{{"status": "ready"}}))
	assert.Equal(t, "status\nREADY\n", buf.String())
}

func TestWriteHTMLEscapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, "Products", testColumns(), testRows()))

	out := buf.String()
	assert.Contains(t, out, "<title>Products</title>")
	assert.Contains(t, out, "<th>Name</th><th>Note</th><th>Price</th>")
	assert.Contains(t, out, "&lt;b&gt;Gadget&lt;/b&gt;")
	assert.NotContains(t, out, "<b>Gadget</b>")
	assert.Equal(t, 2, strings.Count(out, "<tr><td>"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testColumns(), testRows()))

	var parsed []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	require.Len(t, parsed, 2)
	assert.Equal(t, "Widget", parsed[0]["name"])
	assert.Equal(t, "3.00", parsed[1]["price"])
	assert.NotContains(t, parsed[0], "edit")

	// pretty-printed
	assert.Contains(t, buf.String(), "\n  ")
}

func TestToFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "rows.csv")

	require.NoError(t, ToFile(path, FormatCSV, "", testColumns(), testRows()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Name,Note,Price\n"))
}

func TestExportEmptyRows(t *testing.T) {
	var csvBuf bytes.Buffer
	require.NoError(t, WriteCSV(&csvBuf, testColumns(), nil))
	assert.Equal(t, "Name,Note,Price\n", csvBuf.String())

	var jsonBuf bytes.Buffer
	require.NoError(t, WriteJSON(&jsonBuf, testColumns(), nil))
	assert.JSONEq(t, "[]", jsonBuf.String())
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{" HTML ", FormatHTML, false},
		{"Json", FormatJSON, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
