package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Columns: []Column{
			{Key: "subject", Title: "Subject"},
			{Key: "year", Title: "Year"},
		},
		Rows: []map[string]string{
			{"subject": "Algorithms", "year": "2023"},
			{"subject": "Networks", "year": "2022"},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	out, err := RenderCSV(sampleTable())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Subject", "Year"}, records[0])
	assert.Equal(t, []string{"Algorithms", "2023"}, records[1])
	assert.Equal(t, []string{"Networks", "2022"}, records[2])
}

func TestRenderCSVRequiresColumns(t *testing.T) {
	_, err := RenderCSV(Table{})
	assert.Error(t, err)
}

func TestRenderPDF(t *testing.T) {
	out, err := RenderPDF(sampleTable(), "Question Papers Catalog")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderPDFRequiresColumns(t *testing.T) {
	_, err := RenderPDF(Table{}, "empty")
	assert.Error(t, err)
}
