package sheetorm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Veetinho/sheetorm/gviz"
)

func TestDecodeRecordsShortRow(t *testing.T) {
	resp := &gviz.Response{
		Status: gviz.StatusOK,
		Table: &gviz.Table{
			Cols: []gviz.Col{
				{ID: "A", Label: "id", Type: gviz.TypeString},
				{ID: "B", Label: "Age", Type: gviz.TypeNumber},
				{ID: "C", Label: "Name", Type: gviz.TypeString},
			},
			Rows: []gviz.Row{
				// One cell; the trailing columns are absent entirely.
				{Cells: []*gviz.Cell{{Value: "x"}}},
			},
		},
	}

	records := decodeRecords(builderSchema(), resp)
	require.Len(t, records, 1)

	// A truncated row still yields every field, absent cells as nil.
	rec := records[0]
	require.Equal(t, "x", rec["id"])
	require.Contains(t, rec, "Age")
	require.Nil(t, rec["Age"])
	require.Contains(t, rec, "Name")
	require.Nil(t, rec["Name"])
}

func TestDecodeRecordsNullCell(t *testing.T) {
	resp := &gviz.Response{
		Status: gviz.StatusOK,
		Table: &gviz.Table{
			Cols: []gviz.Col{
				{ID: "A", Label: "id", Type: gviz.TypeString},
				{ID: "B", Label: "Age", Type: gviz.TypeNumber},
			},
			Rows: []gviz.Row{
				{Cells: []*gviz.Cell{{Value: "x"}, nil}},
			},
		},
	}

	records := decodeRecords(builderSchema(), resp)
	require.Len(t, records, 1)
	require.Contains(t, records[0], "Age")
	require.Nil(t, records[0]["Age"])
}

func TestDecodeRecordsNoTable(t *testing.T) {
	records := decodeRecords(builderSchema(), &gviz.Response{Status: gviz.StatusOK})
	require.NotNil(t, records)
	require.Empty(t, records)
}
