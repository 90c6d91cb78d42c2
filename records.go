package sheetorm

import "github.com/Veetinho/sheetorm/gviz"

// decodeRecords maps a parsed response table onto records, one per row,
// preserving input order. Field keys come from the envelope's column
// labels; an unlabeled column falls back to the cached header for its
// positional code, which is the same name the schema synthesized for it. A
// cell whose column has neither is omitted from the record.
//
// Every column yields a field: a row shorter than the column list decodes
// its missing trailing cells to nil, same as an explicit null cell.
func decodeRecords(s *Schema, resp *gviz.Response) []Record {
	if resp == nil || resp.Table == nil {
		return []Record{}
	}

	cols := resp.Table.Cols
	records := make([]Record, 0, len(resp.Table.Rows))

	for _, row := range resp.Table.Rows {
		rec := make(Record, len(cols))
		for i, col := range cols {
			var cell *gviz.Cell
			if i < len(row.Cells) {
				cell = row.Cells[i]
			}

			key := col.Label
			if key == "" && s != nil {
				key, _ = s.Header(col.ID)
			}
			if key == "" {
				continue
			}

			rec[key] = gviz.DecodeValue(col.Type, cell)
		}
		records = append(records, rec)
	}

	return records
}
