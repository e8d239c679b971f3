package worker

import (
	"github.com/kartikbazzad/tskv/internal/storage"
	"github.com/kartikbazzad/tskv/internal/types"
)

// DecodeChunk decodes a storage chunk into rows and applies the SELECT
// projection. Empty values are tombstones and are skipped. Projection
// preserves stored column order; a literal "*" keeps every column.
func DecodeChunk(chunk types.Chunk, columns []string) ([]types.Row, error) {
	star := false
	selected := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "*" {
			star = true
			break
		}
		selected[c] = true
	}

	var rows []types.Row
	for _, kv := range chunk {
		if len(kv.Value) == 0 {
			continue
		}

		row, err := storage.DecodeRow(kv.Value)
		if err != nil {
			return nil, err
		}

		if star {
			rows = append(rows, row)
			continue
		}

		projected := make(types.Row, 0, len(selected))
		for _, cell := range row {
			if selected[cell.Field] {
				projected = append(projected, cell)
			}
		}
		rows = append(rows, projected)
	}

	return rows, nil
}
