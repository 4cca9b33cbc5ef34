package datagrid

import (
	"sort"
	"strings"
)

// ClipboardPort is the injected platform clipboard capability.
// The engine only ever moves plain text through it; the concrete
// mechanism (native API, terminal OSC, test fake) is a host concern.
type ClipboardPort interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// PasteUpdate is one parsed cell of a pasted block, addressed
// relative to the paste anchor.
type PasteUpdate struct {
	RowOffset int
	ColOffset int
	Text      string
}

// serializeSelection renders a cell selection as tab/newline delimited
// text: one line per selected row in ascending order, one field per
// column of the selection's bounding rectangle in display order.
//
// Only truly selected cells carry their value. Cells inside the
// bounding rectangle but outside the selection are emitted as empty
// fields, NOT filled with their real value, so copying an irregular
// selection round-trips correctly.
//
// No quoting or escaping is applied: cell text passes through
// byte-for-byte, which is why this is not encoding/csv.
func serializeSelection(selected map[CellCoord]struct{}, colOrder []string, cellText func(CellCoord) string) string {
	if len(selected) == 0 {
		return ""
	}
	rowSet := make(map[int]struct{})
	colLo, colHi := len(colOrder), -1
	for c := range selected {
		rowSet[c.Row] = struct{}{}
		if idx := columnIndex(colOrder, c.Col); idx >= 0 {
			if idx < colLo {
				colLo = idx
			}
			if idx > colHi {
				colHi = idx
			}
		}
	}
	if colHi < colLo {
		return ""
	}
	rows := make([]int, 0, len(rowSet))
	for row := range rowSet {
		rows = append(rows, row)
	}
	sort.Ints(rows)

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for colIdx := colLo; colIdx <= colHi; colIdx++ {
			if colIdx > colLo {
				b.WriteByte('\t')
			}
			c := CellCoord{Row: row, Col: colOrder[colIdx]}
			if _, ok := selected[c]; ok {
				b.WriteString(cellText(c))
			}
		}
	}
	return b.String()
}

// parsePaste splits pasted text into per-cell updates relative to the
// anchor and computes how many new rows must be appended before any
// update can target them. Pasting is a two phase operation: the
// caller grows the grid by neededNewRows first, then applies the
// updates.
func parsePaste(text string, anchorRow, rowCount int) (updates []PasteUpdate, neededNewRows int) {
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return nil, 0
	}
	lines := strings.Split(text, "\n")
	for rowOffset, line := range lines {
		for colOffset, field := range strings.Split(line, "\t") {
			updates = append(updates, PasteUpdate{
				RowOffset: rowOffset,
				ColOffset: colOffset,
				Text:      field,
			})
		}
	}
	if overflow := anchorRow + len(lines) - rowCount; overflow > 0 {
		neededNewRows = overflow
	}
	return updates, neededNewRows
}
