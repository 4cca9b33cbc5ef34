package datagrid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func cellTextFromGrid(grid map[CellCoord]string) func(CellCoord) string {
	return func(c CellCoord) string { return grid[c] }
}

func TestSerializeSelectionRectangular(t *testing.T) {
	grid := map[CellCoord]string{
		{0, "a"}: "a0", {0, "b"}: "b0",
		{1, "a"}: "a1", {1, "b"}: "b1",
	}
	selected := map[CellCoord]struct{}{
		{0, "a"}: {}, {0, "b"}: {},
		{1, "a"}: {}, {1, "b"}: {},
	}
	got := serializeSelection(selected, []string{"a", "b", "c"}, cellTextFromGrid(grid))
	require.Equal(t, "a0\tb0\na1\tb1", got)
}

// Cells inside the bounding rectangle but outside the selection are
// emitted empty, never with their real value.
func TestSerializeSelectionIrregular(t *testing.T) {
	grid := map[CellCoord]string{
		{0, "a"}: "a0", {0, "c"}: "c0",
		{2, "b"}: "b2",
	}
	selected := map[CellCoord]struct{}{
		{0, "a"}: {}, {0, "c"}: {},
		{2, "b"}: {},
	}
	got := serializeSelection(selected, []string{"a", "b", "c"}, cellTextFromGrid(grid))
	// row 1 has no selected cell and is skipped entirely
	require.Equal(t, "a0\t\tc0\n\tb2\t", got)
}

func TestSerializeSelectionEmpty(t *testing.T) {
	require.Equal(t, "", serializeSelection(nil, []string{"a"}, cellTextFromGrid(nil)))
}

func TestParsePaste(t *testing.T) {
	updates, needed := parsePaste("x\ty\nz\tw", 0, 10)
	require.Equal(t, 0, needed)
	require.Equal(t, []PasteUpdate{
		{0, 0, "x"}, {0, 1, "y"},
		{1, 0, "z"}, {1, 1, "w"},
	}, updates)
}

func TestParsePasteRowGrowth(t *testing.T) {
	// 3 rows pasted at the last row of a 10-row grid need 2 new rows
	updates, needed := parsePaste("a\tb\nc\td\ne\tf", 9, 10)
	require.Equal(t, 2, needed)
	require.Len(t, updates, 6)
}

func TestParsePasteEdgeCases(t *testing.T) {
	updates, needed := parsePaste("", 0, 5)
	require.Nil(t, updates)
	require.Equal(t, 0, needed)

	// trailing newline and CRLF both normalize away
	updates, needed = parsePaste("x\r\ny\n", 0, 5)
	require.Equal(t, 0, needed)
	require.Equal(t, []PasteUpdate{{0, 0, "x"}, {1, 0, "y"}}, updates)

	// empty fields survive as empty strings (mapped to null on apply)
	updates, _ = parsePaste("a\t\tb", 0, 5)
	require.Equal(t, []PasteUpdate{{0, 0, "a"}, {0, 1, ""}, {0, 2, "b"}}, updates)
}
