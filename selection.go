package datagrid

// Modifiers is a bitmask of the keyboard modifiers held during a
// pointer action.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl            // ctrl or cmd
)

// Has returns true if the modifier set contains the given modifier.
func (m Modifiers) Has(mod Modifiers) bool {
	return m&mod != 0
}

// Selection is the cell selection state machine: an active cell,
// a set of selected cell coordinates, and a drag anchor.
//
// Selecting a cell never opens the editor; entering edit mode is a
// separate explicit transition owned by the engine.
type Selection struct {
	active    CellCoord
	hasActive bool
	anchor    CellCoord
	hasAnchor bool
	selected  map[CellCoord]struct{}
	dragging  bool

	// suppresses the outside click that immediately follows the end
	// of a drag, so a mouse-up outside the grid does not wipe the
	// just-completed selection
	justDragged bool
}

func NewSelection() *Selection {
	return &Selection{selected: make(map[CellCoord]struct{})}
}

// Active returns the active cell, if any.
func (s *Selection) Active() (CellCoord, bool) {
	return s.active, s.hasActive
}

// IsSelected reports if the coordinate is in the selected set.
func (s *Selection) IsSelected(c CellCoord) bool {
	_, ok := s.selected[c]
	return ok
}

// Count returns the number of selected cells.
func (s *Selection) Count() int { return len(s.selected) }

// Cells returns the selected coordinates in unspecified order.
func (s *Selection) Cells() []CellCoord {
	cells := make([]CellCoord, 0, len(s.selected))
	for c := range s.selected {
		cells = append(cells, c)
	}
	return cells
}

// Rows returns the set of row indices with at least one selected cell.
func (s *Selection) Rows() map[int]struct{} {
	rows := make(map[int]struct{})
	for c := range s.selected {
		rows[c.Row] = struct{}{}
	}
	return rows
}

// Dragging reports if a drag selection is in progress.
func (s *Selection) Dragging() bool { return s.dragging }

// Click handles a plain click on a cell: the cell becomes the only
// selected cell, the anchor, and the active cell, and a drag begins.
func (s *Selection) Click(c CellCoord) {
	s.justDragged = false
	s.selected = map[CellCoord]struct{}{c: {}}
	s.active, s.hasActive = c, true
	s.anchor, s.hasAnchor = c, true
	s.dragging = true
}

// ShiftClick extends the selection to the rectangle spanned by the
// active cell and c over the current column display order. The active
// cell stays where it is. Without an active cell it degrades to Click.
func (s *Selection) ShiftClick(c CellCoord, colOrder []string) {
	if !s.hasActive {
		s.Click(c)
		return
	}
	s.justDragged = false
	s.selected = rectangle(s.active, c, colOrder)
}

// CtrlClick toggles membership of c in the selection and makes it the
// active cell. The drag anchor is deliberately left unchanged so a
// later shift-click still extends from the pre-toggle position.
func (s *Selection) CtrlClick(c CellCoord) {
	s.justDragged = false
	if _, ok := s.selected[c]; ok {
		delete(s.selected, c)
	} else {
		s.selected[c] = struct{}{}
	}
	s.active, s.hasActive = c, true
}

// DragTo recomputes the selection rectangle from the anchor to the
// currently hovered cell while a drag is in progress.
func (s *Selection) DragTo(c CellCoord, colOrder []string) {
	if !s.dragging || !s.hasAnchor {
		return
	}
	s.selected = rectangle(s.anchor, c, colOrder)
}

// EndDrag finishes a drag selection and arms the outside click
// suppression window.
func (s *Selection) EndDrag() {
	if !s.dragging {
		return
	}
	s.dragging = false
	s.justDragged = true
}

// SelectRow selects every cell of a row. With ctrl the whole row
// toggles as a unit: fully selected rows deselect, all others select.
func (s *Selection) SelectRow(row int, colOrder []string, ctrl bool) {
	s.justDragged = false
	if !ctrl {
		s.selected = make(map[CellCoord]struct{}, len(colOrder))
	}
	allSelected := true
	for _, col := range colOrder {
		if _, ok := s.selected[CellCoord{Row: row, Col: col}]; !ok {
			allSelected = false
			break
		}
	}
	for _, col := range colOrder {
		c := CellCoord{Row: row, Col: col}
		if ctrl && allSelected {
			delete(s.selected, c)
		} else {
			s.selected[c] = struct{}{}
		}
	}
	if len(colOrder) > 0 {
		s.active, s.hasActive = CellCoord{Row: row, Col: colOrder[0]}, true
		s.anchor, s.hasAnchor = s.active, true
	}
}

// MoveActive moves the active cell by one step in the given direction,
// clamped to the grid bounds, and collapses the selection to it.
// Navigation at an edge clamps, it never errors.
func (s *Selection) MoveActive(dRow, dCol, rowCount int, colOrder []string) {
	if !s.hasActive || rowCount == 0 || len(colOrder) == 0 {
		return
	}
	s.justDragged = false
	row := clampInt(s.active.Row+dRow, 0, rowCount-1)
	colIdx := columnIndex(colOrder, s.active.Col)
	if colIdx < 0 {
		colIdx = 0
	}
	colIdx = clampInt(colIdx+dCol, 0, len(colOrder)-1)
	s.setSingle(CellCoord{Row: row, Col: colOrder[colIdx]})
}

// TabMove moves the active cell to the next (or previous) cell in
// row-major order, wrapping to the next row at a row boundary and
// clamping at the first and last cell of the grid.
func (s *Selection) TabMove(backward bool, rowCount int, colOrder []string) {
	if !s.hasActive || rowCount == 0 || len(colOrder) == 0 {
		return
	}
	s.justDragged = false
	colIdx := columnIndex(colOrder, s.active.Col)
	if colIdx < 0 {
		colIdx = 0
	}
	row := s.active.Row
	if backward {
		colIdx--
		if colIdx < 0 {
			row--
			colIdx = len(colOrder) - 1
		}
	} else {
		colIdx++
		if colIdx >= len(colOrder) {
			row++
			colIdx = 0
		}
	}
	if row < 0 || row >= rowCount {
		return // clamp at the grid edges, no wrap around
	}
	s.setSingle(CellCoord{Row: row, Col: colOrder[colIdx]})
}

// ClickOutside handles a click on empty space outside any cell and
// reports whether the selection was cleared. The click immediately
// following the end of a drag is swallowed.
func (s *Selection) ClickOutside() bool {
	if s.justDragged {
		s.justDragged = false
		return false
	}
	s.Clear()
	return true
}

// Clear drops the selection, active cell, and anchor.
func (s *Selection) Clear() {
	s.selected = make(map[CellCoord]struct{})
	s.hasActive = false
	s.hasAnchor = false
	s.dragging = false
}

// SetActive places the active cell and collapses the selection to it,
// used when jumping to a search match.
func (s *Selection) SetActive(c CellCoord) {
	s.setSingle(c)
}

func (s *Selection) setSingle(c CellCoord) {
	s.selected = map[CellCoord]struct{}{c: {}}
	s.active, s.hasActive = c, true
	s.anchor, s.hasAnchor = c, true
}

// rectangle returns all coordinates whose row lies between the rows of
// a and b and whose column display index lies between the display
// indices of a and b, all inclusive.
func rectangle(a, b CellCoord, colOrder []string) map[CellCoord]struct{} {
	rowLo, rowHi := a.Row, b.Row
	if rowLo > rowHi {
		rowLo, rowHi = rowHi, rowLo
	}
	colLo := columnIndex(colOrder, a.Col)
	colHi := columnIndex(colOrder, b.Col)
	if colLo < 0 || colHi < 0 {
		return map[CellCoord]struct{}{b: {}}
	}
	if colLo > colHi {
		colLo, colHi = colHi, colLo
	}
	cells := make(map[CellCoord]struct{}, (rowHi-rowLo+1)*(colHi-colLo+1))
	for row := rowLo; row <= rowHi; row++ {
		for colIdx := colLo; colIdx <= colHi; colIdx++ {
			cells[CellCoord{Row: row, Col: colOrder[colIdx]}] = struct{}{}
		}
	}
	return cells
}
