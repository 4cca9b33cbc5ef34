package datagrid

import (
	"github.com/mattn/go-runewidth"
)

const (
	// RowGutterWidth is the fixed width of the row number gutter
	// rendered in front of pinned columns when the grid is editable.
	RowGutterWidth = 60

	minColumnWidth = 50
	maxColumnWidth = 600

	// Seeding clamps are tighter than the resize clamps so freshly
	// loaded columns start at a sane width.
	minSeedWidth = 70
	maxSeedWidth = 350

	headerPaddingPx = 24
	widthSampleRows = 100
)

// ColumnLayout tracks column display order, pinning, and pixel widths.
//
// Pinned columns are always ordered to the front of the display order,
// in the order they were pinned. Widths are seeded from a cheap text
// width estimate and afterwards only change through SetWidth or the
// resize drag state machine. Pin and width state is keyed by column
// name so it survives page loads of the same table.
type ColumnLayout struct {
	columns  []Column
	pinned   []string // in pin order, always rendered first
	widths   map[string]int
	editable bool

	displayOrder []string // memoized, nil when dirty

	resizing         bool
	resizeColumn     string
	resizeStartX     int
	resizeStartWidth int
}

// NewColumnLayout creates a layout for the passed columns,
// seeding widths from the header text and up to the first
// 100 sample rows. editable adds the row number gutter to
// pinned offsets.
func NewColumnLayout(columns []Column, sampleRows []Row, editable bool) *ColumnLayout {
	l := &ColumnLayout{
		columns:  columns,
		widths:   make(map[string]int, len(columns)),
		editable: editable,
	}
	l.seedWidths(sampleRows)
	return l
}

// Adopt replaces the column set, keeping pin and width state for
// columns whose names still exist and seeding widths for new ones.
func (l *ColumnLayout) Adopt(columns []Column, sampleRows []Row) {
	names := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		names[col.Name] = struct{}{}
	}
	kept := l.pinned[:0]
	for _, name := range l.pinned {
		if _, ok := names[name]; ok {
			kept = append(kept, name)
		}
	}
	l.pinned = kept
	for name := range l.widths {
		if _, ok := names[name]; !ok {
			delete(l.widths, name)
		}
	}
	l.columns = columns
	l.seedWidths(sampleRows)
	l.invalidate()
}

func (l *ColumnLayout) seedWidths(sampleRows []Row) {
	for _, col := range l.columns {
		if _, ok := l.widths[col.Name]; ok {
			continue
		}
		w := estimateTextWidth(col.Name) + headerPaddingPx
		for i, row := range sampleRows {
			if i >= widthSampleRows {
				break
			}
			if cw := estimateTextWidth(row[col.Name].String()); cw > w {
				w = cw
			}
		}
		l.widths[col.Name] = clampInt(w, minSeedWidth, maxSeedWidth)
	}
}

// estimateTextWidth approximates rendered pixel width without text
// measurement: wide (CJK) runes weigh 14px, everything else 8px.
func estimateTextWidth(text string) int {
	px := 0
	for _, r := range text {
		if runewidth.RuneWidth(r) >= 2 {
			px += 14
		} else {
			px += 8
		}
	}
	return px
}

// Columns returns the column set in its original load order.
func (l *ColumnLayout) Columns() []Column { return l.columns }

// DisplayOrder returns column names with pinned columns first
// (in pin order) followed by the rest in load order.
// The result is memoized until a pin toggle or Adopt.
func (l *ColumnLayout) DisplayOrder() []string {
	if l.displayOrder != nil {
		return l.displayOrder
	}
	order := make([]string, 0, len(l.columns))
	order = append(order, l.pinned...)
	for _, col := range l.columns {
		if !l.IsPinned(col.Name) {
			order = append(order, col.Name)
		}
	}
	l.displayOrder = order
	return order
}

func (l *ColumnLayout) invalidate() { l.displayOrder = nil }

// IsPinned reports if the named column is pinned.
func (l *ColumnLayout) IsPinned(name string) bool {
	for _, pinned := range l.pinned {
		if pinned == name {
			return true
		}
	}
	return false
}

// TogglePin pins or unpins a column. Newly pinned columns go to the
// end of the pinned group, preserving the order they were pinned in.
func (l *ColumnLayout) TogglePin(name string) {
	defer l.invalidate()
	for i, pinned := range l.pinned {
		if pinned == name {
			l.pinned = append(l.pinned[:i], l.pinned[i+1:]...)
			return
		}
	}
	l.pinned = append(l.pinned, name)
}

// Width returns the current pixel width of a column.
func (l *ColumnLayout) Width(name string) int {
	return l.widths[name]
}

// SetWidth sets a column width, clamped to [50, 600] pixels.
func (l *ColumnLayout) SetWidth(name string, px int) {
	if _, ok := l.widths[name]; !ok {
		return
	}
	l.widths[name] = clampInt(px, minColumnWidth, maxColumnWidth)
}

// PinnedLeftOffset returns the sticky left offset of a pinned column:
// the cumulative width of pinned columns ordered before it, plus the
// row number gutter when the grid is editable. Returns 0 for columns
// that are not pinned.
func (l *ColumnLayout) PinnedLeftOffset(name string) int {
	if !l.IsPinned(name) {
		return 0
	}
	offset := 0
	if l.editable {
		offset = RowGutterWidth
	}
	for _, pinned := range l.pinned {
		if pinned == name {
			break
		}
		offset += l.widths[pinned]
	}
	return offset
}

// BeginResize starts a resize drag on a column at pointer position startX.
func (l *ColumnLayout) BeginResize(name string, startX int) {
	if _, ok := l.widths[name]; !ok {
		return
	}
	l.resizing = true
	l.resizeColumn = name
	l.resizeStartX = startX
	l.resizeStartWidth = l.widths[name]
}

// UpdateResize updates the dragged column's width for pointer position x.
// Only the one column being resized is ever mutated.
func (l *ColumnLayout) UpdateResize(x int) {
	if !l.resizing {
		return
	}
	l.SetWidth(l.resizeColumn, l.resizeStartWidth+x-l.resizeStartX)
}

// EndResize finishes the resize drag.
func (l *ColumnLayout) EndResize() {
	l.resizing = false
	l.resizeColumn = ""
}

// Resizing reports if a resize drag is in progress. Hosts use this to
// suppress text selection and set the cursor for the drag duration.
func (l *ColumnLayout) Resizing() bool { return l.resizing }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
