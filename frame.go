package datagrid

// CellFlags are the per-cell decoration flags the renderer consumes.
// The engine never paints anything itself.
type CellFlags uint8

const (
	FlagActive CellFlags = 1 << iota
	FlagSelected
	FlagModified
	FlagSearchMatch
	FlagCurrentMatch
	FlagPinned
)

func (f CellFlags) Has(flag CellFlags) bool {
	return f&flag != 0
}

// ColumnView is the layout of one column as the renderer sees it,
// in display order.
type ColumnView struct {
	Column     Column
	Width      int
	Pinned     bool
	LeftOffset int // sticky offset, only meaningful when Pinned
}

// FrameRow maps one visible row of the frame back to its data.
type FrameRow struct {
	VisibleIndex int
	Ref          RowRef
}

// Frame is what the engine exposes to the renderer per rendered
// frame: the visible row window, the visible-index to data mapping,
// and the per-column layout. Per-cell flags and text are queried
// through Engine.CellFlags and Engine.CellText, so no per-cell
// allocation happens per scroll tick.
type Frame struct {
	Viewport   Viewport
	Rows       []FrameRow
	Columns    []ColumnView
	ScrollLeft int
}
