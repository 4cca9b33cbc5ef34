package datagrid

// Viewport is the materialization window computed from scroll state:
// only rows in [StartIndex, EndIndex] are ever rendered by the host.
type Viewport struct {
	StartIndex  int
	EndIndex    int
	OffsetY     int // pixel offset of StartIndex from the top of the virtual canvas
	TotalHeight int // full virtual canvas height, rowCount * rowHeight
}

// ComputeViewport computes the visible row window for a scroll position.
// The window always covers every row even partially inside the physical
// viewport plus overscan buffer rows on each side, so fast scrolling
// never exposes unmaterialized rows.
func ComputeViewport(scrollTop, rowHeight, containerHeight, rowCount, overscan int) Viewport {
	if rowHeight <= 0 {
		rowHeight = 1
	}
	if scrollTop < 0 {
		scrollTop = 0
	}
	startIndex := scrollTop/rowHeight - overscan
	if startIndex < 0 {
		startIndex = 0
	}
	visibleCount := (containerHeight + rowHeight - 1) / rowHeight
	endIndex := startIndex + visibleCount + 2*overscan
	if endIndex > rowCount-1 {
		endIndex = rowCount - 1
	}
	return Viewport{
		StartIndex:  startIndex,
		EndIndex:    endIndex,
		OffsetY:     startIndex * rowHeight,
		TotalHeight: rowCount * rowHeight,
	}
}

// RowCount returns the number of rows in the window, 0 when empty.
func (v Viewport) RowCount() int {
	if v.EndIndex < v.StartIndex {
		return 0
	}
	return v.EndIndex - v.StartIndex + 1
}

// CenteringScrollTop returns the scrollTop that vertically centers
// rowIndex in a container, used when jumping to a search match.
func CenteringScrollTop(rowIndex, rowHeight, containerHeight int) int {
	top := rowIndex*rowHeight - containerHeight/2
	if top < 0 {
		return 0
	}
	return top
}
