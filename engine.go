package datagrid

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultRowHeight = 28
	DefaultOverscan  = 20
)

// Config configures an Engine.
type Config struct {
	Table       string      // table name carried on emitted write operations
	RowHeight   int         // pixel height of a row, DefaultRowHeight when 0
	Overscan    int         // buffer rows beyond the viewport, DefaultOverscan when 0
	Persistence Persistence // write transport, required for Save
	Clipboard   ClipboardPort
	Logger      *zap.Logger // nop logger when nil
	Options     Option
}

// Engine is the headless data-grid engine: it owns viewport math,
// the selection state machine, the pending-change ledger, search,
// and clipboard transfer, and exposes the state a renderer binds to.
//
// All methods are safe to call while a Save is in flight on another
// goroutine: an internal mutex serializes them against Save's ledger
// access, and Save releases it for the duration of the persistence
// I/O, so scrolling, selection, and search never block on the store.
type Engine struct {
	table       string
	rowHeight   int
	overscan    int
	persistence Persistence
	clipboard   ClipboardPort
	logger      *zap.Logger
	options     Option

	// mu guards every mutable field below. Exported methods hold it
	// for their full duration; Save holds it while building operations
	// and while resolving results, but not during the I/O loop.
	mu sync.Mutex

	columns []Column
	classes map[string]TypeClass

	layout    *ColumnLayout
	selection *Selection
	ledger    *ChangeLedger
	search    *SearchIndex

	containerHeight int
	scrollTop       int
	scrollLeft      int

	editing  bool
	editCell CellCoord // visible coordinates

	// generation guards an in-flight Save against a ledger that was
	// replaced by LoadPage or teardown while the save was running
	generation string
	saving     bool

	frame      *Frame
	frameDirty bool
}

// New creates an engine. Call LoadPage before anything else.
func New(config Config) *Engine {
	if config.RowHeight <= 0 {
		config.RowHeight = DefaultRowHeight
	}
	if config.Overscan <= 0 {
		config.Overscan = DefaultOverscan
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	e := &Engine{
		table:       config.Table,
		rowHeight:   config.RowHeight,
		overscan:    config.Overscan,
		persistence: config.Persistence,
		clipboard:   config.Clipboard,
		logger:      config.Logger,
		options:     config.Options,
		selection:   NewSelection(),
		frameDirty:  true,
	}
	e.ledger = NewChangeLedger(nil, true)
	return e
}

func (e *Engine) editable() bool {
	return !e.options.Has(OptionReadOnly)
}

// LoadPage replaces the loaded column and row state, resets the
// ledger and selection, and starts a fresh ledger generation.
// Column pin and width state survives for columns whose names match.
func (e *Engine) LoadPage(columns []Column, rows []Row) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.columns = columns
	e.classes = make(map[string]TypeClass, len(columns))
	for _, col := range columns {
		e.classes[col.Name] = ClassifyType(col.DeclaredType)
	}
	if e.layout == nil {
		e.layout = NewColumnLayout(columns, rows, e.editable())
	} else {
		e.layout.Adopt(columns, rows)
	}
	e.ledger = NewChangeLedger(rows, !e.options.Has(OptionKeepPristineEdits))
	e.ledger.SetValueNormalizer(e.storageValue)
	e.selection = NewSelection()
	e.search = nil
	e.editing = false
	e.generation = uuid.NewString()
	e.markDirty()
	e.logger.Info("page loaded",
		zap.String("table", e.table),
		zap.Int("columns", len(columns)),
		zap.Int("rows", len(rows)))
}

// Ledger returns the pending-change ledger of the current page.
// Direct ledger access is not synchronized with an in-flight Save;
// while Saving reports true, go through the engine's methods instead.
func (e *Engine) Ledger() *ChangeLedger { return e.ledger }

// Layout returns the column layout. Nil before the first LoadPage.
func (e *Engine) Layout() *ColumnLayout { return e.layout }

// Selection returns the selection state machine.
func (e *Engine) Selection() *Selection { return e.selection }

// Columns returns the loaded columns in load order.
func (e *Engine) Columns() []Column { return e.columns }

// PendingCount returns the number of pending changes, used for UI
// badges and to gate save/discard enablement.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.PendingCount()
}

// RowCount returns the number of visible rows
// (base rows minus deletions plus insertions).
func (e *Engine) RowCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.VisibleRowCount()
}

// --- Viewport & frame ---

// Resize updates the container height. Width is a pure host concern.
func (e *Engine) Resize(containerHeight int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if containerHeight == e.containerHeight {
		return
	}
	e.containerHeight = containerHeight
	e.markDirty()
}

// OnScroll updates the scroll position. Only the visible row window
// is re-materialized, the backing arrays are untouched.
func (e *Engine) OnScroll(scrollTop, scrollLeft int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if scrollTop == e.scrollTop && scrollLeft == e.scrollLeft {
		return
	}
	e.scrollTop = scrollTop
	e.scrollLeft = scrollLeft
	e.markDirty()
}

// ScrollTop returns the current vertical scroll offset. Search
// navigation moves it to center the target row.
func (e *Engine) ScrollTop() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scrollTop
}

func (e *Engine) markDirty() {
	e.frameDirty = true
}

// Frame returns the current render frame. It is recomputed at most
// once per burst of scroll or ledger events: repeated calls between
// mutations return the same memoized value, which is how event
// coalescing works without the engine owning a timer.
func (e *Engine) Frame() *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.frameDirty && e.frame != nil {
		return e.frame
	}
	refs := e.ledger.VisibleRefs()
	vp := ComputeViewport(e.scrollTop, e.rowHeight, e.containerHeight, len(refs), e.overscan)
	frame := &Frame{
		Viewport:   vp,
		Rows:       make([]FrameRow, 0, vp.RowCount()),
		ScrollLeft: e.scrollLeft,
	}
	for i := vp.StartIndex; i <= vp.EndIndex && i < len(refs); i++ {
		frame.Rows = append(frame.Rows, FrameRow{VisibleIndex: i, Ref: refs[i]})
	}
	if e.layout != nil {
		order := e.layout.DisplayOrder()
		frame.Columns = make([]ColumnView, 0, len(order))
		for _, name := range order {
			frame.Columns = append(frame.Columns, ColumnView{
				Column:     e.columnByName(name),
				Width:      e.layout.Width(name),
				Pinned:     e.layout.IsPinned(name),
				LeftOffset: e.layout.PinnedLeftOffset(name),
			})
		}
	}
	e.frame = frame
	e.frameDirty = false
	return frame
}

func (e *Engine) columnByName(name string) Column {
	for _, col := range e.columns {
		if col.Name == name {
			return col
		}
	}
	return Column{Name: name}
}

func (e *Engine) classOf(column string) TypeClass {
	return e.classes[column]
}

func (e *Engine) displayOrder() []string {
	if e.layout == nil {
		return nil
	}
	return e.layout.DisplayOrder()
}

func (e *Engine) refAt(visibleRow int) (RowRef, bool) {
	refs := e.ledger.VisibleRefs()
	if visibleRow < 0 || visibleRow >= len(refs) {
		return RowRef{}, false
	}
	return refs[visibleRow], true
}

// CellText returns the display string of a visible cell,
// formatted through the value codec.
func (e *Engine) CellText(c CellCoord) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cellText(c)
}

func (e *Engine) cellText(c CellCoord) string {
	ref, ok := e.refAt(c.Row)
	if !ok {
		return ""
	}
	return FormatValue(e.ledger.Value(ref, c.Col), e.classOf(c.Col))
}

// CellIsNull reports if a visible cell holds null, so the renderer
// can paint its NULL marker.
func (e *Engine) CellIsNull(c CellCoord) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ref, ok := e.refAt(c.Row)
	return ok && e.ledger.Value(ref, c.Col).IsNull()
}

// CellFlags returns the decoration flags of a visible cell.
func (e *Engine) CellFlags(c CellCoord) CellFlags {
	e.mu.Lock()
	defer e.mu.Unlock()
	var flags CellFlags
	if active, ok := e.selection.Active(); ok && active == c {
		flags |= FlagActive
	}
	if e.selection.IsSelected(c) {
		flags |= FlagSelected
	}
	if ref, ok := e.refAt(c.Row); ok && e.ledger.IsModified(ref, c.Col) {
		flags |= FlagModified
	}
	if e.search != nil && e.search.IsMatch(c) {
		flags |= FlagSearchMatch
		if current, ok := e.search.Current(); ok && current == c {
			flags |= FlagCurrentMatch
		}
	}
	if e.layout != nil && e.layout.IsPinned(c.Col) {
		flags |= FlagPinned
	}
	return flags
}

// --- Selection routing ---

// CellAction routes a primary pointer action on a cell to the
// selection state machine according to the held modifiers.
func (e *Engine) CellAction(c CellCoord, mods Modifiers) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case mods.Has(ModShift):
		e.selection.ShiftClick(c, e.displayOrder())
	case mods.Has(ModCtrl):
		e.selection.CtrlClick(c)
	default:
		e.selection.Click(c)
	}
}

// DragTo extends the drag selection to the hovered cell.
func (e *Engine) DragTo(c CellCoord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection.DragTo(c, e.displayOrder())
}

// EndDrag finishes a drag selection.
func (e *Engine) EndDrag() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection.EndDrag()
}

// RowGutterAction handles a click on the row number gutter,
// selecting or ctrl-toggling the whole row.
func (e *Engine) RowGutterAction(visibleRow int, mods Modifiers) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection.SelectRow(visibleRow, e.displayOrder(), mods.Has(ModCtrl))
}

// OutsideAction handles a click outside any cell: it clears the
// selection and exits edit mode, unless the click terminated a drag.
func (e *Engine) OutsideAction() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selection.ClickOutside() {
		e.editing = false
	}
}

// MoveActive moves the active cell by arrow key, clamped at the grid
// bounds. Ignored while editing.
func (e *Engine) MoveActive(dRow, dCol int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing {
		return
	}
	e.selection.MoveActive(dRow, dCol, e.ledger.VisibleRowCount(), e.displayOrder())
}

// TabMove moves the active cell in row-major order. Ignored while
// editing.
func (e *Engine) TabMove(backward bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing {
		return
	}
	e.selection.TabMove(backward, e.ledger.VisibleRowCount(), e.displayOrder())
}

// --- Editing ---

// BeginEdit opens the editor on a visible cell and returns the
// display text to seed the editor with.
func (e *Engine) BeginEdit(c CellCoord) (initialText string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editable() {
		return "", false
	}
	if _, ok := e.refAt(c.Row); !ok {
		return "", false
	}
	if columnIndex(e.displayOrder(), c.Col) < 0 {
		return "", false
	}
	e.editing = true
	e.editCell = c
	return e.cellText(c), true
}

// Editing returns the cell being edited, if any.
func (e *Engine) Editing() (CellCoord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editCell, e.editing
}

// CommitEdit closes the editor, parses the entered text through the
// value codec, and records the result in the ledger, routed to the
// insertion record when the row is a pending insertion.
func (e *Engine) CommitEdit(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return
	}
	e.editing = false
	ref, ok := e.refAt(e.editCell.Row)
	if !ok {
		return
	}
	value := ParseUserInput(text, e.classOf(e.editCell.Col))
	if ref.Inserted {
		e.ledger.UpdateInsertedRow(ref.InsertID, e.editCell.Col, value)
	} else {
		e.ledger.RecordEdit(ref.BaseIndex, e.editCell.Col, value)
	}
	e.markDirty()
}

// CancelEdit closes the editor without recording anything.
// The selection is left as is.
func (e *Engine) CancelEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editing = false
}

// --- Ledger operations ---

// InsertRow appends a pending new row seeded with nulls and returns
// its insertion id.
func (e *Engine) InsertRow() (insertID int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertRow()
}

func (e *Engine) insertRow() (insertID int, ok bool) {
	if !e.editable() {
		return 0, false
	}
	seed := make(Row, len(e.columns))
	for _, col := range e.columns {
		seed[col.Name] = Null()
	}
	id := e.ledger.InsertRow(seed)
	e.markDirty()
	return id, true
}

// DeleteSelection marks every row with a selected cell for deletion,
// routing base rows through the deletion set and pending insertions
// through direct removal.
func (e *Engine) DeleteSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editable() {
		return
	}
	var baseRows []int
	var insertIDs []int
	for visibleRow := range e.selection.Rows() {
		ref, ok := e.refAt(visibleRow)
		if !ok {
			continue
		}
		if ref.Inserted {
			insertIDs = append(insertIDs, ref.InsertID)
		} else {
			baseRows = append(baseRows, ref.BaseIndex)
		}
	}
	e.ledger.DeleteRows(baseRows)
	for _, id := range insertIDs {
		e.ledger.DeleteInsertedRow(id)
	}
	e.selection.Clear()
	e.editing = false
	e.markDirty()
}

// Discard drops all pending changes and closes any open editor.
func (e *Engine) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.Discard()
	e.editing = false
	e.markDirty()
}

// --- Search ---

// Search rebuilds the search index for a query over the visible rows.
func (e *Engine) Search(query string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.search = BuildSearchIndex(query, e.ledger.VisibleRowCount(), e.displayOrder(),
		func(row int, col string) CellValue {
			ref, _ := e.refAt(row)
			return e.ledger.Value(ref, col)
		})
	return e.search.MatchCount()
}

// SearchMatches returns the current search index, nil without a search.
func (e *Engine) SearchMatches() *SearchIndex {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.search
}

// NextMatch jumps to the next search match: the viewport scrolls to
// center the match row and the match cell becomes the active cell.
func (e *Engine) NextMatch() (CellCoord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.search == nil {
		return CellCoord{}, false
	}
	return e.jumpToMatch(e.search.Next())
}

// PrevMatch jumps to the previous search match.
func (e *Engine) PrevMatch() (CellCoord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.search == nil {
		return CellCoord{}, false
	}
	return e.jumpToMatch(e.search.Prev())
}

func (e *Engine) jumpToMatch(c CellCoord, ok bool) (CellCoord, bool) {
	if !ok {
		return CellCoord{}, false
	}
	e.selection.SetActive(c)
	e.scrollTop = CenteringScrollTop(c.Row, e.rowHeight, e.containerHeight)
	e.markDirty()
	return c, true
}

// --- Clipboard ---

// Copy serializes the current selection as tab/newline delimited text
// and writes it to the clipboard.
func (e *Engine) Copy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clipboard == nil {
		return ErrNoClipboard
	}
	text := serializeSelection(e.selection.selected, e.displayOrder(), e.cellText)
	return e.clipboard.WriteText(text)
}

// Paste reads the clipboard and applies it as a block of cell updates
// anchored at the active cell. When the block extends past the last
// row, exactly the needed number of rows is inserted first, then the
// updates are applied: grow, then write.
func (e *Engine) Paste() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editable() {
		return ErrReadOnly
	}
	if e.clipboard == nil {
		return ErrNoClipboard
	}
	anchor, ok := e.selection.Active()
	if !ok {
		return nil
	}
	text, err := e.clipboard.ReadText()
	if err != nil {
		return err
	}
	order := e.displayOrder()
	anchorCol := columnIndex(order, anchor.Col)
	if anchorCol < 0 {
		return nil
	}
	updates, neededNewRows := parsePaste(text, anchor.Row, e.ledger.VisibleRowCount())
	for i := 0; i < neededNewRows; i++ {
		e.insertRow()
	}
	for _, update := range updates {
		colIdx := anchorCol + update.ColOffset
		if colIdx >= len(order) {
			continue
		}
		col := order[colIdx]
		ref, ok := e.refAt(anchor.Row + update.RowOffset)
		if !ok {
			continue
		}
		value := ParseUserInput(update.Text, e.classOf(col))
		if ref.Inserted {
			e.ledger.UpdateInsertedRow(ref.InsertID, col, value)
		} else {
			e.ledger.RecordEdit(ref.BaseIndex, col, value)
		}
	}
	e.markDirty()
	return nil
}

// --- Save ---

// Saving reports if a Save is in flight. Hosts disable further
// Save/Discard/page navigation while true; read-only interaction
// stays allowed.
func (e *Engine) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// Save builds the write operations from the ledger and applies them
// through the Persistence collaborator in delete, update, insert
// order, one at a time. The engine lock is released while the
// operations run, so Save may be called from its own goroutine and
// the UI thread keeps scrolling, selecting, and searching meanwhile.
//
// Save is not atomic: operations before a failing one have already
// taken effect remotely. Succeeded entries are removed from the
// ledger and failed entries stay, so retrying is just calling Save
// again. A partial failure returns the summary together with a
// *PartialSaveError.
//
// If LoadPage replaced the ledger while the save was in flight, the
// result is discarded: no ledger generation other than the one the
// save was issued against is ever mutated.
func (e *Engine) Save(ctx context.Context) (SaveSummary, error) {
	if !e.editable() {
		return SaveSummary{}, ErrReadOnly
	}
	if e.persistence == nil {
		return SaveSummary{}, ErrNoPersistence
	}

	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return SaveSummary{}, ErrSaveInProgress
	}
	pkColumn, err := primaryKeyColumn(e.columns)
	if err != nil {
		e.mu.Unlock()
		return SaveSummary{}, err
	}
	ledger := e.ledger
	generation := e.generation
	ops, err := ledger.BuildWriteOperations(e.table, pkColumn, e.columns)
	if err != nil {
		e.mu.Unlock()
		return SaveSummary{}, err
	}
	storage := make([]WriteOp, len(ops))
	for i, op := range ops {
		storage[i] = e.toStorage(op)
	}
	e.saving = true
	e.mu.Unlock()

	var (
		summary   SaveSummary
		failures  []OpFailure
		succeeded []WriteOp
	)
	for i, op := range ops {
		err := e.persistence.ApplyWrite(ctx, storage[i])
		switch {
		case err == nil && op.Kind == WriteDelete:
			summary.Deleted++
		case err == nil && op.Kind == WriteUpdate:
			summary.Updated++
		case err == nil:
			summary.Inserted++
		case op.Kind == WriteDelete:
			summary.DeleteFailed++
		case op.Kind == WriteUpdate:
			summary.UpdateFailed++
		default:
			summary.InsertFailed++
		}
		if err != nil {
			failures = append(failures, OpFailure{Op: op, Err: err})
		} else {
			succeeded = append(succeeded, op)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false

	if e.generation != generation {
		// The grid was reloaded or torn down while the save was in
		// flight. The remote writes happened, but this ledger is dead.
		e.logger.Warn("save result discarded, ledger generation changed",
			zap.String("table", e.table))
		return summary, nil
	}

	for _, op := range succeeded {
		switch op.Kind {
		case WriteDelete:
			ledger.resolveDelete(op.BaseIndex)
		case WriteUpdate:
			ledger.resolveEdit(op.BaseIndex)
		case WriteInsert:
			ledger.resolveInsert(op.InsertID)
		}
	}
	e.markDirty()

	e.logger.Info("save finished",
		zap.String("table", e.table),
		zap.Int("deleted", summary.Deleted),
		zap.Int("updated", summary.Updated),
		zap.Int("inserted", summary.Inserted),
		zap.Int("failed", len(failures)))

	if len(failures) > 0 {
		return summary, &PartialSaveError{Summary: summary, Failures: failures}
	}
	return summary, nil
}

// toStorage converts ledger values from canonical display form to the
// wire form the persistence layer expects.
func (e *Engine) toStorage(op WriteOp) WriteOp {
	if len(op.Changes) > 0 {
		changes := make(map[string]CellValue, len(op.Changes))
		for col, v := range op.Changes {
			changes[col] = e.storageValue(col, v)
		}
		op.Changes = changes
	}
	if len(op.Values) > 0 {
		values := make([]CellValue, len(op.Values))
		for i, v := range op.Values {
			values[i] = e.storageValue(op.Columns[i], v)
		}
		op.Values = values
	}
	return op
}

func (e *Engine) storageValue(column string, v CellValue) CellValue {
	class := e.classOf(column)
	if class == ClassPlain || v.Kind() != KindText {
		return v
	}
	return Text(StorageFormat(v.Text(), class))
}
