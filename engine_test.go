package datagrid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingPersistence struct {
	ops  []WriteOp
	fail func(op WriteOp) error
}

func (p *recordingPersistence) ApplyWrite(ctx context.Context, op WriteOp) error {
	p.ops = append(p.ops, op)
	if p.fail != nil {
		return p.fail(op)
	}
	return nil
}

type fakeClipboard struct {
	text string
}

func (c *fakeClipboard) ReadText() (string, error) { return c.text, nil }
func (c *fakeClipboard) WriteText(text string) error {
	c.text = text
	return nil
}

func newTestEngine(t *testing.T, persistence Persistence, clipboard ClipboardPort) *Engine {
	t.Helper()
	e := New(Config{
		Table:       "people",
		Persistence: persistence,
		Clipboard:   clipboard,
	})
	e.LoadPage(
		[]Column{
			{Name: "id", DeclaredType: "integer", IsPrimaryKey: true},
			{Name: "name", DeclaredType: "varchar(100)"},
		},
		[]Row{
			{"id": Int(1), "name": Text("a")},
			{"id": Int(2), "name": Text("b")},
		},
	)
	e.Resize(280)
	return e
}

func TestEndToEndEditDeleteInsertSave(t *testing.T) {
	persistence := &recordingPersistence{}
	e := newTestEngine(t, persistence, nil)

	// edit row 0's name to "aa"
	initial, ok := e.BeginEdit(CellCoord{Row: 0, Col: "name"})
	require.True(t, ok)
	require.Equal(t, "a", initial)
	e.CommitEdit("aa")

	// delete row 1
	e.CellAction(CellCoord{Row: 1, Col: "name"}, 0)
	e.EndDrag()
	e.DeleteSelection()
	require.Equal(t, 1, e.RowCount())

	// insert a new row {id:3, name:"c"}
	_, ok = e.InsertRow()
	require.True(t, ok)
	require.Equal(t, 2, e.RowCount())
	_, ok = e.BeginEdit(CellCoord{Row: 1, Col: "id"})
	require.True(t, ok)
	e.CommitEdit("3")
	_, _ = e.BeginEdit(CellCoord{Row: 1, Col: "name"})
	e.CommitEdit("c")

	require.Equal(t, 3, e.PendingCount())

	summary, err := e.Save(context.Background())
	require.NoError(t, err)
	require.Equal(t, SaveSummary{Deleted: 1, Updated: 1, Inserted: 1}, summary)
	require.Equal(t, 0, e.PendingCount())

	require.Len(t, persistence.ops, 3)
	require.Equal(t, WriteDelete, persistence.ops[0].Kind)
	require.Equal(t, Int(2), persistence.ops[0].PKValue)
	require.Equal(t, WriteUpdate, persistence.ops[1].Kind)
	require.Equal(t, Int(1), persistence.ops[1].PKValue)
	require.Equal(t, map[string]CellValue{"name": Text("aa")}, persistence.ops[1].Changes)
	require.Equal(t, WriteInsert, persistence.ops[2].Kind)
	require.Equal(t, []string{"id", "name"}, persistence.ops[2].Columns)
	require.Equal(t, []CellValue{Text("3"), Text("c")}, persistence.ops[2].Values)
}

func TestSavePartialFailureRetainsFailedEntries(t *testing.T) {
	persistence := &recordingPersistence{
		fail: func(op WriteOp) error {
			if op.Kind == WriteUpdate {
				return errors.New("deadlock")
			}
			return nil
		},
	}
	e := newTestEngine(t, persistence, nil)

	_, _ = e.BeginEdit(CellCoord{Row: 0, Col: "name"})
	e.CommitEdit("aa")
	e.CellAction(CellCoord{Row: 1, Col: "id"}, 0)
	e.EndDrag()
	e.DeleteSelection()

	summary, err := e.Save(context.Background())
	var partial *PartialSaveError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, SaveSummary{Deleted: 1, UpdateFailed: 1}, summary)
	require.Len(t, partial.Failures, 1)

	// the failed edit is still pending, the succeeded delete is not
	require.Equal(t, 1, e.PendingCount())
	_, stillPending := e.Ledger().EditAt(0, "name")
	require.True(t, stillPending)
	require.False(t, e.Ledger().IsDeleted(1))

	// retry is just calling Save again
	persistence.fail = nil
	summary, err = e.Save(context.Background())
	require.NoError(t, err)
	require.Equal(t, SaveSummary{Updated: 1}, summary)
	require.Equal(t, 0, e.PendingCount())
}

func TestSaveDiscardsResultAfterReload(t *testing.T) {
	var e *Engine
	persistence := PersistenceFunc(func(ctx context.Context, op WriteOp) error {
		// the host navigates away mid-save
		e.LoadPage(e.Columns(), []Row{{"id": Int(9), "name": Text("z")}})
		return nil
	})
	e = newTestEngine(t, persistence, nil)

	e.CellAction(CellCoord{Row: 0, Col: "id"}, 0)
	e.EndDrag()
	e.DeleteSelection()

	_, err := e.Save(context.Background())
	require.NoError(t, err)
	// the reloaded ledger must not have been touched by the stale save
	require.Equal(t, 0, e.PendingCount())
	require.Equal(t, 1, e.RowCount())
}

func TestSaveWithoutPrimaryKeyColumns(t *testing.T) {
	e := New(Config{Table: "t", Persistence: &recordingPersistence{}})
	e.LoadPage(nil, nil)
	_, err := e.Save(context.Background())
	require.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestSaveAppliesStorageFormat(t *testing.T) {
	persistence := &recordingPersistence{}
	e := New(Config{Table: "events", Persistence: persistence})
	e.LoadPage(
		[]Column{
			{Name: "id", DeclaredType: "integer", IsPrimaryKey: true},
			{Name: "at", DeclaredType: "datetime"},
		},
		[]Row{{"id": Int(1), "at": Text("2025-01-01 00:00:00")}},
	)
	_, ok := e.BeginEdit(CellCoord{Row: 0, Col: "at"})
	require.True(t, ok)
	e.CommitEdit("2025/12/29 14:30")

	_, err := e.Save(context.Background())
	require.NoError(t, err)
	require.Len(t, persistence.ops, 1)
	require.Equal(t, Text("2025-12-29 14:30:00"), persistence.ops[0].Changes["at"])
}

func TestCopySerializesSelection(t *testing.T) {
	clipboard := &fakeClipboard{}
	e := newTestEngine(t, nil, clipboard)

	e.CellAction(CellCoord{Row: 0, Col: "id"}, 0)
	e.DragTo(CellCoord{Row: 1, Col: "name"})
	e.EndDrag()

	require.NoError(t, e.Copy())
	require.Equal(t, "1\ta\n2\tb", clipboard.text)
}

func TestPasteGrowsRowsThenWrites(t *testing.T) {
	clipboard := &fakeClipboard{text: "x1\ty1\nx2\ty2\nx3\ty3"}
	e := newTestEngine(t, nil, clipboard)

	// anchor at the last row's first column
	e.CellAction(CellCoord{Row: 1, Col: "id"}, 0)
	e.EndDrag()

	require.NoError(t, e.Paste())

	// a 3-row block pasted at the last of 2 rows grows the grid by 2
	require.Equal(t, 4, e.RowCount())
	require.Len(t, e.Ledger().Insertions(), 2)

	// base row got an edit, the new rows carry insertion values
	require.Equal(t, "x1", e.CellText(CellCoord{Row: 1, Col: "id"}))
	require.Equal(t, "y1", e.CellText(CellCoord{Row: 1, Col: "name"}))
	require.Equal(t, "x2", e.CellText(CellCoord{Row: 2, Col: "id"}))
	require.Equal(t, "y3", e.CellText(CellCoord{Row: 3, Col: "name"}))
}

func TestPasteEmptyFieldBecomesNull(t *testing.T) {
	clipboard := &fakeClipboard{text: "\tonly"}
	e := newTestEngine(t, nil, clipboard)
	e.CellAction(CellCoord{Row: 0, Col: "id"}, 0)
	e.EndDrag()

	require.NoError(t, e.Paste())
	require.True(t, e.CellIsNull(CellCoord{Row: 0, Col: "id"}))
	require.Equal(t, "only", e.CellText(CellCoord{Row: 0, Col: "name"}))
}

func TestFrameMaterializesVisibleWindowOnly(t *testing.T) {
	e := New(Config{Table: "big", RowHeight: 28, Overscan: 5})
	rows := make([]Row, 1000)
	for i := range rows {
		rows[i] = Row{"id": Int(int64(i))}
	}
	e.LoadPage([]Column{{Name: "id", IsPrimaryKey: true}}, rows)
	e.Resize(280)
	e.OnScroll(2800, 0)

	frame := e.Frame()
	require.Equal(t, 95, frame.Viewport.StartIndex)
	require.Equal(t, 115, frame.Viewport.EndIndex)
	require.Len(t, frame.Rows, 21)
	require.Equal(t, 95, frame.Rows[0].VisibleIndex)
	require.Equal(t, RowRef{BaseIndex: 95}, frame.Rows[0].Ref)

	// memoized until scroll or ledger mutation
	require.Same(t, frame, e.Frame())
	e.OnScroll(2800, 0)
	require.Same(t, frame, e.Frame(), "no-op scroll does not invalidate")
	e.OnScroll(2828, 0)
	require.NotSame(t, frame, e.Frame())
}

func TestFrameCellFlags(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.Layout().TogglePin("name")

	e.CellAction(CellCoord{Row: 0, Col: "name"}, 0)
	e.EndDrag()
	_, _ = e.BeginEdit(CellCoord{Row: 0, Col: "name"})
	e.CommitEdit("renamed")

	e.Search("renamed")
	_, ok := e.NextMatch()
	require.True(t, ok)

	flags := e.CellFlags(CellCoord{Row: 0, Col: "name"})
	require.True(t, flags.Has(FlagActive))
	require.True(t, flags.Has(FlagSelected))
	require.True(t, flags.Has(FlagModified))
	require.True(t, flags.Has(FlagSearchMatch))
	require.True(t, flags.Has(FlagCurrentMatch))
	require.True(t, flags.Has(FlagPinned))

	require.False(t, e.CellFlags(CellCoord{Row: 1, Col: "name"}).Has(FlagSelected))
}

func TestSearchNavigationCentersRow(t *testing.T) {
	e := New(Config{Table: "big", RowHeight: 28, Overscan: 5})
	rows := make([]Row, 200)
	for i := range rows {
		rows[i] = Row{"id": Int(int64(i)), "name": Text("row")}
	}
	rows[100]["name"] = Text("needle")
	e.LoadPage([]Column{{Name: "id", IsPrimaryKey: true}, {Name: "name"}}, rows)
	e.Resize(280)

	require.Equal(t, 1, e.Search("needle"))
	match, ok := e.NextMatch()
	require.True(t, ok)
	require.Equal(t, CellCoord{Row: 100, Col: "name"}, match)
	require.Equal(t, 100*28-140, e.ScrollTop())

	active, _ := e.Selection().Active()
	require.Equal(t, match, active)
}

func TestReadOnlyEngine(t *testing.T) {
	e := New(Config{Table: "t", Options: OptionReadOnly})
	e.LoadPage([]Column{{Name: "id", IsPrimaryKey: true}}, []Row{{"id": Int(1)}})

	_, ok := e.BeginEdit(CellCoord{Row: 0, Col: "id"})
	require.False(t, ok)
	_, ok = e.InsertRow()
	require.False(t, ok)
	_, err := e.Save(context.Background())
	require.ErrorIs(t, err, ErrReadOnly)
	require.ErrorIs(t, e.Paste(), ErrReadOnly)
}

func TestDiscardClearsEverything(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	_, _ = e.BeginEdit(CellCoord{Row: 0, Col: "name"})
	e.CommitEdit("zz")
	_, _ = e.InsertRow()
	require.Equal(t, 2, e.PendingCount())

	e.Discard()
	require.Equal(t, 0, e.PendingCount())
	require.Equal(t, 2, e.RowCount())
	_, editing := e.Editing()
	require.False(t, editing)
}

func TestCancelEditRecordsNothing(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	_, ok := e.BeginEdit(CellCoord{Row: 0, Col: "name"})
	require.True(t, ok)
	e.CancelEdit()
	require.Equal(t, 0, e.PendingCount())
	require.Equal(t, "a", e.CellText(CellCoord{Row: 0, Col: "name"}))
}

func TestLoadPagePreservesLayoutByName(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.Layout().TogglePin("name")
	e.Layout().SetWidth("id", 300)

	e.LoadPage(e.Columns(), []Row{{"id": Int(7), "name": Text("x")}})
	require.True(t, e.Layout().IsPinned("name"))
	require.Equal(t, 300, e.Layout().Width("id"))
	require.Equal(t, 0, e.PendingCount())
	_, hasActive := e.Selection().Active()
	require.False(t, hasActive, "selection resets on page load")
}

// Scroll, frame, and search reads run on one goroutine while Save
// performs its I/O on another; run with -race to verify the engine
// lock keeps the ledger and frame state consistent throughout.
func TestConcurrentReadsDuringSave(t *testing.T) {
	readerRunning := make(chan struct{})
	persistence := PersistenceFunc(func(ctx context.Context, op WriteOp) error {
		<-readerRunning
		return nil
	})
	e := newTestEngine(t, persistence, nil)

	_, ok := e.BeginEdit(CellCoord{Row: 0, Col: "name"})
	require.True(t, ok)
	e.CommitEdit("aa")
	e.CellAction(CellCoord{Row: 1, Col: "id"}, 0)
	e.EndDrag()
	e.DeleteSelection()
	_, ok = e.InsertRow()
	require.True(t, ok)
	_, _ = e.BeginEdit(CellCoord{Row: 1, Col: "id"})
	e.CommitEdit("3")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		started := false
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			e.OnScroll(i%300, 0)
			e.Frame()
			e.CellText(CellCoord{Row: 0, Col: "name"})
			e.Search("a")
			if !started {
				started = true
				close(readerRunning)
			}
		}
	}()

	summary, err := e.Save(context.Background())
	close(stop)
	<-done

	require.NoError(t, err)
	require.Equal(t, SaveSummary{Deleted: 1, Updated: 1, Inserted: 1}, summary)
	require.Equal(t, 0, e.PendingCount())
}

func TestCommitUnchangedDateElided(t *testing.T) {
	e := New(Config{Table: "events"})
	e.LoadPage(
		[]Column{
			{Name: "id", DeclaredType: "INTEGER", IsPrimaryKey: true},
			{Name: "at", DeclaredType: "DATETIME"},
		},
		[]Row{{"id": Int(1), "at": Text("2025-12-29 14:30:00")}},
	)

	// the editor is seeded with display form while the base value
	// holds storage form; retyping it unchanged must not dirty the row
	initial, ok := e.BeginEdit(CellCoord{Row: 0, Col: "at"})
	require.True(t, ok)
	require.Equal(t, "2025/12/29 14:30:00", initial)
	e.CommitEdit(initial)
	require.Equal(t, 0, e.PendingCount())

	_, _ = e.BeginEdit(CellCoord{Row: 0, Col: "at"})
	e.CommitEdit("2025/12/30 14:30:00")
	require.Equal(t, 1, e.PendingCount())
}
