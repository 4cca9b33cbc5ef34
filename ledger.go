package datagrid

import "sort"

// InsertedRow is a pending new row with a stable insertion id
// separate from base row indices.
type InsertedRow struct {
	ID     int
	Values Row
}

// RowRef identifies the backing storage of a visible row:
// either a base row of the loaded page or a pending insertion.
type RowRef struct {
	BaseIndex int // valid when !Inserted
	InsertID  int // valid when Inserted
	Inserted  bool
}

// ChangeLedger records cell edits, row deletions, and new row
// insertions against the base snapshot of the loaded page.
//
// Base row indices are the ledger's keys and stay stable for the
// lifetime of the page: deleting rows never renumbers anything.
// Deletion wins over edit, deleting a row drops any edits recorded
// against the same base index. Insertions are append-only with
// monotonically increasing ids and are mutated or removed directly,
// never routed through the edit or deletion records.
type ChangeLedger struct {
	base          []Row
	edits         map[int]Row
	deletions     map[int]struct{}
	insertions    []InsertedRow
	nextInsertID  int
	elidePristine bool
	normalize     func(column string, value CellValue) CellValue

	visible []RowRef // memoized, nil when dirty
}

// NewChangeLedger creates an empty ledger over the base row snapshot.
// With elidePristine, recording an edit equal to the pristine value
// removes the edit instead, keeping the diff free of no-op writes.
func NewChangeLedger(base []Row, elidePristine bool) *ChangeLedger {
	return &ChangeLedger{
		base:          base,
		edits:         make(map[int]Row),
		deletions:     make(map[int]struct{}),
		elidePristine: elidePristine,
	}
}

// BaseRowCount returns the number of rows in the base snapshot.
func (l *ChangeLedger) BaseRowCount() int { return len(l.base) }

// SetValueNormalizer installs a per-column normalization applied to
// both sides of the pristine comparison before eliding an edit.
// Needed when base values and edited values arrive in different but
// equivalent textual forms, like stored versus display date formats.
// Recorded values are stored as passed, only equality is affected.
func (l *ChangeLedger) SetValueNormalizer(f func(column string, value CellValue) CellValue) {
	l.normalize = f
}

// pristineEqual reports if value equals the pristine base value of the
// cell, directly or after normalizing both sides.
func (l *ChangeLedger) pristineEqual(rowIndex int, column string, value CellValue) bool {
	base := l.base[rowIndex][column]
	if base.Equal(value) {
		return true
	}
	if l.normalize == nil {
		return false
	}
	return l.normalize(column, base).Equal(l.normalize(column, value))
}

// RecordEdit records a new value for a cell of a base row.
// Edits against deleted or out-of-range rows are ignored.
func (l *ChangeLedger) RecordEdit(rowIndex int, column string, value CellValue) {
	if rowIndex < 0 || rowIndex >= len(l.base) {
		return
	}
	if _, deleted := l.deletions[rowIndex]; deleted {
		return
	}
	defer l.invalidate()
	if l.elidePristine && l.pristineEqual(rowIndex, column, value) {
		if rowEdits, ok := l.edits[rowIndex]; ok {
			delete(rowEdits, column)
			if len(rowEdits) == 0 {
				delete(l.edits, rowIndex)
			}
		}
		return
	}
	rowEdits, ok := l.edits[rowIndex]
	if !ok {
		rowEdits = make(Row)
		l.edits[rowIndex] = rowEdits
	}
	rowEdits[column] = value
}

// DeleteRow marks a base row for deletion and drops any edits
// recorded against it.
func (l *ChangeLedger) DeleteRow(rowIndex int) {
	if rowIndex < 0 || rowIndex >= len(l.base) {
		return
	}
	l.deletions[rowIndex] = struct{}{}
	delete(l.edits, rowIndex)
	l.invalidate()
}

// DeleteRows marks multiple base rows for deletion.
func (l *ChangeLedger) DeleteRows(rowIndices []int) {
	for _, i := range rowIndices {
		l.DeleteRow(i)
	}
}

// InsertRow appends a pending new row and returns its insertion id.
// A nil seed inserts an all-null row.
func (l *ChangeLedger) InsertRow(seed Row) int {
	if seed == nil {
		seed = make(Row)
	}
	id := l.nextInsertID
	l.nextInsertID++
	l.insertions = append(l.insertions, InsertedRow{ID: id, Values: seed})
	l.invalidate()
	return id
}

// UpdateInsertedRow sets a cell of a pending insertion.
func (l *ChangeLedger) UpdateInsertedRow(insertID int, column string, value CellValue) bool {
	for _, ins := range l.insertions {
		if ins.ID == insertID {
			ins.Values[column] = value
			l.invalidate()
			return true
		}
	}
	return false
}

// DeleteInsertedRow removes a pending insertion outright.
func (l *ChangeLedger) DeleteInsertedRow(insertID int) bool {
	for i, ins := range l.insertions {
		if ins.ID == insertID {
			l.insertions = append(l.insertions[:i], l.insertions[i+1:]...)
			l.invalidate()
			return true
		}
	}
	return false
}

// Discard clears all pending edits, deletions, and insertions.
// The base row snapshot is untouched.
func (l *ChangeLedger) Discard() {
	l.edits = make(map[int]Row)
	l.deletions = make(map[int]struct{})
	l.insertions = nil
	l.invalidate()
}

// PendingCount returns the number of pending changes:
// edited rows plus deletions plus insertions.
func (l *ChangeLedger) PendingCount() int {
	return len(l.edits) + len(l.deletions) + len(l.insertions)
}

// IsDeleted reports if a base row is marked for deletion.
func (l *ChangeLedger) IsDeleted(rowIndex int) bool {
	_, ok := l.deletions[rowIndex]
	return ok
}

// EditAt returns the pending edit for a base row cell, if any.
func (l *ChangeLedger) EditAt(rowIndex int, column string) (CellValue, bool) {
	v, ok := l.edits[rowIndex][column]
	return v, ok
}

// Insertions returns the pending insertions in insertion order.
// The result must not be modified.
func (l *ChangeLedger) Insertions() []InsertedRow { return l.insertions }

// InsertedRowByID returns the values of a pending insertion.
func (l *ChangeLedger) InsertedRowByID(insertID int) (Row, bool) {
	for _, ins := range l.insertions {
		if ins.ID == insertID {
			return ins.Values, true
		}
	}
	return nil, false
}

// Value resolves the current value of a cell through the ledger:
// pending insertion values for inserted rows, otherwise the pending
// edit if present, otherwise the pristine base value.
func (l *ChangeLedger) Value(ref RowRef, column string) CellValue {
	if ref.Inserted {
		values, _ := l.InsertedRowByID(ref.InsertID)
		return values[column]
	}
	if v, ok := l.EditAt(ref.BaseIndex, column); ok {
		return v
	}
	if ref.BaseIndex < 0 || ref.BaseIndex >= len(l.base) {
		return Null()
	}
	return l.base[ref.BaseIndex][column]
}

// IsModified reports if a cell carries a pending edit, or belongs
// to a pending insertion.
func (l *ChangeLedger) IsModified(ref RowRef, column string) bool {
	if ref.Inserted {
		return true
	}
	_, ok := l.EditAt(ref.BaseIndex, column)
	return ok
}

// VisibleRefs returns the derived visible row sequence: base rows
// minus deletions, followed by insertions. Memoized until the next
// ledger mutation.
func (l *ChangeLedger) VisibleRefs() []RowRef {
	if l.visible != nil {
		return l.visible
	}
	refs := make([]RowRef, 0, len(l.base)-len(l.deletions)+len(l.insertions))
	for i := range l.base {
		if _, deleted := l.deletions[i]; !deleted {
			refs = append(refs, RowRef{BaseIndex: i})
		}
	}
	for _, ins := range l.insertions {
		refs = append(refs, RowRef{InsertID: ins.ID, Inserted: true})
	}
	l.visible = refs
	return refs
}

// VisibleRowCount returns the number of visible rows.
func (l *ChangeLedger) VisibleRowCount() int {
	return len(l.VisibleRefs())
}

func (l *ChangeLedger) invalidate() { l.visible = nil }

// BuildWriteOperations turns the ledger into the minimal ordered
// sequence of write operations: deletes first, then updates, then
// inserts, each delete and update keyed by the primary key value of
// its base row. Insert operations include only columns with
// non-null, non-empty seed values.
//
// Returns ErrNoPrimaryKey when pkColumn is empty.
func (l *ChangeLedger) BuildWriteOperations(table, pkColumn string, columns []Column) ([]WriteOp, error) {
	if pkColumn == "" {
		return nil, ErrNoPrimaryKey
	}
	ops := make([]WriteOp, 0, l.PendingCount())

	deletions := make([]int, 0, len(l.deletions))
	for i := range l.deletions {
		deletions = append(deletions, i)
	}
	sort.Ints(deletions)
	for _, i := range deletions {
		ops = append(ops, WriteOp{
			Kind:      WriteDelete,
			Table:     table,
			PKColumn:  pkColumn,
			PKValue:   l.base[i][pkColumn],
			BaseIndex: i,
		})
	}

	edited := make([]int, 0, len(l.edits))
	for i := range l.edits {
		edited = append(edited, i)
	}
	sort.Ints(edited)
	for _, i := range edited {
		ops = append(ops, WriteOp{
			Kind:      WriteUpdate,
			Table:     table,
			PKColumn:  pkColumn,
			PKValue:   l.base[i][pkColumn],
			Changes:   l.edits[i].Clone(),
			BaseIndex: i,
		})
	}

	for _, ins := range l.insertions {
		op := WriteOp{
			Kind:     WriteInsert,
			Table:    table,
			InsertID: ins.ID,
		}
		for _, col := range columns {
			if v := ins.Values[col.Name]; !v.IsNullOrEmpty() {
				op.Columns = append(op.Columns, col.Name)
				op.Values = append(op.Values, v)
			}
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// resolve* drop the ledger entry behind a successfully applied
// operation, leaving failed entries in place for retry.

func (l *ChangeLedger) resolveDelete(baseIndex int) {
	delete(l.deletions, baseIndex)
	l.invalidate()
}

func (l *ChangeLedger) resolveEdit(baseIndex int) {
	delete(l.edits, baseIndex)
	l.invalidate()
}

func (l *ChangeLedger) resolveInsert(insertID int) {
	l.DeleteInsertedRow(insertID)
}
