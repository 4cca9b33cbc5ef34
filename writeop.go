package datagrid

import (
	"context"
	"strconv"
)

// WriteKind enumerates the three write operation kinds in the order
// they are applied: deletes, then updates, then inserts.
type WriteKind uint8

const (
	WriteDelete WriteKind = iota
	WriteUpdate
	WriteInsert
)

func (k WriteKind) String() string {
	switch k {
	case WriteDelete:
		return "Delete"
	case WriteUpdate:
		return "Update"
	case WriteInsert:
		return "Insert"
	}
	return "Invalid(" + strconv.Itoa(int(k)) + ")"
}

// WriteOp is one single-row write operation built from the ledger.
//
// Deletes and updates address their row through PKColumn/PKValue,
// inserts carry the parallel Columns/Values slices of their non-empty
// seed values. BaseIndex and InsertID point back at the ledger entry
// the operation came from, so a failed operation's entry can be kept
// for retry.
type WriteOp struct {
	Kind     WriteKind
	Table    string
	PKColumn string
	PKValue  CellValue

	// update only
	Changes map[string]CellValue

	// insert only
	Columns []string
	Values  []CellValue

	BaseIndex int // ledger key of a delete or update
	InsertID  int // ledger key of an insert
}

// Persistence is the transport collaborator that applies write
// operations to the backing store. ApplyWrite is called once per
// operation in ledger emission order; errors are per operation,
// never batched.
type Persistence interface {
	ApplyWrite(ctx context.Context, op WriteOp) error
}

// PersistenceFunc implements Persistence for a function.
type PersistenceFunc func(ctx context.Context, op WriteOp) error

func (f PersistenceFunc) ApplyWrite(ctx context.Context, op WriteOp) error {
	return f(ctx, op)
}
