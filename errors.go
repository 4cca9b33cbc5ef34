package datagrid

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPrimaryKey is returned by write-operation building when
	// no column can serve as row identity. Fatal to Save, recoverable
	// once the host resolves a primary key.
	ErrNoPrimaryKey = errors.New("no primary key column")

	// ErrSaveInProgress is returned when Save is called while a
	// previous Save has not resolved yet.
	ErrSaveInProgress = errors.New("save already in progress")

	// ErrReadOnly is returned by mutating operations of an engine
	// created with OptionReadOnly.
	ErrReadOnly = errors.New("grid is read-only")

	// ErrNoClipboard is returned by Copy/Paste when no ClipboardPort
	// was configured.
	ErrNoClipboard = errors.New("no clipboard configured")

	// ErrNoPersistence is returned by Save when no Persistence
	// collaborator was configured.
	ErrNoPersistence = errors.New("no persistence configured")
)

// OpFailure records one failed write operation and its cause.
type OpFailure struct {
	Op  WriteOp
	Err error
}

// PartialSaveError reports a Save that applied some but not all
// pending operations. The ledger retains exactly the failed entries,
// so calling Save again retries only those.
type PartialSaveError struct {
	Summary  SaveSummary
	Failures []OpFailure
}

func (e *PartialSaveError) Error() string {
	return fmt.Sprintf(
		"partial save: %d/%d deletes, %d/%d updates, %d/%d inserts succeeded",
		e.Summary.Deleted, e.Summary.Deleted+e.Summary.DeleteFailed,
		e.Summary.Updated, e.Summary.Updated+e.Summary.UpdateFailed,
		e.Summary.Inserted, e.Summary.Inserted+e.Summary.InsertFailed,
	)
}

// Unwrap exposes the first underlying cause for errors.Is checks.
func (e *PartialSaveError) Unwrap() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[0].Err
}

// SaveSummary counts applied and failed operations per kind.
type SaveSummary struct {
	Deleted      int
	DeleteFailed int
	Updated      int
	UpdateFailed int
	Inserted     int
	InsertFailed int
}

// Failed reports if any operation failed.
func (s SaveSummary) Failed() bool {
	return s.DeleteFailed > 0 || s.UpdateFailed > 0 || s.InsertFailed > 0
}
