// Package pggrid implements the datagrid Persistence collaborator
// on top of pgx.
package pggrid

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	datagrid "github.com/domonda/go-datagrid"
	"github.com/domonda/go-datagrid/sqlgrid"
)

// Execer is the subset of pgx that the writer needs,
// satisfied by *pgx.Conn and *pgxpool.Pool alike.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Writer applies write operations through a pgx connection or pool.
type Writer struct {
	db Execer
}

func NewWriter(db Execer) *Writer {
	return &Writer{db: db}
}

// ApplyWrite implements datagrid.Persistence.
//
// Deletes and updates address exactly one row by primary key; a
// command tag reporting zero affected rows means the row vanished
// underneath the grid and is reported as an error so the ledger
// entry is retained for retry.
func (w *Writer) ApplyWrite(ctx context.Context, op datagrid.WriteOp) error {
	query, args, err := sqlgrid.BuildStatement(sqlgrid.Postgres, op)
	if err != nil {
		return err
	}
	tag, err := w.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op.Kind, op.Table, err)
	}
	if op.Kind != datagrid.WriteInsert && tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: row %v no longer exists", op.Kind, op.Table, op.PKValue)
	}
	return nil
}
