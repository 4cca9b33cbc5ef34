package sqlgrid

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	datagrid "github.com/domonda/go-datagrid"
)

func TestBuildStatement(t *testing.T) {
	update := datagrid.WriteOp{
		Kind:     datagrid.WriteUpdate,
		Table:    "people",
		PKColumn: "id",
		PKValue:  datagrid.Int(7),
		Changes: map[string]datagrid.CellValue{
			"name": datagrid.Text("x"),
			"age":  datagrid.Int(30),
		},
	}
	del := datagrid.WriteOp{
		Kind:     datagrid.WriteDelete,
		Table:    "people",
		PKColumn: "id",
		PKValue:  datagrid.Int(7),
	}
	insert := datagrid.WriteOp{
		Kind:    datagrid.WriteInsert,
		Table:   "people",
		Columns: []string{"id", "name"},
		Values:  []datagrid.CellValue{datagrid.Int(8), datagrid.Text("y")},
	}

	tests := []struct {
		name     string
		dialect  Dialect
		op       datagrid.WriteOp
		want     string
		wantArgs []any
	}{
		{
			name: "sqlite update", dialect: SQLite, op: update,
			want:     `UPDATE "people" SET "age" = ?, "name" = ? WHERE "id" = ?`,
			wantArgs: []any{float64(30), "x", float64(7)},
		},
		{
			name: "postgres update", dialect: Postgres, op: update,
			want:     `UPDATE "people" SET "age" = $1, "name" = $2 WHERE "id" = $3`,
			wantArgs: []any{float64(30), "x", float64(7)},
		},
		{
			name: "mysql update", dialect: MySQL, op: update,
			want:     "UPDATE `people` SET `age` = ?, `name` = ? WHERE `id` = ?",
			wantArgs: []any{float64(30), "x", float64(7)},
		},
		{
			name: "sqlserver update", dialect: SQLServer, op: update,
			want:     "UPDATE [people] SET [age] = @p1, [name] = @p2 WHERE [id] = @p3",
			wantArgs: []any{float64(30), "x", float64(7)},
		},
		{
			name: "delete", dialect: Postgres, op: del,
			want:     `DELETE FROM "people" WHERE "id" = $1`,
			wantArgs: []any{float64(7)},
		},
		{
			name: "insert", dialect: SQLite, op: insert,
			want:     `INSERT INTO "people" ("id", "name") VALUES (?, ?)`,
			wantArgs: []any{float64(8), "y"},
		},
		{
			name: "insert with no values", dialect: SQLite,
			op:   datagrid.WriteOp{Kind: datagrid.WriteInsert, Table: "people"},
			want: `INSERT INTO "people" DEFAULT VALUES`,
		},
		{
			name: "mysql insert with no values", dialect: MySQL,
			op:   datagrid.WriteOp{Kind: datagrid.WriteInsert, Table: "people"},
			want: "INSERT INTO `people` () VALUES ()",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := BuildStatement(tt.dialect, tt.op)
			require.NoError(t, err)
			require.Equal(t, tt.want, query)
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildStatementErrors(t *testing.T) {
	_, _, err := BuildStatement(SQLite, datagrid.WriteOp{Kind: datagrid.WriteUpdate, Table: "t"})
	require.Error(t, err, "update without changes")
}

func TestQuoteIdentEscapes(t *testing.T) {
	require.Equal(t, `"evil""name"`, SQLite.QuoteIdent(`evil"name`))
	require.Equal(t, "`evil``name`", MySQL.QuoteIdent("evil`name"))
	require.Equal(t, "[evil]]name]", SQLServer.QuoteIdent("evil]name"))
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// the in-memory database lives per connection
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO people (id, name) VALUES (1, 'a'), (2, 'b')`)
	require.NoError(t, err)
	return db
}

func tableState(t *testing.T, db *sql.DB) map[int64]string {
	t.Helper()
	rows, err := db.Query(`SELECT id, name FROM people ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	state := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		require.NoError(t, rows.Scan(&id, &name))
		state[id] = name
	}
	require.NoError(t, rows.Err())
	return state
}

func TestWriterApplyWrite(t *testing.T) {
	db := openTestDB(t)
	w := NewWriter(db, SQLite)
	ctx := context.Background()

	err := w.ApplyWrite(ctx, datagrid.WriteOp{
		Kind: datagrid.WriteDelete, Table: "people",
		PKColumn: "id", PKValue: datagrid.Int(2),
	})
	require.NoError(t, err)

	err = w.ApplyWrite(ctx, datagrid.WriteOp{
		Kind: datagrid.WriteUpdate, Table: "people",
		PKColumn: "id", PKValue: datagrid.Int(1),
		Changes: map[string]datagrid.CellValue{"name": datagrid.Text("aa")},
	})
	require.NoError(t, err)

	err = w.ApplyWrite(ctx, datagrid.WriteOp{
		Kind: datagrid.WriteInsert, Table: "people",
		Columns: []string{"id", "name"},
		Values:  []datagrid.CellValue{datagrid.Int(3), datagrid.Text("c")},
	})
	require.NoError(t, err)

	require.Equal(t, map[int64]string{1: "aa", 3: "c"}, tableState(t, db))
}

func TestWriterApplyWriteError(t *testing.T) {
	db := openTestDB(t)
	w := NewWriter(db, SQLite)

	err := w.ApplyWrite(context.Background(), datagrid.WriteOp{
		Kind: datagrid.WriteInsert, Table: "people",
		Columns: []string{"id"},
		Values:  []datagrid.CellValue{datagrid.Int(1)}, // duplicate primary key
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Insert people")
}

// Full stack: engine ledger -> write operations -> SQL.
func TestEngineSaveThroughWriter(t *testing.T) {
	db := openTestDB(t)
	e := datagrid.New(datagrid.Config{
		Table:       "people",
		Persistence: NewWriter(db, SQLite),
	})
	e.LoadPage(
		[]datagrid.Column{
			{Name: "id", DeclaredType: "INTEGER", IsPrimaryKey: true},
			{Name: "name", DeclaredType: "TEXT"},
		},
		[]datagrid.Row{
			{"id": datagrid.Int(1), "name": datagrid.Text("a")},
			{"id": datagrid.Int(2), "name": datagrid.Text("b")},
		},
	)

	_, ok := e.BeginEdit(datagrid.CellCoord{Row: 0, Col: "name"})
	require.True(t, ok)
	e.CommitEdit("aa")

	e.CellAction(datagrid.CellCoord{Row: 1, Col: "id"}, 0)
	e.EndDrag()
	e.DeleteSelection()

	_, ok = e.InsertRow()
	require.True(t, ok)
	_, _ = e.BeginEdit(datagrid.CellCoord{Row: 1, Col: "id"})
	e.CommitEdit("3")
	_, _ = e.BeginEdit(datagrid.CellCoord{Row: 1, Col: "name"})
	e.CommitEdit("c")

	summary, err := e.Save(context.Background())
	require.NoError(t, err)
	require.Equal(t, datagrid.SaveSummary{Deleted: 1, Updated: 1, Inserted: 1}, summary)
	require.Equal(t, 0, e.PendingCount())
	require.Equal(t, map[int64]string{1: "aa", 3: "c"}, tableState(t, db))
}
