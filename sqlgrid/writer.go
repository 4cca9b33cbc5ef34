// Package sqlgrid implements the datagrid Persistence collaborator
// on top of database/sql, building one single-row statement per
// write operation.
package sqlgrid

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	datagrid "github.com/domonda/go-datagrid"
)

// Dialect selects identifier quoting and placeholder style.
type Dialect uint8

const (
	SQLite Dialect = iota
	Postgres
	MySQL
	SQLServer
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "SQLite"
	case Postgres:
		return "Postgres"
	case MySQL:
		return "MySQL"
	case SQLServer:
		return "SQLServer"
	}
	return "Invalid(" + strconv.Itoa(int(d)) + ")"
}

// QuoteIdent quotes a table or column name for the dialect:
// backticks for MySQL, brackets for SQL Server, double quotes
// otherwise.
func (d Dialect) QuoteIdent(name string) string {
	switch d {
	case MySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case SQLServer:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

func (d Dialect) placeholder(n int) string {
	switch d {
	case Postgres:
		return "$" + strconv.Itoa(n)
	case SQLServer:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// Writer applies write operations through a *sql.DB.
type Writer struct {
	db      *sql.DB
	dialect Dialect
}

// NewWriter creates a Writer for the passed database and dialect.
func NewWriter(db *sql.DB, dialect Dialect) *Writer {
	return &Writer{db: db, dialect: dialect}
}

// ApplyWrite implements datagrid.Persistence.
func (w *Writer) ApplyWrite(ctx context.Context, op datagrid.WriteOp) error {
	query, args, err := BuildStatement(w.dialect, op)
	if err != nil {
		return err
	}
	_, err = w.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op.Kind, op.Table, err)
	}
	return nil
}

// BuildStatement renders a write operation as a parameterized
// single-row statement. Values are always bound as placeholders,
// never spliced into the SQL text.
func BuildStatement(dialect Dialect, op datagrid.WriteOp) (query string, args []any, err error) {
	switch op.Kind {
	case datagrid.WriteDelete:
		query = fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			dialect.QuoteIdent(op.Table),
			dialect.QuoteIdent(op.PKColumn),
			dialect.placeholder(1))
		return query, []any{op.PKValue.Driver()}, nil

	case datagrid.WriteUpdate:
		if len(op.Changes) == 0 {
			return "", nil, fmt.Errorf("update of %s has no changes", op.Table)
		}
		columns := make([]string, 0, len(op.Changes))
		for col := range op.Changes {
			columns = append(columns, col)
		}
		sort.Strings(columns)
		assignments := make([]string, len(columns))
		for i, col := range columns {
			assignments[i] = dialect.QuoteIdent(col) + " = " + dialect.placeholder(i+1)
			args = append(args, op.Changes[col].Driver())
		}
		query = fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
			dialect.QuoteIdent(op.Table),
			strings.Join(assignments, ", "),
			dialect.QuoteIdent(op.PKColumn),
			dialect.placeholder(len(columns)+1))
		return query, append(args, op.PKValue.Driver()), nil

	case datagrid.WriteInsert:
		if len(op.Columns) == 0 {
			// every seed value was null or empty
			if dialect == MySQL {
				return "INSERT INTO " + dialect.QuoteIdent(op.Table) + " () VALUES ()", nil, nil
			}
			return "INSERT INTO " + dialect.QuoteIdent(op.Table) + " DEFAULT VALUES", nil, nil
		}
		quoted := make([]string, len(op.Columns))
		placeholders := make([]string, len(op.Columns))
		for i, col := range op.Columns {
			quoted[i] = dialect.QuoteIdent(col)
			placeholders[i] = dialect.placeholder(i + 1)
			args = append(args, op.Values[i].Driver())
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			dialect.QuoteIdent(op.Table),
			strings.Join(quoted, ", "),
			strings.Join(placeholders, ", "))
		return query, args, nil
	}
	return "", nil, fmt.Errorf("unknown write kind %s", op.Kind)
}
