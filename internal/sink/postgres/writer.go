// Package postgres writes row batches to a PostgreSQL table over a single
// pgx connection. Tables are replaced inside one transaction and batches are
// appended with COPY FROM.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// Conn is the subset of *pgx.Conn used by the writer.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close(ctx context.Context) error
}

// Writer implements tripload.TableWriter for PostgreSQL.
type Writer struct {
	conn   Conn
	logger tripload.Logger
}

// NewWriter wraps an open connection. The writer owns the connection and
// closes it in Close.
func NewWriter(conn Conn, logger tripload.Logger) *Writer {
	return &Writer{conn: conn, logger: logger}
}

// CreateTable drops table if it exists and creates it from schema, atomically.
func (w *Writer) CreateTable(ctx context.Context, table string, schema *tripload.Schema) error {
	ddl, err := CreateTableSQL(table, schema)
	if err != nil {
		return err
	}

	tx, err := w.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", tripload.ErrWriteFailed, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	drop := "DROP TABLE IF EXISTS " + Identifier(table).Sanitize()
	w.logger.Verbose("%s", drop)
	if _, err := tx.Exec(ctx, drop); err != nil {
		return fmt.Errorf("%w: drop table %s: %w", tripload.ErrWriteFailed, table, err)
	}

	w.logger.Verbose("%s", ddl)
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: create table %s: %w", tripload.ErrWriteFailed, table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit table creation: %w", tripload.ErrWriteFailed, err)
	}
	return nil
}

// Append copies every row of batch into table with a single COPY.
func (w *Writer) Append(ctx context.Context, table string, batch *tripload.Batch) (int64, error) {
	n, err := w.conn.CopyFrom(ctx, Identifier(table), batch.Schema.Names(), pgx.CopyFromRows(batch.Rows))
	if err != nil {
		return n, fmt.Errorf("%w: copy chunk %d (rows %d-%d) into %s: %w",
			tripload.ErrWriteFailed, batch.Index, batch.FirstRow, batch.FirstRow+int64(batch.Len())-1, table, err)
	}
	return n, nil
}

func (w *Writer) Close(ctx context.Context) error {
	return w.conn.Close(ctx)
}

// Identifier converts "table" or "schema.table" to a pgx identifier.
func Identifier(table string) pgx.Identifier {
	schema, name := tripload.SplitTableName(table)
	if schema == "" {
		return pgx.Identifier{name}
	}
	return pgx.Identifier{schema, name}
}

// SQLType returns the PostgreSQL column type for t.
func SQLType(t tripload.ColumnType) (string, error) {
	switch t {
	case tripload.ColumnInt64:
		return "BIGINT", nil
	case tripload.ColumnFloat64:
		return "DOUBLE PRECISION", nil
	case tripload.ColumnString:
		return "TEXT", nil
	case tripload.ColumnTimestamp:
		return "TIMESTAMP WITHOUT TIME ZONE", nil
	case tripload.ColumnBool:
		return "BOOLEAN", nil
	default:
		return "", fmt.Errorf("no PostgreSQL type for %s: %w", t, tripload.ErrInvalidConfig)
	}
}

// CreateTableSQL renders the CREATE TABLE statement for schema.
func CreateTableSQL(table string, schema *tripload.Schema) (string, error) {
	if err := tripload.ValidateTableName(table); err != nil {
		return "", err
	}
	if schema == nil || len(schema.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns: %w", table, tripload.ErrInvalidConfig)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", Identifier(table).Sanitize())
	for i, col := range schema.Columns {
		typ, err := SQLType(col.Type)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", col.Name, err)
		}
		fmt.Fprintf(&b, "    %s %s", pgx.Identifier{col.Name}.Sanitize(), typ)
		if i < len(schema.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String(), nil
}
