// Package sqlite writes row batches to a local SQLite database file using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// TimestampLayout is how timestamps are stored; SQLite has no native type.
const TimestampLayout = "2006-01-02 15:04:05.999999999"

// Writer implements tripload.TableWriter for SQLite.
type Writer struct {
	db     *sql.DB
	logger tripload.Logger
}

// Open opens (or creates) the database file at path.
func Open(ctx context.Context, path string, logger tripload.Logger) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %w", tripload.ErrConnectionFailed, path, err)
	}
	// one connection: the loader is strictly sequential
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: open sqlite %s: %w", tripload.ErrConnectionFailed, path, err)
	}
	return &Writer{db: db, logger: logger}, nil
}

// DB exposes the handle for callers that need to query the loaded table.
func (w *Writer) DB() *sql.DB { return w.db }

// CreateTable drops table if it exists and creates it from schema, atomically.
func (w *Writer) CreateTable(ctx context.Context, table string, schema *tripload.Schema) error {
	ddl, err := CreateTableSQL(table, schema)
	if err != nil {
		return err
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", tripload.ErrWriteFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck

	drop := "DROP TABLE IF EXISTS " + quoteTable(table)
	w.logger.Verbose("%s", drop)
	if _, err := tx.ExecContext(ctx, drop); err != nil {
		return fmt.Errorf("%w: drop table %s: %w", tripload.ErrWriteFailed, table, err)
	}
	w.logger.Verbose("%s", ddl)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: create table %s: %w", tripload.ErrWriteFailed, table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit table creation: %w", tripload.ErrWriteFailed, err)
	}
	return nil
}

// Append inserts every row of batch inside one transaction.
func (w *Writer) Append(ctx context.Context, table string, batch *tripload.Batch) (int64, error) {
	wrap := func(err error) error {
		return fmt.Errorf("%w: insert chunk %d into %s: %w", tripload.ErrWriteFailed, batch.Index, table, err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrap(err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, batch.Schema))
	if err != nil {
		return 0, wrap(err)
	}
	defer stmt.Close()

	args := make([]any, len(batch.Schema.Columns))
	for _, row := range batch.Rows {
		for i, v := range row {
			if ts, ok := v.(time.Time); ok {
				args[i] = ts.Format(TimestampLayout)
				continue
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, wrap(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, wrap(err)
	}
	return int64(batch.Len()), nil
}

func (w *Writer) Close(ctx context.Context) error {
	return w.db.Close()
}

// SQLType returns the SQLite column type for t.
func SQLType(t tripload.ColumnType) (string, error) {
	switch t {
	case tripload.ColumnInt64:
		return "INTEGER", nil
	case tripload.ColumnFloat64:
		return "REAL", nil
	case tripload.ColumnString:
		return "TEXT", nil
	case tripload.ColumnTimestamp:
		return "TIMESTAMP", nil
	case tripload.ColumnBool:
		return "BOOLEAN", nil
	default:
		return "", fmt.Errorf("no SQLite type for %s: %w", t, tripload.ErrInvalidConfig)
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

	defs := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		typ, err := SQLType(col.Type)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", col.Name, err)
		}
		defs[i] = "    " + quoteIdent(col.Name) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", quoteTable(table), strings.Join(defs, ",\n")), nil
}

func insertSQL(table string, schema *tripload.Schema) string {
	cols := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		cols[i] = quoteIdent(col.Name)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteTable(table), strings.Join(cols, ", "), placeholders)
}

// quoteTable quotes "table" or "schema.table"; in SQLite the schema is an
// attached database name.
func quoteTable(table string) string {
	schema, name := tripload.SplitTableName(table)
	if schema == "" {
		return quoteIdent(name)
	}
	return quoteIdent(schema) + "." + quoteIdent(name)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
